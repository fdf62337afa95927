package websocket

import (
	"encoding/json"
	"fmt"
	"strings"

	commonerrors "github.com/AlibekovAA/registration-board/internal/common/errors"
	"github.com/AlibekovAA/registration-board/internal/user/domain"
)

// Command is a decoded client message.
type Command struct {
	Type  MessageType
	Name  string
	Email string
	ID    domain.ID
}

// ParseCommand decodes and checks a client frame. Blank form values are
// legal here; the controller decides what to do with them.
func ParseCommand(data []byte) (Command, error) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return Command{}, commonerrors.ErrInvalidPayload.WithCause(err)
	}
	if !msg.Type.IsCommand() {
		return Command{}, commonerrors.ErrUnknownMessageType.WithCause(fmt.Errorf("type %q", msg.Type))
	}

	cmd := Command{Type: msg.Type}
	switch msg.Type {
	case TypeDraft, TypeSubmit:
		var p FormPayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			return Command{}, err
		}
		cmd.Name, cmd.Email = p.Name, p.Email
	case TypeRemove:
		var p RemovePayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			return Command{}, err
		}
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return Command{}, commonerrors.ErrInvalidPayload.WithCause(fmt.Errorf("id is required"))
		}
		cmd.ID = domain.ID(id)
	}
	return cmd, nil
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return commonerrors.ErrInvalidPayload.WithCause(fmt.Errorf("payload is required"))
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return commonerrors.ErrInvalidPayload.WithCause(err)
	}
	return nil
}
