package websocket

import (
	"encoding/json"
	"time"

	"github.com/AlibekovAA/registration-board/internal/registration"
)

type MessageType string

const (
	TypeDraft    MessageType = "draft"
	TypeSubmit   MessageType = "submit"
	TypeRemove   MessageType = "remove"
	TypeState    MessageType = "state"
	TypeError    MessageType = "error"
	TypeShutdown MessageType = "shutdown"
)

func (mt MessageType) String() string {
	return string(mt)
}

// IsCommand reports whether clients may send mt.
func (mt MessageType) IsCommand() bool {
	switch mt {
	case TypeDraft, TypeSubmit, TypeRemove:
		return true
	default:
		return false
	}
}

type WSMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type FormPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type RemovePayload struct {
	ID string `json:"id"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type UserView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type FormView struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	InFlight bool   `json:"in_flight"`
	Error    string `json:"error,omitempty"`
}

type ListView struct {
	Users       []UserView `json:"users"`
	Loading     bool       `json:"loading"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	RefreshedAt *time.Time `json:"refreshed_at,omitempty"`
}

type StateView struct {
	Form FormView `json:"form"`
	List ListView `json:"list"`
}

func NewStateView(s registration.State) StateView {
	users := make([]UserView, 0, len(s.List.Users))
	for _, u := range s.List.Users {
		users = append(users, UserView{
			ID:        string(u.ID),
			Name:      u.Name,
			Email:     u.Email,
			CreatedAt: u.CreatedAt,
		})
	}

	view := StateView{
		Form: FormView{
			Name:     s.Form.Name,
			Email:    s.Form.Email,
			InFlight: s.Form.InFlight,
			Error:    s.Form.Error,
		},
		List: ListView{
			Users:   users,
			Loading: s.List.Loading,
			Status:  string(s.List.Status),
			Error:   s.List.Error,
		},
	}
	if !s.List.RefreshedAt.IsZero() {
		refreshed := s.List.RefreshedAt
		view.List.RefreshedAt = &refreshed
	}
	return view
}

func encode(msgType MessageType, payload any) ([]byte, error) {
	msg := WSMessage{Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Payload = raw
	}
	return json.Marshal(msg)
}
