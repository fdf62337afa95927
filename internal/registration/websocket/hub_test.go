package websocket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	commonerrors "github.com/AlibekovAA/registration-board/internal/common/errors"
	"github.com/AlibekovAA/registration-board/internal/common/logger"
	"github.com/AlibekovAA/registration-board/internal/registration"
	"github.com/AlibekovAA/registration-board/internal/user/domain"
)

type mockController struct {
	closes atomic.Int32
}

func (m *mockController) Initialize(context.Context) error             { return nil }
func (m *mockController) Submit(context.Context, string, string) error { return nil }
func (m *mockController) Remove(context.Context, domain.ID) error      { return nil }
func (m *mockController) UpdateDraft(string, string) error             { return nil }
func (m *mockController) Watch() (<-chan registration.State, func())   { return nil, func() {} }
func (m *mockController) Close()                                       { m.closes.Add(1) }

func newTestHub(max int) *Hub {
	return NewHub(max, logger.NewWriter(io.Discard, "test", "debug"))
}

func newTestSession(hub *Hub, id string) (*Session, *mockController) {
	ctrl := &mockController{}
	s := NewSession(id, hub, nil, ctrl, DefaultSessionConfig(), logger.NewWriter(io.Discard, "test", "debug"))
	return s, ctrl
}

func TestHub_BoundsSessions(t *testing.T) {
	hub := newTestHub(2)

	for i := 0; i < 2; i++ {
		s, _ := newTestSession(hub, fmt.Sprintf("s-%d", i))
		if err := hub.Register(s); err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
	}

	extra, _ := newTestSession(hub, "s-extra")
	if err := hub.Register(extra); !errors.Is(err, commonerrors.ErrTooManySessions) {
		t.Fatalf("expected ErrTooManySessions, got %v", err)
	}
	if !hub.Full() {
		t.Error("expected hub to report full")
	}
}

func TestHub_UnregisterClosesControllerOnce(t *testing.T) {
	hub := newTestHub(4)
	s, ctrl := newTestSession(hub, "s-1")
	_ = hub.Register(s)

	hub.Unregister(s)
	hub.Unregister(s)
	s.Close()

	if got := ctrl.closes.Load(); got != 1 {
		t.Errorf("expected controller closed once, got %d", got)
	}
	if hub.Len() != 0 {
		t.Errorf("expected empty hub, got %d", hub.Len())
	}
	select {
	case <-s.Done():
	default:
		t.Error("expected session to be done")
	}
}

func TestHub_ShutdownNotifiesAndCloses(t *testing.T) {
	hub := newTestHub(4)
	s, ctrl := newTestSession(hub, "s-1")
	_ = hub.Register(s)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	hub.Shutdown(ctx)

	select {
	case msg := <-s.send:
		if string(msg) != `{"type":"shutdown"}` {
			t.Errorf("unexpected shutdown frame %s", msg)
		}
	default:
		t.Error("expected shutdown frame to be queued")
	}
	if ctrl.closes.Load() != 1 {
		t.Error("expected controller to be closed")
	}

	late, _ := newTestSession(hub, "s-late")
	if err := hub.Register(late); !errors.Is(err, registration.ErrClosed) {
		t.Errorf("expected ErrClosed after shutdown, got %v", err)
	}
}
