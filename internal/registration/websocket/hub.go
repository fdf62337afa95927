package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/AlibekovAA/registration-board/internal/common/constants"
	commonerrors "github.com/AlibekovAA/registration-board/internal/common/errors"
	"github.com/AlibekovAA/registration-board/internal/common/logger"
	"github.com/AlibekovAA/registration-board/internal/observability/metrics"
	"github.com/AlibekovAA/registration-board/internal/registration"
)

// Hub tracks live sessions so that their number stays bounded and all of
// them can be told about a shutdown.
type Hub struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	maxSessions int
	closed      bool
	log         *logger.Logger
}

func NewHub(maxSessions int, log *logger.Logger) *Hub {
	if maxSessions <= 0 {
		maxSessions = constants.DefaultWebSocketMaxSessions
	}
	return &Hub{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		log:         log,
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *Hub) Full() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed || len(h.sessions) >= h.maxSessions
}

func (h *Hub) Register(s *Session) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return registration.ErrClosed
	}
	if len(h.sessions) >= h.maxSessions {
		h.mu.Unlock()
		return commonerrors.ErrTooManySessions
	}
	h.sessions[s.id] = s
	total := len(h.sessions)
	h.mu.Unlock()

	metrics.WebSocketSessionsActive.Inc()
	metrics.WebSocketSessionsTotal.Inc()
	h.log.WithFields(s.baseCtx, logger.Fields{
		"session_id": s.id,
		"total":      total,
		"action":     "ws_register",
	}).Info("registration session opened")
	return nil
}

// Unregister closes s and forgets it. Safe for sessions that were never
// registered or are already gone.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	_, ok := h.sessions[s.id]
	if ok {
		delete(h.sessions, s.id)
	}
	h.mu.Unlock()

	s.Close()
	if !ok {
		return
	}

	metrics.WebSocketSessionsActive.Dec()
	h.log.WithFields(s.baseCtx, logger.Fields{
		"session_id": s.id,
		"action":     "ws_unregister",
	}).Info("registration session closed")
}

// Shutdown sends every session a shutdown frame, closes it and refuses new
// registrations.
func (h *Hub) Shutdown(ctx context.Context) {
	h.mu.Lock()
	h.closed = true
	sessions := make([]*Session, 0, len(h.sessions))
	for id, s := range h.sessions {
		sessions = append(sessions, s)
		delete(h.sessions, id)
	}
	h.mu.Unlock()

	msg, err := encode(TypeShutdown, nil)
	if err != nil {
		h.log.Errorf("websocket failed to marshal shutdown message: %v", err)
	}

	timeout := constants.WebSocketShutdownNotifyTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	for _, s := range sessions {
		if err == nil && !s.notifyShutdown(msg, timeout) {
			h.log.WithFields(s.baseCtx, logger.Fields{
				"session_id": s.id,
				"action":     "ws_shutdown_timeout",
			}).Warn("websocket shutdown notification timeout")
		}
		s.Close()
		metrics.WebSocketSessionsActive.Dec()
	}

	h.log.WithFields(ctx, logger.Fields{
		"sessions": len(sessions),
		"action":   "ws_hub_shutdown",
	}).Info("websocket hub shutdown completed")
}
