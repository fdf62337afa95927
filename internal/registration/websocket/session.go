package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	gorillaWS "github.com/gorilla/websocket"

	"github.com/AlibekovAA/registration-board/internal/common/constants"
	commonerrors "github.com/AlibekovAA/registration-board/internal/common/errors"
	"github.com/AlibekovAA/registration-board/internal/common/logger"
	"github.com/AlibekovAA/registration-board/internal/observability/metrics"
	"github.com/AlibekovAA/registration-board/internal/registration"
	"github.com/AlibekovAA/registration-board/internal/user/domain"
)

// Controller is the part of registration.Controller a session drives.
type Controller interface {
	Initialize(ctx context.Context) error
	Submit(ctx context.Context, name, email string) error
	Remove(ctx context.Context, id domain.ID) error
	UpdateDraft(name, email string) error
	Watch() (<-chan registration.State, func())
	Close()
}

type SessionConfig struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
	SendBufSize    int
	RequestTimeout time.Duration
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		WriteWait:      constants.DefaultWebSocketWriteWait,
		PongWait:       constants.DefaultWebSocketPongWait,
		PingPeriod:     constants.DefaultWebSocketPingPeriod,
		MaxMessageSize: constants.DefaultWebSocketMaxMsgSize,
		SendBufSize:    constants.DefaultWebSocketSendBufSize,
		RequestTimeout: constants.DefaultRegistryRequestTimeout,
	}
}

// Session is one mounted page: a socket plus the controller it owns. The
// controller is closed exactly once, whichever side ends the session.
type Session struct {
	id         string
	hub        *Hub
	conn       *gorillaWS.Conn
	controller Controller
	cfg        SessionConfig
	send       chan []byte
	done       chan struct{}
	closeOnce  sync.Once
	baseCtx    context.Context
	commands   sync.WaitGroup
	log        *logger.Logger
}

func NewSession(id string, hub *Hub, conn *gorillaWS.Conn, controller Controller, cfg SessionConfig, log *logger.Logger) *Session {
	if cfg.SendBufSize <= 0 {
		cfg.SendBufSize = constants.DefaultWebSocketSendBufSize
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = constants.DefaultRegistryRequestTimeout
	}
	return &Session{
		id:         id,
		hub:        hub,
		conn:       conn,
		controller: controller,
		cfg:        cfg,
		send:       make(chan []byte, cfg.SendBufSize),
		done:       make(chan struct{}),
		baseCtx:    context.WithValue(context.Background(), constants.TraceIDKey, id),
		log:        log,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Start() {
	go s.writePump()
	go s.statePump()
	go s.readPump()
	go s.initialize()
}

// Close stops the pumps and tears down the controller. Commands still
// waiting on the store are left to finish; their results are discarded.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.controller.Close()
	})
}

func (s *Session) initialize() {
	ctx, cancel := context.WithTimeout(s.baseCtx, s.cfg.RequestTimeout)
	defer cancel()

	if err := s.controller.Initialize(ctx); err != nil && !errors.Is(err, registration.ErrClosed) {
		s.log.WithFields(ctx, logger.Fields{
			"session_id": s.id,
			"action":     "ws_initialize_failed",
		}).Errorf("registration session initialize failed: %v", err)
	}
}

func (s *Session) statePump() {
	states, cancel := s.controller.Watch()
	defer cancel()

	for state := range states {
		msg, err := encode(TypeState, NewStateView(state))
		if err != nil {
			metrics.WebSocketErrors.WithLabelValues("marshal").Inc()
			s.log.Errorf("websocket failed to marshal state session_id=%s: %v", s.id, err)
			continue
		}
		if !s.enqueue(msg) {
			return
		}
	}
}

func (s *Session) readPump() {
	defer func() {
		if s.hub != nil {
			s.hub.Unregister(s)
		} else {
			s.Close()
		}
		s.conn.Close()
	}()

	s.conn.SetReadLimit(s.cfg.MaxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if gorillaWS.IsUnexpectedCloseError(err, gorillaWS.CloseGoingAway, gorillaWS.CloseAbnormalClosure, gorillaWS.CloseNormalClosure) {
				metrics.WebSocketErrors.WithLabelValues("read").Inc()
				s.log.Warnf("websocket read error session_id=%s: %v", s.id, err)
			}
			return
		}

		cmd, err := ParseCommand(data)
		if err != nil {
			metrics.WebSocketErrors.WithLabelValues("invalid_message").Inc()
			s.log.Debugf("websocket invalid message session_id=%s: %v", s.id, err)
			s.sendError(err)
			continue
		}

		metrics.WebSocketMessagesTotal.WithLabelValues(cmd.Type.String()).Inc()
		s.dispatch(cmd)
	}
}

func (s *Session) dispatch(cmd Command) {
	switch cmd.Type {
	case TypeDraft:
		if err := s.controller.UpdateDraft(cmd.Name, cmd.Email); err != nil {
			s.sendError(err)
		}
	case TypeSubmit:
		s.runAsync(func(ctx context.Context) error {
			return s.controller.Submit(ctx, cmd.Name, cmd.Email)
		})
	case TypeRemove:
		s.runAsync(func(ctx context.Context) error {
			return s.controller.Remove(ctx, cmd.ID)
		})
	}
}

// runAsync keeps the read loop free to answer pings while a command waits
// on the store.
func (s *Session) runAsync(fn func(ctx context.Context) error) {
	s.commands.Add(1)
	go func() {
		defer s.commands.Done()
		ctx, cancel := context.WithTimeout(s.baseCtx, s.cfg.RequestTimeout)
		defer cancel()
		if err := fn(ctx); err != nil && !errors.Is(err, registration.ErrClosed) {
			s.sendError(err)
		}
	}()
}

func (s *Session) sendError(err error) {
	payload := ErrorPayload{
		Code:    commonerrors.ErrInternalError.Code(),
		Message: commonerrors.ErrInternalError.Message(),
	}
	if de, ok := commonerrors.AsDomainError(err); ok {
		payload.Code = de.Code()
		payload.Message = de.Error()
	}

	msg, encErr := encode(TypeError, payload)
	if encErr != nil {
		return
	}
	s.enqueue(msg)
}

func (s *Session) enqueue(msg []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.send <- msg:
		return true
	case <-s.done:
		return false
	}
}

// notifyShutdown queues a shutdown frame, giving up after timeout.
func (s *Session) notifyShutdown(msg []byte, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case s.send <- msg:
		return true
	case <-s.done:
		return false
	case <-timer.C:
		return false
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(s.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg := <-s.send:
			if err := s.write(gorillaWS.TextMessage, msg); err != nil {
				s.Close()
				return
			}

		case <-ticker.C:
			if err := s.write(gorillaWS.PingMessage, nil); err != nil {
				s.Close()
				return
			}

		case <-s.done:
			s.flush()
			_ = s.write(gorillaWS.CloseMessage, gorillaWS.FormatCloseMessage(gorillaWS.CloseNormalClosure, ""))
			return
		}
	}
}

func (s *Session) flush() {
	for {
		select {
		case msg := <-s.send:
			if err := s.write(gorillaWS.TextMessage, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (s *Session) write(messageType int, data []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
	return s.conn.WriteMessage(messageType, data)
}
