package registration

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/AlibekovAA/registration-board/internal/common/clock"
	"github.com/AlibekovAA/registration-board/internal/common/constants"
	"github.com/AlibekovAA/registration-board/internal/common/logger"
	"github.com/AlibekovAA/registration-board/internal/observability/metrics"
	"github.com/AlibekovAA/registration-board/internal/user/connector"
	"github.com/AlibekovAA/registration-board/internal/user/domain"
)

const (
	triggerMount = "mount"
	triggerFeed  = "feed"
)

type ControllerDeps struct {
	Connector connector.Connector
	Clock     clock.Clock
	Log       *logger.Logger
}

type ControllerConfig struct {
	// RefreshTimeout bounds fetches started by change events, which do not
	// belong to any caller's context.
	RefreshTimeout time.Duration
	SessionID      string
}

// Controller owns the form and list state of one mounted page. All state
// changes go through mutate, which turns into a no-op once Close has run, so
// a fetch that completes after teardown writes nothing.
type Controller struct {
	conn           connector.Connector
	clock          clock.Clock
	log            *logger.Logger
	refreshTimeout time.Duration
	sessionID      string

	mu          sync.Mutex
	state       State
	initialized bool
	closed      bool
	sub         connector.Subscription
	watchers    map[uint64]chan State
	nextWatcher uint64

	wg sync.WaitGroup
}

func NewController(deps ControllerDeps, cfg ControllerConfig) *Controller {
	if deps.Clock == nil {
		deps.Clock = clock.NewRealClock()
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = constants.DefaultRegistryRequestTimeout
	}
	return &Controller{
		conn:           deps.Connector,
		clock:          deps.Clock,
		log:            deps.Log,
		refreshTimeout: cfg.RefreshTimeout,
		sessionID:      cfg.SessionID,
		state: State{
			List: ListState{Status: StatusIdle, Users: []domain.User{}},
		},
		watchers: make(map[uint64]chan State),
	}
}

// Initialize subscribes to the change feed and loads the list. It returns
// once the first fetch has finished; remote failures end up in the list
// error slot, not in the returned error.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.initialized {
		c.mu.Unlock()
		return ErrAlreadyInitialized
	}
	c.initialized = true
	c.mu.Unlock()

	sub, subErr := c.conn.Subscribe(ctx)
	if subErr != nil {
		c.entry(ctx, "subscribe").Warnf("change feed subscription failed: %v", subErr)
	} else {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			sub.Unsubscribe()
			return ErrClosed
		}
		c.sub = sub
		c.wg.Add(1)
		c.mu.Unlock()
		go c.consume(sub)
	}

	c.refresh(ctx, triggerMount)

	if subErr != nil {
		msg := errorMessage(subErr)
		c.mutate(func(s *State) {
			if s.List.Error == "" {
				s.List.Error = msg
			}
		})
	}
	return nil
}

// consume starts one fetch per event. Fetches are neither coalesced nor
// cancelled; when they overlap the last one to finish wins.
func (c *Controller) consume(sub connector.Subscription) {
	defer c.wg.Done()
	for range sub.Events() {
		if c.isClosed() {
			continue
		}
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), c.refreshTimeout)
			defer cancel()
			c.refresh(ctx, triggerFeed)
		}()
	}
}

func (c *Controller) refresh(ctx context.Context, trigger string) {
	if !c.mutate(func(s *State) {
		s.List.Loading = true
		s.List.Status = StatusLoading
	}) {
		return
	}

	users, err := c.conn.ListUsers(ctx)
	if err != nil {
		metrics.ControllerRefreshesTotal.WithLabelValues(trigger, "error").Inc()
		c.entry(ctx, "refresh").Warnf("list users failed: %v", err)
		msg := errorMessage(err)
		c.mutate(func(s *State) {
			s.List.Loading = false
			s.List.Status = StatusFailed
			s.List.Error = msg
		})
		return
	}

	metrics.ControllerRefreshesTotal.WithLabelValues(trigger, "ok").Inc()
	now := c.clock.Now()
	c.mutate(func(s *State) {
		s.List.Users = users
		if s.List.Users == nil {
			s.List.Users = []domain.User{}
		}
		s.List.Loading = false
		s.List.Status = StatusLoaded
		s.List.Error = ""
		s.List.RefreshedAt = now
	})
}

// Submit registers a user from the given form values. Blank input after
// trimming is ignored. The new row is not added locally; it shows up with
// the next change event.
func (c *Controller) Submit(ctx context.Context, name, email string) error {
	trimmedName := strings.TrimSpace(name)
	trimmedEmail := strings.TrimSpace(email)
	if trimmedName == "" || trimmedEmail == "" {
		metrics.ControllerCommandsTotal.WithLabelValues("submit", "ignored").Inc()
		return nil
	}

	if !c.mutate(func(s *State) {
		s.Form.Name = name
		s.Form.Email = email
		s.Form.InFlight = true
	}) {
		return ErrClosed
	}

	_, err := c.conn.CreateUser(ctx, trimmedName, trimmedEmail)
	if err != nil {
		metrics.ControllerCommandsTotal.WithLabelValues("submit", "error").Inc()
		c.entry(ctx, "submit").Warnf("create user failed: %v", err)
		msg := errorMessage(err)
		c.mutate(func(s *State) {
			s.Form.InFlight = false
			s.Form.Error = msg
		})
		return nil
	}

	metrics.ControllerCommandsTotal.WithLabelValues("submit", "ok").Inc()
	c.mutate(func(s *State) {
		s.Form.InFlight = false
		s.Form.Name = ""
		s.Form.Email = ""
		s.Form.Error = ""
	})
	return nil
}

// Remove deletes a user and drops it from the local list right away.
func (c *Controller) Remove(ctx context.Context, id domain.ID) error {
	if !c.mutate(func(s *State) { s.List.Loading = true }) {
		return ErrClosed
	}

	if err := c.conn.DeleteUser(ctx, id); err != nil {
		metrics.ControllerCommandsTotal.WithLabelValues("remove", "error").Inc()
		c.entry(ctx, "remove").Warnf("delete user %s failed: %v", id, err)
		msg := errorMessage(err)
		c.mutate(func(s *State) {
			s.List.Loading = false
			s.List.Error = msg
		})
		return nil
	}

	metrics.ControllerCommandsTotal.WithLabelValues("remove", "ok").Inc()
	c.mutate(func(s *State) {
		s.List.Users = removeUser(s.List.Users, id)
		s.List.Loading = false
		s.List.Error = ""
	})
	return nil
}

func (c *Controller) UpdateDraft(name, email string) error {
	if !c.mutate(func(s *State) {
		s.Form.Name = name
		s.Form.Email = email
	}) {
		return ErrClosed
	}
	return nil
}

func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Watch returns a channel that always holds the latest state: a slow reader
// skips intermediate states. The channel is closed by cancel or Close.
func (c *Controller) Watch() (<-chan State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan State, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	c.nextWatcher++
	id := c.nextWatcher
	c.watchers[id] = ch
	ch <- c.state.clone()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if w, ok := c.watchers[id]; ok {
			delete(c.watchers, id)
			close(w)
		}
	}
}

// Close releases the subscription and closes all watchers. Safe to call more
// than once.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	sub := c.sub
	c.sub = nil
	for id, w := range c.watchers {
		delete(c.watchers, id)
		close(w)
	}
	c.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	c.log.WithFields(context.Background(), logger.Fields{
		"session_id": c.sessionID,
		"action":     "controller_close",
	}).Debug("registration controller closed")
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// mutate applies fn under the lock and publishes the result to watchers.
// It reports false, without calling fn, when the controller is closed.
func (c *Controller) mutate(fn func(*State)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		metrics.ControllerDiscardedWritesTotal.Inc()
		return false
	}

	fn(&c.state)
	snapshot := c.state.clone()
	for _, w := range c.watchers {
		select {
		case <-w:
		default:
		}
		w <- snapshot
	}
	return true
}

func (c *Controller) entry(ctx context.Context, action string) *logger.Entry {
	return c.log.WithFields(ctx, logger.Fields{
		"session_id": c.sessionID,
		"action":     "registration_" + action,
	})
}
