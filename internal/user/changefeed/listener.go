package changefeed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	pgx "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/AlibekovAA/registration-board/internal/common/constants"
	"github.com/AlibekovAA/registration-board/internal/common/db"
	"github.com/AlibekovAA/registration-board/internal/common/logger"
	"github.com/AlibekovAA/registration-board/internal/observability/metrics"
)

const usersTable = "users"

// NotificationConn is a connection held in LISTEN mode.
type NotificationConn interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Release()
}

type ConnSource func(ctx context.Context) (NotificationConn, error)

type poolConn struct {
	*pgxpool.Conn
}

func (c poolConn) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	return c.Conn.Conn().WaitForNotification(ctx)
}

// PoolSource acquires listener connections from pool. A connection stays
// checked out for as long as the listener uses it.
func PoolSource(pool *pgxpool.Pool) ConnSource {
	return func(ctx context.Context) (NotificationConn, error) {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		return poolConn{conn}, nil
	}
}

type ListenerConfig struct {
	Channel      string
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Listener holds one connection in LISTEN on the configured channel and
// publishes every notification to the broker, reconnecting on failure.
type Listener struct {
	source  ConnSource
	broker  *Broker
	channel string
	backoff *db.Backoff
	now     func() time.Time
	log     *logger.Logger
}

func NewListener(source ConnSource, broker *Broker, cfg ListenerConfig, log *logger.Logger) *Listener {
	if cfg.Channel == "" {
		cfg.Channel = constants.DefaultChangefeedChannel
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = constants.ChangefeedReconnectInitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = constants.ChangefeedReconnectMaxDelay
	}
	return &Listener{
		source:  source,
		broker:  broker,
		channel: cfg.Channel,
		backoff: db.NewBackoff(db.RetryConfig{
			InitialDelay: cfg.InitialDelay,
			MaxDelay:     cfg.MaxDelay,
			Multiplier:   2,
		}),
		now: time.Now,
		log: log,
	}
}

// Run blocks until ctx is done. Events missed while reconnecting are not
// replayed.
func (l *Listener) Run(ctx context.Context) {
	l.log.Infof("changefeed listener starting on channel %q", l.channel)
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			l.log.Info("changefeed listener stopped")
			return
		}

		metrics.ChangefeedReconnectsTotal.Inc()
		l.log.Warnf("changefeed listener interrupted, reconnecting: %v", err)
		if err := l.backoff.Wait(ctx); err != nil {
			l.log.Info("changefeed listener stopped")
			return
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.source(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	l.backoff.Reset()
	metrics.DBListenerConnected.Set(1)
	defer metrics.DBListenerConnected.Set(0)
	l.log.Debugf("changefeed listening on %q", l.channel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if !db.IsConnectionError(err) {
				l.log.Warnf("changefeed unexpected wait error: %v", err)
			}
			return fmt.Errorf("wait for notification: %w", err)
		}
		if n.Channel != l.channel {
			continue
		}

		op := parseOp(n.Payload)
		metrics.ChangefeedNotificationsTotal.WithLabelValues(string(op)).Inc()
		l.broker.Publish(Event{Table: usersTable, Op: op, ReceivedAt: l.now()})
	}
}
