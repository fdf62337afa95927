package connector

import (
	"context"
	"time"

	"github.com/AlibekovAA/registration-board/internal/common/constants"
	commonerrors "github.com/AlibekovAA/registration-board/internal/common/errors"
	"github.com/AlibekovAA/registration-board/internal/common/logger"
	"github.com/AlibekovAA/registration-board/internal/common/resilience"
	"github.com/AlibekovAA/registration-board/internal/user/changefeed"
	"github.com/AlibekovAA/registration-board/internal/user/domain"
	"github.com/AlibekovAA/registration-board/internal/user/service"
)

// Connector is everything a registration controller needs from the store.
// Every error it returns is ErrRemoteStore wrapping the underlying cause.
type Connector interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	CreateUser(ctx context.Context, name, email string) (domain.User, error)
	DeleteUser(ctx context.Context, id domain.ID) error
	Subscribe(ctx context.Context) (Subscription, error)
}

// Subscription delivers one event per change to the users table. After
// Unsubscribe returns the channel is closed.
type Subscription interface {
	Events() <-chan changefeed.Event
	Unsubscribe()
}

type PgConnectorConfig struct {
	CircuitBreakerThreshold int32
	CircuitBreakerTimeout   time.Duration
	CircuitBreakerReset     time.Duration
}

type PgConnector struct {
	users   service.Service
	broker  *changefeed.Broker
	breaker *resilience.CircuitBreaker
	log     *logger.Logger
}

func NewPgConnector(users service.Service, broker *changefeed.Broker, cfg PgConnectorConfig, log *logger.Logger) *PgConnector {
	if cfg.CircuitBreakerThreshold == 0 {
		cfg.CircuitBreakerThreshold = constants.DefaultCircuitBreakerThreshold
	}
	if cfg.CircuitBreakerTimeout <= 0 {
		cfg.CircuitBreakerTimeout = constants.DefaultCircuitBreakerTimeout
	}
	if cfg.CircuitBreakerReset <= 0 {
		cfg.CircuitBreakerReset = constants.DefaultCircuitBreakerReset
	}
	return &PgConnector{
		users:  users,
		broker: broker,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Threshold:  cfg.CircuitBreakerThreshold,
			Timeout:    cfg.CircuitBreakerTimeout,
			ResetAfter: cfg.CircuitBreakerReset,
			Name:       "registry_store",
			Logger:     log,
		}),
		log: log,
	}
}

func (c *PgConnector) ListUsers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		users, err = c.users.List(ctx)
		return err
	})
	if err != nil {
		return nil, remote(err)
	}
	return users, nil
}

func (c *PgConnector) CreateUser(ctx context.Context, name, email string) (domain.User, error) {
	var user domain.User
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		user, err = c.users.Register(ctx, service.RegisterInput{Name: name, Email: email})
		return err
	})
	if err != nil {
		return domain.User{}, remote(err)
	}
	return user, nil
}

func (c *PgConnector) DeleteUser(ctx context.Context, id domain.ID) error {
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		return c.users.Delete(ctx, string(id))
	})
	if err != nil {
		return remote(err)
	}
	return nil
}

func (c *PgConnector) Subscribe(ctx context.Context) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, remote(commonerrors.ErrSubscribeFailed.WithCause(err))
	}
	sub, err := c.broker.Subscribe()
	if err != nil {
		return nil, remote(commonerrors.ErrSubscribeFailed.WithCause(err))
	}
	return sub, nil
}

func remote(err error) error {
	return commonerrors.ErrRemoteStore.WithCause(err)
}
