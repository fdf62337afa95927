package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/AlibekovAA/registration-board/internal/common/config"
	commoncrypto "github.com/AlibekovAA/registration-board/internal/common/crypto"
	"github.com/AlibekovAA/registration-board/internal/common/db"
	commonerrors "github.com/AlibekovAA/registration-board/internal/common/errors"
	"github.com/AlibekovAA/registration-board/internal/common/jwtverify"
	"github.com/AlibekovAA/registration-board/internal/common/logger"
	"github.com/AlibekovAA/registration-board/internal/user/changefeed"
	"github.com/AlibekovAA/registration-board/internal/user/connector"
	userrepo "github.com/AlibekovAA/registration-board/internal/user/repository"
	userservice "github.com/AlibekovAA/registration-board/internal/user/service"
)

// RegistryApp holds everything the serve command wires together. The
// broker and listener are created but not started.
type RegistryApp struct {
	Log       *logger.Logger
	Config    config.RegistryConfig
	Pool      *pgxpool.Pool
	Users     *userservice.UserService
	Broker    *changefeed.Broker
	Listener  *changefeed.Listener
	Connector *connector.PgConnector
}

func NewRegistryApp(ctx context.Context) (*RegistryApp, error) {
	log, err := initializeLogger("registry")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.LoadRegistryConfig()
	if err != nil {
		log.Errorf("failed to load config: %v", err)
		return nil, err
	}

	claims, err := jwtverify.ParseAPIKey(cfg.APIKey, []byte(cfg.JWTSecret))
	if err != nil {
		log.Errorf("REGISTRY_API_KEY is not signed by REGISTRY_JWT_SECRET: %v", err)
		return nil, commonerrors.ErrInvalidAPIKey.WithCause(err)
	}
	log.Infof("public api key accepted: role=%s", claims.Role)

	pool, err := db.NewPool(ctx, log, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	users := userservice.NewUserService(userservice.UserServiceDeps{
		Repo:        userrepo.NewPgRepository(pool),
		IDGenerator: commoncrypto.NewUUIDGenerator(),
		Log:         log,
	})

	broker := changefeed.NewBroker(cfg.SubscriberBufferSize, log)
	listener := changefeed.NewListener(changefeed.PoolSource(pool), broker, changefeed.ListenerConfig{
		Channel: cfg.ChangefeedChannel,
	}, log)

	conn := connector.NewPgConnector(users, broker, connector.PgConnectorConfig{
		CircuitBreakerThreshold: cfg.CircuitBreakerThreshold,
		CircuitBreakerTimeout:   cfg.CircuitBreakerTimeout,
		CircuitBreakerReset:     cfg.CircuitBreakerReset,
	}, log)

	return &RegistryApp{
		Log:       log,
		Config:    cfg,
		Pool:      pool,
		Users:     users,
		Broker:    broker,
		Listener:  listener,
		Connector: conn,
	}, nil
}

type MigrateApp struct {
	Log    *logger.Logger
	Config config.MigrateConfig
}

func NewMigrateApp() (*MigrateApp, error) {
	log, err := initializeLogger("migrate")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.LoadMigrateConfig()
	if err != nil {
		log.Errorf("failed to load config: %v", err)
		return nil, err
	}

	return &MigrateApp{Log: log, Config: cfg}, nil
}

func initializeLogger(serviceName string) (*logger.Logger, error) {
	return logger.New(os.Getenv("LOG_DIR"), serviceName, os.Getenv("LOG_LEVEL"))
}
