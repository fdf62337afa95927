package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AlibekovAA/registration-board/internal/common/bootstrap"
	"github.com/AlibekovAA/registration-board/internal/common/db"
	commonhttp "github.com/AlibekovAA/registration-board/internal/common/http"
	"github.com/AlibekovAA/registration-board/internal/common/server"
	"github.com/AlibekovAA/registration-board/internal/registration"
	registrationhttp "github.com/AlibekovAA/registration-board/internal/registration/http"
	"github.com/AlibekovAA/registration-board/internal/registration/websocket"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "registry",
		Short:         "User registration board with a live list",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the registration page, REST API and websocket endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := bootstrap.NewMigrateApp()
			if err != nil {
				return err
			}
			return db.Migrate(cmd.Context(), app.Log, app.Config.DatabaseURL)
		},
	}
}

func serve(ctx context.Context) error {
	app, err := bootstrap.NewRegistryApp(ctx)
	if err != nil {
		return err
	}
	defer app.Pool.Close()

	log := app.Log
	cfg := app.Config

	hub := websocket.NewHub(cfg.WebSocketMaxSessions, log)
	registryHandler := registrationhttp.NewHandler(registrationhttp.HandlerDeps{
		Users: app.Users,
		Hub:   hub,
		NewController: func(sessionID string) websocket.Controller {
			return registration.NewController(registration.ControllerDeps{
				Connector: app.Connector,
				Log:       log,
			}, registration.ControllerConfig{
				RefreshTimeout: cfg.RequestTimeout,
				SessionID:      sessionID,
			})
		},
		Log: log,
	}, registrationhttp.HandlerConfig{
		APIKey:         cfg.APIKey,
		JWTSecret:      cfg.JWTSecret,
		RequestTimeout: cfg.RequestTimeout,
		Session: websocket.SessionConfig{
			WriteWait:      cfg.WebSocketWriteWait,
			PongWait:       cfg.WebSocketPongWait,
			PingPeriod:     cfg.WebSocketPingPeriod,
			MaxMessageSize: cfg.WebSocketMaxMsgSize,
			SendBufSize:    cfg.WebSocketSendBufSize,
			RequestTimeout: cfg.RequestTimeout,
		},
	})

	limiter := commonhttp.NewMethodRateLimiter()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", commonhttp.HealthHandler(log, func(ctx context.Context) error {
		return app.Pool.Ping(ctx)
	}))
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", limiter.Middleware(registryHandler))

	httpServer := server.NewServer(
		server.NewServerConfig(cfg.HTTPPort, cfg.RequestTimeout),
		commonhttp.BuildBaseHandler(commonhttp.BaseHandlerConfig{AppName: "registry"}, log, mux),
	)

	feedCtx, stopFeed := context.WithCancel(ctx)
	defer stopFeed()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.Listener.Run(feedCtx)
		return nil
	})
	g.Go(func() error {
		defer stopFeed()
		return server.StartWithGracefulShutdownAndHooks(gctx, httpServer, log, "registry", []server.ShutdownHook{
			registrationhttp.ShutdownHook(hub),
			func(context.Context) error {
				stopFeed()
				app.Broker.Close()
				return nil
			},
			func(context.Context) error {
				limiter.Stop()
				return nil
			},
		})
	})

	return g.Wait()
}
