package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"syscall"

	"github.com/bassista/go_relboard/internal/api/middleware"
	route "github.com/bassista/go_relboard/internal/api/route"
	appctx "github.com/bassista/go_relboard/internal/app"
	"github.com/bassista/go_relboard/internal/config"
	"github.com/bassista/go_relboard/internal/logger"
	"github.com/bassista/go_relboard/internal/remote"
	"github.com/bassista/go_relboard/internal/scheduler"
	"github.com/gin-gonic/gin"

	"github.com/enrichman/httpgrace"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithComponent("main").Fatalf("configuration error: %v", err)
	}

	// LOG_LEVEL wins over the configured level
	if err := logger.SetLevel(logLevel(cfg)); err != nil {
		logger.WithComponent("main").Warnf("invalid log level '%s', using 'info': %v", cfg.Misc.LogLevel, err)
		_ = logger.SetLevel("info")
	}
	logger.WithComponent("main").Debugf("log level set to: %s", logger.Logger.GetLevel().String())
	logger.WithComponent("main").Infof("store backend: %s, mode: %s", cfg.Store.Backend, cfg.Store.Mode)
	logger.WithComponent("main").Infof("App will run on port: %d", cfg.Server.Port)

	app, err := buildApp(cfg)
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init app: %v", err)
	}
	defer app.Shutdown()

	if err := app.StartWatchers(); err != nil {
		logger.WithComponent("main").Fatalf("cannot start watchers: %v", err)
	}

	gin.SetMode(cfg.Misc.GinMode)
	gin.DefaultWriter = logger.Logger.Writer()
	gin.DefaultErrorWriter = logger.Logger.Writer()

	r := newEngine(app)
	srv := createGraceHttpServer(app.BaseCtx, "main-server", app.Config.Server, r)

	if err := srv.ListenAndServe(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithComponent("main").Fatal(err)
	}
}

func logLevel(cfg *config.Config) string {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		return level
	}
	return cfg.Misc.LogLevel
}

// buildApp creates the remote client, the optional release source and the
// application container. One limiter is shared by every GitHub call.
func buildApp(cfg *config.Config) (*appctx.App, error) {
	limiter := remote.NewLimiterFromConfig(cfg.Store)

	client, err := remote.NewClientFromConfig(cfg.Store, limiter)
	if err != nil {
		return nil, fmt.Errorf("cannot init remote client: %w", err)
	}

	var source scheduler.ReleaseSource
	if cfg.Poller.Enabled {
		releases, err := remote.NewReleaseSourceFromConfig(cfg.Store, cfg.Poller, limiter)
		if err != nil {
			return nil, fmt.Errorf("cannot init release source: %w", err)
		}
		source = releases
	}

	return appctx.New(cfg, client, source)
}

func newEngine(app *appctx.App) *gin.Engine {
	r := gin.New()
	r.Use(middleware.HoneybadgerMiddleware(logger.Logger))
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware(app.Config.Server.CORSAllowedOrigins))
	route.SetupRoutes(r, app)
	return r
}

func createGraceHttpServer(ctx context.Context, name string, serverConfig config.ServerConfig, r *gin.Engine) *httpgrace.Server {
	slogLogger := slog.New(slog.NewTextHandler(logger.Logger.Writer(), nil))

	srv := httpgrace.NewServer(r,
		httpgrace.WithTimeout(serverConfig.ShutDownTimeout),
		httpgrace.WithSignals(syscall.SIGTERM, syscall.SIGINT),
		httpgrace.WithLogger(slogLogger),
		httpgrace.WithBeforeShutdown(func() {
			logger.WithComponent("http").Infof("Shutting down %s server....", name)
		}),
		httpgrace.WithServerOptions(
			httpgrace.WithReadTimeout(serverConfig.ReadTimeout),
			httpgrace.WithWriteTimeout(serverConfig.WriteTimeout),
			httpgrace.WithIdleTimeout(serverConfig.IdleTimeout),
			func(srv *http.Server) {
				srv.BaseContext = func(_ net.Listener) context.Context {
					return ctx
				}
			},
			func(srv *http.Server) {
				srv.ErrorLog = log.New(logger.Logger.Writer(), fmt.Sprintf("[%s] ", name), log.LstdFlags)
			},
		),
	)
	return srv
}
