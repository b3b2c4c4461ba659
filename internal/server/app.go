// Package server wires the PromptVision components together and runs the
// HTTP front end and the gRPC health endpoint until a shutdown signal.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/PromptVision-AI/promptvision-app/internal/dbx"
	"github.com/PromptVision-AI/promptvision-app/internal/logging"
	"github.com/PromptVision-AI/promptvision-app/internal/server/authprovider"
	"github.com/PromptVision-AI/promptvision-app/internal/server/config"
	"github.com/PromptVision-AI/promptvision-app/internal/server/media"
	"github.com/PromptVision-AI/promptvision-app/internal/server/pipeline"
	"github.com/PromptVision-AI/promptvision-app/internal/server/repositories/repomanager"
	"github.com/PromptVision-AI/promptvision-app/internal/server/services"
	"github.com/PromptVision-AI/promptvision-app/internal/server/session"
	"github.com/PromptVision-AI/promptvision-app/internal/server/web"

	gs "github.com/PromptVision-AI/promptvision-app/internal/server/grpc"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	web    *web.Server
	health *gs.HealthServer
}

// NewApp validates c and builds every process-wide client once.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	dialect, err := c.Dialect()
	if err != nil {
		return nil, err
	}

	db, err := dbx.Open(dialect, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewRepositoryManager(dialect, logger)
	if c.AutoMigrate {
		if err := rm.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("db migration error: %w", err)
		}
	}

	provider, err := newProvider(c, db, rm, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	gateway, err := media.NewS3Gateway(ctx, media.Options{
		Region:     c.S3Region,
		AccessKey:  c.S3RootUser,
		SecretKey:  c.S3RootPassword,
		Endpoint:   c.S3BaseEndpoint,
		Bucket:     c.S3Bucket,
		PublicURL:  c.S3PublicURL,
		RootFolder: c.MediaRootFolder,
	}, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("media init error: %w", err)
	}

	store := session.NewStore(db, rm, c.SessionTTL)
	sessions := session.NewManager(store, c.SessionCookieName, c.SessionCookieSecure, logger)

	identity := services.NewIdentityService(db, rm, provider, store, logger)
	conversations := services.NewConversationService(db, rm, gateway, pipeline.NewClient(c.PipelineURL, c.PipelineTimeout), logger)
	files := services.NewFileService(db, rm, gateway, logger)

	app := &App{
		config: c,
		logger: logger,
		db:     db,
		web: web.NewServer(web.Deps{
			Identity:      identity,
			Conversations: conversations,
			Files:         files,
			Sessions:      sessions,
			Logger:        logger,
			StaticDir:     c.StaticDir,
		}),
	}
	if c.GRPCAddr != "" {
		app.health = gs.NewHealthServer(c.GRPCAddr, db, 0, logger)
	}
	return app, nil
}

func newProvider(c *config.Config, db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger) (authprovider.Provider, error) {
	switch c.AuthProvider {
	case config.AuthProviderGoTrue:
		return authprovider.NewGoTrue(c.GoTrueURL, c.GoTrueAPIKey, &http.Client{Timeout: 30 * time.Second}, logger), nil
	case config.AuthProviderLocal:
		return authprovider.NewLocal(db, rm, []byte(c.SecretKey), c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration, logger), nil
	}
	return nil, fmt.Errorf("unknown auth provider %q", c.AuthProvider)
}

// Handler exposes the HTTP handler chain.
func (app *App) Handler() http.Handler { return app.web.Handler() }

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.HTTPAddr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(context.Background(), "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(shutdownCtx, "HTTP shutdown failed", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.health.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until a shutdown signal arrives or ctx is cancelled, then
// closes the database pool.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.health != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close failed", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}
