// Package app initializes and runs the URL shortener.
// It configures logging, storage, metrics, the HTTP front-end and the optional
// Discord bot, and handles graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/linkshrt/internal/chatbot"
	"github.com/patric-chuzhbe/linkshrt/internal/config"
	"github.com/patric-chuzhbe/linkshrt/internal/db/sqldb"
	"github.com/patric-chuzhbe/linkshrt/internal/logger"
	"github.com/patric-chuzhbe/linkshrt/internal/metrics"
	"github.com/patric-chuzhbe/linkshrt/internal/router"
	"github.com/patric-chuzhbe/linkshrt/internal/service"
)

const (
	shutdownTimeout    = 10 * time.Second
	schemaSetupTimeout = 30 * time.Second
	connMaxLifetime    = 5 * time.Minute
	readHeaderTimeout  = 5 * time.Second
)

type storage interface {
	EnsureSchema(ctx context.Context, optionsProto ...sqldb.InitOption) error
	Exists(ctx context.Context, token string) (bool, error)
	Insert(ctx context.Context, originalURL, token string) error
	Lookup(ctx context.Context, token string) (string, error)
	Ping(ctx context.Context) error
	Close() error
}

type bot interface {
	Run(ctx context.Context) error
	Close() error
}

// App holds the configuration, the HTTP handler, the storage backend and the
// chat bot needed to run the URL shortener service.
type App struct {
	cfg         *config.Config
	db          storage
	httpHandler http.Handler
	bot         bot
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - connecting to the database and ensuring its schema
// - setting up the service, metrics and router
// - setting up the Discord bot when enabled
func New() (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New()
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.db, err = newStorage(app.cfg)
	if err != nil {
		return nil, err
	}

	schemaCtx, cancel := context.WithTimeout(context.Background(), schemaSetupTimeout)
	defer cancel()
	if err := app.db.EnsureSchema(schemaCtx); err != nil {
		return nil, errors.Join(err, app.db.Close())
	}
	logger.Log.Infoln("database schema is up to date", "type", app.cfg.Database.Type)

	m := metrics.New()
	shortener := service.New(
		app.db,
		app.cfg.Shortener.BaseURL,
		service.WithMaxGenerateAttempts(app.cfg.Shortener.MaxGenerateAttempts),
		service.WithReservedTokens(router.ReservedPaths...),
		service.WithRecorder(m),
	)

	app.httpHandler = router.New(shortener, router.WithMetrics(m))

	if app.cfg.Discord.Enabled {
		app.bot, err = chatbot.New(
			app.cfg.Discord.BotToken,
			app.cfg.Discord.GuildID.String(),
			shortener,
			chatbot.WithWorkers(app.cfg.Discord.Workers),
			chatbot.WithCommandTimeout(app.cfg.Database.QueryTimeout.Duration()*2),
		)
		if err != nil {
			return nil, errors.Join(err, app.db.Close())
		}
	}

	return app, nil
}

func newStorage(cfg *config.Config) (*sqldb.SQLDB, error) {
	dsn, err := sqldb.BuildDSN(cfg.Database.Type, sqldb.ConnectionSettings{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Name:     cfg.Database.Name,
	})
	if err != nil {
		return nil, err
	}

	return sqldb.New(sqldb.Options{
		Dialect:         cfg.Database.Type,
		DSN:             dsn,
		QueryTimeout:    cfg.Database.QueryTimeout.Duration(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: connMaxLifetime,
	})
}

// Run starts the HTTP server and the bot with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr())

	server := &http.Server{
		Addr:              a.cfg.RunAddr(),
		Handler:           a.httpHandler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	if a.bot != nil {
		if err := a.bot.Run(ctx); err != nil {
			logger.Log.Errorln("unable to start the discord bot", zap.Error(err))
			a.bot = nil
		}
	}

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Closing connections and exiting...")
		return a.shutdown(server)

	case err := <-serverErrCh:
		return errors.Join(fmt.Errorf("server error: %w", err), a.shutdown(server))
	}
}

func (a *App) shutdown(server *http.Server) error {
	var errs []error

	if a.bot != nil {
		if err := a.bot.Close(); err != nil {
			errs = append(errs, fmt.Errorf("discord bot shutdown error: %w", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database close error: %w", err))
	}

	return errors.Join(errs...)
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}
