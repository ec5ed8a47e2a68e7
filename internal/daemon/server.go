package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/lulu/internal/api"
	"github.com/felixgeelhaar/lulu/internal/config"
	"github.com/felixgeelhaar/lulu/internal/metrics"
	"github.com/felixgeelhaar/lulu/internal/queue"
	"github.com/felixgeelhaar/lulu/internal/storage"
	"github.com/felixgeelhaar/lulu/internal/storage/postgres"
	"github.com/felixgeelhaar/lulu/internal/storage/sqlite"
	"github.com/felixgeelhaar/lulu/internal/usage"
)

// Server is the lulu HTTP server with everything it owns
type Server struct {
	app         *api.App
	server      *http.Server
	conn        *queue.Connection
	closeRouter func() error
	logger      *slog.Logger

	janitorCancel context.CancelFunc
}

// ServerConfig holds configuration for creating a new server
type ServerConfig struct {
	Config *config.Config
	Logger *slog.Logger
}

// NewServer opens storage, connects the optional usage queue and wires the
// application behind the HTTP router.
func NewServer(ctx context.Context, cfg ServerConfig) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{logger: logger}

	store, err := OpenStore(ctx, cfg.Config, logger)
	if err != nil {
		return nil, err
	}

	var sink usage.Sink
	if cfg.Config.RabbitMQURL != "" {
		conn, err := queue.NewConnection(cfg.Config.RabbitMQURL, logger)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("connect usage queue: %w", err)
		}
		s.conn = conn
		sink = queue.NewUsagePublisher(conn, logger)
	}

	app, err := api.NewApp(ctx, api.AppConfig{
		Config:    cfg.Config,
		Store:     store,
		UsageSink: sink,
		Metrics:   metrics.New(),
		Logger:    logger,
	})
	if err != nil {
		s.closeQueue()
		store.Close()
		return nil, fmt.Errorf("create app: %w", err)
	}
	s.app = app

	handler, closeRouter := api.NewRouter(app)
	s.closeRouter = closeRouter
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute, // a request may wait out three model attempts
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// OpenStore opens and migrates the configured database
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := db.Migrate(ctx, logger); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return sqlite.NewStore(db), nil

	case config.DriverPostgres:
		if err := postgres.Migrate(ctx, cfg.DatabaseURL, logger); err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		pool, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return postgres.NewStore(pool), nil

	default:
		return nil, fmt.Errorf("unknown database driver: %s", cfg.DatabaseDriver)
	}
}

// App returns the wired application
func (s *Server) App() *api.App {
	return s.app
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start runs the cache janitor and serves HTTP until Shutdown
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.janitorCancel = cancel
	go s.app.Cache.RunJanitor(ctx, s.app.Config.CacheSweepInterval())

	s.logger.Info("starting lulu server",
		"addr", s.server.Addr,
		"provider", s.app.LLM.Provider(),
		"model", s.app.LLM.Model(),
		"database", s.app.Config.DatabaseDriver,
		"usage_queue", s.conn != nil,
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server and releases its resources
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server...")

	if s.janitorCancel != nil {
		s.janitorCancel()
	}

	err := s.server.Shutdown(ctx)

	if cerr := s.closeRouter(); cerr != nil {
		s.logger.Warn("failed to close rate limiter", "error", cerr)
	}
	s.closeQueue()
	if cerr := s.app.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("close store: %w", cerr))
	}
	return err
}

func (s *Server) closeQueue() {
	if s.conn == nil {
		return
	}
	if err := s.conn.Close(); err != nil {
		s.logger.Warn("failed to close usage queue", "error", err)
	}
}
