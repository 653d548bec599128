package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-result-service/internal/app"
	"quiz-result-service/internal/config"
	"quiz-result-service/internal/engine"
	"quiz-result-service/internal/infra/memory"
	"quiz-result-service/internal/infra/postgres"
	infraredis "quiz-result-service/internal/infra/redis"
	transport "quiz-result-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the test server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// backends holds the optional external connections; nil fields fall back to memory.
type backends struct {
	redis *redis.Client
	pool  *pgxpool.Pool
	db    *bun.DB
}

func (b backends) Close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
	if b.db != nil {
		_ = b.db.Close()
	}
}

func connect(ctx context.Context, cfg config.Config) (backends, error) {
	var b backends
	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return backends{}, err
		}
		b.pool = pool
		b.db = openBunDB(cfg.Postgres.URL)
	}
	return b, nil
}

func (b backends) testLoader() memory.TestLoader {
	if b.pool != nil {
		return postgres.NewTestLoader(b.pool)
	}
	return memory.NewStaticTestLoader(sampleTests())
}

func newLogger(cfg config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel()}))
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	loader := b.testLoader()
	testsTTL := config.TTLDuration(cfg.Tests.TTL, 10*time.Minute)
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	sessionTTL := config.TTLDuration(cfg.Sessions.TTL, 30*time.Minute)

	var tests app.TestRepository
	var sessions app.SessionRepository
	if b.redis != nil {
		tests = infraredis.NewTestRepository(b.redis, loader, testsTTL)
		sessions = infraredis.NewSessionStore(b.redis, redisTTL)
	} else {
		tests = memory.NewTestRepository(loader, testsTTL)
		sessions = memory.NewSessionStore(sessionTTL)
	}

	var tallies engine.TallyStore
	switch {
	case b.redis != nil:
		tallies = infraredis.NewTallyStore(b.redis)
	case b.pool != nil:
		tallies = postgres.NewTallyStore(b.pool)
	default:
		tallies = memory.NewTallyStore()
	}

	var responses app.ResponseStore = memory.NewResponseStore()
	if b.db != nil {
		responses = postgres.NewResponseStore(b.db)
	}

	service := app.NewTestService(sessions, tests, tallies, responses, logger)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(service, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting test service", "port", finalPort,
			"redis", b.redis != nil, "postgres", b.pool != nil)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
