package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MrEthical07/trackauth"
	"github.com/MrEthical07/trackauth/internal/envconfig"
	"github.com/MrEthical07/trackauth/internal/httpapi"
	"github.com/MrEthical07/trackauth/notify"
	"github.com/MrEthical07/trackauth/store"
	"github.com/MrEthical07/trackauth/store/memory"
	"github.com/MrEthical07/trackauth/store/pgstore"
	"github.com/MrEthical07/trackauth/store/redisstore"
)

var outboxPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP authentication server",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := envconfig.Load()
		if err != nil {
			return err
		}
		logger, err := envconfig.NewLogger(settings.LogLevel, settings.AppEnv)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		accounts, rdb, cleanup, err := openStore(ctx, settings)
		if err != nil {
			return err
		}
		defer cleanup()

		sink, closeSink, err := openSink(logger)
		if err != nil {
			return err
		}
		defer closeSink()

		b := trackauth.New().
			WithConfig(settings.EngineConfig()).
			WithAccounts(accounts).
			WithNotifier(sink).
			WithLogger(logger)
		if rdb != nil {
			b = b.WithRedis(rdb)
		}
		engine, err := b.Build()
		if err != nil {
			return err
		}
		defer engine.Close()

		var apiOpts []httpapi.Option
		if settings.TrustProxy {
			apiOpts = append(apiOpts, httpapi.WithTrustedProxy())
		}
		server := &http.Server{
			Addr:              settings.HTTPAddr,
			Handler:           httpapi.New(engine, logger, apiOpts...).Router(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		logger.Info("server started",
			zap.String("addr", settings.HTTPAddr),
			zap.String("store", settings.Store),
			zap.String("env", settings.AppEnv),
			zap.Bool("trust_proxy", settings.TrustProxy),
		)

		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

// openStore connects the configured account backend. The redis client, when
// present, also backs the login throttle.
func openStore(ctx context.Context, s *envconfig.Settings) (store.Accounts, redis.UniversalClient, func(), error) {
	switch s.Store {
	case envconfig.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: s.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return redisstore.New(client, ""), client, func() { _ = client.Close() }, nil

	case envconfig.StorePostgres:
		pool, err := pgxpool.New(ctx, s.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		pg := pgstore.New(pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("migrate accounts: %w", err)
		}
		return pg, nil, pool.Close, nil

	default:
		return memory.New(), nil, func() {}, nil
	}
}

// openSink appends notifications to --outbox as JSON lines, or logs them when
// no outbox is set.
func openSink(logger *zap.Logger) (notify.Sink, func(), error) {
	if outboxPath == "" {
		return notify.LogSink{Logger: logger}, func() {}, nil
	}
	f, err := os.OpenFile(outboxPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open outbox: %w", err)
	}
	return notify.NewJSONWriterSink(f), func() { _ = f.Close() }, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&outboxPath, "outbox", "", "Append outgoing emails to this file as JSON lines instead of logging them")
}
