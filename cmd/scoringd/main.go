// Package main implements scoringd, the scoring RPC service.
//
// scoringd accepts JSON method calls on POST /method, authenticates them,
// validates their arguments and answers from a scoring backend that reads
// through a retrying store client.
//
// Architecture:
//
//	┌───────────────────────────────────────────┐
//	│                 scoringd                  │
//	├───────────────────────────────────────────┤
//	│  HTTP API:                                │
//	│    POST /method   - method calls          │
//	│    GET  /health   - store reachability    │
//	│    GET  /metrics  - Prometheus metrics    │
//	├───────────────────────────────────────────┤
//	│  api.Router ─► scoring.Service            │
//	│                   │                       │
//	│             storage.Client (retrying)     │
//	│                   │                       │
//	│         memory | redis | storenode        │
//	└───────────────────────────────────────────┘
//
// Settings come from the environment and an optional .env file; see
// internal/config. --port and --log override SCORING_LISTEN and
// SCORING_LOG_FILE.
//
// Example usage:
//
//	scoringd --port 8080
//	scoringd token --login h&f --account horns&hoofs
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dreamware/scoring/internal/api"
	"github.com/dreamware/scoring/internal/auth"
	"github.com/dreamware/scoring/internal/config"
	"github.com/dreamware/scoring/internal/health"
	"github.com/dreamware/scoring/internal/logging"
	"github.com/dreamware/scoring/internal/metrics"
	"github.com/dreamware/scoring/internal/retry"
	"github.com/dreamware/scoring/internal/scoring"
	"github.com/dreamware/scoring/internal/storage"
)

const shutdownTimeout = 5 * time.Second

var (
	port    int
	logFile string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:           "scoringd",
	Short:         "Scoring RPC service",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print the auth token for a login",
	Args:  cobra.NoArgs,
	RunE:  runToken,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.Flags().IntVarP(&port, "port", "p", 0, "listen port, overrides SCORING_LISTEN")
	rootCmd.Flags().StringVarP(&logFile, "log", "l", "", "log file, overrides SCORING_LOG_FILE")

	tokenCmd.Flags().String("login", "", "login to sign")
	tokenCmd.Flags().String("account", "", "account to sign")
	_ = tokenCmd.MarkFlagRequired("login")
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "scoringd:", err)
		os.Exit(1)
	}
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	login, _ := cmd.Flags().GetString("login")
	account, _ := cmd.Flags().GetString("account")

	a := auth.New(cfg.Salt, cfg.AdminLogin, cfg.AdminSalt)
	fmt.Fprintln(cmd.OutOrStdout(), a.Token(account, login))
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Listen = fmt.Sprintf(":%d", port)
	}
	if cmd.Flags().Changed("log") {
		cfg.LogFile = logFile
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logging.Close(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openBackend(ctx, cfg.Store)
	if err != nil {
		log.WithError(err).Error("store unavailable")
		return err
	}
	store := storage.NewClient(backend, storage.Options{
		Policy: retry.Policy{
			MaxAttempts: cfg.Store.MaxAttempts,
			MinDelay:    cfg.Store.MinDelay,
			MaxDelay:    cfg.Store.MaxDelay,
			Factor:      retry.DefaultFactor,
			Jitter:      cfg.Store.Jitter,
		},
		CacheAttempts: cfg.Store.CacheAttempts,
		MaxQPS:        cfg.Store.MaxQPS,
		Serialize:     cfg.Store.Serialize,
		Logger:        log,
	})
	defer store.Close()

	monitor := health.NewMonitor(cfg.Store.HealthInterval, log)
	monitor.Register("store", store.Ping)
	monitor.SetOnChange(func(_ string, healthy bool) {
		metrics.SetStoreHealthy(healthy)
	})
	go monitor.Start(ctx)
	defer monitor.Stop()

	router := api.NewRouter(
		auth.New(cfg.Salt, cfg.AdminLogin, cfg.AdminSalt),
		scoring.NewService(store, log),
		log,
	)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           newServer(router, monitor, log).routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return serve(ctx, srv, log)
}

// serve runs srv until ctx is done, then drains it.
func serve(ctx context.Context, srv *http.Server, log logrus.FieldLogger) error {
	errc := make(chan error, 1)
	go func() {
		log.Infof("Starting server at %s", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server shutdown")
	}
	log.Info("Stopped server")
	return nil
}

func openBackend(ctx context.Context, cfg config.Store) (storage.Backend, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		return storage.NewRedisBackend(ctx, storage.RedisOptions{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			Timeout:  cfg.Timeout,
		})
	case config.BackendNode:
		return storage.NewNodeBackend(ctx, storage.NodeOptions{
			Addr:    cfg.Addr,
			Shards:  cfg.Shards,
			Timeout: cfg.Timeout,
		})
	case config.BackendMemory, "":
		return storage.NewMemoryBackend(nil), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
