// Package main implements storenode, a sharded in-memory key/value node that
// scoringd can use as its remote store.
//
// A node owns any number of shards and creates each one the first time a
// request names it. Clients pick the shard for a key with
// storage.ShardForKey, so every client configured with the same shard count
// agrees on placement.
//
// Architecture:
//
//	┌─────────────────────────────────────────┐
//	│               storenode                 │
//	├─────────────────────────────────────────┤
//	│  HTTP API:                              │
//	│    /health        - liveness            │
//	│    /info          - node and shards     │
//	│    /metrics       - Prometheus metrics  │
//	│    /shard/{id}/*  - shard operations    │
//	├─────────────────────────────────────────┤
//	│  shard.Set ─► shard.Shard ─► MemoryStore│
//	└─────────────────────────────────────────┘
//
// Configuration comes from NODE_ID, NODE_LISTEN, NODE_LOG_FILE and
// NODE_LOG_LEVEL, optionally seeded from a .env file.
//
// Example usage:
//
//	NODE_ID=node-1 NODE_LISTEN=:8081 storenode
//	STORE_BACKEND=node STORE_ADDR=http://127.0.0.1:8081 scoringd
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

	"github.com/spf13/cobra"

	"github.com/dreamware/scoring/internal/config"
	"github.com/dreamware/scoring/internal/logging"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "storenode",
	Short:         "Sharded key/value store node",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "storenode:", err)
		os.Exit(1)
	}
}

func run(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadNode(envFile)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logging.Close(log)

	node := NewNode(cfg.ID, log)
	log.WithField("node", cfg.ID).Info("node initialized (shards will be created on demand)")

	s := &http.Server{
		Addr:              cfg.Listen,
		Handler:           node.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.WithField("node", cfg.ID).Infof("listening on %s", cfg.Listen)
		errc <- s.ListenAndServe()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server shutdown")
	}
	log.Info("node stopped")
	return nil
}
