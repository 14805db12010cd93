// Package server parses arena server flags and launches the HTTP API.
package server

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/louisbranch/emberforge/internal/arena/service"
	"github.com/louisbranch/emberforge/internal/auth"
	entrypoint "github.com/louisbranch/emberforge/internal/platform/cmd"
	"github.com/louisbranch/emberforge/internal/platform/timeouts"
	api "github.com/louisbranch/emberforge/internal/server"
	"github.com/louisbranch/emberforge/internal/storage/sqlite"
)

// Config holds arena server configuration.
type Config struct {
	Addr   string `env:"EMBERFORGE_SERVER_ADDR" envDefault:":8080"`
	DBPath string `env:"EMBERFORGE_DB_PATH"     envDefault:"emberforge.db"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "The sqlite database path")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the arena HTTP API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceArena, func(ctx context.Context) error {
		return serve(ctx, cfg)
	})
}

// serve wires the store, verifier, and HTTP server, then runs until the
// context ends. On cancellation it performs a bounded shutdown so
// in-flight requests are drained before hard close.
func serve(ctx context.Context, cfg Config) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		return errors.New("listen address is required")
	}

	store, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}()

	verifier, err := auth.LoadVerifierFromEnv(nil)
	if err != nil {
		return err
	}

	arena := service.New(store, nil, nil)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.New(arena, verifier, nil).Routes(),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	serveErr := make(chan error, 1)
	log.Printf("arena listening on %s", cfg.Addr)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}
