package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/moviepolls/auth"
	"github.com/danielhkuo/moviepolls/cliparse"
	"github.com/danielhkuo/moviepolls/client"
	"github.com/danielhkuo/moviepolls/db"
	"github.com/danielhkuo/moviepolls/middleware"
	"github.com/danielhkuo/moviepolls/router"
	"github.com/danielhkuo/moviepolls/source"
)

func main() {
	var err error

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	if cfg.VoterSecret == "" {
		cfg.VoterSecret, err = auth.GenerateSecret()
		if err != nil {
			slog.Error("secret generation failed", "error", err)
			os.Exit(1)
		}
		slog.Warn("VOTER_TOKEN_SECRET not set, voter tokens will not survive a restart")
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		cancel()
	}()

	switch cfg.Mode {
	case cliparse.ModeBrowse:
		err = runBrowse(ctx, cfg)
	default:
		err = runServe(ctx, cfg)
	}
	cancel()

	if err != nil {
		slog.Error("exiting", "mode", cfg.Mode, "error", err)
		os.Exit(1)
	}
}

// openBackend builds the poll catalogue: SQL when a database URL is set,
// in-memory otherwise, seeded when empty and wrapped in simulated latency
// and vote failures.
func openBackend(ctx context.Context, cfg cliparse.Config) (source.Backend, func(), error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var (
		backend source.Backend
		closeFn = func() {}
	)

	if cfg.DatabaseURL != "" {
		conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		closeFn = func() { conn.Close() }
		slog.Info("Database schema ready", "type", cfg.DatabaseType)

		sqlBackend := db.NewBackend(conn)
		n, err := sqlBackend.Count(ctx)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		if n == 0 && cfg.SeedPolls > 0 {
			seeded, err := db.Seed(ctx, conn, source.Generate(cfg.SeedPolls, rng))
			if err != nil {
				closeFn()
				return nil, nil, err
			}
			slog.Info("seeded catalogue", "polls", seeded)
		} else {
			slog.Info("catalogue loaded", "polls", n)
		}
		backend = sqlBackend
	} else {
		mem := source.NewMemory(source.Generate(cfg.SeedPolls, rng))
		slog.Info("in-memory catalogue ready", "polls", mem.Len())
		backend = mem
	}

	if cfg.VoteFailureRate > 0 || cfg.SourceLatency > 0 {
		backend = source.NewChaos(backend,
			source.WithLatency(cfg.SourceLatency, 2*cfg.SourceLatency),
			source.WithFailureRate(cfg.VoteFailureRate),
		)
		slog.Info("simulating network", "latency", cfg.SourceLatency, "vote_failure_rate", cfg.VoteFailureRate)
	}

	return backend, closeFn, nil
}

func runServe(ctx context.Context, cfg cliparse.Config) error {
	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	defer closeBackend()

	// Create server
	server := http.Server{
		Handler:           middleware.CORS(router.NewRouter(backend, cfg)),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	slog.Info("Server closed", "error", err)
	return err
}

func runBrowse(ctx context.Context, cfg cliparse.Config) error {
	var src source.PollSource

	if cfg.APIURL != "" {
		c, err := client.New(cfg.APIURL)
		if err != nil {
			return err
		}
		token, err := c.Register(ctx)
		if err != nil {
			return err
		}
		src = c.ForVoter(token)
		slog.Info("browsing remote catalogue", "api", cfg.APIURL)
	} else {
		backend, closeBackend, err := openBackend(ctx, cfg)
		if err != nil {
			return fmt.Errorf("backend: %w", err)
		}
		defer closeBackend()

		token, err := auth.GenerateVoterToken(cfg.VoterSecret)
		if err != nil {
			return err
		}
		src = backend.ForVoter(token)
	}

	return newConsole(ctx, src, cfg, os.Stdout).run(os.Stdin)
}
