package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wilkie/gutenberg/internal/api"
	"github.com/wilkie/gutenberg/internal/pipeline"
	"github.com/wilkie/gutenberg/internal/state"
	"github.com/wilkie/gutenberg/internal/style"
)

func runServe(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	cfg := *env.Cfg

	st, err := style.Load(cfg.Build.StylesDir, cfg.Build.DefaultStyle, env.Log)
	if err != nil {
		return err
	}

	orch := pipeline.NewOrchestrator(cfg, env.Hyphenators, env.Log)
	orch.Start(ctx)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.NewServer(orch, env.Hyphenators, st, env.Log, cfg),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		env.Log.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		env.Log.Info("Shutting down")
	case err = <-errCh:
		if err != nil {
			err = fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = multierr.Append(err, httpServer.Shutdown(shutdownCtx))
	orch.Stop()
	return err
}
