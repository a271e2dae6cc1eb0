package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/graphsync/internal/engine"
	"github.com/roach88/graphsync/internal/graph"
	"github.com/roach88/graphsync/internal/primary"
)

// session is everything a command needs to talk to both stores.
type session struct {
	cfg      *Config
	primary  *primary.Store
	graph    *graph.Store
	engine   *engine.Engine
	registry *prometheus.Registry
	logger   *slog.Logger
	out      *OutputFormatter
}

// openSession resolves the config, configures logging, opens both stores
// and builds the engine. The caller must call close.
func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	cfg, err := resolveConfig(opts, cmd)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: cfg.slogLevel(),
	}))
	slog.SetDefault(logger)

	logger.Debug("opening primary store", "path", cfg.PrimaryDB)
	ps, err := primary.Open(cfg.PrimaryDB)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open primary database", err)
	}
	logger.Debug("opening graph store", "path", cfg.GraphDB)
	gs, err := graph.Open(cfg.GraphDB)
	if err != nil {
		ps.Close()
		return nil, WrapExitError(ExitCommandError, "failed to open graph database", err)
	}

	registry := prometheus.NewRegistry()
	eng := engine.New(ps, gs,
		engine.WithWorkers(cfg.Workers),
		engine.WithLogger(logger),
		engine.WithMetrics(engine.NewMetrics(registry)),
	)

	return &session{
		cfg:      cfg,
		primary:  ps,
		graph:    gs,
		engine:   eng,
		registry: registry,
		logger:   logger,
		out:      &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()},
	}, nil
}

// close writes metrics if configured and closes both stores.
func (s *session) close() {
	if s.cfg.MetricsOut != "" {
		if err := prometheus.WriteToTextfile(s.cfg.MetricsOut, s.registry); err != nil {
			s.logger.Error("failed to write metrics", "path", s.cfg.MetricsOut, "error", err)
		}
	}
	if err := s.graph.Close(); err != nil {
		s.logger.Error("error closing graph database", "error", err)
	}
	if err := s.primary.Close(); err != nil {
		s.logger.Error("error closing primary database", "error", err)
	}
}

// signalContext derives a context from the command's that is cancelled on
// SIGINT or SIGTERM. In-flight items finish; no new ones start.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// engineFailure converts an aborted engine operation to an ExitError.
func engineFailure(out *OutputFormatter, op string, err error) error {
	code := string(engine.CodeOf(err))
	if code == "" {
		code = ErrCodeAborted
	}
	if errors.Is(err, context.Canceled) {
		code = "CANCELLED"
	}
	_ = out.Error(code, fmt.Sprintf("%s aborted: %v", op, err), nil)
	return WrapExitError(ExitFailure, op+" aborted", err)
}
