package cli

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"syscall"

	"github.com/aretw0/jackpatch"
	"github.com/aretw0/jackpatch/internal/config"
	"github.com/aretw0/jackpatch/internal/logging"
	"github.com/aretw0/jackpatch/internal/presentation/tui"
	httpAdapter "github.com/aretw0/jackpatch/pkg/adapters/http"
	"github.com/aretw0/jackpatch/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/term"
)

// RunOptions contains all the configuration for the Run command.
// Non-empty fields override the configuration file.
type RunOptions struct {
	ConfigPath string
	Project    string
	Backend    string
	Store      string
	Listen     string
	LogLevel   string
	Quiet      bool
}

func (o RunOptions) apply(cfg *config.Config) {
	if o.Project != "" {
		cfg.Project = o.Project
	}
	if o.Backend != "" {
		cfg.Backend = o.Backend
	}
	if o.Store != "" {
		cfg.Store = o.Store
	}
	if o.Listen != "" {
		cfg.Listen = o.Listen
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
}

// Execute runs the patcher until interrupted or until the JACK server stops.
// SIGUSR1 saves the current patch.
func Execute(ctx context.Context, opts RunOptions, out io.Writer) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	opts.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.New(level, cfg.LogFormat)

	if !opts.Quiet && term.IsTerminal(int(os.Stdout.Fd())) {
		tui.PrintBanner(out, jackpatch.Version)
	}

	sc := NewSignalContext(ctx)
	defer sc.Cancel()

	backend, err := newBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	store, closeStore, err := newStore(sc, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	p := jackpatch.New(backend, store,
		jackpatch.WithLogger(logger),
		jackpatch.WithLifecycleHooks(observability.Chain(observability.LogHooks(logger), metrics.Hooks())),
		jackpatch.WithReporter(logReporter{logger: logger}),
		jackpatch.WithConnectDelay(cfg.ConnectDelay),
		jackpatch.WithDirtyDelay(cfg.DirtyDelay),
	)

	// Save outcomes are logged by the engine.
	OnSignal(sc, syscall.SIGUSR1, func() {
		_ = p.Save(sc)
	})

	if cfg.Listen != "" {
		h := httpAdapter.NewHandler(p, httpAdapter.WithGatherer(reg), httpAdapter.WithLogger(logger))
		go func() {
			logger.Info("Control API listening", "addr", cfg.Listen)
			if err := httpAdapter.ListenAndServe(sc, cfg.Listen, h); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Control API failed", "error", err)
				sc.Cancel()
			}
		}()
	}

	if cfg.Project != "" {
		go func() {
			_ = p.Open(sc, cfg.Project)
		}()
	}

	err = handleExecutionError(p.Run(sc), logger)
	if err == nil && !opts.Quiet {
		if sig := sc.Signal(); sig != nil {
			printSystemMessage(out, "Stopped by %s.", sig)
		}
	}
	return err
}
