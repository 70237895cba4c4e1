package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dd0wney/cluso-graphview/pkg/config"
	"github.com/dd0wney/cluso-graphview/pkg/graphview"
	"github.com/dd0wney/cluso-graphview/pkg/logging"
	"github.com/dd0wney/cluso-graphview/pkg/metrics"
	"github.com/dd0wney/cluso-graphview/pkg/render"
	"github.com/dd0wney/cluso-graphview/pkg/source"
)

// app carries what every command needs: configuration, logger and metrics
type app struct {
	cfg     *config.Config
	logger  logging.Logger
	metrics *metrics.Registry
	closers []io.Closer
}

// newApp loads the configuration and builds the logger. With toFile the log
// goes to cfg.LogFile (or nowhere) so the terminal stays clean.
func newApp(toFile bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	level := logging.ParseLevel(cfg.LogLevel)

	a := &app{cfg: cfg, metrics: metrics.NewRegistry()}
	switch {
	case toFile && cfg.LogFile == "":
		a.logger = logging.NewNopLogger()
	case cfg.LogFile != "":
		logger, f, err := logging.OpenFile(cfg.LogFile, level)
		if err != nil {
			return nil, err
		}
		a.logger = logger
		a.closers = append(a.closers, f)
	default:
		a.logger = logging.NewStderrLogger(level)
	}
	logging.SetDefaultLogger(a.logger)
	return a, nil
}

// loader opens the configured relation source
func (a *app) loader(ctx context.Context) (*source.Loader, error) {
	src, err := source.New(ctx, a.cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	if c, ok := src.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}
	return source.NewLoader(src,
		source.WithLogger(a.logger),
		source.WithMetrics(a.metrics),
		source.WithTimeout(a.cfg.Source.Timeout),
	), nil
}

// viewOptions derives view options for a local host
func (a *app) viewOptions(host, surface string) graphview.Options {
	return graphview.Options{
		Model:      a.cfg.ModelOptions(),
		Forces:     a.cfg.Forces,
		Viewport:   a.cfg.Viewport,
		Style:      render.DefaultStyle(),
		ShowLabels: a.cfg.Render.ShowLabels,
		AutoStart:  a.cfg.Scheduler.AutoStart,
		Host:       host,
		Surface:    surface,
		Logger:     a.logger,
		Metrics:    a.metrics,
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			fmt.Fprintf(os.Stderr, "close: %v\n", err)
		}
	}
}
