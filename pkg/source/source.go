// Package source loads relation records from the systems that own them:
// local files, the CMDB HTTP API, its PostgreSQL database or an S3 bucket.
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-graphview/pkg/config"
	"github.com/dd0wney/cluso-graphview/pkg/logging"
	"github.com/dd0wney/cluso-graphview/pkg/metrics"
	"github.com/dd0wney/cluso-graphview/pkg/validation"
	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

// Source supplies raw relation records
type Source interface {
	// Name identifies the source in logs, metrics and errors
	Name() string
	Load(ctx context.Context) ([]visualization.RelationRecord, error)
}

// New creates the source selected by cfg.Kind
func New(ctx context.Context, cfg config.SourceConfig) (Source, error) {
	switch cfg.Kind {
	case config.SourceFile, "":
		return NewFileSource(cfg.Path), nil
	case config.SourceHTTP:
		return NewHTTPSource(cfg.URL, cfg.Timeout), nil
	case config.SourcePostgres:
		return NewPGSource(ctx, cfg.DatabaseURL)
	case config.SourceS3:
		return NewS3Source(ctx, S3Config{
			Bucket:   cfg.Bucket,
			Key:      cfg.Key,
			Region:   cfg.Region,
			Endpoint: cfg.Endpoint,

			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretKey,
		})
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}

// Result is the outcome of a validated load
type Result struct {
	Records  []visualization.RelationRecord
	Skipped  []*validation.RecordError
	Duration time.Duration
}

// Loader validates what a Source returns and records the load
type Loader struct {
	source  Source
	timeout time.Duration
	logger  logging.Logger
	metrics *metrics.Registry
}

// LoaderOption configures a Loader
type LoaderOption func(*Loader)

// WithLogger sets the logger
func WithLogger(logger logging.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMetrics sets the metrics registry
func WithMetrics(registry *metrics.Registry) LoaderOption {
	return func(l *Loader) {
		l.metrics = registry
	}
}

// WithTimeout bounds each load
func WithTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) {
		l.timeout = d
	}
}

// NewLoader wraps src
func NewLoader(src Source, opts ...LoaderOption) *Loader {
	l := &Loader{
		source: src,
		logger: logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With(logging.Component("source"), logging.Source(src.Name()))
	return l
}

// Source returns the wrapped source
func (l *Loader) Source() Source {
	return l.source
}

// Load fetches and validates records. Invalid records are skipped with a
// warning; only a failure to fetch or decode the payload is an error.
func (l *Loader) Load(ctx context.Context) (*Result, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	timer := logging.StartTimer(l.logger, "relations loaded")
	records, err := l.source.Load(ctx)
	if err == nil {
		err = validation.ValidateRecordCount(len(records))
		if err != nil {
			err = wrap("validate", l.source.Name(), fmt.Errorf("%w: %v", ErrTooManyRecords, err))
		}
	}
	if err != nil {
		l.record("error", timer.Elapsed(), 0, 0)
		timer.EndError(err)
		return nil, err
	}

	valid, skipped := validation.FilterRecords(records)
	for _, rejected := range skipped {
		l.logger.Warn("skipping invalid relation record",
			logging.Int("index", rejected.Index),
			logging.String("record_id", rejected.ID),
			logging.Error(rejected.Err))
	}

	res := &Result{Records: valid, Skipped: skipped, Duration: timer.Elapsed()}
	l.record("success", res.Duration, len(valid), len(skipped))
	timer.End(logging.Count(len(valid)), logging.Int("skipped", len(skipped)))
	return res, nil
}

func (l *Loader) record(status string, d time.Duration, records, skipped int) {
	if l.metrics != nil {
		l.metrics.RecordSourceLoad(l.source.Name(), status, d, records, skipped)
	}
}

// Watch loads every interval until ctx is done, passing each successful
// result to fn. Failed loads are logged and retried on the next tick.
func (l *Loader) Watch(ctx context.Context, interval time.Duration, fn func(*Result)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := l.Load(ctx)
			if err != nil {
				continue
			}
			fn(res)
		}
	}
}
