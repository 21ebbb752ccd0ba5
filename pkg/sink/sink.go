// Package sink writes enriched log events to their destinations.
//
// Database is the batching table sink: producers hand events to a bounded
// queue and return immediately, and one background goroutine projects
// them through the column mapping and bulk-copies them in batches. Write
// failures are retried while they are temporary and otherwise reported to
// the self-log, a zerolog.Logger that never routes back into the pipeline.
//
// Console renders events through zerolog and is used by the bootstrap
// logger before any connection string is known.
//
// Example usage:
//
//	opts, err := sink.OptionsFromConfig(cfg.Sink)
//	if err != nil {
//	    return err
//	}
//	opts.SelfLog = selfLog
//	db := sink.NewDatabase(sink.NewCopyWriter(pool, mapping), mapping, opts)
//	defer db.Close(ctx)
package sink

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Combine-Capital/logtable/pkg/config"
	"github.com/Combine-Capital/logtable/pkg/errors"
	"github.com/Combine-Capital/logtable/pkg/logevent"
	"github.com/Combine-Capital/logtable/pkg/metrics"
	"github.com/Combine-Capital/logtable/pkg/retry"
)

// Defaults used when an option is left at zero.
const (
	DefaultName         = "database"
	DefaultBatchSize    = 50
	DefaultPeriod       = time.Second
	DefaultQueueLimit   = 10000
	DefaultWriteTimeout = 30 * time.Second
)

// RowWriter writes projected rows in one round trip and returns how many
// were stored.
type RowWriter interface {
	WriteRows(ctx context.Context, rows [][]any) (int64, error)
}

// Options configures a Database sink.
type Options struct {
	// Name labels metrics and self-log entries.
	Name string

	BatchSize  int
	Period     time.Duration
	QueueLimit int

	// EagerlyEmitFirstEvent writes the first event as soon as it arrives
	// instead of waiting for a full batch or the first period.
	EagerlyEmitFirstEvent bool

	// MinimumLevel drops events below it before they are queued.
	MinimumLevel logevent.Level

	Retry        retry.Config
	WriteTimeout time.Duration

	SelfLog zerolog.Logger
	Metrics *metrics.SinkMetrics

	// ReportInterval limits how often repeated failures reach the self-log.
	ReportInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Period <= 0 {
		o.Period = DefaultPeriod
	}
	if o.QueueLimit <= 0 {
		o.QueueLimit = DefaultQueueLimit
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	if o.ReportInterval <= 0 {
		o.ReportInterval = 10 * time.Second
	}
	return o
}

// OptionsFromConfig translates the sink section of the configuration.
// SelfLog and Metrics are left for the caller to set.
func OptionsFromConfig(cfg config.SinkConfig) (Options, error) {
	opts := Options{
		BatchSize:             cfg.BatchSize,
		Period:                cfg.Period,
		QueueLimit:            cfg.QueueLimit,
		EagerlyEmitFirstEvent: cfg.EagerlyEmitFirstEvent,
		MinimumLevel:          logevent.Verbose,
		SelfLog:               zerolog.Nop(),
		Retry: retry.Config{
			InitialDelay: cfg.InitialInterval,
			MaxDelay:     cfg.MaxInterval,
			Policy:       retry.PolicyTemporary,
		},
	}
	if cfg.MaxRetries >= 0 {
		opts.Retry.MaxAttempts = uint(cfg.MaxRetries) + 1
	}

	if cfg.MinimumLevel != "" {
		level, err := logevent.ParseLevel(cfg.MinimumLevel)
		if err != nil {
			return Options{}, errors.NewInvalidInputWithCause("sink:minimum_level", "unknown level", err)
		}
		opts.MinimumLevel = level
	}
	return opts, nil
}
