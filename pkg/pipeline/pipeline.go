// Package pipeline assembles the logging pipeline of the host.
//
// Startup runs in two stages. Bootstrap returns a console-only logger that
// works before any connection string is known. Once secrets and runtime
// settings have been layered into the configuration, Build assembles the
// real pipeline: enrichers, a validated column mapping, the connection
// pool and the batching table sink. A mapping that the enrichers cannot
// satisfy is rejected before the pool is opened.
//
// Example usage:
//
//	boot := pipeline.Bootstrap(cfg.Log)
//	defer boot.Close(ctx)
//
//	p, err := pipeline.Build(ctx, cfg)
//	if err != nil {
//	    boot.Fatal(err, "The app had an error and has to shutdown: {Error}", err.Error())
//	    return 1
//	}
//	defer p.Close(ctx)
package pipeline

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/Combine-Capital/logtable/pkg/config"
	"github.com/Combine-Capital/logtable/pkg/database"
	"github.com/Combine-Capital/logtable/pkg/enrich"
	"github.com/Combine-Capital/logtable/pkg/errors"
	"github.com/Combine-Capital/logtable/pkg/health"
	"github.com/Combine-Capital/logtable/pkg/logevent"
	"github.com/Combine-Capital/logtable/pkg/logging"
	"github.com/Combine-Capital/logtable/pkg/logtable"
	"github.com/Combine-Capital/logtable/pkg/metrics"
	"github.com/Combine-Capital/logtable/pkg/service"
	"github.com/Combine-Capital/logtable/pkg/sink"
)

// SinkName labels the table sink in metrics, health and the self-log.
const SinkName = "legacy_table"

// Pool is the connection pool the table sink writes through.
// database.Pool implements it.
type Pool interface {
	sink.CopyFromer
	sink.Transactor
	health.Checker
	Close()
}

// PoolOpener opens a pool for a connection string.
type PoolOpener func(ctx context.Context, connString string, cfg config.DatabaseConfig) (Pool, error)

func openPool(ctx context.Context, connString string, cfg config.DatabaseConfig) (Pool, error) {
	p, err := database.NewPool(ctx, connString, cfg)
	if err != nil {
		return nil, err
	}
	return p, nil
}

type options struct {
	openPool PoolOpener
	hostname func() (string, error)
	selfLog  *zerolog.Logger
	console  io.Writer
	metrics  *metrics.SinkMetrics
}

// Option configures Build.
type Option func(*options)

// WithPoolOpener replaces database.NewPool.
func WithPoolOpener(open PoolOpener) Option {
	return func(o *options) {
		o.openPool = open
	}
}

// WithHostname replaces os.Hostname for the machine name enricher.
func WithHostname(fn func() (string, error)) Option {
	return func(o *options) {
		o.hostname = fn
	}
}

// WithSelfLog sets the logger sink failures are reported to. The default
// is built from the log section.
func WithSelfLog(log zerolog.Logger) Option {
	return func(o *options) {
		o.selfLog = &log
	}
}

// WithConsole redirects the console sink, which otherwise follows
// log:output.
func WithConsole(w io.Writer) Option {
	return func(o *options) {
		o.console = w
	}
}

// WithSinkMetrics sets the sink counters. Without it they are registered
// when the metrics registry is initialized.
func WithSinkMetrics(m *metrics.SinkMetrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// Pipeline is an assembled logging pipeline.
type Pipeline struct {
	Logger  *logging.Logger
	Mapping logtable.Mapping

	// Sink and Pool are nil when the table sink is disabled.
	Sink *sink.Database
	Pool Pool

	cleanup *service.CleanupHandler
}

// Close flushes and closes the logger's sinks, then the pool.
func (p *Pipeline) Close(ctx context.Context) error {
	return p.cleanup.Execute(ctx)
}

// Bootstrap returns the logger used until Build succeeds: console only,
// every level, machine name attached, request logging limited to warnings.
// WithConsole and WithHostname apply; other options are ignored.
func Bootstrap(cfg config.LogConfig, opts ...Option) *logging.Logger {
	o := options{hostname: os.Hostname}
	for _, opt := range opts {
		opt(&o)
	}
	host, _ := o.hostname()
	return bootstrapTo(o.console, cfg, host)
}

func bootstrapTo(w io.Writer, cfg config.LogConfig, host string) *logging.Logger {
	return logging.New(
		logging.WithEnricher(enrich.MachineName(host)),
		logging.WithSink(sink.NewConsole(consoleLog(w, cfg), logevent.Verbose)),
		logging.WithMinimumLevel(logevent.Verbose),
		logging.WithOverride(logging.HTTPSource, logevent.Warning),
	)
}

// consoleLog returns the zerolog logger behind the console sink. Events are
// filtered by the minimum level before they reach it, so log:level, which
// governs the self-log, does not apply.
func consoleLog(w io.Writer, cfg config.LogConfig) zerolog.Logger {
	cfg.Level = "trace"
	return zerologFor(w, cfg)
}

func zerologFor(w io.Writer, cfg config.LogConfig) zerolog.Logger {
	if w == nil {
		return logging.NewZerolog(cfg)
	}
	return logging.NewZerologTo(w, cfg)
}

// ResolveMapping returns the mapping selected by the sink section: custom
// columns when present, the named built-in version otherwise. Schema, table
// and id settings override the built-in defaults.
func ResolveMapping(cfg config.SinkConfig) (logtable.Mapping, error) {
	var m logtable.Mapping
	if len(cfg.Columns) > 0 {
		m = logtable.Custom(cfg.Schema, cfg.Table, cfg.Columns)
	} else {
		version := cfg.MappingVersion
		if version == "" {
			version = logtable.DefaultVersion
		}
		var err error
		if m, err = logtable.Lookup(version); err != nil {
			return logtable.Mapping{}, err
		}
		if cfg.Schema != "" {
			m.Schema = cfg.Schema
		}
		if cfg.Table != "" {
			m.Table = cfg.Table
		}
	}
	m.IncludeID = cfg.IncludeID
	return m, nil
}

// Enrichers returns the enrichers every event passes through, in order.
func Enrichers(host, registeredAppID string) enrich.Pipeline {
	return enrich.Pipeline{
		enrich.MachineName(host),
		enrich.RegisteredAppID(registeredAppID),
		enrich.LegacyTable(),
	}
}

// Build assembles the logging pipeline from cfg and makes its logger the
// process default.
func Build(ctx context.Context, cfg *config.Config, opts ...Option) (*Pipeline, error) {
	o := options{
		openPool: openPool,
		hostname: os.Hostname,
	}
	for _, opt := range opts {
		opt(&o)
	}

	selfLog := zerologFor(o.console, cfg.Log)
	if o.selfLog != nil {
		selfLog = *o.selfLog
	}
	selfLog = selfLog.With().Str(logging.FieldComponent, "pipeline").Logger()

	host, err := o.hostname()
	if err != nil {
		selfLog.Warn().Err(err).Msg("machine name unavailable")
	}
	enrichers := Enrichers(host, cfg.Sink.RegisteredAppID)

	minimum, err := logevent.ParseLevel(cfg.Log.MinimumLevel)
	if err != nil {
		return nil, errors.NewInvalidInputWithCause("log:minimum_level", "unknown level", err)
	}
	logOpts := []logging.Option{
		logging.WithEnricher(enrichers),
		logging.WithMinimumLevel(minimum),
		logging.WithSink(sink.NewConsole(consoleLog(o.console, cfg.Log), logevent.Verbose)),
	}
	for source, value := range cfg.Log.Override {
		level, err := logevent.ParseLevel(value)
		if err != nil {
			return nil, errors.NewInvalidInputWithCause("log:override:"+source, "unknown level", err)
		}
		logOpts = append(logOpts, logging.WithOverride(source, level))
	}

	p := &Pipeline{cleanup: service.NewCleanupHandler()}

	mapping, err := ResolveMapping(cfg.Sink)
	if err != nil {
		return nil, err
	}
	p.Mapping = mapping

	if cfg.Sink.Enabled {
		if err := mapping.Validate(enrichers.Guarantees()); err != nil {
			return nil, errors.Wrapf(err, "column mapping %s does not match the enrichers", mapping.Version)
		}

		db, err := p.openSink(ctx, cfg, mapping, selfLog, o)
		if err != nil {
			_ = p.Close(ctx)
			return nil, err
		}
		logOpts = append(logOpts, logging.WithSink(db))
	}

	p.Logger = logging.New(logOpts...)
	p.cleanup.Register(p.Logger.Close)
	logging.SetDefault(p.Logger)

	selfLog.Info().
		Str("mapping", mapping.Version).
		Str("table", mapping.Identifier().Sanitize()).
		Bool("sink_enabled", cfg.Sink.Enabled).
		Msg("logging pipeline ready")
	return p, nil
}

func (p *Pipeline) openSink(ctx context.Context, cfg *config.Config, mapping logtable.Mapping, selfLog zerolog.Logger, o options) (*sink.Database, error) {
	connString, err := cfg.ConnectionString(cfg.Sink.ConnectionString)
	if err != nil {
		return nil, err
	}

	pool, err := o.openPool(ctx, connString, cfg.Database)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open the logging database")
	}
	p.Pool = pool
	p.cleanup.Register(func(context.Context) error {
		pool.Close()
		return nil
	})

	if cfg.Sink.AutoCreateTable {
		if err := sink.EnsureTable(ctx, pool, mapping); err != nil {
			return nil, err
		}
	}

	sinkOpts, err := sink.OptionsFromConfig(cfg.Sink)
	if err != nil {
		return nil, err
	}
	sinkOpts.Name = SinkName
	sinkOpts.SelfLog = selfLog
	sinkOpts.Metrics = o.metrics
	if sinkOpts.Metrics == nil && metrics.IsInitialized() {
		if sinkOpts.Metrics, err = metrics.NewSinkMetrics(cfg.Metrics.Namespace); err != nil {
			selfLog.Warn().Err(err).Msg("sink metrics unavailable")
		}
	}

	p.Sink = sink.NewDatabase(sink.NewCopyWriter(pool, mapping), mapping, sinkOpts)
	return p.Sink, nil
}
