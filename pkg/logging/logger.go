package logging

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Combine-Capital/logtable/pkg/enrich"
	"github.com/Combine-Capital/logtable/pkg/logevent"
)

// Sink consumes enriched events. Emit must not block on I/O: sinks that
// write to slow destinations queue the event and return.
type Sink interface {
	Emit(ev logevent.Event)
	Flush(ctx context.Context) error
	Close(ctx context.Context) error
}

// Option configures a Logger.
type Option func(*core)

// WithSink registers a sink. Events are emitted to sinks in registration order.
func WithSink(s Sink) Option {
	return func(c *core) {
		c.sinks = append(c.sinks, s)
	}
}

// WithEnricher appends an enricher to the pipeline run on every event.
func WithEnricher(e enrich.Enricher) Option {
	return func(c *core) {
		c.enrichers = append(c.enrichers, e)
	}
}

// WithMinimumLevel drops events below level. The default is Information.
func WithMinimumLevel(level logevent.Level) Option {
	return func(c *core) {
		c.minimum = level
	}
}

// WithOverride sets the minimum level for a source context and everything
// below it, so "http" also covers "http.server".
func WithOverride(source string, level logevent.Level) Option {
	return func(c *core) {
		c.overrides = append(c.overrides, override{prefix: source, level: level})
	}
}

// WithClock replaces time.Now for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *core) {
		c.now = now
	}
}

type override struct {
	prefix string
	level  logevent.Level
}

func (o override) matches(source string) bool {
	return source == o.prefix || strings.HasPrefix(source, o.prefix+".")
}

// core is shared by a logger and every logger derived from it.
type core struct {
	sinks     []Sink
	enrichers enrich.Pipeline
	minimum   logevent.Level
	overrides []override
	now       func() time.Time
	templates templateCache

	closeOnce sync.Once
	closeErr  error
}

// Logger writes message-template events to its sinks. It is safe for
// concurrent use.
type Logger struct {
	core    *core
	props   logevent.Properties
	source  string
	minimum logevent.Level
}

// New creates a logger.
func New(opts ...Option) *Logger {
	c := &core{
		minimum: logevent.Information,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	// Longest prefix first so the most specific override wins.
	sort.SliceStable(c.overrides, func(i, j int) bool {
		return len(c.overrides[i].prefix) > len(c.overrides[j].prefix)
	})

	return &Logger{core: c, minimum: c.minimum}
}

// Guarantees returns the property names the logger's enrichers guarantee.
func (l *Logger) Guarantees() []string {
	return l.core.enrichers.Guarantees()
}

// IsEnabled reports whether an event at level would be written.
func (l *Logger) IsEnabled(level logevent.Level) bool {
	return level >= l.minimum
}

// Write creates an event from template and args and emits it.
func (l *Logger) Write(level logevent.Level, err error, template string, args ...any) {
	if !l.IsEnabled(level) {
		return
	}

	tmpl := l.core.templates.parse(template)
	props := tmpl.Bind(args).Merge(l.props)
	ev := logevent.New(l.core.now(), level, tmpl, props, err)
	ev = l.core.enrichers.Enrich(ev)

	for _, s := range l.core.sinks {
		s.Emit(ev)
	}
}

func (l *Logger) Verbose(template string, args ...any) {
	l.Write(logevent.Verbose, nil, template, args...)
}

func (l *Logger) Debug(template string, args ...any) {
	l.Write(logevent.Debug, nil, template, args...)
}

func (l *Logger) Information(template string, args ...any) {
	l.Write(logevent.Information, nil, template, args...)
}

func (l *Logger) Warning(template string, args ...any) {
	l.Write(logevent.Warning, nil, template, args...)
}

// Error writes an Error event carrying err.
func (l *Logger) Error(err error, template string, args ...any) {
	l.Write(logevent.Error, err, template, args...)
}

// Fatal writes a Fatal event carrying err. It does not exit; the caller is
// expected to Close the logger and return a non-zero status.
func (l *Logger) Fatal(err error, template string, args ...any) {
	l.Write(logevent.Fatal, err, template, args...)
}

// ForContext returns a logger that attaches name=value to every event.
// Template arguments with the same name take precedence.
func (l *Logger) ForContext(name string, value any) *Logger {
	child := *l
	child.props = logevent.NewProperties(logevent.Property{
		Name:  name,
		Value: logevent.Capture(value, logevent.Default),
	}).Merge(l.props)
	return &child
}

// ForSource returns a logger for a named component. The source is attached
// as SourceContext and selects any matching level override.
func (l *Logger) ForSource(source string) *Logger {
	child := l.ForContext(SourceContext, source)
	child.source = source
	child.minimum = l.core.minimumFor(source)
	return child
}

// WithContext returns a logger that attaches the request id and trace
// identifiers found in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	out := l
	if id := GetRequestID(ctx); id != "" {
		out = out.ForContext(RequestID, id)
	}
	if traceID, spanID := traceIDs(ctx); traceID != "" {
		out = out.ForContext(TraceID, traceID).ForContext(SpanID, spanID)
	}
	return out
}

// Flush blocks until every sink has written what it has queued.
func (l *Logger) Flush(ctx context.Context) error {
	var errs []error
	for _, s := range l.core.sinks {
		if err := s.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close flushes and closes every sink. Later calls return the first result.
func (l *Logger) Close(ctx context.Context) error {
	l.core.closeOnce.Do(func() {
		var errs []error
		for _, s := range l.core.sinks {
			if err := s.Close(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		l.core.closeErr = errors.Join(errs...)
	})
	return l.core.closeErr
}

func (c *core) minimumFor(source string) logevent.Level {
	for _, o := range c.overrides {
		if o.matches(source) {
			return o.level
		}
	}
	return c.minimum
}

// maxCachedTemplates bounds the parse cache. Templates past the limit are
// parsed on every call.
const maxCachedTemplates = 1000

type templateCache struct {
	m     sync.Map
	mu    sync.Mutex
	count int
}

func (c *templateCache) parse(text string) logevent.Template {
	if t, ok := c.m.Load(text); ok {
		return t.(logevent.Template)
	}
	t := logevent.ParseTemplate(text)

	c.mu.Lock()
	if c.count < maxCachedTemplates {
		if _, loaded := c.m.LoadOrStore(text, t); !loaded {
			c.count++
		}
	}
	c.mu.Unlock()
	return t
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = New()
)

// SetDefault replaces the logger returned by Default and by FromContext when
// the context carries none.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// Default returns the process-wide logger. Until SetDefault is called it has
// no sinks.
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}
