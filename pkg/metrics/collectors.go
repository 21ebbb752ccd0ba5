package metrics

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Combine-Capital/logtable/pkg/errors"
)

var (
	validMetricName = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)
	validLabelName  = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

	errNotInitialized = errors.NewPermanent("metrics not initialized, call Init() first", nil)
)

// Opts names a collector. The full metric name is
// "{namespace}_{subsystem}_{name}".
type Opts struct {
	Namespace string
	Subsystem string
	Name      string
	Help      string
	Labels    []string
	// Buckets applies to histograms only; nil means prometheus.DefBuckets.
	Buckets []float64
}

// NewCounterVec creates and registers a counter vector.
func NewCounterVec(opts Opts) (*prometheus.CounterVec, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: opts.Namespace,
		Subsystem: opts.Subsystem,
		Name:      opts.Name,
		Help:      opts.Help,
	}, opts.Labels)
	return registerOrReuse(vec, "counter", opts)
}

// NewGaugeVec creates and registers a gauge vector.
func NewGaugeVec(opts Opts) (*prometheus.GaugeVec, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: opts.Namespace,
		Subsystem: opts.Subsystem,
		Name:      opts.Name,
		Help:      opts.Help,
	}, opts.Labels)
	return registerOrReuse(vec, "gauge", opts)
}

// NewHistogramVec creates and registers a histogram vector.
func NewHistogramVec(opts Opts) (*prometheus.HistogramVec, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	buckets := opts.Buckets
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: opts.Namespace,
		Subsystem: opts.Subsystem,
		Name:      opts.Name,
		Help:      opts.Help,
		Buckets:   buckets,
	}, opts.Labels)
	return registerOrReuse(vec, "histogram", opts)
}

// registerOrReuse registers c, returning the collector already registered
// under the same descriptor when there is one, so a pipeline rebuilt in the
// same process keeps counting into the same series.
func registerOrReuse[T prometheus.Collector](c T, kind string, opts Opts) (T, error) {
	err := register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	var zero T
	return zero, errors.Wrapf(err, "failed to register %s %s", kind, opts.fullName())
}

func (o Opts) fullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{o.Namespace, o.Subsystem, o.Name} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "_")
}

// validate checks names against the Prometheus naming rules.
func (o Opts) validate() error {
	name := o.fullName()
	if !validMetricName.MatchString(name) {
		return errors.NewInvalidInput("name", fmt.Sprintf("invalid metric name %q", name))
	}
	for _, label := range o.Labels {
		if !validLabelName.MatchString(label) {
			return errors.NewInvalidInput("labels", fmt.Sprintf("invalid label name %q", label))
		}
		if strings.HasPrefix(label, "__") {
			return errors.NewInvalidInput("labels", fmt.Sprintf("label name %q is reserved", label))
		}
	}
	return nil
}
