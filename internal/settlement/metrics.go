package settlement

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics observes data-quality gaps and the report cache.
type Metrics struct {
	missingFee   prometheus.Counter
	missingGrace prometheus.Counter
	invalidRows  prometheus.Counter
	cacheHits    prometheus.Counter
	cacheMisses  prometheus.Counter
	build        prometheus.Histogram
}

// NewMetrics registers the settlement collectors. Collectors already registered on
// reg are reused. A nil registerer falls back to the default one.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		missingFee: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventfin_missing_fee_param_total",
			Help: "Fee parameter lookups that fell back to 0%.",
		}),
		missingGrace: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventfin_missing_grace_price_total",
			Help: "Grace price lookups that left a bucket in EUR.",
		}),
		invalidRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventfin_invalid_ticket_rows_total",
			Help: "Ticket rows skipped because they could not be aggregated.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventfin_report_cache_hits_total",
			Help: "Settlement reports whose inputs matched a cached computation.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventfin_report_cache_miss_total",
			Help: "Settlement reports computed on demand.",
		}),
		build: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "eventfin_report_build_duration_seconds",
			Help:    "Duration required to build a settlement report.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	for _, target := range []*prometheus.Counter{&m.missingFee, &m.missingGrace, &m.invalidRows, &m.cacheHits, &m.cacheMisses} {
		existing, err := register(reg, *target)
		if err != nil {
			return nil, err
		}
		*target = existing.(prometheus.Counter)
	}
	existing, err := register(reg, m.build)
	if err != nil {
		return nil, err
	}
	m.build = existing.(prometheus.Histogram)
	return m, nil
}

func register(reg prometheus.Registerer, c prometheus.Collector) (prometheus.Collector, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return already.ExistingCollector, nil
		}
		return nil, err
	}
	return c, nil
}

func (m *Metrics) observeDiagnostic(d Diagnostic) {
	if m == nil {
		return
	}
	switch d.Kind {
	case DiagnosticMissingFeeParam:
		m.missingFee.Inc()
	case DiagnosticMissingGracePrice:
		m.missingGrace.Inc()
	case DiagnosticInvalidTicketRow:
		m.invalidRows.Inc()
	}
}

func (m *Metrics) observeCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
		return
	}
	m.cacheMisses.Inc()
}

func (m *Metrics) observeBuild(d time.Duration) {
	if m == nil {
		return
	}
	m.build.Observe(d.Seconds())
}
