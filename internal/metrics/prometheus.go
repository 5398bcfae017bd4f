package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// prometheusRecorder lazily registers one CounterVec/GaugeVec per metric
// name on first use, each with a single "label" dimension — mirroring the
// teacher's poll.DefaultFactory, which takes a *prometheus.Registry at
// construction rather than using the global default registry.
type prometheusRecorder struct {
	reg *prometheus.Registry

	mu       sync.Mutex
	counters map[string]*prometheus.CounterVec
	gauges   map[string]*prometheus.GaugeVec
}

// NewPrometheusRecorder returns a Recorder backed by reg. A nil reg
// allocates a fresh, private registry (never the global default one).
func NewPrometheusRecorder(reg *prometheus.Registry) Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &prometheusRecorder{
		reg:      reg,
		counters: make(map[string]*prometheus.CounterVec),
		gauges:   make(map[string]*prometheus.GaugeVec),
	}
}

func labelValue(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	return labels[0]
}

func (p *prometheusRecorder) counterVec(name string) *prometheus.CounterVec {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cv, ok := p.counters[name]; ok {
		return cv
	}
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dsn_" + name,
		Help: "DSN counter: " + name,
	}, []string{"label"})
	p.reg.MustRegister(cv)
	p.counters[name] = cv
	return cv
}

func (p *prometheusRecorder) gaugeVec(name string) *prometheus.GaugeVec {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gv, ok := p.gauges[name]; ok {
		return gv
	}
	gv := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dsn_" + name,
		Help: "DSN gauge: " + name,
	}, []string{"label"})
	p.reg.MustRegister(gv)
	p.gauges[name] = gv
	return gv
}

func (p *prometheusRecorder) IncCounter(name string, labels ...string) {
	p.counterVec(name).WithLabelValues(labelValue(labels)).Inc()
}

func (p *prometheusRecorder) ObserveGauge(name string, v float64, labels ...string) {
	p.gaugeVec(name).WithLabelValues(labelValue(labels)).Set(v)
}
