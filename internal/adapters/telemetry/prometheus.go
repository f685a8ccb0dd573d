package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements Recorder with client_golang collectors.
type Prometheus struct {
	statementDuration *prometheus.HistogramVec
	statementsTotal   *prometheus.CounterVec
	migrationsTotal   *prometheus.CounterVec
}

// NewPrometheus creates the collectors and registers them with reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		statementDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "baseorm_statement_duration_seconds",
				Help:    "Latency of executed SQL statements in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"verb"},
		),
		statementsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "baseorm_statements_total",
				Help: "Total number of executed SQL statements",
			},
			[]string{"verb", "status"},
		),
		migrationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "baseorm_migrations_total",
				Help: "Total number of migrations applied or rolled back",
			},
			[]string{"direction", "status"},
		),
	}

	for _, c := range []prometheus.Collector{p.statementDuration, p.statementsTotal, p.migrationsTotal} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// ObserveStatement implements Recorder.
func (p *Prometheus) ObserveStatement(verb string, took time.Duration, err error) {
	p.statementDuration.WithLabelValues(verb).Observe(took.Seconds())
	p.statementsTotal.WithLabelValues(verb, status(err)).Inc()
}

// ObserveMigration implements Recorder.
func (p *Prometheus) ObserveMigration(direction Direction, _ string, err error) {
	p.migrationsTotal.WithLabelValues(string(direction), status(err)).Inc()
}

// WriteFile dumps everything g gathers in the text exposition format,
// suitable for the node_exporter textfile collector.
func WriteFile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}

var _ Recorder = (*Prometheus)(nil)
