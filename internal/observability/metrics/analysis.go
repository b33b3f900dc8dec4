package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Shoaibzaak/visa-docverify/internal/core/domain"
)

// AnalysisMetrics records coordinator activity.
type AnalysisMetrics struct {
	service string

	analysisTotal    *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	analysisInFlight prometheus.Gauge
	verdictTotal     *prometheus.CounterVec
	staleTotal       prometheus.Counter
	rejectedTotal    prometheus.Counter
}

func NewAnalysisMetrics(service string, registerer prometheus.Registerer) *AnalysisMetrics {
	constLabels := prometheus.Labels{"service": service}

	analysisTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "requests_total",
			Help:      "Finished analyses by outcome.",
		},
		[]string{"service", "outcome"},
	)
	analysisDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Analysis duration in seconds by outcome.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"service", "outcome"},
	)
	analysisInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "analysis",
			Name:        "in_flight",
			Help:        "Number of items currently in the Analyzing state.",
			ConstLabels: constLabels,
		},
	)
	verdictTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "verdicts_total",
			Help:      "Completed analyses by verdict.",
		},
		[]string{"service", "verdict"},
	)
	staleTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "analysis",
			Name:        "discarded_results_total",
			Help:        "Results dropped because their item was removed or re-analyzed.",
			ConstLabels: constLabels,
		},
	)
	rejectedTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "intake",
			Name:        "rejected_files_total",
			Help:        "Files rejected at intake for an unsupported media type.",
			ConstLabels: constLabels,
		},
	)

	registerer.MustRegister(analysisTotal, analysisDuration, analysisInFlight, verdictTotal, staleTotal, rejectedTotal)

	return &AnalysisMetrics{
		service:          service,
		analysisTotal:    analysisTotal,
		analysisDuration: analysisDuration,
		analysisInFlight: analysisInFlight,
		verdictTotal:     verdictTotal,
		staleTotal:       staleTotal,
		rejectedTotal:    rejectedTotal,
	}
}

func (m *AnalysisMetrics) StartAnalysis() {
	m.analysisInFlight.Inc()
}

func (m *AnalysisMetrics) FinishAnalysis(outcome string, verdict domain.Verdict, seconds float64) {
	m.analysisInFlight.Dec()
	m.analysisTotal.WithLabelValues(m.service, outcome).Inc()
	m.analysisDuration.WithLabelValues(m.service, outcome).Observe(seconds)
	if verdict != "" {
		m.verdictTotal.WithLabelValues(m.service, string(verdict)).Inc()
	}
}

func (m *AnalysisMetrics) DiscardResult() {
	m.staleTotal.Inc()
}

func (m *AnalysisMetrics) RejectFiles(count int) {
	if count <= 0 {
		return
	}
	m.rejectedTotal.Add(float64(count))
}
