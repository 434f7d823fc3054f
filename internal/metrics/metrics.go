package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "poserisk"

// Metrics holds all pipeline metrics. It satisfies the recorder
// interfaces of the window, risk and explain packages.
type Metrics struct {
	registry *prometheus.Registry

	framesPulled        prometheus.Counter
	framesSkipped       *prometheus.CounterVec
	windowsBuilt        prometheus.Counter
	windowsInsufficient prometheus.Counter
	scores              prometheus.Counter
	scoreHistogram      prometheus.Histogram
	inferenceFailures   prometheus.Counter
	explanations        *prometheus.CounterVec
	generationFailures  prometheus.Counter
	modelLoads          *prometheus.CounterVec
	analyses            *prometheus.CounterVec
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		framesPulled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_pulled_total",
			Help:      "Frames pulled from a frame source",
		}),
		framesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_skipped_total",
			Help:      "Frames that contributed no angles, by reason",
		}, []string{"reason"}),
		windowsBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "windows_built_total",
			Help:      "Angle windows filled to the required size",
		}),
		windowsInsufficient: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "windows_insufficient_total",
			Help:      "Inputs that ended before a window was filled",
		}),
		scores: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scores_total",
			Help:      "Risk scores produced",
		}),
		scoreHistogram: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "risk_score",
			Help:      "Distribution of risk scores in percent",
			Buckets:   prometheus.LinearBuckets(10, 10, 9),
		}),
		inferenceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_failures_total",
			Help:      "Risk inferences that failed",
		}),
		explanations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "explanations_total",
			Help:      "Explanations produced, by provenance",
		}, []string{"provenance"}),
		generationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_failures_total",
			Help:      "Generative explanations replaced by the rule-based fallback",
		}),
		modelLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_loads_total",
			Help:      "Model loads, by the tier that succeeded",
		}, []string{"tier"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Finished analyses, by outcome",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.framesPulled,
		m.framesSkipped,
		m.windowsBuilt,
		m.windowsInsufficient,
		m.scores,
		m.scoreHistogram,
		m.inferenceFailures,
		m.explanations,
		m.generationFailures,
		m.modelLoads,
		m.analyses,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// FramePulled counts a frame pulled from a source.
func (m *Metrics) FramePulled() { m.framesPulled.Inc() }

// FrameSkipped counts a frame skipped for reason.
func (m *Metrics) FrameSkipped(reason string) { m.framesSkipped.WithLabelValues(reason).Inc() }

// WindowBuilt counts a filled window.
func (m *Metrics) WindowBuilt() { m.windowsBuilt.Inc() }

// WindowInsufficient counts an input that could not fill a window.
func (m *Metrics) WindowInsufficient() { m.windowsInsufficient.Inc() }

// ScoreObserved counts a score and adds it to the histogram.
func (m *Metrics) ScoreObserved(risk float64) {
	m.scores.Inc()
	m.scoreHistogram.Observe(risk)
}

// InferenceFailed counts a failed inference.
func (m *Metrics) InferenceFailed() { m.inferenceFailures.Inc() }

// ExplanationProduced counts an explanation by provenance.
func (m *Metrics) ExplanationProduced(provenance string) {
	m.explanations.WithLabelValues(provenance).Inc()
}

// GenerationFailed counts a generative explanation that fell back.
func (m *Metrics) GenerationFailed() { m.generationFailures.Inc() }

// ModelLoaded counts a model load by tier.
func (m *Metrics) ModelLoaded(tier string) { m.modelLoads.WithLabelValues(tier).Inc() }

// AnalysisFinished counts a finished analysis. Outcome is "success" or a
// failure kind.
func (m *Metrics) AnalysisFinished(outcome string) { m.analyses.WithLabelValues(outcome).Inc() }

// WriteToTextfile writes every metric to filename in the text exposition
// format. The file is replaced atomically.
func (m *Metrics) WriteToTextfile(filename string) error {
	if err := prometheus.WriteToTextfile(filename, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", filename, err)
	}
	return nil
}
