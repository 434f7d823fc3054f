package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/poserisk/internal/pose"
)

// AnalysisReport is the result of analyzing one input.
// Pipeline steps fill it in order; report writers only read it.
type AnalysisReport struct {
	// === Identity ===

	// ID uniquely identifies this analysis.
	ID string

	// Source names the analyzed input (file path, "stdin", ...).
	Source string

	// AnalyzedAt is when the analysis started.
	AnalyzedAt time.Time

	// Elapsed is the wall time the pipeline took.
	Elapsed time.Duration

	// === Window ===

	// Window is the angle window handed to the scorer.
	Window pose.Window

	// Frames describes how the window was assembled.
	// It stays zero for the direct-angle path.
	Frames FrameStats

	// === Result ===

	// Risk is the predicted injury risk in [0, 100].
	Risk float64

	// Level is the band Risk falls into.
	Level RiskLevel

	// Story is the explanation text.
	Story string

	// StorySource tells whether the story was generated or rule-based.
	StorySource string

	// ModelDigest is the digest of the model that produced Risk.
	ModelDigest string

	// === State ===

	// PerformedSteps lists the pipeline steps that completed.
	PerformedSteps []string

	// Failure is set when the analysis failed.
	Failure *Failure

	// Error is the raw error behind Failure.
	Error error
}

// NewAnalysisReport creates a report for the named source.
func NewAnalysisReport(source string) *AnalysisReport {
	return &AnalysisReport{
		ID:         uuid.NewString(),
		Source:     source,
		AnalyzedAt: time.Now(),
	}
}

// FinalAngles returns the angles of the last frame of the window.
func (r *AnalysisReport) FinalAngles() pose.AngleTriple {
	return r.Window.Last()
}

// Succeeded reports whether a risk score and story were produced.
func (r *AnalysisReport) Succeeded() bool {
	return r.Failure == nil && r.Error == nil && r.Story != ""
}

// SetRisk records the score and its band.
func (r *AnalysisReport) SetRisk(risk float64) {
	r.Risk = risk
	r.Level = RiskLevelOf(risk)
}
