// Package model defines the data structures shared by the analysis
// pipeline and the report writers.
//
// This package contains the following main types:
//   - AnalysisReport: the per-input analysis record
//   - FrameStats: how many frames were pulled, skipped and used
//   - Failure: a classified, serializable analysis failure
//   - RiskLevel: the coarse band a risk score falls into
//   - Summary: aggregate figures over a batch of reports
//
// Models live in their own package so that the pipeline, window and report
// packages can share them without import cycles.
package model
