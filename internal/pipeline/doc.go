// Package pipeline runs the analysis of one input as a sequence of steps.
//
// A video input goes through window, score and explain steps; a direct
// angle file replaces the window step with an angles step. Each step
// receives the report built so far and fills in its part of it.
//
// Design decision: Steps share nothing but the report. The model handle
// and the explainer are injected into the steps once at startup and are
// only read afterwards, so one pipeline can serve concurrent inputs.
//
// BatchProcessor analyzes several inputs concurrently using errgroup.
package pipeline
