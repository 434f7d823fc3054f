// Package main provides the entry point for the poserisk CLI.
//
// poserisk estimates the injury risk of a movement from a short video. It
// measures hip, knee and shoulder angles over a window of frames, scores
// the window with a sequence model and explains the score in plain words.
//
// Usage:
//
//	poserisk analyze squat.mp4
//	poserisk analyze --landmarks squat.jsonl
//	poserisk analyze --angles angles.json
//
// See --help for all available options.
package main

// main is the entry point for poserisk.
func main() {
	Execute()
}
