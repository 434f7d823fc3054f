// Package window assembles fixed-length angle windows from a pose source.
//
// A Windower pulls frames one at a time and keeps a triple for every frame
// that yields a complete, non-degenerate landmark set. It stops as soon as
// the window is full, so frames after the window are never pulled. A
// stream that ends early fails with InsufficientFramesError; windows are
// never padded.
//
// The pull loop has no timeout of its own. Callers bound latency with a
// context deadline.
package window
