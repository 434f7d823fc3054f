// Package source provides the frame and pose sources consumed by the windower.
//
// Two capabilities sit at the boundary of the analysis core:
//
//   - Decoder yields the next raw video frame or io.EOF.
//   - Detector turns one raw frame into zero or one landmark set.
//
// Pair combines a Decoder and a Detector into a FrameSource, the only
// interface the windower depends on. Detection backends can be swapped
// without touching the windower.
//
// Implementations shipped here:
//
//   - FFmpegDecoder decodes a video byte stream by piping it through ffmpeg.
//   - WorkerDetector talks to a long-lived detector process over JSON lines.
//   - LandmarkFile replays pre-detected landmarks from a JSONL file.
//   - SliceSource serves landmark sets from memory.
package source
