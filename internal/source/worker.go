package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/image/draw"

	"github.com/nao1215/poserisk/internal/pose"
)

// ErrWorkerProtocol is returned when the detector worker answers out of protocol.
var ErrWorkerProtocol = errors.New("detector worker protocol error")

// Worker defaults.
const (
	DefaultWorkerInputSize  = 256
	DefaultJPEGQuality      = 85
	DefaultWorkerCloseGrace = 2 * time.Second
)

// workerRequest is one line written to the worker's stdin.
type workerRequest struct {
	Seq       uint64 `json:"seq"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	FrameData string `json:"frame_data"`
}

// workerResponse is one line read from the worker's stdout.
// An empty landmark list means no body was found.
type workerResponse struct {
	Seq       uint64          `json:"seq"`
	Landmarks []pose.Landmark `json:"landmarks"`
	Error     string          `json:"error,omitempty"`
}

// WorkerDetector runs pose detection in a long-lived subprocess.
//
// Each call writes one JSON request line carrying a base64 JPEG of the
// frame, downscaled so its longer side is at most the worker input size,
// and reads one JSON response line. Calls are serialized because the
// worker has a single pipe.
type WorkerDetector struct {
	inputSize     int
	quality       int
	minVisibility float64
	closeGrace    time.Duration
	logger        *slog.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Scanner
	seq    uint64
	closed bool
}

// WorkerOption configures a WorkerDetector.
type WorkerOption func(*WorkerDetector)

// WithInputSize sets the longest frame side sent to the worker.
func WithInputSize(size int) WorkerOption {
	return func(w *WorkerDetector) {
		if size > 0 {
			w.inputSize = size
		}
	}
}

// WithMinVisibility drops landmarks whose visibility is below v. The
// default of 0 keeps every landmark, so workers that omit visibility work.
func WithMinVisibility(v float64) WorkerOption {
	return func(w *WorkerDetector) {
		w.minVisibility = v
	}
}

// WithCloseGrace sets how long Close waits for the worker to exit after
// its stdin is closed before killing it.
func WithCloseGrace(d time.Duration) WorkerOption {
	return func(w *WorkerDetector) {
		if d > 0 {
			w.closeGrace = d
		}
	}
}

// WithJPEGQuality sets the quality of frames sent to the worker.
func WithJPEGQuality(q int) WorkerOption {
	return func(w *WorkerDetector) {
		if q > 0 && q <= 100 {
			w.quality = q
		}
	}
}

// WithWorkerLogger sets the logger that receives the worker's stderr.
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *WorkerDetector) {
		w.logger = logger
	}
}

// NewWorkerDetector starts the worker process. The process lives until
// Close is called or ctx is done.
func NewWorkerDetector(ctx context.Context, command Command, opts ...WorkerOption) (*WorkerDetector, error) {
	if command.Path == "" {
		return nil, errors.New("detector command is required")
	}

	w := &WorkerDetector{
		inputSize:  DefaultWorkerInputSize,
		quality:    DefaultJPEGQuality,
		closeGrace: DefaultWorkerCloseGrace,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}

	cmd := exec.CommandContext(ctx, command.Path, command.Args...) //nolint:gosec // command comes from configuration
	cmd.WaitDelay = waitDelay
	if len(command.Env) > 0 {
		cmd.Env = append(os.Environ(), command.Env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create worker stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create worker stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create worker stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start detector worker: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)

	w.cmd = cmd
	w.stdin = stdin
	w.stdout = scanner
	go w.logStderr(stderr)

	w.logger.Debug("detector worker started",
		"command", command.Path,
		"input_size", w.inputSize,
		"min_visibility", w.minVisibility,
	)
	return w, nil
}

func (w *WorkerDetector) logStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		w.logger.Debug("detector worker", "line", scanner.Text())
	}
	_, _ = io.Copy(io.Discard, stderr) //nolint:errcheck // drain after an oversized line
}

// Detect sends the frame to the worker and waits for its answer.
// If ctx is done while waiting, the worker is killed and every later
// call fails with ErrClosed.
func (w *WorkerDetector) Detect(ctx context.Context, frame Frame) (pose.LandmarkSet, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, false, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	payload, width, height, err := w.encode(frame.Image)
	if err != nil {
		return nil, false, err
	}

	w.seq++
	req := workerRequest{
		Seq:       w.seq,
		Width:     width,
		Height:    height,
		FrameData: payload,
	}

	cmd := w.cmd
	stop := context.AfterFunc(ctx, func() { kill(cmd) })
	defer stop()

	resp, err := w.roundTrip(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			w.closed = true
			return nil, false, ctxErr
		}
		return nil, false, err
	}

	set := w.landmarkSet(resp.Landmarks)
	if len(set) == 0 {
		return nil, false, nil
	}
	return set, true, nil
}

func (w *WorkerDetector) roundTrip(req workerRequest) (workerResponse, error) {
	line, err := json.Marshal(req)
	if err != nil {
		return workerResponse{}, fmt.Errorf("failed to encode worker request: %w", err)
	}
	line = append(line, '\n')
	if _, err := w.stdin.Write(line); err != nil {
		return workerResponse{}, fmt.Errorf("failed to write to detector worker: %w", err)
	}

	if !w.stdout.Scan() {
		if err := w.stdout.Err(); err != nil {
			return workerResponse{}, fmt.Errorf("failed to read from detector worker: %w", err)
		}
		return workerResponse{}, fmt.Errorf("%w: worker exited", ErrWorkerProtocol)
	}

	var resp workerResponse
	if err := json.Unmarshal(w.stdout.Bytes(), &resp); err != nil {
		return workerResponse{}, fmt.Errorf("%w: %w", ErrWorkerProtocol, err)
	}
	if resp.Seq != req.Seq {
		return workerResponse{}, fmt.Errorf("%w: expected seq %d, got %d", ErrWorkerProtocol, req.Seq, resp.Seq)
	}
	if resp.Error != "" {
		return workerResponse{}, fmt.Errorf("detector worker: %s", resp.Error)
	}
	return resp, nil
}

// encode downscales the frame and returns it as base64 JPEG.
func (w *WorkerDetector) encode(img *image.RGBA) (string, int, int, error) {
	if img == nil {
		return "", 0, 0, errors.New("frame has no image")
	}

	var src image.Image = img
	bounds := img.Bounds()
	width, height := scaledSize(bounds.Dx(), bounds.Dy(), w.inputSize)
	if width != bounds.Dx() || height != bounds.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
		src = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: w.quality}); err != nil {
		return "", 0, 0, fmt.Errorf("failed to encode frame: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), width, height, nil
}

func (w *WorkerDetector) landmarkSet(landmarks []pose.Landmark) pose.LandmarkSet {
	if w.minVisibility <= 0 {
		return pose.NewLandmarkSet(landmarks)
	}
	kept := landmarks[:0:0]
	for _, l := range landmarks {
		if l.Visibility < w.minVisibility {
			continue
		}
		kept = append(kept, l)
	}
	return pose.NewLandmarkSet(kept)
}

func kill(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill() //nolint:errcheck // the process may already have exited
	}
}

// Close shuts the worker down by closing its stdin and waiting for it to
// exit. A worker still running after the close grace period is killed.
func (w *WorkerDetector) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cmd == nil {
		return nil
	}
	w.closed = true
	_ = w.stdin.Close() //nolint:errcheck // the worker may already be gone

	cmd := w.cmd
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(w.closeGrace)
	defer timer.Stop()

	var err error
	select {
	case err = <-done:
	case <-timer.C:
		w.logger.Debug("detector worker ignored stdin close, killing it", "grace", w.closeGrace)
		kill(cmd)
		err = <-done
	}
	w.cmd = nil

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		w.logger.Debug("detector worker exited", "error", err)
		return nil
	}
	return err
}

// scaledSize fits width x height into a square of side limit, keeping
// the aspect ratio. Frames already within the limit are left alone.
func scaledSize(width, height, limit int) (int, int) {
	longest := max(width, height)
	if longest <= limit || longest == 0 {
		return width, height
	}
	w := max(1, width*limit/longest)
	h := max(1, height*limit/longest)
	return w, h
}
