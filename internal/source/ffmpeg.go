package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// ErrShortFrame is returned when the decoded stream ends inside a frame.
var ErrShortFrame = errors.New("truncated frame")

// Default decode geometry. Frames are scaled to this size by ffmpeg.
const (
	DefaultFrameWidth  = 640
	DefaultFrameHeight = 360
)

// waitDelay bounds how long Wait blocks on I/O after the process exits.
const waitDelay = 2 * time.Second

// FFmpegDecoder decodes a video byte stream by piping it through ffmpeg,
// which writes fixed-size RGB24 frames to its standard output.
type FFmpegDecoder struct {
	command Command
	width   int
	height  int
	logger  *slog.Logger

	cmd       *exec.Cmd
	stdout    io.ReadCloser
	stderrEOF chan struct{}
	buf       []byte
	seq       int

	mu      sync.Mutex
	waited  bool
	waitErr error
}

// FFmpegOption configures an FFmpegDecoder.
type FFmpegOption func(*FFmpegDecoder)

// WithFFmpegCommand sets the ffmpeg executable and any leading arguments.
func WithFFmpegCommand(cmd Command) FFmpegOption {
	return func(d *FFmpegDecoder) {
		if cmd.Path != "" {
			d.command = cmd
		}
	}
}

// WithFrameSize sets the size frames are scaled to.
func WithFrameSize(width, height int) FFmpegOption {
	return func(d *FFmpegDecoder) {
		if width > 0 && height > 0 {
			d.width = width
			d.height = height
		}
	}
}

// WithDecoderLogger sets the logger that receives ffmpeg's stderr.
func WithDecoderLogger(logger *slog.Logger) FFmpegOption {
	return func(d *FFmpegDecoder) {
		d.logger = logger
	}
}

// NewFFmpegDecoder starts ffmpeg reading the video stream from r.
// The process is bound to ctx; Close must be called to release it.
func NewFFmpegDecoder(ctx context.Context, r io.Reader, opts ...FFmpegOption) (*FFmpegDecoder, error) {
	d := &FFmpegDecoder{
		command: Command{Path: "ffmpeg"},
		width:   DefaultFrameWidth,
		height:  DefaultFrameHeight,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}

	args := append([]string{}, d.command.Args...)
	args = append(args, d.ffmpegArgs()...)

	cmd := exec.CommandContext(ctx, d.command.Path, args...) //nolint:gosec // command comes from configuration
	cmd.Stdin = r
	cmd.WaitDelay = waitDelay
	if len(d.command.Env) > 0 {
		cmd.Env = append(os.Environ(), d.command.Env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	d.cmd = cmd
	d.stdout = stdout
	d.buf = make([]byte, d.width*d.height*3)
	d.stderrEOF = make(chan struct{})
	go d.forwardStderr(stderr)

	d.logger.Debug("ffmpeg started",
		"command", d.command.Path,
		"width", d.width,
		"height", d.height,
	)
	return d, nil
}

func (d *FFmpegDecoder) ffmpegArgs() []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", "pipe:0",
		"-vf", "scale=" + strconv.Itoa(d.width) + ":" + strconv.Itoa(d.height),
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1",
	}
}

func (d *FFmpegDecoder) forwardStderr(stderr io.Reader) {
	defer close(d.stderrEOF)
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		d.logger.Debug("ffmpeg", "line", scanner.Text())
	}
	_, _ = io.Copy(io.Discard, stderr) //nolint:errcheck // drain after an oversized line
}

// Next reads the next frame. It returns io.EOF once ffmpeg has written its
// last frame and exited cleanly.
func (d *FFmpegDecoder) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	d.mu.Lock()
	waited := d.waited
	d.mu.Unlock()
	if waited {
		return Frame{}, ErrClosed
	}

	n, err := io.ReadFull(d.stdout, d.buf)
	switch {
	case errors.Is(err, io.EOF):
		if werr := d.wait(); werr != nil {
			return Frame{}, fmt.Errorf("ffmpeg failed: %w", werr)
		}
		return Frame{}, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		_ = d.wait() //nolint:errcheck // the short frame is the error reported
		return Frame{}, fmt.Errorf("%w: frame %d has %d of %d bytes", ErrShortFrame, d.seq, n, len(d.buf))
	case err != nil:
		return Frame{}, fmt.Errorf("failed to read frame %d: %w", d.seq, err)
	}

	frame := Frame{Seq: d.seq, Image: rgb24ToRGBA(d.buf, d.width, d.height)}
	d.seq++
	return frame, nil
}

// Close stops ffmpeg if it is still running.
func (d *FFmpegDecoder) Close() error {
	d.mu.Lock()
	waited := d.waited
	d.mu.Unlock()
	if waited {
		return nil
	}
	kill(d.cmd)
	_ = d.wait() //nolint:errcheck // a killed process always reports an error
	return nil
}

// wait reaps the process once stderr has been drained.
func (d *FFmpegDecoder) wait() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.waited {
		return d.waitErr
	}
	<-d.stderrEOF
	d.waitErr = d.cmd.Wait()
	d.waited = true
	return d.waitErr
}

func rgb24ToRGBA(buf []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i+2 < len(buf); i, j = i+3, j+4 {
		img.Pix[j] = buf[i]
		img.Pix[j+1] = buf[i+1]
		img.Pix[j+2] = buf[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}
