package risk

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Tier names a model loading strategy.
type Tier string

// Loading tiers, in the order they are tried.
const (
	// TierStrict rejects unknown fields and requires a resolvable loss.
	TierStrict Tier = "strict"

	// TierRemapLoss is strict but replaces an unresolvable loss with mse.
	TierRemapLoss Tier = "remap-loss"

	// TierInferenceOnly tolerates unknown fields and ignores the training
	// configuration entirely.
	TierInferenceOnly Tier = "inference-only"
)

// Tiers lists the loading tiers in the order Load tries them.
var Tiers = []Tier{TierStrict, TierRemapLoss, TierInferenceOnly}

// loadResult is what a tier produces from the model bytes.
type loadResult struct {
	file *modelFile
	loss string
}

type tierFunc func(data []byte) (loadResult, error)

// LoadOption configures Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	logger *slog.Logger
}

// WithLoadLogger sets the logger used while loading.
func WithLoadLogger(logger *slog.Logger) LoadOption {
	return func(o *loadOptions) {
		o.logger = logger
	}
}

// Load reads the model at path, trying each tier in turn. The first tier
// that succeeds wins. If all fail, the error is a *ModelLoadError holding
// every tier's cause.
func Load(path string, opts ...LoadOption) (*Handle, error) {
	o := &loadOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	tiers := map[Tier]tierFunc{
		TierStrict:        loadStrict,
		TierRemapLoss:     func(data []byte) (loadResult, error) { return loadRemapLoss(data, o.logger) },
		TierInferenceOnly: loadInferenceOnly,
	}

	loadErr := &ModelLoadError{Path: path}
	for _, tier := range Tiers {
		h, err := loadTier(path, tier, tiers[tier])
		if err == nil {
			o.logger.Info("model loaded",
				"path", path,
				"tier", tier,
				"loss", h.loss,
				"digest", h.Digest(),
			)
			return h, nil
		}
		o.logger.Debug("model load tier failed", "path", path, "tier", tier, "error", err)
		loadErr.Causes = append(loadErr.Causes, &TierError{Tier: tier, Err: err})
	}
	return nil, loadErr
}

// loadTier reads the file and runs one tier over it. Every tier reads the
// file itself, so a read error is reported by each of them.
func loadTier(path string, tier Tier, fn tierFunc) (*Handle, error) {
	data, err := os.ReadFile(path) //nolint:gosec // model path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}

	res, err := fn(data)
	if err != nil {
		return nil, err
	}
	net, err := buildNetwork(res.file)
	if err != nil {
		return nil, err
	}
	return newHandle(path, data, tier, res.loss, net), nil
}

func loadStrict(data []byte) (loadResult, error) {
	mf, err := decodeStrict(data)
	if err != nil {
		return loadResult{}, err
	}
	loss, ok := resolveLoss(mf.TrainingConfig.Loss)
	if !ok {
		return loadResult{}, fmt.Errorf("%w: %q", ErrUnknownLoss, mf.TrainingConfig.Loss)
	}
	return loadResult{file: mf, loss: loss}, nil
}

func loadRemapLoss(data []byte, logger *slog.Logger) (loadResult, error) {
	mf, err := decodeStrict(data)
	if err != nil {
		return loadResult{}, err
	}
	loss, ok := resolveLoss(mf.TrainingConfig.Loss)
	if !ok {
		logger.Warn("substituting unresolvable loss",
			"loss", mf.TrainingConfig.Loss,
			"stand_in", standInLoss,
		)
		loss = standInLoss
	}
	return loadResult{file: mf, loss: loss}, nil
}

func loadInferenceOnly(data []byte) (loadResult, error) {
	var mf modelFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return loadResult{}, fmt.Errorf("failed to decode model: %w", err)
	}
	if mf.Format != "" && mf.Format != FormatVersion {
		return loadResult{}, fmt.Errorf("%w: unsupported format %q", ErrInvalidModel, mf.Format)
	}
	mf.TrainingConfig = nil
	return loadResult{file: &mf}, nil
}

// decodeStrict decodes a model rejecting unknown fields, trailing data,
// unknown formats and a missing training configuration.
func decodeStrict(data []byte) (*modelFile, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var mf modelFile
	if err := dec.Decode(&mf); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("failed to decode model: trailing data after model object")
	}
	if mf.Format != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidModel, mf.Format)
	}
	if mf.TrainingConfig == nil {
		return nil, errors.New("training configuration is missing")
	}
	return &mf, nil
}
