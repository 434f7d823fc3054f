package risk

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// Handle is a loaded, immutable model. It is created once at startup and
// shared read-only by every scorer.
type Handle struct {
	path   string
	digest string
	tier   Tier
	loss   string
	net    *network
}

func newHandle(path string, data []byte, tier Tier, loss string, net *network) *Handle {
	sum := sha3.Sum256(data)
	return &Handle{
		path:   path,
		digest: hex.EncodeToString(sum[:]),
		tier:   tier,
		loss:   loss,
		net:    net,
	}
}

// Path returns the file the model was loaded from.
func (h *Handle) Path() string { return h.path }

// Digest returns the hex SHA3-256 digest of the model file.
func (h *Handle) Digest() string { return h.digest }

// Tier returns the loading tier that produced the handle.
func (h *Handle) Tier() Tier { return h.tier }

// Loss returns the canonical training loss, or "" for inference-only loads.
func (h *Handle) Loss() string { return h.loss }

// InputShape returns the expected [timesteps, features] input.
func (h *Handle) InputShape() [2]int { return h.net.inputShape }

// Layers describes the network layers in order.
func (h *Handle) Layers() []LayerInfo {
	out := make([]LayerInfo, len(h.net.layers))
	for i, l := range h.net.layers {
		out[i] = l.info()
	}
	return out
}
