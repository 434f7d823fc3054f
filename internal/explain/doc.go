// Package explain turns a risk score and the final angles of a window into
// explanation text.
//
// Two variants implement Explainer:
//
//   - Deterministic applies threshold rules per joint. It is always available.
//   - Generative asks a language model through a Generator and falls back to
//     its embedded Deterministic on any failure, within the same call.
//
// Resolve picks the variant once at startup from configuration. Callers
// never see generation errors; every call yields some text.
//
// Deployment note: the remote completion backend is not assumed to be
// reentrant. Resolve wraps the generator in Serialized unless
// serialization is explicitly disabled; only turn it off for backends
// known to handle concurrent requests.
package explain
