// Package risk loads the sequence model and scores angle windows.
//
// Models are JSON exports of a Keras Sequential network made of LSTM and
// Dense layers (format "poserisk-sequential/v1"). Load tries three
// increasingly permissive strategies, strict, remap-loss and
// inference-only, and returns the first that succeeds. When all of them
// fail the returned *ModelLoadError carries the cause of every tier.
//
// A loaded Handle is immutable. Inference keeps all state local to the
// call, so Scorer.Score may be called concurrently against one Handle.
//
// Example:
//
//	handle, err := risk.Load("model.json")
//	if err != nil {
//		return err // fatal at startup
//	}
//	scorer := risk.NewScorer(handle)
//	score, err := scorer.Score(ctx, window)
package risk
