package model

// FrameStats counts what happened to the frames pulled while building a window.
type FrameStats struct {
	// Pulled is the number of frames read from the source.
	Pulled int `json:"pulled"`

	// NoBody is the number of frames in which no body was detected.
	NoBody int `json:"no_body"`

	// Degenerate is the number of frames whose landmarks coincided.
	Degenerate int `json:"degenerate"`

	// Incomplete is the number of frames missing a required landmark.
	Incomplete int `json:"incomplete"`

	// Used is the number of frames that contributed an angle triple.
	Used int `json:"used"`
}

// Skipped returns the number of pulled frames that did not contribute.
func (s FrameStats) Skipped() int {
	return s.NoBody + s.Degenerate + s.Incomplete
}
