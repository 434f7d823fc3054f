package model

// Summary aggregates a batch of analysis reports.
type Summary struct {
	// Total is the number of reports.
	Total int `json:"total"`

	// Succeeded is the number of reports with a risk score.
	Succeeded int `json:"succeeded"`

	// Failed is the number of failed reports.
	Failed int `json:"failed"`

	// LowCount, ModerateCount and HighCount count successes per level.
	LowCount      int `json:"low_count"`
	ModerateCount int `json:"moderate_count"`
	HighCount     int `json:"high_count"`

	// MeanRisk is the average risk over successful reports.
	MeanRisk float64 `json:"mean_risk"`

	// MaxRisk is the highest risk over successful reports.
	MaxRisk float64 `json:"max_risk"`

	// Frames sums the frame statistics of all reports.
	Frames FrameStats `json:"frames"`
}

// Summarize aggregates the given reports. Nil entries are ignored.
func Summarize(reports []*AnalysisReport) Summary {
	var s Summary
	var total float64
	for _, r := range reports {
		if r == nil {
			continue
		}
		s.Total++
		s.Frames.Pulled += r.Frames.Pulled
		s.Frames.NoBody += r.Frames.NoBody
		s.Frames.Degenerate += r.Frames.Degenerate
		s.Frames.Incomplete += r.Frames.Incomplete
		s.Frames.Used += r.Frames.Used

		if !r.Succeeded() {
			s.Failed++
			continue
		}
		s.Succeeded++
		total += r.Risk
		if r.Risk > s.MaxRisk {
			s.MaxRisk = r.Risk
		}
		switch r.Level {
		case RiskLow:
			s.LowCount++
		case RiskModerate:
			s.ModerateCount++
		case RiskHigh:
			s.HighCount++
		}
	}
	if s.Succeeded > 0 {
		s.MeanRisk = total / float64(s.Succeeded)
	}
	return s
}
