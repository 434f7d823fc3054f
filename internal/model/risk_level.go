package model

import "strings"

// RiskLevel is the coarse band a risk score falls into.
type RiskLevel int

const (
	// RiskLow is a score below 30.
	RiskLow RiskLevel = iota

	// RiskModerate is a score from 30 up to, but excluding, 60.
	RiskModerate

	// RiskHigh is a score of 60 or more.
	RiskHigh
)

// Band thresholds on the 0-100 risk scale.
const (
	moderateThreshold = 30
	highThreshold     = 60
)

// RiskLevelOf returns the band of a risk score.
func RiskLevelOf(risk float64) RiskLevel {
	switch {
	case risk >= highThreshold:
		return RiskHigh
	case risk >= moderateThreshold:
		return RiskModerate
	default:
		return RiskLow
	}
}

// String returns the upper-case name of the level.
func (l RiskLevel) String() string {
	switch l {
	case RiskLow:
		return "LOW"
	case RiskModerate:
		return "MODERATE"
	case RiskHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the level as a lower-case word.
func (l RiskLevel) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(l.String())), nil
}

// LevelInfo describes a risk level for reports.
type LevelInfo struct {
	Level          RiskLevel
	Summary        string
	Recommendation string
}

var levelInfoMapping = map[RiskLevel]LevelInfo{
	RiskLow: {
		Level:          RiskLow,
		Summary:        "The movement pattern shows little sign of injury risk.",
		Recommendation: "Keep the current form and load progression.",
	},
	RiskModerate: {
		Level:          RiskModerate,
		Summary:        "Parts of the movement drift away from a safe range.",
		Recommendation: "Reduce load and work on the joint cues listed in the explanation.",
	},
	RiskHigh: {
		Level:          RiskHigh,
		Summary:        "The movement pattern is strongly associated with injury.",
		Recommendation: "Stop loading this movement until form has been reviewed.",
	},
}

// GetLevelInfo returns the report text for a level.
func GetLevelInfo(level RiskLevel) LevelInfo {
	if info, ok := levelInfoMapping[level]; ok {
		return info
	}
	return LevelInfo{
		Level:          level,
		Summary:        "Unknown risk level.",
		Recommendation: "Review the analysis manually.",
	}
}
