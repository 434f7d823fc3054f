package explain

import (
	"errors"
	"fmt"

	"github.com/nao1215/poserisk/internal/pose"
)

// ErrInvalidRule is returned for rule tables that cannot be evaluated.
var ErrInvalidRule = errors.New("invalid rule")

// Band is a threshold and the advice given beyond it.
type Band struct {
	Threshold float64 `yaml:"threshold"`
	Advice    string  `yaml:"advice"`
}

// JointRule partitions one joint angle into bands. An angle strictly below
// Low.Threshold gets Low.Advice, one strictly above High.Threshold gets
// High.Advice, and anything else gets Normal. An empty Normal is silent.
type JointRule struct {
	Low    *Band  `yaml:"low,omitempty"`
	High   *Band  `yaml:"high,omitempty"`
	Normal string `yaml:"normal,omitempty"`
}

// Advice returns the advice for an angle, or "" when the band is silent.
func (r JointRule) Advice(angle float64) string {
	switch {
	case r.Low != nil && angle < r.Low.Threshold:
		return r.Low.Advice
	case r.High != nil && angle > r.High.Threshold:
		return r.High.Advice
	default:
		return r.Normal
	}
}

func (r JointRule) validate() error {
	if r.Low != nil && r.Low.Advice == "" {
		return fmt.Errorf("%w: low band has no advice", ErrInvalidRule)
	}
	if r.High != nil && r.High.Advice == "" {
		return fmt.Errorf("%w: high band has no advice", ErrInvalidRule)
	}
	if r.Low != nil && r.High != nil && r.Low.Threshold > r.High.Threshold {
		return fmt.Errorf("%w: low threshold %v is above high threshold %v",
			ErrInvalidRule, r.Low.Threshold, r.High.Threshold)
	}
	return nil
}

// RuleSet holds the rule of every tracked joint. Rules are evaluated in
// hip, knee, shoulder order.
type RuleSet struct {
	Hip      JointRule `yaml:"hip"`
	Knee     JointRule `yaml:"knee"`
	Shoulder JointRule `yaml:"shoulder"`
}

// Rule returns the rule of a joint.
func (s RuleSet) Rule(j pose.Joint) JointRule {
	switch j {
	case pose.JointHip:
		return s.Hip
	case pose.JointKnee:
		return s.Knee
	default:
		return s.Shoulder
	}
}

// Validate checks every joint rule.
func (s RuleSet) Validate() error {
	for _, j := range pose.Joints {
		if err := s.Rule(j).validate(); err != nil {
			return fmt.Errorf("%s: %w", j, err)
		}
	}
	return nil
}

// Default advice texts.
const (
	HipClosedAdvice      = "Your hip appears very closed — try increasing hip extension and keep hips level."
	HipHyperextAdvice    = "Your hip is hyperextended — engage your core and avoid locking the hip."
	HipNormalAdvice      = "Hip angle looks within a normal range; maintain controlled movement."
	KneeFlexedAdvice     = "Knee is quite flexed — ensure knee tracks over toes and avoid inward collapse."
	KneeExtendedAdvice   = "Knee is overly extended — avoid locking and use soft bend to absorb load."
	KneeNormalAdvice     = "Knee positioning is reasonable; keep alignment with the hip and ankle."
	ShoulderLowAdvice    = "Shoulders are low — open the chest and retract the shoulder blades slightly."
	ShoulderRaisedAdvice = "Shoulders are excessively raised — relax the neck and lower shoulders to reduce strain."
)

// DefaultRuleSet returns the built-in rules:
//
//	hip      < 70 closed,        > 120 hyperextended, else normal
//	knee     < 80 flexed,        > 140 over-extended, else reasonable
//	shoulder < 30 low,           > 100 raised,        else silent
func DefaultRuleSet() RuleSet {
	return RuleSet{
		Hip: JointRule{
			Low:    &Band{Threshold: 70, Advice: HipClosedAdvice},
			High:   &Band{Threshold: 120, Advice: HipHyperextAdvice},
			Normal: HipNormalAdvice,
		},
		Knee: JointRule{
			Low:    &Band{Threshold: 80, Advice: KneeFlexedAdvice},
			High:   &Band{Threshold: 140, Advice: KneeExtendedAdvice},
			Normal: KneeNormalAdvice,
		},
		Shoulder: JointRule{
			Low:  &Band{Threshold: 30, Advice: ShoulderLowAdvice},
			High: &Band{Threshold: 100, Advice: ShoulderRaisedAdvice},
		},
	}
}
