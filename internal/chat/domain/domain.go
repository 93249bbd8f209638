// Package domain holds the pure sales-conversation rules: funnel stages,
// intents, lead scoring and the escalation policy.
package domain

import (
	"strconv"
	"strings"
)

// Stage is a position in the 8-stage sales funnel.
type Stage int

const (
	StageIntroduction Stage = iota + 1
	StageQualification
	StageValueProposition
	StageNeedsAnalysis
	StageSolutionPresentation
	StageObjectionHandling
	StageClose
	StageEndConversation
)

const (
	MinStage = StageIntroduction
	MaxStage = StageEndConversation
)

var stageNames = map[Stage]string{
	StageIntroduction:         "Introduction",
	StageQualification:        "Qualification",
	StageValueProposition:     "Value Proposition",
	StageNeedsAnalysis:        "Needs Analysis",
	StageSolutionPresentation: "Solution Presentation",
	StageObjectionHandling:    "Objection Handling",
	StageClose:                "Close",
	StageEndConversation:      "End Conversation",
}

func (s Stage) Valid() bool { return s >= MinStage && s <= MaxStage }

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "Stage(" + strconv.Itoa(int(s)) + ")"
}

// Clamp forces s into [MinStage, MaxStage].
func (s Stage) Clamp() Stage {
	switch {
	case s < MinStage:
		return MinStage
	case s > MaxStage:
		return MaxStage
	default:
		return s
	}
}

// ParseStage accepts exactly one integer in range after trimming whitespace.
// Anything else reports false.
func ParseStage(raw string) (Stage, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	s := Stage(n)
	if !s.Valid() {
		return 0, false
	}
	return s, true
}

// Intent is the detected attitude of the user's latest message.
type Intent string

const (
	IntentInterest    Intent = "interest"
	IntentFrustration Intent = "frustration"
	IntentNeutral     Intent = "neutral"
)

func (i Intent) Valid() bool {
	switch i {
	case IntentInterest, IntentFrustration, IntentNeutral:
		return true
	}
	return false
}

// ParseIntent lower-cases raw, strips surrounding quotes, whitespace and
// punctuation, and checks the result against the closed set.
func ParseIntent(raw string) (Intent, bool) {
	cleaned := strings.Trim(strings.ToLower(strings.TrimSpace(raw)), " \t\r\n\"'`.,;:!?*")
	i := Intent(cleaned)
	if !i.Valid() {
		return "", false
	}
	return i, true
}

// Score maps (stage, intent) to a lead score in [0, 100]. Out-of-range
// stages are clamped first.
func Score(stage Stage, intent Intent) int {
	base := int(stage.Clamp()) * 10
	switch intent {
	case IntentInterest:
		return min(base+30, 100)
	case IntentFrustration:
		return max(base-10, 0)
	default:
		return base
	}
}
