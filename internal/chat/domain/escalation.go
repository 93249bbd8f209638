package domain

// SummaryUnavailable stands in for a lead summary that could not be generated.
const SummaryUnavailable = "Summary unavailable."

// Reason explains why a conversation is handed to a human.
type Reason string

const (
	ReasonNone        Reason = "none"
	ReasonInterest    Reason = "interest"
	ReasonFrustration Reason = "frustration"
)

// Policy holds the escalation thresholds.
type Policy struct {
	MinTurns int
	MinStage Stage
}

// DefaultPolicy needs three full exchanges and at least objection handling.
func DefaultPolicy() Policy {
	return Policy{MinTurns: 6, MinStage: StageObjectionHandling}
}

// Decision is the outcome of evaluating one exchange.
type Decision struct {
	ShouldEscalate bool
	Reason         Reason
}

// Decide evaluates the policy for a conversation that has turns stored turns
// after the current exchange. An already escalated conversation never
// escalates again.
func (p Policy) Decide(alreadyEscalated bool, turns int, stage Stage, intent Intent) Decision {
	none := Decision{Reason: ReasonNone}
	if alreadyEscalated || turns < p.MinTurns || stage < p.MinStage {
		return none
	}
	switch intent {
	case IntentInterest:
		return Decision{ShouldEscalate: true, Reason: ReasonInterest}
	case IntentFrustration:
		return Decision{ShouldEscalate: true, Reason: ReasonFrustration}
	default:
		return none
	}
}

// Notice is appended to the reply of the request that escalated.
func (r Reason) Notice() string {
	switch r {
	case ReasonInterest:
		return " 🚀 I've flagged this for a human agent because you seem really interested in our product. They'll reach out shortly."
	case ReasonFrustration:
		return " 🚀 I've flagged this for a human agent because it seems like you might need more personalized assistance. They'll reach out shortly."
	default:
		return ""
	}
}

// EmailPhrase is the reason as worded in the escalation email.
func (r Reason) EmailPhrase() string {
	if r == ReasonInterest {
		return "you expressed strong interest in our product"
	}
	return "you seemed to need more personalized assistance"
}
