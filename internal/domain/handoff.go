package domain

// HandoffReason explains a handoff recommendation.
type HandoffReason string

const (
	HandoffNone             HandoffReason = "none"
	HandoffEmergency        HandoffReason = "emergency"
	HandoffComplexTopic     HandoffReason = "complex_topic"
	HandoffComplexLanguage  HandoffReason = "complex_language"
	HandoffLongConversation HandoffReason = "long_conversation"
)

// Urgency ranks how soon a human should step in.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// HandoffDecision is whether to suggest a human expert, and why.
type HandoffDecision struct {
	ShouldRecommend bool          `json:"shouldRecommend"`
	Reason          HandoffReason `json:"reason"`
	Urgency         Urgency       `json:"urgency"`
}
