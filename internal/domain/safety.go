package domain

import "slices"

// Category is a safety flag raised by the classifier.
type Category string

const (
	CategoryEmergency Category = "emergency"
	CategoryComplex   Category = "complex"
	CategoryMedical   Category = "medical"
)

// Topic is the care topic a message is about.
type Topic string

const (
	TopicEmergency     Topic = "emergency"
	TopicSleep         Topic = "sleep"
	TopicFalls         Topic = "falls"
	TopicDiet          Topic = "diet"
	TopicNightCare     Topic = "night_care"
	TopicPostOperative Topic = "post_operative"
	TopicDiabetes      Topic = "diabetes"
	TopicMood          Topic = "mood"
	TopicMemory        Topic = "memory"
	TopicMedication    Topic = "medication"
	TopicFamily        Topic = "family"
	TopicGeneral       Topic = "general"
)

// Topics lists every topic in classification order.
var Topics = []Topic{
	TopicEmergency, TopicSleep, TopicFalls, TopicDiet, TopicNightCare,
	TopicPostOperative, TopicDiabetes, TopicMood, TopicMemory,
	TopicMedication, TopicFamily, TopicGeneral,
}

// SafetyVerdict is the classifier's result for one message.
type SafetyVerdict struct {
	IsSafe            bool       `json:"isSafe"`
	EmergencyDetected bool       `json:"emergencyDetected"`
	Flagged           []Category `json:"flagged,omitempty"`
	RecommendHandoff  bool       `json:"recommendHandoff"`
	Topic             Topic      `json:"topic"`
}

// Has reports whether the verdict carries the given flag.
func (v SafetyVerdict) Has(c Category) bool {
	return slices.Contains(v.Flagged, c)
}
