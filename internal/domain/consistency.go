package domain

type SignalType string

const (
	SignalActivity   SignalType = "activity"
	SignalEngagement SignalType = "engagement"
	SignalContent    SignalType = "content"
	SignalNetwork    SignalType = "network"
	SignalIdentity   SignalType = "identity"
	SignalImpact     SignalType = "impact"
)

// Signal is one fact from a second data source (social-presence
// analysis) used to corroborate or contradict claims.
type Signal struct {
	Text     string     `json:"text"`
	Source   string     `json:"source"`
	Type     SignalType `json:"type"`
	Strength float64    `json:"strength"` // 0-1
}

type ConsistencyStatus string

const (
	StatusConfirmed    ConsistencyStatus = "confirmed"
	StatusContradicted ConsistencyStatus = "contradicted"
	StatusMixed        ConsistencyStatus = "mixed"
	StatusUnverified   ConsistencyStatus = "unverified"
)

// FollowUpAction categorizes the recommended next step for a claim
// whose validation surfaced contradictions.
type FollowUpAction string

const (
	FollowUpNone           FollowUpAction = "none"
	FollowUpInterview      FollowUpAction = "verify_during_interview"
	FollowUpReferenceCheck FollowUpAction = "reference_check"
)

// ConsistencyResult is one claim evaluated against the signal set.
// Status is "confirmed" only with at least one supporting and zero
// contradicting signals; any contradicting signal forces at least
// "mixed".
type ConsistencyResult struct {
	Claim         Claim             `json:"claim"`
	Supporting    []Signal          `json:"supporting_signals"`
	Contradicting []Signal          `json:"contradicting_signals"`
	Status        ConsistencyStatus `json:"status"`
	Confidence    float64           `json:"confidence"`
	FollowUp      FollowUpAction    `json:"follow_up"`
}

// ConsistencyReport aggregates all results for a profile.
// Score = (confirmed + 0.5*unverified) / total.
type ConsistencyReport struct {
	Results         []ConsistencyResult `json:"results"`
	Inconsistencies []ConsistencyResult `json:"inconsistencies"`
	Score           float64             `json:"consistency_score"`
	Summary         string              `json:"summary"`
}
