package domain

import "github.com/google/uuid"

type ClaimType string

const (
	ClaimAchievement   ClaimType = "achievement"
	ClaimSkill         ClaimType = "skill"
	ClaimImpact        ClaimType = "impact"
	ClaimCollaboration ClaimType = "collaboration"
	ClaimExperience    ClaimType = "experience"
	ClaimGeneral       ClaimType = "general"
)

func ValidClaimType(t string) bool {
	switch ClaimType(t) {
	case ClaimAchievement, ClaimSkill, ClaimImpact, ClaimCollaboration, ClaimExperience, ClaimGeneral:
		return true
	}
	return false
}

// ExtractionMethod tags how a claim was produced. Heuristic extraction
// never claims the same certainty as LLM extraction.
type ExtractionMethod string

const (
	MethodLLM       ExtractionMethod = "llm"
	MethodHeuristic ExtractionMethod = "heuristic"
)

func (m ExtractionMethod) InitialConfidence() float64 {
	switch m {
	case MethodLLM:
		return 0.85
	case MethodHeuristic:
		return 0.65
	default:
		return 0.5
	}
}

// Claim is an atomic, independently verifiable assertion extracted from
// one dimension's narrative evaluation.
type Claim struct {
	ID         uuid.UUID        `json:"id"`
	Text       string           `json:"text"`
	Dimension  string           `json:"dimension"`
	Type       ClaimType        `json:"type"`
	Method     ExtractionMethod `json:"method"`
	Confidence float64          `json:"confidence"`
}

type EvidenceSource string

const (
	SourcePublication EvidenceSource = "publication"
	SourceAward       EvidenceSource = "award"
	SourceProject     EvidenceSource = "project"
	SourceSocial      EvidenceSource = "social"
)

func ValidEvidenceSource(s string) bool {
	switch EvidenceSource(s) {
	case SourcePublication, SourceAward, SourceProject, SourceSocial:
		return true
	}
	return false
}

// EvidenceItem is one fact from the enriched profile offered for or
// against a claim. Ref is a traversable anchor into the source record,
// e.g. "pub-3".
type EvidenceItem struct {
	Source    EvidenceSource `json:"source"`
	Ref       string         `json:"ref"`
	Relevance float64        `json:"relevance"` // 0-1, relative to the claim
	Snippet   string         `json:"snippet"`
}

// EvidenceChain is one claim plus its ranked evidence and an aggregated
// confidence derived from the evidence scores. A chain with no evidence
// has confidence 0 and is marked unverifiable, never fabricated.
type EvidenceChain struct {
	Claim        Claim          `json:"claim"`
	Evidence     []EvidenceItem `json:"evidence"`
	Confidence   float64        `json:"confidence"`
	Unverifiable bool           `json:"unverifiable,omitempty"`
}

// ScoreComponent is one weighted input to a dimension score.
type ScoreComponent struct {
	Name        string  `json:"name"`
	Score       float64 `json:"score"`
	Weight      float64 `json:"weight"`
	Description string  `json:"description,omitempty"`
}

// ScoreBreakdown makes a dimension's numeric score auditable: the
// weighted components that produce it plus a rendered calculation.
type ScoreBreakdown struct {
	FinalScore  float64          `json:"final_score"`
	Components  []ScoreComponent `json:"components"`
	Calculation string           `json:"calculation"`
}
