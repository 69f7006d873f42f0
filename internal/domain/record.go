package domain

import (
	"time"

	"github.com/google/uuid"
)

// BasicInfo is the resume header block.
type BasicInfo struct {
	Name          string `json:"name"`
	Email         string `json:"email,omitempty"`
	Location      string `json:"location,omitempty"`
	HighestDegree string `json:"highest_degree,omitempty"`
	BirthYear     int    `json:"birth_year,omitempty"`
}

type Education struct {
	School    string `json:"school"`
	Degree    string `json:"degree,omitempty"`
	Major     string `json:"major,omitempty"`
	StartYear int    `json:"start_year,omitempty"`
	EndYear   int    `json:"end_year,omitempty"`
}

type WorkExperience struct {
	Company string `json:"company"`
	Title   string `json:"title,omitempty"`
}

// SourceEvidence is one retrieval hit attached to an enriched item.
type SourceEvidence struct {
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

type Publication struct {
	Title   string `json:"title"`
	Authors string `json:"authors,omitempty"`
	Venue   string `json:"venue,omitempty"`
	Year    int    `json:"year,omitempty"`

	// Filled by enrichment.
	URL      string           `json:"url,omitempty"`
	Abstract string           `json:"abstract,omitempty"`
	Summary  string           `json:"summary,omitempty"`
	Date     string           `json:"date,omitempty"`
	Sources  []string         `json:"sources,omitempty"`
	Evidence []SourceEvidence `json:"evidence,omitempty"`
}

type Award struct {
	Name string `json:"name"`
	Year int    `json:"year,omitempty"`

	// Filled by enrichment.
	Intro    string           `json:"intro,omitempty"`
	Sources  []string         `json:"sources,omitempty"`
	Evidence []SourceEvidence `json:"evidence,omitempty"`
}

type Project struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// SocialPresence is one platform's observed presence for the candidate,
// as produced by the out-of-scope social analysis layer.
type SocialPresence struct {
	Platform   string   `json:"platform"`
	Handle     string   `json:"handle,omitempty"`
	URL        string   `json:"url,omitempty"`
	Followers  int      `json:"followers,omitempty"`
	Frequency  string   `json:"frequency,omitempty"`
	Topics     []string `json:"topics,omitempty"`
	Engagement int      `json:"engagement,omitempty"`
}

// PersonaProfile summarizes the social persona analysis.
type PersonaProfile struct {
	PrimaryRole      string `json:"primary_role,omitempty"`
	RecognitionLevel string `json:"recognition_level,omitempty"`
}

// DimensionEvaluation is one dimension's narrative evaluation text plus
// an optional numeric score (0 means no score was assigned).
type DimensionEvaluation struct {
	Dimension string  `json:"dimension"`
	Text      string  `json:"evaluation"`
	Score     float64 `json:"score,omitempty"`
}

// ResumeProfile is the structured input to an enrichment run, produced
// by the out-of-scope document extraction layer.
type ResumeProfile struct {
	BasicInfo         BasicInfo             `json:"basic_info"`
	Education         []Education           `json:"education,omitempty"`
	WorkExperience    []WorkExperience      `json:"work_experience,omitempty"`
	ResearchInterests []string              `json:"research_interests,omitempty"`
	Skills            []string              `json:"skills,omitempty"`
	Publications      []Publication         `json:"publications,omitempty"`
	Awards            []Award               `json:"awards,omitempty"`
	Projects          []Project             `json:"projects,omitempty"`
	SocialPresence    []SocialPresence      `json:"social_presence,omitempty"`
	SocialSummary     string                `json:"social_summary,omitempty"`
	Persona           *PersonaProfile       `json:"persona,omitempty"`
	Evaluations       []DimensionEvaluation `json:"evaluations,omitempty"`
}

// DimensionAssessment is one dimension's evaluation with its evidence
// chains and, when a numeric score exists, its auditable breakdown.
type DimensionAssessment struct {
	Dimension string          `json:"dimension"`
	Text      string          `json:"evaluation"`
	Score     float64         `json:"score,omitempty"`
	Breakdown *ScoreBreakdown `json:"breakdown,omitempty"`
	Chains    []EvidenceChain `json:"evidence_chains"`
}

// CategoryOutcome reports per-category enrichment counts. Skipped items
// were refused by the run budget, not silently merged as success.
type CategoryOutcome struct {
	Category  string `json:"category"`
	Attempted int    `json:"attempted"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
	Warning   string `json:"warning,omitempty"`
}

// EnrichedProfile is the record handed to out-of-scope rendering and
// serialization layers. It is always produced; data that could not be
// obtained is marked, never omitted or fabricated.
type EnrichedProfile struct {
	RunID         uuid.UUID              `json:"run_id"`
	CandidateName string                 `json:"candidate_name"`
	Identity      IdentityProfile        `json:"identity"`
	Publications  []Publication          `json:"publications,omitempty"`
	Awards        []Award                `json:"awards,omitempty"`
	SocialMatches []DisambiguationResult `json:"social_matches,omitempty"`
	Dimensions    []DimensionAssessment  `json:"dimensions,omitempty"`
	Consistency   ConsistencyReport      `json:"consistency"`
	Categories    []CategoryOutcome      `json:"categories"`
	Warnings      []string               `json:"warnings,omitempty"`
	StartedAt     time.Time              `json:"started_at"`
	FinishedAt    time.Time              `json:"finished_at"`
}
