package domain

// AgeRange is an estimated [Min, Max] age bracket in years.
type AgeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// IdentityProfile holds the candidate-side features used for
// disambiguation. Built once per run from the resume, read-only
// afterward.
type IdentityProfile struct {
	Name              string    `json:"name"`
	NameVariants      []string  `json:"name_variants,omitempty"`
	Affiliations      []string  `json:"affiliations,omitempty"`
	Interests         []string  `json:"interests,omitempty"`
	EmailDomains      []string  `json:"email_domains,omitempty"`
	Coauthors         []string  `json:"coauthors,omitempty"`
	PublicationTitles []string  `json:"publication_titles,omitempty"`
	Location          string    `json:"location,omitempty"`
	AgeRange          *AgeRange `json:"age_range,omitempty"`
}

// CandidateItem is a retrieved external item (social profile, publication
// record) to be scored against an IdentityProfile. Ephemeral; produced by
// retrieval, consumed by the identity resolver.
type CandidateItem struct {
	Name         string   `json:"name"`
	Title        string   `json:"title,omitempty"`
	Snippet      string   `json:"snippet,omitempty"`
	URL          string   `json:"url"`
	Platform     string   `json:"platform,omitempty"`
	Affiliations []string `json:"affiliations,omitempty"`
	Interests    []string `json:"interests,omitempty"`
	Email        string   `json:"email,omitempty"`
	Location     string   `json:"location,omitempty"`
	AgeRange     *AgeRange `json:"age_range,omitempty"`
}

type MatchTier string

const (
	TierHigh   MatchTier = "high"
	TierMedium MatchTier = "medium"
	TierLow    MatchTier = "low"
	TierReject MatchTier = "reject"
)

// Tier thresholds over the weighted score fraction (0-1).
const (
	HighThreshold   = 0.80
	MediumThreshold = 0.60
	RejectThreshold = 0.40
)

// TierFor maps a weighted score fraction to its confidence tier.
func TierFor(frac float64) MatchTier {
	switch {
	case frac >= HighThreshold:
		return TierHigh
	case frac >= MediumThreshold:
		return TierMedium
	case frac >= RejectThreshold:
		return TierLow
	default:
		return TierReject
	}
}

// MatchFeature identifies one dimension of the disambiguation model.
type MatchFeature string

const (
	FeatureName        MatchFeature = "name"
	FeatureEmailDomain MatchFeature = "email_domain"
	FeatureAffiliation MatchFeature = "affiliation"
	FeatureLocation    MatchFeature = "location"
	FeatureAge         MatchFeature = "age"
	FeatureInterests   MatchFeature = "interests"
)

// DisambiguationResult is the outcome of scoring one CandidateItem
// against an IdentityProfile. Immutable once produced.
type DisambiguationResult struct {
	Item        CandidateItem            `json:"item"`
	Score       int                      `json:"score"` // 0-100
	Tier        MatchTier                `json:"tier"`
	Explanation string                   `json:"explanation"`
	Evidence    map[MatchFeature]float64 `json:"evidence"`
	Adjudicated bool                     `json:"adjudicated,omitempty"`
}

// Accepted reports whether the item should be treated as the candidate.
func (r DisambiguationResult) Accepted() bool {
	return r.Tier == TierHigh || r.Tier == TierMedium
}
