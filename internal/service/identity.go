package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/scoutlens/scoutlens/internal/domain"
)

// IdentityService scores retrieved items against a candidate profile to
// decide whether they refer to the same person. Scoring is a weighted
// combination of per-feature heuristics; items landing in the ambiguous
// band are escalated to the inference client for adjudication.
type IdentityService struct {
	llm    domain.InferenceClient
	logger *zap.Logger

	// Weights are tunable per deployment. They do not need to sum to 1;
	// the weighted score is normalized by the total weight.
	Weights map[domain.MatchFeature]float64

	// ConservativeThreshold applies when adjudication is unavailable or
	// fails: ambiguous items at or above it are kept, below it rejected.
	ConservativeThreshold float64

	// MaxAgeGap is the largest tolerated distance in years between the
	// profile and item age ranges before the item is rejected outright.
	MaxAgeGap int
}

// DefaultWeights returns the standard feature weighting.
func DefaultWeights() map[domain.MatchFeature]float64 {
	return map[domain.MatchFeature]float64{
		domain.FeatureName:        0.25,
		domain.FeatureEmailDomain: 0.20,
		domain.FeatureAffiliation: 0.20,
		domain.FeatureLocation:    0.10,
		domain.FeatureAge:         0.10,
		domain.FeatureInterests:   0.15,
	}
}

// NewIdentityService builds an identity resolver. llm may be nil, in
// which case ambiguous items are decided by ConservativeThreshold.
func NewIdentityService(llm domain.InferenceClient, logger *zap.Logger) *IdentityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{
		llm:                   llm,
		logger:                logger,
		Weights:               DefaultWeights(),
		ConservativeThreshold: 0.60,
		MaxAgeGap:             10,
	}
}

// Resolve scores item against profile and returns a tiered decision.
func (s *IdentityService) Resolve(ctx context.Context, profile domain.IdentityProfile, item domain.CandidateItem) domain.DisambiguationResult {
	evidence := map[domain.MatchFeature]float64{
		domain.FeatureName:        s.nameScore(profile, item),
		domain.FeatureEmailDomain: s.emailScore(profile, item),
		domain.FeatureAffiliation: s.affiliationScore(profile, item),
		domain.FeatureLocation:    s.locationScore(profile, item),
		domain.FeatureInterests:   s.interestScore(profile, item),
	}
	ageScore, ageReject := s.ageScore(profile, item)
	evidence[domain.FeatureAge] = ageScore

	frac := s.weighted(evidence)
	if frac < 0 || frac > 1 {
		panic(fmt.Sprintf("identity: weighted score %f out of range", frac))
	}

	result := domain.DisambiguationResult{
		Item:     item,
		Score:    int(math.Round(frac * 100)),
		Evidence: evidence,
	}

	if ageReject {
		result.Tier = domain.TierReject
		result.Explanation = fmt.Sprintf("rejected: age ranges more than %d years apart", s.MaxAgeGap)
		return result
	}

	result.Tier = domain.TierFor(frac)
	if frac >= domain.HighThreshold || frac < domain.RejectThreshold {
		result.Explanation = s.explain(result.Tier, evidence)
		return result
	}

	// Ambiguous band. Prefer adjudication; fall back to the
	// conservative threshold when no client is configured or it errors.
	decision, err := s.adjudicate(ctx, profile, item, evidence, frac)
	if err != nil {
		s.logger.Warn("identity adjudication unavailable, applying conservative threshold",
			zap.String("item_name", item.Name),
			zap.Error(err))
		if frac >= s.ConservativeThreshold {
			result.Tier = domain.TierMedium
		} else {
			result.Tier = domain.TierReject
		}
		result.Explanation = s.explain(result.Tier, evidence) + " (conservative fallback)"
		return result
	}

	result.Adjudicated = true
	if decision {
		if result.Tier != domain.TierHigh {
			result.Tier = domain.TierMedium
		}
	} else {
		result.Tier = domain.TierReject
	}
	result.Explanation = s.explain(result.Tier, evidence) + " (adjudicated)"
	return result
}

// ResolveAll scores every item and returns only accepted matches,
// highest score first.
func (s *IdentityService) ResolveAll(ctx context.Context, profile domain.IdentityProfile, items []domain.CandidateItem) []domain.DisambiguationResult {
	var accepted []domain.DisambiguationResult
	for _, item := range items {
		r := s.Resolve(ctx, profile, item)
		if r.Accepted() {
			accepted = append(accepted, r)
		}
	}
	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].Score > accepted[j].Score
	})
	return accepted
}

func (s *IdentityService) weighted(evidence map[domain.MatchFeature]float64) float64 {
	var sum, total float64
	for feature, weight := range s.Weights {
		sum += evidence[feature] * weight
		total += weight
	}
	if total == 0 {
		return 0
	}
	return sum / total
}

func (s *IdentityService) nameScore(profile domain.IdentityProfile, item domain.CandidateItem) float64 {
	if item.Name == "" {
		return 0
	}
	best := NameMatchScore(profile.Name, item.Name)
	for _, variant := range profile.NameVariants {
		if score := NameMatchScore(variant, item.Name); score > best {
			best = score
		}
	}
	return best
}

func (s *IdentityService) emailScore(profile domain.IdentityProfile, item domain.CandidateItem) float64 {
	if item.Email == "" || len(profile.EmailDomains) == 0 {
		return 0
	}
	at := strings.LastIndex(item.Email, "@")
	if at < 0 {
		return 0
	}
	itemDomain := strings.ToLower(item.Email[at+1:])
	for _, d := range profile.EmailDomains {
		if strings.EqualFold(strings.TrimSpace(d), itemDomain) {
			return 1
		}
	}
	return 0
}

func (s *IdentityService) affiliationScore(profile domain.IdentityProfile, item domain.CandidateItem) float64 {
	if len(profile.Affiliations) == 0 {
		return 0
	}
	score := listSimilarity(profile.Affiliations, item.Affiliations)
	// Items often carry affiliations only inside free text.
	if textMentionsAny(profile.Affiliations, item.Title+" "+item.Snippet) && score < 0.8 {
		score = 0.8
	}
	return score
}

func (s *IdentityService) locationScore(profile domain.IdentityProfile, item domain.CandidateItem) float64 {
	p := normalizeText(profile.Location)
	i := normalizeText(item.Location)
	if p == "" || i == "" {
		return 0
	}
	if p == i || strings.Contains(p, i) || strings.Contains(i, p) {
		return 1
	}
	return 0
}

func (s *IdentityService) interestScore(profile domain.IdentityProfile, item domain.CandidateItem) float64 {
	if len(profile.Interests) == 0 {
		return 0
	}
	score := listSimilarity(profile.Interests, item.Interests)
	if text := item.Title + " " + item.Snippet; text != " " {
		matched := 0
		for _, interest := range profile.Interests {
			if overlapRatio(interest, text) >= 0.5 {
				matched++
			}
		}
		if textual := float64(matched) / float64(len(profile.Interests)); textual > score {
			score = textual
		}
	}
	return score
}

// ageScore returns the age feature score and whether the gap between
// the two ranges is a hard disqualifier.
func (s *IdentityService) ageScore(profile domain.IdentityProfile, item domain.CandidateItem) (float64, bool) {
	if profile.AgeRange == nil || item.AgeRange == nil {
		return 0, false
	}
	p, i := profile.AgeRange, item.AgeRange

	// Overlapping ranges are a full match.
	if p.Min <= i.Max && i.Min <= p.Max {
		return 1, false
	}

	gap := p.Min - i.Max
	if i.Min > p.Max {
		gap = i.Min - p.Max
	}
	if gap > s.MaxAgeGap {
		return 0, true
	}
	return 0.5, false
}

func (s *IdentityService) adjudicate(ctx context.Context, profile domain.IdentityProfile, item domain.CandidateItem, evidence map[domain.MatchFeature]float64, frac float64) (bool, error) {
	if s.llm == nil {
		return false, fmt.Errorf("no inference client configured")
	}

	var sb strings.Builder
	sb.WriteString("You are verifying whether an online item belongs to a specific person.\n\n")
	fmt.Fprintf(&sb, "Person: %s\n", profile.Name)
	if len(profile.Affiliations) > 0 {
		fmt.Fprintf(&sb, "Affiliations: %s\n", strings.Join(profile.Affiliations, "; "))
	}
	if len(profile.Interests) > 0 {
		fmt.Fprintf(&sb, "Interests: %s\n", strings.Join(profile.Interests, "; "))
	}
	if profile.Location != "" {
		fmt.Fprintf(&sb, "Location: %s\n", profile.Location)
	}
	fmt.Fprintf(&sb, "\nItem name: %s\n", item.Name)
	if item.Title != "" {
		fmt.Fprintf(&sb, "Item title: %s\n", item.Title)
	}
	if item.Snippet != "" {
		fmt.Fprintf(&sb, "Item snippet: %s\n", item.Snippet)
	}
	fmt.Fprintf(&sb, "\nHeuristic feature scores (0-1): name=%.2f email=%.2f affiliation=%.2f location=%.2f age=%.2f interests=%.2f, weighted=%.2f\n",
		evidence[domain.FeatureName], evidence[domain.FeatureEmailDomain],
		evidence[domain.FeatureAffiliation], evidence[domain.FeatureLocation],
		evidence[domain.FeatureAge], evidence[domain.FeatureInterests], frac)
	sb.WriteString("\nAnswer with exactly one word: MATCH if the item is about this person, REJECT otherwise.")

	out, err := s.llm.Infer(ctx, sb.String(), domain.InferOptions{
		System:      "You verify identity matches for candidate research. Answer MATCH or REJECT only.",
		Temperature: 0,
		MaxTokens:   8,
	})
	if err != nil {
		return false, err
	}

	verdict := strings.ToUpper(strings.TrimSpace(out))
	switch {
	case strings.Contains(verdict, "MATCH"):
		return true, nil
	case strings.Contains(verdict, "REJECT"):
		return false, nil
	default:
		return false, fmt.Errorf("unparseable adjudication verdict: %q", truncateStr(out, 80))
	}
}

func (s *IdentityService) explain(tier domain.MatchTier, evidence map[domain.MatchFeature]float64) string {
	var strong, weak []string
	order := []domain.MatchFeature{
		domain.FeatureName, domain.FeatureEmailDomain, domain.FeatureAffiliation,
		domain.FeatureLocation, domain.FeatureAge, domain.FeatureInterests,
	}
	for _, f := range order {
		switch v := evidence[f]; {
		case v >= 0.7:
			strong = append(strong, string(f))
		case v > 0 && v < 0.3:
			weak = append(weak, string(f))
		}
	}

	var sb strings.Builder
	switch tier {
	case domain.TierHigh:
		sb.WriteString("high confidence match")
	case domain.TierMedium:
		sb.WriteString("probable match")
	case domain.TierLow:
		sb.WriteString("weak match")
	default:
		sb.WriteString("rejected")
	}
	if len(strong) > 0 {
		sb.WriteString("; strong evidence: " + strings.Join(strong, ", "))
	}
	if len(weak) > 0 {
		sb.WriteString("; weak evidence: " + strings.Join(weak, ", "))
	}
	return sb.String()
}

// NameMatchScore compares two person names and returns a similarity in
// [0,1]. Logographic names match on exact runes with a hard length
// rule; alphabetic names match token-wise and tolerate initials and
// reversed ordering, but never a differing token count.
func NameMatchScore(a, b string) float64 {
	na, nb := normalizeText(a), normalizeText(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	if isLogographic(na) || isLogographic(nb) {
		return logographicNameScore(na, nb)
	}

	ta, tb := strings.Fields(na), strings.Fields(nb)
	if len(ta) != len(tb) {
		return 0
	}

	best := tokenOrderScore(ta, tb)
	if rev := tokenOrderScore(ta, reversed(tb)); rev > best {
		// Reversed ordering is plausible but slightly less certain.
		best = rev * 0.95
	}
	return best
}

func logographicNameScore(a, b string) float64 {
	ra := []rune(strings.ReplaceAll(a, " ", ""))
	rb := []rune(strings.ReplaceAll(b, " ", ""))

	// A differing character count is a different name, never a
	// subset. 王明 and 王明华 are distinct people.
	if len(ra) != len(rb) {
		return 0
	}

	matched := 0
	for i := range ra {
		if ra[i] == rb[i] {
			matched++
		}
	}
	if matched == len(ra) {
		return 1
	}
	return float64(matched) / float64(len(ra)) * 0.6
}

// tokenOrderScore aligns equal-length token slices pairwise. A pair
// matches fully, matches as an initial, or disqualifies the ordering.
func tokenOrderScore(ta, tb []string) float64 {
	full, initial := 0, 0
	for i := range ta {
		x, y := ta[i], tb[i]
		switch {
		case x == y:
			full++
		case isInitialOf(x, y) || isInitialOf(y, x):
			initial++
		default:
			return 0
		}
	}
	switch {
	case full == len(ta):
		return 1
	case full >= 1 && full+initial == len(ta):
		return 0.9
	case initial == len(ta) && len(ta) >= 2:
		// All-initials matches are weak evidence on their own.
		return 0.7
	default:
		return 0
	}
}

func isInitialOf(short, long string) bool {
	rs := []rune(short)
	rl := []rune(long)
	return len(rs) == 1 && len(rl) > 1 && rs[0] == rl[0]
}

func reversed(s []string) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}

func truncateStr(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
