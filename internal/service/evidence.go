package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scoutlens/scoutlens/internal/domain"
)

// errClaimParse marks an LLM extraction whose output could not be
// parsed as the expected JSON array. It triggers the heuristic
// fallback; it is never surfaced to callers.
var errClaimParse = fmt.Errorf("claim extraction output is not valid JSON")

var claimTypeKeywords = map[domain.ClaimType][]string{
	domain.ClaimAchievement: {
		"published", "award", "prize", "won", "achieved", "first", "best",
		"top", "recognized", "发表", "获得", "奖", "第一",
	},
	domain.ClaimSkill: {
		"proficient", "skilled", "expertise", "experienced in", "mastery",
		"fluent", "capable", "擅长", "精通", "熟悉",
	},
	domain.ClaimImpact: {
		"cited", "citations", "influence", "impact", "adopted", "widely",
		"led to", "improved", "引用", "影响",
	},
	domain.ClaimCollaboration: {
		"collaborat", "co-author", "coauthor", "partner", "joint", "team",
		"industry", "together with", "合作", "联合",
	},
	domain.ClaimExperience: {
		"worked", "years", "experience", "served", "position", "role",
		"internship", "工作", "经验", "实习",
	},
}

// EvidenceService extracts verifiable claims from dimension evaluations
// and links each claim to supporting facts in the enriched record.
type EvidenceService struct {
	llm    domain.InferenceClient
	embed  domain.EmbeddingClient
	logger *zap.Logger

	// RelevanceFloor is the minimum relevance for evidence to attach to
	// a claim. Below it, evidence is discarded rather than padded in.
	RelevanceFloor float64
	MaxClaims      int
	MaxEvidence    int
}

// NewEvidenceService builds a chain builder. llm may be nil (heuristic
// extraction only) and embed may be nil (keyword relevance only).
func NewEvidenceService(llm domain.InferenceClient, embed domain.EmbeddingClient, logger *zap.Logger) *EvidenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvidenceService{
		llm:            llm,
		embed:          embed,
		logger:         logger,
		RelevanceFloor: 0.5,
		MaxClaims:      5,
		MaxEvidence:    5,
	}
}

// ExtractClaims pulls atomic claims out of one dimension's evaluation
// text. LLM extraction is attempted first; any failure, including
// unparseable output, falls back to the keyword heuristic so a run is
// never blocked on extraction.
func (s *EvidenceService) ExtractClaims(ctx context.Context, dimension, text string) []domain.Claim {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if s.llm != nil {
		claims, err := s.llmExtract(ctx, dimension, text)
		if err == nil {
			return claims
		}
		s.logger.Warn("llm claim extraction failed, using heuristic fallback",
			zap.String("dimension", dimension),
			zap.Error(err))
	}
	return s.heuristicExtract(dimension, text)
}

type rawClaim struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// claimID is a name-based UUID over the dimension and claim text, so
// re-extraction over identical input yields identical claims.
func claimID(dimension, text string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(dimension+"\x00"+text))
}

func (s *EvidenceService) llmExtract(ctx context.Context, dimension, text string) ([]domain.Claim, error) {
	prompt := fmt.Sprintf(`Extract the key verifiable claims from this candidate evaluation.

A claim is one atomic assertion that could be checked against publications, awards, projects, or online presence. Valid types: achievement, skill, impact, collaboration, experience, general.

Example evaluation: "She published three papers at top venues and maintains strong ties with industry labs."
Example output:
[{"text":"published three papers at top venues","type":"achievement"},{"text":"maintains strong ties with industry labs","type":"collaboration"}]

Evaluation dimension: %s
Evaluation text:
%s

Respond with a JSON array only, at most %d claims, no commentary.`, dimension, text, s.MaxClaims)

	out, err := s.llm.Infer(ctx, prompt, domain.InferOptions{
		System:      "You extract verifiable claims from evaluation text. Output strict JSON.",
		Temperature: 0.1,
		MaxTokens:   600,
	})
	if err != nil {
		return nil, err
	}

	raw, err := parseClaimJSON(out)
	if err != nil {
		return nil, err
	}

	claims := make([]domain.Claim, 0, len(raw))
	for _, rc := range raw {
		ct := strings.TrimSpace(rc.Text)
		if ct == "" {
			continue
		}
		claimType := domain.ClaimGeneral
		if domain.ValidClaimType(rc.Type) {
			claimType = domain.ClaimType(rc.Type)
		}
		claims = append(claims, domain.Claim{
			ID:         claimID(dimension, ct),
			Text:       ct,
			Dimension:  dimension,
			Type:       claimType,
			Method:     domain.MethodLLM,
			Confidence: domain.MethodLLM.InitialConfidence(),
		})
		if len(claims) == s.MaxClaims {
			break
		}
	}
	if len(claims) == 0 {
		return nil, errClaimParse
	}
	return claims, nil
}

// parseClaimJSON tolerates markdown fences and leading prose around the
// JSON array, but nothing looser than that.
func parseClaimJSON(out string) ([]rawClaim, error) {
	cleaned := strings.TrimSpace(out)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start < 0 || end <= start {
		return nil, errClaimParse
	}

	var raw []rawClaim
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errClaimParse, err)
	}
	return raw, nil
}

func (s *EvidenceService) heuristicExtract(dimension, text string) []domain.Claim {
	sentences := splitSentences(text)

	var claims []domain.Claim
	for _, sent := range sentences {
		if len([]rune(sent)) < 8 || len([]rune(sent)) > 300 {
			continue
		}
		claimType, matched := classifyClaim(sent)
		if !matched {
			continue
		}
		claims = append(claims, domain.Claim{
			ID:         claimID(dimension, sent),
			Text:       sent,
			Dimension:  dimension,
			Type:       claimType,
			Method:     domain.MethodHeuristic,
			Confidence: domain.MethodHeuristic.InitialConfidence(),
		})
		if len(claims) == s.MaxClaims {
			return claims
		}
	}

	// Nothing matched the vocabularies; keep the leading sentences as
	// general claims rather than dropping the dimension entirely.
	if len(claims) == 0 {
		for _, sent := range sentences {
			if len([]rune(sent)) < 8 {
				continue
			}
			claims = append(claims, domain.Claim{
				ID:         claimID(dimension, sent),
				Text:       sent,
				Dimension:  dimension,
				Type:       domain.ClaimGeneral,
				Method:     domain.MethodHeuristic,
				Confidence: domain.MethodHeuristic.InitialConfidence(),
			})
			if len(claims) == 3 {
				break
			}
		}
	}
	return claims
}

func splitSentences(text string) []string {
	var out []string
	var sb strings.Builder
	for _, r := range text {
		switch r {
		case '.', '!', '?', ';', '。', '！', '？', '；', '\n':
			if s := strings.TrimSpace(sb.String()); s != "" {
				out = append(out, s)
			}
			sb.Reset()
		default:
			sb.WriteRune(r)
		}
	}
	if s := strings.TrimSpace(sb.String()); s != "" {
		out = append(out, s)
	}
	return out
}

func classifyClaim(sentence string) (domain.ClaimType, bool) {
	lower := strings.ToLower(sentence)
	bestType := domain.ClaimGeneral
	bestHits := 0
	for claimType, kws := range claimTypeKeywords {
		hits := 0
		for _, kw := range kws {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			bestType = claimType
		}
	}
	return bestType, bestHits > 0
}

// evidencePool is the searchable corpus derived from enriched facts.
type evidencePool struct {
	source  domain.EvidenceSource
	ref     string
	text    string
	snippet string
}

func buildPool(pubs []domain.Publication, awards []domain.Award, projects []domain.Project) []evidencePool {
	var pool []evidencePool
	for i, p := range pubs {
		pool = append(pool, evidencePool{
			source:  domain.SourcePublication,
			ref:     fmt.Sprintf("pub-%d", i),
			text:    strings.Join([]string{p.Title, p.Venue, p.Abstract, p.Summary}, " "),
			snippet: p.Title,
		})
	}
	for i, a := range awards {
		pool = append(pool, evidencePool{
			source:  domain.SourceAward,
			ref:     fmt.Sprintf("award-%d", i),
			text:    a.Name + " " + a.Intro,
			snippet: a.Name,
		})
	}
	for i, p := range projects {
		pool = append(pool, evidencePool{
			source:  domain.SourceProject,
			ref:     fmt.Sprintf("project-%d", i),
			text:    p.Name + " " + p.Description,
			snippet: p.Name,
		})
	}
	return pool
}

// BuildChain links one claim to the most relevant evidence. A claim
// with nothing above the relevance floor yields confidence 0 and an
// explicit unverifiable flag; relevance is never inflated to fill the
// chain.
func (s *EvidenceService) BuildChain(ctx context.Context, claim domain.Claim, pool []evidencePool) domain.EvidenceChain {
	var items []domain.EvidenceItem
	for _, entry := range pool {
		rel := s.relevance(ctx, claim.Text, entry.text)
		if rel < s.RelevanceFloor {
			continue
		}
		items = append(items, domain.EvidenceItem{
			Source:    entry.source,
			Ref:       entry.ref,
			Relevance: rel,
			Snippet:   entry.snippet,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Relevance > items[j].Relevance
	})
	if len(items) > s.MaxEvidence {
		items = items[:s.MaxEvidence]
	}

	chain := domain.EvidenceChain{Claim: claim, Evidence: items}
	if len(items) == 0 {
		chain.Unverifiable = true
		return chain
	}

	top := items
	if len(top) > 3 {
		top = top[:3]
	}
	var sum float64
	for _, it := range top {
		sum += it.Relevance
	}
	confidence := sum/float64(len(top)) + math.Min(0.2, 0.05*float64(len(items)))
	if confidence > 1 {
		confidence = 1
	}
	chain.Confidence = confidence
	return chain
}

func (s *EvidenceService) relevance(ctx context.Context, claim, text string) float64 {
	rel := overlapRatio(claim, text)
	if s.embed == nil {
		return rel
	}

	cv, err := s.embed.Embed(ctx, claim)
	if err != nil {
		return rel
	}
	tv, err := s.embed.Embed(ctx, text)
	if err != nil {
		return rel
	}
	if cos := cosine(cv, tv); cos > rel {
		rel = cos
	}
	return rel
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if cos < 0 {
		return 0
	}
	return cos
}

// AssessDimension produces the full assessment for one evaluation:
// extracted claims, their evidence chains, and an auditable breakdown
// when the evaluation carries a numeric score.
func (s *EvidenceService) AssessDimension(ctx context.Context, eval domain.DimensionEvaluation, pubs []domain.Publication, awards []domain.Award, projects []domain.Project) domain.DimensionAssessment {
	claims := s.ExtractClaims(ctx, eval.Dimension, eval.Text)
	pool := buildPool(pubs, awards, projects)

	chains := make([]domain.EvidenceChain, 0, len(claims))
	for _, claim := range claims {
		chains = append(chains, s.BuildChain(ctx, claim, pool))
	}

	assessment := domain.DimensionAssessment{
		Dimension: eval.Dimension,
		Text:      eval.Text,
		Score:     eval.Score,
		Chains:    chains,
	}
	if eval.Score > 0 {
		assessment.Breakdown = buildBreakdown(eval.Score, chains)
	}
	return assessment
}

// buildBreakdown decomposes a stated dimension score into the evidence
// behind it so reviewers can audit where the number came from.
func buildBreakdown(score float64, chains []domain.EvidenceChain) *domain.ScoreBreakdown {
	breakdown := &domain.ScoreBreakdown{FinalScore: score}
	if len(chains) == 0 {
		breakdown.Calculation = fmt.Sprintf("stated score %.1f with no extractable claims", score)
		return breakdown
	}

	weight := 1.0 / float64(len(chains))
	var verified int
	var sum float64
	for _, chain := range chains {
		desc := string(chain.Claim.Method) + " extraction"
		if chain.Unverifiable {
			desc += ", unverifiable"
		} else {
			verified++
		}
		breakdown.Components = append(breakdown.Components, domain.ScoreComponent{
			Name:        truncateStr(chain.Claim.Text, 60),
			Score:       chain.Confidence,
			Weight:      weight,
			Description: desc,
		})
		sum += chain.Confidence
	}

	breakdown.Calculation = fmt.Sprintf(
		"stated score %.1f; %d/%d claims verifiable; mean chain confidence %.2f",
		score, verified, len(chains), sum/float64(len(chains)))
	return breakdown
}
