package service

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/scoutlens/scoutlens/internal/domain"
)

// Negative markers in a signal flip its polarity for a relevant claim:
// "primarily academic network" contradicts an industry claim instead of
// supporting it.
var negativeMarkers = []string{
	"no ", "not ", "little", "rarely", "few ", "lacks", "lack of",
	"limited", "primarily academic", "mostly academic", "academic only",
	"inactive", "没有", "很少", "缺乏", "仅限",
}

// typeAffinity scores how naturally a signal type bears on a claim
// type, independent of keyword overlap.
var typeAffinity = map[domain.ClaimType]map[domain.SignalType]float64{
	domain.ClaimCollaboration: {domain.SignalNetwork: 0.8, domain.SignalContent: 0.5},
	domain.ClaimImpact:        {domain.SignalImpact: 0.8, domain.SignalEngagement: 0.7},
	domain.ClaimAchievement:   {domain.SignalImpact: 0.6, domain.SignalContent: 0.5},
	domain.ClaimSkill:         {domain.SignalContent: 0.7},
	domain.ClaimExperience:    {domain.SignalIdentity: 0.7, domain.SignalContent: 0.4},
}

// CrossValidator checks claims from dimension evaluations against
// signals from the social-presence data source and reports agreement.
type CrossValidator struct {
	logger *zap.Logger

	// MinOverlap is the keyword-overlap ratio above which a signal is
	// considered relevant to a claim regardless of type affinity.
	MinOverlap float64
}

func NewCrossValidator(logger *zap.Logger) *CrossValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CrossValidator{logger: logger, MinOverlap: 0.2}
}

// ExtractSignals derives comparable signals from the social inputs.
// Signals preserve the source wording; polarity is judged at
// validation time, never baked into extraction.
func (v *CrossValidator) ExtractSignals(presence []domain.SocialPresence, summary string, persona *domain.PersonaProfile) []domain.Signal {
	var signals []domain.Signal

	for _, p := range presence {
		src := p.Platform
		if p.Frequency != "" {
			strength := 0.5
			if f := strings.ToLower(p.Frequency); strings.Contains(f, "high") || strings.Contains(f, "daily") || strings.Contains(f, "active") {
				strength = 0.7
			}
			signals = append(signals, domain.Signal{
				Text:     fmt.Sprintf("posts with %s frequency on %s", p.Frequency, p.Platform),
				Source:   src,
				Type:     domain.SignalActivity,
				Strength: strength,
			})
		}
		if p.Followers > 0 {
			strength := 0.4
			if p.Followers >= 10000 {
				strength = 0.9
			} else if p.Followers >= 1000 {
				strength = 0.7
			}
			signals = append(signals, domain.Signal{
				Text:     fmt.Sprintf("%d followers on %s", p.Followers, p.Platform),
				Source:   src,
				Type:     domain.SignalNetwork,
				Strength: strength,
			})
		}
		if p.Engagement > 0 {
			strength := 0.5
			if p.Engagement >= 100 {
				strength = 0.8
			}
			signals = append(signals, domain.Signal{
				Text:     fmt.Sprintf("average engagement %d on %s", p.Engagement, p.Platform),
				Source:   src,
				Type:     domain.SignalEngagement,
				Strength: strength,
			})
		}
		if len(p.Topics) > 0 {
			signals = append(signals, domain.Signal{
				Text:     fmt.Sprintf("discusses %s on %s", strings.Join(p.Topics, ", "), p.Platform),
				Source:   src,
				Type:     domain.SignalContent,
				Strength: 0.6,
			})
		}
	}

	for _, sent := range splitSentences(summary) {
		if len([]rune(sent)) < 8 {
			continue
		}
		sigType := domain.SignalContent
		lower := strings.ToLower(sent)
		if strings.Contains(lower, "network") || strings.Contains(lower, "connection") || strings.Contains(lower, "collaborat") {
			sigType = domain.SignalNetwork
		}
		signals = append(signals, domain.Signal{
			Text:     sent,
			Source:   "social_summary",
			Type:     sigType,
			Strength: 0.5,
		})
	}

	if persona != nil {
		if persona.PrimaryRole != "" {
			signals = append(signals, domain.Signal{
				Text:     "primary online role: " + persona.PrimaryRole,
				Source:   "persona",
				Type:     domain.SignalIdentity,
				Strength: 0.6,
			})
		}
		if persona.RecognitionLevel != "" {
			signals = append(signals, domain.Signal{
				Text:     "recognition level: " + persona.RecognitionLevel,
				Source:   "persona",
				Type:     domain.SignalImpact,
				Strength: 0.6,
			})
		}
	}
	return signals
}

// relevant reports whether a signal bears on a claim at all.
func (v *CrossValidator) relevant(claim domain.Claim, sig domain.Signal) bool {
	if overlapRatio(claim.Text, sig.Text) >= v.MinOverlap {
		return true
	}
	lower := strings.ToLower(sig.Text)
	for _, kw := range claimTypeKeywords[claim.Type] {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	if affinity := typeAffinity[claim.Type][sig.Type]; affinity >= 0.7 && sig.Strength >= 0.5 {
		return true
	}
	return false
}

func hasNegativeMarker(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range negativeMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// ValidateClaim evaluates one claim against the signal set. Any
// contradicting signal forces at least mixed status; confirmation
// requires support with zero contradictions.
func (v *CrossValidator) ValidateClaim(claim domain.Claim, signals []domain.Signal) domain.ConsistencyResult {
	result := domain.ConsistencyResult{Claim: claim, FollowUp: domain.FollowUpNone}

	for _, sig := range signals {
		if !v.relevant(claim, sig) {
			continue
		}
		if hasNegativeMarker(sig.Text) && !hasNegativeMarker(claim.Text) {
			result.Contradicting = append(result.Contradicting, sig)
		} else {
			result.Supporting = append(result.Supporting, sig)
		}
	}

	switch {
	case len(result.Contradicting) > 0 && len(result.Supporting) > 0:
		result.Status = domain.StatusMixed
		result.Confidence = 0.5
		result.FollowUp = domain.FollowUpInterview
	case len(result.Contradicting) > 0:
		result.Status = domain.StatusContradicted
		result.Confidence = 0.2
		result.FollowUp = domain.FollowUpReferenceCheck
	case len(result.Supporting) > 0:
		result.Status = domain.StatusConfirmed
		result.Confidence = 0.8 + 0.05*float64(len(result.Supporting))
		if result.Confidence > 0.95 {
			result.Confidence = 0.95
		}
	default:
		result.Status = domain.StatusUnverified
		result.Confidence = 0.5
	}
	return result
}

// Validate runs all claims against the extracted signals and builds the
// consistency report. Contradicting signals are quoted verbatim in the
// inconsistency entries so reviewers see the source wording.
func (v *CrossValidator) Validate(claims []domain.Claim, signals []domain.Signal) domain.ConsistencyReport {
	report := domain.ConsistencyReport{}
	if len(claims) == 0 {
		report.Score = 0.5
		report.Summary = "no verifiable claims extracted; consistency neutral"
		return report
	}

	var confirmed, contradicted, mixed, unverified int
	for _, claim := range claims {
		result := v.ValidateClaim(claim, signals)
		report.Results = append(report.Results, result)
		switch result.Status {
		case domain.StatusConfirmed:
			confirmed++
		case domain.StatusContradicted:
			contradicted++
			report.Inconsistencies = append(report.Inconsistencies, result)
		case domain.StatusMixed:
			mixed++
			report.Inconsistencies = append(report.Inconsistencies, result)
		default:
			unverified++
		}
	}

	total := len(claims)
	report.Score = (float64(confirmed) + 0.5*float64(unverified)) / float64(total)
	report.Summary = fmt.Sprintf(
		"%d claims checked against %d signals: %d confirmed, %d contradicted, %d mixed, %d unverified (consistency %.2f)",
		total, len(signals), confirmed, contradicted, mixed, unverified, report.Score)

	if contradicted+mixed > 0 {
		v.logger.Info("cross-validation found inconsistencies",
			zap.Int("contradicted", contradicted),
			zap.Int("mixed", mixed))
	}
	return report
}
