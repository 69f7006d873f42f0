package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutlens/scoutlens/internal/domain"
)

func TestExtractSignalsFromPresence(t *testing.T) {
	v := NewCrossValidator(nil)
	presence := []domain.SocialPresence{{
		Platform:   "github",
		Followers:  12000,
		Frequency:  "high",
		Engagement: 150,
		Topics:     []string{"distributed systems", "go"},
	}}

	signals := v.ExtractSignals(presence, "", nil)
	require.Len(t, signals, 4)

	byType := map[domain.SignalType]domain.Signal{}
	for _, s := range signals {
		byType[s.Type] = s
	}
	assert.Contains(t, byType, domain.SignalActivity)
	assert.Contains(t, byType, domain.SignalNetwork)
	assert.Contains(t, byType, domain.SignalEngagement)
	assert.Contains(t, byType, domain.SignalContent)
	assert.InDelta(t, 0.9, byType[domain.SignalNetwork].Strength, 0.001, "12k followers is a strong network signal")
	assert.Equal(t, "github", byType[domain.SignalNetwork].Source)
}

func TestExtractSignalsFromSummaryAndPersona(t *testing.T) {
	v := NewCrossValidator(nil)
	summary := "Maintains a primarily academic network with few industry connections. Posts regularly about research."
	persona := &domain.PersonaProfile{PrimaryRole: "researcher", RecognitionLevel: "emerging"}

	signals := v.ExtractSignals(nil, summary, persona)
	require.Len(t, signals, 4)

	assert.Equal(t, domain.SignalNetwork, signals[0].Type, "network wording should type the signal")
	assert.Equal(t, "social_summary", signals[0].Source)
	assert.Equal(t, domain.SignalIdentity, signals[2].Type)
	assert.Equal(t, domain.SignalImpact, signals[3].Type)
}

func TestValidateClaimContradictedByNegativeSignal(t *testing.T) {
	v := NewCrossValidator(nil)
	claim := domain.Claim{
		Text: "maintains close industry collaboration",
		Type: domain.ClaimCollaboration,
	}
	signals := []domain.Signal{{
		Text:     "Maintains a primarily academic network with few industry connections",
		Source:   "social_summary",
		Type:     domain.SignalNetwork,
		Strength: 0.5,
	}}

	result := v.ValidateClaim(claim, signals)
	assert.Equal(t, domain.StatusContradicted, result.Status)
	assert.InDelta(t, 0.2, result.Confidence, 0.001)
	assert.Equal(t, domain.FollowUpReferenceCheck, result.FollowUp)
	require.Len(t, result.Contradicting, 1)
	assert.Equal(t, signals[0].Text, result.Contradicting[0].Text, "contradicting signal must be quoted verbatim")
}

func TestValidateClaimConfirmed(t *testing.T) {
	v := NewCrossValidator(nil)
	claim := domain.Claim{
		Text: "actively collaborates with industry partners",
		Type: domain.ClaimCollaboration,
	}
	signals := []domain.Signal{
		{Text: "frequent joint posts with industry partner labs", Type: domain.SignalNetwork, Strength: 0.7},
		{Text: "discusses collaboration projects on github", Type: domain.SignalContent, Strength: 0.6},
	}

	result := v.ValidateClaim(claim, signals)
	assert.Equal(t, domain.StatusConfirmed, result.Status)
	assert.InDelta(t, 0.9, result.Confidence, 0.001)
	assert.Equal(t, domain.FollowUpNone, result.FollowUp)
	assert.Empty(t, result.Contradicting)
}

func TestValidateClaimMixed(t *testing.T) {
	v := NewCrossValidator(nil)
	claim := domain.Claim{
		Text: "maintains close industry collaboration",
		Type: domain.ClaimCollaboration,
	}
	signals := []domain.Signal{
		{Text: "joint industry collaboration posts", Type: domain.SignalNetwork, Strength: 0.7},
		{Text: "primarily academic network with little industry presence", Type: domain.SignalNetwork, Strength: 0.5},
	}

	result := v.ValidateClaim(claim, signals)
	assert.Equal(t, domain.StatusMixed, result.Status, "any contradicting signal forces at least mixed")
	assert.Equal(t, domain.FollowUpInterview, result.FollowUp)
	assert.Len(t, result.Supporting, 1)
	assert.Len(t, result.Contradicting, 1)
}

func TestValidateClaimUnverified(t *testing.T) {
	v := NewCrossValidator(nil)
	claim := domain.Claim{Text: "expert in quantum error correction", Type: domain.ClaimSkill}
	signals := []domain.Signal{
		{Text: "2000 followers on github", Type: domain.SignalNetwork, Strength: 0.7},
	}

	result := v.ValidateClaim(claim, signals)
	assert.Equal(t, domain.StatusUnverified, result.Status)
	assert.InDelta(t, 0.5, result.Confidence, 0.001)
}

func TestValidateReportScore(t *testing.T) {
	v := NewCrossValidator(nil)
	claims := []domain.Claim{
		{Text: "actively collaborates with industry partners", Type: domain.ClaimCollaboration}, // confirmed
		{Text: "expert in quantum error correction", Type: domain.ClaimSkill},                   // unverified
	}
	signals := []domain.Signal{
		{Text: "frequent joint posts with industry partner labs", Type: domain.SignalNetwork, Strength: 0.7},
	}

	report := v.Validate(claims, signals)
	require.Len(t, report.Results, 2)
	// (1 confirmed + 0.5 * 1 unverified) / 2
	assert.InDelta(t, 0.75, report.Score, 0.001)
	assert.Empty(t, report.Inconsistencies)
	assert.NotEmpty(t, report.Summary)
}

func TestValidateCollectsInconsistencies(t *testing.T) {
	v := NewCrossValidator(nil)
	claims := []domain.Claim{
		{Text: "maintains close industry collaboration", Type: domain.ClaimCollaboration},
	}
	signals := []domain.Signal{
		{Text: "primarily academic network with few industry connections", Type: domain.SignalNetwork, Strength: 0.5},
	}

	report := v.Validate(claims, signals)
	require.Len(t, report.Inconsistencies, 1)
	assert.Equal(t, domain.StatusContradicted, report.Inconsistencies[0].Status)
	assert.Equal(t, 0.0, report.Score)
}

func TestValidateNoClaimsIsNeutral(t *testing.T) {
	v := NewCrossValidator(nil)
	report := v.Validate(nil, nil)
	assert.InDelta(t, 0.5, report.Score, 0.001)
	assert.Empty(t, report.Results)
	assert.NotEmpty(t, report.Summary)
}
