package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scoutlens/scoutlens/internal/domain"
	"github.com/scoutlens/scoutlens/internal/governor"
	"github.com/scoutlens/scoutlens/internal/worker"
)

var dateRe = regexp.MustCompile(`\b(\d{4})[-/.](\d{1,2})(?:[-/.](\d{1,2}))?\b`)

var socialPlatforms = []string{"github", "linkedin", "twitter"}

// EnrichService orchestrates one enrichment run: concurrent per-item
// retrieval for each category, identity filtering of social results,
// evidence chains per dimension, and cross-source validation. The
// output record is always produced; partial failure degrades it
// instead of aborting it.
type EnrichService struct {
	search   domain.SearchClient
	fetcher  domain.PageFetcher
	llm      domain.InferenceClient
	identity *IdentityService
	evidence *EvidenceService
	crossval *CrossValidator
	store    domain.RunStore
	logger   *zap.Logger

	PublicationWorkers int
	AwardWorkers       int
	SocialWorkers      int
	BudgetMaxCalls     int
	BudgetWallClock    time.Duration
}

// NewEnrichService wires the run orchestrator. fetcher, llm and store
// may be nil; the corresponding steps are then skipped or degraded.
func NewEnrichService(
	search domain.SearchClient,
	fetcher domain.PageFetcher,
	llm domain.InferenceClient,
	identity *IdentityService,
	evidence *EvidenceService,
	crossval *CrossValidator,
	store domain.RunStore,
	logger *zap.Logger,
) *EnrichService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrichService{
		search:             search,
		fetcher:            fetcher,
		llm:                llm,
		identity:           identity,
		evidence:           evidence,
		crossval:           crossval,
		store:              store,
		logger:             logger,
		PublicationWorkers: 8,
		AwardWorkers:       8,
		SocialWorkers:      4,
	}
}

// Run executes a full enrichment for one resume.
func (s *EnrichService) Run(ctx context.Context, resume domain.ResumeProfile) (*domain.EnrichedProfile, error) {
	if strings.TrimSpace(resume.BasicInfo.Name) == "" {
		return nil, fmt.Errorf("resume has no candidate name")
	}

	record := &domain.EnrichedProfile{
		RunID:         uuid.New(),
		CandidateName: resume.BasicInfo.Name,
		Identity:      BuildIdentityProfile(resume),
		StartedAt:     time.Now().UTC(),
	}
	budget := governor.NewBudget(s.BudgetMaxCalls, s.BudgetWallClock)
	// Every outbound call in the run draws from this budget through the
	// context, including claim extraction, adjudication, and fetches.
	ctx = governor.WithBudget(ctx, budget)

	s.logger.Info("enrichment run started",
		zap.String("run_id", record.RunID.String()),
		zap.String("candidate", record.CandidateName),
		zap.Int("publications", len(resume.Publications)),
		zap.Int("awards", len(resume.Awards)))

	record.Publications, record.Categories = s.enrichPublications(ctx, budget, record.Identity, resume.Publications, record.Categories)
	record.Awards, record.Categories = s.enrichAwards(ctx, budget, resume.Awards, record.Categories)
	record.SocialMatches, record.Categories = s.discoverSocial(ctx, budget, record.Identity, record.Categories)

	for _, cat := range record.Categories {
		if cat.Warning != "" {
			record.Warnings = append(record.Warnings, cat.Warning)
		}
	}

	var allClaims []domain.Claim
	for _, eval := range resume.Evaluations {
		assessment := s.evidence.AssessDimension(ctx, eval, record.Publications, record.Awards, resume.Projects)
		record.Dimensions = append(record.Dimensions, assessment)
		for _, chain := range assessment.Chains {
			allClaims = append(allClaims, chain.Claim)
		}
	}

	signals := s.crossval.ExtractSignals(resume.SocialPresence, resume.SocialSummary, resume.Persona)
	record.Consistency = s.crossval.Validate(allClaims, signals)

	record.FinishedAt = time.Now().UTC()

	if s.store != nil {
		if err := s.store.Save(ctx, record); err != nil {
			s.logger.Error("failed to persist run", zap.String("run_id", record.RunID.String()), zap.Error(err))
			record.Warnings = append(record.Warnings, "run persistence failed: "+err.Error())
		}
	}

	s.logger.Info("enrichment run finished",
		zap.String("run_id", record.RunID.String()),
		zap.Int64("external_calls", budget.Used()),
		zap.Duration("elapsed", record.FinishedAt.Sub(record.StartedAt)))
	return record, nil
}

// BuildIdentityProfile derives the disambiguation features from the
// resume. It is pure; retrieval never mutates it.
func BuildIdentityProfile(resume domain.ResumeProfile) domain.IdentityProfile {
	profile := domain.IdentityProfile{
		Name:      resume.BasicInfo.Name,
		Location:  resume.BasicInfo.Location,
		Interests: append([]string(nil), resume.ResearchInterests...),
	}

	if tokens := strings.Fields(resume.BasicInfo.Name); len(tokens) >= 2 {
		profile.NameVariants = append(profile.NameVariants, strings.Join(reversed(tokens), " "))
	}

	if at := strings.LastIndex(resume.BasicInfo.Email, "@"); at >= 0 {
		profile.EmailDomains = append(profile.EmailDomains, strings.ToLower(resume.BasicInfo.Email[at+1:]))
	}

	seen := map[string]struct{}{}
	addAffiliation := func(name string) {
		n := strings.TrimSpace(name)
		if n == "" {
			return
		}
		key := strings.ToLower(n)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		profile.Affiliations = append(profile.Affiliations, n)
	}
	for _, edu := range resume.Education {
		addAffiliation(edu.School)
	}
	for _, work := range resume.WorkExperience {
		addAffiliation(work.Company)
	}

	for _, pub := range resume.Publications {
		profile.PublicationTitles = append(profile.PublicationTitles, pub.Title)
		for _, author := range strings.Split(pub.Authors, ",") {
			if a := strings.TrimSpace(author); a != "" && NameMatchScore(a, resume.BasicInfo.Name) < 0.7 {
				profile.Coauthors = append(profile.Coauthors, a)
			}
		}
	}

	if resume.BasicInfo.BirthYear > 0 {
		age := time.Now().Year() - resume.BasicInfo.BirthYear
		profile.AgeRange = &domain.AgeRange{Min: age - 1, Max: age + 1}
	}
	return profile
}

func (s *EnrichService) enrichPublications(ctx context.Context, budget *governor.Budget, identity domain.IdentityProfile, pubs []domain.Publication, categories []domain.CategoryOutcome) ([]domain.Publication, []domain.CategoryOutcome) {
	if len(pubs) == 0 {
		return nil, categories
	}

	results := worker.Map(ctx, pubs, s.PublicationWorkers, budget, func(ctx context.Context, pub domain.Publication) (domain.Publication, error) {
		return s.enrichPublication(ctx, identity, pub)
	})

	enriched := make([]domain.Publication, len(pubs))
	for i, r := range results {
		if r.Err != nil || r.Skipped {
			// Keep the resume's version; the category outcome records
			// the failure.
			enriched[i] = pubs[i]
			continue
		}
		enriched[i] = r.Value
	}
	return enriched, append(categories, outcome("publications", results))
}

func (s *EnrichService) enrichPublication(ctx context.Context, identity domain.IdentityProfile, pub domain.Publication) (domain.Publication, error) {
	query := fmt.Sprintf("%q %s", pub.Title, identity.Name)
	hits, err := s.search.Search(ctx, query, 5)
	if err != nil {
		return pub, fmt.Errorf("publication search: %w", err)
	}
	if len(hits) == 0 {
		return pub, fmt.Errorf("no search results for publication %q", pub.Title)
	}

	best, bestScore := hits[0], 0
	for _, hit := range hits {
		score := scoreResult(pub.Title, hit)
		if score > bestScore {
			best, bestScore = hit, score
		}
	}

	pub.URL = best.URL
	for i, hit := range hits {
		if i == 3 {
			break
		}
		pub.Sources = append(pub.Sources, hit.URL)
		pub.Evidence = append(pub.Evidence, domain.SourceEvidence{URL: hit.URL, Snippet: hit.Snippet})
	}

	pub.Abstract = best.Snippet
	if s.fetcher != nil {
		if abstract, err := s.fetcher.FetchAbstract(ctx, best.URL); err == nil && abstract != "" {
			pub.Abstract = abstract
		} else if err != nil {
			s.logger.Debug("abstract fetch failed", zap.String("url", best.URL), zap.Error(err))
		}
	}

	if pub.Date == "" {
		pub.Date = extractDate(best.Snippet + " " + pub.Abstract)
	}
	if pub.Date == "" && pub.Year > 0 {
		pub.Date = fmt.Sprintf("%d", pub.Year)
	}

	if s.llm != nil && pub.Abstract != "" {
		prompt := fmt.Sprintf("Summarize this paper abstract in two sentences for a recruiter.\n\nTitle: %s\nAbstract: %s", pub.Title, truncateStr(pub.Abstract, 2000))
		if summary, err := s.llm.Infer(ctx, prompt, domain.InferOptions{Temperature: 0.2, MaxTokens: 160}); err == nil {
			pub.Summary = strings.TrimSpace(summary)
		} else {
			s.logger.Debug("publication summary failed", zap.String("title", pub.Title), zap.Error(err))
		}
	}
	return pub, nil
}

// scoreResult ranks a search hit against the wanted title: each title
// keyword in the hit title is worth 3, in the URL 1, and a verbatim
// full-title match 5 more.
func scoreResult(title string, hit domain.SearchResult) int {
	score := 0
	hitTitle := strings.ToLower(hit.Title)
	hitURL := strings.ToLower(hit.URL)
	for _, kw := range keywords(title) {
		if strings.Contains(hitTitle, kw) {
			score += 3
		}
		if strings.Contains(hitURL, kw) {
			score++
		}
	}
	if nt := normalizeText(title); nt != "" && strings.Contains(normalizeText(hit.Title), nt) {
		score += 5
	}
	return score
}

func extractDate(text string) string {
	m := dateRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return m[1]
	}
	if m[3] != "" {
		day, _ := strconv.Atoi(m[3])
		if day >= 1 && day <= 31 {
			return fmt.Sprintf("%s-%02d-%02d", m[1], month, day)
		}
	}
	return fmt.Sprintf("%s-%02d", m[1], month)
}

func (s *EnrichService) enrichAwards(ctx context.Context, budget *governor.Budget, awards []domain.Award, categories []domain.CategoryOutcome) ([]domain.Award, []domain.CategoryOutcome) {
	if len(awards) == 0 {
		return nil, categories
	}

	results := worker.Map(ctx, awards, s.AwardWorkers, budget, func(ctx context.Context, award domain.Award) (domain.Award, error) {
		return s.enrichAward(ctx, award)
	})

	enriched := make([]domain.Award, len(awards))
	for i, r := range results {
		if r.Err != nil || r.Skipped {
			enriched[i] = awards[i]
			continue
		}
		enriched[i] = r.Value
	}
	return enriched, append(categories, outcome("awards", results))
}

func (s *EnrichService) enrichAward(ctx context.Context, award domain.Award) (domain.Award, error) {
	hits, err := s.search.Search(ctx, award.Name+" award", 3)
	if err != nil {
		return award, fmt.Errorf("award search: %w", err)
	}
	if len(hits) == 0 {
		return award, fmt.Errorf("no search results for award %q", award.Name)
	}

	award.Intro = hits[0].Snippet
	var snippets []string
	for _, hit := range hits {
		award.Sources = append(award.Sources, hit.URL)
		award.Evidence = append(award.Evidence, domain.SourceEvidence{URL: hit.URL, Snippet: hit.Snippet})
		if hit.Snippet != "" {
			snippets = append(snippets, hit.Snippet)
		}
	}

	if s.llm != nil && len(snippets) > 0 {
		prompt := fmt.Sprintf("In one sentence, describe the award %q based on these search snippets:\n%s",
			award.Name, truncateStr(strings.Join(snippets, "\n"), 1500))
		if intro, err := s.llm.Infer(ctx, prompt, domain.InferOptions{Temperature: 0.2, MaxTokens: 80}); err == nil && strings.TrimSpace(intro) != "" {
			award.Intro = strings.TrimSpace(intro)
		} else if err != nil {
			s.logger.Debug("award intro condensation failed", zap.String("award", award.Name), zap.Error(err))
		}
	}
	return award, nil
}

func (s *EnrichService) discoverSocial(ctx context.Context, budget *governor.Budget, identity domain.IdentityProfile, categories []domain.CategoryOutcome) ([]domain.DisambiguationResult, []domain.CategoryOutcome) {
	results := worker.Map(ctx, socialPlatforms, s.SocialWorkers, budget, func(ctx context.Context, platform string) ([]domain.CandidateItem, error) {
		query := identity.Name + " " + platform
		if len(identity.Affiliations) > 0 {
			query = identity.Name + " " + identity.Affiliations[0] + " " + platform
		}
		hits, err := s.search.Search(ctx, query, 3)
		if err != nil {
			return nil, fmt.Errorf("social search on %s: %w", platform, err)
		}
		items := make([]domain.CandidateItem, 0, len(hits))
		for _, hit := range hits {
			items = append(items, domain.CandidateItem{
				Name:     itemName(hit.Title, identity),
				Title:    hit.Title,
				Snippet:  hit.Snippet,
				URL:      hit.URL,
				Platform: platform,
			})
		}
		return items, nil
	})

	var items []domain.CandidateItem
	for _, r := range results {
		if r.Err == nil && !r.Skipped {
			items = append(items, r.Value...)
		}
	}

	matches := s.identity.ResolveAll(ctx, identity, items)
	return matches, append(categories, outcome("social", results))
}

// itemName guesses the person name a search hit refers to. If a known
// name variant appears in the title, use it; otherwise take the title
// segment before the first separator.
func itemName(title string, identity domain.IdentityProfile) string {
	lower := strings.ToLower(title)
	for _, name := range append([]string{identity.Name}, identity.NameVariants...) {
		if name != "" && strings.Contains(lower, strings.ToLower(name)) {
			return name
		}
	}
	for _, sep := range []string{" - ", " | ", " – ", "("} {
		if idx := strings.Index(title, sep); idx > 0 {
			return strings.TrimSpace(title[:idx])
		}
	}
	return strings.TrimSpace(title)
}

func outcome[R any](category string, results []worker.Result[R]) domain.CategoryOutcome {
	attempted, succeeded, failed, skipped := worker.Tally(results)
	out := domain.CategoryOutcome{
		Category:  category,
		Attempted: attempted,
		Succeeded: succeeded,
		Failed:    failed,
		Skipped:   skipped,
	}
	if attempted > 0 && succeeded == 0 {
		out.Warning = fmt.Sprintf("all %s enrichment attempts failed", category)
	}
	return out
}
