package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/scoutlens/scoutlens/internal/api/handlers"
	mw "github.com/scoutlens/scoutlens/internal/api/middleware"
	"github.com/scoutlens/scoutlens/internal/config"
	"github.com/scoutlens/scoutlens/internal/domain"
	"github.com/scoutlens/scoutlens/internal/embedding"
	"github.com/scoutlens/scoutlens/internal/governor"
	"github.com/scoutlens/scoutlens/internal/llm"
	"github.com/scoutlens/scoutlens/internal/search"
	"github.com/scoutlens/scoutlens/internal/service"
	"github.com/scoutlens/scoutlens/internal/store"
)

// App holds the router and shared caches for lifecycle management.
type App struct {
	Router *chi.Mux
	Cache  *governor.Cache

	startTime    time.Time
	requestCount atomic.Int64
}

// NewApp wires stores, external clients and services into the HTTP
// surface. db may be nil; run persistence is then disabled and runs
// are returned inline only.
func NewApp(db *pgxpool.Pool, logger *zap.Logger) (*App, error) {
	cache := governor.NewCache()
	retry := governor.DefaultRetryPolicy()
	retry.Attempts = config.LLMRetries()

	llmLimiter := governor.NewRateLimiter(config.LLMRateLimit(), config.LLMRateWindow())
	searchLimiter := governor.NewRateLimiter(config.SearchRateLimit(), config.SearchRateWindow())
	fetchLimiter := governor.NewRateLimiter(config.FetchRateLimit(), time.Minute)

	specs := []llm.ProviderSpec{{
		Name:    config.LLMProvider(),
		BaseURL: config.LLMBaseURL(),
		APIKey:  config.LLMAPIKey(),
		Model:   config.LLMModel(),
		Timeout: config.LLMTimeout(),
	}}
	if fb := config.LLMFallbackProvider(); fb != "" {
		specs = append(specs, llm.ProviderSpec{
			Name:    fb,
			BaseURL: config.LLMFallbackBaseURL(),
			APIKey:  config.LLMFallbackAPIKey(),
			Model:   config.LLMFallbackModel(),
			Timeout: config.LLMTimeout(),
		})
	}

	llmClient, err := llm.NewFromSpecs(specs, llmLimiter, cache, config.CacheTTL(), retry, logger)
	if err != nil {
		logger.Warn("inference client initialization failed, continuing with heuristics only", zap.Error(err))
		llmClient = nil
	} else {
		logger.Info("inference client initialized", zap.String("provider", config.LLMProvider()))
	}

	searchClient, err := search.NewClient(search.Config{
		TavilyAPIKey: config.TavilyAPIKey(),
		BochaAPIKey:  config.BochaAPIKey(),
		BochaBaseURL: config.BochaBaseURL(),
		Timeout:      config.SearchTimeout(),
	}, searchLimiter, cache, config.CacheTTL(), retry, logger)
	if err != nil {
		return nil, err
	}

	fetcher := search.NewFetcher(fetchLimiter, config.FetchTimeout())

	embeddingClient, err := embedding.NewClient(config.EmbeddingProvider(), config.OpenAIAPIKey())
	if err != nil {
		logger.Warn("embedding client initialization failed, using keyword relevance only", zap.Error(err))
		embeddingClient = nil
	}

	var runStore *store.RunStore
	if db != nil {
		runStore = store.NewRunStore(db)
	}

	identitySvc := service.NewIdentityService(llmClient, logger)
	evidenceSvc := service.NewEvidenceService(llmClient, embeddingClient, logger)
	evidenceSvc.RelevanceFloor = config.RelevanceFloor()
	crossValidator := service.NewCrossValidator(logger)

	var persistence domain.RunStore
	if runStore != nil {
		persistence = runStore
	}
	enrichSvc := service.NewEnrichService(searchClient, fetcher, llmClient, identitySvc, evidenceSvc, crossValidator, persistence, logger)
	enrichSvc.PublicationWorkers = config.PublicationWorkers()
	enrichSvc.AwardWorkers = config.AwardWorkers()
	enrichSvc.SocialWorkers = config.SocialWorkers()
	enrichSvc.BudgetMaxCalls = config.BudgetMaxCalls()
	enrichSvc.BudgetWallClock = config.BudgetWallClock()

	runHandler := handlers.NewRunHandler(enrichSvc, runStore, logger)

	r := chi.NewRouter()
	app := &App{
		Router:    r,
		Cache:     cache,
		startTime: time.Now(),
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.countRequests)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/runs", func(r chi.Router) {
			r.Post("/", runHandler.Create)
			r.Get("/", runHandler.List)
			r.Get("/{id}", runHandler.GetByID)
		})
	})

	return app, nil
}

// SweepCache periodically evicts expired cache entries until ctx-free
// shutdown via the returned stop func.
func (app *App) SweepCache(interval time.Duration, logger *zap.Logger) (stop func()) {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				if n := app.Cache.Sweep(); n > 0 {
					logger.Debug("cache sweep", zap.Int("evicted", n))
				}
			case <-done:
				return
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}

func (app *App) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.requestCount.Add(1)
		next.ServeHTTP(w, r)
	})
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)
		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"cache_entries":  app.Cache.Len(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb": float64(memStats.Alloc) / 1024 / 1024,
				"sys_mb":   float64(memStats.Sys) / 1024 / 1024,
				"num_gc":   memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.RunStore        = (*store.RunStore)(nil)
	_ domain.SearchClient    = (*search.Client)(nil)
	_ domain.SearchClient    = (*search.MockClient)(nil)
	_ domain.PageFetcher     = (*search.Fetcher)(nil)
	_ domain.InferenceClient = (*llm.HTTPClient)(nil)
	_ domain.InferenceClient = (*llm.FallbackClient)(nil)
	_ domain.InferenceClient = (*llm.MockClient)(nil)
	_ domain.EmbeddingClient = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient = (*embedding.MockClient)(nil)
)
