package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RankingsDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "steamgems_rankings_duration_seconds",
			Help:    "Ranking batch duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
		},
	)

	RankingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steamgems_rankings_total",
			Help: "Total ranking batches processed",
		},
		[]string{"status"},
	)

	CandidatesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steamgems_candidates_processed_total",
			Help: "Candidates processed per outcome",
		},
		[]string{"outcome"},
	)

	RankingCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "steamgems_ranking_cache_hits_total",
			Help: "Fresh ranking cache hits",
		},
	)

	RankingCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "steamgems_ranking_cache_misses_total",
			Help: "Ranking cache misses and stale entries",
		},
	)

	SteamCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "steamgems_steam_cache_hits_total",
			Help: "Fresh steam_games cache hits",
		},
	)

	SteamCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "steamgems_steam_cache_misses_total",
			Help: "steam_games cache misses and stale entries",
		},
	)

	ClassifierCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steamgems_classifier_calls_total",
			Help: "Classifier invocations per outcome",
		},
		[]string{"outcome"},
	)

	ClassifierTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steamgems_classifier_tokens_used",
			Help: "Total classifier tokens used",
		},
		[]string{"type"},
	)

	SimilarRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steamgems_similar_requests_total",
			Help: "Similarity requests per outcome",
		},
		[]string{"outcome"},
	)

	SimilarCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steamgems_similar_cache_total",
			Help: "Similarity response cache hits and misses",
		},
		[]string{"result"},
	)

	SimilarityScores = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "steamgems_similarity_score",
			Help:    "Similarity scores of returned candidates",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)
)

func Init() {
	prometheus.MustRegister(RankingsDuration)
	prometheus.MustRegister(RankingsTotal)
	prometheus.MustRegister(CandidatesProcessed)
	prometheus.MustRegister(RankingCacheHits)
	prometheus.MustRegister(RankingCacheMisses)
	prometheus.MustRegister(SteamCacheHits)
	prometheus.MustRegister(SteamCacheMisses)
	prometheus.MustRegister(ClassifierCalls)
	prometheus.MustRegister(ClassifierTokensUsed)
	prometheus.MustRegister(SimilarRequests)
	prometheus.MustRegister(SimilarCacheHits)
	prometheus.MustRegister(SimilarityScores)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
