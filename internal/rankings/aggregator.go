package rankings

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/steamgems/backend/internal/metrics"
	"github.com/steamgems/backend/internal/storage/models"
	"github.com/steamgems/backend/pkg/logger"
)

const (
	minRecentDays = 1
	maxRecentDays = 1825
)

// GameDataSource fetches a normalized per-title snapshot, consulting its own
// freshness cache first.
type GameDataSource interface {
	Fetch(ctx context.Context, appID, freshnessMinutes int) (*models.SteamGame, error)
}

// Classifier produces a gem analysis for one snapshot. It errors only for
// the distinguished rate-limit/quota kinds; every other failure yields a
// fallback analysis.
type Classifier interface {
	Classify(ctx context.Context, game *models.SteamGame) (*models.GemAnalysis, error)
}

// RankingStore is the rankings cache. The aggregator is its sole writer.
type RankingStore interface {
	GetRanking(appID int) (*models.CacheEntry, bool, error)
	UpsertRanking(game *models.RankingGame, updatedAt time.Time) error
}

type Aggregator struct {
	store       RankingStore
	source      GameDataSource
	classifier  Classifier
	candidates  []models.CandidateGame
	cacheMaxAge time.Duration
	now         func() time.Time
}

func NewAggregator(store RankingStore, source GameDataSource, classifier Classifier, candidates []models.CandidateGame, cacheMaxAgeHours int) *Aggregator {
	if cacheMaxAgeHours <= 0 {
		cacheMaxAgeHours = 24
	}
	return &Aggregator{
		store:       store,
		source:      source,
		classifier:  classifier,
		candidates:  candidates,
		cacheMaxAge: time.Duration(cacheMaxAgeHours) * time.Hour,
		now:         time.Now,
	}
}

// BuildRankings walks the candidate list sequentially: fresh cache entries
// are returned as-is, everything else goes through fetch, classify, label,
// and a best-effort cache write. One candidate's failure never aborts the
// batch. recentDays, when given, is clamped to [1,1825] and drops records
// released before the cutoff; records with no parseable release date are
// never recent. Output order follows the candidate list.
func (a *Aggregator) BuildRankings(ctx context.Context, recentDays *int) ([]models.RankingGame, error) {
	start := a.now()
	runID := uuid.New().String()

	logger.Info("Building rankings",
		zap.String("run_id", runID),
		zap.Int("candidates", len(a.candidates)),
	)

	results := make([]models.RankingGame, 0, len(a.candidates))
	cacheHits := 0

	for _, candidate := range a.candidates {
		if err := ctx.Err(); err != nil {
			metrics.RankingsTotal.WithLabelValues("cancelled").Inc()
			return nil, err
		}

		entry, found, err := a.store.GetRanking(candidate.AppID)
		if err != nil {
			logger.Warn("Ranking cache read failed",
				zap.Int("app_id", candidate.AppID),
				zap.Error(err),
			)
		}

		if found && a.now().Sub(entry.UpdatedAt) < a.cacheMaxAge {
			metrics.RankingCacheHits.Inc()
			cacheHits++
			results = append(results, entry.Data)
			continue
		}
		metrics.RankingCacheMisses.Inc()

		game := a.processCandidate(ctx, candidate)
		if game == nil {
			continue
		}
		results = append(results, *game)
	}

	filtered := a.applyRecencyFilter(results, recentDays)

	metrics.RankingsTotal.WithLabelValues("ok").Inc()
	metrics.RankingsDuration.Observe(a.now().Sub(start).Seconds())

	logger.Info("Rankings built",
		zap.String("run_id", runID),
		zap.Int("ranked", len(results)),
		zap.Int("returned", len(filtered)),
		zap.Int("cache_hits", cacheHits),
	)

	return filtered, nil
}

// processCandidate runs the fetch/classify/label/cache sequence for one
// candidate. Returns nil when the candidate is skipped.
func (a *Aggregator) processCandidate(ctx context.Context, candidate models.CandidateGame) *models.RankingGame {
	game, err := a.source.Fetch(ctx, candidate.AppID, 0)
	if err != nil {
		metrics.CandidatesProcessed.WithLabelValues("fetch_failed").Inc()
		logger.Warn("Skipping candidate: fetch failed",
			zap.String("title", candidate.Title),
			zap.Int("app_id", candidate.AppID),
			zap.Error(err),
		)
		return nil
	}

	if !game.IsAvailableInStore {
		metrics.CandidatesProcessed.WithLabelValues("unavailable").Inc()
		logger.Info("Skipping candidate: not available in store",
			zap.String("title", candidate.Title),
			zap.Int("app_id", candidate.AppID),
		)
		return nil
	}

	analysis, err := a.classifier.Classify(ctx, game)
	if err != nil {
		metrics.CandidatesProcessed.WithLabelValues("classify_failed").Inc()
		logger.Warn("Skipping candidate: classification failed",
			zap.String("title", candidate.Title),
			zap.Error(err),
		)
		return nil
	}

	gemLabel, hidden := ComputeGemLabel(game.TotalReviews, game.EstimatedOwners, analysis.HiddenGemVerdict)

	tags := game.Tags
	if len(tags) == 0 {
		tags = candidate.Tags
	}

	ranked := models.RankingGame{
		AppID:                 candidate.AppID,
		Title:                 game.Title,
		PositiveRatio:         game.PositiveRatio,
		TotalReviews:          game.TotalReviews,
		EstimatedOwners:       game.EstimatedOwners,
		RecentPlayers:         game.RecentPlayers,
		Price:                 game.Price,
		AveragePlaytime:       game.AveragePlaytime,
		LastUpdated:           game.LastUpdated,
		Tags:                  tags,
		SteamURL:              game.SteamURL,
		ReviewScoreDesc:       game.ReviewScoreDesc,
		IsAvailableInStore:    game.IsAvailableInStore,
		Analysis:              *analysis,
		GemLabel:              gemLabel,
		IsStatisticallyHidden: hidden,
		ReleaseYear:           parseReleaseYear(game.ReleaseDate),
		ReleaseDate:           game.ReleaseDate,
	}

	// Cache write is best-effort; the assembled record is served either way.
	if err := a.store.UpsertRanking(&ranked, a.now()); err != nil {
		logger.Warn("Ranking cache write failed",
			zap.Int("app_id", candidate.AppID),
			zap.Error(err),
		)
	}

	metrics.CandidatesProcessed.WithLabelValues("refreshed").Inc()
	logger.Info("Candidate ranked",
		zap.String("title", game.Title),
		zap.String("gem_label", string(gemLabel)),
	)

	return &ranked
}

func (a *Aggregator) applyRecencyFilter(games []models.RankingGame, recentDays *int) []models.RankingGame {
	if recentDays == nil {
		return games
	}

	days := *recentDays
	if days < minRecentDays {
		days = minRecentDays
	}
	if days > maxRecentDays {
		days = maxRecentDays
	}

	cutoff := a.now().AddDate(0, 0, -days)

	filtered := make([]models.RankingGame, 0, len(games))
	for _, game := range games {
		released, ok := parseReleaseTimestamp(game.ReleaseDate)
		if !ok {
			// Unknown dates are never recent.
			continue
		}
		if !released.Before(cutoff) {
			filtered = append(filtered, game)
		}
	}

	return filtered
}

// parseReleaseYear reads the leading 4 characters of the release date as a
// year; anything else means the year is unknown.
func parseReleaseYear(releaseDate string) *int {
	if len(releaseDate) < 4 {
		return nil
	}
	year, err := strconv.Atoi(releaseDate[:4])
	if err != nil {
		return nil
	}
	return &year
}

var releaseTimestampLayouts = []string{
	"2006-01-02",
	"Jan 2, 2006",
	"2 Jan, 2006",
	"2006",
}

func parseReleaseTimestamp(releaseDate string) (time.Time, bool) {
	if releaseDate == "" {
		return time.Time{}, false
	}
	for _, layout := range releaseTimestampLayouts {
		if t, err := time.Parse(layout, releaseDate); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
