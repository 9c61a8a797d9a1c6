package similarity

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/steamgems/backend/internal/metrics"
	"github.com/steamgems/backend/internal/storage/models"
	"github.com/steamgems/backend/pkg/logger"
)

const (
	// Candidate pool gate and cap.
	minQualityScore = 7
	poolLimit       = 500

	// Scoring weights and bounds.
	tagWeight      = 0.6
	playtimeWeight = 0.25
	priceWeight    = 0.15
	playtimeWindow = 600
	scoreThreshold = 0.15

	defaultLimit = 3
)

// CandidatePool reads the rankings cache. The scorer never mutates it.
type CandidatePool interface {
	GetRanking(appID int) (*models.CacheEntry, bool, error)
	QueryCandidates(minQuality float64, excludeAppID, limit int) ([]models.CacheEntry, error)
}

type Engine struct {
	store CandidatePool
}

func NewEngine(store CandidatePool) *Engine {
	return &Engine{store: store}
}

// FindSimilar scores cached candidates against the target title and returns
// the top limit matches in descending score order. A target missing from the
// cache is a normal outcome with an empty result. Ties break on ascending
// app id: the pool is retrieved in app id order and the sort is stable.
func (e *Engine) FindSimilar(ctx context.Context, appID, limit int) ([]models.ScoredGame, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	targetEntry, found, err := e.store.GetRanking(appID)
	if err != nil {
		return nil, err
	}
	if !found {
		metrics.SimilarRequests.WithLabelValues("target_missing").Inc()
		logger.Info("Similarity target not in cache", zap.Int("app_id", appID))
		return []models.ScoredGame{}, nil
	}
	target := targetEntry.Data

	pool, err := e.store.QueryCandidates(minQualityScore, appID, poolLimit)
	if err != nil {
		return nil, err
	}

	targetTags := foldTags(target.Tags)

	scored := make([]models.ScoredGame, 0, len(pool))
	for _, entry := range pool {
		candidate := entry.Data
		if !candidate.IsAvailableInStore || len(candidate.Tags) == 0 {
			continue
		}

		score, shared := scoreCandidate(&target, targetTags, &candidate)
		if score <= scoreThreshold {
			continue
		}

		scored = append(scored, models.ScoredGame{
			RankingGame:     candidate,
			SimilarityScore: score,
			SharedTags:      shared,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].SimilarityScore > scored[j].SimilarityScore
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}

	for _, s := range scored {
		metrics.SimilarityScores.Observe(s.SimilarityScore)
	}
	metrics.SimilarRequests.WithLabelValues("ok").Inc()

	logger.Debug("Similarity computed",
		zap.Int("app_id", appID),
		zap.Int("pool", len(pool)),
		zap.Int("returned", len(scored)),
	)

	return scored, nil
}

// scoreCandidate combines tag overlap, playtime proximity, and price
// proximity into a single [0,1] score.
func scoreCandidate(target *models.RankingGame, targetTags map[string]struct{}, candidate *models.RankingGame) (float64, []string) {
	shared := make([]string, 0, len(candidate.Tags))
	candidateTags := make(map[string]struct{}, len(candidate.Tags))
	for _, tag := range candidate.Tags {
		folded := strings.ToLower(tag)
		if _, dup := candidateTags[folded]; dup {
			continue
		}
		candidateTags[folded] = struct{}{}
		if _, ok := targetTags[folded]; ok {
			shared = append(shared, tag)
		}
	}

	union := len(targetTags)
	for folded := range candidateTags {
		if _, ok := targetTags[folded]; !ok {
			union++
		}
	}
	if union == 0 {
		union = 1
	}
	tagScore := float64(len(shared)) / float64(union)

	playtimeDiff := candidate.AveragePlaytime - target.AveragePlaytime
	if playtimeDiff < 0 {
		playtimeDiff = -playtimeDiff
	}
	playtimeScore := 1 - playtimeDiff/playtimeWindow
	if playtimeScore < 0 {
		playtimeScore = 0
	}

	priceScore := 0.0
	if target.Price > 0 && candidate.Price > 0 {
		if target.Price < candidate.Price {
			priceScore = target.Price / candidate.Price
		} else {
			priceScore = candidate.Price / target.Price
		}
	}

	score := tagScore*tagWeight + playtimeScore*playtimeWeight + priceScore*priceWeight
	return score, shared
}

func foldTags(tags []string) map[string]struct{} {
	folded := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		folded[strings.ToLower(tag)] = struct{}{}
	}
	return folded
}
