package similarity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steamgems/backend/internal/storage/models"
)

type fakePool struct {
	target     *models.CacheEntry
	candidates []models.CacheEntry

	getErr   error
	queryErr error

	queriedMinQuality float64
	queriedExclude    int
	queriedLimit      int
}

func (p *fakePool) GetRanking(appID int) (*models.CacheEntry, bool, error) {
	if p.getErr != nil {
		return nil, false, p.getErr
	}
	if p.target == nil || p.target.AppID != appID {
		return nil, false, nil
	}
	return p.target, true, nil
}

func (p *fakePool) QueryCandidates(minQuality float64, excludeAppID, limit int) ([]models.CacheEntry, error) {
	p.queriedMinQuality = minQuality
	p.queriedExclude = excludeAppID
	p.queriedLimit = limit
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	return p.candidates, nil
}

func ranked(appID int, tags []string, playtime, price float64) models.RankingGame {
	return models.RankingGame{
		AppID:              appID,
		Title:              "game",
		Tags:               tags,
		AveragePlaytime:    playtime,
		Price:              price,
		IsAvailableInStore: true,
	}
}

func entry(game models.RankingGame) models.CacheEntry {
	return models.CacheEntry{AppID: game.AppID, Data: game}
}

func TestFindSimilarTargetMissing(t *testing.T) {
	engine := NewEngine(&fakePool{})

	scored, err := engine.FindSimilar(context.Background(), 42, 3)
	require.NoError(t, err)
	assert.NotNil(t, scored)
	assert.Empty(t, scored)
}

func TestFindSimilarPoolQuery(t *testing.T) {
	pool := &fakePool{
		target: &models.CacheEntry{AppID: 42, Data: ranked(42, []string{"Indie"}, 100, 10)},
	}
	engine := NewEngine(pool)

	_, err := engine.FindSimilar(context.Background(), 42, 3)
	require.NoError(t, err)

	assert.InDelta(t, float64(minQualityScore), pool.queriedMinQuality, 1e-9)
	assert.Equal(t, 42, pool.queriedExclude)
	assert.Equal(t, poolLimit, pool.queriedLimit)
}

func TestFindSimilarScoresAndOrders(t *testing.T) {
	target := ranked(42, []string{"Roguelike", "Indie"}, 100, 10)
	pool := &fakePool{
		target: &models.CacheEntry{AppID: 42, Data: target},
		candidates: []models.CacheEntry{
			// No overlap and outside the playtime window; identical
			// profile; partial overlap.
			entry(ranked(1, []string{"Sports"}, 5000, 60)),
			entry(ranked(2, []string{"Roguelike", "Indie"}, 100, 10)),
			entry(ranked(3, []string{"Roguelike", "Strategy"}, 160, 20)),
		},
	}
	engine := NewEngine(pool)

	scored, err := engine.FindSimilar(context.Background(), 42, 3)
	require.NoError(t, err)
	require.Len(t, scored, 2)

	// Identical profile scores a perfect 1.0 and sorts first.
	assert.Equal(t, 2, scored[0].AppID)
	assert.InDelta(t, 1.0, scored[0].SimilarityScore, 1e-9)
	assert.ElementsMatch(t, []string{"Roguelike", "Indie"}, scored[0].SharedTags)

	assert.Equal(t, 3, scored[1].AppID)
	assert.Greater(t, scored[1].SimilarityScore, scoreThreshold)
	assert.Less(t, scored[1].SimilarityScore, 1.0)
	assert.Equal(t, []string{"Roguelike"}, scored[1].SharedTags)
}

func TestFindSimilarThresholdExcludes(t *testing.T) {
	target := ranked(42, []string{"Roguelike"}, 100, 10)
	pool := &fakePool{
		target: &models.CacheEntry{AppID: 42, Data: target},
		candidates: []models.CacheEntry{
			// No shared tags, far playtime, no price signal: score 0.
			entry(ranked(1, []string{"Sports"}, 5000, 0)),
		},
	}
	engine := NewEngine(pool)

	scored, err := engine.FindSimilar(context.Background(), 42, 3)
	require.NoError(t, err)
	assert.Empty(t, scored)
}

func TestFindSimilarSkipsUnavailableAndTagless(t *testing.T) {
	target := ranked(42, []string{"Indie"}, 100, 10)

	unavailable := ranked(1, []string{"Indie"}, 100, 10)
	unavailable.IsAvailableInStore = false
	tagless := ranked(2, nil, 100, 10)

	pool := &fakePool{
		target:     &models.CacheEntry{AppID: 42, Data: target},
		candidates: []models.CacheEntry{entry(unavailable), entry(tagless)},
	}
	engine := NewEngine(pool)

	scored, err := engine.FindSimilar(context.Background(), 42, 3)
	require.NoError(t, err)
	assert.Empty(t, scored)
}

func TestFindSimilarLimitAndTieBreak(t *testing.T) {
	target := ranked(42, []string{"Indie"}, 100, 10)

	// Four identical candidates; ties resolve to ascending app id because
	// the pool arrives in app id order and the sort is stable.
	pool := &fakePool{
		target: &models.CacheEntry{AppID: 42, Data: target},
		candidates: []models.CacheEntry{
			entry(ranked(1, []string{"Indie"}, 100, 10)),
			entry(ranked(2, []string{"Indie"}, 100, 10)),
			entry(ranked(3, []string{"Indie"}, 100, 10)),
			entry(ranked(4, []string{"Indie"}, 100, 10)),
		},
	}
	engine := NewEngine(pool)

	scored, err := engine.FindSimilar(context.Background(), 42, 3)
	require.NoError(t, err)
	require.Len(t, scored, 3)
	assert.Equal(t, 1, scored[0].AppID)
	assert.Equal(t, 2, scored[1].AppID)
	assert.Equal(t, 3, scored[2].AppID)
}

func TestFindSimilarDefaultLimit(t *testing.T) {
	target := ranked(42, []string{"Indie"}, 100, 10)
	candidates := make([]models.CacheEntry, 0, 5)
	for i := 1; i <= 5; i++ {
		candidates = append(candidates, entry(ranked(i, []string{"Indie"}, 100, 10)))
	}

	pool := &fakePool{
		target:     &models.CacheEntry{AppID: 42, Data: target},
		candidates: candidates,
	}
	engine := NewEngine(pool)

	scored, err := engine.FindSimilar(context.Background(), 42, 0)
	require.NoError(t, err)
	assert.Len(t, scored, defaultLimit)
}

func TestFindSimilarScoreBounds(t *testing.T) {
	target := ranked(42, []string{"Indie", "Roguelike", "Mining"}, 300, 18)
	pool := &fakePool{
		target: &models.CacheEntry{AppID: 42, Data: target},
		candidates: []models.CacheEntry{
			entry(ranked(1, []string{"Indie"}, 10, 60)),
			entry(ranked(2, []string{"Indie", "Roguelike"}, 290, 15)),
			entry(ranked(3, []string{"Mining", "Simulation", "Casual"}, 900, 2)),
		},
	}
	engine := NewEngine(pool)

	scored, err := engine.FindSimilar(context.Background(), 42, 10)
	require.NoError(t, err)

	for _, s := range scored {
		assert.GreaterOrEqual(t, s.SimilarityScore, 0.0)
		assert.LessOrEqual(t, s.SimilarityScore, 1.0)
	}
}

func TestFindSimilarTagFoldingAndDedup(t *testing.T) {
	target := ranked(42, []string{"Indie", "ROGUELIKE"}, 100, 10)
	pool := &fakePool{
		target: &models.CacheEntry{AppID: 42, Data: target},
		candidates: []models.CacheEntry{
			entry(ranked(1, []string{"indie", "Indie", "Roguelike"}, 100, 10)),
		},
	}
	engine := NewEngine(pool)

	scored, err := engine.FindSimilar(context.Background(), 42, 3)
	require.NoError(t, err)
	require.Len(t, scored, 1)

	// Duplicate tags count once; shared tags keep the candidate's casing.
	assert.InDelta(t, 1.0, scored[0].SimilarityScore, 1e-9)
	assert.Equal(t, []string{"indie", "Roguelike"}, scored[0].SharedTags)
}

func TestFindSimilarStoreErrors(t *testing.T) {
	engine := NewEngine(&fakePool{getErr: errors.New("db down")})
	_, err := engine.FindSimilar(context.Background(), 42, 3)
	assert.Error(t, err)

	engine = NewEngine(&fakePool{
		target:   &models.CacheEntry{AppID: 42, Data: ranked(42, []string{"Indie"}, 100, 10)},
		queryErr: errors.New("db down"),
	})
	_, err = engine.FindSimilar(context.Background(), 42, 3)
	assert.Error(t, err)
}
