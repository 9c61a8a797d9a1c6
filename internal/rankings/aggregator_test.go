package rankings

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steamgems/backend/internal/storage/models"
)

type fakeRankingStore struct {
	entries map[int]*models.CacheEntry
	upserts []*models.RankingGame
	getErr  error
	putErr  error
}

func newFakeRankingStore() *fakeRankingStore {
	return &fakeRankingStore{entries: make(map[int]*models.CacheEntry)}
}

func (s *fakeRankingStore) GetRanking(appID int) (*models.CacheEntry, bool, error) {
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	entry, ok := s.entries[appID]
	return entry, ok, nil
}

func (s *fakeRankingStore) UpsertRanking(game *models.RankingGame, updatedAt time.Time) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.upserts = append(s.upserts, game)
	return nil
}

type fakeSource struct {
	games map[int]*models.SteamGame
	errs  map[int]error
	calls []int
}

func newFakeSource() *fakeSource {
	return &fakeSource{games: make(map[int]*models.SteamGame), errs: make(map[int]error)}
}

func (f *fakeSource) Fetch(ctx context.Context, appID, freshnessMinutes int) (*models.SteamGame, error) {
	f.calls = append(f.calls, appID)
	if err, ok := f.errs[appID]; ok {
		return nil, err
	}
	game, ok := f.games[appID]
	if !ok {
		return nil, fmt.Errorf("no fixture for app %d", appID)
	}
	return game, nil
}

type fakeClassifier struct {
	analyses map[int]*models.GemAnalysis
	errs     map[int]error
	calls    []int
}

func newFakeClassifier() *fakeClassifier {
	return &fakeClassifier{analyses: make(map[int]*models.GemAnalysis), errs: make(map[int]error)}
}

func (f *fakeClassifier) Classify(ctx context.Context, game *models.SteamGame) (*models.GemAnalysis, error) {
	f.calls = append(f.calls, game.AppID)
	if err, ok := f.errs[game.AppID]; ok {
		return nil, err
	}
	if analysis, ok := f.analyses[game.AppID]; ok {
		return analysis, nil
	}
	return &models.GemAnalysis{HiddenGemVerdict: models.VerdictYes, ReviewQualityScore: 8}, nil
}

func snapshot(appID int, title string, releaseDate string) *models.SteamGame {
	return &models.SteamGame{
		AppID:              appID,
		Title:              title,
		TotalReviews:       150,
		EstimatedOwners:    11250,
		Tags:               []string{"Indie"},
		IsAvailableInStore: true,
		ReleaseDate:        releaseDate,
	}
}

func candidates(appIDs ...int) []models.CandidateGame {
	out := make([]models.CandidateGame, 0, len(appIDs))
	for _, id := range appIDs {
		out = append(out, models.CandidateGame{
			AppID: id,
			Title: fmt.Sprintf("Game %d", id),
			Tags:  []string{"Catalog Tag"},
		})
	}
	return out
}

func TestBuildRankingsRefreshesAndCaches(t *testing.T) {
	store := newFakeRankingStore()
	source := newFakeSource()
	source.games[1] = snapshot(1, "First", "2023-05-01")
	source.games[2] = snapshot(2, "Second", "2024-01-15")

	agg := NewAggregator(store, source, newFakeClassifier(), candidates(1, 2), 24)

	results, err := agg.BuildRankings(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "First", results[0].Title)
	assert.Equal(t, "Second", results[1].Title)
	assert.Equal(t, models.LabelHiddenGem, results[0].GemLabel)
	assert.True(t, results[0].IsStatisticallyHidden)
	require.NotNil(t, results[0].ReleaseYear)
	assert.Equal(t, 2023, *results[0].ReleaseYear)

	require.Len(t, store.upserts, 2)
}

func TestBuildRankingsFreshCacheSkipsPipeline(t *testing.T) {
	store := newFakeRankingStore()
	store.entries[1] = &models.CacheEntry{
		AppID:     1,
		Data:      models.RankingGame{AppID: 1, Title: "Cached", ReleaseDate: "2023-05-01"},
		UpdatedAt: time.Now().Add(-1 * time.Hour),
	}

	source := newFakeSource()
	classifier := newFakeClassifier()
	agg := NewAggregator(store, source, classifier, candidates(1), 24)

	results, err := agg.BuildRankings(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "Cached", results[0].Title)
	assert.Empty(t, source.calls)
	assert.Empty(t, classifier.calls)
	assert.Empty(t, store.upserts)
}

func TestBuildRankingsStaleCacheRefreshes(t *testing.T) {
	store := newFakeRankingStore()
	store.entries[1] = &models.CacheEntry{
		AppID:     1,
		Data:      models.RankingGame{AppID: 1, Title: "Stale"},
		UpdatedAt: time.Now().Add(-48 * time.Hour),
	}

	source := newFakeSource()
	source.games[1] = snapshot(1, "Refreshed", "2023-05-01")

	agg := NewAggregator(store, source, newFakeClassifier(), candidates(1), 24)

	results, err := agg.BuildRankings(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Refreshed", results[0].Title)
	assert.Equal(t, []int{1}, source.calls)
}

func TestBuildRankingsSkipsFailedCandidates(t *testing.T) {
	store := newFakeRankingStore()
	source := newFakeSource()
	source.games[1] = snapshot(1, "First", "2023-05-01")
	source.errs[2] = errors.New("upstream down")
	source.games[3] = snapshot(3, "Third", "2024-01-15")

	agg := NewAggregator(store, source, newFakeClassifier(), candidates(1, 2, 3), 24)

	results, err := agg.BuildRankings(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "First", results[0].Title)
	assert.Equal(t, "Third", results[1].Title)
}

func TestBuildRankingsSkipsUnavailableWithoutCaching(t *testing.T) {
	store := newFakeRankingStore()
	source := newFakeSource()
	unavailable := snapshot(1, "Delisted", "2020-01-01")
	unavailable.IsAvailableInStore = false
	source.games[1] = unavailable

	classifier := newFakeClassifier()
	agg := NewAggregator(store, source, classifier, candidates(1), 24)

	results, err := agg.BuildRankings(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, classifier.calls)
	assert.Empty(t, store.upserts)
}

func TestBuildRankingsSkipsClassifierFailure(t *testing.T) {
	store := newFakeRankingStore()
	source := newFakeSource()
	source.games[1] = snapshot(1, "First", "2023-05-01")
	source.games[2] = snapshot(2, "Second", "2024-01-15")

	classifier := newFakeClassifier()
	classifier.errs[1] = errors.New("rate limited")

	agg := NewAggregator(store, source, classifier, candidates(1, 2), 24)

	results, err := agg.BuildRankings(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Second", results[0].Title)
	require.Len(t, store.upserts, 1)
}

func TestBuildRankingsCacheWriteFailureStillServes(t *testing.T) {
	store := newFakeRankingStore()
	store.putErr = errors.New("disk full")

	source := newFakeSource()
	source.games[1] = snapshot(1, "First", "2023-05-01")

	agg := NewAggregator(store, source, newFakeClassifier(), candidates(1), 24)

	results, err := agg.BuildRankings(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "First", results[0].Title)
}

func TestBuildRankingsTagFallback(t *testing.T) {
	store := newFakeRankingStore()
	source := newFakeSource()
	tagless := snapshot(1, "First", "2023-05-01")
	tagless.Tags = nil
	source.games[1] = tagless

	agg := NewAggregator(store, source, newFakeClassifier(), candidates(1), 24)

	results, err := agg.BuildRankings(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"Catalog Tag"}, results[0].Tags)
}

func TestBuildRankingsRecencyFilter(t *testing.T) {
	now := time.Now()
	store := newFakeRankingStore()
	source := newFakeSource()
	source.games[1] = snapshot(1, "Old", now.AddDate(0, 0, -40).Format("2006-01-02"))
	source.games[2] = snapshot(2, "Recent", now.AddDate(0, 0, -10).Format("2006-01-02"))
	source.games[3] = snapshot(3, "Undated", "")

	agg := NewAggregator(store, source, newFakeClassifier(), candidates(1, 2, 3), 24)

	days := 30
	results, err := agg.BuildRankings(context.Background(), &days)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Recent", results[0].Title)

	// All three were still ranked and cached before filtering.
	assert.Len(t, store.upserts, 3)
}

func TestBuildRankingsRecencyFilterClamped(t *testing.T) {
	now := time.Now()
	store := newFakeRankingStore()
	source := newFakeSource()
	source.games[1] = snapshot(1, "Today", now.Format("2006-01-02"))
	source.games[2] = snapshot(2, "Ancient", "2010-06-15")

	agg := NewAggregator(store, source, newFakeClassifier(), candidates(1, 2), 24)

	// Out-of-range values clamp instead of erroring.
	days := 0
	results, err := agg.BuildRankings(context.Background(), &days)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Today", results[0].Title)

	days = 1000000
	results, err = agg.BuildRankings(context.Background(), &days)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Today", results[0].Title)
}

func TestBuildRankingsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agg := NewAggregator(newFakeRankingStore(), newFakeSource(), newFakeClassifier(), candidates(1), 24)

	_, err := agg.BuildRankings(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseReleaseYear(t *testing.T) {
	year := parseReleaseYear("2023-05-01")
	require.NotNil(t, year)
	assert.Equal(t, 2023, *year)

	assert.Nil(t, parseReleaseYear(""))
	assert.Nil(t, parseReleaseYear("soon"))
}
