package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steamgems/backend/internal/storage/models"
)

type fakeBuilder struct {
	rankings   []models.RankingGame
	err        error
	recentDays *int
	calls      int
}

func (f *fakeBuilder) BuildRankings(ctx context.Context, recentDays *int) ([]models.RankingGame, error) {
	f.calls++
	f.recentDays = recentDays
	return f.rankings, f.err
}

type fakeInvalidator struct {
	calls int
	err   error
}

func (f *fakeInvalidator) InvalidateSimilar(ctx context.Context) error {
	f.calls++
	return f.err
}

func newRankingsApp(builder *fakeBuilder, invalidator CacheInvalidator) *fiber.App {
	app := fiber.New()
	handler := NewRankingsHandler(builder, invalidator)
	app.Get("/api/v1/rankings", handler.GetRankings)
	return app
}

func TestGetRankings(t *testing.T) {
	builder := &fakeBuilder{
		rankings: []models.RankingGame{
			{AppID: 1408720, Title: "Dome Keeper", GemLabel: models.LabelHiddenGem},
		},
	}
	app := newRankingsApp(builder, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/rankings", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got []models.RankingGame
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "Dome Keeper", got[0].Title)
	assert.Nil(t, builder.recentDays)
}

func TestGetRankingsRecentDays(t *testing.T) {
	builder := &fakeBuilder{}
	app := newRankingsApp(builder, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/rankings?recentDays=30", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.NotNil(t, builder.recentDays)
	assert.Equal(t, 30, *builder.recentDays)
}

func TestGetRankingsIgnoresBadRecentDays(t *testing.T) {
	builder := &fakeBuilder{}
	app := newRankingsApp(builder, nil)

	for _, raw := range []string{"abc", "-5", "0"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/rankings?recentDays="+raw, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Nil(t, builder.recentDays, "raw=%q", raw)
	}
}

func TestGetRankingsError(t *testing.T) {
	builder := &fakeBuilder{err: errors.New("batch failed")}
	app := newRankingsApp(builder, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/rankings", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestGetRankingsInvalidatesResponseCache(t *testing.T) {
	builder := &fakeBuilder{}
	invalidator := &fakeInvalidator{}
	app := newRankingsApp(builder, invalidator)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/rankings", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, invalidator.calls)
}

func TestGetRankingsInvalidationFailureIsNotFatal(t *testing.T) {
	builder := &fakeBuilder{}
	invalidator := &fakeInvalidator{err: errors.New("redis down")}
	app := newRankingsApp(builder, invalidator)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/rankings", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
