package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/steamgems/backend/internal/storage/models"
	"github.com/steamgems/backend/pkg/logger"
)

type RankingsBuilder interface {
	BuildRankings(ctx context.Context, recentDays *int) ([]models.RankingGame, error)
}

// CacheInvalidator drops derived response caches after a ranking rebuild
// rewrites the candidate pool.
type CacheInvalidator interface {
	InvalidateSimilar(ctx context.Context) error
}

type RankingsHandler struct {
	aggregator  RankingsBuilder
	invalidator CacheInvalidator
}

// NewRankingsHandler builds the rankings handler. invalidator may be nil
// when no response cache is configured.
func NewRankingsHandler(aggregator RankingsBuilder, invalidator CacheInvalidator) *RankingsHandler {
	return &RankingsHandler{aggregator: aggregator, invalidator: invalidator}
}

func (h *RankingsHandler) GetRankings(c *fiber.Ctx) error {
	var recentDays *int
	if raw := c.Query("recentDays"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err == nil && parsed > 0 {
			recentDays = &parsed
		}
	}

	rankings, err := h.aggregator.BuildRankings(c.Context(), recentDays)
	if err != nil {
		logger.Error("Failed to build rankings", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to build rankings",
		})
	}

	if h.invalidator != nil {
		if err := h.invalidator.InvalidateSimilar(c.Context()); err != nil {
			logger.Warn("Failed to invalidate similar response cache", zap.Error(err))
		}
	}

	return c.JSON(rankings)
}
