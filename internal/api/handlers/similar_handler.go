package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/steamgems/backend/internal/metrics"
	"github.com/steamgems/backend/internal/storage/models"
	"github.com/steamgems/backend/pkg/logger"
	"github.com/steamgems/backend/pkg/utils"
)

type SimilarityFinder interface {
	FindSimilar(ctx context.Context, appID, limit int) ([]models.ScoredGame, error)
}

// ResponseCache is the optional short-TTL cache in front of the similarity
// endpoint. A nil cache disables it.
type ResponseCache interface {
	GetSimilar(ctx context.Context, key string, response interface{}) (bool, error)
	SetSimilar(ctx context.Context, key string, response interface{}, ttl time.Duration) error
}

type SimilarHandler struct {
	engine SimilarityFinder
	cache  ResponseCache
	ttl    time.Duration
}

func NewSimilarHandler(engine SimilarityFinder, cache ResponseCache, ttl time.Duration) *SimilarHandler {
	return &SimilarHandler{
		engine: engine,
		cache:  cache,
		ttl:    ttl,
	}
}

func (h *SimilarHandler) FindSimilar(c *fiber.Ctx) error {
	var req struct {
		AppID int `json:"appId"`
		Limit int `json:"limit"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.AppID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "appId is required",
		})
	}

	if req.Limit <= 0 {
		req.Limit = 3
	}

	cacheKey := utils.HashString(fmt.Sprintf("%d:%d", req.AppID, req.Limit))
	if h.cache != nil {
		var cached []models.ScoredGame
		hit, err := h.cache.GetSimilar(c.Context(), cacheKey, &cached)
		if err != nil {
			logger.Warn("Similar response cache read failed", zap.Error(err))
		}
		if hit {
			metrics.SimilarCacheHits.WithLabelValues("hit").Inc()
			return c.JSON(fiber.Map{"data": cached})
		}
		metrics.SimilarCacheHits.WithLabelValues("miss").Inc()
	}

	scored, err := h.engine.FindSimilar(c.Context(), req.AppID, req.Limit)
	if err != nil {
		logger.Error("Failed to find similar games", zap.Int("app_id", req.AppID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to find similar games",
		})
	}

	if h.cache != nil {
		if err := h.cache.SetSimilar(c.Context(), cacheKey, scored, h.ttl); err != nil {
			logger.Warn("Similar response cache write failed", zap.Error(err))
		}
	}

	return c.JSON(fiber.Map{"data": scored})
}
