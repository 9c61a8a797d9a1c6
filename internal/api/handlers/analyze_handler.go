package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/steamgems/backend/internal/classifier"
	"github.com/steamgems/backend/internal/storage/models"
	"github.com/steamgems/backend/pkg/logger"
)

type GameClassifier interface {
	Classify(ctx context.Context, game *models.SteamGame) (*models.GemAnalysis, error)
}

// AnalyzeHandler exposes the classifier directly. Rate-limit and quota
// failures keep their distinct statuses so the caller can react; any other
// classifier failure already comes back as the fallback analysis.
type AnalyzeHandler struct {
	classifier GameClassifier
}

func NewAnalyzeHandler(gameClassifier GameClassifier) *AnalyzeHandler {
	return &AnalyzeHandler{classifier: gameClassifier}
}

func (h *AnalyzeHandler) Analyze(c *fiber.Ctx) error {
	var game models.SteamGame
	if err := c.BodyParser(&game); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if game.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "title is required",
		})
	}

	analysis, err := h.classifier.Classify(c.Context(), &game)
	if err != nil {
		if errors.Is(err, classifier.ErrRateLimited) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Rate limit exceeded. Please try again later.",
			})
		}
		if errors.Is(err, classifier.ErrQuotaExhausted) {
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
				"error": "AI credits depleted. Please add credits to continue.",
			})
		}
		logger.Error("Failed to classify game", zap.String("title", game.Title), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to analyze game",
		})
	}

	return c.JSON(analysis)
}
