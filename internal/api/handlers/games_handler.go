package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/steamgems/backend/internal/steam"
	"github.com/steamgems/backend/internal/storage/models"
	"github.com/steamgems/backend/pkg/logger"
)

type GameFetcher interface {
	Fetch(ctx context.Context, appID, freshnessMinutes int) (*models.SteamGame, error)
}

// GamesHandler exposes the get-or-create source fetch directly: the cached
// snapshot when fresh, a refreshed one otherwise.
type GamesHandler struct {
	fetcher GameFetcher
}

func NewGamesHandler(fetcher GameFetcher) *GamesHandler {
	return &GamesHandler{fetcher: fetcher}
}

func (h *GamesHandler) GetOrCreate(c *fiber.Ctx) error {
	var req struct {
		AppID            int `json:"appId"`
		FreshnessMinutes int `json:"freshnessMinutes"`
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

	game, err := h.fetcher.Fetch(c.Context(), req.AppID, req.FreshnessMinutes)
	if err != nil {
		if errors.Is(err, steam.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Steam appdetails not found",
			})
		}
		logger.Error("Failed to fetch steam game", zap.Int("app_id", req.AppID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch Steam data",
		})
	}

	return c.JSON(game)
}
