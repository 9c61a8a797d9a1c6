package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/steamgems/backend/internal/storage/models"
	"github.com/steamgems/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	_, err = db.Exec("PRAGMA busy_timeout = 5000")
	if err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

// NewClientWithDB wraps an existing handle. Used by tests.
func NewClientWithDB(db *sql.DB) *Client {
	return &Client{db: db}
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Ping() error {
	return c.db.Ping()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS steam_games (
		app_id INTEGER PRIMARY KEY,
		data TEXT NOT NULL,
		last_fetch_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_steam_games_fetched ON steam_games(last_fetch_at);

	CREATE TABLE IF NOT EXISTS game_rankings_cache (
		app_id INTEGER PRIMARY KEY,
		data TEXT NOT NULL,
		review_quality_score REAL NOT NULL DEFAULT 0,
		is_available INTEGER NOT NULL DEFAULT 1,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_rankings_quality ON game_rankings_cache(review_quality_score);
	CREATE INDEX IF NOT EXISTS idx_rankings_updated ON game_rankings_cache(updated_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// GetSteamGame returns the cached source snapshot for appID, or found=false
// when no row exists.
func (c *Client) GetSteamGame(appID int) (*models.SteamGame, bool, error) {
	query := `SELECT data, last_fetch_at FROM steam_games WHERE app_id = ?`

	var data string
	var fetchedAt int64

	err := c.db.QueryRow(query, appID).Scan(&data, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get steam game: %w", err)
	}

	var game models.SteamGame
	if err := json.Unmarshal([]byte(data), &game); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal steam game: %w", err)
	}
	game.LastFetchAt = time.Unix(fetchedAt, 0)

	return &game, true, nil
}

func (c *Client) UpsertSteamGame(game *models.SteamGame) error {
	data, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("failed to marshal steam game: %w", err)
	}

	query := `
		INSERT INTO steam_games (app_id, data, last_fetch_at)
		VALUES (?, ?, ?)
		ON CONFLICT(app_id) DO UPDATE SET
			data = excluded.data,
			last_fetch_at = excluded.last_fetch_at
	`

	_, err = c.db.Exec(query, game.AppID, string(data), game.LastFetchAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert steam game: %w", err)
	}

	logger.Debug("Steam game cached", zap.Int("app_id", game.AppID))
	return nil
}

// GetRanking returns the cached ranking entry for appID, or found=false when
// no row exists. Freshness is the caller's concern.
func (c *Client) GetRanking(appID int) (*models.CacheEntry, bool, error) {
	query := `SELECT data, updated_at FROM game_rankings_cache WHERE app_id = ?`

	var data string
	var updatedAt int64

	err := c.db.QueryRow(query, appID).Scan(&data, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get ranking: %w", err)
	}

	entry := models.CacheEntry{
		AppID:     appID,
		UpdatedAt: time.Unix(updatedAt, 0),
	}
	if err := json.Unmarshal([]byte(data), &entry.Data); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal ranking: %w", err)
	}

	return &entry, true, nil
}

func (c *Client) UpsertRanking(game *models.RankingGame, updatedAt time.Time) error {
	data, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("failed to marshal ranking: %w", err)
	}

	available := 0
	if game.IsAvailableInStore {
		available = 1
	}

	query := `
		INSERT INTO game_rankings_cache (app_id, data, review_quality_score, is_available, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(app_id) DO UPDATE SET
			data = excluded.data,
			review_quality_score = excluded.review_quality_score,
			is_available = excluded.is_available,
			updated_at = excluded.updated_at
	`

	_, err = c.db.Exec(
		query,
		game.AppID,
		string(data),
		game.Analysis.ReviewQualityScore,
		available,
		updatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert ranking: %w", err)
	}

	logger.Debug("Ranking cached",
		zap.Int("app_id", game.AppID),
		zap.String("gem_label", string(game.GemLabel)),
	)
	return nil
}

// QueryCandidates loads the similarity candidate pool: rows with a review
// quality score of at least minQuality, excluding excludeAppID, in app_id
// order, capped at limit.
func (c *Client) QueryCandidates(minQuality float64, excludeAppID, limit int) ([]models.CacheEntry, error) {
	query := `
		SELECT app_id, data, updated_at
		FROM game_rankings_cache
		WHERE review_quality_score >= ? AND app_id != ?
		ORDER BY app_id ASC
		LIMIT ?
	`

	rows, err := c.db.Query(query, minQuality, excludeAppID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var entries []models.CacheEntry
	for rows.Next() {
		var entry models.CacheEntry
		var data string
		var updatedAt int64

		if err := rows.Scan(&entry.AppID, &data, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &entry.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal candidate: %w", err)
		}
		entry.UpdatedAt = time.Unix(updatedAt, 0)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candidates: %w", err)
	}

	return entries, nil
}
