package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/steamgems/backend/internal/metrics"
	"github.com/steamgems/backend/internal/storage/models"
	"github.com/steamgems/backend/pkg/logger"
)

// ErrNotFound means the store has no details object for the requested app id.
var ErrNotFound = errors.New("steam app not found")

const (
	maxExcerpts      = 15
	minExcerptLength = 50
	reviewsPerPage   = 100
	ownersPerReview  = 75
	playersPerReview = 50
	defaultFreshness = 1440
)

// GameStore is the per-title source cache consulted before any upstream call.
type GameStore interface {
	GetSteamGame(appID int) (*models.SteamGame, bool, error)
	UpsertSteamGame(game *models.SteamGame) error
}

type Client struct {
	storeBaseURL     string
	reviewsBaseURL   string
	httpClient       *http.Client
	store            GameStore
	freshnessMinutes int
	now              func() time.Time
}

func NewClient(storeBaseURL, reviewsBaseURL string, timeout time.Duration, freshnessMinutes int, store GameStore) *Client {
	if freshnessMinutes <= 0 {
		freshnessMinutes = defaultFreshness
	}
	return &Client{
		storeBaseURL:     strings.TrimRight(storeBaseURL, "/"),
		reviewsBaseURL:   strings.TrimRight(reviewsBaseURL, "/"),
		httpClient:       &http.Client{Timeout: timeout},
		store:            store,
		freshnessMinutes: freshnessMinutes,
		now:              time.Now,
	}
}

type appDetailsEnvelope struct {
	Success bool        `json:"success"`
	Data    *appDetails `json:"data"`
}

type appDetails struct {
	Name          string         `json:"name"`
	Type          string         `json:"type"`
	IsFree        bool           `json:"is_free"`
	PriceOverview *PriceOverview `json:"price_overview"`
	ReleaseDate   *struct {
		ComingSoon bool   `json:"coming_soon"`
		Date       string `json:"date"`
	} `json:"release_date"`
	Genres []struct {
		Description string `json:"description"`
	} `json:"genres"`
	Metacritic *struct {
		Score float64 `json:"score"`
	} `json:"metacritic"`
}

type reviewsResponse struct {
	Success      int `json:"success"`
	QuerySummary struct {
		ReviewScoreDesc string `json:"review_score_desc"`
		TotalPositive   int    `json:"total_positive"`
		TotalNegative   int    `json:"total_negative"`
		TotalReviews    int    `json:"total_reviews"`
	} `json:"query_summary"`
	Reviews []struct {
		Review  string `json:"review"`
		VotedUp bool   `json:"voted_up"`
		Author  struct {
			PlaytimeForever float64 `json:"playtime_forever"`
		} `json:"author"`
	} `json:"reviews"`
}

// Fetch returns the normalized snapshot for appID. A cached row younger than
// freshnessMinutes (<=0 means the client default) is returned verbatim with
// no upstream call. On refresh the merged record is upserted best-effort: a
// failed write is logged and the record still returned.
func (c *Client) Fetch(ctx context.Context, appID int, freshnessMinutes int) (*models.SteamGame, error) {
	if freshnessMinutes <= 0 {
		freshnessMinutes = c.freshnessMinutes
	}

	cached, found, err := c.store.GetSteamGame(appID)
	if err != nil {
		logger.Warn("Steam cache read failed", zap.Int("app_id", appID), zap.Error(err))
	}

	now := c.now()
	if found && now.Sub(cached.LastFetchAt) < time.Duration(freshnessMinutes)*time.Minute {
		metrics.SteamCacheHits.Inc()
		logger.Debug("Steam cache hit",
			zap.Int("app_id", appID),
			zap.Duration("age", now.Sub(cached.LastFetchAt)),
		)
		return cached, nil
	}
	metrics.SteamCacheMisses.Inc()

	details, err := c.fetchDetails(ctx, appID)
	if err != nil {
		return nil, err
	}

	reviews, err := c.fetchReviews(ctx, appID)
	if err != nil {
		return nil, err
	}

	game := c.buildSnapshot(appID, details, reviews, cached, now)

	if err := c.store.UpsertSteamGame(game); err != nil {
		logger.Warn("Steam cache write failed", zap.Int("app_id", appID), zap.Error(err))
	}

	logger.Info("Steam data fetched",
		zap.Int("app_id", appID),
		zap.String("title", game.Title),
		zap.Int("total_reviews", game.TotalReviews),
	)

	return game, nil
}

func (c *Client) fetchDetails(ctx context.Context, appID int) (*appDetails, error) {
	url := fmt.Sprintf("%s/appdetails?appids=%d&cc=us&l=en", c.storeBaseURL, appID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch app details: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("appdetails returned status %d", resp.StatusCode)
	}

	var envelope map[string]appDetailsEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode app details: %w", err)
	}

	entry, ok := envelope[strconv.Itoa(appID)]
	if !ok || !entry.Success || entry.Data == nil {
		return nil, ErrNotFound
	}

	return entry.Data, nil
}

func (c *Client) fetchReviews(ctx context.Context, appID int) (*reviewsResponse, error) {
	url := fmt.Sprintf("%s/appreviews/%d?json=1&filter=recent&language=english&num_per_page=%d",
		c.reviewsBaseURL, appID, reviewsPerPage)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reviews: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("appreviews returned status %d", resp.StatusCode)
	}

	var reviews reviewsResponse
	if err := json.NewDecoder(resp.Body).Decode(&reviews); err != nil {
		return nil, fmt.Errorf("failed to decode reviews: %w", err)
	}

	return &reviews, nil
}

func (c *Client) buildSnapshot(appID int, details *appDetails, reviews *reviewsResponse, cached *models.SteamGame, now time.Time) *models.SteamGame {
	summary := reviews.QuerySummary

	positiveRatio := 0.0
	if summary.TotalReviews > 0 {
		positiveRatio = float64(summary.TotalPositive) / float64(summary.TotalReviews) * 100
	}

	excerpts := make([]string, 0, maxExcerpts)
	var playtimeSum float64
	for _, r := range reviews.Reviews {
		playtimeSum += r.Author.PlaytimeForever
		text := scrubReviewText(r.Review)
		if len(text) > minExcerptLength && len(excerpts) < maxExcerpts {
			excerpts = append(excerpts, text)
		}
	}

	avgPlaytime := 0.0
	if len(reviews.Reviews) > 0 {
		avgPlaytime = playtimeSum / float64(len(reviews.Reviews)) / 60
	}

	releaseDateRaw := ""
	comingSoon := false
	if details.ReleaseDate != nil {
		releaseDateRaw = details.ReleaseDate.Date
		comingSoon = details.ReleaseDate.ComingSoon
	}

	lastUpdated := releaseDateRaw
	if lastUpdated == "" {
		lastUpdated = "Unknown"
	}

	tags := make([]string, 0, len(details.Genres))
	for _, g := range details.Genres {
		tags = append(tags, g.Description)
	}

	reviewScoreDesc := summary.ReviewScoreDesc
	if details.Metacritic != nil {
		reviewScoreDesc = fmt.Sprintf("Metacritic: %.0f", details.Metacritic.Score)
	}

	estimatedOwners := summary.TotalReviews * ownersPerReview
	if estimatedOwners == 0 && cached != nil {
		estimatedOwners = cached.EstimatedOwners
	}

	game := &models.SteamGame{
		AppID:              appID,
		Title:              details.Name,
		PositiveRatio:      positiveRatio,
		TotalReviews:       summary.TotalReviews,
		EstimatedOwners:    estimatedOwners,
		RecentPlayers:      len(reviews.Reviews) * playersPerReview,
		AveragePlaytime:    avgPlaytime,
		LastUpdated:        lastUpdated,
		Reviews:            excerpts,
		Tags:               tags,
		SteamURL:           fmt.Sprintf("https://store.steampowered.com/app/%d", appID),
		ReviewScoreDesc:    reviewScoreDesc,
		IsAvailableInStore: !comingSoon && details.Type == "game",
		ReleaseDate:        normalizeReleaseDate(releaseDateRaw),
		LastFetchAt:        now,
	}

	applyPrice(game, ParsePriceOverview(details.PriceOverview), cached)

	return game
}

// applyPrice merges the freshly parsed pricing into the snapshot. When the
// new payload carries no price at all, the cached price fields are kept; a
// missing list price falls back to the cached list price so a temporary sale
// payload does not erase it.
func applyPrice(game *models.SteamGame, parsed ParsedPrice, cached *models.SteamGame) {
	if parsed.Final != nil {
		game.Price = *parsed.Final
		game.DiscountPercent = parsed.DiscountPercent
		game.IsOnSale = parsed.IsOnSale

		if parsed.Original != nil {
			game.PriceOriginal = parsed.Original
		} else if cached != nil && cached.PriceOriginal != nil {
			game.PriceOriginal = cached.PriceOriginal
		}
		return
	}

	if cached != nil {
		game.Price = cached.Price
		game.PriceOriginal = cached.PriceOriginal
		game.DiscountPercent = cached.DiscountPercent
		game.IsOnSale = cached.IsOnSale
	}
}

var releaseDateLayouts = []string{
	"Jan 2, 2006",
	"2 Jan, 2006",
	"January 2, 2006",
	"2006-01-02",
	"2006",
}

// normalizeReleaseDate converts Steam's display formats ("Mar 24, 2014") to
// YYYY-MM-DD. Unparseable input is kept as-is.
func normalizeReleaseDate(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	for _, layout := range releaseDateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return trimmed
}

// scrubReviewText strips the HTML-ish markup Steam reviews carry and
// collapses the result to plain trimmed text. Unparseable input is returned
// trimmed.
func scrubReviewText(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(strings.Join(strings.Fields(doc.Text()), " "))
}
