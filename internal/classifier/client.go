package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/steamgems/backend/internal/metrics"
	"github.com/steamgems/backend/internal/storage/models"
	"github.com/steamgems/backend/pkg/circuitbreaker"
	"github.com/steamgems/backend/pkg/logger"
)

// Distinguished failure kinds surfaced to the caller so a retry policy can
// react. Every other failure mode resolves to the fallback sentinel.
var (
	ErrRateLimited    = errors.New("classifier rate limited")
	ErrQuotaExhausted = errors.New("classifier quota exhausted")
)

// Bounds keeping the prompt payload within a safe size.
const (
	maxExcerpts          = 15
	maxExcerptChars      = 500
	maxTotalExcerptChars = 12000
)

type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	breaker     *circuitbreaker.Breaker
}

func NewClient(baseURL, apiKey, model string, temperature float32, maxTokens, timeoutSec int) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	if timeoutSec <= 0 {
		timeoutSec = 25
	}

	breaker := circuitbreaker.New("classifier", circuitbreaker.Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Cooldown:         time.Minute,
		Logger:           logger.GetLogger(),
	})

	logger.Info("Classifier client initialized",
		zap.String("model", model),
		zap.String("base_url", cfg.BaseURL),
	)

	return &Client{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		timeout:     time.Duration(timeoutSec) * time.Second,
		breaker:     breaker,
	}
}

// Classify asks the external model for a hidden-gem analysis of game. It
// returns an error only for the rate-limit and quota kinds above; timeouts,
// transport failures, bad JSON, and any other upstream status all resolve to
// the neutral fallback analysis with AIError set.
func (c *Client) Classify(ctx context.Context, game *models.SteamGame) (*models.GemAnalysis, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	excerpts := prepareExcerpts(game.Reviews)

	var resp openai.ChatCompletionResponse
	err := c.breaker.Execute(func() error {
		var callErr error
		resp, callErr = c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(game, excerpts)},
			},
			Temperature: c.temperature,
			MaxTokens:   c.maxTokens,
		})
		return callErr
	})

	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.HTTPStatusCode {
			case http.StatusTooManyRequests:
				metrics.ClassifierCalls.WithLabelValues("rate_limited").Inc()
				return nil, fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Message)
			case http.StatusPaymentRequired:
				metrics.ClassifierCalls.WithLabelValues("quota_exhausted").Inc()
				return nil, fmt.Errorf("%w: %s", ErrQuotaExhausted, apiErr.Message)
			}
		}

		metrics.ClassifierCalls.WithLabelValues("fallback").Inc()
		logger.Warn("Classifier call failed, using fallback analysis",
			zap.String("title", game.Title),
			zap.Error(err),
		)
		return FallbackAnalysis(), nil
	}

	metrics.ClassifierTokensUsed.WithLabelValues("prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.ClassifierTokensUsed.WithLabelValues("completion").Add(float64(resp.Usage.CompletionTokens))

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		metrics.ClassifierCalls.WithLabelValues("fallback").Inc()
		logger.Warn("Empty classifier response", zap.String("title", game.Title))
		return FallbackAnalysis(), nil
	}

	analysis, err := ParseAnalysis(resp.Choices[0].Message.Content)
	if err != nil {
		metrics.ClassifierCalls.WithLabelValues("fallback").Inc()
		logger.Warn("Failed to parse classifier response",
			zap.String("title", game.Title),
			zap.Error(err),
		)
		return FallbackAnalysis(), nil
	}

	metrics.ClassifierCalls.WithLabelValues("ok").Inc()
	logger.Debug("Game classified",
		zap.String("title", game.Title),
		zap.String("verdict", string(analysis.HiddenGemVerdict)),
	)

	return analysis, nil
}

// FallbackAnalysis is the neutral sentinel used whenever a real
// classification cannot be completed.
func FallbackAnalysis() *models.GemAnalysis {
	return &models.GemAnalysis{
		HiddenGemVerdict:   models.VerdictUnknown,
		Summary:            "AI analysis failed. Showing fallback values based on basic metrics only.",
		Labels:             []string{"AI-error", "fallback"},
		Pros:               []string{},
		Cons:               []string{},
		RiskScore:          5,
		BugRisk:            5,
		RefundMentions:     5,
		ReviewQualityScore: 5,
		StabilityTrend:     models.TrendUnknown,
		AIError:            true,
	}
}

// prepareExcerpts bounds the review input: at most maxExcerpts entries, each
// truncated to maxExcerptChars, blanks and duplicates dropped, accumulation
// stopping before the total budget would be exceeded.
func prepareExcerpts(reviews []string) []string {
	if len(reviews) == 0 {
		return nil
	}
	if len(reviews) > maxExcerpts {
		reviews = reviews[:maxExcerpts]
	}

	seen := make(map[string]struct{}, len(reviews))
	out := make([]string, 0, len(reviews))
	total := 0

	for _, review := range reviews {
		if len(review) > maxExcerptChars {
			review = review[:maxExcerptChars]
		}
		if total+len(review) > maxTotalExcerptChars {
			break
		}
		trimmed := strings.TrimSpace(review)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
		total += len(review)
	}

	return out
}

const systemPrompt = `You are an AI analyst who evaluates Steam games and contrasts their CURRENT experience with their HISTORICAL launch/early issues.

Return ONLY valid JSON using this schema:

{
  "hiddenGemVerdict": "Yes" | "No" | "Unknown",
  "summary": "One or two concise sentences explaining the overall evaluation",
  "labels": ["short label", ...],
  "pros": ["strength 1", ...],
  "cons": ["weakness 1", ...],
  "riskScore": 1-10,
  "bugRisk": 1-10,
  "refundMentions": 0-10,
  "reviewQualityScore": 1-10,
  "currentStateSummary": string | "" | null,
  "historicalIssuesSummary": "" | null,
  "hasImprovedSinceLaunch": true | false | null,
  "stabilityTrend": "Improving" | "Stable" | "Deteriorating" | "Unknown",
  "currentStateReliability": "high" | "medium" | "low" | null,
  "historicalIssuesReliability": "high" | "medium" | "low" | null
}

Rules:
1. Base currentStateSummary ONLY on the review excerpts. Mention stability, polish, standout positives, or new issues that affect players now.
2. When the data shows clear launch/early issues and later improvement, describe that history directly in currentStateSummary.
3. Set hasImprovedSinceLaunch to true/false only when the difference is obvious. Otherwise, use null.
4. stabilityTrend must be one of the allowed strings above. Use "Unknown" when the direction is unclear.
   The reliability fields grade how much review evidence backs each summary; use null when unsure.
5. Never fabricate statements like "not enough data" inside the summaries. Prefer empty strings or null values when evidence is missing.
6. Keep sentences concise (under 3 sentences per field) and avoid markdown or bullet formatting.

Always respond with raw JSON only.`

func buildUserPrompt(game *models.SteamGame, excerpts []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Game metadata:\n")
	fmt.Fprintf(&b, "- Title: %s\n", game.Title)
	fmt.Fprintf(&b, "- Tags: %s\n", strings.Join(game.Tags, ", "))
	fmt.Fprintf(&b, "- Positive ratio: %.1f\n", game.PositiveRatio)
	fmt.Fprintf(&b, "- Total reviews: %d\n", game.TotalReviews)
	fmt.Fprintf(&b, "- Price: %.2f\n", game.Price)
	fmt.Fprintf(&b, "- Estimated owners: %d\n", game.EstimatedOwners)
	fmt.Fprintf(&b, "- Average playtime (minutes): %.1f\n", game.AveragePlaytime)

	b.WriteString("\nReview excerpts:\n")
	if len(excerpts) == 0 {
		b.WriteString("No reliable reviews were supplied. Base the evaluation on the metadata only.\n")
	} else {
		for i, excerpt := range excerpts {
			fmt.Fprintf(&b, "%d. %s\n", i+1, excerpt)
		}
	}

	return strings.TrimSpace(b.String())
}

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ParseAnalysis extracts the JSON object from content, whether or not the
// model wrapped it in a fenced code block, and normalizes it into a
// GemAnalysis.
func ParseAnalysis(content string) (*models.GemAnalysis, error) {
	jsonStr := strings.TrimSpace(content)
	if match := fencedJSONPattern.FindStringSubmatch(jsonStr); match != nil {
		jsonStr = match[1]
	}

	var payload struct {
		HiddenGemVerdict        string   `json:"hiddenGemVerdict"`
		Summary                 string   `json:"summary"`
		Labels                  []string `json:"labels"`
		Pros                    []string `json:"pros"`
		Cons                    []string `json:"cons"`
		RiskScore               *float64 `json:"riskScore"`
		BugRisk                 *float64 `json:"bugRisk"`
		RefundMentions          *float64 `json:"refundMentions"`
		ReviewQualityScore      *float64 `json:"reviewQualityScore"`
		CurrentStateSummary         string   `json:"currentStateSummary"`
		HistoricalIssuesSummary     string   `json:"historicalIssuesSummary"`
		HasImprovedSinceLaunch      *bool    `json:"hasImprovedSinceLaunch"`
		StabilityTrend              string   `json:"stabilityTrend"`
		CurrentStateReliability     string   `json:"currentStateReliability"`
		HistoricalIssuesReliability string   `json:"historicalIssuesReliability"`
	}

	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return nil, fmt.Errorf("invalid JSON in classifier response: %w", err)
	}

	return &models.GemAnalysis{
		HiddenGemVerdict:        normalizeVerdict(payload.HiddenGemVerdict),
		Summary:                 strings.TrimSpace(payload.Summary),
		Labels:                  normalizeStringList(payload.Labels, 0),
		Pros:                    normalizeStringList(payload.Pros, 5),
		Cons:                    normalizeStringList(payload.Cons, 5),
		RiskScore:               clampScore(payload.RiskScore),
		BugRisk:                 clampScore(payload.BugRisk),
		RefundMentions:          clampScore(payload.RefundMentions),
		ReviewQualityScore:      clampScore(payload.ReviewQualityScore),
		CurrentStateSummary:         strings.TrimSpace(payload.CurrentStateSummary),
		HistoricalIssuesSummary:     strings.TrimSpace(payload.HistoricalIssuesSummary),
		HasImprovedSinceLaunch:      payload.HasImprovedSinceLaunch,
		StabilityTrend:              normalizeTrend(payload.StabilityTrend),
		CurrentStateReliability:     normalizeReliability(payload.CurrentStateReliability),
		HistoricalIssuesReliability: normalizeReliability(payload.HistoricalIssuesReliability),
	}, nil
}

func normalizeVerdict(value string) models.Verdict {
	switch models.Verdict(value) {
	case models.VerdictYes, models.VerdictNo:
		return models.Verdict(value)
	default:
		return models.VerdictUnknown
	}
}

func normalizeTrend(value string) models.StabilityTrend {
	switch models.StabilityTrend(value) {
	case models.TrendImproving, models.TrendStable, models.TrendDeteriorating:
		return models.StabilityTrend(value)
	default:
		return models.TrendUnknown
	}
}

func normalizeReliability(value string) models.Reliability {
	switch models.Reliability(value) {
	case models.ReliabilityHigh, models.ReliabilityMedium, models.ReliabilityLow:
		return models.Reliability(value)
	default:
		return ""
	}
}

// normalizeStringList trims, dedupes, and optionally caps a string list.
// max<=0 means uncapped.
func normalizeStringList(values []string, max int) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}

// clampScore maps a reported score into [0,10]; missing values default to
// the neutral 5.
func clampScore(value *float64) float64 {
	if value == nil {
		return 5
	}
	if *value < 0 {
		return 0
	}
	if *value > 10 {
		return 10
	}
	return *value
}
