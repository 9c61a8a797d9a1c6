package models

import "time"

type Verdict string

const (
	VerdictYes     Verdict = "Yes"
	VerdictNo      Verdict = "No"
	VerdictUnknown Verdict = "Unknown"
)

type GemLabel string

const (
	LabelHiddenGem            GemLabel = "Hidden Gem"
	LabelHighlyRatedNotHidden GemLabel = "Highly rated but not hidden"
	LabelNotHidden            GemLabel = "Not a hidden gem"
)

type StabilityTrend string

const (
	TrendImproving     StabilityTrend = "Improving"
	TrendStable        StabilityTrend = "Stable"
	TrendDeteriorating StabilityTrend = "Deteriorating"
	TrendUnknown       StabilityTrend = "Unknown"
)

// Reliability grades how much evidence backs a temporal summary. Empty means
// unspecified.
type Reliability string

const (
	ReliabilityHigh   Reliability = "high"
	ReliabilityMedium Reliability = "medium"
	ReliabilityLow    Reliability = "low"
)

// CandidateGame is one entry of the fixed candidate catalog.
type CandidateGame struct {
	AppID int      `json:"appId"`
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

// SteamGame is the normalized per-title snapshot taken from the Steam store
// and reviews APIs, cached in the steam_games table.
type SteamGame struct {
	AppID              int      `json:"appId"`
	Title              string   `json:"title"`
	PositiveRatio      float64  `json:"positiveRatio"`
	TotalReviews       int      `json:"totalReviews"`
	EstimatedOwners    int      `json:"estimatedOwners"`
	RecentPlayers      int      `json:"recentPlayers"`
	Price              float64  `json:"price"`
	PriceOriginal      *float64 `json:"priceOriginal,omitempty"`
	DiscountPercent    int      `json:"discountPercent"`
	IsOnSale           bool     `json:"isOnSale"`
	AveragePlaytime    float64  `json:"averagePlaytime"`
	LastUpdated        string   `json:"lastUpdated"`
	Reviews            []string `json:"reviews"`
	Tags               []string `json:"tags"`
	SteamURL           string   `json:"steamUrl"`
	ReviewScoreDesc    string   `json:"reviewScoreDesc"`
	IsAvailableInStore bool     `json:"isAvailableInStore"`
	ReleaseDate        string   `json:"releaseDate"`

	LastFetchAt time.Time `json:"-"`
}

// GemAnalysis is the classifier verdict for one title. When AIError is true
// every numeric score is the neutral 5 and the verdict is Unknown; the record
// is a fallback sentinel, not a measurement.
type GemAnalysis struct {
	HiddenGemVerdict   Verdict  `json:"hiddenGemVerdict"`
	Summary            string   `json:"summary"`
	Labels             []string `json:"labels"`
	Pros               []string `json:"pros"`
	Cons               []string `json:"cons"`
	RiskScore          float64  `json:"riskScore"`
	BugRisk            float64  `json:"bugRisk"`
	RefundMentions     float64  `json:"refundMentions"`
	ReviewQualityScore float64  `json:"reviewQualityScore"`

	CurrentStateSummary         string         `json:"currentStateSummary,omitempty"`
	HistoricalIssuesSummary     string         `json:"historicalIssuesSummary,omitempty"`
	HasImprovedSinceLaunch      *bool          `json:"hasImprovedSinceLaunch,omitempty"`
	StabilityTrend              StabilityTrend `json:"stabilityTrend,omitempty"`
	CurrentStateReliability     Reliability    `json:"currentStateReliability,omitempty"`
	HistoricalIssuesReliability Reliability    `json:"historicalIssuesReliability,omitempty"`

	AIError bool `json:"aiError,omitempty"`
}

// RankingGame is the fused unit written to game_rankings_cache: the Steam
// snapshot plus analysis and the derived gem labels.
type RankingGame struct {
	AppID                 int         `json:"appId"`
	Title                 string      `json:"title"`
	PositiveRatio         float64     `json:"positiveRatio"`
	TotalReviews          int         `json:"totalReviews"`
	EstimatedOwners       int         `json:"estimatedOwners"`
	RecentPlayers         int         `json:"recentPlayers"`
	Price                 float64     `json:"price"`
	AveragePlaytime       float64     `json:"averagePlaytime"`
	LastUpdated           string      `json:"lastUpdated"`
	Tags                  []string    `json:"tags"`
	SteamURL              string      `json:"steamUrl"`
	ReviewScoreDesc       string      `json:"reviewScoreDesc"`
	IsAvailableInStore    bool        `json:"isAvailableInStore"`
	Analysis              GemAnalysis `json:"analysis"`
	GemLabel              GemLabel    `json:"gemLabel"`
	IsStatisticallyHidden bool        `json:"isStatisticallyHidden"`
	ReleaseYear           *int        `json:"releaseYear,omitempty"`
	ReleaseDate           string      `json:"releaseDate,omitempty"`
}

// CacheEntry is one game_rankings_cache row. Freshness is evaluated at read
// time from UpdatedAt, never stored.
type CacheEntry struct {
	AppID     int
	Data      RankingGame
	UpdatedAt time.Time
}

// ScoredGame is a similarity result. Never persisted.
type ScoredGame struct {
	RankingGame
	SimilarityScore float64  `json:"similarityScore"`
	SharedTags      []string `json:"sharedTags"`
}
