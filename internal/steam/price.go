package steam

import (
	"math"
	"strconv"
	"strings"
)

// PriceOverview mirrors the price_overview object of the Steam appdetails
// payload. The raw amounts are integer minor units (cents); the formatted
// fields are human-readable strings like "$19.99".
type PriceOverview struct {
	Currency         string   `json:"currency"`
	Initial          *float64 `json:"initial"`
	Final            *float64 `json:"final"`
	InitialFormatted string   `json:"initial_formatted"`
	FinalFormatted   string   `json:"final_formatted"`
	DiscountPercent  *float64 `json:"discount_percent"`
}

type ParsedPrice struct {
	Original        *float64
	Final           *float64
	DiscountPercent int
	IsOnSale        bool
}

// ParsePriceOverview normalizes a Steam pricing payload. A nil payload yields
// the zero-value record. The integer minor-unit amount wins over the
// formatted string; the declared discount is overridden by the recomputed one
// whenever the recomputed value is larger.
func ParsePriceOverview(overview *PriceOverview) ParsedPrice {
	if overview == nil {
		return ParsedPrice{}
	}

	original := monetaryValue(overview.Initial, overview.InitialFormatted)
	final := monetaryValue(overview.Final, overview.FinalFormatted)

	discount := 0
	if overview.DiscountPercent != nil && isFinite(*overview.DiscountPercent) {
		discount = int(math.Round(*overview.DiscountPercent))
	}

	if original != nil && final != nil && *original > 0 && *original > *final {
		computed := int(math.Round((*original - *final) / *original * 100))
		if computed > discount {
			discount = computed
		}
	}

	if discount < 0 {
		discount = 0
	}
	if discount > 100 {
		discount = 100
	}

	return ParsedPrice{
		Original:        original,
		Final:           final,
		DiscountPercent: discount,
		IsOnSale:        discount > 0 && final != nil,
	}
}

func monetaryValue(raw *float64, formatted string) *float64 {
	if raw != nil && isFinite(*raw) {
		v := *raw / 100
		return &v
	}
	return parseFormattedPrice(formatted)
}

func parseFormattedPrice(formatted string) *float64 {
	sanitized := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			return r
		}
		return -1
	}, formatted)
	sanitized = strings.ReplaceAll(sanitized, ",", "")
	if sanitized == "" {
		return nil
	}

	parsed, err := strconv.ParseFloat(sanitized, 64)
	if err != nil || !isFinite(parsed) {
		return nil
	}
	return &parsed
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
