package rankings

import "github.com/steamgems/backend/internal/storage/models"

// Visibility thresholds below which a title counts as statistically hidden.
const (
	hiddenReviewThreshold = 200
	hiddenOwnerThreshold  = 50000
)

// ComputeGemLabel combines the visibility statistics with the classifier
// verdict. Total over all inputs; an Unknown or No verdict is never a gem
// regardless of hiddenness.
func ComputeGemLabel(totalReviews, estimatedOwners int, verdict models.Verdict) (models.GemLabel, bool) {
	hidden := totalReviews < hiddenReviewThreshold || estimatedOwners < hiddenOwnerThreshold

	switch {
	case hidden && verdict == models.VerdictYes:
		return models.LabelHiddenGem, hidden
	case !hidden && verdict == models.VerdictYes:
		return models.LabelHighlyRatedNotHidden, hidden
	default:
		return models.LabelNotHidden, hidden
	}
}
