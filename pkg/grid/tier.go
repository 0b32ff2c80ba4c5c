package grid

import "github.com/agentstation/fillmap/pkg/constants"

// Tier is a presentation bucket for a confidence score.
type Tier string

// Confidence tiers.
const (
	TierHigh Tier = "high"
	TierMid  Tier = "mid"
	TierLow  Tier = "low"
)

// TierFor buckets a confidence score. Boundaries belong to the upper tier.
func TierFor(confidence float64) Tier {
	switch {
	case confidence >= constants.HighConfidence:
		return TierHigh
	case confidence >= constants.MidConfidence:
		return TierMid
	default:
		return TierLow
	}
}
