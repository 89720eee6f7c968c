package ranking

import (
	"fmt"

	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/aggregate"
	"github.com/IdeaTech-RoamCeylon/RoamCeylon-IdeaTech-sub001/internal/trust"
)

// Sentiment buckets for adjustment explanations, by percent positive.
const (
	sentimentHighlyPositive = 0.8
	sentimentMostlyPositive = 0.6
	sentimentMixed          = 0.4
)

// Adjustment is the outcome of the additive threshold-gated policy.
type Adjustment struct {
	AdjustedScore  float64 `json:"adjusted_score"`
	FeedbackWeight float64 `json:"feedback_weight"`
	MeetsThreshold bool    `json:"meets_threshold"`
	Explanation    string  `json:"explanation"`
}

// FeedbackAdjuster implements the additive threshold-gated policy.
type FeedbackAdjuster struct {
	config *Config
}

// NewFeedbackAdjuster creates the additive adjuster. Config nil means
// defaults.
func NewFeedbackAdjuster(config *Config) *FeedbackAdjuster {
	if config == nil {
		config = DefaultConfig()
	}
	return &FeedbackAdjuster{config: config}
}

// Apply nudges a base score by the entity's feedback sentiment. With
// fewer than MinFeedback records the base score passes through unchanged
// and the explanation says why. Otherwise the positive ratio maps
// linearly onto [-MaxAdjustment, +MaxAdjustment] around the 0.5 midpoint.
func (a *FeedbackAdjuster) Apply(baseScore float64, agg aggregate.Result) Adjustment {
	if agg.TotalFeedback < a.config.MinFeedback {
		return Adjustment{
			AdjustedScore:  baseScore,
			FeedbackWeight: 0,
			MeetsThreshold: false,
			Explanation: fmt.Sprintf(
				"insufficient feedback (%d of %d required); score unchanged",
				agg.TotalFeedback, a.config.MinFeedback),
		}
	}

	positiveRatio := 0.5
	if rated := agg.PositiveCount + agg.NegativeCount; rated > 0 {
		positiveRatio = float64(agg.PositiveCount) / float64(rated)
	}

	weight := (positiveRatio - 0.5) * 2 * a.config.MaxAdjustment
	weight = trust.Clamp(weight, -a.config.MaxAdjustment, a.config.MaxAdjustment)

	return Adjustment{
		AdjustedScore:  baseScore + weight,
		FeedbackWeight: weight,
		MeetsThreshold: true,
		Explanation:    explain(positiveRatio, agg.TotalFeedback),
	}
}

// explain renders the percent-positive and its qualitative bucket.
func explain(positiveRatio float64, total int) string {
	percent := positiveRatio * 100

	var sentiment string
	switch {
	case positiveRatio >= sentimentHighlyPositive:
		sentiment = "highly positive"
	case positiveRatio >= sentimentMostlyPositive:
		sentiment = "mostly positive"
	case positiveRatio >= sentimentMixed:
		sentiment = "mixed"
	default:
		sentiment = "mostly negative"
	}

	return fmt.Sprintf("%.0f%% positive across %d feedbacks (%s)", percent, total, sentiment)
}
