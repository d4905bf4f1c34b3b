// pkg/scoring/tier.go
package scoring

// Tier is the color band a score falls into.
type Tier string

const (
	TierGreen  Tier = "green"
	TierYellow Tier = "yellow"
	TierRed    Tier = "red"
)

// Tier thresholds. A score equal to a threshold belongs to the higher tier.
const (
	GreenThreshold  = 80.0
	YellowThreshold = 60.0
)

var tierLabels = map[Tier]string{
	TierGreen:  "outstanding",
	TierYellow: "strong",
	TierRed:    "below-average",
}

// Label is the human readable name of the tier.
func (t Tier) Label() string {
	return tierLabels[t]
}

// ParseTier accepts either the color or the label.
func ParseTier(s string) (Tier, bool) {
	for t, label := range tierLabels {
		if s == string(t) || s == label {
			return t, true
		}
	}
	return "", false
}

// ScoreColor maps an overall score to its tier. NaN falls through to red.
func ScoreColor(score float64) Tier {
	switch {
	case score >= GreenThreshold:
		return TierGreen
	case score >= YellowThreshold:
		return TierYellow
	default:
		return TierRed
	}
}
