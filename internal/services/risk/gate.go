package risk

import "BoltX/internal/domain/models"

// DefaultHysteresisThreshold is the score delta that must be exceeded to persist again.
const DefaultHysteresisThreshold = 10

// Decision is the outcome of the change-detection gate.
// HasUpdate always equals Persist.
type Decision struct {
	Persist   bool
	HasUpdate bool
}

// Gate suppresses writes for score changes within the hysteresis band.
type Gate struct {
	threshold int
}

func NewGate(threshold int) *Gate {
	if threshold < 0 {
		threshold = DefaultHysteresisThreshold
	}
	return &Gate{threshold: threshold}
}

// Decide compares the new prediction with the last persisted one (nil when none).
func (g *Gate) Decide(next models.AbandonmentPrediction, prior *models.AbandonmentPrediction) Decision {
	if prior == nil {
		return Decision{Persist: true, HasUpdate: true}
	}
	diff := next.RiskScore - prior.RiskScore
	if diff < 0 {
		diff = -diff
	}
	changed := diff > g.threshold
	return Decision{Persist: changed, HasUpdate: changed}
}
