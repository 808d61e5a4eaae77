package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"BoltX/internal/domain/models"
)

func pred(score int) models.AbandonmentPrediction {
	return models.AbandonmentPrediction{RiskScore: score}
}

func TestGateFirstWrite(t *testing.T) {
	g := NewGate(DefaultHysteresisThreshold)
	for _, s := range []int{0, 10, 55, 100} {
		d := g.Decide(pred(s), nil)
		assert.True(t, d.Persist)
		assert.Equal(t, d.Persist, d.HasUpdate)
	}
}

func TestGateHysteresis(t *testing.T) {
	g := NewGate(DefaultHysteresisThreshold)
	prior := pred(50)

	assert.False(t, g.Decide(pred(60), &prior).Persist)
	assert.False(t, g.Decide(pred(40), &prior).Persist)
	assert.True(t, g.Decide(pred(61), &prior).Persist)
	assert.True(t, g.Decide(pred(39), &prior).Persist)

	for s := 0; s <= 100; s++ {
		d := g.Decide(pred(s), &prior)
		assert.Equal(t, d.Persist, d.HasUpdate, s)
	}
}

func TestGateNegativeThresholdUsesDefault(t *testing.T) {
	g := NewGate(-1)
	prior := pred(20)
	assert.False(t, g.Decide(pred(30), &prior).Persist)
}
