package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BoltX/internal/domain/models"
)

func paymentMobileFeatures() models.FeatureVector {
	return models.FeatureVector{
		TimeExceededRatio: 250.0 / 180.0,
		ErrorCount:        1,
		CurrentStep:       models.StepPayment,
		StepDuration:      200,
		TotalDuration:     250,
		StepProgressRatio: 1,
		DeviceType:        "mobile",
	}
}

func TestScoreDeterministic(t *testing.T) {
	m := NewWeightedModel()
	f := paymentMobileFeatures()
	h := models.DefaultHistoricalContext()
	first := m.Score(f, h)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, m.Score(f, h))
	}
}

func TestErrorRiskMonotonic(t *testing.T) {
	prev := -1.0
	for n := 0; n <= 5; n++ {
		v := errorRisk(n)
		assert.GreaterOrEqual(t, v, prev, "errors=%d", n)
		assert.LessOrEqual(t, v, capError)
		prev = v
	}
	assert.Equal(t, []float64{0, 10, 20, 30}, []float64{errorRisk(0), errorRisk(1), errorRisk(2), errorRisk(3)})
}

func TestLevelForBuckets(t *testing.T) {
	for s := 0; s <= 100; s++ {
		lvl := LevelFor(s)
		switch {
		case s >= 70:
			assert.Equal(t, models.RiskCritical, lvl, s)
		case s >= 50:
			assert.Equal(t, models.RiskHigh, lvl, s)
		case s >= 30:
			assert.Equal(t, models.RiskMedium, lvl, s)
		default:
			assert.Equal(t, models.RiskLow, lvl, s)
		}
	}
	assert.Equal(t, models.RiskHigh, LevelFor(69))
	assert.Equal(t, models.RiskCritical, LevelFor(70))
	assert.Equal(t, models.RiskMedium, LevelFor(49))
	assert.Equal(t, models.RiskHigh, LevelFor(50))
}

func TestTimeRiskFloorOnlyRaises(t *testing.T) {
	assert.Equal(t, 35.0, timeRisk(models.FeatureVector{TimeExceededRatio: 0.1, TotalDuration: 301}))
	assert.Equal(t, 25.0, timeRisk(models.FeatureVector{TimeExceededRatio: 0.1, TotalDuration: 181}))
	assert.Equal(t, 40.0, timeRisk(models.FeatureVector{TimeExceededRatio: 2, TotalDuration: 400}))
	assert.Equal(t, 30.0, timeRisk(models.FeatureVector{TimeExceededRatio: 1.2, TotalDuration: 200}))
	assert.Equal(t, 0.0, timeRisk(models.FeatureVector{}))
}

func TestStepRisk(t *testing.T) {
	assert.Equal(t, 10.0, stepRisk(models.FeatureVector{CurrentStep: models.StepCart, StepProgressRatio: 0.2}))
	assert.Equal(t, 20.0, stepRisk(models.FeatureVector{CurrentStep: models.StepShipping, StepDuration: 200, StepProgressRatio: 0.75}))
	assert.Equal(t, 25.0, stepRisk(models.FeatureVector{CurrentStep: models.StepShipping, StepDuration: 301, StepProgressRatio: 0.75}))
	assert.Equal(t, 25.0, stepRisk(models.FeatureVector{CurrentStep: models.StepPayment, StepDuration: 400, StepProgressRatio: 1}))
}

func TestBehavioralRiskClamped(t *testing.T) {
	returned := models.FeatureVector{HasReturned: true}
	assert.Equal(t, 0.0, behavioralRisk(returned, models.DefaultHistoricalContext()))

	bad := models.HistoricalContext{PreviousAbandonments: 5, ConversionRate: 0.1}
	assert.Equal(t, 20.0, behavioralRisk(models.FeatureVector{}, bad))
	assert.Equal(t, 10.0, behavioralRisk(returned, bad))

	some := models.HistoricalContext{PreviousAbandonments: 1, ConversionRate: 0.4}
	assert.Equal(t, 15.0, behavioralRisk(models.FeatureVector{}, some))
}

func TestContextRiskIgnoresLocation(t *testing.T) {
	assert.Equal(t, 5.0, contextRisk(models.FeatureVector{DeviceType: "mobile"}))
	assert.Equal(t, 0.0, contextRisk(models.FeatureVector{DeviceType: "desktop", Location: "US"}))
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 0.5, Confidence(models.FeatureVector{}, models.DefaultHistoricalContext()))

	measured := models.HistoricalContext{SessionsObserved: 3, DurationSamples: 2, ConversionRate: 0.6}
	f := models.FeatureVector{DeviceType: "desktop", Location: "DE"}
	assert.Equal(t, 1.0, Confidence(f, measured))

	noDurations := models.HistoricalContext{SessionsObserved: 2, AvgCheckoutDurationSeconds: 180}
	assert.Equal(t, 0.8, Confidence(models.FeatureVector{}, noDurations))
}

func TestScorePaymentMobileScenario(t *testing.T) {
	pred := NewWeightedModel().Score(paymentMobileFeatures(), models.DefaultHistoricalContext())

	assert.Equal(t, 56, pred.RiskScore)
	assert.Equal(t, models.RiskHigh, pred.RiskLevel)
	assert.Equal(t, 0.55, pred.Confidence)
	assert.Equal(t, models.RiskBreakdown{Time: 30, Error: 10, Step: 25, Behavioral: 0, Context: 5}, pred.Factors.Breakdown)

	NewPolicy().Finalize(&pred)
	require.True(t, pred.InterventionSuggested)
	require.NotNil(t, pred.InterventionType)
	assert.Equal(t, models.InterventionDiscount, *pred.InterventionType)
	assert.Contains(t, pred.Recommendations, recsElevated[0])
	assert.Contains(t, pred.Recommendations, recsPayment[0])
}

func TestScoreClampedToRange(t *testing.T) {
	worst := models.FeatureVector{
		TimeExceededRatio: 10,
		ErrorCount:        9,
		CurrentStep:       models.StepPayment,
		StepDuration:      1000,
		TotalDuration:     2000,
		StepProgressRatio: 1,
		DeviceType:        "mobile",
	}
	h := models.HistoricalContext{PreviousAbandonments: 9, ConversionRate: 0, SessionsObserved: 9}
	pred := NewWeightedModel().Score(worst, h)
	// context tops out at 5 of 10 while location carries no weight
	assert.Equal(t, 95, pred.RiskScore)
	assert.Equal(t, models.RiskCritical, pred.RiskLevel)

	pred = NewWeightedModel().Score(models.FeatureVector{CurrentStep: models.StepProfile, StepProgressRatio: 0.5, HasReturned: true}, models.DefaultHistoricalContext())
	assert.GreaterOrEqual(t, pred.RiskScore, 0)
	assert.Equal(t, models.RiskLow, pred.RiskLevel)
}
