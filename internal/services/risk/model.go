package risk

import (
	"math"

	"BoltX/internal/domain/models"
)

const (
	weightTime       = 0.30
	weightError      = 0.25
	weightStep       = 0.20
	weightBehavioral = 0.15
	weightContext    = 0.10

	capTime       = 40.0
	capError      = 30.0
	capStep       = 25.0
	capBehavioral = 20.0
	capContext    = 10.0

	baseConfidence       = 0.5
	bonusAbandonments    = 0.2
	bonusAvgDuration     = 0.1
	bonusConversionRate  = 0.1
	bonusDeviceOrPlace   = 0.05
	longCheckoutSeconds  = 300.0
	slowCheckoutSeconds  = 180.0
	stuckLongSeconds     = 300.0
	stuckSlowSeconds     = 180.0
	lowProgressThreshold = 0.25
)

// Level thresholds, evaluated high to low.
const (
	CriticalThreshold = 70
	HighThreshold     = 50
	MediumThreshold   = 30
)

var stepBase = map[models.Step]float64{
	models.StepCart:     5,
	models.StepProfile:  10,
	models.StepShipping: 15,
	models.StepPayment:  20,
}

// WeightedModel is the hand-tuned five factor scorer. It holds no state.
type WeightedModel struct{}

// NewWeightedModel returns the default scorer.
func NewWeightedModel() *WeightedModel { return &WeightedModel{} }

// Score computes score, level and confidence. Recommendations and intervention
// are left empty for the Policy to fill.
func (m *WeightedModel) Score(f models.FeatureVector, h models.HistoricalContext) models.AbandonmentPrediction {
	b := Breakdown(f, h)

	total := weightTime*b.Time/capTime +
		weightError*b.Error/capError +
		weightStep*b.Step/capStep +
		weightBehavioral*b.Behavioral/capBehavioral +
		weightContext*b.Context/capContext
	score := clampInt(int(math.Round(total*100)), 0, 100)

	return models.AbandonmentPrediction{
		RiskScore:  score,
		RiskLevel:  LevelFor(score),
		Confidence: Confidence(f, h),
		Factors: models.PredictionFactors{
			Features:  f,
			History:   h,
			Breakdown: b,
		},
		Recommendations: []string{},
	}
}

// Breakdown returns the five capped sub-scores.
func Breakdown(f models.FeatureVector, h models.HistoricalContext) models.RiskBreakdown {
	return models.RiskBreakdown{
		Time:       timeRisk(f),
		Error:      errorRisk(f.ErrorCount),
		Step:       stepRisk(f),
		Behavioral: behavioralRisk(f, h),
		Context:    contextRisk(f),
	}
}

func timeRisk(f models.FeatureVector) float64 {
	var v float64
	switch r := f.TimeExceededRatio; {
	case r > 1.5:
		v = 40
	case r > 1.0:
		v = 30
	case r > 0.5:
		v = 20
	case r > 0.2:
		v = 10
	}
	// absolute duration only ever raises the ratio value
	switch {
	case f.TotalDuration > longCheckoutSeconds:
		v = math.Max(v, 35)
	case f.TotalDuration > slowCheckoutSeconds:
		v = math.Max(v, 25)
	}
	return math.Min(v, capTime)
}

func errorRisk(n int) float64 {
	switch {
	case n <= 0:
		return 0
	case n == 1:
		return 10
	case n == 2:
		return 20
	default:
		return capError
	}
}

func stepRisk(f models.FeatureVector) float64 {
	v := stepBase[f.CurrentStep]
	switch {
	case f.StepDuration > stuckLongSeconds:
		v += 10
	case f.StepDuration > stuckSlowSeconds:
		v += 5
	}
	if f.StepProgressRatio < lowProgressThreshold {
		v += 5
	}
	return math.Min(v, capStep)
}

func behavioralRisk(f models.FeatureVector, h models.HistoricalContext) float64 {
	var v float64
	if f.HasReturned {
		v -= 15
	}
	switch {
	case h.PreviousAbandonments > 2:
		v += 15
	case h.PreviousAbandonments > 0:
		v += 10
	}
	switch {
	case h.ConversionRate < 0.2:
		v += 10
	case h.ConversionRate < 0.5:
		v += 5
	}
	return math.Max(0, math.Min(v, capBehavioral))
}

func contextRisk(f models.FeatureVector) float64 {
	var v float64
	if f.DeviceType == "mobile" {
		v += 5
	}
	// location carries no weight yet
	return math.Min(v, capContext)
}

// Confidence measures how complete the inputs are, not how accurate the score is.
func Confidence(f models.FeatureVector, h models.HistoricalContext) float64 {
	c := baseConfidence
	if h.Measured() {
		c += bonusAbandonments + bonusConversionRate
		if h.DurationSamples > 0 {
			c += bonusAvgDuration
		}
	}
	if f.DeviceType != "" {
		c += bonusDeviceOrPlace
	}
	if f.Location != "" {
		c += bonusDeviceOrPlace
	}
	return math.Min(1.0, math.Round(c*100)/100)
}

// LevelFor buckets a score.
func LevelFor(score int) models.RiskLevel {
	switch {
	case score >= CriticalThreshold:
		return models.RiskCritical
	case score >= HighThreshold:
		return models.RiskHigh
	case score >= MediumThreshold:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
