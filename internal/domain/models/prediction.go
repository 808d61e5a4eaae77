package models

import "time"

// RiskLevel buckets a risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Elevated reports whether the level is high or critical.
func (l RiskLevel) Elevated() bool {
	return l == RiskHigh || l == RiskCritical
}

// InterventionType is the corrective action suggested for a session.
type InterventionType string

const (
	InterventionDiscount InterventionType = "discount"
	InterventionSecurity InterventionType = "security"
	InterventionSimplify InterventionType = "simplify"
	InterventionProgress InterventionType = "progress"
)

// FeatureVector is derived from a session's events on every scoring call.
type FeatureVector struct {
	TimeExceededRatio float64 `json:"timeExceededRatio"`
	ErrorCount        int     `json:"errorCount"`
	CurrentStep       Step    `json:"currentStep"`
	StepDuration      float64 `json:"stepDuration"`
	TotalDuration     float64 `json:"totalDuration"`
	HasReturned       bool    `json:"hasReturned"`
	StepProgressRatio float64 `json:"stepProgressRatio"`
	DeviceType        string  `json:"deviceType,omitempty"`
	Location          string  `json:"location,omitempty"`
	OrderFormID       string  `json:"orderFormId,omitempty"`
}

// Default baseline used when a customer has no other sessions.
const (
	DefaultPreviousAbandonments = 0
	DefaultAvgCheckoutSeconds   = 180.0
	DefaultConversionRate       = 0.5
)

// HistoricalContext summarises a customer's other checkout sessions.
// SessionsObserved and DurationSamples are zero for the default baseline,
// which keeps it apart from a measured zero.
type HistoricalContext struct {
	PreviousAbandonments       int     `json:"previousAbandonments"`
	AvgCheckoutDurationSeconds float64 `json:"avgCheckoutDurationSeconds"`
	ConversionRate             float64 `json:"conversionRate"`
	SessionsObserved           int     `json:"sessionsObserved"`
	DurationSamples            int     `json:"durationSamples"`
}

// DefaultHistoricalContext returns the neutral baseline.
func DefaultHistoricalContext() HistoricalContext {
	return HistoricalContext{
		PreviousAbandonments:       DefaultPreviousAbandonments,
		AvgCheckoutDurationSeconds: DefaultAvgCheckoutSeconds,
		ConversionRate:             DefaultConversionRate,
	}
}

// Measured reports whether the context was computed from real sessions.
func (h HistoricalContext) Measured() bool { return h.SessionsObserved > 0 }

// RiskBreakdown holds the capped sub-scores before weighting.
type RiskBreakdown struct {
	Time       float64 `json:"time"`
	Error      float64 `json:"error"`
	Step       float64 `json:"step"`
	Behavioral float64 `json:"behavioral"`
	Context    float64 `json:"context"`
}

// PredictionFactors is the audit snapshot of what the score was computed from.
type PredictionFactors struct {
	Features  FeatureVector     `json:"features"`
	History   HistoricalContext `json:"history"`
	Breakdown RiskBreakdown     `json:"breakdown"`
}

// AbandonmentPrediction is the engine's output for one scoring call.
type AbandonmentPrediction struct {
	RiskScore             int               `json:"riskScore"`
	RiskLevel             RiskLevel         `json:"riskLevel"`
	Confidence            float64           `json:"confidence"`
	Factors               PredictionFactors `json:"factors"`
	Recommendations       []string          `json:"recommendations"`
	InterventionSuggested bool              `json:"interventionSuggested"`
	InterventionType      *InterventionType `json:"interventionType,omitempty"`
}

// PersistedPrediction is an append-only record of a prediction for a session.
type PersistedPrediction struct {
	ID          string                `json:"id"`
	CustomerID  string                `json:"customerId"`
	SessionID   string                `json:"sessionId"`
	OrderFormID string                `json:"orderFormId,omitempty"`
	Prediction  AbandonmentPrediction `json:"prediction"`
	CreatedAt   time.Time             `json:"createdAt"`
}

// RiskResult is returned to the polling layer.
type RiskResult struct {
	Prediction AbandonmentPrediction `json:"prediction"`
	Timestamp  time.Time             `json:"timestamp"`
	HasUpdate  bool                  `json:"hasUpdate"`
}
