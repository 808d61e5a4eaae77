package risk

import "BoltX/internal/domain/models"

// Recommendation messages, grouped by the rule that emits them.
var (
	recsElevated = []string{
		"Offer a limited-time discount to complete the purchase",
		"Schedule a cart recovery email",
		"Simplify the remaining checkout flow",
	}
	recsErrors = []string{
		"Show clearer inline error messages",
		"Validate fields in real time before submit",
	}
	recsSlow = []string{
		"Reduce the number of checkout steps",
		"Enable address autocomplete and saved details",
	}
	recsPayment = []string{
		"Display security badges and trust signals near payment",
		"Offer additional payment options",
	}
	recsStuck = []string{
		"Show a progress indicator for the remaining steps",
	}
)

const stuckStepSeconds = 180.0

// Policy is the intervention decision table.
type Policy struct{}

func NewPolicy() *Policy { return &Policy{} }

// Apply returns the accumulated recommendations and, for non-low levels, the intervention.
func (p *Policy) Apply(level models.RiskLevel, f models.FeatureVector) ([]string, bool, *models.InterventionType) {
	recs := make([]string, 0, 8)
	if level.Elevated() {
		recs = append(recs, recsElevated...)
	}
	if f.ErrorCount > 0 {
		recs = append(recs, recsErrors...)
	}
	if f.TimeExceededRatio > 1.0 {
		recs = append(recs, recsSlow...)
	}
	if f.CurrentStep == models.StepPayment {
		recs = append(recs, recsPayment...)
	}
	if f.StepDuration > stuckStepSeconds {
		recs = append(recs, recsStuck...)
	}

	if level == models.RiskLow {
		return recs, false, nil
	}

	var t models.InterventionType
	switch {
	case level.Elevated():
		t = models.InterventionDiscount
	case f.CurrentStep == models.StepPayment:
		t = models.InterventionSecurity
	case f.ErrorCount > 0 || f.StepDuration > stuckStepSeconds:
		t = models.InterventionSimplify
	default:
		t = models.InterventionProgress
	}
	return recs, true, &t
}

// Finalize fills the policy outputs into a scored prediction.
func (p *Policy) Finalize(pred *models.AbandonmentPrediction) {
	pred.Recommendations, pred.InterventionSuggested, pred.InterventionType = p.Apply(pred.RiskLevel, pred.Factors.Features)
}
