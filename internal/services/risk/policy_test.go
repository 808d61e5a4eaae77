package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BoltX/internal/domain/models"
)

func TestPolicyLowNeverSuggests(t *testing.T) {
	p := NewPolicy()
	variants := []models.FeatureVector{
		{},
		{ErrorCount: 4, CurrentStep: models.StepPayment, StepDuration: 500, TimeExceededRatio: 3},
		{CurrentStep: models.StepShipping, StepDuration: 181},
	}
	for _, f := range variants {
		recs, suggested, typ := p.Apply(models.RiskLow, f)
		assert.False(t, suggested)
		assert.Nil(t, typ)
		assert.NotContains(t, recs, recsElevated[0])
	}
}

func TestPolicyRecommendationOrder(t *testing.T) {
	f := models.FeatureVector{
		ErrorCount:        1,
		TimeExceededRatio: 1.2,
		CurrentStep:       models.StepPayment,
		StepDuration:      200,
	}
	recs, _, _ := NewPolicy().Apply(models.RiskCritical, f)

	var want []string
	want = append(want, recsElevated...)
	want = append(want, recsErrors...)
	want = append(want, recsSlow...)
	want = append(want, recsPayment...)
	want = append(want, recsStuck...)
	assert.Equal(t, want, recs)
}

func TestPolicyInterventionType(t *testing.T) {
	cases := []struct {
		name  string
		level models.RiskLevel
		f     models.FeatureVector
		want  models.InterventionType
	}{
		{"elevated beats payment", models.RiskHigh, models.FeatureVector{CurrentStep: models.StepPayment}, models.InterventionDiscount},
		{"payment", models.RiskMedium, models.FeatureVector{CurrentStep: models.StepPayment, ErrorCount: 2}, models.InterventionSecurity},
		{"errors", models.RiskMedium, models.FeatureVector{CurrentStep: models.StepShipping, ErrorCount: 1}, models.InterventionSimplify},
		{"stuck", models.RiskMedium, models.FeatureVector{CurrentStep: models.StepProfile, StepDuration: 181}, models.InterventionSimplify},
		{"fallback", models.RiskMedium, models.FeatureVector{CurrentStep: models.StepCart}, models.InterventionProgress},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, suggested, typ := NewPolicy().Apply(tc.level, tc.f)
			require.True(t, suggested)
			require.NotNil(t, typ)
			assert.Equal(t, tc.want, *typ)
		})
	}
}
