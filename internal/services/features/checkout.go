package features

import (
	"time"

	"github.com/mssola/useragent"

	"BoltX/internal/domain/models"
)

// DefaultTypicalCheckoutSeconds is the expected duration of a whole checkout.
const DefaultTypicalCheckoutSeconds = 180.0

// Metadata keys, primary spelling first.
var (
	deviceKeys    = []string{"deviceType", "device_type"}
	locationKeys  = []string{"location", "geo_location"}
	orderFormKeys = []string{"orderFormId", "order_form_id"}
	userAgentKeys = []string{"userAgent", "user_agent"}
)

// Extract derives the feature vector of one session from its events, ordered by timestamp.
// It returns false when events is empty; callers treat that as an unknown session.
func Extract(events []models.CheckoutEvent, now time.Time, typicalSeconds float64) (models.FeatureVector, bool) {
	if len(events) == 0 {
		return models.FeatureVector{}, false
	}
	if typicalSeconds <= 0 {
		typicalSeconds = DefaultTypicalCheckoutSeconds
	}

	sessionStart := events[0].Timestamp
	current := models.StepOrder[0]
	stepStart := sessionStart
	visited := make(map[models.Step]struct{}, len(models.StepOrder))

	var (
		errorCount  int
		hasReturned bool
		orderFormID string
	)

	for _, ev := range events {
		if ev.Type == models.EventCheckoutStarted && len(visited) > 1 {
			hasReturned = true
		}
		if ev.Type == models.EventErrorOccurred {
			errorCount++
		}
		if id := ev.Meta(orderFormKeys...); id != "" {
			orderFormID = id
		}
		if ev.Step == nil {
			continue
		}
		step := *ev.Step
		visited[step] = struct{}{}
		// Never move backwards; a repeated step is a no-op.
		if !step.After(current) {
			continue
		}
		current = step
		stepStart = ev.Timestamp
	}

	total := seconds(now.Sub(sessionStart))
	fv := models.FeatureVector{
		TimeExceededRatio: total / typicalSeconds,
		ErrorCount:        errorCount,
		CurrentStep:       current,
		StepDuration:      seconds(now.Sub(stepStart)),
		TotalDuration:     total,
		HasReturned:       hasReturned,
		StepProgressRatio: float64(current.Index()+1) / float64(len(models.StepOrder)),
		OrderFormID:       orderFormID,
	}

	first := events[0]
	fv.DeviceType = first.Meta(deviceKeys...)
	if fv.DeviceType == "" {
		fv.DeviceType = DeviceFromUserAgent(first.Meta(userAgentKeys...))
	}
	fv.Location = first.Meta(locationKeys...)
	return fv, true
}

// DeviceFromUserAgent classifies a raw user agent as mobile, bot or desktop.
// An empty input yields an empty class.
func DeviceFromUserAgent(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	if ua.Mobile() {
		return "mobile"
	}
	if ua.Bot() {
		return "bot"
	}
	return "desktop"
}

// seconds clamps negative durations (clock skew) to zero.
func seconds(d time.Duration) float64 {
	if d < 0 {
		return 0
	}
	return d.Seconds()
}
