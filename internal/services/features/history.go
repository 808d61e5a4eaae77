package features

import (
	"BoltX/internal/domain/models"
)

type sessionMarks struct {
	start     *models.CheckoutEvent
	completed *models.CheckoutEvent
	abandoned bool
}

// AggregateHistory summarises a customer's sessions other than currentSessionID.
// With no other sessions it returns models.DefaultHistoricalContext().
func AggregateHistory(events []models.CheckoutEvent, currentSessionID string) models.HistoricalContext {
	sessions := make(map[string]*sessionMarks)
	for i := range events {
		ev := &events[i]
		if ev.SessionID == "" || ev.SessionID == currentSessionID {
			continue
		}
		m, ok := sessions[ev.SessionID]
		if !ok {
			m = &sessionMarks{}
			sessions[ev.SessionID] = m
		}
		switch {
		case ev.Type == models.EventCheckoutStarted:
			if m.start == nil {
				m.start = ev
			}
		case ev.Type.IsCompletion():
			if m.completed == nil {
				m.completed = ev
			}
		case ev.Type == models.EventStepAbandoned:
			m.abandoned = true
		}
	}

	if len(sessions) == 0 {
		return models.DefaultHistoricalContext()
	}

	var (
		completed, abandoned int
		durationSum          float64
		durations            int
	)
	for _, m := range sessions {
		if m.start != nil && m.completed != nil {
			completed++
			if d := m.completed.Timestamp.Sub(m.start.Timestamp).Seconds(); d > 0 {
				durationSum += d
				durations++
			}
			continue
		}
		if m.abandoned && m.completed == nil {
			abandoned++
		}
	}

	avg := models.DefaultAvgCheckoutSeconds
	if durations > 0 {
		avg = durationSum / float64(durations)
	}
	return models.HistoricalContext{
		PreviousAbandonments:       abandoned,
		AvgCheckoutDurationSeconds: avg,
		ConversionRate:             float64(completed) / float64(len(sessions)),
		SessionsObserved:           len(sessions),
		DurationSamples:            durations,
	}
}

// WithHistoricalTypical measures the time ratio against the customer's own
// average checkout duration. fv is returned unchanged until durations were sampled.
func WithHistoricalTypical(fv models.FeatureVector, h models.HistoricalContext) models.FeatureVector {
	if h.DurationSamples == 0 || h.AvgCheckoutDurationSeconds <= 0 {
		return fv
	}
	fv.TimeExceededRatio = fv.TotalDuration / h.AvgCheckoutDurationSeconds
	return fv
}
