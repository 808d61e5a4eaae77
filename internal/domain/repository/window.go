package repository

import (
	"time"

	"BoltX/internal/domain/models"
)

// Lookback windows applied when no configuration is supplied.
const (
	DefaultSessionWindow = 7 * 24 * time.Hour
	DefaultHistoryWindow = 30 * 24 * time.Hour
)

// SessionQuery builds the query for one session's events, looking back window from now.
func SessionQuery(customerID, sessionID string, now time.Time, window time.Duration) EventQuery {
	if window <= 0 {
		window = DefaultSessionWindow
	}
	return EventQuery{
		CustomerID: customerID,
		SessionID:  sessionID,
		Types:      models.SessionEventTypes,
		From:       now.Add(-window),
		To:         now,
	}
}

// HistoryQuery builds the query for a customer's baseline across all sessions.
func HistoryQuery(customerID string, now time.Time, window time.Duration) EventQuery {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	return EventQuery{
		CustomerID: customerID,
		Types:      models.HistoryEventTypes,
		From:       now.Add(-window),
		To:         now,
	}
}
