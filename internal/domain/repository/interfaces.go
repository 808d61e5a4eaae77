package repository

import (
	"context"
	"time"

	"BoltX/internal/domain/models"
)

// EventQuery selects checkout events. Empty fields are not filtered on.
type EventQuery struct {
	CustomerID string
	SessionID  string
	Types      []models.EventType
	From       time.Time
	To         time.Time
	Limit      int
}

// EventStore provides read-only access to recorded checkout events, ordered by timestamp ascending.
type EventStore interface {
	FetchEvents(ctx context.Context, q EventQuery) ([]models.CheckoutEvent, error)
	Health(ctx context.Context) error
}

// PredictionStore holds the append-only prediction log.
type PredictionStore interface {
	Init(ctx context.Context) error // ensure tables
	// FetchLatest returns nil without error when the session has no predictions.
	FetchLatest(ctx context.Context, sessionID string) (*models.PersistedPrediction, error)
	Persist(ctx context.Context, p *models.PersistedPrediction) error
	// List returns up to limit predictions for the session, newest first.
	// A non-empty customerID restricts the rows to that customer.
	List(ctx context.Context, customerID, sessionID string, limit int) ([]*models.PersistedPrediction, error)
	Health(ctx context.Context) error
	Close() error
}

// PredictionPublisher fans persisted predictions out to downstream consumers.
type PredictionPublisher interface {
	PublishPrediction(ctx context.Context, p *models.PersistedPrediction) error
	Close() error
}

type Metrics interface {
	RecordPrediction(level models.RiskLevel, score int)
	RecordGateDecision(persist bool)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordDropped(kind string)
}
