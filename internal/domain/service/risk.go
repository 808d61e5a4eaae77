package service

import (
	"context"
	"errors"

	"BoltX/internal/domain/models"
)

// RiskScorer turns a feature vector and customer baseline into a prediction.
type RiskScorer interface {
	Score(f models.FeatureVector, h models.HistoricalContext) models.AbandonmentPrediction
}

// Identity is the authenticated caller.
type Identity struct {
	CustomerID string
	Entitled   bool
}

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")
)

// IdentityResolver maps a request credential to a customer and its entitlement.
type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) (Identity, error)
}
