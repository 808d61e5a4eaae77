package usecase

import (
	"context"
	"fmt"

	"BoltX/internal/domain/models"
	domrepo "BoltX/internal/domain/repository"
	applogger "BoltX/pkg/logger"
)

// PredictionSink stores a prediction and then notifies downstream consumers.
// Only the store write is retried by the pipeline; a failed notification is logged.
type PredictionSink struct {
	store     domrepo.PredictionStore
	publisher domrepo.PredictionPublisher
	metrics   domrepo.Metrics
	log       *applogger.Logger
}

func NewPredictionSink(store domrepo.PredictionStore, publisher domrepo.PredictionPublisher, metrics domrepo.Metrics, l *applogger.Logger) *PredictionSink {
	if l == nil {
		l = applogger.Nop()
	}
	return &PredictionSink{store: store, publisher: publisher, metrics: metrics, log: l}
}

func (s *PredictionSink) Process(ctx context.Context, p *models.PersistedPrediction) error {
	if err := s.store.Persist(ctx, p); err != nil {
		return fmt.Errorf("persist prediction: %w", err)
	}
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.PublishPrediction(ctx, p); err != nil {
		s.metrics.RecordError("publish_prediction")
		s.log.Error("publish prediction",
			applogger.String("session_id", p.SessionID),
			applogger.String("prediction_id", p.ID),
			applogger.Error(err))
	}
	return nil
}
