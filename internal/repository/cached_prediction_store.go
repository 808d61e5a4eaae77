package repository

import (
	"context"
	"time"

	"BoltX/internal/domain/models"
	domrepo "BoltX/internal/domain/repository"
	"BoltX/pkg/cache"
	applogger "BoltX/pkg/logger"
)

// CachedPredictionStore fronts a PredictionStore with a write-through cache of
// the latest prediction per session. Cache errors never fail a call.
type CachedPredictionStore struct {
	domrepo.PredictionStore
	cache cache.Service
	ttl   time.Duration
	l     *applogger.Logger
}

func NewCachedPredictionStore(inner domrepo.PredictionStore, c cache.Service, ttl time.Duration, l *applogger.Logger) *CachedPredictionStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CachedPredictionStore{PredictionStore: inner, cache: c, ttl: ttl, l: l}
}

func latestKey(sessionID string) string {
	return cache.Key("prediction", "latest", sessionID)
}

func (s *CachedPredictionStore) FetchLatest(ctx context.Context, sessionID string) (*models.PersistedPrediction, error) {
	var cached models.PersistedPrediction
	if err := s.cache.Get(ctx, latestKey(sessionID), &cached); err == nil {
		return &cached, nil
	}
	p, err := s.PredictionStore.FetchLatest(ctx, sessionID)
	if err != nil || p == nil {
		return p, err
	}
	s.store(ctx, p)
	return p, nil
}

func (s *CachedPredictionStore) Persist(ctx context.Context, p *models.PersistedPrediction) error {
	if err := s.PredictionStore.Persist(ctx, p); err != nil {
		return err
	}
	s.store(ctx, p)
	return nil
}

func (s *CachedPredictionStore) store(ctx context.Context, p *models.PersistedPrediction) {
	if err := s.cache.Set(ctx, latestKey(p.SessionID), p, s.ttl); err != nil {
		s.l.Warn("cache latest prediction", applogger.String("session_id", p.SessionID), applogger.Error(err))
	}
}
