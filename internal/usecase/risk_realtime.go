package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"BoltX/internal/domain/models"
	domrepo "BoltX/internal/domain/repository"
	"BoltX/internal/domain/service"
	"BoltX/internal/services/features"
	"BoltX/internal/services/risk"
	"BoltX/pkg/cache"
	applogger "BoltX/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrMissingCustomer = errors.New("customer id required")
	ErrMissingSession  = errors.New("session id required")
	ErrSessionNotFound = errors.New("checkout session not found")
)

// RiskConfig holds the tunables of the real-time evaluation.
type RiskConfig struct {
	TypicalCheckoutSeconds float64
	HysteresisThreshold    int
	SessionWindow          time.Duration
	HistoryWindow          time.Duration
	EvaluateTimeout        time.Duration
	HistoryCacheTTL        time.Duration
	// HistoricalTypical replaces TypicalCheckoutSeconds with the customer's
	// measured average checkout duration when one exists.
	HistoricalTypical bool
}

// DefaultRiskConfig returns the production defaults.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		TypicalCheckoutSeconds: features.DefaultTypicalCheckoutSeconds,
		HysteresisThreshold:    risk.DefaultHysteresisThreshold,
		SessionWindow:          domrepo.DefaultSessionWindow,
		HistoryWindow:          domrepo.DefaultHistoryWindow,
		EvaluateTimeout:        10 * time.Second,
		HistoryCacheTTL:        5 * time.Minute,
	}
}

// Submitter accepts predictions for asynchronous persistence.
type Submitter interface {
	Submit(p *models.PersistedPrediction) bool
}

// RiskUseCase scores a live checkout session and decides whether the result is new.
type RiskUseCase struct {
	events      domrepo.EventStore
	predictions domrepo.PredictionStore
	scorer      service.RiskScorer
	policy      *risk.Policy
	gate        *risk.Gate
	sink        Submitter
	cache       cache.Service
	metrics     domrepo.Metrics
	log         *applogger.Logger
	cfg         RiskConfig

	now   func() time.Time
	newID func() string
}

// NewRiskUseCase wires the evaluation. c may be nil to disable history caching.
func NewRiskUseCase(
	events domrepo.EventStore,
	predictions domrepo.PredictionStore,
	scorer service.RiskScorer,
	sink Submitter,
	c cache.Service,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	cfg RiskConfig,
) *RiskUseCase {
	if l == nil {
		l = applogger.Nop()
	}
	if cfg.EvaluateTimeout <= 0 {
		cfg.EvaluateTimeout = DefaultRiskConfig().EvaluateTimeout
	}
	return &RiskUseCase{
		events:      events,
		predictions: predictions,
		scorer:      scorer,
		policy:      risk.NewPolicy(),
		gate:        risk.NewGate(cfg.HysteresisThreshold),
		sink:        sink,
		cache:       c,
		metrics:     metrics,
		log:         l.With(applogger.String("component", "risk_usecase")),
		cfg:         cfg,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Evaluate computes the current abandonment risk of a session.
// HasUpdate reports whether the prediction differs enough from the last persisted
// one to be stored; when it does, the record is handed to the persistence pipeline.
func (uc *RiskUseCase) Evaluate(ctx context.Context, customerID, sessionID string) (*models.RiskResult, error) {
	if customerID == "" {
		return nil, ErrMissingCustomer
	}
	if sessionID == "" {
		return nil, ErrMissingSession
	}
	start := time.Now()
	defer func() { uc.metrics.RecordLatency("evaluate", time.Since(start).Seconds()) }()

	ctx, cancel := context.WithTimeout(ctx, uc.cfg.EvaluateTimeout)
	defer cancel()

	now := uc.now().UTC()
	events, err := uc.events.FetchEvents(ctx, domrepo.SessionQuery(customerID, sessionID, now, uc.cfg.SessionWindow))
	if err != nil {
		uc.metrics.RecordError("session_fetch")
		return nil, fmt.Errorf("fetch session events: %w", err)
	}
	fv, ok := features.Extract(events, now, uc.cfg.TypicalCheckoutSeconds)
	if !ok {
		return nil, ErrSessionNotFound
	}

	var (
		wg      sync.WaitGroup
		history models.HistoricalContext
		latest  *models.PersistedPrediction
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		history = uc.historyFor(ctx, customerID, sessionID, now)
	}()
	go func() {
		defer wg.Done()
		latest = uc.latestFor(ctx, sessionID)
	}()
	wg.Wait()

	if uc.cfg.HistoricalTypical {
		fv = features.WithHistoricalTypical(fv, history)
	}
	pred := uc.scorer.Score(fv, history)
	uc.policy.Finalize(&pred)

	var prior *models.AbandonmentPrediction
	if latest != nil {
		prior = &latest.Prediction
	}
	decision := uc.gate.Decide(pred, prior)

	uc.metrics.RecordPrediction(pred.RiskLevel, pred.RiskScore)
	uc.metrics.RecordGateDecision(decision.Persist)

	if decision.Persist {
		record := &models.PersistedPrediction{
			ID:          uc.newID(),
			CustomerID:  customerID,
			SessionID:   sessionID,
			OrderFormID: fv.OrderFormID,
			Prediction:  pred,
			CreatedAt:   now,
		}
		if !uc.sink.Submit(record) {
			uc.log.Warn("prediction not queued for persistence",
				applogger.String("session_id", sessionID),
				applogger.Int("risk_score", pred.RiskScore))
		}
	}

	uc.log.Debug("risk evaluated",
		applogger.String("session_id", sessionID),
		applogger.Int("risk_score", pred.RiskScore),
		applogger.String("risk_level", string(pred.RiskLevel)),
		applogger.Bool("has_update", decision.HasUpdate),
		applogger.Duration("duration_ms", time.Since(start)))

	return &models.RiskResult{
		Prediction: pred,
		Timestamp:  now,
		HasUpdate:  decision.HasUpdate,
	}, nil
}

// historyFor returns the customer's baseline excluding the current session.
// Any failure degrades to the default baseline.
func (uc *RiskUseCase) historyFor(ctx context.Context, customerID, sessionID string, now time.Time) models.HistoricalContext {
	key := cache.Key("history", customerID, sessionID)
	h, err := cache.GetOrLoad(ctx, uc.cache, key, uc.cfg.HistoryCacheTTL, func(ctx context.Context) (models.HistoricalContext, error) {
		events, err := uc.events.FetchEvents(ctx, domrepo.HistoryQuery(customerID, now, uc.cfg.HistoryWindow))
		if err != nil {
			return models.HistoricalContext{}, err
		}
		return features.AggregateHistory(events, sessionID), nil
	})
	if err != nil {
		uc.metrics.RecordError("history_fetch")
		uc.log.Warn("history unavailable, using defaults",
			applogger.String("customer_id", customerID),
			applogger.Error(err))
		return models.DefaultHistoricalContext()
	}
	return h
}

// latestFor returns the last persisted prediction, or nil when there is none or it cannot be read.
func (uc *RiskUseCase) latestFor(ctx context.Context, sessionID string) *models.PersistedPrediction {
	p, err := uc.predictions.FetchLatest(ctx, sessionID)
	if err != nil {
		uc.metrics.RecordError("latest_fetch")
		uc.log.Warn("latest prediction unavailable",
			applogger.String("session_id", sessionID),
			applogger.Error(err))
		return nil
	}
	return p
}

// History lists the customer's persisted predictions for a session, newest first.
func (uc *RiskUseCase) History(ctx context.Context, customerID, sessionID string, limit int) ([]*models.PersistedPrediction, error) {
	if customerID == "" {
		return nil, ErrMissingCustomer
	}
	if sessionID == "" {
		return nil, ErrMissingSession
	}
	list, err := uc.predictions.List(ctx, customerID, sessionID, limit)
	if err != nil {
		uc.metrics.RecordError("history_list")
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	return list, nil
}
