package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domrepo "BoltX/internal/domain/repository"
	pkgkafka "BoltX/pkg/kafka"
	applogger "BoltX/pkg/logger"
	"BoltX/pkg/util"
)

// CheckoutEventsHandler re-evaluates a session whenever one of its checkout events is published.
// Predictions are thereby warm before the storefront polls, and the gate keeps writes sparse.
type CheckoutEventsHandler struct {
	topic   string
	uc      *RiskUseCase
	metrics domrepo.Metrics
	log     *applogger.Logger
}

func NewCheckoutEventsHandler(topic string, uc *RiskUseCase, metrics domrepo.Metrics, l *applogger.Logger) *CheckoutEventsHandler {
	if l == nil {
		l = applogger.Nop()
	}
	return &CheckoutEventsHandler{topic: topic, uc: uc, metrics: metrics, log: l}
}

func (h *CheckoutEventsHandler) Topic() string { return h.topic }

// incoming message schema: {customerId, sessionId, eventType, timestamp}
func (h *CheckoutEventsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		CustomerID string          `json:"customerId"`
		SessionID  string          `json:"sessionId"`
		EventType  string          `json:"eventType"`
		Timestamp  json.RawMessage `json:"timestamp"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return pkgkafka.Permanent(fmt.Errorf("decode checkout event: %w", err))
	}
	if ts, ok := util.ParseTime(trimQuotes(m.Timestamp)); ok {
		h.metrics.RecordLatency("event_to_evaluate_seconds", time.Since(ts).Seconds())
	}

	_, err := h.uc.Evaluate(ctx, m.CustomerID, m.SessionID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrMissingCustomer), errors.Is(err, ErrMissingSession):
		h.metrics.RecordError("consumer_invalid")
		return pkgkafka.Permanent(err)
	case errors.Is(err, ErrSessionNotFound):
		// Event not yet visible in the store; the next event re-triggers evaluation.
		h.log.Debug("session not found for event",
			applogger.String("session_id", m.SessionID),
			applogger.String("event_type", m.EventType),
			applogger.String("trace_id", pkgkafka.TraceID(ctx)))
		return nil
	default:
		h.metrics.RecordError("consumer_evaluate")
		return err
	}
}

func trimQuotes(raw json.RawMessage) string {
	s := string(raw)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

var _ pkgkafka.MessageHandler = (*CheckoutEventsHandler)(nil)
