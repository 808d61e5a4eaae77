package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"BoltX/internal/domain/models"
	pkgch "BoltX/pkg/clickhouse"
	applogger "BoltX/pkg/logger"
)

// CHPredictionStore keeps the append-only prediction log in ClickHouse.
// The full prediction is stored as JSON next to a few columns for querying.
type CHPredictionStore struct {
	ch     *pkgch.Client
	tables pkgch.Tables
	table  string
	l      *applogger.Logger
}

func NewCHPredictionStore(ch *pkgch.Client, tables pkgch.Tables, l *applogger.Logger) *CHPredictionStore {
	if l == nil {
		l = applogger.Nop()
	}
	if tables.Database == "" {
		tables.Database = ch.Database()
	}
	return &CHPredictionStore{
		ch:     ch,
		tables: tables,
		table:  tables.Qualified(tables.Predictions),
		l:      l,
	}
}

func (s *CHPredictionStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, pkgch.Schema(s.tables))
}

func (s *CHPredictionStore) Persist(ctx context.Context, p *models.PersistedPrediction) error {
	body, err := json.Marshal(p.Prediction)
	if err != nil {
		return fmt.Errorf("marshal prediction: %w", err)
	}
	q := fmt.Sprintf(`INSERT INTO %s (id, customer_id, session_id, order_form_id, risk_score, risk_level, confidence, prediction, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	_, err = s.ch.DB().ExecContext(ctx, q,
		p.ID,
		p.CustomerID,
		p.SessionID,
		p.OrderFormID,
		uint8(p.Prediction.RiskScore),
		string(p.Prediction.RiskLevel),
		p.Prediction.Confidence,
		string(body),
		p.CreatedAt.UTC(),
	)
	if err != nil {
		s.l.Error("clickhouse persist_prediction error",
			applogger.String("session_id", p.SessionID),
			applogger.Error(err))
		return fmt.Errorf("persist prediction: %w", err)
	}
	return nil
}

func (s *CHPredictionStore) FetchLatest(ctx context.Context, sessionID string) (*models.PersistedPrediction, error) {
	list, err := s.List(ctx, "", sessionID, 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// List returns up to limit predictions for the session, newest first,
// optionally restricted to one customer.
func (s *CHPredictionStore) List(ctx context.Context, customerID, sessionID string, limit int) ([]*models.PersistedPrediction, error) {
	if limit <= 0 {
		limit = 1
	}
	where := "session_id = ?"
	args := []interface{}{sessionID}
	if customerID != "" {
		where = "customer_id = ? AND " + where
		args = append([]interface{}{customerID}, args...)
	}
	q := fmt.Sprintf(`SELECT id, customer_id, session_id, order_form_id, prediction, created_at FROM %s WHERE %s ORDER BY created_at DESC LIMIT ?`, s.table, where)
	rows, err := s.ch.DB().QueryContext(ctx, q, append(args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	defer rows.Close()

	out := make([]*models.PersistedPrediction, 0, limit)
	for rows.Next() {
		var (
			p    models.PersistedPrediction
			body string
		)
		if err := rows.Scan(&p.ID, &p.CustomerID, &p.SessionID, &p.OrderFormID, &body, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		if err := json.Unmarshal([]byte(body), &p.Prediction); err != nil {
			return nil, fmt.Errorf("decode prediction %s: %w", p.ID, err)
		}
		p.CreatedAt = p.CreatedAt.UTC()
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHPredictionStore) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.ch.Health(ctx)
}

func (s *CHPredictionStore) Close() error {
	return nil
}
