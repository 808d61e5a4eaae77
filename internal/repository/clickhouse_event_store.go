package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"BoltX/internal/domain/models"
	domrepo "BoltX/internal/domain/repository"
	pkgch "BoltX/pkg/clickhouse"
	applogger "BoltX/pkg/logger"
)

// CHEventStore reads checkout events from ClickHouse.
type CHEventStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHEventStore(ch *pkgch.Client, table string, l *applogger.Logger) *CHEventStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHEventStore{
		db:    ch.DB(),
		table: pkgch.Tables{Database: ch.Database()}.Qualified(table),
		l:     l,
	}
}

func (s *CHEventStore) FetchEvents(ctx context.Context, q domrepo.EventQuery) ([]models.CheckoutEvent, error) {
	start := time.Now()
	query, args := s.buildQuery(q)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.l.Error("clickhouse fetch_events query error",
			applogger.String("table", s.table),
			applogger.String("session_id", q.SessionID),
			applogger.Error(err))
		return nil, fmt.Errorf("fetch events: %w", err)
	}
	defer rows.Close()

	out := make([]models.CheckoutEvent, 0, 64)
	for rows.Next() {
		var (
			e        models.CheckoutEvent
			evType   string
			step     sql.NullString
			metadata string
		)
		if err := rows.Scan(&e.ID, &e.CustomerID, &e.SessionID, &evType, &e.Timestamp, &step, &metadata); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Type = models.EventType(evType)
		e.Timestamp = e.Timestamp.UTC()
		if step.Valid && step.String != "" {
			st := models.Step(step.String)
			e.Step = &st
		}
		if metadata != "" {
			if err := json.Unmarshal([]byte(metadata), &e.Metadata); err != nil {
				// Unreadable metadata only loses device/location hints.
				s.l.Warn("clickhouse event metadata decode",
					applogger.String("event_id", e.ID),
					applogger.Error(err))
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse fetch_events ok",
		applogger.String("session_id", q.SessionID),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)))
	return out, nil
}

func (s *CHEventStore) buildQuery(q domrepo.EventQuery) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if q.CustomerID != "" {
		conds = append(conds, "customer_id = ?")
		args = append(args, q.CustomerID)
	}
	if q.SessionID != "" {
		conds = append(conds, "session_id = ?")
		args = append(args, q.SessionID)
	}
	if len(q.Types) > 0 {
		ph := make([]string, len(q.Types))
		for i, t := range q.Types {
			ph[i] = "?"
			args = append(args, string(t))
		}
		conds = append(conds, "event_type IN ("+strings.Join(ph, ", ")+")")
	}
	if !q.From.IsZero() {
		conds = append(conds, "ts >= ?")
		args = append(args, q.From)
	}
	if !q.To.IsZero() {
		conds = append(conds, "ts <= ?")
		args = append(args, q.To)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT event_id, customer_id, session_id, event_type, ts, step, metadata FROM %s", s.table)
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY ts ASC")
	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}
	return b.String(), args
}

func (s *CHEventStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
