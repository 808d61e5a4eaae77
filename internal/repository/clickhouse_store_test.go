package repository

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"BoltX/internal/domain/models"
	domrepo "BoltX/internal/domain/repository"
	pkgch "BoltX/pkg/clickhouse"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockClient(t *testing.T) (*pkgch.Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return pkgch.NewClientFromDB(db, "boltx"), mock
}

func TestCHEventStore_FetchEvents(t *testing.T) {
	ch, mock := newMockClient(t)
	store := NewCHEventStore(ch, "checkout_events", nil)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	from := now.Add(-7 * 24 * time.Hour)
	q := domrepo.EventQuery{
		CustomerID: "c1",
		SessionID:  "s1",
		Types:      []models.EventType{models.EventCheckoutStarted, models.EventStepViewed},
		From:       from,
		To:         now,
	}

	rows := sqlmock.NewRows([]string{"event_id", "customer_id", "session_id", "event_type", "ts", "step", "metadata"}).
		AddRow("e1", "c1", "s1", "checkout_started", now.Add(-time.Minute), nil, `{"deviceType":"mobile"}`).
		AddRow("e2", "c1", "s1", "step_viewed", now, "payment", "")

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT event_id, customer_id, session_id, event_type, ts, step, metadata FROM boltx.checkout_events WHERE customer_id = ? AND session_id = ? AND event_type IN (?, ?) AND ts >= ? AND ts <= ? ORDER BY ts ASC")).
		WithArgs("c1", "s1", "checkout_started", "step_viewed", from, now).
		WillReturnRows(rows)

	events, err := store.FetchEvents(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, models.EventCheckoutStarted, events[0].Type)
	assert.Nil(t, events[0].Step)
	assert.Equal(t, "mobile", events[0].Metadata["deviceType"])

	require.NotNil(t, events[1].Step)
	assert.Equal(t, models.StepPayment, *events[1].Step)
	assert.Empty(t, events[1].Metadata)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHEventStore_QueryError(t *testing.T) {
	ch, mock := newMockClient(t)
	store := NewCHEventStore(ch, "checkout_events", nil)

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection refused"))

	_, err := store.FetchEvents(context.Background(), domrepo.EventQuery{SessionID: "s1", Limit: 10})
	assert.Error(t, err)
}

func TestCHEventStore_BuildQueryWithLimitOnly(t *testing.T) {
	store := &CHEventStore{table: "boltx.checkout_events"}
	q, args := store.buildQuery(domrepo.EventQuery{Limit: 5})
	assert.Equal(t, "SELECT event_id, customer_id, session_id, event_type, ts, step, metadata FROM boltx.checkout_events ORDER BY ts ASC LIMIT ?", q)
	assert.Equal(t, []interface{}{5}, args)
}

func samplePersisted(at time.Time) *models.PersistedPrediction {
	it := models.InterventionSecurity
	return &models.PersistedPrediction{
		ID:          "p1",
		CustomerID:  "c1",
		SessionID:   "s1",
		OrderFormID: "of1",
		CreatedAt:   at,
		Prediction: models.AbandonmentPrediction{
			RiskScore:             56,
			RiskLevel:             models.RiskHigh,
			Confidence:            0.55,
			Recommendations:       []string{"Offer help"},
			InterventionSuggested: true,
			InterventionType:      &it,
		},
	}
}

func TestCHPredictionStore_Persist(t *testing.T) {
	ch, mock := newMockClient(t)
	store := NewCHPredictionStore(ch, pkgch.Tables{Events: "checkout_events", Predictions: "abandonment_predictions"}, nil)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := samplePersisted(at)
	body, err := json.Marshal(p.Prediction)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO boltx.abandonment_predictions")).
		WithArgs("p1", "c1", "s1", "of1", uint8(56), "high", 0.55, string(body), at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Persist(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHPredictionStore_FetchLatest(t *testing.T) {
	ch, mock := newMockClient(t)
	store := NewCHPredictionStore(ch, pkgch.Tables{Predictions: "abandonment_predictions"}, nil)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	body, err := json.Marshal(samplePersisted(at).Prediction)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("FROM boltx.abandonment_predictions WHERE session_id = ? ORDER BY created_at DESC LIMIT ?")).
		WithArgs("s1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "session_id", "order_form_id", "prediction", "created_at"}).
			AddRow("p1", "c1", "s1", "of1", string(body), at))

	got, err := store.FetchLatest(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 56, got.Prediction.RiskScore)
	assert.Equal(t, models.RiskHigh, got.Prediction.RiskLevel)
	require.NotNil(t, got.Prediction.InterventionType)
	assert.Equal(t, models.InterventionSecurity, *got.Prediction.InterventionType)

	mock.ExpectQuery("SELECT").WithArgs("s2", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "session_id", "order_form_id", "prediction", "created_at"}))
	got, err = store.FetchLatest(context.Background(), "s2")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHPredictionStore_ListFiltersCustomerInQuery(t *testing.T) {
	ch, mock := newMockClient(t)
	store := NewCHPredictionStore(ch, pkgch.Tables{Predictions: "abandonment_predictions"}, nil)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	body, err := json.Marshal(samplePersisted(at).Prediction)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("FROM boltx.abandonment_predictions WHERE customer_id = ? AND session_id = ? ORDER BY created_at DESC LIMIT ?")).
		WithArgs("c1", "s1", 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "session_id", "order_form_id", "prediction", "created_at"}).
			AddRow("p2", "c1", "s1", "of1", string(body), at.Add(time.Minute)).
			AddRow("p1", "c1", "s1", "of1", string(body), at))

	got, err := store.List(context.Background(), "c1", "s1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p2", got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHPredictionStore_Init(t *testing.T) {
	ch, mock := newMockClient(t)
	store := NewCHPredictionStore(ch, pkgch.Tables{Events: "checkout_events", Predictions: "abandonment_predictions"}, nil)

	mock.ExpectExec("CREATE DATABASE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS boltx.checkout_events").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS boltx.abandonment_predictions").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Init(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
