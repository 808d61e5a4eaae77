package clickhouse

import "fmt"

// Tables names the two tables the risk service reads and writes.
type Tables struct {
	Database    string
	Events      string
	Predictions string
}

// Qualified returns database.table.
func (t Tables) Qualified(table string) string {
	return t.Database + "." + table
}

// Schema returns the idempotent DDL for the risk service.
// checkout_events is owned by ingestion and created here only so a fresh environment can boot.
// Its metadata column holds a JSON object of string values.
func Schema(t Tables) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", t.Database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	event_id    String,
	customer_id String,
	session_id  String,
	event_type  LowCardinality(String),
	ts          DateTime64(3, 'UTC'),
	step        Nullable(String),
	metadata    String
) ENGINE = MergeTree
PARTITION BY toYYYYMM(ts)
ORDER BY (customer_id, session_id, ts)
TTL toDateTime(ts) + INTERVAL 90 DAY`, t.Qualified(t.Events)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id            String,
	customer_id   String,
	session_id    String,
	order_form_id String,
	risk_score    UInt8,
	risk_level    LowCardinality(String),
	confidence    Float64,
	prediction    String,
	created_at    DateTime64(3, 'UTC')
) ENGINE = MergeTree
ORDER BY (session_id, created_at)`, t.Qualified(t.Predictions)),
	}
}
