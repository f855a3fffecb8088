// Package store provides SQLite persistence for Watchpost.
package store

import (
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/watchpost/watchpost/internal/model"
	"github.com/watchpost/watchpost/internal/normalize"
	_ "modernc.org/sqlite"
)

// Stored timestamp layout, always in the reporting zone. Lexicographic
// order equals chronological order under a fixed offset; id breaks
// same-second ties.
const timeLayout = "2006-01-02 15:04:05"

// Default result limits when the caller does not specify one.
const (
	DefaultMetricLimit = 100
	DefaultAlertLimit  = 200
)

// Store wraps a SQLite database holding metric and alert history. SQLite
// serializes writers itself; the busy timeout covers write contention from
// concurrent ingestion calls.
type Store struct {
	db *sql.DB
}

// New opens or creates a SQLite database at the given path and runs
// migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", dbPath, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping() error {
	return s.db.Ping()
}

// InsertMetric appends a metric sample and assigns its surrogate key.
func (s *Store) InsertMetric(m *model.MetricSample) error {
	res, err := s.db.Exec(`
		INSERT INTO metrics (host, os, cpu, mem, disk, ts)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.Host, m.OS, m.CPUPct, m.MemPct, m.DiskPct, formatTime(m.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("inserting metric: %w", err)
	}
	m.ID, _ = res.LastInsertId()
	return nil
}

// InsertAlert appends an alert record and assigns its surrogate key.
func (s *Store) InsertAlert(a *model.AlertRecord) error {
	res, err := s.db.Exec(`
		INSERT INTO alerts
		(host, os, source, category, event_id, event_name, severity,
		 username, ip, process, message, raw, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Host, a.OS, a.Source, a.Category, a.EventID, a.EventName,
		a.Severity, a.Username, a.IP, a.Process, a.Message, a.Raw,
		formatTime(a.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("inserting alert: %w", err)
	}
	a.ID, _ = res.LastInsertId()
	return nil
}

// ListHosts returns one entry per distinct (host, os) pair with the most
// recent sample timestamp, ordered by host name ascending. Status is left
// for the caller: recency classification is query-time policy, not storage.
func (s *Store) ListHosts() ([]model.HostStatus, error) {
	rows, err := s.db.Query(`
		SELECT host, os, MAX(ts)
		FROM metrics
		GROUP BY host, os
		ORDER BY host ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying hosts: %w", err)
	}
	defer rows.Close()

	var hosts []model.HostStatus
	for rows.Next() {
		var h model.HostStatus
		var ts string
		if err := rows.Scan(&h.Host, &h.OS, &ts); err != nil {
			return nil, fmt.Errorf("scanning host row: %w", err)
		}
		if h.LastSeen, err = parseTime(ts); err != nil {
			return nil, err
		}
		hosts = append(hosts, h)
	}
	return hosts, rows.Err()
}

// ListMetrics returns up to limit samples, newest first, optionally
// restricted to one host. limit <= 0 selects the default.
func (s *Store) ListMetrics(host string, limit int) ([]model.MetricSample, error) {
	if limit <= 0 {
		limit = DefaultMetricLimit
	}

	query := `SELECT id, host, os, cpu, mem, disk, ts FROM metrics`
	var args []any
	if host != "" {
		query += ` WHERE host = ?`
		args = append(args, host)
	}
	query += ` ORDER BY ts DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying metrics: %w", err)
	}
	defer rows.Close()

	var samples []model.MetricSample
	for rows.Next() {
		var m model.MetricSample
		var cpu, mem, disk sql.NullFloat64
		var ts string
		if err := rows.Scan(&m.ID, &m.Host, &m.OS, &cpu, &mem, &disk, &ts); err != nil {
			return nil, fmt.Errorf("scanning metric row: %w", err)
		}
		m.CPUPct = nullableFloat(cpu)
		m.MemPct = nullableFloat(mem)
		m.DiskPct = nullableFloat(disk)
		if m.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		samples = append(samples, m)
	}
	return samples, rows.Err()
}

// AlertFilter restricts ListAlerts. Zero-valued fields are ignored;
// populated fields combine with AND. OSContains matches as a
// case-sensitive substring of the stored os label.
type AlertFilter struct {
	Host       string
	OSContains string
	Category   string
	Severity   string
	Limit      int
}

// ListAlerts returns up to f.Limit alert records, newest first.
func (s *Store) ListAlerts(f AlertFilter) ([]model.AlertRecord, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultAlertLimit
	}

	var conds []string
	var args []any
	if f.Host != "" {
		conds = append(conds, "host = ?")
		args = append(args, f.Host)
	}
	if f.OSContains != "" {
		// instr, not LIKE: SQLite LIKE is case-insensitive for ASCII.
		conds = append(conds, "instr(os, ?) > 0")
		args = append(args, f.OSContains)
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if f.Severity != "" {
		conds = append(conds, "severity = ?")
		args = append(args, f.Severity)
	}

	query := `SELECT id, host, os, source, category, event_id, event_name,
		severity, username, ip, process, message, raw, ts FROM alerts`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY ts DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.AlertRecord
	for rows.Next() {
		var a model.AlertRecord
		var source, eventName, username, ip, process, message sql.NullString
		var eventID sql.NullInt64
		var ts string
		if err := rows.Scan(&a.ID, &a.Host, &a.OS, &source, &a.Category,
			&eventID, &eventName, &a.Severity, &username, &ip, &process,
			&message, &a.Raw, &ts); err != nil {
			return nil, fmt.Errorf("scanning alert row: %w", err)
		}
		a.Source = source.String
		a.EventName = eventName.String
		a.Username = username.String
		a.IP = ip.String
		a.Process = process.String
		a.Message = message.String
		if eventID.Valid {
			id := eventID.Int64
			a.EventID = &id
		}
		if a.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// KPIs returns average utilization over samples since the given instant,
// plus the count of active (high or medium) alerts in the same window.
// Averages ignore null readings and round to one decimal.
func (s *Store) KPIs(since time.Time) (model.KPISummary, error) {
	var k model.KPISummary
	var cpu, mem, disk sql.NullFloat64

	t0 := formatTime(since)
	err := s.db.QueryRow(`
		SELECT AVG(cpu), AVG(mem), AVG(disk) FROM metrics WHERE ts >= ?`, t0).
		Scan(&cpu, &mem, &disk)
	if err != nil {
		return k, fmt.Errorf("querying utilization averages: %w", err)
	}
	k.CPUPct = round1(cpu.Float64)
	k.MemPct = round1(mem.Float64)
	k.DiskPct = round1(disk.Float64)

	err = s.db.QueryRow(`
		SELECT COUNT(*) FROM alerts WHERE ts >= ? AND severity IN (?, ?)`,
		t0, model.SeverityHigh, model.SeverityMedium).
		Scan(&k.ActiveAlerts)
	if err != nil {
		return k, fmt.Errorf("counting active alerts: %w", err)
	}
	return k, nil
}

// MetricState returns the threshold state for a (host, kind) pair. An
// unseen pair reads as "normal" with no last value.
func (s *Store) MetricState(host, kind string) (status string, lastValue *float64, err error) {
	var v sql.NullFloat64
	err = s.db.QueryRow(`
		SELECT status, last_value FROM metric_state WHERE host = ? AND kind = ?`,
		host, kind).Scan(&status, &v)
	if err == sql.ErrNoRows {
		return "normal", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("querying metric state: %w", err)
	}
	return status, nullableFloat(v), nil
}

// SetMetricState upserts the threshold state for a (host, kind) pair.
func (s *Store) SetMetricState(host, kind, status string, lastValue float64) error {
	_, err := s.db.Exec(`
		INSERT INTO metric_state (host, kind, status, last_value, updated_ts)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(host, kind) DO UPDATE SET
			status = excluded.status,
			last_value = excluded.last_value,
			updated_ts = excluded.updated_ts`,
		host, kind, status, lastValue, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("upserting metric state %s/%s: %w", host, kind, err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return normalize.ToReportingZone(t).Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(timeLayout, s, normalize.ReportingZone)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
