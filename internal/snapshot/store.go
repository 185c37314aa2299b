// Package snapshot persists the SystemState stream and alert records in
// SQLite. The core never touches this package; it is a collaborator fed
// one immutable record per ingest.
package snapshot

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kestrelops/cascade/internal/engine"
	"github.com/kestrelops/cascade/internal/phase"
	"github.com/kestrelops/cascade/internal/resonance"
	"github.com/kestrelops/cascade/internal/telemetry"
)

// #region schema

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id          TEXT PRIMARY KEY,
	seq         INTEGER NOT NULL UNIQUE,
	created_at  TEXT NOT NULL,
	z           REAL NOT NULL,
	regime      TEXT NOT NULL,
	velocity    REAL NOT NULL,
	composite   REAL NOT NULL,
	dims        BLOB NOT NULL,
	risk        REAL,
	distance    REAL NOT NULL,
	trend       REAL NOT NULL,
	frequency   REAL,
	coherence   REAL,
	amplitude   REAL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_seq ON snapshots(seq);

CREATE TABLE IF NOT EXISTS latest_state (
	id   INTEGER PRIMARY KEY CHECK (id = 1),
	seq  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS alert_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	seq         INTEGER NOT NULL,
	severity    TEXT NOT NULL,
	metric      TEXT NOT NULL,
	value       REAL NOT NULL,
	threshold   REAL NOT NULL,
	message     TEXT NOT NULL,
	created_at  TEXT NOT NULL
);
`

// #endregion schema

// #region store

// Store manages the snapshot stream in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens the database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for collaborator queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion store

// #region append

// Append inserts one snapshot and advances the latest pointer atomically.
func (s *Store) Append(st engine.SystemState) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var risk, freq, coh, amp any
	if st.Signal.Risk != nil {
		risk = *st.Signal.Risk
	}
	if st.Profile != nil {
		freq = st.Profile.DominantFrequency
		coh = st.Profile.Coherence
		amp = st.Profile.Amplitude
	}

	_, err = tx.Exec(
		`INSERT INTO snapshots (id, seq, created_at, z, regime, velocity, composite, dims, risk, distance, trend, frequency, coherence, amplitude)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.Seq, st.Timestamp.UTC().Format(time.RFC3339Nano),
		st.Phase.Z, string(st.Phase.Regime), st.Phase.Velocity,
		st.Burden.Composite, encodeDims(st.Burden.Dimensions),
		risk, st.Signal.DistanceToCritical, st.Signal.Trend,
		freq, coh, amp,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO latest_state (id, seq) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET seq = excluded.seq`,
		st.Seq,
	)
	if err != nil {
		return fmt.Errorf("set latest: %w", err)
	}

	return tx.Commit()
}

// #endregion append

// #region read

// Latest returns the most recently appended snapshot.
func (s *Store) Latest() (engine.SystemState, error) {
	var seq uint64
	if err := s.db.QueryRow(`SELECT seq FROM latest_state WHERE id = 1`).Scan(&seq); err != nil {
		return engine.SystemState{}, fmt.Errorf("get latest seq: %w", err)
	}
	return s.BySeq(seq)
}

// BySeq retrieves one snapshot by sequence number.
func (s *Store) BySeq(seq uint64) (engine.SystemState, error) {
	row := s.db.QueryRow(
		`SELECT id, seq, created_at, z, regime, velocity, composite, dims, risk, distance, trend, frequency, coherence, amplitude
		 FROM snapshots WHERE seq = ?`, seq,
	)
	st, err := scanState(row)
	if err != nil {
		return engine.SystemState{}, fmt.Errorf("get snapshot %d: %w", seq, err)
	}
	return st, nil
}

// Range returns up to limit snapshots starting at fromSeq, ascending.
// limit <= 0 means no limit.
func (s *Store) Range(fromSeq uint64, limit int) ([]engine.SystemState, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT id, seq, created_at, z, regime, velocity, composite, dims, risk, distance, trend, frequency, coherence, amplitude
		 FROM snapshots WHERE seq >= ? ORDER BY seq ASC LIMIT ?`, fromSeq, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("range snapshots: %w", err)
	}
	defer rows.Close()

	var out []engine.SystemState
	for rows.Next() {
		st, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Count returns the number of stored snapshots.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return n, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanState(row scanner) (engine.SystemState, error) {
	var st engine.SystemState
	var createdStr, regime string
	var dims []byte
	var risk, freq, coh, amp sql.NullFloat64

	err := row.Scan(
		&st.ID, &st.Seq, &createdStr,
		&st.Phase.Z, &regime, &st.Phase.Velocity,
		&st.Burden.Composite, &dims,
		&risk, &st.Signal.DistanceToCritical, &st.Signal.Trend,
		&freq, &coh, &amp,
	)
	if err != nil {
		return engine.SystemState{}, err
	}

	st.Phase.Regime = phase.Regime(regime)
	st.Burden.Regime = phase.Regime(regime)
	st.Burden.Dimensions = decodeDims(dims)
	st.Timestamp, _ = time.Parse(time.RFC3339Nano, createdStr)
	st.Phase.Timestamp = st.Timestamp
	if risk.Valid {
		v := risk.Float64
		st.Signal.Risk = &v
	}
	if freq.Valid {
		st.Profile = &resonance.ResonanceProfile{
			DominantFrequency: freq.Float64,
			Coherence:         coh.Float64,
			Amplitude:         amp.Float64,
		}
	}
	return st, nil
}

// #endregion read

// #region alerts

// AlertRecord is one persisted alert row.
type AlertRecord struct {
	Seq       uint64
	Severity  string
	Metric    string
	Value     float64
	Threshold float64
	Message   string
	CreatedAt time.Time
}

// LogAlert appends one alert row.
func (s *Store) LogAlert(a AlertRecord) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO alert_log (seq, severity, metric, value, threshold, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.Seq, a.Severity, a.Metric, a.Value, a.Threshold, a.Message,
		a.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log alert: %w", err)
	}
	return nil
}

// Alerts returns the most recent alert rows, newest first.
func (s *Store) Alerts(limit int) ([]AlertRecord, error) {
	rows, err := s.db.Query(
		`SELECT seq, severity, metric, value, threshold, message, created_at
		 FROM alert_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var out []AlertRecord
	for rows.Next() {
		var a AlertRecord
		var createdStr string
		if err := rows.Scan(&a.Seq, &a.Severity, &a.Metric, &a.Value, &a.Threshold, &a.Message, &createdStr); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, a)
	}
	return out, rows.Err()
}

// #endregion alerts

// #region dims-encoding

func encodeDims(v [telemetry.DimensionCount]float64) []byte {
	buf := make([]byte, telemetry.DimensionCount*8)
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

func decodeDims(b []byte) [telemetry.DimensionCount]float64 {
	var v [telemetry.DimensionCount]float64
	for i := range v {
		if i*8+8 <= len(b) {
			v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
		}
	}
	return v
}

// #endregion dims-encoding
