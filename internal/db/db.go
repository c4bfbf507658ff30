// Package db stores recording sessions in sqlite: the samples, parsed
// events, and messages received over the link, keyed by session.
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/gazelink/gazelink/internal/edf"
)

type DB struct {
	*sql.DB
}

// Open opens (or creates) the sqlite database at path and applies any
// pending migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db := &DB{sqlDB}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Session describes one recording session row.
type Session struct {
	ID        string
	EDFName   string
	HostAddr  string
	StartedAt time.Time
	EndedAt   *time.Time
}

// BeginSession inserts a new session row and returns its id.
func (db *DB) BeginSession(edfName, hostAddr string) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec(
		"INSERT INTO sessions (session_id, edf_name, host_addr) VALUES (?, ?, ?)",
		id, edfName, hostAddr,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return id, nil
}

// EndSession stamps the session's end time.
func (db *DB) EndSession(id string) error {
	res, err := db.Exec(
		"UPDATE sessions SET ended_at = CURRENT_TIMESTAMP WHERE session_id = ? AND ended_at IS NULL",
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no open session %s", id)
	}
	return nil
}

// Sessions returns every session, newest first.
func (db *DB) Sessions() ([]Session, error) {
	rows, err := db.Query(
		// rowid breaks ties: started_at only has second granularity.
		"SELECT session_id, edf_name, host_addr, started_at, ended_at FROM sessions ORDER BY started_at DESC, rowid DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		var ended sql.NullTime
		if err := rows.Scan(&s.ID, &s.EDFName, &s.HostAddr, &s.StartedAt, &ended); err != nil {
			return nil, err
		}
		if ended.Valid {
			t := ended.Time
			s.EndedAt = &t
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// RecordSample inserts one gaze sample.
func (db *DB) RecordSample(sessionID string, s edf.Sample) error {
	_, err := db.Exec(
		`INSERT INTO samples (
			session_id, time_ms,
			left_x, left_y, left_pupil, left_valid,
			right_x, right_y, right_pupil, right_valid
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, s.TimeMS,
		s.Left.X, s.Left.Y, s.Left.Pupil, s.Left.Valid,
		s.Right.X, s.Right.Y, s.Right.Pupil, s.Right.Valid,
	)
	return err
}

// RecordEvent inserts one parsed link event.
func (db *DB) RecordEvent(sessionID string, e edf.Event) error {
	_, err := db.Exec(
		`INSERT INTO events (
			session_id, event_type, start_ms, end_ms, dur_ms,
			x, y, pupil, start_x, start_y, end_x, end_y,
			amplitude_deg, peak_velocity
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, e.Type.String(), e.StartMS, e.EndMS, e.DurMS,
		e.X, e.Y, e.Pupil, e.StartX, e.StartY, e.EndX, e.EndY,
		e.AmplitudeDeg, e.PeakVelocity,
	)
	return err
}

// RecordMessage inserts one timestamped message.
func (db *DB) RecordMessage(sessionID string, timeMS int64, text string) error {
	_, err := db.Exec(
		"INSERT INTO messages (session_id, time_ms, message) VALUES (?, ?, ?)",
		sessionID, timeMS, text,
	)
	return err
}

// RecentSamples returns the newest samples for a session, newest first.
func (db *DB) RecentSamples(sessionID string, limit int) ([]edf.Sample, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := db.Query(
		`SELECT time_ms,
			left_x, left_y, left_pupil, left_valid,
			right_x, right_y, right_pupil, right_valid
		FROM samples WHERE session_id = ? ORDER BY time_ms DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []edf.Sample
	for rows.Next() {
		var s edf.Sample
		if err := rows.Scan(
			&s.TimeMS,
			&s.Left.X, &s.Left.Y, &s.Left.Pupil, &s.Left.Valid,
			&s.Right.X, &s.Right.Y, &s.Right.Pupil, &s.Right.Valid,
		); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// Summary aggregates what a session recorded.
type Summary struct {
	SampleCount  int64
	EventCount   int64
	MessageCount int64
	FirstMS      int64
	LastMS       int64
}

// SessionSummary returns counts and the sample time span for a session.
func (db *DB) SessionSummary(sessionID string) (Summary, error) {
	var sum Summary
	err := db.QueryRow(
		`SELECT COUNT(*), COALESCE(MIN(time_ms), 0), COALESCE(MAX(time_ms), 0)
		FROM samples WHERE session_id = ?`,
		sessionID,
	).Scan(&sum.SampleCount, &sum.FirstMS, &sum.LastMS)
	if err != nil {
		return Summary{}, err
	}
	if err := db.QueryRow(
		"SELECT COUNT(*) FROM events WHERE session_id = ?", sessionID,
	).Scan(&sum.EventCount); err != nil {
		return Summary{}, err
	}
	if err := db.QueryRow(
		"SELECT COUNT(*) FROM messages WHERE session_id = ?", sessionID,
	).Scan(&sum.MessageCount); err != nil {
		return Summary{}, err
	}
	return sum, nil
}
