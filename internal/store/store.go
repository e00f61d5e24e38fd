// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/neurlyn/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for assessment sessions.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY
	// between the controller and the sweeper.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			tier TEXT NOT NULL,
			status TEXT NOT NULL,
			budget INTEGER NOT NULL,
			answered INTEGER NOT NULL,
			state TEXT NOT NULL,
			started_at TEXT NOT NULL,
			last_activity_at TEXT NOT NULL,
			completed_at TEXT,
			delete_after TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS responses (
			session_id TEXT NOT NULL,
			question_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			payload TEXT NOT NULL,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (session_id, question_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_last_activity ON sessions(status, last_activity_at);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_delete_after ON sessions(delete_after);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// sessionState is the part of a session stored as a JSON blob. Responses
// live in their own table.
type sessionState struct {
	Concerns      []string                `json:"concerns,omitempty"`
	Demographics  map[string]string       `json:"demographics,omitempty"`
	Activated     []model.PathwayID       `json:"activated,omitempty"`
	PathwayCounts map[model.PathwayID]int `json:"pathwayCounts,omitempty"`
	Seed          int64                   `json:"seed"`
	Cursors       model.Cursors           `json:"cursors"`
	CurrentBatch  []string                `json:"currentBatch,omitempty"`
	Result        *model.Result           `json:"result,omitempty"`
}

func stateOf(sess *model.Session) sessionState {
	return sessionState{
		Concerns:      sess.Concerns,
		Demographics:  sess.Demographics,
		Activated:     sess.Activated,
		PathwayCounts: sess.PathwayCounts,
		Seed:          sess.Seed,
		Cursors:       sess.Cursors,
		CurrentBatch:  sess.CurrentBatch,
		Result:        sess.Result,
	}
}

// Create inserts a new session with any responses it already holds.
func (s *Store) Create(ctx context.Context, sess *model.Session) error {
	return s.write(ctx, sess, true, nil)
}

// Update stores the session state and appends responses not yet persisted.
// Recorded responses are never rewritten.
func (s *Store) Update(ctx context.Context, sess *model.Session) error {
	return s.write(ctx, sess, false, nil)
}

// MarkComplete stores the final state of a completed session together with
// its deletion deadline in one transaction.
func (s *Store) MarkComplete(ctx context.Context, sess *model.Session, deleteAfter time.Time) error {
	return s.write(ctx, sess, false, &deleteAfter)
}

func (s *Store) write(ctx context.Context, sess *model.Session, create bool, deleteAfter *time.Time) (err error) {
	state, err := json.Marshal(stateOf(sess))
	if err != nil {
		return fmt.Errorf("failed to encode session state: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	args := []any{
		string(sess.Tier),
		string(sess.Status),
		sess.Budget,
		len(sess.Responses),
		string(state),
		formatTime(sess.StartedAt),
		formatTime(sess.LastActivityAt),
		formatOptionalTime(sess.CompletedAt),
		sess.ID,
	}
	if create {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO sessions (tier, status, budget, answered, state, started_at, last_activity_at, completed_at, id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
		if err != nil {
			return err
		}
	} else {
		query := `UPDATE sessions SET tier = ?, status = ?, budget = ?, answered = ?, state = ?,
				started_at = ?, last_activity_at = ?, completed_at = ?`
		if deleteAfter != nil {
			query += `, delete_after = ?`
			args = append(args[:len(args)-1], formatTime(*deleteAfter), sess.ID)
		}
		res, err := tx.ExecContext(ctx, query+` WHERE id = ?`, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("session %s: %w", sess.ID, model.ErrRecordNotFound)
		}
	}

	if len(sess.Responses) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR IGNORE INTO responses (session_id, question_id, position, payload, recorded_at)
			 VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for i, r := range sess.Responses {
			payload, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("failed to encode response %s: %w", r.QuestionID, err)
			}
			if _, err := stmt.ExecContext(ctx, sess.ID, r.QuestionID, i, string(payload), formatTime(r.RecordedAt)); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// Get loads a session with its responses in recording order. A missing
// session yields nil, nil.
func (s *Store) Get(ctx context.Context, id string) (*model.Session, error) {
	var (
		sess                  model.Session
		tier, status, state   string
		startedAt, lastActive string
		completedAt           sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tier, status, budget, state, started_at, last_activity_at, completed_at
		 FROM sessions WHERE id = ?`, id).
		Scan(&sess.ID, &tier, &status, &sess.Budget, &state, &startedAt, &lastActive, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sess.Tier = model.Tier(tier)
	sess.Status = model.SessionStatus(status)

	var st sessionState
	if err := json.Unmarshal([]byte(state), &st); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w: %w", id, model.ErrCorruptRecord, err)
	}
	sess.Concerns = st.Concerns
	sess.Demographics = st.Demographics
	sess.Activated = st.Activated
	sess.PathwayCounts = st.PathwayCounts
	if sess.PathwayCounts == nil {
		sess.PathwayCounts = map[model.PathwayID]int{}
	}
	sess.Seed = st.Seed
	sess.Cursors = st.Cursors
	sess.CurrentBatch = st.CurrentBatch
	sess.Result = st.Result

	if sess.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if sess.LastActivityAt, err = parseTime(lastActive); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return nil, err
		}
		sess.CompletedAt = &t
	}

	sess.Responses, err = s.responses(ctx, id)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Store) responses(ctx context.Context, id string) ([]model.Response, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM responses WHERE session_id = ? ORDER BY position ASC`, id)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.Response
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var r model.Response
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("failed to decode response of session %s: %w: %w", id, model.ErrCorruptRecord, err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// PurgeExpired deletes completed sessions past their retention and active
// sessions idle longer than ttl. It returns the number of sessions removed.
func (s *Store) PurgeExpired(ctx context.Context, now time.Time, ttl time.Duration) (n int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	expired := `SELECT id FROM sessions
		WHERE (delete_after IS NOT NULL AND delete_after <= ?)
		   OR (status = ? AND last_activity_at <= ?)`
	args := []any{formatTime(now), string(model.StatusActive), formatTime(now.Add(-ttl))}

	if _, err := tx.ExecContext(ctx, `DELETE FROM responses WHERE session_id IN (`+expired+`)`, args...); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id IN (`+expired+`)`, args...)
	if err != nil {
		return 0, err
	}
	if n, err = res.RowsAffected(); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// ListSessions returns session aggregates ordered by start time.
func (s *Store) ListSessions(ctx context.Context, filter model.ListFilter) ([]model.SessionAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Since != nil {
		clauses = append(clauses, "started_at >= ?")
		args = append(args, formatTime(*filter.Since))
	}
	query := fmt.Sprintf(`SELECT id, tier, status, answered, started_at, last_activity_at
		FROM sessions
		WHERE %s
		ORDER BY started_at ASC`, strings.Join(clauses, " AND "))
	if filter.Last > 0 {
		query = fmt.Sprintf(`SELECT * FROM (%s DESC LIMIT %d) ORDER BY started_at ASC`,
			strings.TrimSuffix(query, " ASC"), filter.Last)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.SessionAggregate
	for rows.Next() {
		var agg model.SessionAggregate
		var tier, status, startedAt, lastActive string
		if err := rows.Scan(&agg.SessionID, &tier, &status, &agg.Answered, &startedAt, &lastActive); err != nil {
			return nil, err
		}
		agg.Tier = model.Tier(tier)
		agg.Status = model.SessionStatus(status)
		if agg.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if agg.LastActivityAt, err = parseTime(lastActive); err != nil {
			return nil, err
		}
		sessions = append(sessions, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// timeLayout sorts lexically, so range queries work on the TEXT columns.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatOptionalTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, model.ErrCorruptRecord)
	}
	return t, nil
}
