package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dcc/internal/copilot"
	"dcc/internal/db"
	"dcc/internal/stream"

	"github.com/google/uuid"
)

var ErrNoSession = errors.New("history: session not found")

const upsertSession = `
	INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(database *db.DB) *Store {
	return &Store{db: database.Conn(), now: time.Now}
}

func NewSessionID() string {
	return uuid.NewString()
}

type Session struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Turns     int
}

type TurnRecord struct {
	ID        int64
	SessionID string
	Query     string
	Answer    string
	Status    string
	CreatedAt time.Time
}

func (s *Store) EnsureSession(ctx context.Context, sessionID string) error {
	now := s.now().Unix()
	_, err := s.db.ExecContext(ctx, upsertSession, sessionID, now, now)
	return err
}

// SaveTurn stores one question, the answer assembled by tr and every event
// of the stream in arrival order.
func (s *Store) SaveTurn(ctx context.Context, sessionID, query string, tr *copilot.Transcript, events []stream.Event) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := s.now().Unix()
	if _, err := tx.ExecContext(ctx, upsertSession, sessionID, now, now); err != nil {
		return 0, fmt.Errorf("upsert session: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO turns (session_id, query, answer, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		sessionID, query, tr.Answer(), tr.Status(), now)
	if err != nil {
		return 0, fmt.Errorf("insert turn: %w", err)
	}
	turnID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO events (turn_id, seq, type, data) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	for i, ev := range events {
		var data sql.NullString
		if ev.Data != nil {
			data = sql.NullString{String: string(ev.Data), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, turnID, i, string(ev.Type), data); err != nil {
			return 0, fmt.Errorf("insert event %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	slog.Debug("history: turn saved", "session_id", sessionID, "turn_id", turnID, "events", len(events), "status", tr.Status())
	return turnID, nil
}

// LoadHistory returns up to limit of the latest turns as user/assistant
// messages, oldest first. Failed turns are left out; limit <= 0 means all.
func (s *Store) LoadHistory(ctx context.Context, sessionID string, limit int) ([]copilot.Turn, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT query, answer FROM (
			SELECT id, query, answer FROM turns
			WHERE session_id = ? AND status != ?
			ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`,
		sessionID, copilot.StatusFailed, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []copilot.Turn
	for rows.Next() {
		var query, answer string
		if err := rows.Scan(&query, &answer); err != nil {
			return nil, err
		}
		turns = append(turns, copilot.Turn{Role: copilot.RoleUser, Content: query})
		if answer != "" {
			turns = append(turns, copilot.Turn{Role: copilot.RoleAssistant, Content: answer})
		}
	}
	return turns, rows.Err()
}

func (s *Store) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.created_at, s.updated_at, COUNT(t.id)
		FROM sessions s LEFT JOIN turns t ON t.session_id = s.id
		GROUP BY s.id
		ORDER BY s.updated_at DESC, s.id
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var created, updated int64
		if err := rows.Scan(&sess.ID, &created, &updated, &sess.Turns); err != nil {
			return nil, err
		}
		sess.CreatedAt = time.Unix(created, 0)
		sess.UpdatedAt = time.Unix(updated, 0)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *Store) Turns(ctx context.Context, sessionID string) ([]TurnRecord, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, sessionID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, query, answer, status, created_at
		FROM turns WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []TurnRecord
	for rows.Next() {
		var t TurnRecord
		var created int64
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Query, &t.Answer, &t.Status, &created); err != nil {
			return nil, err
		}
		t.CreatedAt = time.Unix(created, 0)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// TurnEvents returns the recorded events of a turn in stream order.
func (s *Store) TurnEvents(ctx context.Context, turnID int64) ([]stream.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT type, data FROM events WHERE turn_id = ? ORDER BY seq`, turnID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []stream.Event
	for rows.Next() {
		var kind string
		var data sql.NullString
		if err := rows.Scan(&kind, &data); err != nil {
			return nil, err
		}
		ev := stream.Event{Type: stream.Kind(kind)}
		if data.Valid {
			ev.Data = []byte(data.String)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Recorder keeps every event it sees, for SaveTurn, and passes it on to Next.
type Recorder struct {
	Next   stream.Handler
	events []stream.Event
}

func (r *Recorder) HandleEvent(ev stream.Event) error {
	r.events = append(r.events, ev)
	if r.Next != nil {
		return r.Next.HandleEvent(ev)
	}
	return nil
}

func (r *Recorder) Events() []stream.Event {
	return r.events
}
