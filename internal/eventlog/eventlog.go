package eventlog

import (
	"context"
	"database/sql"
	"time"
)

// Event types appended by the engine.
const (
	TypeResponseScored  = "response.scored"
	TypeFormPublished   = "form.published"
	TypeResultsReleased = "results.released"
	TypeStatusChanged   = "form.status_changed"
)

type Event struct {
	Offset    int64
	Type      string
	Key       string // natural key: response or form id
	DataJSON  string
	CreatedAt int64
}

// Appender is what the engine needs from the audit log.
type Appender interface {
	Append(ctx context.Context, e Event) error
}

type Repo struct{ db *sql.DB }

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4)`,
		e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}

// Nop discards events; used when no audit database is wired.
type Nop struct{}

func (Nop) Append(context.Context, Event) error { return nil }
