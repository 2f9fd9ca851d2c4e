package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/form"
	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/scoring"
)

// SQLStore persists forms and responses as JSON documents over database/sql,
// working against both sqlite and postgres.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) PutForm(ctx context.Context, d *form.Definition) error {
	dj, err := json.Marshal(d)
	if err != nil {
		return err
	}
	created := d.CreatedAt
	if created == 0 {
		created = time.Now().Unix()
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO forms (id,owner_id,status,definition_json,cost_per_response,response_count,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET owner_id=EXCLUDED.owner_id, status=EXCLUDED.status,
			definition_json=EXCLUDED.definition_json, cost_per_response=EXCLUDED.cost_per_response`,
		d.ID, d.OwnerID, string(d.Status), string(dj), d.CostPerResponse, d.ResponseCount, created)
	return err
}

func (s *SQLStore) GetForm(ctx context.Context, id string) (*form.Definition, error) {
	row := s.db.QueryRowContext(ctx, `SELECT definition_json, status, response_count FROM forms WHERE id=$1`, id)
	var dj, status string
	var count int64
	if err := row.Scan(&dj, &status, &count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var d form.Definition
	if err := json.Unmarshal([]byte(dj), &d); err != nil {
		return nil, err
	}
	// status and counter live in their own columns so they survive
	// concurrent updates to the document blob
	d.Status = form.Status(status)
	d.ResponseCount = count
	return &d, nil
}

func (s *SQLStore) InsertResponse(ctx context.Context, r scoring.ScoredResponse) error {
	aj, err := json.Marshal(r.Answers)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO responses (id,form_id,respondent_id,total_score,answers_json,submitted_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO NOTHING`,
		r.ID, r.FormID, r.RespondentID, r.TotalScore, string(aj), r.SubmittedAt)
	return err
}

func (s *SQLStore) GetResponse(ctx context.Context, id string) (scoring.ScoredResponse, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,form_id,respondent_id,total_score,answers_json,submitted_at FROM responses WHERE id=$1`, id)
	return scanResponse(row)
}

func (s *SQLStore) ListResponsesByForm(ctx context.Context, formID string) ([]scoring.ScoredResponse, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,form_id,respondent_id,total_score,answers_json,submitted_at
		FROM responses WHERE form_id=$1 ORDER BY submitted_at`, formID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectResponses(rows)
}

func (s *SQLStore) ListResponsesByRespondent(ctx context.Context, respondentID string) ([]scoring.ScoredResponse, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,form_id,respondent_id,total_score,answers_json,submitted_at
		FROM responses WHERE respondent_id=$1 ORDER BY submitted_at`, respondentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectResponses(rows)
}

func (s *SQLStore) BumpResponseCount(ctx context.Context, formID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE forms SET response_count=response_count+1 WHERE id=$1`, formID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanResponse(row rowScanner) (scoring.ScoredResponse, error) {
	var r scoring.ScoredResponse
	var aj string
	if err := row.Scan(&r.ID, &r.FormID, &r.RespondentID, &r.TotalScore, &aj, &r.SubmittedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return scoring.ScoredResponse{}, ErrNotFound
		}
		return scoring.ScoredResponse{}, err
	}
	if err := json.Unmarshal([]byte(aj), &r.Answers); err != nil {
		return scoring.ScoredResponse{}, err
	}
	return r, nil
}

func collectResponses(rows *sql.Rows) ([]scoring.ScoredResponse, error) {
	out := make([]scoring.ScoredResponse, 0, 16)
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
