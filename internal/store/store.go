package store

import (
	"context"
	"errors"

	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/form"
	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/scoring"
)

// ErrNotFound is returned for unknown form or response ids.
var ErrNotFound = errors.New("not found")

// Store is the engine's opaque persistence collaborator: definition upserts
// keyed by id, response inserts keyed by id, lookups by form and by
// respondent. No joins or transactions; the response counter bump is an
// independent operation and may lag the insert.
type Store interface {
	PutForm(ctx context.Context, d *form.Definition) error
	GetForm(ctx context.Context, id string) (*form.Definition, error)

	InsertResponse(ctx context.Context, r scoring.ScoredResponse) error
	GetResponse(ctx context.Context, id string) (scoring.ScoredResponse, error)
	ListResponsesByForm(ctx context.Context, formID string) ([]scoring.ScoredResponse, error)
	ListResponsesByRespondent(ctx context.Context, respondentID string) ([]scoring.ScoredResponse, error)
	BumpResponseCount(ctx context.Context, formID string) error
}
