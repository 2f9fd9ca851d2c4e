package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/aigrade"
	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/eventlog"
	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/form"
	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/policy"
	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/scoring"
	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/store"
)

// Engine converts raw submissions into scored responses: policy gate,
// validation, deterministic scoring, AI fan-out/join, aggregation,
// persistence. It holds no ambient form state; every operation takes its
// inputs explicitly.
type Engine struct {
	store     store.Store
	evaluator aigrade.Evaluator
	scorer    *scoring.Scorer
	events    eventlog.Appender

	aiLimit     int
	costCeiling int
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*scoring.SessionState
}

type Option func(*Engine)

func WithAILimit(n int) Option { return func(e *Engine) { e.aiLimit = n } }

func WithCostCeiling(n int) Option { return func(e *Engine) { e.costCeiling = n } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }
func WithEventLog(a eventlog.Appender) Option {
	return func(e *Engine) { e.events = a }
}

func New(st store.Store, ev aigrade.Evaluator, opts ...Option) *Engine {
	e := &Engine{
		store:       st,
		evaluator:   ev,
		scorer:      scoring.NewScorer(),
		events:      eventlog.Nop{},
		aiLimit:     4,
		costCeiling: 15,
		now:         time.Now,
		sessions:    map[string]*scoring.SessionState{},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// sessionKey derives the session identity for a submission. Identified
// respondents are keyed by their stable id; anonymous respondents by their
// client-chosen token, so distinct anonymous users never share a session.
func sessionKey(sub scoring.Submission) (string, bool) {
	if sub.Respondent.Anonymous() {
		if sub.SessionToken == "" {
			return "", false
		}
		return sub.FormID + "|anon:" + sub.SessionToken, true
	}
	return sub.FormID + "|" + sub.Respondent.ID(), true
}

// SaveProgress records the in-progress answers and furthest page for a
// session, so later submissions can be checked against navigation locks.
// The furthest page index only ever moves forward.
func (e *Engine) SaveProgress(ctx context.Context, sub scoring.Submission) error {
	d, err := e.store.GetForm(ctx, sub.FormID)
	if err != nil {
		return err
	}
	if err := policy.CanSubmit(d, sub.Respondent.Email); err != nil {
		return err
	}

	key, ok := sessionKey(sub)
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[key]
	if !ok {
		s = &scoring.SessionState{Answers: map[string]scoring.AnswerValue{}}
		e.sessions[key] = s
	}
	if sub.FurthestPage > s.FurthestPage {
		s.FurthestPage = sub.FurthestPage
	}
	for id, v := range sub.Answers {
		s.Answers[id] = v
	}
	return nil
}

// Submit runs the full pipeline for one attempt. Access and validation
// failures surface before any scoring work begins; a per-field AI failure
// is absorbed into the sentinel and never aborts the batch. The scored
// response is materialized only after every AI call has settled.
// The returned flag reports whether the reveal policy already shows the
// score, so a submit acknowledgement can carry it for instant-reveal forms.
func (e *Engine) Submit(ctx context.Context, sub scoring.Submission) (scoring.ScoredResponse, bool, error) {
	d, err := e.store.GetForm(ctx, sub.FormID)
	if err != nil {
		return scoring.ScoredResponse{}, false, err
	}
	if err := policy.CanSubmit(d, sub.Respondent.Email); err != nil {
		return scoring.ScoredResponse{}, false, err
	}

	var prev *scoring.SessionState
	key, tracked := sessionKey(sub)
	if tracked {
		prev = e.session(key)
	}
	if verrs := scoring.ValidateSubmission(d, sub, prev); len(verrs) > 0 {
		return scoring.ScoredResponse{}, false, verrs
	}

	answers := e.scorer.ScoreSubmission(d, sub)
	aigrade.GradeAll(ctx, e.evaluator, d, answers, e.aiLimit)

	// An abandoned submission must not leave a partial scored response
	// behind; the settled AI results are simply discarded.
	if err := ctx.Err(); err != nil {
		return scoring.ScoredResponse{}, false, err
	}

	resp := scoring.Aggregate(d.ID, sub.Respondent, answers, e.now())
	if err := e.store.InsertResponse(ctx, resp); err != nil {
		return scoring.ScoredResponse{}, false, err
	}
	// Counter bump is an independent operation; eventual consistency is
	// acceptable, so a failure here only logs.
	if err := e.store.BumpResponseCount(ctx, d.ID); err != nil {
		log.Printf("bump response count for %s: %v", d.ID, err)
	}
	e.appendEvent(ctx, eventlog.TypeResponseScored, resp.ID, map[string]any{
		"form_id": d.ID, "respondent_id": resp.RespondentID, "total_score": resp.TotalScore,
	})
	if tracked {
		e.dropSession(key)
	}
	return resp, policy.CanViewScore(d, e.now()) == nil, nil
}

// ResultView is what a caller is allowed to observe about a response.
type ResultView struct {
	ResponseID  string           `json:"response_id"`
	FormID      string           `json:"form_id"`
	SubmittedAt int64            `json:"submitted_at"`
	Revealed    bool             `json:"revealed"`
	TotalScore  float64          `json:"total_score,omitempty"`
	Answers     []scoring.Answer `json:"answers,omitempty"`
}

// Result returns the respondent-facing view of a scored response, applying
// the form's reveal policy. The owner always sees the score.
func (e *Engine) Result(ctx context.Context, responseID, viewerID string) (ResultView, error) {
	resp, err := e.store.GetResponse(ctx, responseID)
	if err != nil {
		return ResultView{}, err
	}
	d, err := e.store.GetForm(ctx, resp.FormID)
	if err != nil {
		return ResultView{}, err
	}

	view := ResultView{ResponseID: resp.ID, FormID: resp.FormID, SubmittedAt: resp.SubmittedAt}
	if viewerID != d.OwnerID {
		if resp.RespondentID != viewerID {
			return ResultView{}, &policy.AccessError{Code: policy.CodeAccessDenied, Reason: "not your response"}
		}
		if err := policy.CanViewScore(d, e.now()); err != nil {
			return ResultView{}, err
		}
	}
	view.Revealed = true
	view.TotalScore = resp.TotalScore
	view.Answers = resp.Answers
	return view, nil
}

// SaveForm upserts a definition, recomputing its derived cost. Shape edits
// are an authoring concern, so the form must still be in draft.
func (e *Engine) SaveForm(ctx context.Context, d *form.Definition, actorID string) error {
	existing, err := e.store.GetForm(ctx, d.ID)
	if err == nil {
		if existing.OwnerID != actorID {
			return &policy.AccessError{Code: policy.CodeNotOwner, Reason: "only the owner may edit a form"}
		}
		if existing.Status != form.StatusDraft {
			return fmt.Errorf("form %s is %s; definitions are immutable after publish", d.ID, existing.Status)
		}
		d.Status = existing.Status
		d.ResponseCount = existing.ResponseCount
	} else if errors.Is(err, store.ErrNotFound) {
		d.OwnerID = actorID
		d.Status = form.StatusDraft
		d.CreatedAt = e.now().Unix()
	} else {
		return err
	}

	if derrs := form.ValidateDefinition(d); len(derrs) > 0 {
		return derrs
	}
	d.CostPerResponse = form.CostPerResponse(d)
	return e.store.PutForm(ctx, d)
}

// Publish validates the definition, gates on AI cost for the owner's tier
// and moves the form to live.
func (e *Engine) Publish(ctx context.Context, formID, actorID string, tier form.Tier) error {
	d, err := e.store.GetForm(ctx, formID)
	if err != nil {
		return err
	}
	if derrs := form.ValidateDefinition(d); len(derrs) > 0 {
		return derrs
	}
	d.CostPerResponse = form.CostPerResponse(d)
	if err := form.CheckPublish(d, tier, e.costCeiling); err != nil {
		return err
	}
	if err := policy.Transition(d, form.StatusLive, actorID); err != nil {
		return err
	}
	if err := e.store.PutForm(ctx, d); err != nil {
		return err
	}
	e.appendEvent(ctx, eventlog.TypeFormPublished, d.ID, map[string]any{
		"cost_per_response": d.CostPerResponse,
	})
	return nil
}

// SetStatus applies pause/resume/expire transitions.
func (e *Engine) SetStatus(ctx context.Context, formID, actorID string, to form.Status) error {
	d, err := e.store.GetForm(ctx, formID)
	if err != nil {
		return err
	}
	if err := policy.Transition(d, to, actorID); err != nil {
		return err
	}
	if err := e.store.PutForm(ctx, d); err != nil {
		return err
	}
	e.appendEvent(ctx, eventlog.TypeStatusChanged, d.ID, map[string]any{"status": string(to)})
	return nil
}

// ReleaseResults opens approval-gated scores to respondents.
func (e *Engine) ReleaseResults(ctx context.Context, formID, actorID string) error {
	d, err := e.store.GetForm(ctx, formID)
	if err != nil {
		return err
	}
	if err := policy.ReleaseResults(d, actorID); err != nil {
		return err
	}
	if err := e.store.PutForm(ctx, d); err != nil {
		return err
	}
	e.appendEvent(ctx, eventlog.TypeResultsReleased, d.ID, nil)
	return nil
}

// Aggregates recomputes form statistics from the full response set.
func (e *Engine) Aggregates(ctx context.Context, formID string) (scoring.FormAggregates, error) {
	responses, err := e.store.ListResponsesByForm(ctx, formID)
	if err != nil {
		return scoring.FormAggregates{}, err
	}
	return scoring.RecomputeAggregates(responses), nil
}

// session returns a snapshot of the saved state. A copy, not the live
// pointer: SaveProgress mutates the map under e.mu and validation reads the
// snapshot outside it.
func (e *Engine) session(key string) *scoring.SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[key]
	if !ok {
		return nil
	}
	cp := &scoring.SessionState{
		FurthestPage: s.FurthestPage,
		Answers:      make(map[string]scoring.AnswerValue, len(s.Answers)),
	}
	for id, v := range s.Answers {
		cp.Answers[id] = v
	}
	return cp
}

func (e *Engine) dropSession(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.sessions, key)
}

func (e *Engine) appendEvent(ctx context.Context, typ, key string, data map[string]any) {
	buf, _ := json.Marshal(data)
	if err := e.events.Append(ctx, eventlog.Event{Type: typ, Key: key, DataJSON: string(buf)}); err != nil {
		log.Printf("event log append %s %s: %v", typ, key, err)
	}
}
