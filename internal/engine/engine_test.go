package engine_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/aigrade"
	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/engine"
	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/form"
	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/policy"
	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/scoring"
	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/store"
)

// fakeEvaluator scripts the grading service, keyed by question title.
type fakeEvaluator struct {
	results map[string]aigrade.Evaluation
	fail    bool
}

func (f *fakeEvaluator) Evaluate(_ context.Context, req aigrade.Request) (aigrade.Evaluation, error) {
	if f.fail {
		return aigrade.Evaluation{}, errors.New("deadline exceeded")
	}
	return f.results[req.Question], nil
}

func quizDef() *form.Definition {
	return &form.Definition{
		ID:      "quiz",
		OwnerID: "owner",
		Status:  form.StatusLive,
		Settings: form.Settings{
			AccessMode:   form.AccessNone,
			ResultReveal: form.RevealInstant,
		},
		Pages: []form.Page{{ID: "p1", AllowRevisiting: true, Fields: []form.Field{
			{ID: "q1", Type: form.FieldMCQ, Title: "pick one", Required: true,
				Options: []form.Option{
					{ID: "a", Label: "A", IsCorrect: true, Points: 5},
					{ID: "b", Label: "B"},
				}},
			{ID: "q2", Type: form.FieldLongText, Title: "explain",
				AI: form.AISettings{Mode: form.AIModeEvaluate}},
		}}},
	}
}

func quizSubmission() scoring.Submission {
	return scoring.Submission{
		FormID:     "quiz",
		Respondent: scoring.Respondent{UserID: "u1", Email: "u1@x.com"},
		Answers: map[string]scoring.AnswerValue{
			"q1": {Kind: scoring.ValueOption, OptionID: "a"},
			"q2": {Kind: scoring.ValueText, Text: "because reasons"},
		},
	}
}

func newEngine(t *testing.T, d *form.Definition, ev aigrade.Evaluator) (*engine.Engine, store.Store) {
	t.Helper()
	st := store.NewInMemory()
	if d != nil {
		if err := st.PutForm(context.Background(), d); err != nil {
			t.Fatalf("seed form: %v", err)
		}
	}
	return engine.New(st, ev), st
}

func TestSubmitFullPipeline(t *testing.T) {
	ev := &fakeEvaluator{results: map[string]aigrade.Evaluation{
		"explain": {Marks: 3, Reason: "solid", Tag: "GOOD"},
	}}
	eng, st := newEngine(t, quizDef(), ev)

	resp, revealed, err := eng.Submit(context.Background(), quizSubmission())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.TotalScore != 8 {
		t.Fatalf("total = %v, want 8", resp.TotalScore)
	}
	if !revealed {
		t.Fatal("instant reveal: submit must report the score as visible")
	}
	if len(resp.Answers) != 2 {
		t.Fatalf("answers = %d, want 2", len(resp.Answers))
	}
	if resp.Answers[1].AIEvaluation == nil || resp.Answers[1].AIEvaluation.Marks != 3 {
		t.Fatalf("long text answer missing AI evaluation: %+v", resp.Answers[1])
	}

	stored, err := st.GetResponse(context.Background(), resp.ID)
	if err != nil {
		t.Fatalf("stored response: %v", err)
	}
	if stored.TotalScore != 8 {
		t.Fatalf("stored total = %v", stored.TotalScore)
	}
	d, _ := st.GetForm(context.Background(), "quiz")
	if d.ResponseCount != 1 {
		t.Fatalf("response count = %d, want 1", d.ResponseCount)
	}
}

func TestSubmitAbsorbsGradingOutage(t *testing.T) {
	eng, _ := newEngine(t, quizDef(), &fakeEvaluator{fail: true})

	resp, _, err := eng.Submit(context.Background(), quizSubmission())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.TotalScore != 5 {
		t.Fatalf("total = %v, want 5 (deterministic part only)", resp.TotalScore)
	}
	ai := resp.Answers[1].AIEvaluation
	if ai == nil || ai.Tag != aigrade.TagEngineError {
		t.Fatalf("want engine error sentinel on the long text answer, got %+v", ai)
	}
}

func TestSubmitValidationFailsBeforeScoring(t *testing.T) {
	called := false
	ev := evaluatorFunc(func(context.Context, aigrade.Request) (aigrade.Evaluation, error) {
		called = true
		return aigrade.Evaluation{}, nil
	})
	eng, _ := newEngine(t, quizDef(), ev)

	sub := quizSubmission()
	delete(sub.Answers, "q1")
	_, _, err := eng.Submit(context.Background(), sub)

	var verrs scoring.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("want ValidationErrors, got %v", err)
	}
	if called {
		t.Fatal("grading must not run when validation fails")
	}
}

type evaluatorFunc func(context.Context, aigrade.Request) (aigrade.Evaluation, error)

func (f evaluatorFunc) Evaluate(ctx context.Context, req aigrade.Request) (aigrade.Evaluation, error) {
	return f(ctx, req)
}

func TestSubmitAccessGate(t *testing.T) {
	d := quizDef()
	d.Settings.AccessMode = form.AccessWhitelist
	d.Settings.Whitelist = []string{"allowed@x.com"}
	eng, st := newEngine(t, d, &fakeEvaluator{})

	_, _, err := eng.Submit(context.Background(), quizSubmission())
	var ae *policy.AccessError
	if !errors.As(err, &ae) || ae.Code != policy.CodeAccessDenied {
		t.Fatalf("want ACCESS_DENIED, got %v", err)
	}
	got, _ := st.GetForm(context.Background(), "quiz")
	if got.ResponseCount != 0 {
		t.Fatal("rejected submission must not count")
	}
}

func TestSubmitCancelledContextDropsResponse(t *testing.T) {
	eng, st := newEngine(t, quizDef(), &fakeEvaluator{fail: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := eng.Submit(ctx, quizSubmission())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	responses, _ := st.ListResponsesByForm(context.Background(), "quiz")
	if len(responses) != 0 {
		t.Fatal("cancelled submission must not persist a response")
	}
}

func TestSubmitRevealFlag(t *testing.T) {
	d := quizDef()
	d.Settings.ResultReveal = form.RevealApproval
	eng, _ := newEngine(t, d, &fakeEvaluator{})

	_, revealed, err := eng.Submit(context.Background(), quizSubmission())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if revealed {
		t.Fatal("approval reveal without release must withhold the score on submit")
	}
}

func lockedQuizDef() *form.Definition {
	d := quizDef()
	d.Pages[0].AllowRevisiting = false
	d.Pages = append(d.Pages, form.Page{ID: "p2", AllowRevisiting: true, Fields: []form.Field{
		{ID: "q3", Type: form.FieldShortText, Title: "extra"},
	}})
	return d
}

func TestNavigationLockViaSavedProgress(t *testing.T) {
	eng, _ := newEngine(t, lockedQuizDef(), &fakeEvaluator{})

	sub := quizSubmission()
	sub.FurthestPage = 1
	if err := eng.SaveProgress(context.Background(), sub); err != nil {
		t.Fatalf("save progress: %v", err)
	}

	// changing a locked page's answer after moving past it is rejected
	final := quizSubmission()
	final.FurthestPage = 1
	final.Answers["q1"] = scoring.AnswerValue{Kind: scoring.ValueOption, OptionID: "b"}
	final.Answers["q3"] = scoring.AnswerValue{Kind: scoring.ValueText, Text: "done"}
	_, _, err := eng.Submit(context.Background(), final)
	var verrs scoring.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("want ValidationErrors, got %v", err)
	}

	// the unchanged answer passes and the session is consumed
	final.Answers["q1"] = scoring.AnswerValue{Kind: scoring.ValueOption, OptionID: "a"}
	resp, _, err := eng.Submit(context.Background(), final)
	if err != nil {
		t.Fatalf("submit unchanged: %v", err)
	}
	if resp.TotalScore != 5 {
		t.Fatalf("total = %v, want 5", resp.TotalScore)
	}
}

func TestAnonymousSessionsKeyedByToken(t *testing.T) {
	eng, _ := newEngine(t, lockedQuizDef(), &fakeEvaluator{})

	// first anonymous user saves progress past the locked page
	first := quizSubmission()
	first.Respondent = scoring.Respondent{}
	first.SessionToken = "tok-1"
	first.FurthestPage = 1
	if err := eng.SaveProgress(context.Background(), first); err != nil {
		t.Fatalf("save progress: %v", err)
	}

	// a second anonymous user with their own token is unaffected by the
	// first user's navigation state
	second := quizSubmission()
	second.Respondent = scoring.Respondent{}
	second.SessionToken = "tok-2"
	second.Answers["q1"] = scoring.AnswerValue{Kind: scoring.ValueOption, OptionID: "b"}
	if _, _, err := eng.Submit(context.Background(), second); err != nil {
		t.Fatalf("second anonymous submit: %v", err)
	}

	// the first user's own lock still holds
	locked := quizSubmission()
	locked.Respondent = scoring.Respondent{}
	locked.SessionToken = "tok-1"
	locked.FurthestPage = 1
	locked.Answers["q1"] = scoring.AnswerValue{Kind: scoring.ValueOption, OptionID: "b"}
	_, _, err := eng.Submit(context.Background(), locked)
	var verrs scoring.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("want ValidationErrors for tok-1, got %v", err)
	}
}

func TestConcurrentAutosaveAndSubmit(t *testing.T) {
	eng, _ := newEngine(t, quizDef(), &fakeEvaluator{})

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		progress := quizSubmission()
		progress.Answers = map[string]scoring.AnswerValue{
			"q2": {Kind: scoring.ValueText, Text: fmt.Sprintf("draft %d", i)},
		}
		final := quizSubmission()

		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = eng.SaveProgress(context.Background(), progress)
		}()
		go func() {
			defer wg.Done()
			_, _, _ = eng.Submit(context.Background(), final)
		}()
	}
	wg.Wait()
}

func TestApprovalRevealFlow(t *testing.T) {
	d := quizDef()
	d.Settings.ResultReveal = form.RevealApproval
	ev := &fakeEvaluator{results: map[string]aigrade.Evaluation{
		"explain": {Marks: 3, Reason: "solid", Tag: "GOOD"},
	}}
	eng, _ := newEngine(t, d, ev)

	resp, _, err := eng.Submit(context.Background(), quizSubmission())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err = eng.Result(context.Background(), resp.ID, "u1")
	var ae *policy.AccessError
	if !errors.As(err, &ae) || ae.Code != policy.CodeResultsNotReleased {
		t.Fatalf("want RESULTS_NOT_RELEASED before release, got %v", err)
	}

	// the owner is never gated
	view, err := eng.Result(context.Background(), resp.ID, "owner")
	if err != nil || view.TotalScore != 8 {
		t.Fatalf("owner view = %+v, %v", view, err)
	}

	if err := eng.ReleaseResults(context.Background(), "quiz", "owner"); err != nil {
		t.Fatalf("release: %v", err)
	}
	view, err = eng.Result(context.Background(), resp.ID, "u1")
	if err != nil {
		t.Fatalf("respondent view after release: %v", err)
	}
	// release changes visibility, never the score
	if view.TotalScore != 8 {
		t.Fatalf("score after release = %v, want 8", view.TotalScore)
	}
}

func TestResultStrangerDenied(t *testing.T) {
	eng, _ := newEngine(t, quizDef(), &fakeEvaluator{})
	resp, _, err := eng.Submit(context.Background(), quizSubmission())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	_, err = eng.Result(context.Background(), resp.ID, "someone-else")
	var ae *policy.AccessError
	if !errors.As(err, &ae) || ae.Code != policy.CodeAccessDenied {
		t.Fatalf("want ACCESS_DENIED for a stranger, got %v", err)
	}
}

func TestPublishGatesOnCost(t *testing.T) {
	d := quizDef()
	d.Status = form.StatusDraft
	// two AI-evaluated long text fields with tagging: cost 4
	d.Pages[0].Fields = append(d.Pages[0].Fields, form.Field{
		ID: "q3", Type: form.FieldLongText, Title: "more",
		AI: form.AISettings{Mode: form.AIModeEvaluate, Tagging: true},
	})
	st := store.NewInMemory()
	if err := st.PutForm(context.Background(), d); err != nil {
		t.Fatalf("seed form: %v", err)
	}
	eng := engine.New(st, &fakeEvaluator{}, engine.WithCostCeiling(2))

	err := eng.Publish(context.Background(), "quiz", "owner", form.TierFree)
	var perr *form.PublishError
	if !errors.As(err, &perr) {
		t.Fatalf("want PublishError, got %v", err)
	}
	got, _ := st.GetForm(context.Background(), "quiz")
	if got.Status != form.StatusDraft {
		t.Fatal("blocked publish must leave the form in draft")
	}

	if err := eng.Publish(context.Background(), "quiz", "owner", form.TierPro); err != nil {
		t.Fatalf("pro publish: %v", err)
	}
	got, _ = st.GetForm(context.Background(), "quiz")
	if got.Status != form.StatusLive {
		t.Fatalf("status = %s, want live", got.Status)
	}
	if got.CostPerResponse != 3 {
		t.Fatalf("cost per response = %d, want 3", got.CostPerResponse)
	}
}

func TestSaveFormRejectsEditsAfterPublish(t *testing.T) {
	d := quizDef()
	eng, _ := newEngine(t, d, &fakeEvaluator{})

	edit := quizDef()
	edit.Title = "renamed"
	if err := eng.SaveForm(context.Background(), edit, "owner"); err == nil {
		t.Fatal("editing a live form must be rejected")
	}
}

func TestSaveFormNewDraft(t *testing.T) {
	eng, st := newEngine(t, nil, &fakeEvaluator{})

	d := quizDef()
	d.Status = ""
	if err := eng.SaveForm(context.Background(), d, "owner"); err != nil {
		t.Fatalf("save new form: %v", err)
	}
	got, err := st.GetForm(context.Background(), "quiz")
	if err != nil {
		t.Fatalf("get saved form: %v", err)
	}
	if got.Status != form.StatusDraft {
		t.Fatalf("new form status = %s, want draft", got.Status)
	}
	if got.CostPerResponse != 1 {
		t.Fatalf("cost = %d, want 1 for one AI field", got.CostPerResponse)
	}
}

func TestAggregatesOverResponses(t *testing.T) {
	ev := &fakeEvaluator{results: map[string]aigrade.Evaluation{
		"explain": {Marks: 3, Reason: "solid", Tag: "GOOD"},
	}}
	eng, _ := newEngine(t, quizDef(), ev)

	first := quizSubmission()
	if _, _, err := eng.Submit(context.Background(), first); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second := quizSubmission()
	second.Respondent = scoring.Respondent{UserID: "u2", Email: "u2@x.com"}
	second.Answers["q1"] = scoring.AnswerValue{Kind: scoring.ValueOption, OptionID: "b"}
	if _, _, err := eng.Submit(context.Background(), second); err != nil {
		t.Fatalf("second submit: %v", err)
	}

	agg, err := eng.Aggregates(context.Background(), "quiz")
	if err != nil {
		t.Fatalf("aggregates: %v", err)
	}
	if agg.Count != 2 || agg.Max != 8 || agg.Average != 5.5 {
		t.Fatalf("aggregates = %+v, want count 2 avg 5.5 max 8", agg)
	}
}
