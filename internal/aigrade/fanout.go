package aigrade

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/form"
	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/scoring"
)

// GradeAll augments AI-eligible answers in place. Calls for distinct fields
// are independent and run concurrently, bounded by limit. It returns only
// once every dispatched call has settled, successfully or with the local
// error sentinel; aggregating before that point would be a correctness bug.
//
// Marks are additive to the deterministic contribution already on each
// answer; the AI stage never lowers a score.
func GradeAll(ctx context.Context, ev Evaluator, d *form.Definition, answers []scoring.Answer, limit int) {
	if limit <= 0 {
		limit = 4
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range answers {
		f, _, ok := d.FieldByID(answers[i].FieldID)
		if !ok {
			continue
		}
		req, eligible := buildRequest(f, answers[i].Value)
		if !eligible {
			continue
		}
		a := &answers[i]
		g.Go(func() error {
			res, err := ev.Evaluate(ctx, req)
			if err != nil {
				res = ErrorSentinel("evaluation failed")
			}
			rec := AIEvaluationOf(res)
			a.AIEvaluation = &rec
			a.PointsEarned += res.Marks
			return nil
		})
	}
	_ = g.Wait()
}

// buildRequest decides eligibility and shapes the grading call for a field.
func buildRequest(f form.Field, v scoring.AnswerValue) (Request, bool) {
	if f.AI.Mode != form.AIModeEvaluate {
		return Request{}, false
	}
	switch f.Type {
	case form.FieldShortText:
		return Request{Question: f.Title, Answer: v.Text, Rubric: f.AI.Prompt, Kind: KindShort}, true
	case form.FieldLongText:
		return Request{Question: f.Title, Answer: v.Text, Rubric: f.AI.Prompt, Kind: KindLong}, true
	case form.FieldMCQ:
		opt, ok := f.Option(v.OptionID)
		if !ok || !opt.IsOther {
			return Request{}, false
		}
		return Request{Question: f.Title, Answer: v.OtherText, Rubric: f.AI.Prompt, Kind: KindOther}, true
	}
	return Request{}, false
}

// AIEvaluationOf converts the wire evaluation to the scored-answer record.
func AIEvaluationOf(ev Evaluation) scoring.AIEvaluation {
	return scoring.AIEvaluation{Marks: ev.Marks, Reason: ev.Reason, Tag: ev.Tag}
}
