package scoring

import "github.com/dhashwinkennedy-cmd/zeink-forms/internal/form"

// Strategy scores one answered field deterministically.
type Strategy interface {
	Score(f form.Field, v AnswerValue) float64
}

// Scorer routes by field type to the correct Strategy. Fields without a
// strategy (info blocks) are excluded from scoring entirely.
type Scorer struct {
	strategies map[form.FieldType]Strategy
}

// NewScorer installs the built-in strategies.
func NewScorer() *Scorer {
	text := textStrategy{}
	return &Scorer{
		strategies: map[form.FieldType]Strategy{
			form.FieldMCQ:       mcqStrategy{},
			form.FieldShortText: text,
			form.FieldLongText:  text,
			form.FieldEmail:     collectStrategy{},
			form.FieldPhone:     collectStrategy{},
			form.FieldDate:      collectStrategy{},
		},
	}
}

// ScoreSubmission produces one Answer per answered field, in definition
// order, with the deterministic contribution populated. AI-eligible fields
// carry their base contribution pending augmentation.
func (s *Scorer) ScoreSubmission(d *form.Definition, sub Submission) []Answer {
	out := make([]Answer, 0, len(sub.Answers))
	for _, f := range d.Fields() {
		v, ok := sub.Answers[f.ID]
		if !ok || !v.Answered() {
			continue
		}
		strat, ok := s.strategies[f.Type]
		if !ok {
			continue
		}
		out = append(out, Answer{
			FieldID:      f.ID,
			Value:        v,
			PointsEarned: strat.Score(f, v),
		})
	}
	return out
}

type mcqStrategy struct{}

func (mcqStrategy) Score(f form.Field, v AnswerValue) float64 {
	opt, ok := f.Option(v.OptionID)
	if !ok {
		return 0
	}
	if opt.IsCorrect {
		return opt.Points
	}
	// "Other" selections hold their own points (usually 0) and are settled
	// by the AI stage, so negative marking does not apply to them.
	if opt.IsOther {
		return opt.Points
	}
	pts := opt.Points
	if f.NegativeMarking.Enabled {
		pts -= f.NegativeMarking.Value
		if pts < 0 && !f.NegativeMarking.AllowNegativeTotal {
			pts = 0
		}
	}
	return pts
}

type textStrategy struct{}

func (textStrategy) Score(f form.Field, v AnswerValue) float64 {
	// Exact-match grading only applies when AI grading is off; an AI field
	// with no deterministic rule is not an error, its base contribution is
	// the field's configured points pending augmentation.
	if f.AI.Mode == form.AIModeEvaluate {
		return f.Points
	}
	if len(f.CorrectAnswers) == 0 {
		return 0
	}
	got := normalize(v.Text)
	for _, accepted := range f.CorrectAnswers {
		if normalize(accepted) == got {
			return f.Points
		}
	}
	return 0
}

// collectStrategy covers pure data-collection fields (email, phone, date).
type collectStrategy struct{}

func (collectStrategy) Score(form.Field, AnswerValue) float64 { return 0 }
