package form

import "fmt"

// Per-feature AI cost weights, in credit units per response.
const (
	costAutoEval    = 1 // auto evaluation against question context
	costRubricEval  = 2 // evaluation against a custom grading prompt
	costTagging     = 1 // long-text metadata tagging
	costOtherOption = 1 // AI evaluation of an MCQ "other" answer
)

// Tier is the owner's subscription tier, decided upstream.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// CostPerResponse derives the deterministic AI credit estimate for one
// submission. It is a pure function of the definition and is recomputed
// whenever the definition changes.
func CostPerResponse(d *Definition) int {
	cost := 0
	for _, f := range d.Fields() {
		switch f.Type {
		case FieldShortText, FieldLongText:
			if f.AI.Mode == AIModeEvaluate {
				if f.AI.Prompt != "" {
					cost += costRubricEval
				} else {
					cost += costAutoEval
				}
			}
			if f.Type == FieldLongText && f.AI.Tagging {
				cost += costTagging
			}
		case FieldMCQ:
			if f.AI.Mode != AIModeEvaluate {
				continue
			}
			for _, o := range f.Options {
				if o.IsOther {
					cost += costOtherOption
					break
				}
			}
		}
	}
	return cost
}

// PublishError blocks a state transition, never a submission.
type PublishError struct {
	FormID  string
	Cost    int
	Ceiling int
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("form %s costs %d AI credits per response, free tier allows %d", e.FormID, e.Cost, e.Ceiling)
}

// CheckPublish gates publication on the owner's tier. Free-tier forms whose
// per-response cost exceeds the ceiling are rejected with a clear reason
// rather than silently truncated.
func CheckPublish(d *Definition, tier Tier, ceiling int) error {
	if tier != TierFree {
		return nil
	}
	cost := CostPerResponse(d)
	if cost > ceiling {
		return &PublishError{FormID: d.ID, Cost: cost, Ceiling: ceiling}
	}
	return nil
}
