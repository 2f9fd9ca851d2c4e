package scoring

import (
	"time"

	"github.com/google/uuid"
)

// ScoredResponse is the persisted, fully-graded outcome of one submission.
// It is created exactly once and never mutated afterwards.
type ScoredResponse struct {
	ID           string   `json:"id"`
	FormID       string   `json:"form_id"`
	RespondentID string   `json:"respondent_id"`
	SubmittedAt  int64    `json:"submitted_at"`
	Answers      []Answer `json:"answers"`
	TotalScore   float64  `json:"total_score"`
}

// FormAggregates are derived statistics over a form's response set,
// recomputed on read.
type FormAggregates struct {
	Count   int64   `json:"count"`
	Average float64 `json:"average"`
	Max     float64 `json:"max"`
}

// Aggregate sums the per-answer contributions into a ScoredResponse.
// Idempotent over the answer set: the same answers always yield the same
// total.
func Aggregate(formID string, respondent Respondent, answers []Answer, at time.Time) ScoredResponse {
	total := 0.0
	for _, a := range answers {
		total += a.PointsEarned
	}
	return ScoredResponse{
		ID:           uuid.NewString(),
		FormID:       formID,
		RespondentID: respondent.ID(),
		SubmittedAt:  at.Unix(),
		Answers:      answers,
		TotalScore:   total,
	}
}

// RecomputeAggregates derives count/average/max from the full response set.
// An empty set yields zeros, never NaN.
func RecomputeAggregates(responses []ScoredResponse) FormAggregates {
	agg := FormAggregates{Count: int64(len(responses))}
	if agg.Count == 0 {
		return agg
	}
	sum := 0.0
	agg.Max = responses[0].TotalScore
	for _, r := range responses {
		sum += r.TotalScore
		if r.TotalScore > agg.Max {
			agg.Max = r.TotalScore
		}
	}
	agg.Average = sum / float64(agg.Count)
	return agg
}
