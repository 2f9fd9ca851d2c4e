package scoring_test

import (
	"testing"
	"time"

	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/scoring"
)

func TestAggregateSumsAndIsIdempotent(t *testing.T) {
	answers := []scoring.Answer{
		{FieldID: "q1", PointsEarned: 5},
		{FieldID: "q2", PointsEarned: 3},
		{FieldID: "q3", PointsEarned: 0},
	}
	at := time.Unix(1700000000, 0)
	r := scoring.Respondent{UserID: "u1"}

	first := scoring.Aggregate("f1", r, answers, at)
	second := scoring.Aggregate("f1", r, answers, at)

	if first.TotalScore != 8 {
		t.Fatalf("total = %v, want 8", first.TotalScore)
	}
	if first.TotalScore != second.TotalScore {
		t.Fatalf("aggregate not idempotent: %v vs %v", first.TotalScore, second.TotalScore)
	}
	if first.FormID != "f1" || first.RespondentID != "u1" || first.SubmittedAt != at.Unix() {
		t.Fatalf("metadata wrong: %+v", first)
	}
	if first.ID == "" || first.ID == second.ID {
		t.Fatal("each scored response needs its own id")
	}
}

func TestAnonymousRespondentID(t *testing.T) {
	r := scoring.Aggregate("f1", scoring.Respondent{}, nil, time.Unix(0, 0))
	if r.RespondentID != "anonymous" {
		t.Fatalf("respondent id = %q, want anonymous", r.RespondentID)
	}
}

func TestRecomputeAggregates(t *testing.T) {
	t.Run("empty set yields zeros", func(t *testing.T) {
		agg := scoring.RecomputeAggregates(nil)
		if agg.Count != 0 || agg.Average != 0 || agg.Max != 0 {
			t.Fatalf("want zeros, got %+v", agg)
		}
	})

	t.Run("count average max", func(t *testing.T) {
		agg := scoring.RecomputeAggregates([]scoring.ScoredResponse{
			{TotalScore: 4}, {TotalScore: 10}, {TotalScore: 1},
		})
		if agg.Count != 3 {
			t.Fatalf("count = %d, want 3", agg.Count)
		}
		if agg.Average != 5 {
			t.Fatalf("average = %v, want 5", agg.Average)
		}
		if agg.Max != 10 {
			t.Fatalf("max = %v, want 10", agg.Max)
		}
	})

	t.Run("all-negative totals keep a negative max", func(t *testing.T) {
		agg := scoring.RecomputeAggregates([]scoring.ScoredResponse{
			{TotalScore: -4}, {TotalScore: -1},
		})
		if agg.Max != -1 {
			t.Fatalf("max = %v, want -1", agg.Max)
		}
	})
}
