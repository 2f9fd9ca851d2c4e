package form

import (
	"fmt"
	"math"
	"strings"
)

// DefinitionError is one reportable problem in an owner-authored schema.
type DefinitionError struct {
	Code    string `json:"code"`
	PageID  string `json:"page_id,omitempty"`
	FieldID string `json:"field_id,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

func (e DefinitionError) Error() string {
	if e.FieldID != "" {
		return fmt.Sprintf("%s (field %s): %s", e.Code, e.FieldID, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// DefinitionErrors aggregates every problem found, not just the first.
type DefinitionErrors []DefinitionError

func (e DefinitionErrors) Error() string {
	parts := make([]string, len(e))
	for i, d := range e {
		parts[i] = d.Error()
	}
	return strings.Join(parts, "; ")
}

const (
	ErrNoPages             = "NO_PAGES"
	ErrDuplicateID         = "DUPLICATE_ID"
	ErrNoOptions           = "NO_OPTIONS"
	ErrOptionPointsMism    = "OPTION_POINTS_MISMATCH"
	ErrRevealDateMissing   = "REVEAL_DATE_MISSING"
	ErrPromptWithoutAIMode = "PROMPT_WITHOUT_AI_MODE"
)

// ValidateDefinition checks the structural invariants of a definition.
// A nil return means the schema is sound.
func ValidateDefinition(d *Definition) DefinitionErrors {
	var errs DefinitionErrors

	if len(d.Pages) == 0 {
		errs = append(errs, DefinitionError{Code: ErrNoPages, Detail: "a form needs at least one page"})
	}
	if d.Settings.ResultReveal == RevealScheduled && d.Settings.RevealAt == 0 {
		errs = append(errs, DefinitionError{Code: ErrRevealDateMissing, Detail: "scheduled reveal needs a reveal timestamp"})
	}

	seen := map[string]bool{}
	for _, p := range d.Pages {
		if seen[p.ID] {
			errs = append(errs, DefinitionError{Code: ErrDuplicateID, PageID: p.ID, Detail: "page id reused"})
		}
		seen[p.ID] = true
		for _, f := range p.Fields {
			if seen[f.ID] {
				errs = append(errs, DefinitionError{Code: ErrDuplicateID, PageID: p.ID, FieldID: f.ID, Detail: "field id reused"})
			}
			seen[f.ID] = true
			errs = append(errs, validateField(p.ID, f)...)
		}
	}
	return errs
}

func validateField(pageID string, f Field) DefinitionErrors {
	var errs DefinitionErrors

	if f.Type == FieldMCQ {
		if len(f.Options) == 0 {
			errs = append(errs, DefinitionError{Code: ErrNoOptions, PageID: pageID, FieldID: f.ID, Detail: "mcq field has no options"})
		}
		optSeen := map[string]bool{}
		correctSum := 0.0
		for _, o := range f.Options {
			if optSeen[o.ID] {
				errs = append(errs, DefinitionError{Code: ErrDuplicateID, PageID: pageID, FieldID: f.ID, Detail: "option id reused: " + o.ID})
			}
			optSeen[o.ID] = true
			if o.IsCorrect {
				correctSum += o.Points
			}
		}
		if f.TotalPoints != 0 && math.Abs(correctSum-f.TotalPoints) > 1e-9 {
			errs = append(errs, DefinitionError{
				Code: ErrOptionPointsMism, PageID: pageID, FieldID: f.ID,
				Detail: fmt.Sprintf("correct options sum to %g, field declares %g", correctSum, f.TotalPoints),
			})
		}
	}

	if f.AI.Prompt != "" && f.AI.Mode != AIModeEvaluate {
		errs = append(errs, DefinitionError{Code: ErrPromptWithoutAIMode, PageID: pageID, FieldID: f.ID, Detail: "grading prompt set but ai mode is not evaluate"})
	}
	return errs
}
