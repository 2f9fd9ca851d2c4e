package scoring

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/form"
)

const (
	ErrMissingRequired   = "MISSING_REQUIRED"
	ErrInvalidOption     = "INVALID_OPTION"
	ErrNavigationLocked  = "NAVIGATION_LOCKED"
	ErrInvalidFormat     = "INVALID_FORMAT"
	ErrCharLimitExceeded = "CHAR_LIMIT_EXCEEDED"
)

// ValidationError is one field- or page-level problem with a submission.
type ValidationError struct {
	Code    string `json:"code"`
	FieldID string `json:"field_id,omitempty"`
	PageID  string `json:"page_id,omitempty"`
}

func (e ValidationError) Error() string {
	switch {
	case e.FieldID != "":
		return fmt.Sprintf("%s: field %s", e.Code, e.FieldID)
	case e.PageID != "":
		return fmt.Sprintf("%s: page %s", e.Code, e.PageID)
	}
	return e.Code
}

// ValidationErrors is the full set of problems, not just the first.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	parts := make([]string, len(e))
	for i, v := range e {
		parts[i] = v.Error()
	}
	return strings.Join(parts, "; ")
}

// SessionState is what the engine remembers about an in-progress attempt:
// the furthest page reached and the answers saved so far. Navigation locks
// are checked against it.
type SessionState struct {
	FurthestPage int
	Answers      map[string]AnswerValue
}

// ValidateSubmission checks a raw submission against the definition. Pure:
// no side effects, returns every violation found. prev may be nil for a
// first-time submission.
func ValidateSubmission(d *form.Definition, sub Submission, prev *SessionState) ValidationErrors {
	var errs ValidationErrors

	reached := sub.FurthestPage
	if prev != nil && prev.FurthestPage > reached {
		reached = prev.FurthestPage
	}
	if reached >= len(d.Pages) {
		reached = len(d.Pages) - 1
	}

	for pi, p := range d.Pages {
		if pi > reached {
			continue
		}
		locked := prev != nil && !p.AllowRevisiting && pi < prev.FurthestPage
		pageLockReported := false
		for _, f := range p.Fields {
			v, present := sub.Answers[f.ID]
			answered := present && v.Answered()

			if locked && !pageLockReported && answered && modifies(prev.Answers, f.ID, v) {
				errs = append(errs, ValidationError{Code: ErrNavigationLocked, PageID: p.ID})
				pageLockReported = true
			}

			if f.Type == form.FieldInfo {
				continue
			}
			if f.Required && !answered {
				errs = append(errs, ValidationError{Code: ErrMissingRequired, FieldID: f.ID})
				continue
			}
			if !answered {
				continue
			}
			errs = append(errs, validateValue(f, v)...)
		}
	}
	return errs
}

func modifies(prev map[string]AnswerValue, fieldID string, v AnswerValue) bool {
	old, ok := prev[fieldID]
	if !ok {
		return true
	}
	return old != v
}

func validateValue(f form.Field, v AnswerValue) ValidationErrors {
	var errs ValidationErrors
	switch f.Type {
	case form.FieldMCQ:
		if v.Kind != ValueOption {
			errs = append(errs, ValidationError{Code: ErrInvalidOption, FieldID: f.ID})
			break
		}
		if _, ok := f.Option(v.OptionID); !ok {
			errs = append(errs, ValidationError{Code: ErrInvalidOption, FieldID: f.ID})
		}
	case form.FieldEmail:
		if _, err := mail.ParseAddress(strings.TrimSpace(v.Text)); err != nil {
			errs = append(errs, ValidationError{Code: ErrInvalidFormat, FieldID: f.ID})
		}
	case form.FieldPhone:
		if !validPhone(v.Text) {
			errs = append(errs, ValidationError{Code: ErrInvalidFormat, FieldID: f.ID})
		}
	case form.FieldDate:
		if _, err := time.Parse("2006-01-02", strings.TrimSpace(v.Text)); err != nil {
			errs = append(errs, ValidationError{Code: ErrInvalidFormat, FieldID: f.ID})
		}
	case form.FieldShortText, form.FieldLongText:
		if f.CharLimit > 0 && len([]rune(v.Text)) > f.CharLimit {
			errs = append(errs, ValidationError{Code: ErrCharLimitExceeded, FieldID: f.ID})
		}
	}
	return errs
}

func validPhone(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	digits := 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return digits >= 6
}
