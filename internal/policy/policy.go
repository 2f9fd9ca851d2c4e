package policy

import (
	"fmt"
	"strings"
	"time"

	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/form"
)

// AccessError is a typed submission or visibility denial.
type AccessError struct {
	Code   string
	Reason string
}

func (e *AccessError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Reason) }

const (
	CodeAccessDenied       = "ACCESS_DENIED"
	CodeFormNotLive        = "FORM_NOT_LIVE"
	CodeResultsNotReleased = "RESULTS_NOT_RELEASED"
	CodeNotOwner           = "NOT_OWNER"
	CodeBadTransition      = "BAD_TRANSITION"
)

// CanSubmit decides whether a respondent may submit against the form.
// The status gate applies before the access filter: a paused or draft form
// rejects everyone, access-list membership notwithstanding.
func CanSubmit(d *form.Definition, respondentEmail string) error {
	if d.Status != form.StatusLive {
		return &AccessError{Code: CodeFormNotLive, Reason: "form is " + string(d.Status)}
	}
	email := normalizeEmail(respondentEmail)
	switch d.Settings.AccessMode {
	case form.AccessWhitelist:
		if !contains(d.Settings.Whitelist, email) {
			return &AccessError{Code: CodeAccessDenied, Reason: "not on the whitelist"}
		}
	case form.AccessBlacklist:
		if contains(d.Settings.Blacklist, email) {
			return &AccessError{Code: CodeAccessDenied, Reason: "blocked by the blacklist"}
		}
	}
	return nil
}

// CanViewScore decides whether the respondent may see their own score now.
func CanViewScore(d *form.Definition, now time.Time) error {
	switch d.Settings.ResultReveal {
	case form.RevealInstant:
		return nil
	case form.RevealScheduled:
		if now.Unix() >= d.Settings.RevealAt {
			return nil
		}
		return &AccessError{Code: CodeResultsNotReleased, Reason: "results open later"}
	case form.RevealApproval:
		if d.ResultsReleased {
			return nil
		}
		return &AccessError{Code: CodeResultsNotReleased, Reason: "awaiting owner release"}
	}
	return nil
}

// transitions is the status machine: draft -> live -> paused <-> live,
// any state -> expired (terminal).
var transitions = map[form.Status][]form.Status{
	form.StatusDraft:   {form.StatusLive, form.StatusExpired},
	form.StatusLive:    {form.StatusPaused, form.StatusExpired},
	form.StatusPaused:  {form.StatusLive, form.StatusExpired},
	form.StatusExpired: {},
}

// Transition applies a status change. Only the owner may take a form out of
// draft; the same restriction is kept for every transition since all of
// them are owner actions in this engine.
func Transition(d *form.Definition, to form.Status, actorID string) error {
	if actorID != d.OwnerID {
		return &AccessError{Code: CodeNotOwner, Reason: "only the owner may change form status"}
	}
	for _, allowed := range transitions[d.Status] {
		if allowed == to {
			d.Status = to
			return nil
		}
	}
	return &AccessError{
		Code:   CodeBadTransition,
		Reason: fmt.Sprintf("cannot move from %s to %s", d.Status, to),
	}
}

// ReleaseResults flips the approval-gate flag. Irreversible: releasing an
// already-released form is a no-op, un-releasing is not supported.
func ReleaseResults(d *form.Definition, actorID string) error {
	if actorID != d.OwnerID {
		return &AccessError{Code: CodeNotOwner, Reason: "only the owner may release results"}
	}
	d.ResultsReleased = true
	return nil
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func contains(list []string, email string) bool {
	for _, e := range list {
		if normalizeEmail(e) == email {
			return true
		}
	}
	return false
}
