package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/auth"
	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/engine"
	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/form"
	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/scoring"
)

// Mount attaches the engine's routes to a router that already carries the
// auth middleware.
func Mount(r chi.Router, eng *engine.Engine) {
	r.Group(func(or chi.Router) {
		or.Use(auth.RequireOwner)
		or.Post("/forms", SaveFormHandler(eng))
		or.Post("/forms/{formID}/publish", PublishHandler(eng))
		or.Post("/forms/{formID}/pause", StatusHandler(eng, form.StatusPaused))
		or.Post("/forms/{formID}/resume", StatusHandler(eng, form.StatusLive))
		or.Post("/forms/{formID}/expire", StatusHandler(eng, form.StatusExpired))
		or.Post("/forms/{formID}/release", ReleaseHandler(eng))
		or.Get("/forms/{formID}/aggregates", AggregatesHandler(eng))
	})

	r.Post("/forms/{formID}/progress", ProgressHandler(eng))
	r.Post("/forms/{formID}/submissions", SubmitHandler(eng))
	r.Get("/responses/{responseID}", ResultHandler(eng))
}

// POST /forms
func SaveFormHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var d form.Definition
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		c := auth.FromContext(r.Context())
		if err := eng.SaveForm(r.Context(), &d, c.Sub); err != nil {
			writeError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(d)
	}
}

// POST /forms/{formID}/publish  { "tier": "free|pro" }
func PublishHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID := strings.TrimSpace(chi.URLParam(r, "formID"))
		var req struct {
			Tier form.Tier `json:"tier,omitempty"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Tier == "" {
			req.Tier = form.TierFree
		}
		c := auth.FromContext(r.Context())
		if err := eng.Publish(r.Context(), formID, c.Sub, req.Tier); err != nil {
			writeError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": string(form.StatusLive)})
	}
}

func StatusHandler(eng *engine.Engine, to form.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID := strings.TrimSpace(chi.URLParam(r, "formID"))
		c := auth.FromContext(r.Context())
		if err := eng.SetStatus(r.Context(), formID, c.Sub, to); err != nil {
			writeError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": string(to)})
	}
}

// POST /forms/{formID}/release
func ReleaseHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID := strings.TrimSpace(chi.URLParam(r, "formID"))
		c := auth.FromContext(r.Context())
		if err := eng.ReleaseResults(r.Context(), formID, c.Sub); err != nil {
			writeError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]bool{"results_released": true})
	}
}

// POST /forms/{formID}/progress
func ProgressHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, ok := decodeSubmission(w, r)
		if !ok {
			return
		}
		if err := eng.SaveProgress(r.Context(), sub); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// POST /forms/{formID}/submissions
func SubmitHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, ok := decodeSubmission(w, r)
		if !ok {
			return
		}
		resp, revealed, err := eng.Submit(r.Context(), sub)
		if err != nil {
			writeError(w, err)
			return
		}
		// The acknowledgement carries the score when the reveal policy
		// already shows it; otherwise the caller gets the id and comes back
		// through GET /responses/{id}.
		ack := map[string]any{
			"response_id":  resp.ID,
			"submitted_at": resp.SubmittedAt,
			"revealed":     revealed,
		}
		if revealed {
			ack["total_score"] = resp.TotalScore
			ack["answers"] = resp.Answers
		}
		_ = json.NewEncoder(w).Encode(ack)
	}
}

// GET /responses/{responseID}
func ResultHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responseID := strings.TrimSpace(chi.URLParam(r, "responseID"))
		viewer := ""
		if c := auth.FromContext(r.Context()); c != nil {
			viewer = c.Sub
		}
		view, err := eng.Result(r.Context(), responseID, viewer)
		if err != nil {
			writeError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(view)
	}
}

// GET /forms/{formID}/aggregates
func AggregatesHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID := strings.TrimSpace(chi.URLParam(r, "formID"))
		agg, err := eng.Aggregates(r.Context(), formID)
		if err != nil {
			writeError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(agg)
	}
}

func decodeSubmission(w http.ResponseWriter, r *http.Request) (scoring.Submission, bool) {
	var sub scoring.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return scoring.Submission{}, false
	}
	sub.FormID = strings.TrimSpace(chi.URLParam(r, "formID"))
	// an authenticated respondent's identity wins over whatever the body claims
	if c := auth.FromContext(r.Context()); c != nil {
		sub.Respondent = scoring.Respondent{UserID: c.Sub, Email: c.Email}
	}
	if sub.FormID == "" {
		http.Error(w, "formID required", http.StatusBadRequest)
		return scoring.Submission{}, false
	}
	return sub, true
}
