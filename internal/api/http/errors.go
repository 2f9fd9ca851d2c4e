package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/form"
	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/policy"
	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/scoring"
	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/store"
)

// writeError maps the engine's error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var verrs scoring.ValidationErrors
	if errors.As(err, &verrs) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"validation_errors": verrs})
		return
	}
	var derrs form.DefinitionErrors
	if errors.As(err, &derrs) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"definition_errors": derrs})
		return
	}
	var perr *form.PublishError
	if errors.As(err, &perr) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"code": "COST_CEILING_EXCEEDED", "reason": perr.Error(),
			"cost": perr.Cost, "ceiling": perr.Ceiling,
		})
		return
	}
	var aerr *policy.AccessError
	if errors.As(err, &aerr) {
		status := http.StatusForbidden
		switch aerr.Code {
		case policy.CodeFormNotLive, policy.CodeBadTransition:
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]string{"code": aerr.Code, "reason": aerr.Reason})
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
