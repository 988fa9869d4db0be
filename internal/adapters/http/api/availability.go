package api

import (
	"net/http"

	"github.com/okian/rendezvous/internal/domain/types"
)

// AvailabilityHandler serves slot queries and meeting suggestions.
type AvailabilityHandler struct {
	deps Dependencies
}

// NewAvailabilityHandler creates a new availability handler.
func NewAvailabilityHandler(deps Dependencies) *AvailabilityHandler {
	return &AvailabilityHandler{deps: deps}
}

// HandleAvailability handles POST /availability requests.
func (h *AvailabilityHandler) HandleAvailability(w http.ResponseWriter, r *http.Request) {
	const op = "api.availability"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req types.AvailabilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err)
		return
	}
	q, err := req.Query()
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}

	slots, err := h.deps.Availability(r.Context(), q)
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewAvailabilityResponse(slots))
}

// HandleSuggestions handles POST /suggestions requests.
func (h *AvailabilityHandler) HandleSuggestions(w http.ResponseWriter, r *http.Request) {
	const op = "api.suggestions"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req types.SuggestionsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err)
		return
	}
	if req.DurationMinutes < 0 || req.Limit < 0 {
		writeError(w, http.StatusBadRequest, codeBadRequest, ErrBadRequest)
		return
	}
	q, err := req.Query()
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}

	sg, err := h.deps.Suggest(r.Context(), q, req.DurationMinutes, req.Limit)
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewSuggestionsResponse(sg))
}
