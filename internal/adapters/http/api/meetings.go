package api

import (
	"net/http"
	"strings"

	"github.com/okian/rendezvous/internal/domain/types"
)

// IdempotencyKeyHeader lets a client retry a confirmation safely.
const IdempotencyKeyHeader = "Idempotency-Key"

// MeetingsHandler confirms meetings onto member calendars.
type MeetingsHandler struct {
	deps Dependencies
}

// NewMeetingsHandler creates a new meetings handler.
func NewMeetingsHandler(deps Dependencies) *MeetingsHandler {
	return &MeetingsHandler{deps: deps}
}

// HandlePostMeeting handles POST /meetings requests. Partial success is
// still a 200; the body lists the members that failed.
func (h *MeetingsHandler) HandlePostMeeting(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_meeting"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req types.MeetingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err)
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	res, err := h.deps.Materialize(r.Context(), req.Model(), key)
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewMaterializationResponse(res))
}
