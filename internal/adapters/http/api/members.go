package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/rendezvous/internal/domain/model"
	"github.com/okian/rendezvous/internal/domain/types"
)

// MembersHandler manages a single member's calendar.
type MembersHandler struct {
	deps Dependencies
}

// NewMembersHandler creates a new members handler.
func NewMembersHandler(deps Dependencies) *MembersHandler {
	return &MembersHandler{deps: deps}
}

func memberID(r *http.Request) (model.MemberID, error) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		return "", fmt.Errorf("%w: missing member id", ErrBadRequest)
	}
	return model.MemberID(id), nil
}

// dateRange reads the required from and to query parameters.
func dateRange(r *http.Request) (model.Date, model.Date, error) {
	var from, to model.Date
	q := r.URL.Query()
	if q.Get("from") == "" || q.Get("to") == "" {
		return from, to, fmt.Errorf("%w: from and to are required", ErrBadRequest)
	}
	if err := from.UnmarshalText([]byte(q.Get("from"))); err != nil {
		return from, to, err
	}
	if err := to.UnmarshalText([]byte(q.Get("to"))); err != nil {
		return from, to, err
	}
	return from, to, nil
}

// HandlePostEvent handles POST /members/{id}/events requests.
func (h *MembersHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_member_event"
	member, err := memberID(r)
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	var req types.EventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err)
		return
	}
	ev, err := req.Model(member)
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}

	id, err := h.deps.CreateEvent(r.Context(), ev)
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.CreatedResponse{ID: id})
}

// HandleListEvents handles GET /members/{id}/events?from=&to= requests.
func (h *MembersHandler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_member_events"
	member, err := memberID(r)
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	from, to, err := dateRange(r)
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}

	events, err := h.deps.ListEvents(r.Context(), member, from, to)
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewEvents(events))
}

// HandleImport handles POST /members/{id}/calendar.ics requests. The body is
// a VCALENDAR file.
func (h *MembersHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	const op = "api.import_calendar"
	member, err := memberID(r)
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}

	rep, err := h.deps.ImportICS(r.Context(), member, http.MaxBytesReader(w, r.Body, maxCalendarBody))
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// HandleExport handles GET /members/{id}/calendar.ics?from=&to= requests.
func (h *MembersHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.export_calendar"
	member, err := memberID(r)
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	from, to, err := dateRange(r)
	if err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}

	var buf strings.Builder
	if err := h.deps.ExportICS(r.Context(), member, from, to, &buf); err != nil {
		writeServiceError(r.Context(), w, op, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", string(member)+".ics"))
	_, _ = w.Write([]byte(buf.String()))
}
