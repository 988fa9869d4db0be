// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/rendezvous/internal/domain/availability"
	"github.com/okian/rendezvous/internal/domain/model"
	"github.com/okian/rendezvous/internal/domain/ranking"
	"github.com/okian/rendezvous/internal/domain/types"
	"github.com/okian/rendezvous/pkg/logger"
)

const (
	maxJSONBody     = 1 << 20
	maxCalendarBody = 10 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Availability(ctx context.Context, q availability.Query) ([]model.AvailabilitySlot, error)
	Suggest(ctx context.Context, q availability.Query, duration, limit int) (ranking.Suggestions, error)

	Materialize(ctx context.Context, req model.MeetingRequest, idempotencyKey string) (model.MaterializationResult, error)

	CreateEvent(ctx context.Context, ev model.CalendarEvent) (string, error)
	ListEvents(ctx context.Context, member model.MemberID, from, to model.Date) ([]model.CalendarEvent, error)
	ImportICS(ctx context.Context, member model.MemberID, r io.Reader) (types.ImportResponse, error)
	ExportICS(ctx context.Context, member model.MemberID, from, to model.Date, w io.Writer) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
	availabilityHandler *AvailabilityHandler
	meetingsHandler     *MeetingsHandler
	membersHandler      *MembersHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:       NewHealthHandler(),
		statsHandler:        NewStatsHandler(statsProvider),
		availabilityHandler: NewAvailabilityHandler(deps),
		meetingsHandler:     NewMeetingsHandler(deps),
		membersHandler:      NewMembersHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/availability", MetricsMiddleware(s.availabilityHandler.HandleAvailability, "availability"))
	mux.HandleFunc("/suggestions", MetricsMiddleware(s.availabilityHandler.HandleSuggestions, "suggestions"))
	mux.HandleFunc("/meetings", MetricsMiddleware(s.meetingsHandler.HandlePostMeeting, "meetings"))
	mux.HandleFunc("POST /members/{id}/events", MetricsMiddleware(s.membersHandler.HandlePostEvent, "member_events"))
	mux.HandleFunc("GET /members/{id}/events", MetricsMiddleware(s.membersHandler.HandleListEvents, "member_events"))
	mux.HandleFunc("POST /members/{id}/calendar.ics", MetricsMiddleware(s.membersHandler.HandleImport, "member_calendar"))
	mux.HandleFunc("GET /members/{id}/calendar.ics", MetricsMiddleware(s.membersHandler.HandleExport, "member_calendar"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps err onto the API error contract. Server-side
// failures are logged, caller mistakes are not.
func writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	status, code, msg := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Get().Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}
