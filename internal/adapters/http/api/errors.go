package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/rendezvous/internal/adapters/ics"
	"github.com/okian/rendezvous/internal/adapters/repository"
	service "github.com/okian/rendezvous/internal/app"
	"github.com/okian/rendezvous/internal/domain/availability"
	"github.com/okian/rendezvous/internal/domain/model"
	"github.com/okian/rendezvous/internal/domain/types"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// Error codes returned in errorResponse.Code.
const (
	codeBadRequest           = "bad_request"
	codeDuplicate            = "duplicate"
	codeSchedulesUnavailable = "schedules_unavailable"
	codeUnavailable          = "unavailable"
	codeInternal             = "internal"
)

const schedulesUnavailableMessage = "could not check schedules, try again"

// classify maps a service error to a status code, an error code and the
// message shown to the caller.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, availability.ErrReadFailed),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, codeSchedulesUnavailable, schedulesUnavailableMessage
	case errors.Is(err, service.ErrDuplicate):
		return http.StatusConflict, codeDuplicate, err.Error()
	case errors.Is(err, service.ErrNotStarted),
		errors.Is(err, repository.ErrClosed):
		return http.StatusServiceUnavailable, codeUnavailable, err.Error()
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, types.ErrInvalid),
		errors.Is(err, model.ErrInvalidRequest),
		errors.Is(err, model.ErrInvalidTime),
		errors.Is(err, availability.ErrInvalidWindow),
		errors.Is(err, availability.ErrInvalidDateRange),
		errors.Is(err, availability.ErrInvalidDuration),
		errors.Is(err, repository.ErrInvalidEvent),
		errors.Is(err, repository.ErrInvalidRange),
		errors.Is(err, ics.ErrParse):
		return http.StatusBadRequest, codeBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, codeInternal, http.StatusText(http.StatusInternalServerError)
	}
}
