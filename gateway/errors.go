package gateway

import (
	stderrors "errors"
	"net/http"

	"github.com/c360/marketstreams/errors"
	"github.com/c360/marketstreams/health"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Current int    `json:"current_count,omitempty"`
	Max     int    `json:"max_count,omitempty"`
	State   string `json:"state,omitempty"`
}

// writeError maps a domain error onto an HTTP status. Messages are sanitized
// before leaving the process.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.requestsFailed.Add(1)

	status := http.StatusInternalServerError
	body := errorBody{
		Error: health.SanitizeMessage(err.Error()),
		Code:  "internal",
	}

	var limitErr *errors.StreamLimitExceededError
	var stateErr *errors.InvalidStreamStateError

	switch {
	case stderrors.As(err, &limitErr):
		status = http.StatusTooManyRequests
		body.Code = "quota_exceeded"
		body.Current = limitErr.CurrentCount
		body.Max = limitErr.MaxCount
	case stderrors.As(err, &stateErr):
		status = http.StatusConflict
		body.Code = "invalid_state"
		body.State = stateErr.State
	case errors.IsNotFound(err):
		status = http.StatusNotFound
		body.Code = "not_found"
	case errors.IsInvalid(err):
		status = http.StatusBadRequest
		body.Code = "invalid_request"
	case errors.IsTransient(err):
		status = http.StatusServiceUnavailable
		body.Code = "unavailable"
	}

	s.writeJSON(w, status, body)
}
