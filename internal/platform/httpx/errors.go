package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/gstbooks/gstbooks/internal/shared"
)

// ErrMalformedBody marks request bodies that could not be decoded.
var ErrMalformedBody = errors.New("malformed request body")

// ErrorRule maps every error matching Target to a problem status and title.
type ErrorRule struct {
	Target error
	Status int
	Title  string
}

// Responder writes problems for errors, checking rules in order before the
// built-in fallbacks.
type Responder struct {
	rules  []ErrorRule
	logger *slog.Logger
}

// NewResponder builds a responder from domain rules.
func NewResponder(logger *slog.Logger, rules ...ErrorRule) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{rules: rules, logger: logger}
}

// Status resolves the HTTP status and title for err.
func (r *Responder) Status(err error) (int, string) {
	for _, rule := range r.rules {
		if errors.Is(err, rule.Target) {
			return rule.Status, rule.Title
		}
	}
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs), errors.Is(err, ErrMalformedBody):
		return http.StatusBadRequest, "Validation Failed"
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, shared.ErrIdempotencyConflict):
		return http.StatusConflict, "Duplicate Request"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}

// RespondError maps err to an RFC7807 response. Internal errors are logged
// and their detail is withheld.
func (r *Responder) RespondError(w http.ResponseWriter, req *http.Request, err error) {
	status, title := r.Status(err)
	if status >= http.StatusInternalServerError {
		r.logger.Error("request failed", slog.String("path", req.URL.Path), slog.Any("error", err))
		ProblemFor(w, req, status, title, "")
		return
	}
	ProblemFor(w, req, status, title, err.Error())
}
