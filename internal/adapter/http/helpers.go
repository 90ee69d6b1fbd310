package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/customerapi/internal/domain"
	"github.com/Strob0t/customerapi/internal/domain/customer"
)

// Fault codes and their fixed client messages.
const (
	CodeBadRequest      = "badRequest"
	CodeTooManyRequests = "tooManyRequests"
	CodeInternalError   = "internalError"

	msgBadRequest      = "You have supplied invalid request details"
	msgTooManyRequests = "Too many requests have been made, please try again later"
	msgInternalError   = "An internal error was encountered processing the request"
)

// now is the clock used for serverDateTime.
var now = time.Now

// ---------------------------------------------------------------------------
// Request helpers
// ---------------------------------------------------------------------------

// readBody reads the request body up to bodyLimit bytes. Oversized or
// unreadable bodies become validation errors.
func readBody(w http.ResponseWriter, r *http.Request, bodyLimit int64) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &domain.ValidationError{Failures: []domain.FieldFailure{
				{Field: "", Message: "request body too large"},
			}}
		}
		return nil, &domain.ValidationError{Failures: []domain.FieldFailure{
			{Field: "", Message: "request body could not be read"},
		}}
	}
	return data, nil
}

// urlParam is a short alias for chi.URLParam.
func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

// FaultDocument is the body of every error response.
type FaultDocument struct {
	Fault FaultBody `json:"fault"`
}

// FaultBody describes one failed request. Failures holds either
// []domain.FieldFailure or []string.
type FaultBody struct {
	Code           string `json:"code"`
	HTTPStatus     int    `json:"httpStatus"`
	Message        string `json:"message"`
	ServerDateTime string `json:"serverDateTime"`
	Failures       any    `json:"failures"`
}

// renderFault maps any error onto a fault document. It never fails.
func renderFault(err error, at time.Time) FaultDocument {
	body := FaultBody{
		Code:           CodeInternalError,
		HTTPStatus:     http.StatusInternalServerError,
		Message:        msgInternalError,
		ServerDateTime: at.UTC().Format(time.RFC3339Nano),
		Failures:       []string{customer.MsgInternal},
	}

	var verr *domain.ValidationError
	switch f, isFault := domain.AsFault(err); {
	case errors.As(err, &verr):
		body.Code = CodeBadRequest
		body.HTTPStatus = http.StatusBadRequest
		body.Message = msgBadRequest
		failures := verr.Failures
		if failures == nil {
			failures = []domain.FieldFailure{}
		}
		body.Failures = failures
	case isFault && f.Kind == domain.FaultClient:
		body.Code = CodeBadRequest
		body.HTTPStatus = http.StatusBadRequest
		body.Message = msgBadRequest
		body.Failures = []string{f.Message}
	case isFault && f.Kind == domain.FaultThrottled:
		body.Code = CodeTooManyRequests
		body.HTTPStatus = http.StatusTooManyRequests
		body.Message = msgTooManyRequests
		body.Failures = []string{f.Message}
	case isFault:
		body.Failures = []string{f.Message}
	}
	return FaultDocument{Fault: body}
}

// WriteFault renders err as a fault document for code outside this package,
// such as middleware that rejects requests before routing.
func WriteFault(w http.ResponseWriter, r *http.Request, err error) {
	writeFault(w, r, err)
}

// writeFault renders err as a fault document and logs it. Internal causes
// are logged, never sent to the client.
func writeFault(w http.ResponseWriter, r *http.Request, err error) FaultDocument {
	doc := renderFault(err, now())
	ctx := r.Context()
	if doc.Fault.HTTPStatus >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		slog.InfoContext(ctx, "request rejected", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, doc.Fault.HTTPStatus, doc)
	return doc
}
