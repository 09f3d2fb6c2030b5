// Package outcome normalizes the result of one dispatched operation and
// resolves the results of a composite operation into one status code.
package outcome

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// Outcome is the result of one operation on one kind, whichever way it was
// dispatched. Body is JSON or nil.
type Outcome struct {
	Succeeded  bool
	StatusCode int
	Body       json.RawMessage
}

// Message is the error body shape shared by every endpoint.
type Message struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// New builds an Outcome from a status code and body.
func New(code int, body json.RawMessage) Outcome {
	code = Normalize(code)
	return Outcome{Succeeded: succeeded(code), StatusCode: code, Body: body}
}

// Status builds an Outcome whose body is the standard message for code.
func Status(code int) Outcome {
	code = Normalize(code)
	body, _ := json.Marshal(Message{Status: code, Message: Text(code)})
	return Outcome{Succeeded: succeeded(code), StatusCode: code, Body: body}
}

// JSON builds an Outcome whose body is v marshaled.
func JSON(code int, v any) Outcome {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal outcome body", slog.Any("err", err))
		return Internal()
	}
	return New(code, body)
}

// Internal is the generic internal-error outcome.
func Internal() Outcome {
	return Status(http.StatusInternalServerError)
}

// Decode unmarshals the body into v.
func (o Outcome) Decode(v any) error {
	return json.Unmarshal(o.Body, v)
}

func succeeded(code int) bool {
	return code >= 200 && code < 300
}

// Normalize folds any status code into the closed vocabulary callers may see:
// 200, 201, 400, 404, 409, 415 and 500.
func Normalize(code int) int {
	switch code {
	case http.StatusOK, http.StatusCreated, http.StatusBadRequest, http.StatusNotFound,
		http.StatusConflict, http.StatusUnsupportedMediaType, http.StatusInternalServerError:
		return code
	}
	switch {
	case code >= 200 && code < 300:
		return http.StatusOK
	case code >= 400 && code < 500:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Text returns the lower-case status phrase used in message bodies.
func Text(code int) string {
	return strings.ToLower(http.StatusText(code))
}
