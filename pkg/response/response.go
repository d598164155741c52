package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kumarketplace/marketplace/pkg/apperr"
	"github.com/kumarketplace/marketplace/pkg/logger"
)

type errorBody struct {
	Status int               `json:"status"`
	Error  string            `json:"error"`
	Errors map[string]string `json:"errors,omitempty"`
}

type messageBody struct {
	Message string `json:"message"`
}

// JSON writes v as the response body with the given status.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// Success sends a 200 JSON response with data.
func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

// Created sends a 201 JSON response with data.
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

// Message sends {"message": msg} with status 200.
func Message(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusOK, messageBody{Message: msg})
}

// Error sends a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, errorBody{Status: status, Error: message})
}

// ValidationError sends a 400 with the field-level error map.
func ValidationError(w http.ResponseWriter, message string, errs map[string]string) {
	JSON(w, http.StatusBadRequest, errorBody{
		Status: http.StatusBadRequest,
		Error:  message,
		Errors: errs,
	})
}

// Fail maps err onto the error taxonomy and writes it. Internal errors are
// logged with full detail and answered with a generic message.
func Fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)

	if kind == apperr.Internal {
		logger.WithCtx(r.Context()).Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		Error(w, status, "Internal server error")
		return
	}

	msg := err.Error()
	var fields map[string]string
	var ae *apperr.Error
	if errors.As(err, &ae) {
		msg, fields = ae.Message, ae.Fields
	}

	if kind == apperr.Validation {
		ValidationError(w, msg, fields)
		return
	}
	Error(w, status, msg)
}

// NotFound sends a 404.
func NotFound(w http.ResponseWriter) {
	Error(w, http.StatusNotFound, "Not found")
}
