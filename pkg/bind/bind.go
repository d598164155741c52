// Package bind decodes and validates an HTTP request body into a struct.
package bind

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/kumarketplace/marketplace/pkg/apperr"
	"github.com/kumarketplace/marketplace/pkg/validate"
)

// DefaultMaxBytes caps request bodies when no limit is configured.
const DefaultMaxBytes int64 = 1 << 20

// Binder decodes JSON bodies up to MaxBytes.
type Binder struct {
	MaxBytes int64
}

// New returns a Binder with the given body limit.
func New(maxBytes int64) Binder {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return Binder{MaxBytes: maxBytes}
}

// JSON decodes r.Body into dest and runs validation. Malformed or oversized
// bodies and rule violations are all Validation errors; the latter list every
// offending field.
func (b Binder) JSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	limit := b.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return apperr.Wrap(apperr.Validation, fmt.Sprintf("Request body too large (max %d bytes)", maxErr.Limit), err)
		case errors.Is(err, io.EOF):
			return apperr.Wrap(apperr.Validation, "Request body is required", err)
		default:
			return apperr.Wrap(apperr.Validation, "Invalid JSON body", err)
		}
	}

	if errs := validate.Struct(dest); validate.HasErrors(errs) {
		return apperr.Invalid("Validation failed", errs)
	}
	return nil
}
