package server

import (
	"errors"
	"net/http"

	"github.com/awaazlabs/awaaz/internal/llm"
	"github.com/awaazlabs/awaaz/internal/speech/engine"
	"github.com/awaazlabs/awaaz/internal/transcode"
)

// statusFor maps pipeline failures to HTTP responses. Bad uploads are the
// caller's fault, an unreachable completion service is a 503, and anything
// else is a plain 500.
func statusFor(err error) (int, string) {
	var conversionErr *transcode.Error
	switch {
	case errors.As(err, &conversionErr):
		return http.StatusBadRequest, conversionErr.Error()
	case errors.Is(err, llm.ErrUnavailable):
		return http.StatusServiceUnavailable, "completion service unavailable"
	case errors.Is(err, engine.ErrModelMissing):
		return http.StatusInternalServerError, "speech model not installed"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
