package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHasCode(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	dataErr := DataUnavailable(cause)
	schemaErr := SchemaMismatch("missing columns: salary_usd", nil)

	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"direct match", dataErr, CodeDataUnavailable, true},
		{"direct mismatch", dataErr, CodeSchemaMismatch, false},
		{"wrapped with fmt", fmt.Errorf("startup: %w", schemaErr), CodeSchemaMismatch, true},
		{"nested app errors", Wrap(schemaErr, CodeDataUnavailable, "load"), CodeSchemaMismatch, true},
		{"plain error", cause, CodeDataUnavailable, false},
		{"nil", nil, CodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasCode(tt.err, tt.code); got != tt.want {
				t.Errorf("HasCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{BadRequest("bad"), http.StatusBadRequest},
		{ServiceUnavailable("no data"), http.StatusServiceUnavailable},
		{RateLimit("slow down"), http.StatusTooManyRequests},
		{DataUnavailable(nil), http.StatusServiceUnavailable},
		{SchemaMismatch("x", nil), http.StatusServiceUnavailable},
		{Internal("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			if tt.err.StatusCode != tt.want {
				t.Errorf("StatusCode = %d, want %d", tt.err.StatusCode, tt.want)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := httptest.NewRecorder()

	WriteError(w, logger, BadRequest("invalid year"), "req-1")

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	var response ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	if response.Success {
		t.Error("expected success=false")
	}
	if response.Error.Code != CodeBadRequest || response.Error.RequestID != "req-1" {
		t.Errorf("unexpected error body: %+v", response.Error)
	}
}

func TestWriteError_PlainError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := httptest.NewRecorder()

	WriteError(w, logger, fmt.Errorf("unexpected"), "")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
