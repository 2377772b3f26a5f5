package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestToDomainError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"validation", NewValidationError("bad", nil), CodeValidation, http.StatusBadRequest},
		{"wrapped forbidden", fmt.Errorf("update: %w", NewForbidden("no")), CodeForbidden, http.StatusForbidden},
		{"no rows", pgx.ErrNoRows, CodeNotFound, http.StatusNotFound},
		{"plain", errors.New("boom"), CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ToDomainError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("code: got %q, want %q", got.Code, tt.wantCode)
			}
			if got.HTTPStatus != tt.wantStatus {
				t.Errorf("status: got %d, want %d", got.HTTPStatus, tt.wantStatus)
			}
		})
	}

	if ToDomainError(nil) != nil {
		t.Error("ToDomainError(nil) should be nil")
	}
}

func TestMapStorage(t *testing.T) {
	t.Parallel()

	if err := MapStorage(pgx.ErrNoRows, "ticket", nil); !IsCode(err, CodeNotFound) {
		t.Errorf("no rows: got %v, want NOT_FOUND", err)
	}
	if err := MapStorage(errors.New("connection refused"), "ticket", nil); !IsCode(err, CodeTransient) {
		t.Errorf("outage: got %v, want TRANSIENT_INFRASTRUCTURE", err)
	}
	forbidden := NewForbidden("nope")
	if err := MapStorage(forbidden, "ticket", nil); err != forbidden {
		t.Errorf("domain errors must pass through unchanged, got %v", err)
	}
	if err := MapStorage(&pgconn.PgError{Code: "22P02"}, "ticket", nil); !IsCode(err, CodeNotFound) {
		t.Errorf("malformed id: got %v, want NOT_FOUND", err)
	}
	if err := MapStorage(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23503"}), "user", nil); !IsCode(err, CodeValidation) {
		t.Errorf("foreign key: got %v, want VALIDATION_FAILED", err)
	}
	if MapStorage(nil, "ticket", nil) != nil {
		t.Error("MapStorage(nil) should be nil")
	}
}
