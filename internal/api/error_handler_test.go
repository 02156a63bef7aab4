package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/admin-console/internal/core/domain"
)

func TestHTTPErrorHandler(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"echo error", echo.NewHTTPError(http.StatusUnauthorized, "sign-in required"), http.StatusUnauthorized, "sign-in required"},
		{"validation", fmt.Errorf("%w: email is required", domain.ErrValidation), http.StatusBadRequest, "validation failed: email is required"},
		{"invalid state", domain.ErrInvalidState, http.StatusBadRequest, "invalid or expired login state"},
		{"cancelled", domain.ErrUserCancelled, http.StatusBadRequest, "sign-in cancelled"},
		{"unregistered", domain.ErrUnauthorized, http.StatusUnauthorized, "identity is not registered"},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden, "access forbidden"},
		{"not found", domain.ErrNotFound, http.StatusNotFound, "user not found"},
		{"conflict", domain.ErrConflict, http.StatusConflict, "user already exists"},
		{"store outage wins", fmt.Errorf("%w: %w", domain.ErrUnauthorized, domain.ErrStoreUnavailable), http.StatusServiceUnavailable, "user registry unavailable"},
		{"provider", domain.ErrProvider, http.StatusServiceUnavailable, "identity provider unavailable"},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "request timed out"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal server error"},
	}

	handler := NewHTTPErrorHandler(zerolog.Nop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			handler(tt.err, c)

			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if resp.Error != tt.wantMsg {
				t.Errorf("message = %q, want %q", resp.Error, tt.wantMsg)
			}
		})
	}
}

func TestHTTPErrorHandler_Head(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodHead, "/", nil), rec)

	NewHTTPErrorHandler(zerolog.Nop())(domain.ErrNotFound, c)

	if rec.Code != http.StatusNotFound || rec.Body.Len() != 0 {
		t.Fatalf("code=%d body=%q", rec.Code, rec.Body.String())
	}
}
