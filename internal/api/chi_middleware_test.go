// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/lute/internal/broker"
	"github.com/tomtom215/lute/internal/config"
	"github.com/tomtom215/lute/internal/files"
	"github.com/tomtom215/lute/internal/lookup"
	"github.com/tomtom215/lute/internal/profile"
	"github.com/tomtom215/lute/internal/search"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit(t *testing.T) {
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitRequests = 2
	cfg.RateLimitWindow = time.Minute
	handler := NewChiMiddleware(cfg).RateLimit()(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/lookups/statuses", nil)
		req.RemoteAddr = "192.0.2.10:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)

		if rec.Code == http.StatusTooManyRequests && rec.Header().Get("Retry-After") != "60" {
			t.Errorf("Retry-After = %q, want 60", rec.Header().Get("Retry-After"))
		}
	}
	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	if fmt.Sprint(codes) != fmt.Sprint(want) {
		t.Errorf("status codes = %v, want %v", codes, want)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitRequests = 1
	cfg.RateLimitDisabled = true
	handler := NewChiMiddleware(cfg).RateLimit()(okHandler())

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
}

func TestCORS(t *testing.T) {
	cfg := DefaultChiMiddlewareConfig()
	cfg.CORSAllowedOrigins = []string{"https://app.example"}
	handler := NewChiMiddleware(cfg).CORS()(okHandler())

	tests := []struct {
		origin string
		want   string
	}{
		{"https://app.example", "https://app.example"},
		{"https://evil.example", ""},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/v1/lookups/album-search", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChiMiddlewareConfigFrom(t *testing.T) {
	got := ChiMiddlewareConfigFrom(config.ServerConfig{
		RateLimitReqs:      7,
		RateLimitWindow:    time.Second,
		RateLimitDisabled:  true,
		CORSAllowedOrigins: []string{"https://a.example"},
	})
	if got.RateLimitRequests != 7 || got.RateLimitWindow != time.Second || !got.RateLimitDisabled {
		t.Errorf("rate limit = %+v", got)
	}
	if len(got.CORSAllowedOrigins) != 1 || len(got.CORSAllowedMethods) == 0 {
		t.Errorf("cors = %+v", got)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid query", search.ErrInvalidQuery, http.StatusBadRequest, CodeInvalidQuery},
		{"invalid file name", fmt.Errorf("parse: %w", files.ErrInvalidFileName), http.StatusBadRequest, CodeInvalidFileName},
		{"invalid profile id", profile.ErrInvalidProfileID, http.StatusBadRequest, CodeInvalidProfileID},
		{"profile not found", fmt.Errorf("%w: p", profile.ErrProfileNotFound), http.StatusNotFound, CodeProfileNotFound},
		{"profile exists", profile.ErrProfileExists, http.StatusConflict, CodeProfileExists},
		{"lookup not found", lookup.ErrNotFound, http.StatusNotFound, CodeLookupNotFound},
		{"broker down", fmt.Errorf("append: %w: %w", broker.ErrTransport, errors.New("EOF")), http.StatusServiceUnavailable, CodeUnavailable},
		{"breaker open", gobreaker.ErrOpenState, http.StatusServiceUnavailable, CodeUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, message := classifyError(tt.err)
			if status != tt.wantStatus || code != tt.wantCode {
				t.Errorf("classifyError() = %d %s, want %d %s", status, code, tt.wantStatus, tt.wantCode)
			}
			if tt.wantCode == CodeInternal && message == tt.err.Error() {
				t.Error("internal error text leaked to the client")
			}
		})
	}
}

func TestSanitizeLogValue(t *testing.T) {
	if got := sanitizeLogValue("a\nb\x7f"); got != `a\x0ab\x7f` {
		t.Errorf("sanitizeLogValue() = %q", got)
	}
}
