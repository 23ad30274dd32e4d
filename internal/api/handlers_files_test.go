// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFileContentRoundTrip(t *testing.T) {
	f := newFixture(t)

	rec, env := f.do(t, http.MethodPut, "/api/v1/files/content?file_name=release/dummy", "<html>dummy</html>")
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d (body %s)", rec.Code, rec.Body.String())
	}
	var saved FileSavedResponse
	env.decode(t, &saved)
	if saved.FileName != "release/dummy" || saved.Size != len("<html>dummy</html>") {
		t.Errorf("saved = %+v", saved)
	}

	rec, env = f.do(t, http.MethodGet, "/api/v1/files/content?file_name=release/dummy", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var got FileContentResponse
	env.decode(t, &got)
	if string(got.Content) != "<html>dummy</html>" {
		t.Errorf("content = %q", got.Content)
	}

	rec, env = f.do(t, http.MethodGet, "/api/v1/files", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var names []string
	env.decode(t, &names)
	if len(names) != 1 || names[0] != "release/dummy" {
		t.Errorf("names = %v", names)
	}
}

func TestGetFileContent_Missing(t *testing.T) {
	f := newFixture(t)

	rec, env := f.do(t, http.MethodGet, "/api/v1/files/content?file_name=artist/nobody", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if env.Error == nil || env.Error.Code != CodeFileNotFound {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestPutFileContent_BadRequests(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		query  string
		body   string
		status int
		code   string
	}{
		{"missing name", "", "x", http.StatusBadRequest, CodeValidation},
		{"invalid scheme", "?file_name=playlist/x", "x", http.StatusBadRequest, CodeValidation},
		{"empty body", "?file_name=release/dummy", "", http.StatusBadRequest, CodeInvalidBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := f.do(t, http.MethodPut, "/api/v1/files/content"+tt.query, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			if env.Error == nil || env.Error.Code != tt.code {
				t.Errorf("error = %+v, want code %s", env.Error, tt.code)
			}
		})
	}
}

func TestPutFileContent_TooLarge(t *testing.T) {
	f := newFixture(t)

	body := strings.NewReader(strings.Repeat("a", maxContentBytes+1))
	req := httptest.NewRequest(http.MethodPut, "/api/v1/files/content?file_name=release/big", body)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestFiles_NoContentStore(t *testing.T) {
	h := NewHandler(nil, nil)
	mwCfg := DefaultChiMiddlewareConfig()
	mwCfg.RateLimitDisabled = true
	router := NewRouter(h, NewChiMiddleware(mwCfg))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}
