// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/tomtom215/lute/internal/lookup"
)

// lookupBody decodes LookupResponse with the file name as a plain string.
type lookupBody struct {
	Status        lookup.Status `json:"status"`
	CorrelationID string        `json:"correlation_id"`
	Query         struct {
		ArtistName string `json:"artist_name"`
		AlbumName  string `json:"album_name"`
	} `json:"query"`
	Result *struct {
		FileName string `json:"file_name"`
	} `json:"result"`
}

func TestSearchAlbum(t *testing.T) {
	f := newFixture(t)
	body := map[string]string{"artist_name": "  Björk ", "album_name": "Homogenic"}

	rec, env := f.do(t, http.MethodPost, "/api/v1/lookups/album-search", body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("first search status = %d, want 202 (body %s)", rec.Code, rec.Body.String())
	}
	if env.Status != "success" || env.Metadata.RequestID == "" {
		t.Errorf("envelope = %+v", env)
	}
	var got lookupBody
	env.decode(t, &got)
	if got.Status != lookup.StatusStarted {
		t.Errorf("status = %q, want started", got.Status)
	}
	if got.Query.ArtistName != "Björk" {
		t.Errorf("artist = %q, want trimmed", got.Query.ArtistName)
	}
	if !strings.HasPrefix(got.CorrelationID, "lookup:album_search:") {
		t.Errorf("correlation id = %q", got.CorrelationID)
	}

	// A second search for the same album neither creates nor publishes again.
	rec, _ = f.do(t, http.MethodPost, "/api/v1/lookups/album-search",
		map[string]string{"artist_name": "BJORK", "album_name": "homogenic"})
	if rec.Code != http.StatusAccepted {
		t.Errorf("repeat search status = %d, want 202", rec.Code)
	}
	if n := f.published(t); n != 1 {
		t.Errorf("published %d lookup events, want 1", n)
	}
}

func TestSearchAlbum_Resolved(t *testing.T) {
	f := newFixture(t)
	f.resolve(t, "Massive Attack", "Mezzanine", "release/mezzanine")

	rec, env := f.do(t, http.MethodPost, "/api/v1/lookups/album-search",
		map[string]string{"artist_name": "Massive Attack", "album_name": "Mezzanine"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got lookupBody
	env.decode(t, &got)
	if got.Status != lookup.StatusAlbumParsed || got.Result == nil || got.Result.FileName != "release/mezzanine" {
		t.Errorf("lookup = %+v", got)
	}
}

func TestSearchAlbum_BadRequests(t *testing.T) {
	tests := []struct {
		name     string
		body     interface{}
		wantCode string
	}{
		{"blank artist", map[string]string{"artist_name": "   ", "album_name": "Homogenic"}, CodeValidation},
		{"missing album", map[string]string{"artist_name": "Björk"}, CodeValidation},
		{"oversized name", map[string]string{"artist_name": strings.Repeat("a", 513), "album_name": "x"}, CodeValidation},
		{"unknown field", `{"artist_name":"a","album_name":"b","year":1997}`, CodeInvalidBody},
		{"empty body", nil, CodeInvalidBody},
		{"malformed json", `{"artist_name":`, CodeInvalidBody},
		{"trailing data", `{"artist_name":"a","album_name":"b"} {}`, CodeInvalidBody},
	}

	f := newFixture(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := f.do(t, http.MethodPost, "/api/v1/lookups/album-search", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
			if env.Status != "error" || env.Error == nil || env.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", env.Error, tt.wantCode)
			}
		})
	}
}

func TestBatchFindAlbumSearches(t *testing.T) {
	f := newFixture(t)
	f.resolve(t, "Portishead", "Dummy", "release/dummy")

	rec, env := f.do(t, http.MethodPost, "/api/v1/lookups/album-search/batch", map[string]interface{}{
		"queries": []map[string]string{
			{"artist_name": "portishead", "album_name": "DUMMY"},
			{"artist_name": "Unknown", "album_name": "Nothing"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}
	var got []*lookupBody
	env.decode(t, &got)
	if len(got) != 2 {
		t.Fatalf("got %d slots, want 2", len(got))
	}
	if got[0] == nil || got[0].Status != lookup.StatusAlbumParsed {
		t.Errorf("slot 0 = %+v, want album_parsed", got[0])
	}
	if got[1] != nil {
		t.Errorf("slot 1 = %+v, want null", got[1])
	}
	if n := f.published(t); n != 0 {
		t.Errorf("batch read published %d events, want 0", n)
	}

	rec, env = f.do(t, http.MethodPost, "/api/v1/lookups/album-search/batch", map[string]interface{}{"queries": []string{}})
	if rec.Code != http.StatusBadRequest || env.Error.Code != CodeValidation {
		t.Errorf("empty batch = %d %+v, want 400 validation", rec.Code, env.Error)
	}
}

func TestFindAlbumSearchesByFile(t *testing.T) {
	f := newFixture(t)
	f.resolve(t, "Portishead", "Dummy", "release/dummy")
	f.resolve(t, "Portishead", "Dummy (Remastered)", "release/dummy")
	f.resolve(t, "Portishead", "Third", "release/third")

	rec, env := f.do(t, http.MethodGet, "/api/v1/lookups/album-search/by-file?file_name=release/dummy", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}
	var got []*lookupBody
	env.decode(t, &got)
	if len(got) != 2 {
		t.Errorf("got %d lookups, want 2", len(got))
	}

	tests := []struct {
		name  string
		query string
	}{
		{"missing", ""},
		{"invalid scheme", "?file_name=playlist/x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := f.do(t, http.MethodGet, "/api/v1/lookups/album-search/by-file"+tt.query, nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (error %+v)", rec.Code, env.Error)
			}
		})
	}
}

func TestLookupStatuses(t *testing.T) {
	f := newFixture(t)
	f.resolve(t, "Portishead", "Dummy", "release/dummy")
	f.do(t, http.MethodPost, "/api/v1/lookups/album-search", map[string]string{"artist_name": "A", "album_name": "B"})

	rec, env := f.do(t, http.MethodGet, "/api/v1/lookups/statuses", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got []lookup.AggregatedStatus
	env.decode(t, &got)

	counts := map[lookup.Status]int{}
	for _, s := range got {
		counts[s.Status] = s.Count
	}
	if len(got) != len(lookup.Statuses) {
		t.Errorf("got %d statuses, want %d", len(got), len(lookup.Statuses))
	}
	if counts[lookup.StatusStarted] != 1 || counts[lookup.StatusAlbumParsed] != 1 {
		t.Errorf("counts = %v", counts)
	}
}
