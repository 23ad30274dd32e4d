// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package api

import (
	"net/http"

	"github.com/tomtom215/lute/internal/files"
	"github.com/tomtom215/lute/internal/lookup"
)

// AlbumSearchRequest names one album.
type AlbumSearchRequest struct {
	ArtistName string `json:"artist_name" validate:"not_blank,max=512"`
	AlbumName  string `json:"album_name" validate:"not_blank,max=512"`
}

func (r AlbumSearchRequest) query() lookup.AlbumSearchLookupQuery {
	return lookup.NewAlbumSearchLookupQuery(r.ArtistName, r.AlbumName)
}

// BatchAlbumSearchRequest reads several lookups at once.
type BatchAlbumSearchRequest struct {
	Queries []AlbumSearchRequest `json:"queries" validate:"required,min=1,max=100,dive"`
}

// FileNameQuery is the query string of the by-file route.
type FileNameQuery struct {
	FileName string `json:"file_name" validate:"required,file_name"`
}

// LookupResponse is the API shape of an album search lookup.
type LookupResponse struct {
	Status        lookup.Status                 `json:"status"`
	Query         lookup.AlbumSearchLookupQuery `json:"query"`
	CorrelationID string                        `json:"correlation_id"`
	Result        *lookup.AlbumSearchResult     `json:"result,omitempty"`
	Error         string                        `json:"error,omitempty"`
}

// newLookupResponse returns nil for a nil lookup so misses encode as null.
func newLookupResponse(l lookup.AlbumSearchLookup) *LookupResponse {
	if l == nil {
		return nil
	}
	resp := &LookupResponse{
		Status:        l.Status(),
		Query:         l.Query(),
		CorrelationID: lookup.LookupCorrelationID(l),
	}
	switch v := l.(type) {
	case lookup.AlbumParsed:
		result := v.Result
		resp.Result = &result
	case lookup.Errored:
		resp.Error = v.Error
	}
	return resp
}

func newLookupResponses(ls []lookup.AlbumSearchLookup) []*LookupResponse {
	out := make([]*LookupResponse, len(ls))
	for i, l := range ls {
		out[i] = newLookupResponse(l)
	}
	return out
}

// SearchAlbum returns the lookup for one album, starting a search when the
// album has never been seen. A new lookup is answered with 202 Accepted.
func (h *Handler) SearchAlbum(w http.ResponseWriter, r *http.Request) {
	var req AlbumSearchRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	l, err := h.lookups.SearchAlbum(r.Context(), req.ArtistName, req.AlbumName)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	status := http.StatusOK
	if l.Status() == lookup.StatusStarted {
		status = http.StatusAccepted
	}
	respondSuccess(w, r, status, newLookupResponse(l))
}

// BatchFindAlbumSearches returns one slot per query, null for unknown
// queries. It never starts a search.
func (h *Handler) BatchFindAlbumSearches(w http.ResponseWriter, r *http.Request) {
	var req BatchAlbumSearchRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	queries := make([]lookup.AlbumSearchLookupQuery, len(req.Queries))
	for i, q := range req.Queries {
		queries[i] = q.query()
	}

	found, err := h.lookups.FindManyAlbumSearchLookups(r.Context(), queries)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, newLookupResponses(found))
}

// FindAlbumSearchesByFile returns every lookup whose parsed result is the
// album page in ?file_name=.
func (h *Handler) FindAlbumSearchesByFile(w http.ResponseWriter, r *http.Request) {
	q := FileNameQuery{FileName: r.URL.Query().Get("file_name")}
	if apiErr := validateRequest(&q); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr, nil)
		return
	}

	name, err := files.ParseFileName(q.FileName)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	found, err := h.lookups.FindManyAlbumSearchLookupsByAlbumFileName(r.Context(), name)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, newLookupResponses(found))
}

// LookupStatuses returns the number of stored lookups per status.
func (h *Handler) LookupStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.lookups.AggregateStatuses(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, statuses)
}
