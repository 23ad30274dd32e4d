// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/lute/internal/profile"
)

// CreateProfileRequest creates an empty profile.
type CreateProfileRequest struct {
	ID    string `json:"id" validate:"required,max=64"`
	Title string `json:"title" validate:"max=256"`
}

// ImportAlbumsRequest lists the albums to import into a profile.
type ImportAlbumsRequest struct {
	Items []profile.ImportItem `json:"items" validate:"required,min=1,max=500,dive"`
}

// ProfileResponse is the API shape of a profile.
type ProfileResponse struct {
	ID     string               `json:"id"`
	Title  string               `json:"title"`
	Albums []profile.AlbumEntry `json:"albums"`
}

func newProfileResponse(p profile.Profile) ProfileResponse {
	return ProfileResponse{ID: p.ID, Title: p.Title, Albums: p.SortedAlbums()}
}

// ImportAlbumsResponse summarizes an import.
type ImportAlbumsResponse struct {
	Added      int                    `json:"added"`
	Subscribed int                    `json:"subscribed"`
	Skipped    int                    `json:"skipped"`
	Results    []profile.ImportResult `json:"results"`
}

func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req CreateProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	p, err := h.profiles.CreateProfile(r.Context(), req.ID, req.Title)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/profiles/"+p.ID)
	respondSuccess(w, r, http.StatusCreated, newProfileResponse(p))
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.GetProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, newProfileResponse(p))
}

// ImportAlbums attaches resolved albums to the profile right away and
// subscribes the profile to the rest.
func (h *Handler) ImportAlbums(w http.ResponseWriter, r *http.Request) {
	var req ImportAlbumsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	results, err := h.profiles.ImportAlbums(r.Context(), chi.URLParam(r, "id"), req.Items)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := ImportAlbumsResponse{Results: results}
	for _, res := range results {
		switch res.Outcome {
		case profile.OutcomeAdded:
			resp.Added++
		case profile.OutcomeSubscribed:
			resp.Subscribed++
		case profile.OutcomeSkipped:
			resp.Skipped++
		}
	}
	respondSuccess(w, r, http.StatusOK, resp)
}
