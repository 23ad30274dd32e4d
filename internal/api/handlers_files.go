// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tomtom215/lute/internal/files"
)

// maxContentBytes bounds an uploaded page.
const maxContentBytes = 8 << 20

// FileContentResponse carries stored page content. Content is base64 in JSON.
type FileContentResponse struct {
	FileName string `json:"file_name"`
	Content  []byte `json:"content"`
}

// FileSavedResponse acknowledges a PutFileContent.
type FileSavedResponse struct {
	FileName string `json:"file_name"`
	Size     int    `json:"size"`
}

// parseFileNameQuery validates the file_name query parameter and writes the
// error response itself when it fails.
func parseFileNameQuery(w http.ResponseWriter, r *http.Request) (files.FileName, bool) {
	q := FileNameQuery{FileName: r.URL.Query().Get("file_name")}
	if apiErr := validateRequest(&q); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr, nil)
		return files.FileName{}, false
	}
	name, err := files.ParseFileName(q.FileName)
	if err != nil {
		respondDomainError(w, r, err)
		return files.FileName{}, false
	}
	return name, true
}

func (h *Handler) requireContentStore(w http.ResponseWriter, r *http.Request) bool {
	if h.contents != nil {
		return true
	}
	respondError(w, r, http.StatusServiceUnavailable,
		&APIError{Code: CodeUnavailable, Message: "content store is not configured"}, nil)
	return false
}

// ListFiles returns every stored file name.
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	if !h.requireContentStore(w, r) {
		return
	}
	names, err := h.contents.ListFiles(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, n.String())
	}
	respondSuccess(w, r, http.StatusOK, out)
}

// GetFileContent returns the content stored under ?file_name=.
func (h *Handler) GetFileContent(w http.ResponseWriter, r *http.Request) {
	if !h.requireContentStore(w, r) {
		return
	}
	name, ok := parseFileNameQuery(w, r)
	if !ok {
		return
	}
	content, err := h.contents.Get(r.Context(), name)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, FileContentResponse{FileName: name.String(), Content: content})
}

// PutFileContent stores the raw request body under ?file_name=.
func (h *Handler) PutFileContent(w http.ResponseWriter, r *http.Request) {
	if !h.requireContentStore(w, r) {
		return
	}
	name, ok := parseFileNameQuery(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxContentBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, r, http.StatusRequestEntityTooLarge, &APIError{
				Code:    CodeInvalidBody,
				Message: fmt.Sprintf("content exceeds %d bytes", maxContentBytes),
			}, nil)
			return
		}
		respondError(w, r, http.StatusBadRequest, &APIError{Code: CodeInvalidBody, Message: "failed to read body"}, err)
		return
	}
	if len(body) == 0 {
		respondError(w, r, http.StatusBadRequest, &APIError{Code: CodeInvalidBody, Message: "content is empty"}, nil)
		return
	}

	if err := h.contents.Put(r.Context(), name, body); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, FileSavedResponse{FileName: name.String(), Size: len(body)})
}
