// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package api

import (
	"errors"
	"net/http"

	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/lute/internal/broker"
	"github.com/tomtom215/lute/internal/files"
	"github.com/tomtom215/lute/internal/lookup"
	"github.com/tomtom215/lute/internal/profile"
	"github.com/tomtom215/lute/internal/search"
)

// Error codes returned in the error envelope.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeInvalidBody      = "INVALID_BODY"
	CodeInvalidQuery     = "INVALID_QUERY"
	CodeInvalidFileName  = "INVALID_FILE_NAME"
	CodeInvalidProfileID = "INVALID_PROFILE_ID"
	CodeProfileNotFound  = "PROFILE_NOT_FOUND"
	CodeProfileExists    = "PROFILE_EXISTS"
	CodeLookupNotFound   = "LOOKUP_NOT_FOUND"
	CodeFileNotFound     = "FILE_NOT_FOUND"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
	CodeRateLimited      = "RATE_LIMITED"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeInternal         = "INTERNAL_ERROR"
)

// classifyError maps domain errors to a status, code, and client message.
// Unknown errors are reported as 500 without leaking their text.
func classifyError(err error) (status int, code, message string) {
	switch {
	case errors.Is(err, search.ErrInvalidQuery):
		return http.StatusBadRequest, CodeInvalidQuery, err.Error()
	case errors.Is(err, files.ErrInvalidFileName):
		return http.StatusBadRequest, CodeInvalidFileName, err.Error()
	case errors.Is(err, profile.ErrInvalidProfileID):
		return http.StatusBadRequest, CodeInvalidProfileID, "profile id must be 1-64 letters, digits, '-' or '_'"
	case errors.Is(err, profile.ErrProfileNotFound):
		return http.StatusNotFound, CodeProfileNotFound, "profile not found"
	case errors.Is(err, profile.ErrProfileExists):
		return http.StatusConflict, CodeProfileExists, "profile already exists"
	case errors.Is(err, files.ErrFileNotFound):
		return http.StatusNotFound, CodeFileNotFound, "file not found"
	case errors.Is(err, lookup.ErrNotFound):
		return http.StatusNotFound, CodeLookupNotFound, "album search lookup not found"
	case errors.Is(err, broker.ErrTransport),
		errors.Is(err, gobreaker.ErrOpenState),
		errors.Is(err, gobreaker.ErrTooManyRequests):
		return http.StatusServiceUnavailable, CodeUnavailable, "a backing service is unavailable, retry later"
	default:
		return http.StatusInternalServerError, CodeInternal, "internal server error"
	}
}
