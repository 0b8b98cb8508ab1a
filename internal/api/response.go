// Resonate - Personal Music Catalog and Smart Shuffle Engine
// Copyright 2026 James Whitmore (jwhitmore)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jwhitmore/resonate

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/jwhitmore/resonate/internal/logging"
)

// APIResponse is the wrapper shared by every endpoint: exactly one of Data
// and Error is set.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *APIMeta  `json:"meta,omitempty"`
}

// APIError carries a machine-readable code alongside the human-readable
// message.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// APIMeta is attached to every response for tracing and timing.
type APIMeta struct {
	RequestID  string    `json:"request_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms,omitempty"`

	Pagination *PaginationMeta `json:"pagination,omitempty"`
}

// PaginationMeta describes the window of a list response.
type PaginationMeta struct {
	Count  int `json:"count"`
	Offset int `json:"offset,omitempty"`
	Limit  int `json:"limit,omitempty"`
}

// Error codes for API responses.
const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeDatabaseError    = "DATABASE_ERROR"
)

// ResponseWriter writes standardized API responses for one request.
type ResponseWriter struct {
	w         http.ResponseWriter
	r         *http.Request
	startTime time.Time
}

// NewResponseWriter creates a response writer bound to one request.
func NewResponseWriter(w http.ResponseWriter, r *http.Request) *ResponseWriter {
	return &ResponseWriter{
		w:         w,
		r:         r,
		startTime: time.Now(),
	}
}

// Success writes a 200 response with data.
func (rw *ResponseWriter) Success(data any) {
	rw.SuccessWithMeta(data, nil)
}

// SuccessWithMeta writes a 200 response with data and extra metadata.
func (rw *ResponseWriter) SuccessWithMeta(data any, meta *APIMeta) {
	if meta == nil {
		meta = &APIMeta{}
	}
	rw.fillMeta(meta)

	rw.writeJSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// SuccessWithPagination writes a 200 list response.
func (rw *ResponseWriter) SuccessWithPagination(data any, pagination *PaginationMeta) {
	rw.SuccessWithMeta(data, &APIMeta{Pagination: pagination})
}

// Created writes a 201 response with data.
func (rw *ResponseWriter) Created(data any) {
	meta := &APIMeta{}
	rw.fillMeta(meta)

	rw.writeJSON(http.StatusCreated, APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// Error writes an error response with the given status code.
func (rw *ResponseWriter) Error(statusCode int, code, message string) {
	rw.ErrorWithDetails(statusCode, code, message, nil)
}

// ErrorWithDetails writes an error response with additional details.
func (rw *ResponseWriter) ErrorWithDetails(statusCode int, code, message string, details any) {
	meta := &APIMeta{}
	rw.fillMeta(meta)

	rw.writeJSON(statusCode, APIResponse{
		Success: false,
		Error: &APIError{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: meta.RequestID,
		},
		Meta: meta,
	})
}

// BadRequest writes a 400 error.
func (rw *ResponseWriter) BadRequest(message string) {
	rw.Error(http.StatusBadRequest, ErrCodeBadRequest, message)
}

// NotFound writes a 404 error.
func (rw *ResponseWriter) NotFound(message string) {
	rw.Error(http.StatusNotFound, ErrCodeNotFound, message)
}

// ValidationError writes a 400 error with per-field details.
func (rw *ResponseWriter) ValidationError(message string, validationErrors any) {
	rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidationFailed, message, validationErrors)
}

// InternalError writes a 500 error.
func (rw *ResponseWriter) InternalError(message string) {
	rw.Error(http.StatusInternalServerError, ErrCodeInternalError, message)
}

// DatabaseError logs the failure and writes a 500 without leaking the cause.
func (rw *ResponseWriter) DatabaseError(err error) {
	logging.Error().Err(err).Msg("Database error")
	rw.Error(http.StatusInternalServerError, ErrCodeDatabaseError, "A storage error occurred")
}

func (rw *ResponseWriter) fillMeta(meta *APIMeta) {
	meta.Timestamp = time.Now()
	meta.DurationMs = time.Since(rw.startTime).Milliseconds()
	meta.RequestID = logging.RequestIDFromContext(rw.r.Context())
}

func (rw *ResponseWriter) writeJSON(statusCode int, data any) {
	rw.w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.w.WriteHeader(statusCode)

	if err := json.NewEncoder(rw.w).Encode(data); err != nil {
		logging.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
