package model

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	SortAsc  = "asc"
	SortDesc = "desc"

	DefaultSortBy = "createdAt"
)

// APIResponse is the envelope every use case returns, on success and on failure.
type APIResponse struct {
	StatusCode int         `json:"statusCode"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

func NewPagination(total int64, params PaginationParams) *Pagination {
	totalPages := 0
	if params.Limit > 0 {
		totalPages = int((total + int64(params.Limit) - 1) / int64(params.Limit))
	}
	return &Pagination{
		Total:      total,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: totalPages,
	}
}

// PaginationParams are the list query parameters. Field order is part of the
// cache key format, so do not reorder.
type PaginationParams struct {
	Page      int    `json:"page" form:"page"`
	Limit     int    `json:"limit" form:"limit"`
	SortBy    string `json:"sortBy" form:"sortBy"`
	SortOrder string `json:"sortOrder" form:"sortOrder"`
}

// Normalize fills defaults and clamps out-of-range values.
func (p PaginationParams) Normalize() PaginationParams {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.SortBy == "" {
		p.SortBy = DefaultSortBy
	}
	p.SortOrder = strings.ToLower(p.SortOrder)
	if p.SortOrder != SortAsc {
		p.SortOrder = SortDesc
	}
	return p
}

func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// CacheKey serialises the params for use as the trailing part of a list cache key.
func (p PaginationParams) CacheKey() string {
	b, _ := json.Marshal(p)
	return string(b)
}

func NewResponse(statusCode int, message string, data interface{}) *APIResponse {
	return &APIResponse{StatusCode: statusCode, Message: message, Data: data}
}

func NewListResponse(message string, data interface{}, pagination *Pagination) *APIResponse {
	return &APIResponse{StatusCode: http.StatusOK, Message: message, Data: data, Pagination: pagination}
}

// NewErrorResponse builds the envelope for a failed use case. Internal errors
// never leak their cause.
func NewErrorResponse(err error) *APIResponse {
	code := StatusCode(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "internal server error"
	}
	return &APIResponse{StatusCode: code, Message: msg, Data: nil}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
