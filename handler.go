package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arunvm123/gigbooking/model"
)

// respond writes the envelope with its own status code.
func respond(c *gin.Context, resp *model.APIResponse) {
	c.JSON(resp.StatusCode, resp)
}

func respondError(c *gin.Context, err error) {
	respond(c, model.NewErrorResponse(err))
}

func bindError(c *gin.Context, err error) {
	respondError(c, fmt.Errorf("%w: %s", model.ErrValidation, err.Error()))
}

// mustPrincipal returns the authenticated caller, writing a 401 when there
// is none.
func mustPrincipal(c *gin.Context) (model.Principal, bool) {
	p, ok := principalFrom(c)
	if !ok {
		respondError(c, model.ErrUnauthenticated)
	}
	return p, ok
}

func bindPagination(c *gin.Context) (model.PaginationParams, bool) {
	var params model.PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		bindError(c, err)
		return params, false
	}
	return params, true
}

// HealthCheck reports whether each dependency answers.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	service string
	checks  map[string]HealthCheck
	// required checks turn the service unhealthy when they fail
	required map[string]bool
}

func NewHealthHandler(service string) *HealthHandler {
	return &HealthHandler{
		service:  service,
		checks:   map[string]HealthCheck{},
		required: map[string]bool{},
	}
}

// Add registers a dependency check. A failing required check makes the
// service report 503; an optional one only marks itself degraded.
func (h *HealthHandler) Add(name string, check HealthCheck, required bool) *HealthHandler {
	h.checks[name] = check
	h.required[name] = required
	return h
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	results := make(map[string]string, len(h.checks))

	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = "down"
			if h.required[name] {
				status = "unhealthy"
				code = http.StatusServiceUnavailable
			} else if status == "healthy" {
				status = "degraded"
			}
			continue
		}
		results[name] = "up"
	}

	c.JSON(code, model.HealthResponse{
		Status:    status,
		Service:   h.service,
		Checks:    results,
		Timestamp: time.Now(),
	})
}
