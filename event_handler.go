package main

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/arunvm123/gigbooking/model"
)

type eventService interface {
	CreateEvent(ctx context.Context, principal model.Principal, input model.CreateEventInput) *model.APIResponse
	GetEvent(ctx context.Context, id string) *model.APIResponse
	ListEvents(ctx context.Context, params model.PaginationParams) *model.APIResponse
	ListUpcomingEvents(ctx context.Context, params model.PaginationParams) *model.APIResponse
	ListEventsByGenre(ctx context.Context, genre string, params model.PaginationParams) *model.APIResponse
	ListArtistEvents(ctx context.Context, artistID string, params model.PaginationParams) *model.APIResponse
	ListMyEvents(ctx context.Context, principal model.Principal, params model.PaginationParams) *model.APIResponse
	UpdateEvent(ctx context.Context, id string, principal model.Principal, input model.UpdateEventInput) *model.APIResponse
	DeleteEvent(ctx context.Context, id string, principal model.Principal) *model.APIResponse
}

type EventHandler struct {
	events eventService
}

func NewEventHandler(events eventService) *EventHandler {
	return &EventHandler{events: events}
}

func (h *EventHandler) CreateEvent(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	var input model.CreateEventInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	respond(c, h.events.CreateEvent(c.Request.Context(), principal, input))
}

func (h *EventHandler) GetEvent(c *gin.Context) {
	respond(c, h.events.GetEvent(c.Request.Context(), c.Param("id")))
}

func (h *EventHandler) ListEvents(c *gin.Context) {
	if params, ok := bindPagination(c); ok {
		respond(c, h.events.ListEvents(c.Request.Context(), params))
	}
}

func (h *EventHandler) ListUpcomingEvents(c *gin.Context) {
	if params, ok := bindPagination(c); ok {
		respond(c, h.events.ListUpcomingEvents(c.Request.Context(), params))
	}
}

func (h *EventHandler) ListEventsByGenre(c *gin.Context) {
	if params, ok := bindPagination(c); ok {
		respond(c, h.events.ListEventsByGenre(c.Request.Context(), c.Param("genre"), params))
	}
}

func (h *EventHandler) ListArtistEvents(c *gin.Context) {
	if params, ok := bindPagination(c); ok {
		respond(c, h.events.ListArtistEvents(c.Request.Context(), c.Param("artistId"), params))
	}
}

// ListMyEvents lists the caller's own events, drafts included
func (h *EventHandler) ListMyEvents(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	if params, ok := bindPagination(c); ok {
		respond(c, h.events.ListMyEvents(c.Request.Context(), principal, params))
	}
}

func (h *EventHandler) UpdateEvent(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	var input model.UpdateEventInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	respond(c, h.events.UpdateEvent(c.Request.Context(), c.Param("id"), principal, input))
}

func (h *EventHandler) DeleteEvent(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	respond(c, h.events.DeleteEvent(c.Request.Context(), c.Param("id"), principal))
}
