package main

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/arunvm123/gigbooking/model"
)

type bookingService interface {
	CreateBooking(ctx context.Context, principal model.Principal, input model.CreateBookingInput) *model.APIResponse
	UpdateBookingStatus(ctx context.Context, id string, input model.UpdateBookingStatusInput) *model.APIResponse
	CancelBooking(ctx context.Context, id string, principal model.Principal) *model.APIResponse
	GetBooking(ctx context.Context, id string, principal model.Principal) *model.APIResponse
	ListBookings(ctx context.Context, principal model.Principal, query model.ListBookingsQuery) *model.APIResponse
	ListUserBookings(ctx context.Context, principal model.Principal, params model.PaginationParams) *model.APIResponse
	ListEventBookings(ctx context.Context, eventID string, principal model.Principal, params model.PaginationParams) *model.APIResponse
}

type BookingHandler struct {
	bookings bookingService
}

func NewBookingHandler(bookings bookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

// CreateBooking reserves tickets for the caller
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	var input model.CreateBookingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	respond(c, h.bookings.CreateBooking(c.Request.Context(), principal, input))
}

func (h *BookingHandler) GetBooking(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	respond(c, h.bookings.GetBooking(c.Request.Context(), c.Param("id"), principal))
}

// ListBookings lists every booking (admin)
func (h *BookingHandler) ListBookings(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	var query model.ListBookingsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		bindError(c, err)
		return
	}

	respond(c, h.bookings.ListBookings(c.Request.Context(), principal, query))
}

func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	params, ok := bindPagination(c)
	if !ok {
		return
	}
	respond(c, h.bookings.ListUserBookings(c.Request.Context(), principal, params))
}

func (h *BookingHandler) ListEventBookings(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	params, ok := bindPagination(c)
	if !ok {
		return
	}
	respond(c, h.bookings.ListEventBookings(c.Request.Context(), c.Param("id"), principal, params))
}

// UpdateBookingStatus moves a booking through its lifecycle (admin)
func (h *BookingHandler) UpdateBookingStatus(c *gin.Context) {
	var input model.UpdateBookingStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	respond(c, h.bookings.UpdateBookingStatus(c.Request.Context(), c.Param("id"), input))
}

func (h *BookingHandler) CancelBooking(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	respond(c, h.bookings.CancelBooking(c.Request.Context(), c.Param("id"), principal))
}
