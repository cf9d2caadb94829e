package model

import (
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled, BookingStatusCompleted:
		return true
	}
	return false
}

// HoldsCapacity reports whether a booking in this status counts against the
// event's capacity.
func (s BookingStatus) HoldsCapacity() bool {
	return s != BookingStatusCancelled
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
	PaymentStatusFailed   PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusRefunded, PaymentStatusFailed:
		return true
	}
	return false
}

// ============================================================================
// DATABASE ENTITIES (Internal - GORM only, no JSON tags)
// ============================================================================

// Booking is never deleted; cancellation is a status change.
type Booking struct {
	ID              string        `gorm:"type:text;primary_key"`
	EventID         string        `gorm:"type:text;not null;index"`
	UserID          string        `gorm:"type:text;not null;index"`
	NumberOfTickets int           `gorm:"not null;check:chk_bookings_tickets,number_of_tickets > 0"`
	TotalAmount     float64       `gorm:"type:decimal(10,2);not null"`
	SpecialRequests string        `gorm:"type:text"`
	Status          BookingStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	PaymentStatus   PaymentStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (Booking) TableName() string {
	return "bookings"
}

func (b *Booking) ToBookingResponse() *BookingResponse {
	return &BookingResponse{
		ID:              b.ID,
		EventID:         b.EventID,
		UserID:          b.UserID,
		NumberOfTickets: b.NumberOfTickets,
		TotalAmount:     b.TotalAmount,
		SpecialRequests: b.SpecialRequests,
		Status:          b.Status,
		PaymentStatus:   b.PaymentStatus,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func ToBookingResponses(bookings []Booking) []*BookingResponse {
	out := make([]*BookingResponse, 0, len(bookings))
	for i := range bookings {
		out = append(out, bookings[i].ToBookingResponse())
	}
	return out
}

// ============================================================================
// REPOSITORY DATA TRANSFER OBJECTS (Internal - no JSON tags)
// ============================================================================

type CreateBookingRequest struct {
	EventID         string
	UserID          string
	NumberOfTickets int
	TotalAmount     float64
	SpecialRequests string
}

// UpdateBookingStatusRequest moves a booking from one status pair to another.
// The write only applies while the stored pair still equals the From pair.
type UpdateBookingStatusRequest struct {
	BookingID         string
	FromStatus        BookingStatus
	FromPaymentStatus PaymentStatus
	Status            BookingStatus
	PaymentStatus     PaymentStatus
}

type BookingFilter struct {
	UserID        string
	EventID       string
	Status        BookingStatus
	PaymentStatus PaymentStatus
	Params        PaginationParams
}

// BookingSortColumns whitelists the sortBy values accepted for bookings.
var BookingSortColumns = map[string]string{
	"createdAt":       "created_at",
	"totalAmount":     "total_amount",
	"numberOfTickets": "number_of_tickets",
}

// ============================================================================
// API DATA TRANSFER OBJECTS (External - JSON tags for HTTP)
// ============================================================================

type CreateBookingInput struct {
	EventID         string `json:"eventId" binding:"required"`
	NumberOfTickets int    `json:"numberOfTickets" binding:"required"`
	SpecialRequests string `json:"specialRequests"`
}

// ListBookingsQuery is the admin listing filter. Empty fields match everything.
type ListBookingsQuery struct {
	PaginationParams
	Status        BookingStatus `form:"status"`
	PaymentStatus PaymentStatus `form:"paymentStatus"`
}

type UpdateBookingStatusInput struct {
	Status        BookingStatus `json:"status" binding:"required"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
}

type BookingResponse struct {
	ID              string        `json:"id"`
	EventID         string        `json:"eventId"`
	UserID          string        `json:"userId"`
	NumberOfTickets int           `json:"numberOfTickets"`
	TotalAmount     float64       `json:"totalAmount"`
	SpecialRequests string        `json:"specialRequests,omitempty"`
	Status          BookingStatus `json:"status"`
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// ============================================================================
// KAFKA MESSAGE STRUCTURES
// ============================================================================

type LifecycleEventType string

const (
	LifecycleBookingCreated       LifecycleEventType = "booking_created"
	LifecycleBookingStatusChanged LifecycleEventType = "booking_status_changed"
	LifecycleBookingCancelled     LifecycleEventType = "booking_cancelled"
)

// BookingLifecycleEvent is published after a booking mutation commits.
type BookingLifecycleEvent struct {
	ID              string             `json:"id"`
	Type            LifecycleEventType `json:"type"`
	BookingID       string             `json:"bookingId"`
	EventID         string             `json:"eventId"`
	UserID          string             `json:"userId"`
	NumberOfTickets int                `json:"numberOfTickets"`
	TotalAmount     float64            `json:"totalAmount"`
	Status          BookingStatus      `json:"status"`
	PaymentStatus   PaymentStatus      `json:"paymentStatus"`
	OccurredAt      time.Time          `json:"occurredAt"`
}

type PaymentOutcome string

const (
	PaymentOutcomePaid     PaymentOutcome = "paid"
	PaymentOutcomeFailed   PaymentOutcome = "failed"
	PaymentOutcomeRefunded PaymentOutcome = "refunded"
)

// PaymentResult is consumed from the payment results topic. Payment is
// executed elsewhere; this service only records the outcome.
type PaymentResult struct {
	BookingID string         `json:"bookingId"`
	Outcome   PaymentOutcome `json:"outcome"`
	Reference string         `json:"reference,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
