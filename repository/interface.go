package repository

import (
	"context"

	"github.com/arunvm123/gigbooking/model"
)

// EventRepository defines the interface for event data operations
type EventRepository interface {
	Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	FindByID(ctx context.Context, id string) (*model.Event, error)
	// Update applies req and reports false when the event no longer matches
	// req.ExpectedStatus.
	Update(ctx context.Context, req model.UpdateEventRequest) (bool, error)
	// DeleteDraft removes an event that was never published.
	DeleteDraft(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, filter model.EventFilter) ([]model.Event, int64, error)

	// Capacity operations. Each is a single guarded statement and reports
	// whether the guard admitted the change.
	UpdateCapacity(ctx context.Context, req model.UpdateCapacityRequest) (bool, error)
	FloorCapacity(ctx context.Context, eventID string, quantity int) (bool, error)
}

// BookingRepository defines the interface for booking data operations
type BookingRepository interface {
	Create(ctx context.Context, req model.CreateBookingRequest) (*model.Booking, error)
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	// UpdateStatus is a compare-and-set on the booking's status pair.
	UpdateStatus(ctx context.Context, req model.UpdateBookingStatusRequest) (bool, error)
	List(ctx context.Context, filter model.BookingFilter) ([]model.Booking, int64, error)
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, req model.CreateUserRequest) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	ValidatePassword(user *model.User, password string) bool
}
