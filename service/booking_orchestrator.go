package service

import (
	"context"
	"fmt"
	"math"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arunvm123/gigbooking/cache"
	"github.com/arunvm123/gigbooking/clock"
	"github.com/arunvm123/gigbooking/model"
	"github.com/arunvm123/gigbooking/repository"
)

// BookingOrchestrator drives every booking use case. Capacity changes go
// through the ledger, status changes through the state machine, and cached
// reads are invalidated only after the store write has committed.
type BookingOrchestrator struct {
	events    repository.EventRepository
	bookings  repository.BookingRepository
	ledger    *CapacityLedger
	cache     *cache.Coordinator
	publisher LifecyclePublisher
	clock     clock.Clock
	logger    *zap.Logger
}

// NewBookingOrchestrator wires the orchestrator. publisher may be nil, in
// which case lifecycle events are not announced.
func NewBookingOrchestrator(
	events repository.EventRepository,
	bookings repository.BookingRepository,
	ledger *CapacityLedger,
	cache *cache.Coordinator,
	publisher LifecyclePublisher,
	clk clock.Clock,
	logger *zap.Logger,
) *BookingOrchestrator {
	return &BookingOrchestrator{
		events:    events,
		bookings:  bookings,
		ledger:    ledger,
		cache:     cache,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
	}
}

func (o *BookingOrchestrator) CreateBooking(ctx context.Context, principal model.Principal, input model.CreateBookingInput) *model.APIResponse {
	booking, err := o.createBooking(ctx, principal.UserID, input)
	if err != nil {
		return fail(o.logger, "create booking", err,
			zap.String("event_id", input.EventID), zap.String("user_id", principal.UserID))
	}

	o.afterCommit(ctx, booking, model.LifecycleBookingCreated)
	return model.NewResponse(http.StatusCreated, "Booking created successfully", booking.ToBookingResponse())
}

func (o *BookingOrchestrator) createBooking(ctx context.Context, userID string, input model.CreateBookingInput) (*model.Booking, error) {
	if input.NumberOfTickets <= 0 {
		return nil, fmt.Errorf("%w: numberOfTickets must be a positive integer", model.ErrValidation)
	}

	event, err := o.events.FindByID(ctx, input.EventID)
	if err != nil {
		return nil, err
	}
	if err := event.Bookable(o.clock.Now()); err != nil {
		return nil, err
	}

	var booking *model.Booking
	s := newSaga("create_booking", o.logger,
		sagaStep{
			name: "reserve_capacity",
			// A counter update that commits must also report success, so the
			// statement is not abandoned when the caller goes away.
			forward: func(ctx context.Context) error {
				return o.ledger.Reserve(context.WithoutCancel(ctx), event.ID, input.NumberOfTickets)
			},
			compensate: func(ctx context.Context) error {
				return o.ledger.Release(ctx, event.ID, input.NumberOfTickets)
			},
		},
		sagaStep{
			name: "persist_booking",
			forward: func(ctx context.Context) error {
				var err error
				booking, err = o.bookings.Create(ctx, model.CreateBookingRequest{
					EventID:         event.ID,
					UserID:          userID,
					NumberOfTickets: input.NumberOfTickets,
					TotalAmount:     totalAmount(event.Price, input.NumberOfTickets),
					SpecialRequests: input.SpecialRequests,
				})
				return err
			},
		},
	)
	if err := s.run(ctx); err != nil {
		return nil, err
	}

	return booking, nil
}

// UpdateBookingStatus moves a booking to the target status pair. Moving into
// Cancelled releases the booking's tickets exactly once.
func (o *BookingOrchestrator) UpdateBookingStatus(ctx context.Context, id string, input model.UpdateBookingStatusInput) *model.APIResponse {
	booking, err := o.bookings.FindByID(ctx, id)
	if err != nil {
		return fail(o.logger, "update booking status", err, zap.String("booking_id", id))
	}

	target := input.PaymentStatus
	if target == "" {
		target = booking.PaymentStatus
	}
	// A confirmed booking must carry its payment; a (Confirmed, Pending) pair
	// could never take a later payment result.
	if input.Status == model.BookingStatusConfirmed && target != model.PaymentStatusPaid {
		return fail(o.logger, "update booking status",
			fmt.Errorf("%w: a booking can only be confirmed with paymentStatus paid", model.ErrValidation),
			zap.String("booking_id", id))
	}

	updated, err := o.transition(ctx, booking, input.Status, target)
	if err != nil {
		return fail(o.logger, "update booking status", err, zap.String("booking_id", id))
	}

	return model.NewResponse(http.StatusOK, "Booking status updated successfully", updated.ToBookingResponse())
}

// CancelBooking cancels a booking on behalf of its owner or an admin.
func (o *BookingOrchestrator) CancelBooking(ctx context.Context, id string, principal model.Principal) *model.APIResponse {
	booking, err := o.bookings.FindByID(ctx, id)
	if err != nil {
		return fail(o.logger, "cancel booking", err, zap.String("booking_id", id))
	}
	if !principal.CanAccessBooking(booking.UserID) {
		return fail(o.logger, "cancel booking", model.ErrForbidden,
			zap.String("booking_id", id), zap.String("user_id", principal.UserID))
	}

	updated, err := o.transition(ctx, booking, model.BookingStatusCancelled, CancellationPaymentStatus(booking.PaymentStatus))
	if err != nil {
		return fail(o.logger, "cancel booking", err, zap.String("booking_id", id))
	}

	return model.NewResponse(http.StatusOK, "Booking cancelled successfully", updated.ToBookingResponse())
}

// ApplyPaymentResult records the outcome of a payment executed elsewhere.
// Redelivery of an outcome that is already recorded is a no-op.
func (o *BookingOrchestrator) ApplyPaymentResult(ctx context.Context, result model.PaymentResult) error {
	booking, err := o.bookings.FindByID(ctx, result.BookingID)
	if err != nil {
		return err
	}

	var (
		status  model.BookingStatus
		payment model.PaymentStatus
	)
	switch result.Outcome {
	case model.PaymentOutcomePaid:
		status, payment = model.BookingStatusConfirmed, model.PaymentStatusPaid
	case model.PaymentOutcomeFailed:
		status, payment = model.BookingStatusCancelled, model.PaymentStatusFailed
	case model.PaymentOutcomeRefunded:
		status, payment = model.BookingStatusCancelled, model.PaymentStatusRefunded
	default:
		return fmt.Errorf("%w: unknown payment outcome %q", model.ErrValidation, result.Outcome)
	}

	if booking.Status == status && booking.PaymentStatus == payment {
		return nil
	}

	_, err = o.transition(ctx, booking, status, payment)
	return err
}

// transition validates and applies a status change. The status write is a
// compare-and-set on the booking's current pair, so of two concurrent callers
// only one can win and only the winner releases capacity.
func (o *BookingOrchestrator) transition(ctx context.Context, booking *model.Booking, status model.BookingStatus, payment model.PaymentStatus) (*model.Booking, error) {
	if err := ValidateTransition(booking.Status, booking.PaymentStatus, status, payment); err != nil {
		return nil, err
	}

	steps := []sagaStep{{
		name: "update_status",
		forward: func(ctx context.Context) error {
			ok, err := o.bookings.UpdateStatus(ctx, model.UpdateBookingStatusRequest{
				BookingID:         booking.ID,
				FromStatus:        booking.Status,
				FromPaymentStatus: booking.PaymentStatus,
				Status:            status,
				PaymentStatus:     payment,
			})
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: booking %s was changed concurrently", model.ErrInvalidTransition, booking.ID)
			}
			return nil
		},
		compensate: func(ctx context.Context) error {
			ok, err := o.bookings.UpdateStatus(ctx, model.UpdateBookingStatusRequest{
				BookingID:         booking.ID,
				FromStatus:        status,
				FromPaymentStatus: payment,
				Status:            booking.Status,
				PaymentStatus:     booking.PaymentStatus,
			})
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("booking %s changed before its status could be restored", booking.ID)
			}
			return nil
		},
	}}

	if booking.Status.HoldsCapacity() && !status.HoldsCapacity() {
		steps = append(steps, sagaStep{
			name: "release_capacity",
			forward: func(ctx context.Context) error {
				return o.ledger.Release(context.WithoutCancel(ctx), booking.EventID, booking.NumberOfTickets)
			},
		})
	}

	if err := newSaga("transition_booking", o.logger, steps...).run(ctx); err != nil {
		return nil, err
	}

	updated := *booking
	updated.Status = status
	updated.PaymentStatus = payment
	updated.UpdatedAt = o.clock.Now()

	eventType := model.LifecycleBookingStatusChanged
	if status == model.BookingStatusCancelled {
		eventType = model.LifecycleBookingCancelled
	}
	o.afterCommit(ctx, &updated, eventType)

	return &updated, nil
}

func (o *BookingOrchestrator) GetBooking(ctx context.Context, id string, principal model.Principal) *model.APIResponse {
	booking, err := cache.ReadThrough(ctx, o.cache, cache.Key(cache.FamilyBooking, id),
		func(ctx context.Context) (*model.BookingResponse, error) {
			b, err := o.bookings.FindByID(ctx, id)
			if err != nil {
				return nil, err
			}
			return b.ToBookingResponse(), nil
		})
	if err != nil {
		return fail(o.logger, "get booking", err, zap.String("booking_id", id))
	}
	if !principal.CanAccessBooking(booking.UserID) {
		return fail(o.logger, "get booking", model.ErrForbidden,
			zap.String("booking_id", id), zap.String("user_id", principal.UserID))
	}

	return model.NewResponse(http.StatusOK, "Booking retrieved successfully", booking)
}

// ListBookings lists every booking, optionally narrowed by status and
// payment status. Admin only.
func (o *BookingOrchestrator) ListBookings(ctx context.Context, principal model.Principal, query model.ListBookingsQuery) *model.APIResponse {
	if !principal.IsAdmin() {
		return fail(o.logger, "list bookings", model.ErrForbidden, zap.String("user_id", principal.UserID))
	}
	if query.Status != "" && !query.Status.Valid() {
		return fail(o.logger, "list bookings", fmt.Errorf("%w: unknown booking status %q", model.ErrValidation, query.Status))
	}
	if query.PaymentStatus != "" && !query.PaymentStatus.Valid() {
		return fail(o.logger, "list bookings", fmt.Errorf("%w: unknown payment status %q", model.ErrValidation, query.PaymentStatus))
	}

	params := query.PaginationParams.Normalize()
	var parts []string
	if query.Status != "" {
		parts = append(parts, "status", string(query.Status))
	}
	if query.PaymentStatus != "" {
		parts = append(parts, "payment", string(query.PaymentStatus))
	}
	if len(parts) == 0 {
		parts = append(parts, "all")
	}
	parts = append(parts, params.CacheKey())

	return o.listBookings(ctx, "list bookings", cache.Key(cache.FamilyBooking, parts...), model.BookingFilter{
		Status:        query.Status,
		PaymentStatus: query.PaymentStatus,
		Params:        params,
	})
}

func (o *BookingOrchestrator) ListUserBookings(ctx context.Context, principal model.Principal, params model.PaginationParams) *model.APIResponse {
	params = params.Normalize()
	key := cache.Key(cache.FamilyBooking, "user", principal.UserID, params.CacheKey())
	return o.listBookings(ctx, "list user bookings", key, model.BookingFilter{
		UserID: principal.UserID,
		Params: params,
	})
}

// ListEventBookings lists the bookings of one event for its artist or an admin.
func (o *BookingOrchestrator) ListEventBookings(ctx context.Context, eventID string, principal model.Principal, params model.PaginationParams) *model.APIResponse {
	event, err := o.events.FindByID(ctx, eventID)
	if err != nil {
		return fail(o.logger, "list event bookings", err, zap.String("event_id", eventID))
	}
	if !principal.CanManageEvent(event.ArtistID) {
		return fail(o.logger, "list event bookings", model.ErrForbidden,
			zap.String("event_id", eventID), zap.String("user_id", principal.UserID))
	}

	params = params.Normalize()
	key := cache.Key(cache.FamilyBooking, "event", eventID, params.CacheKey())
	return o.listBookings(ctx, "list event bookings", key, model.BookingFilter{
		EventID: eventID,
		Params:  params,
	})
}

func (o *BookingOrchestrator) listBookings(ctx context.Context, op, key string, filter model.BookingFilter) *model.APIResponse {
	result, err := cache.ReadThrough(ctx, o.cache, key, func(ctx context.Context) (page[*model.BookingResponse], error) {
		bookings, total, err := o.bookings.List(ctx, filter)
		if err != nil {
			return page[*model.BookingResponse]{}, err
		}
		return page[*model.BookingResponse]{
			Items:      model.ToBookingResponses(bookings),
			Pagination: model.NewPagination(total, filter.Params),
		}, nil
	})
	if err != nil {
		return fail(o.logger, op, err)
	}

	return model.NewListResponse("Bookings retrieved successfully", result.Items, result.Pagination)
}

// afterCommit invalidates the cached families a booking change affects and
// announces the change. Neither step can fail the use case.
func (o *BookingOrchestrator) afterCommit(ctx context.Context, booking *model.Booking, eventType model.LifecycleEventType) {
	o.cache.Invalidate(ctx, cache.FamilyBooking, cache.FamilyEvent)

	if o.publisher == nil {
		return
	}
	err := o.publisher.Publish(ctx, model.BookingLifecycleEvent{
		ID:              uuid.NewString(),
		Type:            eventType,
		BookingID:       booking.ID,
		EventID:         booking.EventID,
		UserID:          booking.UserID,
		NumberOfTickets: booking.NumberOfTickets,
		TotalAmount:     booking.TotalAmount,
		Status:          booking.Status,
		PaymentStatus:   booking.PaymentStatus,
		OccurredAt:      o.clock.Now(),
	})
	if err != nil {
		o.logger.Warn("failed to publish booking lifecycle event",
			zap.String("booking_id", booking.ID),
			zap.String("type", string(eventType)),
			zap.Error(err),
		)
	}
}

// totalAmount is price times quantity rounded to cents.
func totalAmount(price float64, quantity int) float64 {
	return math.Round(price*float64(quantity)*100) / 100
}
