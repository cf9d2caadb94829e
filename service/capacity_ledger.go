package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/arunvm123/gigbooking/clock"
	"github.com/arunvm123/gigbooking/metrics"
	"github.com/arunvm123/gigbooking/model"
	"github.com/arunvm123/gigbooking/repository"
)

const maxReleaseAttempts = 3

// CapacityLedger is the only component that changes an event's booking
// counter. Every change is a single conditional write in the store, so no
// in-process locking is needed.
type CapacityLedger struct {
	events repository.EventRepository
	clock  clock.Clock
	logger *zap.Logger
}

func NewCapacityLedger(events repository.EventRepository, clk clock.Clock, logger *zap.Logger) *CapacityLedger {
	return &CapacityLedger{events: events, clock: clk, logger: logger}
}

// Reserve takes quantity tickets from the event's remaining capacity. It
// returns model.ErrCapacityExceeded, model.ErrEventNotBookable or
// model.ErrEventNotFound when the reservation is refused.
func (l *CapacityLedger) Reserve(ctx context.Context, eventID string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be a positive integer", model.ErrValidation)
	}

	now := l.clock.Now()
	ok, err := l.events.UpdateCapacity(ctx, model.UpdateCapacityRequest{
		EventID: eventID,
		Delta:   quantity,
		Now:     now,
	})
	if err != nil {
		metrics.RecordReservation("error")
		return err
	}
	if ok {
		metrics.RecordReservation("reserved")
		return nil
	}

	// The guard refused. Work out why for the caller; this read never
	// decides admission.
	event, err := l.events.FindByID(ctx, eventID)
	if err != nil {
		metrics.RecordReservation("error")
		return err
	}
	if err := event.Bookable(now); err != nil {
		metrics.RecordReservation("not_bookable")
		return err
	}

	metrics.RecordReservation("capacity_exceeded")
	return fmt.Errorf("%w: %d requested, %d available", model.ErrCapacityExceeded, quantity, event.AvailableCapacity())
}

// Release returns quantity tickets to the event. If the counter holds fewer
// than quantity the state is already inconsistent: the counter is floored at
// zero and the underflow is logged. Release is safe to retry.
func (l *CapacityLedger) Release(ctx context.Context, eventID string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be a positive integer", model.ErrValidation)
	}

	for attempt := 0; attempt < maxReleaseAttempts; attempt++ {
		ok, err := l.events.UpdateCapacity(ctx, model.UpdateCapacityRequest{
			EventID: eventID,
			Delta:   -quantity,
		})
		if err != nil {
			metrics.RecordRelease("error")
			return err
		}
		if ok {
			metrics.RecordRelease("released")
			return nil
		}

		event, err := l.events.FindByID(ctx, eventID)
		if err != nil {
			metrics.RecordRelease("error")
			return err
		}

		floored, err := l.events.FloorCapacity(ctx, eventID, quantity)
		if err != nil {
			metrics.RecordRelease("error")
			return err
		}
		if floored {
			metrics.RecordRelease("underflow")
			l.logger.Error("capacity underflow on release, counter floored at zero",
				zap.String("event_id", eventID),
				zap.Int("quantity", quantity),
				zap.Int("current_bookings", event.CurrentBookings),
			)
			return nil
		}
		// A reservation landed between the two writes; try the plain release again.
	}

	metrics.RecordRelease("error")
	return fmt.Errorf("%w: release of %d tickets on event %s did not settle", model.ErrDatabase, quantity, eventID)
}
