package service

import (
	"fmt"

	"github.com/arunvm123/gigbooking/model"
)

var bookingTransitions = map[model.BookingStatus][]model.BookingStatus{
	model.BookingStatusPending:   {model.BookingStatusConfirmed, model.BookingStatusCancelled},
	model.BookingStatusConfirmed: {model.BookingStatusCancelled, model.BookingStatusCompleted},
}

var paymentTransitions = map[model.PaymentStatus][]model.PaymentStatus{
	model.PaymentStatusPending: {model.PaymentStatusPaid, model.PaymentStatusFailed},
	model.PaymentStatusPaid:    {model.PaymentStatusRefunded},
}

// ValidateTransition checks that a booking may move from its current
// status pair to the target pair. The booking status must follow an allowed
// edge; the payment status either stays put or follows an allowed edge.
func ValidateTransition(curStatus model.BookingStatus, curPayment model.PaymentStatus, tgtStatus model.BookingStatus, tgtPayment model.PaymentStatus) error {
	if !tgtStatus.Valid() {
		return fmt.Errorf("%w: unknown booking status %q", model.ErrValidation, tgtStatus)
	}
	if !tgtPayment.Valid() {
		return fmt.Errorf("%w: unknown payment status %q", model.ErrValidation, tgtPayment)
	}

	if !allowed(bookingTransitions[curStatus], tgtStatus) {
		return fmt.Errorf("%w: booking cannot move from %s to %s", model.ErrInvalidTransition, curStatus, tgtStatus)
	}
	if curPayment != tgtPayment && !allowed(paymentTransitions[curPayment], tgtPayment) {
		return fmt.Errorf("%w: payment cannot move from %s to %s", model.ErrInvalidTransition, curPayment, tgtPayment)
	}

	return nil
}

// CancellationPaymentStatus picks the payment status a booking carries once
// cancelled.
func CancellationPaymentStatus(cur model.PaymentStatus) model.PaymentStatus {
	switch cur {
	case model.PaymentStatusPaid:
		return model.PaymentStatusRefunded
	case model.PaymentStatusPending:
		return model.PaymentStatusFailed
	default:
		return cur
	}
}

func allowed[T comparable](edges []T, target T) bool {
	for _, e := range edges {
		if e == target {
			return true
		}
	}
	return false
}
