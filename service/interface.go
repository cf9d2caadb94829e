package service

import (
	"context"

	"github.com/arunvm123/gigbooking/model"
)

// LifecyclePublisher announces committed booking changes to other systems.
type LifecyclePublisher interface {
	Publish(ctx context.Context, event model.BookingLifecycleEvent) error
	Close() error
}
