package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/arunvm123/gigbooking/model"
)

type PostgresBookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *PostgresBookingRepository {
	return &PostgresBookingRepository{db: db}
}

// Create inserts a new booking in the pending/pending state.
func (r *PostgresBookingRepository) Create(ctx context.Context, req model.CreateBookingRequest) (*model.Booking, error) {
	booking := &model.Booking{
		ID:              uuid.NewString(),
		EventID:         req.EventID,
		UserID:          req.UserID,
		NumberOfTickets: req.NumberOfTickets,
		TotalAmount:     req.TotalAmount,
		SpecialRequests: req.SpecialRequests,
		Status:          model.BookingStatusPending,
		PaymentStatus:   model.PaymentStatusPending,
	}

	if err := r.db.WithContext(ctx).Create(booking).Error; err != nil {
		return nil, dbError("create booking", err)
	}

	return booking, nil
}

func (r *PostgresBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	var booking model.Booking
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrBookingNotFound
		}
		return nil, dbError("find booking", err)
	}
	return &booking, nil
}

// UpdateStatus writes the new status pair only if the stored pair still
// equals the expected one, and reports whether it did.
func (r *PostgresBookingRepository) UpdateStatus(ctx context.Context, req model.UpdateBookingStatusRequest) (bool, error) {
	updates := map[string]interface{}{
		"status":         req.Status,
		"payment_status": req.PaymentStatus,
	}

	res := r.db.WithContext(ctx).Model(&model.Booking{}).
		Where("id = ? AND status = ? AND payment_status = ?", req.BookingID, req.FromStatus, req.FromPaymentStatus).
		Updates(updates)
	if res.Error != nil {
		return false, dbError("update booking status", res.Error)
	}

	return res.RowsAffected == 1, nil
}

func (r *PostgresBookingRepository) List(ctx context.Context, filter model.BookingFilter) ([]model.Booking, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		q := db.Model(&model.Booking{})
		if filter.UserID != "" {
			q = q.Where("user_id = ?", filter.UserID)
		}
		if filter.EventID != "" {
			q = q.Where("event_id = ?", filter.EventID)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.PaymentStatus != "" {
			q = q.Where("payment_status = ?", filter.PaymentStatus)
		}
		return q
	}

	var (
		bookings []model.Booking
		total    int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := scope(r.db.WithContext(gctx)).Count(&total).Error; err != nil {
			return dbError("count bookings", err)
		}
		return nil
	})
	g.Go(func() error {
		err := scope(r.db.WithContext(gctx)).
			Order(orderBy(model.BookingSortColumns, filter.Params)).
			Limit(filter.Params.Limit).
			Offset(filter.Params.Offset()).
			Find(&bookings).Error
		if err != nil {
			return dbError("list bookings", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	return bookings, total, nil
}
