package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/arunvm123/gigbooking/model"
)

type PostgresEventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *PostgresEventRepository {
	return &PostgresEventRepository{db: db}
}

func (r *PostgresEventRepository) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	event := model.Event{
		ID:              uuid.NewString(),
		ArtistID:        req.ArtistID,
		Title:           req.Title,
		Description:     req.Description,
		Date:            req.Date,
		Duration:        req.Duration,
		Location:        req.Location,
		Price:           req.Price,
		MaxCapacity:     req.MaxCapacity,
		CurrentBookings: 0,
		Genres:          pq.StringArray(req.Genres),
		ImageURL:        req.ImageURL,
		Status:          model.EventStatusDraft,
	}

	if err := r.db.WithContext(ctx).Create(&event).Error; err != nil {
		return nil, dbError("create event", err)
	}

	return &event, nil
}

func (r *PostgresEventRepository) FindByID(ctx context.Context, id string) (*model.Event, error) {
	var event model.Event
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrEventNotFound
		}
		return nil, dbError("find event", err)
	}
	return &event, nil
}

func (r *PostgresEventRepository) Update(ctx context.Context, req model.UpdateEventRequest) (bool, error) {
	updates := map[string]interface{}{}

	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Date != nil {
		updates["event_date"] = *req.Date
	}
	if req.Duration != nil {
		updates["duration"] = *req.Duration
	}
	if req.Location != nil {
		updates["location_address"] = req.Location.Address
		updates["location_city"] = req.Location.City
		updates["location_state"] = req.Location.State
		updates["location_country"] = req.Location.Country
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.MaxCapacity != nil {
		updates["max_capacity"] = *req.MaxCapacity
	}
	if req.Genres != nil {
		updates["genres"] = pq.StringArray(req.Genres)
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}

	if len(updates) == 0 {
		return true, nil
	}

	res := r.db.WithContext(ctx).Model(&model.Event{}).
		Where("id = ? AND status = ?", req.ID, req.ExpectedStatus).
		Updates(updates)
	if res.Error != nil {
		return false, dbError("update event", res.Error)
	}

	return res.RowsAffected == 1, nil
}

func (r *PostgresEventRepository) DeleteDraft(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ? AND current_bookings = 0", id, model.EventStatusDraft).
		Delete(&model.Event{})
	if res.Error != nil {
		return false, dbError("delete event", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *PostgresEventRepository) List(ctx context.Context, filter model.EventFilter) ([]model.Event, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		q := db.Model(&model.Event{})
		if filter.ArtistID != "" {
			q = q.Where("artist_id = ?", filter.ArtistID)
		}
		if filter.Genre != "" {
			q = q.Where("? = ANY(genres)", filter.Genre)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.DateAfter != nil {
			q = q.Where("event_date > ?", *filter.DateAfter)
		}
		return q
	}

	var (
		events []model.Event
		total  int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := scope(r.db.WithContext(gctx)).Count(&total).Error; err != nil {
			return dbError("count events", err)
		}
		return nil
	})
	g.Go(func() error {
		err := scope(r.db.WithContext(gctx)).
			Order(orderBy(model.EventSortColumns, filter.Params)).
			Limit(filter.Params.Limit).
			Offset(filter.Params.Offset()).
			Find(&events).Error
		if err != nil {
			return dbError("list events", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

// UpdateCapacity applies req.Delta to current_bookings in one conditional
// UPDATE. Concurrent callers serialise on the row lock, so the guard is
// always evaluated against committed state.
func (r *PostgresEventRepository) UpdateCapacity(ctx context.Context, req model.UpdateCapacityRequest) (bool, error) {
	var res *gorm.DB

	switch {
	case req.Delta > 0:
		res = r.db.WithContext(ctx).Model(&model.Event{}).
			Where("id = ? AND status = ? AND event_date > ? AND current_bookings + ? <= max_capacity",
				req.EventID, model.EventStatusPublished, req.Now, req.Delta).
			UpdateColumn("current_bookings", gorm.Expr("current_bookings + ?", req.Delta))
	case req.Delta < 0:
		qty := -req.Delta
		res = r.db.WithContext(ctx).Model(&model.Event{}).
			Where("id = ? AND current_bookings >= ?", req.EventID, qty).
			UpdateColumn("current_bookings", gorm.Expr("current_bookings - ?", qty))
	default:
		return false, fmt.Errorf("%w: capacity delta must not be zero", model.ErrValidation)
	}

	if res.Error != nil {
		return false, dbError("update capacity", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// FloorCapacity zeroes current_bookings when it holds fewer than quantity.
func (r *PostgresEventRepository) FloorCapacity(ctx context.Context, eventID string, quantity int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Event{}).
		Where("id = ? AND current_bookings < ?", eventID, quantity).
		UpdateColumn("current_bookings", 0)
	if res.Error != nil {
		return false, dbError("floor capacity", res.Error)
	}
	return res.RowsAffected == 1, nil
}
