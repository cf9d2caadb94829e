package service

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/arunvm123/gigbooking/cache"
	"github.com/arunvm123/gigbooking/clock"
	"github.com/arunvm123/gigbooking/model"
	"github.com/arunvm123/gigbooking/repository"
)

// EventService manages events. It never changes an event's booking counter;
// that belongs to the capacity ledger.
type EventService struct {
	events repository.EventRepository
	cache  *cache.Coordinator
	clock  clock.Clock
	logger *zap.Logger
}

func NewEventService(events repository.EventRepository, cache *cache.Coordinator, clk clock.Clock, logger *zap.Logger) *EventService {
	return &EventService{events: events, cache: cache, clock: clk, logger: logger}
}

func (s *EventService) CreateEvent(ctx context.Context, principal model.Principal, input model.CreateEventInput) *model.APIResponse {
	if !principal.CanCreateEvents() {
		return fail(s.logger, "create event", model.ErrForbidden, zap.String("user_id", principal.UserID))
	}
	if !input.Date.After(s.clock.Now()) {
		return fail(s.logger, "create event", fmt.Errorf("%w: event date must be in the future", model.ErrValidation))
	}

	event, err := s.events.Create(ctx, input.ToCreateEventRequest(principal.UserID))
	if err != nil {
		return fail(s.logger, "create event", err, zap.String("user_id", principal.UserID))
	}

	s.cache.Invalidate(ctx, cache.FamilyEvent)
	return model.NewResponse(http.StatusCreated, "Event created successfully", event.ToEventResponse())
}

func (s *EventService) GetEvent(ctx context.Context, id string) *model.APIResponse {
	event, err := cache.ReadThrough(ctx, s.cache, cache.Key(cache.FamilyEvent, id),
		func(ctx context.Context) (*model.EventResponse, error) {
			e, err := s.events.FindByID(ctx, id)
			if err != nil {
				return nil, err
			}
			return e.ToEventResponse(), nil
		})
	if err != nil {
		return fail(s.logger, "get event", err, zap.String("event_id", id))
	}

	return model.NewResponse(http.StatusOK, "Event retrieved successfully", event)
}

// ListEvents lists published events.
func (s *EventService) ListEvents(ctx context.Context, params model.PaginationParams) *model.APIResponse {
	params = params.Normalize()
	return s.listEvents(ctx, "list events", cache.Key(cache.FamilyEvent, "all", params.CacheKey()), model.EventFilter{
		Status: model.EventStatusPublished,
		Params: params,
	})
}

// ListUpcomingEvents lists published events that have not started yet.
func (s *EventService) ListUpcomingEvents(ctx context.Context, params model.PaginationParams) *model.APIResponse {
	params = params.Normalize()
	now := s.clock.Now()
	return s.listEvents(ctx, "list upcoming events", cache.Key(cache.FamilyEvent, "upcoming", params.CacheKey()), model.EventFilter{
		Status:    model.EventStatusPublished,
		DateAfter: &now,
		Params:    params,
	})
}

func (s *EventService) ListEventsByGenre(ctx context.Context, genre string, params model.PaginationParams) *model.APIResponse {
	if genre == "" {
		return fail(s.logger, "list events by genre", fmt.Errorf("%w: genre is required", model.ErrValidation))
	}
	params = params.Normalize()
	return s.listEvents(ctx, "list events by genre", cache.Key(cache.FamilyEvent, "genre", genre, params.CacheKey()), model.EventFilter{
		Genre:  genre,
		Status: model.EventStatusPublished,
		Params: params,
	})
}

// ListArtistEvents lists the published events of one artist.
func (s *EventService) ListArtistEvents(ctx context.Context, artistID string, params model.PaginationParams) *model.APIResponse {
	params = params.Normalize()
	return s.listEvents(ctx, "list artist events", cache.Key(cache.FamilyEvent, "artist", artistID, params.CacheKey()), model.EventFilter{
		ArtistID: artistID,
		Status:   model.EventStatusPublished,
		Params:   params,
	})
}

// ListMyEvents lists every event the calling artist owns, drafts included.
func (s *EventService) ListMyEvents(ctx context.Context, principal model.Principal, params model.PaginationParams) *model.APIResponse {
	if !principal.CanCreateEvents() {
		return fail(s.logger, "list my events", model.ErrForbidden, zap.String("user_id", principal.UserID))
	}
	params = params.Normalize()
	return s.listEvents(ctx, "list my events", cache.Key(cache.FamilyEvent, "artist", principal.UserID, "all", params.CacheKey()), model.EventFilter{
		ArtistID: principal.UserID,
		Params:   params,
	})
}

func (s *EventService) listEvents(ctx context.Context, op, key string, filter model.EventFilter) *model.APIResponse {
	result, err := cache.ReadThrough(ctx, s.cache, key, func(ctx context.Context) (page[*model.EventResponse], error) {
		events, total, err := s.events.List(ctx, filter)
		if err != nil {
			return page[*model.EventResponse]{}, err
		}
		return page[*model.EventResponse]{
			Items:      model.ToEventResponses(events),
			Pagination: model.NewPagination(total, filter.Params),
		}, nil
	})
	if err != nil {
		return fail(s.logger, op, err)
	}

	return model.NewListResponse("Events retrieved successfully", result.Items, result.Pagination)
}

// UpdateEvent applies a partial update for the event's artist or an admin.
// The write is conditional on the status read here, so a concurrent status
// change turns into a conflict instead of being overwritten.
func (s *EventService) UpdateEvent(ctx context.Context, id string, principal model.Principal, input model.UpdateEventInput) *model.APIResponse {
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		return fail(s.logger, "update event", err, zap.String("event_id", id))
	}
	if !principal.CanManageEvent(event.ArtistID) {
		return fail(s.logger, "update event", model.ErrForbidden,
			zap.String("event_id", id), zap.String("user_id", principal.UserID))
	}

	req := input.ToUpdateEventRequest(id)
	req.ExpectedStatus = event.Status
	if err := s.checkUpdate(event, req); err != nil {
		return fail(s.logger, "update event", err, zap.String("event_id", id))
	}

	ok, err := s.events.Update(ctx, req)
	if err != nil {
		return fail(s.logger, "update event", err, zap.String("event_id", id))
	}
	if !ok {
		return fail(s.logger, "update event", fmt.Errorf("%w: event %s was changed concurrently", model.ErrConflict, id))
	}

	s.cache.Invalidate(ctx, cache.FamilyEvent)

	updated, err := s.events.FindByID(ctx, id)
	if err != nil {
		return fail(s.logger, "update event", err, zap.String("event_id", id))
	}

	return model.NewResponse(http.StatusOK, "Event updated successfully", updated.ToEventResponse())
}

func (s *EventService) checkUpdate(event *model.Event, req model.UpdateEventRequest) error {
	now := s.clock.Now()

	if req.Status != nil && *req.Status != event.Status {
		if !req.Status.Valid() {
			return fmt.Errorf("%w: unknown event status %q", model.ErrValidation, *req.Status)
		}
		if !event.Status.CanTransitionTo(*req.Status) {
			return fmt.Errorf("%w: event cannot move from %s to %s", model.ErrInvalidTransition, event.Status, *req.Status)
		}
	}
	if req.MaxCapacity != nil && *req.MaxCapacity != event.MaxCapacity && event.Status != model.EventStatusDraft {
		return fmt.Errorf("%w: maxCapacity can only change while the event is a draft", model.ErrValidation)
	}
	if req.Date != nil && !req.Date.After(now) {
		return fmt.Errorf("%w: event date must be in the future", model.ErrValidation)
	}
	if req.Status != nil && *req.Status == model.EventStatusPublished && event.Status != model.EventStatusPublished {
		date := event.Date
		if req.Date != nil {
			date = *req.Date
		}
		if !date.After(now) {
			return fmt.Errorf("%w: cannot publish an event dated in the past", model.ErrValidation)
		}
	}

	return nil
}

// DeleteEvent removes a draft event without bookings. Anything else is kept
// for audit and must be cancelled instead.
func (s *EventService) DeleteEvent(ctx context.Context, id string, principal model.Principal) *model.APIResponse {
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		return fail(s.logger, "delete event", err, zap.String("event_id", id))
	}
	if !principal.CanManageEvent(event.ArtistID) {
		return fail(s.logger, "delete event", model.ErrForbidden,
			zap.String("event_id", id), zap.String("user_id", principal.UserID))
	}
	if event.Status != model.EventStatusDraft {
		return fail(s.logger, "delete event",
			fmt.Errorf("%w: only draft events can be deleted, cancel it instead", model.ErrValidation))
	}

	ok, err := s.events.DeleteDraft(ctx, id)
	if err != nil {
		return fail(s.logger, "delete event", err, zap.String("event_id", id))
	}
	if !ok {
		return fail(s.logger, "delete event", fmt.Errorf("%w: event %s was changed concurrently", model.ErrConflict, id))
	}

	s.cache.Invalidate(ctx, cache.FamilyEvent)
	return model.NewResponse(http.StatusOK, "Event deleted successfully", nil)
}
