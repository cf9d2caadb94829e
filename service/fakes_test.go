package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/arunvm123/gigbooking/cache"
	cacheredis "github.com/arunvm123/gigbooking/cache/redis"
	"github.com/arunvm123/gigbooking/clock"
	"github.com/arunvm123/gigbooking/config"
	"github.com/arunvm123/gigbooking/model"
)

var (
	testNow     = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	errStoreErr = errors.New("connection reset")
)

// memEventRepo mirrors the conditional writes of the postgres repository.
// The mutex plays the part of the row lock.
type memEventRepo struct {
	mu     sync.Mutex
	events map[string]*model.Event
	err    error
	// reserveCalls counts positive capacity updates.
	reserveCalls int
}

func newMemEventRepo(events ...*model.Event) *memEventRepo {
	r := &memEventRepo{events: map[string]*model.Event{}}
	for _, e := range events {
		r.events[e.ID] = e
	}
	return r
}

func (r *memEventRepo) Create(_ context.Context, req model.CreateEventRequest) (*model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	e := &model.Event{
		ID:          "evt-new",
		ArtistID:    req.ArtistID,
		Title:       req.Title,
		Date:        req.Date,
		Duration:    req.Duration,
		Location:    req.Location,
		Price:       req.Price,
		MaxCapacity: req.MaxCapacity,
		Genres:      req.Genres,
		Status:      model.EventStatusDraft,
	}
	r.events[e.ID] = e
	cp := *e
	return &cp, nil
}

func (r *memEventRepo) FindByID(_ context.Context, id string) (*model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	e, ok := r.events[id]
	if !ok {
		return nil, model.ErrEventNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *memEventRepo) Update(_ context.Context, req model.UpdateEventRequest) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	e, ok := r.events[req.ID]
	if !ok || e.Status != req.ExpectedStatus {
		return false, nil
	}
	if req.Title != nil {
		e.Title = *req.Title
	}
	if req.Date != nil {
		e.Date = *req.Date
	}
	if req.Price != nil {
		e.Price = *req.Price
	}
	if req.MaxCapacity != nil {
		e.MaxCapacity = *req.MaxCapacity
	}
	if req.Status != nil {
		e.Status = *req.Status
	}
	return true, nil
}

func (r *memEventRepo) DeleteDraft(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok || e.Status != model.EventStatusDraft || e.CurrentBookings != 0 {
		return false, nil
	}
	delete(r.events, id)
	return true, nil
}

func (r *memEventRepo) List(_ context.Context, filter model.EventFilter) ([]model.Event, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, 0, r.err
	}
	var out []model.Event
	for _, e := range r.events {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.ArtistID != "" && e.ArtistID != filter.ArtistID {
			continue
		}
		if filter.DateAfter != nil && !e.Date.After(*filter.DateAfter) {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *memEventRepo) UpdateCapacity(ctx context.Context, req model.UpdateCapacityRequest) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	e, ok := r.events[req.EventID]
	if !ok {
		return false, nil
	}
	switch {
	case req.Delta > 0:
		r.reserveCalls++
		if e.Status != model.EventStatusPublished || !e.Date.After(req.Now) || e.CurrentBookings+req.Delta > e.MaxCapacity {
			return false, nil
		}
	case req.Delta < 0:
		if e.CurrentBookings < -req.Delta {
			return false, nil
		}
	default:
		return false, model.ErrValidation
	}
	e.CurrentBookings += req.Delta
	return true, nil
}

func (r *memEventRepo) FloorCapacity(_ context.Context, eventID string, quantity int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[eventID]
	if !ok || e.CurrentBookings >= quantity {
		return false, nil
	}
	e.CurrentBookings = 0
	return true, nil
}

func (r *memEventRepo) current(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[id].CurrentBookings
}

func (r *memEventRepo) setPrice(id string, price float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[id].Price = price
}

type memBookingRepo struct {
	mu        sync.Mutex
	bookings  map[string]*model.Booking
	seq       int
	createErr error
	updateErr error
}

func newMemBookingRepo(bookings ...*model.Booking) *memBookingRepo {
	r := &memBookingRepo{bookings: map[string]*model.Booking{}}
	for _, b := range bookings {
		r.bookings[b.ID] = b
	}
	return r
}

func (r *memBookingRepo) Create(ctx context.Context, req model.CreateBookingRequest) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.seq++
	b := &model.Booking{
		ID:              "bkg-" + string(rune('a'+r.seq-1)),
		EventID:         req.EventID,
		UserID:          req.UserID,
		NumberOfTickets: req.NumberOfTickets,
		TotalAmount:     req.TotalAmount,
		SpecialRequests: req.SpecialRequests,
		Status:          model.BookingStatusPending,
		PaymentStatus:   model.PaymentStatusPending,
		CreatedAt:       testNow,
		UpdatedAt:       testNow,
	}
	r.bookings[b.ID] = b
	cp := *b
	return &cp, nil
}

func (r *memBookingRepo) FindByID(_ context.Context, id string) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, model.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memBookingRepo) UpdateStatus(_ context.Context, req model.UpdateBookingStatusRequest) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return false, r.updateErr
	}
	b, ok := r.bookings[req.BookingID]
	if !ok || b.Status != req.FromStatus || b.PaymentStatus != req.FromPaymentStatus {
		return false, nil
	}
	b.Status = req.Status
	b.PaymentStatus = req.PaymentStatus
	return true, nil
}

func (r *memBookingRepo) List(_ context.Context, filter model.BookingFilter) ([]model.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Booking
	for _, b := range r.bookings {
		if filter.UserID != "" && b.UserID != filter.UserID {
			continue
		}
		if filter.EventID != "" && b.EventID != filter.EventID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.PaymentStatus != "" && b.PaymentStatus != filter.PaymentStatus {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *memBookingRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bookings)
}

func (r *memBookingRepo) get(id string) model.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.bookings[id]
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.BookingLifecycleEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event model.BookingLifecycleEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []model.LifecycleEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.LifecycleEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func publishedEvent(id string, max, current int) *model.Event {
	return &model.Event{
		ID:              id,
		ArtistID:        "artist-1",
		Title:           "Late Show",
		Date:            testNow.Add(72 * time.Hour),
		Price:           25,
		MaxCapacity:     max,
		CurrentBookings: current,
		Status:          model.EventStatusPublished,
	}
}

func newTestCoordinator(t *testing.T) (*miniredis.Miniredis, *cache.Coordinator) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	backend := cacheredis.NewRedisCache(client, config.Redis{BreakerMaxFailures: 5, BreakerTimeoutSeconds: 30}, zap.NewNop())
	return mr, cache.NewCoordinator(backend, time.Hour, zap.NewNop())
}

type orchestratorFixture struct {
	events    *memEventRepo
	bookings  *memBookingRepo
	publisher *recordingPublisher
	redis     *miniredis.Miniredis
	svc       *BookingOrchestrator
}

func newOrchestratorFixture(t *testing.T, events *memEventRepo, bookings *memBookingRepo) *orchestratorFixture {
	t.Helper()
	mr, coord := newTestCoordinator(t)
	clk := clock.NewFixed(testNow)
	pub := &recordingPublisher{}
	ledger := NewCapacityLedger(events, clk, zap.NewNop())
	return &orchestratorFixture{
		events:    events,
		bookings:  bookings,
		publisher: pub,
		redis:     mr,
		svc:       NewBookingOrchestrator(events, bookings, ledger, coord, pub, clk, zap.NewNop()),
	}
}
