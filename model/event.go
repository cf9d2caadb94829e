package model

import (
	"time"

	"github.com/lib/pq"
)

type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusCancelled EventStatus = "cancelled"
	EventStatusCompleted EventStatus = "completed"
)

func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusDraft, EventStatusPublished, EventStatusCancelled, EventStatusCompleted:
		return true
	}
	return false
}

var eventStatusTransitions = map[EventStatus][]EventStatus{
	EventStatusDraft:     {EventStatusPublished, EventStatusCancelled},
	EventStatusPublished: {EventStatusCancelled, EventStatusCompleted},
}

// CanTransitionTo reports whether an event may move from s to target.
func (s EventStatus) CanTransitionTo(target EventStatus) bool {
	for _, next := range eventStatusTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// ===============================
// Database Entities (Internal)
// ===============================

type Location struct {
	Address string `gorm:"not null"`
	City    string `gorm:"not null;index"`
	State   string `gorm:"not null"`
	Country string `gorm:"not null"`
}

// Event is a performance with a finite number of tickets. CurrentBookings is
// only ever changed through the capacity ledger's guarded updates.
type Event struct {
	ID              string         `gorm:"type:text;primary_key"`
	ArtistID        string         `gorm:"type:text;not null;index"`
	Title           string         `gorm:"not null"`
	Description     string         `gorm:"type:text"`
	Date            time.Time      `gorm:"column:event_date;not null;index"`
	Duration        int            `gorm:"not null;default:0"`
	Location        Location       `gorm:"embedded;embeddedPrefix:location_"`
	Price           float64        `gorm:"type:decimal(10,2);not null;check:chk_events_price,price >= 0"`
	MaxCapacity     int            `gorm:"not null;check:chk_events_max_capacity,max_capacity > 0"`
	CurrentBookings int            `gorm:"not null;default:0;check:chk_events_current_bookings,current_bookings >= 0 AND current_bookings <= max_capacity"`
	Genres          pq.StringArray `gorm:"type:text[]"`
	ImageURL        string
	Status          EventStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (Event) TableName() string {
	return "events"
}

// Bookable returns nil when the event accepts new reservations at now.
func (e *Event) Bookable(now time.Time) error {
	if e.Status != EventStatusPublished || !e.Date.After(now) {
		return ErrEventNotBookable
	}
	return nil
}

func (e *Event) AvailableCapacity() int {
	return e.MaxCapacity - e.CurrentBookings
}

func (e *Event) ToEventResponse() *EventResponse {
	genres := []string(e.Genres)
	if genres == nil {
		genres = []string{}
	}
	return &EventResponse{
		ID:          e.ID,
		ArtistID:    e.ArtistID,
		Title:       e.Title,
		Description: e.Description,
		Date:        e.Date,
		Duration:    e.Duration,
		Location: LocationDTO{
			Address: e.Location.Address,
			City:    e.Location.City,
			State:   e.Location.State,
			Country: e.Location.Country,
		},
		Price:             e.Price,
		MaxCapacity:       e.MaxCapacity,
		CurrentBookings:   e.CurrentBookings,
		AvailableCapacity: e.AvailableCapacity(),
		Genres:            genres,
		ImageURL:          e.ImageURL,
		Status:            e.Status,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}

func ToEventResponses(events []Event) []*EventResponse {
	out := make([]*EventResponse, 0, len(events))
	for i := range events {
		out = append(out, events[i].ToEventResponse())
	}
	return out
}

// ===============================
// Repository DTOs (Internal)
// ===============================

type CreateEventRequest struct {
	ArtistID    string
	Title       string
	Description string
	Date        time.Time
	Duration    int
	Location    Location
	Price       float64
	MaxCapacity int
	Genres      []string
	ImageURL    string
}

// UpdateEventRequest carries only the fields being changed. The booking
// counter cannot be set here. The write only applies while the stored status
// equals ExpectedStatus.
type UpdateEventRequest struct {
	ID             string
	ExpectedStatus EventStatus
	Title          *string
	Description    *string
	Date           *time.Time
	Duration       *int
	Location       *Location
	Price          *float64
	MaxCapacity    *int
	Genres         []string
	ImageURL       *string
	Status         *EventStatus
}

// UpdateCapacityRequest is a guarded change to an event's booking counter.
// A positive Delta reserves and is admitted only while the event is
// published, dated after Now and has room; a negative Delta releases and is
// admitted only while enough bookings are held.
type UpdateCapacityRequest struct {
	EventID string
	Delta   int
	Now     time.Time
}

type EventFilter struct {
	ArtistID  string
	Genre     string
	Status    EventStatus
	DateAfter *time.Time
	Params    PaginationParams
}

// EventSortColumns whitelists the sortBy values accepted for events.
var EventSortColumns = map[string]string{
	"createdAt": "created_at",
	"date":      "event_date",
	"price":     "price",
	"title":     "title",
}

// ===============================
// API DTOs (External)
// ===============================

type LocationDTO struct {
	Address string `json:"address" binding:"required"`
	City    string `json:"city" binding:"required"`
	State   string `json:"state" binding:"required"`
	Country string `json:"country" binding:"required"`
}

func (l LocationDTO) toLocation() Location {
	return Location{Address: l.Address, City: l.City, State: l.State, Country: l.Country}
}

type CreateEventInput struct {
	Title       string      `json:"title" binding:"required"`
	Description string      `json:"description" binding:"required"`
	Date        time.Time   `json:"date" binding:"required"`
	Duration    int         `json:"duration" binding:"required,gt=0"`
	Location    LocationDTO `json:"location" binding:"required"`
	Price       float64     `json:"price" binding:"gte=0"`
	MaxCapacity int         `json:"maxCapacity" binding:"required,gt=0"`
	Genres      []string    `json:"genres" binding:"required,min=1"`
	ImageURL    string      `json:"imageUrl"`
}

func (in *CreateEventInput) ToCreateEventRequest(artistID string) CreateEventRequest {
	return CreateEventRequest{
		ArtistID:    artistID,
		Title:       in.Title,
		Description: in.Description,
		Date:        in.Date,
		Duration:    in.Duration,
		Location:    in.Location.toLocation(),
		Price:       in.Price,
		MaxCapacity: in.MaxCapacity,
		Genres:      in.Genres,
		ImageURL:    in.ImageURL,
	}
}

type UpdateEventInput struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	Date        *time.Time   `json:"date"`
	Duration    *int         `json:"duration" binding:"omitempty,gt=0"`
	Location    *LocationDTO `json:"location"`
	Price       *float64     `json:"price" binding:"omitempty,gte=0"`
	MaxCapacity *int         `json:"maxCapacity" binding:"omitempty,gt=0"`
	Genres      []string     `json:"genres"`
	ImageURL    *string      `json:"imageUrl"`
	Status      *EventStatus `json:"status"`
}

func (in *UpdateEventInput) ToUpdateEventRequest(id string) UpdateEventRequest {
	req := UpdateEventRequest{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Date:        in.Date,
		Duration:    in.Duration,
		Price:       in.Price,
		MaxCapacity: in.MaxCapacity,
		Genres:      in.Genres,
		ImageURL:    in.ImageURL,
		Status:      in.Status,
	}
	if in.Location != nil {
		loc := in.Location.toLocation()
		req.Location = &loc
	}
	return req
}

type EventResponse struct {
	ID                string      `json:"id"`
	ArtistID          string      `json:"artistId"`
	Title             string      `json:"title"`
	Description       string      `json:"description"`
	Date              time.Time   `json:"date"`
	Duration          int         `json:"duration"`
	Location          LocationDTO `json:"location"`
	Price             float64     `json:"price"`
	MaxCapacity       int         `json:"maxCapacity"`
	CurrentBookings   int         `json:"currentBookings"`
	AvailableCapacity int         `json:"availableCapacity"`
	Genres            []string    `json:"genres"`
	ImageURL          string      `json:"imageUrl,omitempty"`
	Status            EventStatus `json:"status"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}
