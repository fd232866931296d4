package events

import (
	"encoding/json"
	"sync"
	"time"

	"sunolegal/internal/models"
)

const (
	EventBookingCreated          = "booking_created"
	EventBookingStatusChanged    = "booking_status_changed"
	EventBookingCompleted        = "booking_completed"
	EventBookingPaymentConfirmed = "booking_payment_confirmed"
)

// BookingEventPayload is the booking snapshot sent to event consumers.
type BookingEventPayload struct {
	BookingID         string    `json:"booking_id"`
	LawyerID          string    `json:"lawyer_id"`
	LawyerName        string    `json:"lawyer_name"`
	UserID            string    `json:"user_id"`
	PackageType       string    `json:"package_type"`
	PackageName       string    `json:"package_name"`
	Price             int64     `json:"price"`
	Status            string    `json:"status"`
	PreviousStatus    string    `json:"previous_status,omitempty"`
	PaymentStatus     string    `json:"payment_status"`
	ScheduledDateTime string    `json:"scheduled_date_time,omitempty"`
	Version           int64     `json:"version"`
	ChangedAt         time.Time `json:"changed_at"`
}

func NewBookingPayload(b *models.Booking, previousStatus string) BookingEventPayload {
	return BookingEventPayload{
		BookingID:         b.ID,
		LawyerID:          b.LawyerID,
		LawyerName:        b.LawyerName,
		UserID:            b.UserID,
		PackageType:       b.PackageType,
		PackageName:       b.PackageName,
		Price:             b.Price,
		Status:            b.Status,
		PreviousStatus:    previousStatus,
		PaymentStatus:     b.PaymentStatus,
		ScheduledDateTime: b.ScheduledDateTime,
		Version:           b.Version,
		ChangedAt:         b.UpdatedAt,
	}
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
