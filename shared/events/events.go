package events

import (
	"context"
	"time"
)

// Event types
const (
	UserRegistered      = "user.registered"
	PersonalDataUpdated = "personal_data.updated"
	PaymentFunded       = "payment.funded"
)

// Stream names. The Kafka publisher uses them as topics.
const (
	UserEventsStream    = "user.events"
	PaymentEventsStream = "payment.events"
)

// Publisher emits domain events onto a named stream.
type Publisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// Base event structure
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type UserRegisteredEvent struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
}

type PersonalDataUpdatedEvent struct {
	UserID     int64  `json:"userId"`
	FirstName  string `json:"firstName"`
	Surname    string `json:"surname"`
	PersonalID int64  `json:"personalId"`
	Balance    string `json:"balance"`
}

type PaymentFundedEvent struct {
	PaymentID  int64  `json:"paymentId"`
	UserID     int64  `json:"userId"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	NewBalance string `json:"newBalance"`
}

// NopPublisher drops every event. Used when no event bus is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, any) error { return nil }

func newEvent(eventType string, data any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}
