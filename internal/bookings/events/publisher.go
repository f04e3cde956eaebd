package events

import (
	"context"
	"receptionist/pkg/kafka"
	"receptionist/pkg/model"
	"time"
)

const (
	EventBookingConfirmed = "booking.confirmed"
	SchemaVersion         = "1"
)

// BookingConfirmed is the payload of a booking.confirmed event.
type BookingConfirmed struct {
	BookingID         string    `json:"booking_id"`
	PoolID            string    `json:"pool_id"`
	SlotID            string    `json:"slot_id"`
	AssigneeMemberID  string    `json:"assignee_member_id"`
	AssigneeUserID    string    `json:"assignee_user_id"`
	RequesterKey      string    `json:"requester_key"`
	RotationPersisted bool      `json:"rotation_persisted"`
	CreatedAt         time.Time `json:"created_at"`
}

type Publisher interface {
	BookingConfirmed(ctx context.Context, booking *model.Booking) error
}

// MessagePublisher is satisfied by *kafka.Producer.
type MessagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type kafkaPublisher struct {
	producer MessagePublisher
	source   string
	timeout  time.Duration
}

func NewKafkaPublisher(producer MessagePublisher, source string, timeout time.Duration) Publisher {
	return &kafkaPublisher{
		producer: producer,
		source:   source,
		timeout:  timeout,
	}
}

func (p *kafkaPublisher) BookingConfirmed(ctx context.Context, booking *model.Booking) error {
	msg, err := kafka.NewMessage().
		WithKey(booking.SlotID).
		WithEventType(EventBookingConfirmed).
		WithSchemaVersion(SchemaVersion).
		WithSource(p.source).
		WithCorrelationID(booking.ID).
		WithValue(BookingConfirmed{
			BookingID:         booking.ID,
			PoolID:            booking.PoolID,
			SlotID:            booking.SlotID,
			AssigneeMemberID:  booking.AssigneeMemberID,
			AssigneeUserID:    booking.AssigneeUserID,
			RequesterKey:      booking.RequesterKey,
			RotationPersisted: booking.RotationPersisted,
			CreatedAt:         booking.CreatedAt,
		}).
		Build()
	if err != nil {
		return err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return p.producer.Publish(ctx, msg)
}

type nopPublisher struct{}

// NewNopPublisher returns a Publisher that drops every event.
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) BookingConfirmed(context.Context, *model.Booking) error {
	return nil
}
