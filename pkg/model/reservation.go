package model

import "time"

type ReservationStatus string

const (
	ReservationActive   ReservationStatus = "active"
	ReservationConsumed ReservationStatus = "consumed"
	ReservationReleased ReservationStatus = "released"
	ReservationExpired  ReservationStatus = "expired"
)

// Reservation is a short-lived claim on a slot. Storage guarantees at most one
// active reservation per slot.
type Reservation struct {
	ID           string            `json:"id" bson:"_id"`
	SlotID       string            `json:"slot_id" bson:"slot_id"`
	RequesterKey string            `json:"requester_key" bson:"requester_key"`
	Status       ReservationStatus `json:"status" bson:"status"`
	ExpiresAt    time.Time         `json:"expires_at" bson:"expires_at"`
	CreatedAt    time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at" bson:"updated_at"`
}
