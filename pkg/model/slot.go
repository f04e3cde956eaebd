package model

import "time"

type SlotStatus string

const (
	SlotOpen      SlotStatus = "open"
	SlotReserved  SlotStatus = "reserved"
	SlotBooked    SlotStatus = "booked"
	SlotCancelled SlotStatus = "cancelled"
)

type Slot struct {
	ID            string            `json:"id,omitempty" bson:"_id,omitempty"`
	PoolID        string            `json:"pool_id" bson:"pool_id" validate:"required"`
	StartTime     time.Time         `json:"start_time" bson:"start_time" validate:"required"`
	EndTime       time.Time         `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	Status        SlotStatus        `json:"status" bson:"status" validate:"required,oneof=open reserved booked cancelled"`
	ReservedCount int               `json:"reserved_count" bson:"reserved_count"`
	BookedCount   int               `json:"booked_count" bson:"booked_count"`
	Meta          map[string]string `json:"meta,omitempty" bson:"meta,omitempty"`
	CreatedAt     time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at" bson:"updated_at"`
}

// SlotFilter narrows a slot listing. Zero values are ignored.
type SlotFilter struct {
	From   *time.Time
	To     *time.Time
	Status SlotStatus
}

type SlotCreate struct {
	StartTime time.Time         `json:"start_time" validate:"required"`
	EndTime   time.Time         `json:"end_time" validate:"required,gtfield=StartTime"`
	Meta      map[string]string `json:"meta,omitempty" validate:"omitempty,max=20,dive,keys,min=1,max=50,endkeys,max=200"`
}
