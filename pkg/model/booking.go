package model

import (
	"time"
)

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

const AlgorithmRoundRobin = "round_robin"

type Booking struct {
	ID                  string        `json:"id,omitempty" bson:"_id,omitempty"`
	PoolID              string        `json:"pool_id" bson:"pool_id"`
	SlotID              string        `json:"slot_id" bson:"slot_id"`
	AssigneeMemberID    string        `json:"assignee_member_id" bson:"assignee_member_id"`
	AssigneeUserID      string        `json:"assignee_user_id" bson:"assignee_user_id"`
	RequesterKey        string        `json:"requester_key" bson:"requester_key"`
	Note                string        `json:"note,omitempty" bson:"note,omitempty"`
	AssignmentAlgorithm string        `json:"assignment_algorithm" bson:"assignment_algorithm"`
	RotationPersisted   bool          `json:"rotation_persisted" bson:"rotation_persisted"`
	Status              BookingStatus `json:"status" bson:"status"`
	CreatedAt           time.Time     `json:"created_at" bson:"created_at"`
}

type BookingRequest struct {
	RequesterKey string `json:"requester_key" validate:"required,min=1,max=254"`
	Note         string `json:"note,omitempty" validate:"omitempty,max=1000"`
}
