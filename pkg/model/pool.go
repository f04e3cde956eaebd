package model

import "time"

type Pool struct {
	ID                   string    `json:"id,omitempty" bson:"_id,omitempty"`
	Name                 string    `json:"name" bson:"name"`
	Active               bool      `json:"active" bson:"active"`
	LastAssignedMemberID *string   `json:"last_assigned_member_id" bson:"last_assigned_member_id"`
	MemberSeq            int64     `json:"-" bson:"member_seq"`
	CreatedAt            time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" bson:"updated_at"`
}

// PoolMember is a user eligible for assignment. JoinOrder defines the rotation
// order and never changes after the member is added.
type PoolMember struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty"`
	PoolID    string    `json:"pool_id" bson:"pool_id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	JoinOrder int64     `json:"join_order" bson:"join_order"`
	Active    bool      `json:"active" bson:"active"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
