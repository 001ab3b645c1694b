package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Persisted table statuses. The wire values follow the original deployment.
const (
	TableStatusEmpty    = "bo'sh"
	TableStatusOccupied = "band"
	TableStatusClosed   = "yopilgan" // administrative, not reachable by normal flow
)

// Table occupancy is authoritative only through the `status` field, which is
// flipped inside the order transaction. The in-memory soft lock (socket
// package) is advisory and never consulted for correctness.
type Table struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name        string             `bson:"name" json:"name" binding:"required"`
	Number      string             `bson:"number,omitempty" json:"number,omitempty"`
	Status      string             `bson:"status" json:"status"`
	GuestCount  int                `bson:"guest_count" json:"guest_count"`
	Capacity    int                `bson:"capacity" json:"capacity"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	IsActive    bool               `bson:"is_active" json:"is_active"`
	CreatedAt   time.Time          `bson:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt   time.Time          `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// DisplayName prefers the short number over the full name.
func (t *Table) DisplayName() string {
	if t.Number != "" {
		return t.Number
	}
	return t.Name
}
