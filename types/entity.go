// Package types provides the value types shared across paymarket packages.
package types

import "time"

// Entity carries creation and update timestamps for registry records.
// Embed it in vendor and whitelist records.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntity creates an Entity stamped with the current UTC time.
func NewEntity() Entity {
	now := time.Now().UTC()
	return Entity{
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch updates the UpdatedAt timestamp to now.
func (e *Entity) Touch() {
	e.UpdatedAt = time.Now().UTC()
}
