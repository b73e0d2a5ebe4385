// Package notification persists in-app notifications and pushes them to
// connected clients over the realtime hub.
package notification

import (
	"time"

	"github.com/google/uuid"
)

// Notification is both the stored row and the wire payload pushed to
// clients. The camelCase field names are part of the client contract.
type Notification struct {
	ID        uuid.UUID              `db:"id" json:"id"`
	Title     string                 `db:"title" json:"title"`
	Message   string                 `db:"message" json:"message"`
	To        *uuid.UUID             `db:"recipient_id" json:"to,omitempty"`
	Room      *string                `db:"room" json:"room,omitempty"`
	IsRead    bool                   `db:"is_read" json:"isRead"`
	Data      map[string]interface{} `db:"data" json:"data,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time              `db:"updated_at" json:"updatedAt"`
}
