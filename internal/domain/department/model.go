// Package department manages the hospital's diagnostic departments.
package department

import (
	"time"

	"github.com/google/uuid"
)

// Department maps to the departments table. Name is stored as entered;
// patient records carry a lowercase denormalized copy that is refreshed on
// rename.
type Department struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Code        string     `db:"code" json:"code"`
	Description *string    `db:"description" json:"description,omitempty"`
	HeadUserID  *uuid.UUID `db:"head_user_id" json:"head_user_id,omitempty"`
	Active      bool       `db:"active" json:"active"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
