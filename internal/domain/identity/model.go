// Package identity manages staff accounts and authentication.
package identity

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Known staff roles. Patients authenticate through the portal instead.
const (
	RoleAdmin      = "admin"
	RoleReception  = "reception"
	RoleDepartment = "department"
	RoleDoctor     = "doctor"
)

var validRoles = map[string]bool{
	RoleAdmin: true, RoleReception: true, RoleDepartment: true, RoleDoctor: true,
}

// User maps to the users table. PasswordHash never leaves the server.
type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	Name         string     `db:"name" json:"name"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Roles        []string   `db:"roles" json:"roles"`
	DepartmentID *uuid.UUID `db:"department_id" json:"department_id,omitempty"`
	Active       bool       `db:"active" json:"active"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// SetPassword hashes and stores the given plaintext password.
func (u *User) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether the plaintext matches the stored hash.
func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}
