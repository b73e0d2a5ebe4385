package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ris/ris/internal/platform/auth"
)

// Service manages staff accounts and issues access tokens.
type Service struct {
	repo     Repository
	signer   *auth.Signer
	tokenTTL time.Duration
}

func NewService(repo Repository, signer *auth.Signer, tokenTTL time.Duration) *Service {
	return &Service{repo: repo, signer: signer, tokenTTL: tokenTTL}
}

// CreateUserInput carries the fields for a new staff account.
type CreateUserInput struct {
	Email        string
	Name         string
	Password     string
	Roles        []string
	DepartmentID *uuid.UUID
}

// CreateUser registers a staff account with a bcrypt password hash.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	if len(in.Roles) == 0 {
		in.Roles = []string{RoleReception}
	}
	for _, role := range in.Roles {
		if !validRoles[role] {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRole, role)
		}
	}

	u := &User{
		Email:        in.Email,
		Name:         in.Name,
		Roles:        in.Roles,
		DepartmentID: in.DepartmentID,
		Active:       true,
	}
	if err := u.SetPassword(in.Password); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login checks credentials and issues a staff token. Failures are
// deliberately indistinct so the endpoint does not leak which accounts
// exist.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if !u.Active || !u.CheckPassword(password) {
		log.Warn().Str("email", email).Msg("failed login attempt")
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.signer.Sign(u.ID.String(), u.Roles, "", s.tokenTTL)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// UpdateUserInput carries the editable fields of a staff account. Nil
// pointers leave the current value in place.
type UpdateUserInput struct {
	Email        *string
	Name         *string
	Password     *string
	Roles        []string
	DepartmentID *uuid.UUID
	Active       *bool
}

func (s *Service) UpdateUser(ctx context.Context, id uuid.UUID, in UpdateUserInput) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Password != nil {
		if err := u.SetPassword(*in.Password); err != nil {
			return nil, err
		}
	}
	if in.Roles != nil {
		for _, role := range in.Roles {
			if !validRoles[role] {
				return nil, fmt.Errorf("%w: %s", ErrInvalidRole, role)
			}
		}
		u.Roles = in.Roles
	}
	if in.DepartmentID != nil {
		u.DepartmentID = in.DepartmentID
	}
	if in.Active != nil {
		u.Active = *in.Active
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
