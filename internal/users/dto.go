package users

import (
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/canteen-backend/pkg/db/models"
	"github.com/angelmondragon/canteen-backend/pkg/enums"
	"github.com/angelmondragon/canteen-backend/pkg/types"
)

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	Name         string
	PasswordHash string
	Role         enums.Role
}

// ToModel assigns a fresh id and lower cases the email.
func (d CreateUserDTO) ToModel() *models.User {
	role := d.Role
	if role == "" {
		role = enums.RoleCustomer
	}
	return &models.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(d.Email)),
		Name:         strings.TrimSpace(d.Name),
		PasswordHash: d.PasswordHash,
		Role:         role,
	}
}

// FromModel is the transport shape without credentials.
func FromModel(u *models.User) types.User {
	if u == nil {
		return types.User{}
	}
	return types.User{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}
