package types

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/canteen-backend/pkg/enums"
)

type LoginRequest struct {
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required"`
	Role     *enums.Role `json:"role,omitempty"`
}

type RegisterRequest struct {
	Name     string      `json:"name" validate:"required,min=2,max=120"`
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=6"`
	Role     *enums.Role `json:"role,omitempty"`
}

type User struct {
	ID    uuid.UUID  `json:"id"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Role  enums.Role `json:"role"`
}

type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}
