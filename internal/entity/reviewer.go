package entity

import (
	"time"

	"github.com/google/uuid"
)

// Reviewer is a human allowed to claim and resolve review items.
type Reviewer struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
