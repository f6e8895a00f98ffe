package models

import (
	"time"
)

// User represents a registered account with a prepaid credit balance
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	APIKeyHash   string    `json:"-" db:"api_key_hash"`
	Credits      int64     `json:"credits" db:"credits"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Session is the decoded payload of a signed session token
type Session struct {
	UserID    string `json:"uid"`
	ExpiresAt int64  `json:"exp"`
}
