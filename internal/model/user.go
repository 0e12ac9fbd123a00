package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID                string    `json:"id"`
	GoogleID          string    `json:"google_id"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	AccessToken       string    `json:"-"`
	RefreshToken      string    `json:"-"`
	TokenExpiry       time.Time `json:"token_expiry"`
	ServiceStartEpoch int64     `json:"service_start_epoch"`
	SetupStatus       string    `json:"setup_status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func NewUser(googleID, email, name, accessToken, refreshToken string, tokenExpiry time.Time) *User {
	now := time.Now()
	return &User{
		ID:                uuid.New().String(),
		GoogleID:          googleID,
		Email:             email,
		Name:              name,
		AccessToken:       accessToken,
		RefreshToken:      refreshToken,
		TokenExpiry:       tokenExpiry,
		ServiceStartEpoch: now.Unix(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// HasCredential reports whether the user holds a usable token. Tokens are
// renewed externally, so a missing one skips a tick rather than removing the
// schedule.
func (u *User) HasCredential() bool {
	return u.AccessToken != ""
}
