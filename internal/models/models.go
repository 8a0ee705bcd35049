package models

import "time"

// PhotoRetention is how long a photo stays visible after upload
const PhotoRetention = 7 * 24 * time.Hour

// User represents a user profile row. Name is nil until the user sets it.
type User struct {
	ID        string    `json:"id"`
	Name      *string   `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity holds the credentials used to authenticate a user
type Identity struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Group represents a photo-sharing group
type Group struct {
	ID        string    `json:"id"`
	JoinCode  string    `json:"join_code"`
	GroupName string    `json:"group_name"`
	CreatedAt time.Time `json:"created_at"`
}

// Membership links a user to a group
type Membership struct {
	ID      string `json:"id"`
	UserID  string `json:"user_id"`
	GroupID string `json:"group_id"`
}

// Photo represents photo metadata. The bytes live in object storage under StorageKey.
type Photo struct {
	ID         string    `json:"id"`
	GroupID    string    `json:"group_id"`
	UserID     *string   `json:"user_id"`
	StorageKey string    `json:"s3_key"`
	UploadedAt time.Time `json:"uploaded_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Session is an authenticated principal. It is passed explicitly to the
// components that need identity.
type Session struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"access_token"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}
