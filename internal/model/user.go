package model

import (
	"errors"
	"regexp"
	"time"
)

// User represents a user in the system. Accounts created through the GitHub
// OAuth flow have GitHubID/GitHubUsername set and no password.
type User struct {
	ID             int64      `db:"id" json:"id"`
	Username       string     `db:"username" json:"username"`
	GitHubID       *int64     `db:"github_id" json:"-"`
	GitHubUsername *string    `db:"github_username" json:"github_username,omitempty"`
	PasswordHashed *string    `db:"password_hashed" json:"-"`
	DisplayName    *string    `db:"display_name" json:"display_name"`
	Bio            *string    `db:"bio" json:"bio"`
	DOB            *time.Time `db:"dob" json:"dob,omitempty"`
	AvatarURL      *string    `db:"avatar_url" json:"avatar_url"`
	AvatarKey      *string    `db:"avatar_key" json:"-"`
	FollowerCount  int        `db:"follower_count" json:"follower_count"`
	FollowingCount int        `db:"following_count" json:"following_count"`
	PostCount      int        `db:"post_count" json:"post_count"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// User constraints
const (
	MaxUsernameLength = 15
	MaxBioLength      = 160
)

// ValidUsername matches handles: letters, digits, underscores, up to 15 chars.
var ValidUsername = regexp.MustCompile(`^\w{1,15}$`)

// RegisterRequest represents the data needed to register a new user
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// LoginRequest represents the data needed to log in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UpdateProfileRequest carries the editable profile fields. Nil pointers
// leave the current value untouched.
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
	DOB         *string `json:"dob"` // "2006-01-02"
}

// UsernameCheckRequest is the body for POST /me/username-check.
type UsernameCheckRequest struct {
	Username string `json:"username"`
}

// UsernameCheckResponse reports whether a username can still be claimed.
type UsernameCheckResponse struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
}

// ProfileResponse is the public view of a user plus viewer-relative state.
type ProfileResponse struct {
	User        *User  `json:"user"`
	Initials    string `json:"initials"`
	IsFollowing bool   `json:"is_following"`
	IsSelf      bool   `json:"is_self"`
}

var (
	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameExists is returned when attempting to create a user with a taken username
	ErrUsernameExists = errors.New("username already exists")

	// ErrInvalidCredentials is returned when login credentials are incorrect
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidUsername is returned for usernames that fail format validation
	ErrInvalidUsername = errors.New("invalid username")

	// ErrBioTooLong is returned when a bio exceeds MaxBioLength
	ErrBioTooLong = errors.New("bio too long")
)
