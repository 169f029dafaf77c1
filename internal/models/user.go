package models

import "time"

// UserAccount represents a row in the PostgreSQL users table.
type UserAccount struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // never serialize
	CreatedAt    time.Time `json:"created_at"`
}

// SignUpRequest is the JSON body for POST /signUp.
type SignUpRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse carries the session token issued by /signUp and /authenticate.
// Clients resubmit the token verbatim on every protected call.
type TokenResponse struct {
	Token string `json:"token"`
}
