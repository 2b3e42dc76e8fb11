package models

import "time"

// Operator is an account allowed to drive the roaster over HTTP.
type Operator struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
