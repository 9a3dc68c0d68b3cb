package entity

import "time"

// Session is the opaque proof of an identity's single live login. At most one
// live session exists per identity at any instant.
type Session struct {
	Identity  string    `json:"identity"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}
