// Package auth implements the account operations the bridge exposes
// over HTTP — signup, login, me, scoreboard, and awardWinner — plus the
// password hashing and session-token signing they need.
package auth

import (
	"errors"
	"sort"
	"time"
)

var ErrUsernameTaken = errors.New("auth: username already exists")
var ErrNotFound = errors.New("auth: user not found")

// User is the persisted profile. PasswordHash is never serialized to
// API responses; Store implementations may persist it however they
// like.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	Wins         int       `json:"wins"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Store is the narrow interface any backing store with unique-username
// and atomic win-counter semantics can satisfy.
type Store interface {
	CreateUser(username, passwordHash string) (*User, error)
	UserByUsername(username string) (*User, bool)
	UserByID(id string) (*User, bool)
	IncrementWins(username string) error
	Top(n int) []*User
}

// SortLeaders orders users by wins descending, then username ascending.
func SortLeaders(users []*User) {
	sort.Slice(users, func(i, j int) bool {
		if users[i].Wins != users[j].Wins {
			return users[i].Wins > users[j].Wins
		}
		return users[i].Username < users[j].Username
	})
}
