// Package roomid derives deterministic identifiers for two-party rooms.
package roomid

import (
	"errors"
	"fmt"
)

// Separator joins the two sorted participant ids.
const Separator = "-"

var (
	ErrEmptyUserID = errors.New("user id is empty")
	ErrSelfRoom    = errors.New("cannot derive a room for a user with themselves")
)

// Derive returns the room identifier for a pair of users: the two ids sorted
// lexicographically ascending and joined with Separator, so that
// Derive(a, b) == Derive(b, a). Self-pairs are rejected; a room always has
// exactly two distinct participants.
func Derive(userA, userB string) (string, error) {
	if userA == "" || userB == "" {
		return "", ErrEmptyUserID
	}
	if userA == userB {
		return "", ErrSelfRoom
	}
	if userB < userA {
		userA, userB = userB, userA
	}
	return userA + Separator + userB, nil
}

// Participants returns the pair for a room in sorted order, mirroring Derive.
func Participants(userA, userB string) ([]string, error) {
	if _, err := Derive(userA, userB); err != nil {
		return nil, err
	}
	if userB < userA {
		userA, userB = userB, userA
	}
	return []string{userA, userB}, nil
}

// MustDerive panics on invalid input. Intended for tests and static data.
func MustDerive(userA, userB string) string {
	id, err := Derive(userA, userB)
	if err != nil {
		panic(fmt.Sprintf("roomid: %v", err))
	}
	return id
}
