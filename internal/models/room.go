package models

import (
	"errors"
	"regexp"
)

// MaxRoomNameLength bounds the room path segment.
const MaxRoomNameLength = 64

var ErrInvalidRoomName = errors.New("room name must be 1-64 characters of letters, digits, '-' or '_'")

var roomNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateRoomName checks a room identifier taken from a URL path segment.
func ValidateRoomName(name string) error {
	if name == "" {
		return ErrMissingRoomID
	}
	if len(name) > MaxRoomNameLength || !roomNamePattern.MatchString(name) {
		return ErrInvalidRoomName
	}
	return nil
}
