package model

import "time"

// Synchronizable is implemented by every local record type subject to sync.
// The same type serves for local rows and their mirrors.
type Synchronizable interface {
	GetID() string
	GetExternalID() string
	GetMateID() string
	IsMirror() bool
	GetUpdatedAt() time.Time
}

// External is implemented by every remote DTO.
type External interface {
	GetExternalID() string
	GetUpdatedAt() time.Time
}

// Vector3 is a point in model space.
type Vector3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// SameInstant reports whether two timestamps denote the same instant.
// Zero values only equal each other.
func SameInstant(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return a.IsZero() && b.IsZero()
	}
	return a.Equal(b)
}

// Later reports whether a is strictly after b.
func Later(a, b time.Time) bool {
	return a.After(b)
}
