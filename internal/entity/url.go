// Package entity defines the entities and errors used in the application.
// It includes the URL struct, which represents a short link record, along with
// the errors that classify the outcome of resolving one.
package entity

import (
	"errors"
	"time"
)

var (
	// ErrIDExists is returned when attempting to create a URL with an id that already exists.
	ErrIDExists = errors.New("id exists")
	// ErrURLNotFound is returned when a URL with the specified id cannot be found.
	ErrURLNotFound = errors.New("url not found")
	// ErrNoDestination is returned when a URL record exists but has nothing to redirect to.
	ErrNoDestination = errors.New("url has no destination")
)

// URL represents a short link record.
type URL struct {
	ID        string    // ID is the short identifier clients resolve.
	URL       string    // URL is the destination; empty when the record has none.
	Clicks    int64     // Clicks is the number of successful resolutions.
	CreatedAt time.Time // CreatedAt is the timestamp when the record was created.
	UpdatedAt time.Time // UpdatedAt is the timestamp when the record was last changed.
}

// HasDestination reports whether the record can be redirected to.
func (u *URL) HasDestination() bool {
	return u.URL != ""
}
