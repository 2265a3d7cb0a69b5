package models

import (
	"errors"
	"fmt"
)

// URLMapping is a single persisted association between a token and its destination.
type URLMapping struct {
	ID          int64
	OriginalURL string
	ShortURL    string
}

type ShortenRequest struct {
	OriginalURL    string `json:"original_url"`
	CustomShortURL string `json:"custom_short_url,omitempty"`
}

type ShortenResponse struct {
	ShortURL string `json:"short_url"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

const (
	DatabaseTypeMySQL    = "mysql"
	DatabaseTypePostgres = "postgres"
)

// SupportedDatabaseTypes lists the values accepted for the database type setting.
var SupportedDatabaseTypes = []string{DatabaseTypeMySQL, DatabaseTypePostgres}

var (
	// ErrValidation is the parent of every input validation failure.
	ErrValidation = errors.New("validation failed")

	ErrOriginalURLRequired = fmt.Errorf("%w: original URL is required", ErrValidation)

	ErrInvalidCustomToken = fmt.Errorf("%w: custom token must be alphanumeric and up to 10 characters long", ErrValidation)

	// ErrConflict is returned when a requested custom token is already taken.
	ErrConflict = errors.New("short URL already exists")

	// ErrNotFound is returned by lookups of tokens that were never stored.
	ErrNotFound = errors.New("short URL not found")

	// ErrDuplicateKey is raised by stores when an insert violates the short URL uniqueness.
	ErrDuplicateKey = errors.New("duplicate short URL")

	ErrTokenSpaceExhausted = errors.New("the number of attempts to generate a unique key has been exceeded")
)
