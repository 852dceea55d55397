package domain

import (
	"errors"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100

	// DefaultUserID is used when a favorite or comment arrives without a user.
	DefaultUserID = "00000000-0000-0000-0000-000000000001"

	// TimestampLayout is the document store's createdAt format (UTC, millisecond precision).
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

var (
	MessageFailedProcessRequest = "failed to process request"
	MessageFailedBodyRequest    = "failed to parse request body"
	MessageFailedValidation     = "request validation failed"

	ErrNotFound          = errors.New("not found")
	ErrInvalidJob        = errors.New("invalid media job payload")
	ErrConflict          = errors.New("unique constraint conflict")
	ErrInvalidTransition = errors.New("invalid moderation transition")
	ErrParseUUID         = errors.New("failed to parse UUID")
	ErrInvalidPagination = errors.New("invalid pagination parameters")
	ErrWebhookFailed     = errors.New("moderation webhook call failed")
)

type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// Normalize fills in defaults and clamps the page size.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}
