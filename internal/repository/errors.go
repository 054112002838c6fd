package repository

import "errors"

var (
	// ErrInvalidRecord indicates a record without a media type
	ErrInvalidRecord = errors.New("invalid history record")

	// ErrRecordNotFound indicates the history record was not found
	ErrRecordNotFound = errors.New("history record not found")

	// ErrRepositoryUnavailable indicates the repository is unavailable
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
