package services

import "errors"

var (
	// ErrValidation is returned when a request lacks its text or owner.
	ErrValidation = errors.New("missing text or owner")

	// ErrExtraction wraps a failure of the extraction engine.
	ErrExtraction = errors.New("extraction failed")

	// ErrPersistence wraps a rejected storage write.
	ErrPersistence = errors.New("persistence failed")

	// ErrTaskNotFound is returned when a task does not exist for the requesting owner.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidAttachment is returned for uploads that are not images or are too large.
	ErrInvalidAttachment = errors.New("invalid attachment")
)
