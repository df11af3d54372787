package extraction

import "errors"

var (
	// ErrModelInvocation is returned when the language model call fails or returns no content.
	// No parsing is attempted in that case.
	ErrModelInvocation = errors.New("model invocation failed")

	// ErrEmptyResult is returned when the model answered but no task text survived parsing.
	ErrEmptyResult = errors.New("no task text could be extracted")
)
