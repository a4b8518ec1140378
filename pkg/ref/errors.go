package ref

import "errors"

var (
	ErrEmpty        = errors.New("empty reference")
	ErrMalformed    = errors.New("malformed reference")
	ErrMultiElement = errors.New("multi-element sequence is not a single reference")
	ErrNotSequence  = errors.New("references are not a sequence")
	ErrEmptySegment = errors.New("reference path ends with an empty segment")
)
