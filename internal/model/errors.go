package model

import "errors"

var (
	// ErrAlignment is returned when the record and path streams of one input
	// disagree in length.
	ErrAlignment = errors.New("record and path streams are not aligned")

	// ErrInvalidConfiguration is returned for settings that make a run impossible.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrTransport is returned when a bulk request could not be attempted or
	// was rejected as a whole by the store.
	ErrTransport = errors.New("document store transport failure")

	// ErrWorker is returned when a chunk fails during transformation.
	ErrWorker = errors.New("chunk worker failed")
)
