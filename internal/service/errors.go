package service

import "errors"

// Classified failures for the capture and recovery paths. The recognition
// errors are wrapped with context by the vision client; callers match them
// with errors.Is.
var (
	// ErrEmptyImage means capture was invoked with no image bytes at all.
	ErrEmptyImage = errors.New("no image data provided")

	// ErrRecognitionNetwork covers transient connectivity failures talking
	// to the recognition backend.
	ErrRecognitionNetwork = errors.New("recognition request failed")

	// ErrRecognitionTimeout means the recognition backend did not answer in
	// time.
	ErrRecognitionTimeout = errors.New("recognition request timed out")

	// ErrMalformedResponse means the recognition backend answered with
	// something that does not validate as an analysis result.
	ErrMalformedResponse = errors.New("malformed recognition response")

	// ErrNoRecoverableImage means a pending meal has no stored image to
	// re-analyze.
	ErrNoRecoverableImage = errors.New("no image available")

	// ErrMealNotFound is returned when a meal id does not exist.
	ErrMealNotFound = errors.New("meal not found")
)
