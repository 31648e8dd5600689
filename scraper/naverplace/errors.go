package naverplace

import "errors"

var (
	// ErrLaunch is returned when the browser sandbox process could not start.
	ErrLaunch = errors.New("browser launch failed")

	// ErrNavigationTimeout is returned when the page never settled or the
	// listing frame never appeared within its bound.
	ErrNavigationTimeout = errors.New("navigation timed out")

	// ErrFrameUnavailable is returned when the frame element exists but its
	// content could not be resolved.
	ErrFrameUnavailable = errors.New("listing frame content unavailable")

	// ErrEmptyListing is returned when the page rendered but no listing name
	// could be extracted, meaning the page shape was not recognized.
	ErrEmptyListing = errors.New("listing not found on page")
)
