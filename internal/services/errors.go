package services

import "errors"

var (
	// ErrInvalidDimensions is returned when width or height is not a positive finite number.
	ErrInvalidDimensions = errors.New("width and height must be positive numbers")

	ErrInvalidColorMode = errors.New("color mode must be cmyk or rgb")

	// ErrInvalidProduct is returned for registrations that fail validation.
	ErrInvalidProduct = errors.New("invalid product")

	// ErrStoreUnavailable is returned when a required write could not reach the store.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrPartialDecrement means the lot was decremented but its parent was not.
	ErrPartialDecrement = errors.New("lot decremented but parent update failed")
)
