package pen

import "errors"

var (
	// ErrNilHost is returned by NewLayer when host is nil.
	ErrNilHost = errors.New("pen: host is nil")

	// ErrNilDevice is returned by NewLayer when the host has no device.
	ErrNilDevice = errors.New("pen: host returned a nil device")

	// ErrInvalidSize is returned when the native stage size is not positive.
	ErrInvalidSize = errors.New("pen: stage size must be positive")

	// ErrInvalidQuality is returned for a non-positive render quality.
	ErrInvalidQuality = errors.New("pen: render quality must be positive")
)
