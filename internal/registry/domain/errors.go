package registry

import "errors"

var (
	// ErrInvalidPeriod is returned when month or year is out of range.
	ErrInvalidPeriod = errors.New("registry: invalid period")
	// ErrEmptySubscriberName is returned when a subscriber has no display name.
	ErrEmptySubscriberName = errors.New("registry: empty subscriber name")
	// ErrNilReading is returned when composing without a current-period reading.
	ErrNilReading = errors.New("registry: nil current reading")
	// ErrUnsafeFileName is returned when sanitizing leaves nothing usable.
	ErrUnsafeFileName = errors.New("registry: empty file name after sanitizing")
)
