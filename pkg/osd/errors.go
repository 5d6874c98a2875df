package osd

import (
	"errors"
	"strconv"
)

var (
	// ErrUnsupportedVersion is returned when a descriptor carries an unknown version tag.
	ErrUnsupportedVersion = errors.New("unsupported descriptor version")

	// ErrMalformedPayload is returned when a descriptor is truncated or carries impossible lengths.
	ErrMalformedPayload = errors.New("malformed descriptor payload")

	// ErrInvalidProfile is returned when a profile carries a NaN or infinite value.
	ErrInvalidProfile = errors.New("invalid performance profile")
)

// VersionError reports the version tag that could not be handled.
type VersionError struct {
	Version byte
}

func (e *VersionError) Error() string {
	return "cannot handle descriptor version " + strconv.Itoa(int(e.Version))
}

func (e *VersionError) Unwrap() error {
	return ErrUnsupportedVersion
}

// PayloadError reports which field of a descriptor could not be read.
type PayloadError struct {
	Field  string
	Offset int
}

func (e *PayloadError) Error() string {
	return "malformed descriptor payload: cannot read " + e.Field + " at offset " + strconv.Itoa(e.Offset)
}

func (e *PayloadError) Unwrap() error {
	return ErrMalformedPayload
}

// ProfileError names the profile field holding a non-finite value.
type ProfileError struct {
	Field string
	Value float64
}

func (e *ProfileError) Error() string {
	return "invalid performance profile: " + e.Field + " is " + strconv.FormatFloat(e.Value, 'g', -1, 64)
}

func (e *ProfileError) Unwrap() error {
	return ErrInvalidProfile
}
