package bip32

import (
	"errors"
	"fmt"
)

var (
	// ErrSeedTooShort is returned when a master seed is shorter than
	// SeedMinLen bytes.
	ErrSeedTooShort = errors.New("bip32: seed must be at least 16 bytes")

	// ErrSeedTooLong is returned when a master seed is longer than
	// SeedMaxLen bytes.
	ErrSeedTooLong = errors.New("bip32: seed must be at most 64 bytes")

	// ErrInvalidKey is returned when entropy expansion produces a
	// scalar that is zero or not less than the group order, where no
	// retry rule applies.
	ErrInvalidKey = errors.New("bip32: entropy produced an invalid key")

	// ErrHardenedChild is returned when hardened derivation is requested
	// from an extended public key.
	ErrHardenedChild = errors.New(
		"bip32: cannot derive a hardened child of a public key",
	)

	// ErrBadChecksum is returned when the four trailing checksum bytes
	// of a base58check string do not match its payload.
	ErrBadChecksum = errors.New("bip32: bad base58 checksum")

	// ErrBadPadding is returned when the padding byte before a
	// serialized private key is not zero.
	ErrBadPadding = errors.New(
		"bip32: nonzero padding byte in serialized private key",
	)

	// ErrMalformedDerivation is returned when serialized key derivation
	// metadata is not 4 + 4n bytes long.
	ErrMalformedDerivation = errors.New(
		"bip32: malformed key derivation metadata",
	)

	// ErrBadXKeyLength is returned when a serialized extended key is not
	// exactly XKeyLen bytes before its checksum.
	ErrBadXKeyLength = errors.New(
		"bip32: serialized extended key must be 78 bytes",
	)
)

// BadVersionBytesError is returned when the four leading version bytes of
// a serialized extended key are not in the active network's table, or
// select the wrong key type for the operation.
type BadVersionBytesError struct {
	Version [4]byte
}

// Error implements the error interface.
func (e *BadVersionBytesError) Error() string {
	return fmt.Sprintf("bip32: unknown extended key version bytes %x",
		e.Version[:])
}

// MalformedPathError is returned when a derivation path string contains a
// component that is not a decimal index with an optional hardening
// suffix.
type MalformedPathError struct {
	Path      string
	Component string
}

// Error implements the error interface.
func (e *MalformedPathError) Error() string {
	return fmt.Sprintf("bip32: malformed component %q in path %q",
		e.Component, e.Path)
}

// PathTooLongError is returned when a derivation path exceeds the maximum
// representable depth.
type PathTooLongError struct {
	Length int
}

// Error implements the error interface.
func (e *PathTooLongError) Error() string {
	return fmt.Sprintf("bip32: path of length %d exceeds max depth %d",
		e.Length, MaxPathDepth)
}
