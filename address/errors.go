package address

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedHRP is returned when a bech32 prefix matches no
	// registered network.
	ErrUnsupportedHRP = errors.New("address: unsupported bech32 prefix")

	// ErrBadChecksum is returned when a base58check address fails its
	// checksum.
	ErrBadChecksum = errors.New("address: bad base58 checksum")

	// ErrUnencodableScript is returned when a script pubkey matches no
	// addressable template.
	ErrUnencodableScript = errors.New(
		"address: script has no address form",
	)

	// ErrNoBase58 is returned when a base58 address form is requested
	// on a witness-only network.
	ErrNoBase58 = errors.New(
		"address: network has no base58 address format",
	)

	// ErrBadWitnessProgram is returned when a witness program has an
	// invalid length for its version.
	ErrBadWitnessProgram = errors.New(
		"address: invalid witness program length",
	)
)

// WrongHRPError is returned when a bech32 address carries a prefix for a
// different network than the one requested.
type WrongHRPError struct {
	Got  string
	Want string
}

// Error implements the error interface.
func (e *WrongHRPError) Error() string {
	return fmt.Sprintf("address: wrong bech32 prefix %q, want %q",
		e.Got, e.Want)
}

// UnknownVersionError is returned when a base58check version byte or a
// witness version is outside the network's tables.
type UnknownVersionError struct {
	Version byte
}

// Error implements the error interface.
func (e *UnknownVersionError) Error() string {
	return fmt.Sprintf("address: unknown address version 0x%02x",
		e.Version)
}
