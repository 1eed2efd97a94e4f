package psbt

import (
	"errors"
	"fmt"
)

var (
	// ErrBadMagic is returned when a serialized packet does not start
	// with the "psbt" magic and separator.
	ErrBadMagic = errors.New("psbt: bad magic")

	// ErrOversizedKV is returned when a key or value length prefix
	// exceeds the sanity cap.
	ErrOversizedKV = errors.New("psbt: key or value length too large")

	// ErrMissingUnsignedTx is returned when the global map lacks the
	// unsigned transaction entry.
	ErrMissingUnsignedTx = errors.New(
		"psbt: global map has no unsigned transaction",
	)

	// ErrScriptSigInTx is returned when the global unsigned transaction
	// carries a non-empty script_sig.
	ErrScriptSigInTx = errors.New(
		"psbt: unsigned transaction has a populated script_sig",
	)

	// ErrBothUtxoForms is returned when an input map holds both a
	// witness and a non-witness UTXO.
	ErrBothUtxoForms = errors.New(
		"psbt: input has both witness and non-witness utxo",
	)

	// ErrMissingUtxo is returned when an operation needs an input's
	// funding output and neither UTXO form is present.
	ErrMissingUtxo = errors.New("psbt: input has no utxo information")

	// ErrWrongPrevout is returned when a non-witness UTXO's txid does
	// not match the input's outpoint, or the outpoint index is beyond
	// its outputs.
	ErrWrongPrevout = errors.New(
		"psbt: utxo does not match the input's outpoint",
	)

	// ErrNotFinalized is returned when extraction encounters an input
	// with no finalized script_sig or witness.
	ErrNotFinalized = errors.New("psbt: input is not finalized")

	// ErrNoPartialSig is returned when finalization finds no usable
	// partial signature on an input.
	ErrNoPartialSig = errors.New("psbt: input has no partial signature")

	// ErrUnsupportedScriptType is returned when a role cannot handle an
	// input's script template.
	ErrUnsupportedScriptType = errors.New(
		"psbt: unsupported script type for this role",
	)
)

// DuplicateKeyError is returned when a serialized map carries the same
// key twice.
type DuplicateKeyError struct {
	Key Key
}

// Error implements the error interface.
func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("psbt: duplicate key %x", []byte(e.Key))
}

// InvalidKeyError is returned when a key's framing is wrong for its type:
// unexpected length or unexpected key data.
type InvalidKeyError struct {
	KeyType uint8
	Length  int
}

// Error implements the error interface.
func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("psbt: invalid key of type 0x%02x with length %d",
		e.KeyType, e.Length)
}

// InvalidValueError is returned when a value cannot be interpreted for
// its key type.
type InvalidValueError struct {
	KeyType uint8
	Reason  string
}

// Error implements the error interface.
func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("psbt: invalid value for key type 0x%02x: %s",
		e.KeyType, e.Reason)
}

// MapCountError is returned when the number of input or output maps does
// not match the unsigned transaction's vectors.
type MapCountError struct {
	Kind string
	Maps int
	Tx   int
}

// Error implements the error interface.
func (e *MapCountError) Error() string {
	return fmt.Sprintf("psbt: %d %s maps for %d tx %ss",
		e.Maps, e.Kind, e.Tx, e.Kind)
}
