package txn

import (
	"errors"
	"fmt"
)

var (
	// ErrBadWitnessFlag is returned when the byte after the witness
	// marker is not 0x01.
	ErrBadWitnessFlag = errors.New(
		"txn: witness marker must be followed by flag 0x01",
	)

	// ErrNoneUnsupported is returned for the SIGHASH_NONE family, which
	// this module refuses to produce.
	ErrNoneUnsupported = errors.New(
		"txn: sighash none is not supported",
	)

	// ErrSighashSingleBug is returned when a single-type sighash is
	// requested for an input index with no corresponding output. The
	// historical "one" digest is never produced.
	ErrSighashSingleBug = errors.New(
		"txn: single-type sighash requested with no matching output",
	)

	// ErrTooManyWitnesses is returned when a witness transaction is
	// built with more witnesses than inputs.
	ErrTooManyWitnesses = errors.New(
		"txn: more witnesses than inputs",
	)

	// ErrOpReturnTooLong is returned when an OP_RETURN payload exceeds
	// the single direct push limit.
	ErrOpReturnTooLong = errors.New(
		"txn: op_return payload exceeds 75 bytes",
	)

	// ErrOversizedBytes is returned when a length prefix in serialized
	// data exceeds the sanity cap.
	ErrOversizedBytes = errors.New(
		"txn: length prefix exceeds sanity limit",
	)

	// ErrMissingSpendScript is returned when signing a script hash
	// output whose spend script has not been provided.
	ErrMissingSpendScript = errors.New(
		"txn: spend script required but not known",
	)

	// ErrUnexpectedSpendScript is returned when a spend script is
	// offered for an output type that does not take one, or one is
	// already set.
	ErrUnexpectedSpendScript = errors.New(
		"txn: utxo does not accept a spend script",
	)

	// ErrWrongSpendScript is returned when an offered spend script does
	// not hash to the script pubkey's commitment.
	ErrWrongSpendScript = errors.New(
		"txn: spend script does not match script pubkey",
	)

	// ErrNonStandardScript is returned when a signing script is
	// requested for an output matching no standard template.
	ErrNonStandardScript = errors.New(
		"txn: nonstandard script pubkey",
	)
)

// UnknownSighashError is returned when a flag byte matches no supported
// sighash type.
type UnknownSighashError struct {
	Flag byte
}

// Error implements the error interface.
func (e *UnknownSighashError) Error() string {
	return fmt.Sprintf("txn: unknown sighash flag 0x%02x", e.Flag)
}

// InputIndexError is returned when an operation targets an input index
// beyond the transaction's input count.
type InputIndexError struct {
	Index  int
	VinLen int
}

// Error implements the error interface.
func (e *InputIndexError) Error() string {
	return fmt.Sprintf("txn: input index %d out of range, tx has %d "+
		"inputs", e.Index, e.VinLen)
}
