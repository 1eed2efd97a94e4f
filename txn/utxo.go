package txn

import (
	"bytes"
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcutil"
)

// SpendScriptState describes what is known about the spend script of a
// UTXO.
type SpendScriptState uint8

const (
	// SpendScriptNone means the output type takes no spend script.
	SpendScriptNone SpendScriptState = iota

	// SpendScriptMissing means the output commits to a script hash but
	// the preimage script has not been provided yet.
	SpendScriptMissing

	// SpendScriptKnown means the spend script is present and has been
	// checked against the output's commitment.
	SpendScriptKnown
)

// UTXO is an unspent output together with whatever is known about how to
// spend it.
type UTXO struct {
	// Outpoint locates the output.
	Outpoint Outpoint

	// Value is the output amount in base units.
	Value uint64

	// ScriptPubkey is the locking script.
	ScriptPubkey ScriptPubkey

	spendScript Script
	spendState  SpendScriptState
}

// NewUTXO assembles a UTXO, inferring the spend script state from the
// locking script's type: script hash outputs start as missing, everything
// else takes no spend script.
func NewUTXO(outpoint Outpoint, value uint64,
	scriptPubkey ScriptPubkey) *UTXO {

	state := SpendScriptNone
	switch scriptPubkey.Type() {
	case ScriptTypeSH, ScriptTypeWSH:
		state = SpendScriptMissing
	}
	return &UTXO{
		Outpoint:     outpoint,
		Value:        value,
		ScriptPubkey: scriptPubkey,
		spendState:   state,
	}
}

// NewUTXOFromTxOut assembles a UTXO from an output and its location.
func NewUTXOFromTxOut(out *TxOut, outpoint Outpoint) *UTXO {
	return NewUTXO(outpoint, out.Value, out.ScriptPubkey)
}

// SpendScriptState reports what is known about the spend script.
func (u *UTXO) SpendScriptState() SpendScriptState {
	return u.spendState
}

// SpendScript returns the spend script if it is known.
func (u *UTXO) SpendScript() (Script, bool) {
	if u.spendState != SpendScriptKnown {
		return nil, false
	}
	return u.spendScript, true
}

// SetSpendScript provides the preimage script for a script hash output.
// The script is accepted only while the state is missing and only when it
// hashes to the output's commitment: HASH160 for p2sh, SHA256 for p2wsh.
func (u *UTXO) SetSpendScript(script Script) error {
	if u.spendState != SpendScriptMissing {
		return ErrUnexpectedSpendScript
	}

	switch u.ScriptPubkey.Type() {
	case ScriptTypeSH:
		if !bytes.Equal(btcutil.Hash160(script),
			u.ScriptPubkey.Payload()) {

			return ErrWrongSpendScript
		}

	case ScriptTypeWSH:
		digest := sha256.Sum256(script)
		if !bytes.Equal(digest[:], u.ScriptPubkey.Payload()) {
			return ErrWrongSpendScript
		}

	default:
		return ErrUnexpectedSpendScript
	}

	u.spendScript = script
	u.spendState = SpendScriptKnown
	return nil
}

// SigningScript returns the script a signature for this UTXO commits to:
// the locking script itself for pkh, the synthesized pkh template for
// wpkh, and the spend script for script hash outputs.
func (u *UTXO) SigningScript() (ScriptPubkey, error) {
	switch u.ScriptPubkey.Type() {
	case ScriptTypePKH:
		return u.ScriptPubkey, nil

	case ScriptTypeWPKH:
		return NewPKHScriptPubkey(u.ScriptPubkey.Payload()), nil

	case ScriptTypeSH, ScriptTypeWSH:
		script, ok := u.SpendScript()
		if !ok {
			return nil, ErrMissingSpendScript
		}
		return ScriptPubkey(script), nil

	default:
		return nil, ErrNonStandardScript
	}
}

// SighashArgs builds legacy sighash arguments for spending this UTXO.
func (u *UTXO) SighashArgs(index int, flag SighashFlag) (*SighashArgs,
	error) {

	script, err := u.SigningScript()
	if err != nil {
		return nil, err
	}
	return &SighashArgs{
		Index:         index,
		Flag:          flag,
		PrevoutScript: script,
	}, nil
}

// WitnessSighashArgs builds witness sighash arguments for spending this
// UTXO.
func (u *UTXO) WitnessSighashArgs(index int,
	flag SighashFlag) (*WitnessSighashArgs, error) {

	script, err := u.SigningScript()
	if err != nil {
		return nil, err
	}
	return &WitnessSighashArgs{
		Index:         index,
		Flag:          flag,
		PrevoutScript: script,
		PrevoutValue:  u.Value,
	}, nil
}
