// Package txn implements the transaction model shared by the legacy and
// witness serialization formats: scripts, outpoints, inputs, outputs,
// byte-exact encoding and decoding, transaction ids, and the signature
// hash state machine including the extended flag branches used by
// witness-native chains.
package txn

import (
	"encoding/hex"
)

// Script opcodes used by the standard output templates.
const (
	opDup         = 0x76
	opHash160     = 0xa9
	opData20      = 0x14
	opData32      = 0x20
	opEqual       = 0x87
	opEqualVerify = 0x88
	opCheckSig    = 0xac
	opReturn      = 0x6a
	op0           = 0x00
)

// ScriptSig is the unlocking script carried by a legacy input.
type ScriptSig []byte

// ScriptPubkey is the locking script carried by an output.
type ScriptPubkey []byte

// Script is a plain script, used where the bytes are neither a
// script_sig nor a script_pubkey in place (redeem and witness scripts).
type Script []byte

// WitnessStackItem is one element of a witness stack.
type WitnessStackItem []byte

// Witness is the witness stack attached to one input.
type Witness []WitnessStackItem

// ScriptType classifies the standard output templates the module
// understands. Classification is by exact length and opcode pattern;
// anything else is nonstandard.
type ScriptType uint8

const (
	// ScriptTypeNonStandard marks scripts matching no known template.
	ScriptTypeNonStandard ScriptType = iota

	// ScriptTypePKH is pay-to-pubkey-hash.
	ScriptTypePKH

	// ScriptTypeSH is pay-to-script-hash.
	ScriptTypeSH

	// ScriptTypeWPKH is pay-to-witness-pubkey-hash.
	ScriptTypeWPKH

	// ScriptTypeWSH is pay-to-witness-script-hash.
	ScriptTypeWSH

	// ScriptTypeOpReturn is a provably unspendable data carrier.
	ScriptTypeOpReturn
)

// String returns a short name for the script type.
func (t ScriptType) String() string {
	switch t {
	case ScriptTypePKH:
		return "p2pkh"
	case ScriptTypeSH:
		return "p2sh"
	case ScriptTypeWPKH:
		return "p2wpkh"
	case ScriptTypeWSH:
		return "p2wsh"
	case ScriptTypeOpReturn:
		return "op_return"
	default:
		return "nonstandard"
	}
}

// Witness reports whether outputs of this type are spent with a witness
// rather than a script_sig. Note that nested witness spends still present
// as ScriptTypeSH here; nesting is visible only once the redeem script is
// known.
func (t ScriptType) Witness() bool {
	return t == ScriptTypeWPKH || t == ScriptTypeWSH
}

// Type classifies the script against the standard templates.
func (s ScriptPubkey) Type() ScriptType {
	switch {
	case len(s) == 25 && s[0] == opDup && s[1] == opHash160 &&
		s[2] == opData20 && s[23] == opEqualVerify &&
		s[24] == opCheckSig:

		return ScriptTypePKH

	case len(s) == 23 && s[0] == opHash160 && s[1] == opData20 &&
		s[22] == opEqual:

		return ScriptTypeSH

	case len(s) == 22 && s[0] == op0 && s[1] == opData20:
		return ScriptTypeWPKH

	case len(s) == 34 && s[0] == op0 && s[1] == opData32:
		return ScriptTypeWSH

	case len(s) > 0 && s[0] == opReturn:
		return ScriptTypeOpReturn

	default:
		return ScriptTypeNonStandard
	}
}

// Payload extracts the committed hash from a standard script: the 20-byte
// HASH160 for PKH/SH/WPKH, the 32-byte SHA256 for WSH. It returns nil for
// anything else.
func (s ScriptPubkey) Payload() []byte {
	switch s.Type() {
	case ScriptTypePKH:
		return s[3:23]
	case ScriptTypeSH:
		return s[2:22]
	case ScriptTypeWPKH, ScriptTypeWSH:
		return s[2:]
	default:
		return nil
	}
}

// String renders the script as hex.
func (s ScriptPubkey) String() string {
	return hex.EncodeToString(s)
}

// NewPKHScriptPubkey builds the pay-to-pubkey-hash template around a
// 20-byte key hash.
func NewPKHScriptPubkey(keyHash []byte) ScriptPubkey {
	out := make(ScriptPubkey, 0, 25)
	out = append(out, opDup, opHash160, opData20)
	out = append(out, keyHash...)
	out = append(out, opEqualVerify, opCheckSig)
	return out
}

// NewSHScriptPubkey builds the pay-to-script-hash template around a
// 20-byte script hash.
func NewSHScriptPubkey(scriptHash []byte) ScriptPubkey {
	out := make(ScriptPubkey, 0, 23)
	out = append(out, opHash160, opData20)
	out = append(out, scriptHash...)
	out = append(out, opEqual)
	return out
}

// NewWPKHScriptPubkey builds the native witness pubkey hash template.
func NewWPKHScriptPubkey(keyHash []byte) ScriptPubkey {
	out := make(ScriptPubkey, 0, 22)
	out = append(out, op0, opData20)
	out = append(out, keyHash...)
	return out
}

// NewWSHScriptPubkey builds the native witness script hash template.
func NewWSHScriptPubkey(scriptHash []byte) ScriptPubkey {
	out := make(ScriptPubkey, 0, 34)
	out = append(out, op0, opData32)
	out = append(out, scriptHash...)
	return out
}
