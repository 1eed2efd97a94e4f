package psbt

import (
	"github.com/keystrata/coinkit/bip32"
	"github.com/keystrata/coinkit/txn"
)

// Output map key types.
const (
	// OutputRedeemScript holds the p2sh preimage script of the output.
	OutputRedeemScript uint8 = 0x00

	// OutputWitnessScript holds the p2wsh preimage script of the
	// output.
	OutputWitnessScript uint8 = 0x01

	// OutputBip32Derivation holds derivation metadata for a pubkey
	// paid by the output.
	OutputBip32Derivation uint8 = 0x02
)

// Output is the spending metadata of one transaction output.
type Output struct {
	kv kvMap
}

// RedeemScript returns the output's p2sh preimage script, if present.
func (out *Output) RedeemScript() (txn.Script, bool) {
	value, ok := out.kv.get(Key{OutputRedeemScript})
	if !ok {
		return nil, false
	}
	return txn.Script(value), true
}

// SetRedeemScript stores the output's p2sh preimage script.
func (out *Output) SetRedeemScript(script txn.Script) {
	out.kv.set(Key{OutputRedeemScript}, Value(script))
}

// WitnessScript returns the output's p2wsh preimage script, if present.
func (out *Output) WitnessScript() (txn.Script, bool) {
	value, ok := out.kv.get(Key{OutputWitnessScript})
	if !ok {
		return nil, false
	}
	return txn.Script(value), true
}

// SetWitnessScript stores the output's p2wsh preimage script.
func (out *Output) SetWitnessScript(script txn.Script) {
	out.kv.set(Key{OutputWitnessScript}, Value(script))
}

// Derivations returns the claimed derivations of the pubkeys this output
// pays.
func (out *Output) Derivations() ([]*bip32.DerivedPubkey, error) {
	return derivationEntries(&out.kv, OutputBip32Derivation)
}

// InsertDerivation stores derivation metadata for a pubkey the output
// pays.
func (out *Output) InsertDerivation(pubkey *bip32.DerivedPubkey) {
	insertDerivationEntry(&out.kv, OutputBip32Derivation, pubkey)
}

// Get reads a raw entry.
func (out *Output) Get(key Key) (Value, bool) {
	return out.kv.get(key)
}

// Set stores a raw entry.
func (out *Output) Set(key Key, value Value) {
	out.kv.set(key, value)
}

// Validate runs the output schema over the map.
func (out *Output) Validate() error {
	return outputSchema().validate(&out.kv)
}
