package psbt

import (
	"bytes"
	"encoding/binary"

	"github.com/keystrata/coinkit/bip32"
	"github.com/keystrata/coinkit/secp"
	"github.com/keystrata/coinkit/txn"
)

// Input map key types.
const (
	// InputNonWitnessUtxo holds the full funding transaction.
	InputNonWitnessUtxo uint8 = 0x00

	// InputWitnessUtxo holds just the funding output.
	InputWitnessUtxo uint8 = 0x01

	// InputPartialSig holds one signature keyed by signing pubkey.
	InputPartialSig uint8 = 0x02

	// InputSighashType holds the flag the signatures must use.
	InputSighashType uint8 = 0x03

	// InputRedeemScript holds the p2sh preimage script.
	InputRedeemScript uint8 = 0x04

	// InputWitnessScript holds the p2wsh preimage script.
	InputWitnessScript uint8 = 0x05

	// InputBip32Derivation holds derivation metadata for a pubkey.
	InputBip32Derivation uint8 = 0x06

	// InputFinalScriptSig holds the finalized unlocking script.
	InputFinalScriptSig uint8 = 0x07

	// InputFinalScriptWitness holds the finalized witness stack.
	InputFinalScriptWitness uint8 = 0x08

	// InputPorCommitment holds a proof-of-reserves commitment.
	InputPorCommitment uint8 = 0x09
)

// Input is the signing state of one transaction input.
type Input struct {
	kv kvMap
}

// PartialSig is one signature over the input, paired with the pubkey it
// verifies under. The signature bytes carry the sighash flag appended.
type PartialSig struct {
	Pubkey secp.Pubkey
	Sig    []byte
}

// NonWitnessUtxo parses the full funding transaction, if present.
func (in *Input) NonWitnessUtxo() (txn.Tx, bool, error) {
	value, ok := in.kv.get(Key{InputNonWitnessUtxo})
	if !ok {
		return nil, false, nil
	}
	tx, err := txn.DecodeTxBytes(value)
	if err != nil {
		return nil, false, err
	}
	return tx, true, nil
}

// SetNonWitnessUtxo stores the full funding transaction.
func (in *Input) SetNonWitnessUtxo(tx txn.Tx) error {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return err
	}
	in.kv.set(Key{InputNonWitnessUtxo}, buf.Bytes())
	return nil
}

// WitnessUtxo parses the funding output, if present.
func (in *Input) WitnessUtxo() (*txn.TxOut, bool, error) {
	value, ok := in.kv.get(Key{InputWitnessUtxo})
	if !ok {
		return nil, false, nil
	}
	var out txn.TxOut
	if err := out.Decode(bytes.NewReader(value)); err != nil {
		return nil, false, err
	}
	return &out, true, nil
}

// SetWitnessUtxo stores the funding output.
func (in *Input) SetWitnessUtxo(out *txn.TxOut) {
	var buf bytes.Buffer
	// Writes to a bytes.Buffer never fail.
	_ = out.Encode(&buf)
	in.kv.set(Key{InputWitnessUtxo}, buf.Bytes())
}

// PartialSigs returns all partial signatures in pubkey order.
func (in *Input) PartialSigs() ([]*PartialSig, error) {
	var sigs []*PartialSig
	for _, pair := range in.kv.typeRange(InputPartialSig) {
		if len(pair.key) != 1+secp.PubkeyLen {
			return nil, &InvalidKeyError{
				KeyType: InputPartialSig,
				Length:  len(pair.key),
			}
		}
		pubkey, err := secp.NewPubkey(pair.key[1:])
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, &PartialSig{
			Pubkey: pubkey,
			Sig:    append([]byte(nil), pair.value...),
		})
	}
	return sigs, nil
}

// InsertPartialSig stores a signature under its pubkey. The signature
// bytes must already carry the sighash flag byte.
func (in *Input) InsertPartialSig(pubkey secp.Pubkey, sig []byte) {
	key := make(Key, 0, 1+secp.PubkeyLen)
	key = append(key, InputPartialSig)
	key = append(key, pubkey[:]...)
	in.kv.set(key, sig)
}

// SighashFlag returns the input's required sighash flag. When the entry
// is absent the default all-type flag applies.
func (in *Input) SighashFlag() (txn.SighashFlag, error) {
	value, ok := in.kv.get(Key{InputSighashType})
	if !ok {
		return txn.SighashAll, nil
	}
	if len(value) != 4 {
		return 0, &InvalidValueError{
			KeyType: InputSighashType,
			Reason:  "not a 32-bit sighash type",
		}
	}
	return txn.ParseSighashFlag(byte(binary.LittleEndian.Uint32(value)))
}

// SetSighashFlag stores the required sighash flag.
func (in *Input) SetSighashFlag(flag txn.SighashFlag) {
	var value [4]byte
	binary.LittleEndian.PutUint32(value[:], uint32(flag))
	in.kv.set(Key{InputSighashType}, value[:])
}

// RedeemScript returns the p2sh preimage script, if present.
func (in *Input) RedeemScript() (txn.Script, bool) {
	value, ok := in.kv.get(Key{InputRedeemScript})
	if !ok {
		return nil, false
	}
	return txn.Script(value), true
}

// SetRedeemScript stores the p2sh preimage script.
func (in *Input) SetRedeemScript(script txn.Script) {
	in.kv.set(Key{InputRedeemScript}, Value(script))
}

// WitnessScript returns the p2wsh preimage script, if present.
func (in *Input) WitnessScript() (txn.Script, bool) {
	value, ok := in.kv.get(Key{InputWitnessScript})
	if !ok {
		return nil, false
	}
	return txn.Script(value), true
}

// SetWitnessScript stores the p2wsh preimage script.
func (in *Input) SetWitnessScript(script txn.Script) {
	in.kv.set(Key{InputWitnessScript}, Value(script))
}

// Derivations returns the claimed derivations of the pubkeys able to sign
// this input.
func (in *Input) Derivations() ([]*bip32.DerivedPubkey, error) {
	return derivationEntries(&in.kv, InputBip32Derivation)
}

// InsertDerivation stores derivation metadata for a pubkey.
func (in *Input) InsertDerivation(pubkey *bip32.DerivedPubkey) {
	insertDerivationEntry(&in.kv, InputBip32Derivation, pubkey)
}

// FinalScriptSig returns the finalized unlocking script, if present.
func (in *Input) FinalScriptSig() (txn.ScriptSig, bool) {
	value, ok := in.kv.get(Key{InputFinalScriptSig})
	if !ok {
		return nil, false
	}
	return txn.ScriptSig(value), true
}

// SetFinalScriptSig stores the finalized unlocking script.
func (in *Input) SetFinalScriptSig(scriptSig txn.ScriptSig) {
	in.kv.set(Key{InputFinalScriptSig}, Value(scriptSig))
}

// FinalWitness returns the finalized witness stack, if present.
func (in *Input) FinalWitness() (txn.Witness, bool, error) {
	value, ok := in.kv.get(Key{InputFinalScriptWitness})
	if !ok {
		return nil, false, nil
	}
	wit, err := txn.DecodeWitness(bytes.NewReader(value))
	if err != nil {
		return nil, false, err
	}
	return wit, true, nil
}

// SetFinalWitness stores the finalized witness stack.
func (in *Input) SetFinalWitness(wit txn.Witness) {
	var buf bytes.Buffer
	_ = wit.Encode(&buf)
	in.kv.set(Key{InputFinalScriptWitness}, buf.Bytes())
}

// IsFinalized reports whether the input carries either finalized form.
func (in *Input) IsFinalized() bool {
	_, hasScriptSig := in.kv.get(Key{InputFinalScriptSig})
	_, hasWitness := in.kv.get(Key{InputFinalScriptWitness})
	return hasScriptSig || hasWitness
}

// Get reads a raw entry.
func (in *Input) Get(key Key) (Value, bool) {
	return in.kv.get(key)
}

// Set stores a raw entry.
func (in *Input) Set(key Key, value Value) {
	in.kv.set(key, value)
}

// Validate runs the input schema over the map and rejects conflicting
// UTXO forms.
func (in *Input) Validate() error {
	_, hasNonWitness := in.kv.get(Key{InputNonWitnessUtxo})
	_, hasWitness := in.kv.get(Key{InputWitnessUtxo})
	if hasNonWitness && hasWitness {
		return ErrBothUtxoForms
	}
	return inputSchema().validate(&in.kv)
}

// derivationEntries parses every derivation entry of the given type from
// a map.
func derivationEntries(m *kvMap, keyType uint8) ([]*bip32.DerivedPubkey,
	error) {

	var entries []*bip32.DerivedPubkey
	for _, pair := range m.typeRange(keyType) {
		if len(pair.key) != 1+secp.PubkeyLen {
			return nil, &InvalidKeyError{
				KeyType: keyType,
				Length:  len(pair.key),
			}
		}
		pubkey, err := secp.NewPubkey(pair.key[1:])
		if err != nil {
			return nil, err
		}
		derivation, err := bip32.ParseKeyDerivation(pair.value)
		if err != nil {
			return nil, err
		}
		entries = append(entries, &bip32.DerivedPubkey{
			Key:        pubkey,
			Derivation: derivation,
		})
	}
	return entries, nil
}

// insertDerivationEntry stores one derivation entry of the given type.
func insertDerivationEntry(m *kvMap, keyType uint8,
	pubkey *bip32.DerivedPubkey) {

	key := make(Key, 0, 1+secp.PubkeyLen)
	key = append(key, keyType)
	key = append(key, pubkey.Key[:]...)
	m.set(key, pubkey.Derivation.Bytes())
}
