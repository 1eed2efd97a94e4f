package psbt

import (
	"bytes"

	"github.com/keystrata/coinkit/bip32"
	"github.com/keystrata/coinkit/txn"
)

// KVPredicate checks one key-value pair. Predicates are pure validation:
// they never mutate the map.
type KVPredicate func(key Key, value Value) error

// Schema maps key types to their validation predicates. Key types absent
// from the schema are not checked, preserving forward compatibility with
// unknown entries.
type Schema map[uint8]KVPredicate

// Insert registers a predicate for a key type. If one is already
// registered the two compose: both must pass.
func (s Schema) Insert(keyType uint8, pred KVPredicate) {
	existing, ok := s[keyType]
	if !ok {
		s[keyType] = pred
		return
	}
	s[keyType] = func(key Key, value Value) error {
		if err := existing(key, value); err != nil {
			return err
		}
		return pred(key, value)
	}
}

// validate runs the schema against every entry of a map.
func (s Schema) validate(m *kvMap) error {
	return m.forEach(func(key Key, value Value) error {
		pred, ok := s[key.KeyType()]
		if !ok {
			return nil
		}
		return pred(key, value)
	})
}

// keyLenIs builds a predicate enforcing an exact key length, type byte
// included.
func keyLenIs(n int) KVPredicate {
	return func(key Key, _ Value) error {
		if len(key) != n {
			return &InvalidKeyError{
				KeyType: key.KeyType(),
				Length:  len(key),
			}
		}
		return nil
	}
}

// valueLenIs builds a predicate enforcing an exact value length.
func valueLenIs(n int) KVPredicate {
	return func(key Key, value Value) error {
		if len(value) != n {
			return &InvalidValueError{
				KeyType: key.KeyType(),
				Reason:  "wrong length",
			}
		}
		return nil
	}
}

// validateUnsignedTx checks the global unsigned transaction entry: a bare
// type key and a legacy-serialized transaction with empty script_sigs.
func validateUnsignedTx(key Key, value Value) error {
	if len(key) != 1 {
		return &InvalidKeyError{
			KeyType: key.KeyType(),
			Length:  len(key),
		}
	}

	var tx txn.LegacyTx
	if err := tx.Deserialize(bytes.NewReader(value)); err != nil {
		return &InvalidValueError{
			KeyType: key.KeyType(),
			Reason:  err.Error(),
		}
	}
	for _, in := range tx.Vin {
		if len(in.ScriptSig) > 0 {
			return ErrScriptSigInTx
		}
	}
	return nil
}

// validateGlobalXpub checks an extended public key entry: a 78-byte key
// payload and derivation metadata whose path length matches the xpub's
// depth byte.
func validateGlobalXpub(key Key, value Value) error {
	if len(key) != 1+bip32.XKeyLen {
		return &InvalidKeyError{
			KeyType: key.KeyType(),
			Length:  len(key),
		}
	}

	derivation, err := bip32.ParseKeyDerivation(value)
	if err != nil {
		return &InvalidValueError{
			KeyType: key.KeyType(),
			Reason:  err.Error(),
		}
	}

	// Byte 4 of the xpub payload is its depth; the claimed path must
	// walk exactly that many steps.
	depth := key[1+4]
	if int(depth) != len(derivation.Path) {
		return &InvalidValueError{
			KeyType: key.KeyType(),
			Reason:  "path length does not match xpub depth",
		}
	}
	return nil
}

// validateNonWitnessUtxo checks that the value parses as a transaction of
// either format.
func validateNonWitnessUtxo(key Key, value Value) error {
	if len(key) != 1 {
		return &InvalidKeyError{
			KeyType: key.KeyType(),
			Length:  len(key),
		}
	}
	if _, err := txn.DecodeTxBytes(value); err != nil {
		return &InvalidValueError{
			KeyType: key.KeyType(),
			Reason:  err.Error(),
		}
	}
	return nil
}

// validateWitnessUtxo checks that the value parses as a single output.
func validateWitnessUtxo(key Key, value Value) error {
	if len(key) != 1 {
		return &InvalidKeyError{
			KeyType: key.KeyType(),
			Length:  len(key),
		}
	}

	var out txn.TxOut
	r := bytes.NewReader(value)
	if err := out.Decode(r); err != nil || r.Len() != 0 {
		return &InvalidValueError{
			KeyType: key.KeyType(),
			Reason:  "not a serialized output",
		}
	}
	return nil
}

// validatePartialSig checks a partial signature entry: the key carries a
// compressed pubkey and the value ends in a sighash flag byte.
func validatePartialSig(key Key, value Value) error {
	if len(key) != 34 {
		return &InvalidKeyError{
			KeyType: key.KeyType(),
			Length:  len(key),
		}
	}
	if key[1] != 0x02 && key[1] != 0x03 {
		return &InvalidKeyError{
			KeyType: key.KeyType(),
			Length:  len(key),
		}
	}
	if len(value) < 9 {
		return &InvalidValueError{
			KeyType: key.KeyType(),
			Reason:  "signature too short",
		}
	}
	return nil
}

// validateSighashType checks the 32-bit sighash type entry, rejecting
// flag bytes outside the supported set.
func validateSighashType(key Key, value Value) error {
	if len(key) != 1 {
		return &InvalidKeyError{
			KeyType: key.KeyType(),
			Length:  len(key),
		}
	}
	if len(value) != 4 || value[1] != 0 || value[2] != 0 ||
		value[3] != 0 {

		return &InvalidValueError{
			KeyType: key.KeyType(),
			Reason:  "not a 32-bit sighash type",
		}
	}
	if _, err := txn.ParseSighashFlag(value[0]); err != nil {
		return &InvalidValueError{
			KeyType: key.KeyType(),
			Reason:  err.Error(),
		}
	}
	return nil
}

// validateDerivation checks a BIP32 derivation entry: a pubkey-bearing
// key and fingerprint-plus-path metadata.
func validateDerivation(key Key, value Value) error {
	if len(key) != 34 {
		return &InvalidKeyError{
			KeyType: key.KeyType(),
			Length:  len(key),
		}
	}
	if key[1] != 0x02 && key[1] != 0x03 {
		return &InvalidKeyError{
			KeyType: key.KeyType(),
			Length:  len(key),
		}
	}
	if _, err := bip32.ParseKeyDerivation(value); err != nil {
		return &InvalidValueError{
			KeyType: key.KeyType(),
			Reason:  err.Error(),
		}
	}
	return nil
}

// bareKey enforces a key holding only its type byte.
func bareKey(key Key, _ Value) error {
	if len(key) != 1 {
		return &InvalidKeyError{
			KeyType: key.KeyType(),
			Length:  len(key),
		}
	}
	return nil
}

// globalSchema returns the validation schema for the global map.
func globalSchema() Schema {
	s := Schema{}
	s.Insert(GlobalUnsignedTx, validateUnsignedTx)
	s.Insert(GlobalXpub, validateGlobalXpub)
	s.Insert(GlobalVersion, bareKey)
	s.Insert(GlobalVersion, valueLenIs(4))
	return s
}

// inputSchema returns the validation schema for input maps.
func inputSchema() Schema {
	s := Schema{}
	s.Insert(InputNonWitnessUtxo, validateNonWitnessUtxo)
	s.Insert(InputWitnessUtxo, validateWitnessUtxo)
	s.Insert(InputPartialSig, validatePartialSig)
	s.Insert(InputSighashType, validateSighashType)
	s.Insert(InputRedeemScript, bareKey)
	s.Insert(InputWitnessScript, bareKey)
	s.Insert(InputBip32Derivation, validateDerivation)
	s.Insert(InputFinalScriptSig, bareKey)
	s.Insert(InputFinalScriptWitness, bareKey)
	return s
}

// outputSchema returns the validation schema for output maps.
func outputSchema() Schema {
	s := Schema{}
	s.Insert(OutputRedeemScript, bareKey)
	s.Insert(OutputWitnessScript, bareKey)
	s.Insert(OutputBip32Derivation, validateDerivation)
	return s
}
