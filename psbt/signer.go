package psbt

import (
	"bytes"
	"fmt"

	"github.com/keystrata/coinkit/bip32"
	"github.com/keystrata/coinkit/secp"
	"github.com/keystrata/coinkit/txn"
)

// BIP32Signer signs packet inputs with descendants of one extended
// private key. For every input whose derivation entries descend from the
// signer's key, it re-derives the exact child, computes the appropriate
// signature hash and inserts a partial signature.
type BIP32Signer struct {
	backend secp.Backend
	key     *bip32.DerivedXPriv
}

// NewBIP32Signer builds a signer around a derived extended private key.
func NewBIP32Signer(backend secp.Backend,
	key *bip32.DerivedXPriv) *BIP32Signer {

	return &BIP32Signer{backend: backend, key: key}
}

// SignPacket signs every input this key can sign, returning the number of
// partial signatures inserted. Inputs with no matching derivation entries
// are left untouched; malformed inputs abort.
func (s *BIP32Signer) SignPacket(p *Packet) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	tx, err := p.UnsignedTx()
	if err != nil {
		return 0, err
	}

	// The witness digest works on the witness view of the same
	// transaction.
	witnessTx := tx.AsWitness()

	signed := 0
	for i := range p.Inputs {
		n, err := s.signInput(p, tx, witnessTx, i)
		if err != nil {
			return signed, fmt.Errorf("psbt: signing input %d: %w",
				i, err)
		}
		signed += n
	}

	log.Debugf("signer inserted %d partial signatures", signed)
	return signed, nil
}

// signInput signs one input with every matching descendant key.
func (s *BIP32Signer) signInput(p *Packet, tx *txn.LegacyTx,
	witnessTx *txn.WitnessTx, index int) (int, error) {

	input := p.Inputs[index]
	if input.IsFinalized() {
		return 0, nil
	}

	derivations, err := input.Derivations()
	if err != nil {
		return 0, err
	}

	keys, err := s.matchingKeys(derivations)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	flag, err := input.SighashFlag()
	if err != nil {
		return 0, err
	}

	prevout, err := p.FindPrevout(index)
	if err != nil {
		return 0, err
	}

	_, witnessSpend, err := input.WitnessUtxo()
	if err != nil {
		return 0, err
	}

	var digest secp.Digest
	if witnessSpend {
		scriptCode, err := witnessScriptCode(input, prevout)
		if err != nil {
			return 0, err
		}
		hash, err := witnessTx.WitnessSignatureHash(
			&txn.WitnessSighashArgs{
				Index:         index,
				Flag:          flag,
				PrevoutScript: scriptCode,
				PrevoutValue:  prevout.Value,
			},
		)
		if err != nil {
			return 0, err
		}
		digest = secp.Digest(hash)
	} else {
		scriptCode, err := legacyScriptCode(input, prevout,
			tx.Vin[index].PreviousOutpoint)
		if err != nil {
			return 0, err
		}
		hash, err := tx.SignatureHash(&txn.SighashArgs{
			Index:         index,
			Flag:          flag,
			PrevoutScript: scriptCode,
		})
		if err != nil {
			return 0, err
		}
		digest = secp.Digest(hash)
	}

	for _, match := range keys {
		sig, err := match.key.SignDigest(s.backend, digest)
		if err != nil {
			return 0, err
		}
		input.InsertPartialSig(match.pubkey, append(sig, byte(flag)))
	}
	return len(keys), nil
}

// matchedKey pairs a derived signing key with the pubkey it was matched
// under.
type matchedKey struct {
	key    *bip32.DerivedXPriv
	pubkey secp.Pubkey
}

// matchingKeys re-derives every derivation entry that descends from the
// signer's key and confirms the claimed pubkey. Entries whose derived key
// disagrees are dropped: fingerprints collide, claims do not sign.
func (s *BIP32Signer) matchingKeys(
	derivations []*bip32.DerivedPubkey) ([]matchedKey, error) {

	var keys []matchedKey
	for _, entry := range derivations {
		derived, ok, err := s.key.DeriveDescendant(s.backend,
			entry.Derivation)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		pubkey, err := derived.Pubkey(s.backend)
		if err != nil {
			return nil, err
		}
		if pubkey != entry.Key {
			log.Debugf("derivation %v does not produce claimed "+
				"pubkey, skipping", entry.Derivation.Path)
			continue
		}
		keys = append(keys, matchedKey{key: derived, pubkey: pubkey})
	}
	return keys, nil
}

// IsChangeOutput reports whether an output pays a descendant of the
// signer's key: it must carry exactly one derivation entry, the entry
// must re-derive to the claimed pubkey, and the output's script must
// commit to that pubkey's hash via the pkh or wpkh template.
func (s *BIP32Signer) IsChangeOutput(p *Packet, index int) (bool, error) {
	tx, err := p.UnsignedTx()
	if err != nil {
		return false, err
	}
	if index < 0 || index >= len(tx.Vout) || index >= len(p.Outputs) {
		return false, fmt.Errorf("psbt: output index %d out of range",
			index)
	}

	derivations, err := p.Outputs[index].Derivations()
	if err != nil {
		return false, err
	}
	if len(derivations) != 1 {
		return false, nil
	}

	owned, err := s.key.DerivesPubkey(s.backend, derivations[0])
	if err != nil || !owned {
		return false, err
	}

	script := tx.Vout[index].ScriptPubkey
	switch script.Type() {
	case txn.ScriptTypePKH, txn.ScriptTypeWPKH:
		return bytes.Equal(script.Payload(),
			derivations[0].Hash160()), nil
	default:
		return false, nil
	}
}

// witnessScriptCode resolves the script a witness signature commits to.
func witnessScriptCode(input *Input, prevout *txn.TxOut) (txn.ScriptPubkey,
	error) {

	switch prevout.ScriptPubkey.Type() {
	case txn.ScriptTypeWPKH:
		return txn.NewPKHScriptPubkey(
			prevout.ScriptPubkey.Payload(),
		), nil

	case txn.ScriptTypeWSH:
		utxo := txn.NewUTXO(txn.Outpoint{}, prevout.Value,
			prevout.ScriptPubkey)
		script, ok := input.WitnessScript()
		if !ok {
			return nil, txn.ErrMissingSpendScript
		}
		if err := utxo.SetSpendScript(script); err != nil {
			return nil, err
		}
		return utxo.SigningScript()

	case txn.ScriptTypeSH:
		// Witness spend of a script hash output: the redeem script
		// must hash to the output's commitment and be a nested
		// witness pubkey hash program.
		redeem, ok := input.RedeemScript()
		if !ok {
			return nil, txn.ErrMissingSpendScript
		}
		utxo := txn.NewUTXO(txn.Outpoint{}, prevout.Value,
			prevout.ScriptPubkey)
		if err := utxo.SetSpendScript(redeem); err != nil {
			return nil, err
		}
		nested := txn.ScriptPubkey(redeem)
		if nested.Type() != txn.ScriptTypeWPKH {
			return nil, ErrUnsupportedScriptType
		}
		return txn.NewPKHScriptPubkey(nested.Payload()), nil

	default:
		return nil, ErrUnsupportedScriptType
	}
}

// legacyScriptCode resolves the script a legacy signature commits to.
func legacyScriptCode(input *Input, prevout *txn.TxOut,
	outpoint txn.Outpoint) (txn.ScriptPubkey, error) {

	utxo := txn.NewUTXO(outpoint, prevout.Value, prevout.ScriptPubkey)
	switch prevout.ScriptPubkey.Type() {
	case txn.ScriptTypePKH:
		return utxo.SigningScript()

	case txn.ScriptTypeSH:
		redeem, ok := input.RedeemScript()
		if !ok {
			return nil, txn.ErrMissingSpendScript
		}
		if err := utxo.SetSpendScript(txn.Script(redeem)); err != nil {
			return nil, err
		}
		return utxo.SigningScript()

	default:
		return nil, ErrUnsupportedScriptType
	}
}
