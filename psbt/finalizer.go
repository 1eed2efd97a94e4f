package psbt

import (
	"errors"
	"fmt"

	"github.com/keystrata/coinkit/txn"
)

// Finalizer folds partial signatures into final script_sigs and
// witnesses for the single-signature templates: pkh, wpkh, and wpkh
// nested in a script hash. Inputs it cannot handle are left for another
// finalizer.
type Finalizer struct{}

// NewFinalizer returns a Finalizer.
func NewFinalizer() *Finalizer {
	return &Finalizer{}
}

// Finalize finalizes every input it can, returning how many it touched.
func (f *Finalizer) Finalize(p *Packet) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	finalized := 0
	for i := range p.Inputs {
		done, err := f.finalizeInput(p, i)
		if err != nil {
			return finalized, fmt.Errorf(
				"psbt: finalizing input %d: %w", i, err,
			)
		}
		if done {
			finalized++
		}
	}

	log.Debugf("finalizer completed %d inputs", finalized)
	return finalized, nil
}

// finalizeInput folds one input's signature into its final form.
func (f *Finalizer) finalizeInput(p *Packet, index int) (bool, error) {
	input := p.Inputs[index]
	if input.IsFinalized() {
		return false, nil
	}

	prevout, err := p.FindPrevout(index)
	if errors.Is(err, ErrMissingUtxo) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	sigs, err := input.PartialSigs()
	if err != nil {
		return false, err
	}
	// The single-signature templates admit exactly one signature.
	if len(sigs) != 1 {
		return false, nil
	}
	sig := sigs[0]

	switch prevout.ScriptPubkey.Type() {
	case txn.ScriptTypePKH:
		scriptSig := append(pushData(sig.Sig),
			pushData(sig.Pubkey[:])...)
		input.SetFinalScriptSig(scriptSig)

	case txn.ScriptTypeWPKH:
		input.SetFinalWitness(txn.Witness{
			txn.WitnessStackItem(sig.Sig),
			txn.WitnessStackItem(sig.Pubkey[:]),
		})

	case txn.ScriptTypeSH:
		redeem, ok := input.RedeemScript()
		if !ok {
			return false, nil
		}
		if txn.ScriptPubkey(redeem).Type() != txn.ScriptTypeWPKH {
			return false, nil
		}
		input.SetFinalScriptSig(pushData(redeem))
		input.SetFinalWitness(txn.Witness{
			txn.WitnessStackItem(sig.Sig),
			txn.WitnessStackItem(sig.Pubkey[:]),
		})

	default:
		return false, nil
	}

	// A finalized input keeps only its utxo and final scripts.
	input.kv.removeType(InputPartialSig)
	input.kv.removeType(InputSighashType)
	input.kv.removeType(InputRedeemScript)
	input.kv.removeType(InputWitnessScript)
	input.kv.removeType(InputBip32Derivation)
	input.kv.removeType(InputPorCommitment)
	return true, nil
}

// pushData renders a minimal single push of the given bytes.
func pushData(b []byte) []byte {
	out := make([]byte, 0, len(b)+2)
	if len(b) < 0x4c {
		out = append(out, byte(len(b)))
	} else {
		// OP_PUSHDATA1 covers everything this package pushes.
		out = append(out, 0x4c, byte(len(b)))
	}
	return append(out, b...)
}
