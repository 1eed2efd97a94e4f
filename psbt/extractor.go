package psbt

import (
	"fmt"

	"github.com/keystrata/coinkit/txn"
)

// Extractor turns a fully finalized packet into a broadcastable
// transaction.
type Extractor struct{}

// NewExtractor returns an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract builds the network transaction from a packet whose inputs are
// all finalized. The result is a witness transaction when any input
// carries a witness, a legacy transaction otherwise.
func (e *Extractor) Extract(p *Packet) (txn.Tx, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	tx, err := p.UnsignedTx()
	if err != nil {
		return nil, err
	}

	witnesses := make([]txn.Witness, len(tx.Vin))
	hasWitness := false
	for i, input := range p.Inputs {
		if !input.IsFinalized() {
			return nil, fmt.Errorf("psbt: input %d: %w", i,
				ErrNotFinalized)
		}

		if scriptSig, ok := input.FinalScriptSig(); ok {
			tx.Vin[i].ScriptSig = scriptSig
		}

		wit, ok, err := input.FinalWitness()
		if err != nil {
			return nil, err
		}
		if ok {
			witnesses[i] = wit
			hasWitness = true
		} else {
			witnesses[i] = txn.Witness{}
		}
	}

	if !hasWitness {
		return tx, nil
	}
	wtx, err := txn.NewWitnessTx(tx.Version, tx.Vin, tx.Vout, witnesses,
		tx.Locktime)
	if err != nil {
		return nil, err
	}
	return wtx, nil
}
