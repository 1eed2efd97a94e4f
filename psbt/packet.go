package psbt

import (
	"bytes"
	"encoding/base64"
	"io"

	"github.com/keystrata/coinkit/txn"
)

// magic is the serialization prefix: "psbt" followed by a separator.
var magic = []byte{0x70, 0x73, 0x62, 0x74, 0xff}

// Packet is a partially signed transaction: a global map holding the
// unsigned transaction, one map per input and one per output.
type Packet struct {
	// Global is the packet-wide map.
	Global *Global

	// Inputs holds one signing-state map per transaction input.
	Inputs []*Input

	// Outputs holds one metadata map per transaction output.
	Outputs []*Output
}

// NewPacket builds a packet around an unsigned transaction, creating
// empty input and output maps to match its vectors.
func NewPacket(tx *txn.LegacyTx) (*Packet, error) {
	p := &Packet{Global: &Global{}}
	if err := p.Global.SetUnsignedTx(tx); err != nil {
		return nil, err
	}

	p.Inputs = make([]*Input, len(tx.Vin))
	for i := range p.Inputs {
		p.Inputs[i] = &Input{}
	}
	p.Outputs = make([]*Output, len(tx.Vout))
	for i := range p.Outputs {
		p.Outputs[i] = &Output{}
	}
	return p, nil
}

// NewPacketFromTx builds a packet from a possibly signed transaction.
// Existing script_sigs and witnesses are moved into the finalized slots
// of the corresponding input maps; the global transaction is stored
// unsigned.
func NewPacketFromTx(tx *txn.WitnessTx) (*Packet, error) {
	unsigned := tx.AsLegacy()
	for _, in := range unsigned.Vin {
		in.ScriptSig = txn.ScriptSig{}
	}

	p, err := NewPacket(unsigned)
	if err != nil {
		return nil, err
	}

	for i, in := range tx.Vin {
		if len(in.ScriptSig) > 0 {
			p.Inputs[i].SetFinalScriptSig(in.ScriptSig)
		}
		if i < len(tx.Witnesses) && len(tx.Witnesses[i]) > 0 {
			p.Inputs[i].SetFinalWitness(tx.Witnesses[i])
		}
	}
	return p, nil
}

// UnsignedTx parses the global unsigned transaction.
func (p *Packet) UnsignedTx() (*txn.LegacyTx, error) {
	return p.Global.UnsignedTx()
}

// AddInput appends an input to the unsigned transaction along with its
// map, keeping the two vectors in lockstep.
func (p *Packet) AddInput(in *txn.TxIn, meta *Input) error {
	tx, err := p.UnsignedTx()
	if err != nil {
		return err
	}
	tx.Vin = append(tx.Vin, in)
	if err := p.Global.SetUnsignedTx(tx); err != nil {
		return err
	}
	if meta == nil {
		meta = &Input{}
	}
	p.Inputs = append(p.Inputs, meta)
	return nil
}

// AddOutput appends an output to the unsigned transaction along with its
// map.
func (p *Packet) AddOutput(out *txn.TxOut, meta *Output) error {
	tx, err := p.UnsignedTx()
	if err != nil {
		return err
	}
	tx.Vout = append(tx.Vout, out)
	if err := p.Global.SetUnsignedTx(tx); err != nil {
		return err
	}
	if meta == nil {
		meta = &Output{}
	}
	p.Outputs = append(p.Outputs, meta)
	return nil
}

// FindPrevout locates the funding output of an input from whichever UTXO
// form its map carries. Non-witness UTXOs are cross-checked against the
// input's outpoint.
func (p *Packet) FindPrevout(index int) (*txn.TxOut, error) {
	tx, err := p.UnsignedTx()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(tx.Vin) || index >= len(p.Inputs) {
		return nil, &txn.InputIndexError{
			Index:  index,
			VinLen: len(tx.Vin),
		}
	}
	input := p.Inputs[index]
	outpoint := tx.Vin[index].PreviousOutpoint

	if out, ok, err := input.WitnessUtxo(); err != nil {
		return nil, err
	} else if ok {
		return out, nil
	}

	funding, ok, err := input.NonWitnessUtxo()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMissingUtxo
	}
	if funding.TxID() != outpoint.Txid {
		return nil, ErrWrongPrevout
	}

	var vout []*txn.TxOut
	switch fundingTx := funding.(type) {
	case *txn.LegacyTx:
		vout = fundingTx.Vout
	case *txn.WitnessTx:
		vout = fundingTx.Vout
	}
	if int(outpoint.Index) >= len(vout) {
		return nil, ErrWrongPrevout
	}
	return vout[outpoint.Index], nil
}

// Validate checks the packet's structural consistency: a well-formed
// unsigned transaction, map counts matching its vectors, per-map schema
// conformance, and no input carrying both UTXO forms.
func (p *Packet) Validate() error {
	if err := p.Global.Validate(); err != nil {
		return err
	}
	tx, err := p.UnsignedTx()
	if err != nil {
		return err
	}

	if len(p.Inputs) != len(tx.Vin) {
		return &MapCountError{
			Kind: "input",
			Maps: len(p.Inputs),
			Tx:   len(tx.Vin),
		}
	}
	if len(p.Outputs) != len(tx.Vout) {
		return &MapCountError{
			Kind: "output",
			Maps: len(p.Outputs),
			Tx:   len(tx.Vout),
		}
	}

	for _, in := range p.Inputs {
		if err := in.Validate(); err != nil {
			return err
		}
	}
	for _, out := range p.Outputs {
		if err := out.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Serialize writes the packet: magic, global map, then one map per input
// and per output.
func (p *Packet) Serialize(w io.Writer) error {
	if _, err := w.Write(magic); err != nil {
		return err
	}
	if err := p.Global.kv.encode(w); err != nil {
		return err
	}
	for _, in := range p.Inputs {
		if err := in.kv.encode(w); err != nil {
			return err
		}
	}
	for _, out := range p.Outputs {
		if err := out.kv.encode(w); err != nil {
			return err
		}
	}
	return nil
}

// Bytes returns the serialized packet.
func (p *Packet) Bytes() []byte {
	var buf bytes.Buffer
	// Writes to a bytes.Buffer never fail.
	_ = p.Serialize(&buf)
	return buf.Bytes()
}

// B64 returns the conventional base64 rendering of the packet.
func (p *Packet) B64() string {
	return base64.StdEncoding.EncodeToString(p.Bytes())
}

// DecodePacket reads a serialized packet and validates it. The input and
// output map counts come from the embedded unsigned transaction.
func DecodePacket(r io.Reader) (*Packet, error) {
	var prefix [5]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}
	if !bytes.Equal(prefix[:], magic) {
		return nil, ErrBadMagic
	}

	p := &Packet{Global: &Global{}}
	if err := p.Global.kv.decode(r); err != nil {
		return nil, err
	}

	tx, err := p.UnsignedTx()
	if err != nil {
		return nil, err
	}

	p.Inputs = make([]*Input, len(tx.Vin))
	for i := range p.Inputs {
		p.Inputs[i] = &Input{}
		if err := p.Inputs[i].kv.decode(r); err != nil {
			return nil, err
		}
	}
	p.Outputs = make([]*Output, len(tx.Vout))
	for i := range p.Outputs {
		p.Outputs[i] = &Output{}
		if err := p.Outputs[i].kv.decode(r); err != nil {
			return nil, err
		}
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// DecodePacketBytes decodes a packet from raw bytes.
func DecodePacketBytes(b []byte) (*Packet, error) {
	return DecodePacket(bytes.NewReader(b))
}

// DecodeB64 decodes a packet from its base64 rendering.
func DecodeB64(encoded string) (*Packet, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	return DecodePacketBytes(raw)
}
