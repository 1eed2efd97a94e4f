package txn

import (
	"io"

	"github.com/btcsuite/btcd/wire"
)

// maxOpReturnPayload is the largest payload representable with a single
// direct push opcode.
const maxOpReturnPayload = 75

// TxOut is a transaction output.
type TxOut struct {
	// Value is the output amount in base units.
	Value uint64

	// ScriptPubkey is the locking script.
	ScriptPubkey ScriptPubkey
}

// NewTxOut assembles an output.
func NewTxOut(value uint64, scriptPubkey ScriptPubkey) *TxOut {
	return &TxOut{Value: value, ScriptPubkey: scriptPubkey}
}

// NewOpReturnOutput builds a zero-value data carrier output.
func NewOpReturnOutput(data []byte) (*TxOut, error) {
	if len(data) > maxOpReturnPayload {
		return nil, ErrOpReturnTooLong
	}
	script := make(ScriptPubkey, 0, 2+len(data))
	script = append(script, opReturn, byte(len(data)))
	script = append(script, data...)
	return &TxOut{Value: 0, ScriptPubkey: script}, nil
}

// OpReturnPayload extracts the data from a single-push OP_RETURN output.
// The boolean is false when the output is not such a carrier.
func (out *TxOut) OpReturnPayload() ([]byte, bool) {
	script := out.ScriptPubkey
	if len(script) < 2 || script[0] != opReturn {
		return nil, false
	}
	push := int(script[1])
	if push > maxOpReturnPayload || len(script) != 2+push {
		return nil, false
	}
	return script[2:], true
}

// Clone returns a deep copy of the output.
func (out *TxOut) Clone() *TxOut {
	script := make(ScriptPubkey, len(out.ScriptPubkey))
	copy(script, out.ScriptPubkey)
	return &TxOut{Value: out.Value, ScriptPubkey: script}
}

// nullTxOut is the placeholder used when blanking outputs for single-type
// sighashes: maximum value and an empty script.
func nullTxOut() *TxOut {
	return &TxOut{Value: 0xffffffffffffffff, ScriptPubkey: ScriptPubkey{}}
}

// SerializeSize returns the encoded byte length of the output.
func (out *TxOut) SerializeSize() int {
	return 8 + wire.VarIntSerializeSize(uint64(len(out.ScriptPubkey))) +
		len(out.ScriptPubkey)
}

// Encode writes the wire form of the output.
func (out *TxOut) Encode(w io.Writer) error {
	if err := writeUint64LE(w, out.Value); err != nil {
		return err
	}
	return writeVarBytes(w, out.ScriptPubkey)
}

// Decode reads the wire form of the output.
func (out *TxOut) Decode(r io.Reader) error {
	value, err := readUint64LE(r)
	if err != nil {
		return err
	}
	out.Value = value
	script, err := readVarBytes(r)
	if err != nil {
		return err
	}
	out.ScriptPubkey = script
	return nil
}

// SerializeSize returns the encoded byte length of the witness stack.
func (wit Witness) SerializeSize() int {
	size := wire.VarIntSerializeSize(uint64(len(wit)))
	for _, item := range wit {
		size += wire.VarIntSerializeSize(uint64(len(item))) +
			len(item)
	}
	return size
}

// Encode writes the wire form of the witness stack.
func (wit Witness) Encode(w io.Writer) error {
	if err := wire.WriteVarInt(w, 0, uint64(len(wit))); err != nil {
		return err
	}
	for _, item := range wit {
		if err := writeVarBytes(w, item); err != nil {
			return err
		}
	}
	return nil
}

// DecodeWitness reads one witness stack.
func DecodeWitness(r io.Reader) (Witness, error) {
	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, err
	}
	if count > maxVarBytesLen {
		return nil, ErrOversizedBytes
	}
	wit := make(Witness, 0, count)
	for i := uint64(0); i < count; i++ {
		item, err := readVarBytes(r)
		if err != nil {
			return nil, err
		}
		wit = append(wit, item)
	}
	return wit, nil
}

// Clone returns a deep copy of the witness stack.
func (wit Witness) Clone() Witness {
	out := make(Witness, len(wit))
	for i, item := range wit {
		cloned := make(WitnessStackItem, len(item))
		copy(cloned, item)
		out[i] = cloned
	}
	return out
}
