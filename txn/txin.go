package txn

import (
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// maxVarBytesLen caps length prefixes read from untrusted serializations.
// Nothing in a valid transaction approaches this.
const maxVarBytesLen = 4_000_000

// Outpoint references an output of a previous transaction by its txid and
// output index.
type Outpoint struct {
	// Txid is the id of the funding transaction, in internal byte
	// order.
	Txid chainhash.Hash

	// Index is the output position within the funding transaction.
	Index uint32
}

// NewOutpoint assembles an outpoint.
func NewOutpoint(txid chainhash.Hash, index uint32) Outpoint {
	return Outpoint{Txid: txid, Index: index}
}

// NewOutpointFromExplorerFormat parses a txid in the byte-reversed hex
// form block explorers display.
func NewOutpointFromExplorerFormat(txid string, index uint32) (Outpoint,
	error) {

	hash, err := chainhash.NewHashFromStr(txid)
	if err != nil {
		return Outpoint{}, fmt.Errorf("txn: parsing txid: %w", err)
	}
	return Outpoint{Txid: *hash, Index: index}, nil
}

// NullOutpoint returns the outpoint coinbase inputs carry: an all-zero
// txid with the maximum index.
func NullOutpoint() Outpoint {
	return Outpoint{Index: 0xffffffff}
}

// IsNull reports whether the outpoint is the coinbase sentinel.
func (o Outpoint) IsNull() bool {
	return o.Index == 0xffffffff && o.Txid == chainhash.Hash{}
}

// String renders the outpoint as "txid:index" with the txid in explorer
// (byte-reversed) order.
func (o Outpoint) String() string {
	return fmt.Sprintf("%v:%d", o.Txid, o.Index)
}

// Encode writes the 36-byte wire form.
func (o *Outpoint) Encode(w io.Writer) error {
	if _, err := w.Write(o.Txid[:]); err != nil {
		return err
	}
	return writeUint32LE(w, o.Index)
}

// Decode reads the 36-byte wire form.
func (o *Outpoint) Decode(r io.Reader) error {
	if _, err := io.ReadFull(r, o.Txid[:]); err != nil {
		return err
	}
	index, err := readUint32LE(r)
	if err != nil {
		return err
	}
	o.Index = index
	return nil
}

// TxIn is a transaction input.
type TxIn struct {
	// PreviousOutpoint is the output being spent.
	PreviousOutpoint Outpoint

	// ScriptSig is the unlocking script. Empty on witness spends and on
	// unsigned transactions.
	ScriptSig ScriptSig

	// Sequence is the input's sequence number.
	Sequence uint32
}

// NewTxIn assembles an input.
func NewTxIn(outpoint Outpoint, scriptSig ScriptSig, sequence uint32) *TxIn {
	return &TxIn{
		PreviousOutpoint: outpoint,
		ScriptSig:        scriptSig,
		Sequence:         sequence,
	}
}

// Clone returns a deep copy of the input.
func (in *TxIn) Clone() *TxIn {
	scriptSig := make(ScriptSig, len(in.ScriptSig))
	copy(scriptSig, in.ScriptSig)
	return &TxIn{
		PreviousOutpoint: in.PreviousOutpoint,
		ScriptSig:        scriptSig,
		Sequence:         in.Sequence,
	}
}

// SerializeSize returns the encoded byte length of the input.
func (in *TxIn) SerializeSize() int {
	return 36 + wire.VarIntSerializeSize(uint64(len(in.ScriptSig))) +
		len(in.ScriptSig) + 4
}

// Encode writes the wire form of the input.
func (in *TxIn) Encode(w io.Writer) error {
	if err := in.PreviousOutpoint.Encode(w); err != nil {
		return err
	}
	if err := writeVarBytes(w, in.ScriptSig); err != nil {
		return err
	}
	return writeUint32LE(w, in.Sequence)
}

// Decode reads the wire form of the input.
func (in *TxIn) Decode(r io.Reader) error {
	if err := in.PreviousOutpoint.Decode(r); err != nil {
		return err
	}
	scriptSig, err := readVarBytes(r)
	if err != nil {
		return err
	}
	in.ScriptSig = scriptSig
	sequence, err := readUint32LE(r)
	if err != nil {
		return err
	}
	in.Sequence = sequence
	return nil
}

// writeVarBytes writes a compact-size length prefix followed by the
// bytes.
func writeVarBytes(w io.Writer, b []byte) error {
	if err := wire.WriteVarInt(w, 0, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// readVarBytes reads a compact-size length prefix and that many bytes.
func readVarBytes(r io.Reader) ([]byte, error) {
	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, err
	}
	if count > maxVarBytesLen {
		return nil, ErrOversizedBytes
	}
	b := make([]byte, count)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func writeUint32LE(w io.Writer, v uint32) error {
	var buf [4]byte
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 24)
	_, err := w.Write(buf[:])
	return err
}

func readUint32LE(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 |
		uint32(buf[3])<<24, nil
}

func writeUint64LE(w io.Writer, v uint64) error {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
	_, err := w.Write(buf[:])
	return err
}

func readUint64LE(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(buf[i]) << (8 * i)
	}
	return v, nil
}
