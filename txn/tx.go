package txn

import (
	"bytes"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

const (
	// witnessMarker is the zero byte that distinguishes the witness
	// serialization from a legacy transaction's input count.
	witnessMarker = 0x00

	// witnessFlag is the only flag byte currently defined.
	witnessFlag = 0x01
)

// Tx is the behavior shared by the legacy and witness transaction forms.
type Tx interface {
	// Serialize writes the transaction's canonical wire form.
	Serialize(w io.Writer) error

	// SerializeSize returns the length of the canonical wire form.
	SerializeSize() int

	// TxID returns the double-SHA256 of the legacy serialization, which
	// excludes witnesses by construction.
	TxID() chainhash.Hash
}

// LegacyTx is a transaction in the original serialization format, with no
// witness data.
type LegacyTx struct {
	// Version is the transaction version.
	Version uint32

	// Vin is the input list.
	Vin []*TxIn

	// Vout is the output list.
	Vout []*TxOut

	// Locktime is the transaction locktime.
	Locktime uint32
}

// A compile-time assertion that both forms implement Tx.
var (
	_ Tx = (*LegacyTx)(nil)
	_ Tx = (*WitnessTx)(nil)
)

// NewLegacyTx assembles a legacy transaction.
func NewLegacyTx(version uint32, vin []*TxIn, vout []*TxOut,
	locktime uint32) *LegacyTx {

	return &LegacyTx{
		Version:  version,
		Vin:      vin,
		Vout:     vout,
		Locktime: locktime,
	}
}

// Clone returns a deep copy of the transaction.
func (tx *LegacyTx) Clone() *LegacyTx {
	vin := make([]*TxIn, len(tx.Vin))
	for i, in := range tx.Vin {
		vin[i] = in.Clone()
	}
	vout := make([]*TxOut, len(tx.Vout))
	for i, out := range tx.Vout {
		vout[i] = out.Clone()
	}
	return &LegacyTx{
		Version:  tx.Version,
		Vin:      vin,
		Vout:     vout,
		Locktime: tx.Locktime,
	}
}

// SerializeSize returns the encoded byte length.
func (tx *LegacyTx) SerializeSize() int {
	size := 4 + 4
	size += wire.VarIntSerializeSize(uint64(len(tx.Vin)))
	for _, in := range tx.Vin {
		size += in.SerializeSize()
	}
	size += wire.VarIntSerializeSize(uint64(len(tx.Vout)))
	for _, out := range tx.Vout {
		size += out.SerializeSize()
	}
	return size
}

// Serialize writes the legacy wire form: version, inputs, outputs,
// locktime.
func (tx *LegacyTx) Serialize(w io.Writer) error {
	if err := writeUint32LE(w, tx.Version); err != nil {
		return err
	}
	if err := wire.WriteVarInt(w, 0, uint64(len(tx.Vin))); err != nil {
		return err
	}
	for _, in := range tx.Vin {
		if err := in.Encode(w); err != nil {
			return err
		}
	}
	if err := wire.WriteVarInt(w, 0, uint64(len(tx.Vout))); err != nil {
		return err
	}
	for _, out := range tx.Vout {
		if err := out.Encode(w); err != nil {
			return err
		}
	}
	return writeUint32LE(w, tx.Locktime)
}

// Bytes returns the legacy wire form as a byte slice.
func (tx *LegacyTx) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(tx.SerializeSize())
	// Writes to a bytes.Buffer never fail.
	_ = tx.Serialize(&buf)
	return buf.Bytes()
}

// Deserialize reads the legacy wire form. It does not understand the
// witness marker; use DecodeTx when the format is unknown.
func (tx *LegacyTx) Deserialize(r io.Reader) error {
	version, err := readUint32LE(r)
	if err != nil {
		return err
	}
	tx.Version = version
	if err := tx.decodeBody(r); err != nil {
		return err
	}
	locktime, err := readUint32LE(r)
	if err != nil {
		return err
	}
	tx.Locktime = locktime
	return nil
}

// decodeBody reads the input and output vectors.
func (tx *LegacyTx) decodeBody(r io.Reader) error {
	vinLen, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return err
	}
	if vinLen > maxVarBytesLen {
		return ErrOversizedBytes
	}
	tx.Vin = make([]*TxIn, 0, vinLen)
	for i := uint64(0); i < vinLen; i++ {
		var in TxIn
		if err := in.Decode(r); err != nil {
			return err
		}
		tx.Vin = append(tx.Vin, &in)
	}

	voutLen, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return err
	}
	if voutLen > maxVarBytesLen {
		return ErrOversizedBytes
	}
	tx.Vout = make([]*TxOut, 0, voutLen)
	for i := uint64(0); i < voutLen; i++ {
		var out TxOut
		if err := out.Decode(r); err != nil {
			return err
		}
		tx.Vout = append(tx.Vout, &out)
	}
	return nil
}

// TxID returns the double-SHA256 of the legacy serialization.
func (tx *LegacyTx) TxID() chainhash.Hash {
	return chainhash.DoubleHashH(tx.Bytes())
}

// AsWitness lifts the transaction into the witness form with empty
// witness stacks. The conversion is lossless.
func (tx *LegacyTx) AsWitness() *WitnessTx {
	witnesses := make([]Witness, len(tx.Vin))
	for i := range witnesses {
		witnesses[i] = Witness{}
	}
	return &WitnessTx{LegacyTx: *tx.Clone(), Witnesses: witnesses}
}

// WitnessTx is a transaction in the extended serialization format
// carrying one witness stack per input.
type WitnessTx struct {
	LegacyTx

	// Witnesses holds exactly one stack per input.
	Witnesses []Witness
}

// NewWitnessTx assembles a witness transaction. Missing witness stacks
// are padded with empty ones so the stack count always equals the input
// count; providing more witnesses than inputs is an error.
func NewWitnessTx(version uint32, vin []*TxIn, vout []*TxOut,
	witnesses []Witness, locktime uint32) (*WitnessTx, error) {

	if len(witnesses) > len(vin) {
		return nil, ErrTooManyWitnesses
	}
	padded := make([]Witness, len(vin))
	for i := range padded {
		if i < len(witnesses) {
			padded[i] = witnesses[i]
		} else {
			padded[i] = Witness{}
		}
	}
	return &WitnessTx{
		LegacyTx: LegacyTx{
			Version:  version,
			Vin:      vin,
			Vout:     vout,
			Locktime: locktime,
		},
		Witnesses: padded,
	}, nil
}

// Clone returns a deep copy of the transaction.
func (tx *WitnessTx) Clone() *WitnessTx {
	witnesses := make([]Witness, len(tx.Witnesses))
	for i, wit := range tx.Witnesses {
		witnesses[i] = wit.Clone()
	}
	return &WitnessTx{
		LegacyTx:  *tx.LegacyTx.Clone(),
		Witnesses: witnesses,
	}
}

// AsLegacy strips the witnesses, returning the legacy view. The
// conversion is lossy and deliberate.
func (tx *WitnessTx) AsLegacy() *LegacyTx {
	return tx.LegacyTx.Clone()
}

// SerializeSize returns the encoded byte length including the marker,
// flag and witnesses.
func (tx *WitnessTx) SerializeSize() int {
	size := tx.LegacyTx.SerializeSize() + 2
	for _, wit := range tx.Witnesses {
		size += wit.SerializeSize()
	}
	return size
}

// Serialize writes the extended wire form: version, marker+flag, inputs,
// outputs, witnesses, locktime.
func (tx *WitnessTx) Serialize(w io.Writer) error {
	if err := writeUint32LE(w, tx.Version); err != nil {
		return err
	}
	if _, err := w.Write([]byte{witnessMarker, witnessFlag}); err != nil {
		return err
	}
	if err := wire.WriteVarInt(w, 0, uint64(len(tx.Vin))); err != nil {
		return err
	}
	for _, in := range tx.Vin {
		if err := in.Encode(w); err != nil {
			return err
		}
	}
	if err := wire.WriteVarInt(w, 0, uint64(len(tx.Vout))); err != nil {
		return err
	}
	for _, out := range tx.Vout {
		if err := out.Encode(w); err != nil {
			return err
		}
	}
	for _, wit := range tx.Witnesses {
		if err := wit.Encode(w); err != nil {
			return err
		}
	}
	return writeUint32LE(w, tx.Locktime)
}

// Bytes returns the extended wire form as a byte slice.
func (tx *WitnessTx) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(tx.SerializeSize())
	_ = tx.Serialize(&buf)
	return buf.Bytes()
}

// Deserialize reads the extended wire form, including the marker and
// flag.
func (tx *WitnessTx) Deserialize(r io.Reader) error {
	version, err := readUint32LE(r)
	if err != nil {
		return err
	}

	var markerFlag [2]byte
	if _, err := io.ReadFull(r, markerFlag[:]); err != nil {
		return err
	}
	if markerFlag[0] != witnessMarker || markerFlag[1] != witnessFlag {
		return ErrBadWitnessFlag
	}

	tx.Version = version
	return tx.decodeWitnessBody(r)
}

// decodeWitnessBody reads inputs, outputs, witnesses and locktime,
// assuming version, marker and flag have been consumed.
func (tx *WitnessTx) decodeWitnessBody(r io.Reader) error {
	if err := tx.decodeBody(r); err != nil {
		return err
	}
	tx.Witnesses = make([]Witness, 0, len(tx.Vin))
	for range tx.Vin {
		wit, err := DecodeWitness(r)
		if err != nil {
			return err
		}
		tx.Witnesses = append(tx.Witnesses, wit)
	}
	locktime, err := readUint32LE(r)
	if err != nil {
		return err
	}
	tx.Locktime = locktime
	return nil
}

// TxID returns the double-SHA256 of the legacy serialization, excluding
// witnesses.
func (tx *WitnessTx) TxID() chainhash.Hash {
	return tx.LegacyTx.TxID()
}

// WTxID returns the double-SHA256 of the full extended serialization.
func (tx *WitnessTx) WTxID() chainhash.Hash {
	return chainhash.DoubleHashH(tx.Bytes())
}

// HasWitnessData reports whether any input carries a non-empty witness.
func (tx *WitnessTx) HasWitnessData() bool {
	for _, wit := range tx.Witnesses {
		if len(wit) > 0 {
			return true
		}
	}
	return false
}

// DecodeTx reads a transaction of either format, detecting the witness
// marker. A zero byte where the input count belongs announces the
// extended format; the following flag byte must then be 0x01.
func DecodeTx(r io.Reader) (Tx, error) {
	version, err := readUint32LE(r)
	if err != nil {
		return nil, err
	}

	var first [1]byte
	if _, err := io.ReadFull(r, first[:]); err != nil {
		return nil, err
	}

	if first[0] == witnessMarker {
		var flag [1]byte
		if _, err := io.ReadFull(r, flag[:]); err != nil {
			return nil, err
		}
		if flag[0] != witnessFlag {
			return nil, ErrBadWitnessFlag
		}

		tx := &WitnessTx{LegacyTx: LegacyTx{Version: version}}
		if err := tx.decodeWitnessBody(r); err != nil {
			return nil, err
		}
		return tx, nil
	}

	// Legacy: the byte we peeked is the start of the input count.
	body := io.MultiReader(bytes.NewReader(first[:]), r)
	tx := &LegacyTx{Version: version}
	if err := tx.decodeBody(body); err != nil {
		return nil, err
	}
	locktime, err := readUint32LE(body)
	if err != nil {
		return nil, err
	}
	tx.Locktime = locktime
	return tx, nil
}

// DecodeTxBytes decodes a transaction of either format from a byte slice.
func DecodeTxBytes(b []byte) (Tx, error) {
	return DecodeTx(bytes.NewReader(b))
}
