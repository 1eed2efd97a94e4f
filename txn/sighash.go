package txn

import (
	"bytes"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// SighashFlag selects which parts of a transaction a signature commits
// to. The low bits carry the base type, the high bits carry modifiers.
type SighashFlag uint8

const (
	// SighashAll commits to all inputs and all outputs.
	SighashAll SighashFlag = 0x01

	// SighashNone commits to no outputs. Parsing accepts nothing in this
	// family: it is recognized only to reject it.
	SighashNone SighashFlag = 0x02

	// SighashSingle commits to the output at the signing input's index.
	SighashSingle SighashFlag = 0x03

	// SighashSingleReverse commits to the output at the mirrored index
	// from the end of the output list. Witness-native chain extension.
	SighashSingleReverse SighashFlag = 0x04

	// SighashNoInput is a modifier that removes the signing input's
	// outpoint from the commitment, letting the signature bind to any
	// output paying the same script. Witness-native chain extension.
	SighashNoInput SighashFlag = 0x40

	// SighashAnyoneCanPay is a modifier that removes all other inputs
	// from the commitment.
	SighashAnyoneCanPay SighashFlag = 0x80
)

// sighashModifierMask covers the modifier bits.
const sighashModifierMask = SighashFlag(0xc0)

// Base strips the modifier bits, leaving the base type.
func (f SighashFlag) Base() SighashFlag {
	return f &^ sighashModifierMask
}

// AnyoneCanPay reports whether the anyone-can-pay modifier is set.
func (f SighashFlag) AnyoneCanPay() bool {
	return f&SighashAnyoneCanPay != 0
}

// NoInput reports whether the no-input modifier is set.
func (f SighashFlag) NoInput() bool {
	return f&SighashNoInput != 0
}

// ParseSighashFlag validates a flag byte against the bitcoin sighash
// set: All or Single, optionally with anyone-can-pay. The None family is
// rejected with ErrNoneUnsupported, the extended flags and everything
// else with UnknownSighashError.
func ParseSighashFlag(b byte) (SighashFlag, error) {
	switch SighashFlag(b) {
	case SighashAll, SighashSingle,
		SighashAll | SighashAnyoneCanPay,
		SighashSingle | SighashAnyoneCanPay:

		return SighashFlag(b), nil

	case SighashNone, SighashNone | SighashAnyoneCanPay:
		return 0, ErrNoneUnsupported

	default:
		return 0, &UnknownSighashError{Flag: b}
	}
}

// ParseExtendedSighashFlag validates a flag byte against the extended
// set used by witness-native chains: All, Single or SingleReverse, with
// any combination of the no-input and anyone-can-pay modifiers.
func ParseExtendedSighashFlag(b byte) (SighashFlag, error) {
	flag := SighashFlag(b)
	switch flag.Base() {
	case SighashAll, SighashSingle, SighashSingleReverse:
		return flag, nil

	case SighashNone:
		return 0, ErrNoneUnsupported

	default:
		return 0, &UnknownSighashError{Flag: b}
	}
}

// SighashArgs carries everything a legacy signature hash needs beyond the
// transaction itself.
type SighashArgs struct {
	// Index is the input being signed.
	Index int

	// Flag selects the commitment type.
	Flag SighashFlag

	// PrevoutScript is the script to place in the signing input: the
	// funding script pubkey, or the redeem script for script hash
	// spends.
	PrevoutScript ScriptPubkey
}

// WitnessSighashArgs additionally carries the funding output's value,
// which the witness digest commits to.
type WitnessSighashArgs struct {
	// Index is the input being signed.
	Index int

	// Flag selects the commitment type.
	Flag SighashFlag

	// PrevoutScript is the script code: the funding script pubkey for
	// simple spends, the synthesized pkh script for witness pubkey hash,
	// or the witness script for witness script hash spends.
	PrevoutScript ScriptPubkey

	// PrevoutValue is the funding output's amount.
	PrevoutValue uint64
}

// SignatureHash computes the legacy signature hash: the double-SHA256 of
// the modified transaction serialization with the flag appended as a
// 32-bit word. Only the bitcoin flag set is meaningful here; extended
// flags are rejected.
func (tx *LegacyTx) SignatureHash(args *SighashArgs) (chainhash.Hash,
	error) {

	flag, err := ParseSighashFlag(byte(args.Flag))
	if err != nil {
		return chainhash.Hash{}, err
	}
	if args.Index >= len(tx.Vin) || args.Index < 0 {
		return chainhash.Hash{}, &InputIndexError{
			Index:  args.Index,
			VinLen: len(tx.Vin),
		}
	}

	copyTx := tx.Clone()

	// Every input loses its script_sig; the signing input gets the
	// prevout script in its place.
	for _, in := range copyTx.Vin {
		in.ScriptSig = ScriptSig{}
	}
	copyTx.Vin[args.Index].ScriptSig = ScriptSig(args.PrevoutScript)

	if flag.Base() == SighashSingle {
		if args.Index >= len(copyTx.Vout) {
			return chainhash.Hash{}, ErrSighashSingleBug
		}

		// Keep only outputs up to the signing index, blanking the
		// earlier ones, and zero the other inputs' sequences.
		copyTx.Vout = copyTx.Vout[:args.Index+1]
		for i := 0; i < args.Index; i++ {
			copyTx.Vout[i] = nullTxOut()
		}
		for i, in := range copyTx.Vin {
			if i != args.Index {
				in.Sequence = 0
			}
		}
	}

	if flag.AnyoneCanPay() {
		copyTx.Vin = []*TxIn{copyTx.Vin[args.Index]}
	}

	var buf bytes.Buffer
	_ = copyTx.Serialize(&buf)
	_ = writeUint32LE(&buf, uint32(flag))

	digest := chainhash.DoubleHashH(buf.Bytes())
	log.Tracef("legacy sighash input=%d flag=0x%02x digest=%v",
		args.Index, byte(flag), digest)
	return digest, nil
}

// WitnessSignatureHash computes the witness signature hash: the
// double-SHA256 of the fixed-layout preimage built from the rolling
// prevout, sequence and output hashes. The extended flag set is accepted;
// callers restricted to the bitcoin set validate flags before reaching
// this point.
func (tx *WitnessTx) WitnessSignatureHash(
	args *WitnessSighashArgs) (chainhash.Hash, error) {

	flag, err := ParseExtendedSighashFlag(byte(args.Flag))
	if err != nil {
		return chainhash.Hash{}, err
	}
	if args.Index >= len(tx.Vin) || args.Index < 0 {
		return chainhash.Hash{}, &InputIndexError{
			Index:  args.Index,
			VinLen: len(tx.Vin),
		}
	}

	hashOutputs, err := tx.hashOutputs(args.Index, flag)
	if err != nil {
		return chainhash.Hash{}, err
	}

	input := tx.Vin[args.Index]

	var buf bytes.Buffer
	_ = writeUint32LE(&buf, tx.Version)

	hashPrevouts := tx.hashPrevouts(flag)
	hashSequence := tx.hashSequence(flag)
	buf.Write(hashPrevouts[:])
	buf.Write(hashSequence[:])

	// The no-input modifier detaches the signature from the specific
	// outpoint by zeroing it in the preimage.
	if flag.NoInput() {
		var zeroOutpoint [36]byte
		buf.Write(zeroOutpoint[:])
	} else {
		_ = input.PreviousOutpoint.Encode(&buf)
	}

	_ = writeVarBytes(&buf, args.PrevoutScript)
	_ = writeUint64LE(&buf, args.PrevoutValue)
	_ = writeUint32LE(&buf, input.Sequence)
	buf.Write(hashOutputs[:])
	_ = writeUint32LE(&buf, tx.Locktime)
	_ = writeUint32LE(&buf, uint32(flag))

	digest := chainhash.DoubleHashH(buf.Bytes())
	log.Tracef("witness sighash input=%d flag=0x%02x digest=%v",
		args.Index, byte(flag), digest)
	return digest, nil
}

// hashPrevouts returns the rolling hash over all outpoints, or zero when
// a modifier removes the other inputs from the commitment.
func (tx *WitnessTx) hashPrevouts(flag SighashFlag) chainhash.Hash {
	if flag.AnyoneCanPay() || flag.NoInput() {
		return chainhash.Hash{}
	}
	var buf bytes.Buffer
	for _, in := range tx.Vin {
		_ = in.PreviousOutpoint.Encode(&buf)
	}
	return chainhash.DoubleHashH(buf.Bytes())
}

// hashSequence returns the rolling hash over all sequence numbers, or
// zero when the commitment excludes them.
func (tx *WitnessTx) hashSequence(flag SighashFlag) chainhash.Hash {
	if flag.AnyoneCanPay() || flag.NoInput() ||
		flag.Base() != SighashAll {

		return chainhash.Hash{}
	}
	var buf bytes.Buffer
	for _, in := range tx.Vin {
		_ = writeUint32LE(&buf, in.Sequence)
	}
	return chainhash.DoubleHashH(buf.Bytes())
}

// hashOutputs returns the rolling hash over the committed outputs: all of
// them for the all-type, the matching (or mirrored) single output for the
// single types.
func (tx *WitnessTx) hashOutputs(index int,
	flag SighashFlag) (chainhash.Hash, error) {

	switch flag.Base() {
	case SighashAll:
		var buf bytes.Buffer
		for _, out := range tx.Vout {
			_ = out.Encode(&buf)
		}
		return chainhash.DoubleHashH(buf.Bytes()), nil

	case SighashSingle:
		if index >= len(tx.Vout) {
			return chainhash.Hash{}, ErrSighashSingleBug
		}
		var buf bytes.Buffer
		_ = tx.Vout[index].Encode(&buf)
		return chainhash.DoubleHashH(buf.Bytes()), nil

	case SighashSingleReverse:
		if index >= len(tx.Vout) {
			return chainhash.Hash{}, ErrSighashSingleBug
		}
		var buf bytes.Buffer
		_ = tx.Vout[len(tx.Vout)-1-index].Encode(&buf)
		return chainhash.DoubleHashH(buf.Bytes()), nil

	default:
		return chainhash.Hash{}, &UnknownSighashError{
			Flag: byte(flag),
		}
	}
}
