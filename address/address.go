package address

import (
	"bytes"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/keystrata/coinkit/txn"
)

// Encode renders a standard script pubkey as an address on the given
// network: base58check for pkh and sh outputs, bech32 for native witness
// outputs. Data carriers and nonstandard scripts have no address form.
func Encode(script txn.ScriptPubkey, params *ChainParams) (string, error) {
	switch script.Type() {
	case txn.ScriptTypePKH:
		return encodeBase58(params.P2PKHVersion, script.Payload(),
			params)

	case txn.ScriptTypeSH:
		return encodeBase58(params.P2SHVersion, script.Payload(),
			params)

	case txn.ScriptTypeWPKH, txn.ScriptTypeWSH:
		return EncodeSegWit(0, script.Payload(), params)

	default:
		return "", ErrUnencodableScript
	}
}

// Decode parses an address on the given network back into its script
// pubkey. Addresses for other networks are rejected, not misparsed.
func Decode(addr string, params *ChainParams) (txn.ScriptPubkey, error) {
	if isBech32(addr) {
		version, program, err := DecodeSegWit(addr, params)
		if err != nil {
			return nil, err
		}
		return witnessScript(version, program)
	}
	return decodeBase58(addr, params)
}

// EncodeSegWit renders a witness program as a bech32 address.
func EncodeSegWit(version byte, program []byte,
	params *ChainParams) (string, error) {

	if version > params.MaxWitnessVersion {
		return "", &UnknownVersionError{Version: version}
	}
	if err := checkWitnessProgram(version, program); err != nil {
		return "", err
	}

	converted, err := bech32.ConvertBits(program, 8, 5, true)
	if err != nil {
		return "", err
	}
	data := make([]byte, 0, len(converted)+1)
	data = append(data, version)
	data = append(data, converted...)
	return bech32.Encode(params.Bech32HRP, data)
}

// DecodeSegWit parses a bech32 address into its witness version and
// program, enforcing the network's prefix.
func DecodeSegWit(addr string, params *ChainParams) (byte, []byte, error) {
	hrp, data, err := bech32.Decode(addr)
	if err != nil {
		return 0, nil, err
	}
	if !IsForNet(hrp, params) {
		return 0, nil, &WrongHRPError{
			Got:  hrp,
			Want: params.Bech32HRP,
		}
	}
	if len(data) < 1 {
		return 0, nil, ErrBadWitnessProgram
	}

	version := data[0]
	if version > params.MaxWitnessVersion {
		return 0, nil, &UnknownVersionError{Version: version}
	}

	program, err := bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return 0, nil, err
	}
	if err := checkWitnessProgram(version, program); err != nil {
		return 0, nil, err
	}
	return version, program, nil
}

// checkWitnessProgram enforces the program length rules: 2 to 40 bytes in
// general, exactly 20 or 32 for version zero.
func checkWitnessProgram(version byte, program []byte) error {
	if len(program) < 2 || len(program) > 40 {
		return ErrBadWitnessProgram
	}
	if version == 0 && len(program) != 20 && len(program) != 32 {
		return ErrBadWitnessProgram
	}
	return nil
}

// witnessScript rebuilds the script pubkey for a decoded witness program.
func witnessScript(version byte, program []byte) (txn.ScriptPubkey,
	error) {

	if version == 0 {
		switch len(program) {
		case 20:
			return txn.NewWPKHScriptPubkey(program), nil
		case 32:
			return txn.NewWSHScriptPubkey(program), nil
		default:
			return nil, ErrBadWitnessProgram
		}
	}

	// Versions 1 through 16 use the OP_1..OP_16 opcodes. Higher
	// versions exist only on witness-only networks whose outputs are
	// not expressed as scripts here.
	if version > 16 {
		return nil, &UnknownVersionError{Version: version}
	}
	script := make(txn.ScriptPubkey, 0, 2+len(program))
	script = append(script, 0x50+version, byte(len(program)))
	script = append(script, program...)
	return script, nil
}

// isBech32 reports whether the address has a bech32 shape: a separator
// and a single consistent case.
func isBech32(addr string) bool {
	if !strings.Contains(addr, "1") {
		return false
	}
	return addr == strings.ToLower(addr) || addr == strings.ToUpper(addr)
}

func encodeBase58(version byte, payload []byte,
	params *ChainParams) (string, error) {

	if params.WitnessOnly {
		return "", ErrNoBase58
	}

	framed := make([]byte, 0, 1+len(payload)+4)
	framed = append(framed, version)
	framed = append(framed, payload...)
	framed = append(framed, chainhash.DoubleHashB(framed)[:4]...)
	return base58.Encode(framed), nil
}

func decodeBase58(addr string, params *ChainParams) (txn.ScriptPubkey,
	error) {

	if params.WitnessOnly {
		return nil, ErrNoBase58
	}

	decoded := base58.Decode(addr)
	if len(decoded) < 5 {
		return nil, ErrBadChecksum
	}
	payload := decoded[:len(decoded)-4]
	checksum := decoded[len(decoded)-4:]
	if !bytes.Equal(chainhash.DoubleHashB(payload)[:4], checksum) {
		return nil, ErrBadChecksum
	}
	if len(payload) != 21 {
		return nil, ErrUnencodableScript
	}

	switch payload[0] {
	case params.P2PKHVersion:
		return txn.NewPKHScriptPubkey(payload[1:]), nil
	case params.P2SHVersion:
		return txn.NewSHScriptPubkey(payload[1:]), nil
	default:
		return nil, &UnknownVersionError{Version: payload[0]}
	}
}
