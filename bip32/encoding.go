package bip32

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/keystrata/coinkit/secp"
)

// NetworkParams holds the extended key version bytes of one network. Each
// network defines six: one private and one public version per hint.
type NetworkParams struct {
	// Name is a human-readable network name.
	Name string

	// PrivLegacy is the xprv-class version (legacy hint).
	PrivLegacy uint32

	// PrivCompatibility is the yprv-class version.
	PrivCompatibility uint32

	// PrivSegWit is the zprv-class version.
	PrivSegWit uint32

	// PubLegacy is the xpub-class version.
	PubLegacy uint32

	// PubCompatibility is the ypub-class version.
	PubCompatibility uint32

	// PubSegWit is the zpub-class version.
	PubSegWit uint32
}

var (
	// MainNetParams holds the mainnet extended key versions
	// (xprv/yprv/zprv and xpub/ypub/zpub).
	MainNetParams = &NetworkParams{
		Name:              "mainnet",
		PrivLegacy:        0x0488ade4,
		PrivCompatibility: 0x049d7878,
		PrivSegWit:        0x04b2430c,
		PubLegacy:         0x0488b21e,
		PubCompatibility:  0x049d7cb2,
		PubSegWit:         0x04b24746,
	}

	// TestNetParams holds the testnet extended key versions
	// (tprv/uprv/vprv and tpub/upub/vpub).
	TestNetParams = &NetworkParams{
		Name:              "testnet",
		PrivLegacy:        0x04358394,
		PrivCompatibility: 0x044a4e28,
		PrivSegWit:        0x045f18bc,
		PubLegacy:         0x043587cf,
		PubCompatibility:  0x044a5262,
		PubSegWit:         0x045f1cf6,
	}
)

// PrivVersion returns the private key version bytes for a hint. Unknown
// hints fall back to the segwit version, matching the default hint.
func (p *NetworkParams) PrivVersion(hint Hint) uint32 {
	switch hint {
	case HintLegacy:
		return p.PrivLegacy
	case HintCompatibility:
		return p.PrivCompatibility
	default:
		return p.PrivSegWit
	}
}

// PubVersion returns the public key version bytes for a hint.
func (p *NetworkParams) PubVersion(hint Hint) uint32 {
	switch hint {
	case HintLegacy:
		return p.PubLegacy
	case HintCompatibility:
		return p.PubCompatibility
	default:
		return p.PubSegWit
	}
}

// PrivHint maps private version bytes back to a hint.
func (p *NetworkParams) PrivHint(version uint32) (Hint, error) {
	switch version {
	case p.PrivLegacy:
		return HintLegacy, nil
	case p.PrivCompatibility:
		return HintCompatibility, nil
	case p.PrivSegWit:
		return HintSegWit, nil
	default:
		return 0, newBadVersionError(version)
	}
}

// PubHint maps public version bytes back to a hint.
func (p *NetworkParams) PubHint(version uint32) (Hint, error) {
	switch version {
	case p.PubLegacy:
		return HintLegacy, nil
	case p.PubCompatibility:
		return HintCompatibility, nil
	case p.PubSegWit:
		return HintSegWit, nil
	default:
		return 0, newBadVersionError(version)
	}
}

func newBadVersionError(version uint32) *BadVersionBytesError {
	var e BadVersionBytesError
	binary.BigEndian.PutUint32(e.Version[:], version)
	return &e
}

// EncodeXPriv writes the 78-byte serialization of an extended private
// key: version, depth, parent fingerprint, index, chain code, then a zero
// padding byte and the 32-byte scalar.
func EncodeXPriv(w io.Writer, key *XPriv, params *NetworkParams) error {
	var buf [XKeyLen]byte
	marshalXKeyPrefix(&buf, &key.XKeyInfo, params.PrivVersion(key.Hint))
	buf[45] = 0x00
	priv := key.Privkey()
	copy(buf[46:], priv[:])

	_, err := w.Write(buf[:])
	return err
}

// EncodeXPub writes the 78-byte serialization of an extended public key.
func EncodeXPub(w io.Writer, key *XPub, params *NetworkParams) error {
	var buf [XKeyLen]byte
	marshalXKeyPrefix(&buf, &key.XKeyInfo, params.PubVersion(key.Hint))
	pub := key.Pubkey()
	copy(buf[45:], pub[:])

	_, err := w.Write(buf[:])
	return err
}

func marshalXKeyPrefix(buf *[XKeyLen]byte, info *XKeyInfo, version uint32) {
	binary.BigEndian.PutUint32(buf[0:4], version)
	buf[4] = info.Depth
	copy(buf[5:9], info.Parent[:])
	binary.BigEndian.PutUint32(buf[9:13], info.Index)
	copy(buf[13:45], info.ChainCode[:])
}

// DecodeXPriv reads the 78-byte serialization of an extended private key.
// The version bytes must be one of the network's private versions and the
// padding byte before the scalar must be zero.
func DecodeXPriv(r io.Reader, params *NetworkParams) (*XPriv, error) {
	var buf [XKeyLen]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, err
	}

	hint, err := params.PrivHint(binary.BigEndian.Uint32(buf[0:4]))
	if err != nil {
		return nil, err
	}
	if buf[45] != 0x00 {
		return nil, ErrBadPadding
	}

	info := unmarshalXKeyPrefix(&buf)
	info.Hint = hint
	if !scalarInRange(buf[46:]) {
		return nil, ErrInvalidKey
	}

	var key secp.Privkey
	copy(key[:], buf[46:])
	return &XPriv{XKeyInfo: info, key: key}, nil
}

// DecodeXPub reads the 78-byte serialization of an extended public key.
func DecodeXPub(r io.Reader, params *NetworkParams) (*XPub, error) {
	var buf [XKeyLen]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, err
	}

	hint, err := params.PubHint(binary.BigEndian.Uint32(buf[0:4]))
	if err != nil {
		return nil, err
	}

	info := unmarshalXKeyPrefix(&buf)
	info.Hint = hint

	var key secp.Pubkey
	copy(key[:], buf[45:])
	return &XPub{XKeyInfo: info, key: key}, nil
}

func unmarshalXKeyPrefix(buf *[XKeyLen]byte) XKeyInfo {
	var info XKeyInfo
	info.Depth = buf[4]
	copy(info.Parent[:], buf[5:9])
	info.Index = binary.BigEndian.Uint32(buf[9:13])
	copy(info.ChainCode[:], buf[13:45])
	return info
}

// EncodeXPrivBase58 renders an extended private key in base58check.
func EncodeXPrivBase58(key *XPriv, params *NetworkParams) string {
	var buf bytes.Buffer
	// Writes to a bytes.Buffer never fail.
	_ = EncodeXPriv(&buf, key, params)
	return base58CheckEncode(buf.Bytes())
}

// EncodeXPubBase58 renders an extended public key in base58check.
func EncodeXPubBase58(key *XPub, params *NetworkParams) string {
	var buf bytes.Buffer
	_ = EncodeXPub(&buf, key, params)
	return base58CheckEncode(buf.Bytes())
}

// DecodeXPrivBase58 parses a base58check extended private key.
func DecodeXPrivBase58(encoded string,
	params *NetworkParams) (*XPriv, error) {

	payload, err := base58CheckDecode(encoded)
	if err != nil {
		return nil, err
	}
	if len(payload) != XKeyLen {
		return nil, ErrBadXKeyLength
	}
	return DecodeXPriv(bytes.NewReader(payload), params)
}

// DecodeXPubBase58 parses a base58check extended public key.
func DecodeXPubBase58(encoded string,
	params *NetworkParams) (*XPub, error) {

	payload, err := base58CheckDecode(encoded)
	if err != nil {
		return nil, err
	}
	if len(payload) != XKeyLen {
		return nil, ErrBadXKeyLength
	}
	return DecodeXPub(bytes.NewReader(payload), params)
}

// base58CheckEncode appends the 4-byte double-SHA256 checksum and encodes
// in base58.
func base58CheckEncode(payload []byte) string {
	checksum := chainhash.DoubleHashB(payload)[:4]
	framed := make([]byte, 0, len(payload)+4)
	framed = append(framed, payload...)
	framed = append(framed, checksum...)
	return base58.Encode(framed)
}

// base58CheckDecode decodes base58 and verifies the trailing checksum.
func base58CheckDecode(encoded string) ([]byte, error) {
	decoded := base58.Decode(encoded)
	if len(decoded) < 5 {
		return nil, ErrBadChecksum
	}
	payload := decoded[:len(decoded)-4]
	checksum := decoded[len(decoded)-4:]
	if !bytes.Equal(chainhash.DoubleHashB(payload)[:4], checksum) {
		return nil, ErrBadChecksum
	}
	return payload, nil
}
