package psbt

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/keystrata/coinkit/bip32"
	"github.com/keystrata/coinkit/txn"
)

// Global map key types.
const (
	// GlobalUnsignedTx holds the unsigned transaction, serialized in
	// the legacy format.
	GlobalUnsignedTx uint8 = 0x00

	// GlobalXpub holds an extended public key and its derivation
	// metadata.
	GlobalXpub uint8 = 0x01

	// GlobalVersion holds the packet format version.
	GlobalVersion uint8 = 0xfb

	// GlobalProprietary is the start of the proprietary key range.
	GlobalProprietary uint8 = 0xfc
)

// Global is the packet's global map.
type Global struct {
	kv kvMap
}

// keyUnsignedTx is the bare unsigned transaction key.
var keyUnsignedTx = Key{GlobalUnsignedTx}

// UnsignedTx parses the global unsigned transaction.
func (g *Global) UnsignedTx() (*txn.LegacyTx, error) {
	value, ok := g.kv.get(keyUnsignedTx)
	if !ok {
		return nil, ErrMissingUnsignedTx
	}

	var tx txn.LegacyTx
	if err := tx.Deserialize(bytes.NewReader(value)); err != nil {
		return nil, err
	}
	return &tx, nil
}

// SetUnsignedTx stores the unsigned transaction. Transactions carrying
// any script_sig are rejected: signatures belong in input maps.
func (g *Global) SetUnsignedTx(tx *txn.LegacyTx) error {
	for _, in := range tx.Vin {
		if len(in.ScriptSig) > 0 {
			return ErrScriptSigInTx
		}
	}
	g.kv.set(keyUnsignedTx, tx.Bytes())
	return nil
}

// Version returns the packet version, zero when unset.
func (g *Global) Version() uint32 {
	value, ok := g.kv.get(Key{GlobalVersion})
	if !ok || len(value) != 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(value)
}

// SetVersion stores the packet version.
func (g *Global) SetVersion(version uint32) {
	var value [4]byte
	binary.LittleEndian.PutUint32(value[:], version)
	g.kv.set(Key{GlobalVersion}, value[:])
}

// GlobalXpubEntry is one extended public key carried by the global map.
type GlobalXpubEntry struct {
	// Raw is the 78-byte serialized xpub.
	Raw []byte

	// Derivation is the key's claimed location.
	Derivation *bip32.KeyDerivation
}

// XPub parses the raw entry against a network's version bytes.
func (e *GlobalXpubEntry) XPub(params *bip32.NetworkParams) (*bip32.XPub,
	error) {

	return e.XPubFrom(bytes.NewReader(e.Raw), params)
}

// XPubFrom parses an xpub serialization from a reader. Split out so
// callers holding a framed copy can reuse the parse.
func (e *GlobalXpubEntry) XPubFrom(r io.Reader,
	params *bip32.NetworkParams) (*bip32.XPub, error) {

	return bip32.DecodeXPub(r, params)
}

// Xpubs returns all extended public key entries.
func (g *Global) Xpubs() ([]*GlobalXpubEntry, error) {
	var entries []*GlobalXpubEntry
	for _, pair := range g.kv.typeRange(GlobalXpub) {
		if len(pair.key) != 1+bip32.XKeyLen {
			return nil, &InvalidKeyError{
				KeyType: GlobalXpub,
				Length:  len(pair.key),
			}
		}
		derivation, err := bip32.ParseKeyDerivation(pair.value)
		if err != nil {
			return nil, err
		}
		entries = append(entries, &GlobalXpubEntry{
			Raw:        append([]byte(nil), pair.key[1:]...),
			Derivation: derivation,
		})
	}
	return entries, nil
}

// InsertXpub stores an extended public key entry with its derivation
// metadata.
func (g *Global) InsertXpub(xpub *bip32.XPub, params *bip32.NetworkParams,
	derivation *bip32.KeyDerivation) error {

	if int(xpub.Depth) != len(derivation.Path) {
		return &InvalidValueError{
			KeyType: GlobalXpub,
			Reason:  "path length does not match xpub depth",
		}
	}

	var buf bytes.Buffer
	if err := bip32.EncodeXPub(&buf, xpub, params); err != nil {
		return err
	}
	key := make(Key, 0, 1+bip32.XKeyLen)
	key = append(key, GlobalXpub)
	key = append(key, buf.Bytes()...)

	g.kv.set(key, derivation.Bytes())
	return nil
}

// Get reads a raw entry, for key types the typed accessors do not cover.
func (g *Global) Get(key Key) (Value, bool) {
	return g.kv.get(key)
}

// Set stores a raw entry.
func (g *Global) Set(key Key, value Value) {
	g.kv.set(key, value)
}

// Validate runs the global schema over the map and requires the unsigned
// transaction to be present.
func (g *Global) Validate() error {
	if _, ok := g.kv.get(keyUnsignedTx); !ok {
		return ErrMissingUnsignedTx
	}
	return globalSchema().validate(&g.kv)
}
