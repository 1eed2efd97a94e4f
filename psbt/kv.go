// Package psbt implements the partially signed transaction interchange
// format: a magic-prefixed sequence of key-value maps describing an
// unsigned transaction, per-input signing state and per-output spending
// metadata, together with the signer, finalizer and extractor roles that
// move a packet toward a broadcastable transaction.
package psbt

import (
	"bytes"
	"io"
	"sort"

	"github.com/btcsuite/btcd/wire"
)

// maxKVLen caps key and value length prefixes read from untrusted
// serializations.
const maxKVLen = 4_000_000

// Key is a map key: a type byte followed by optional key data.
type Key []byte

// Value is a map value. Interpretation depends on the key type.
type Value []byte

// KeyType returns the key's leading type byte. The empty key acts as the
// map terminator and never appears inside a map.
func (k Key) KeyType() uint8 {
	return k[0]
}

// kvPair is one entry of a map.
type kvPair struct {
	key   Key
	value Value
}

// kvMap is an ordered key-value map. Entries are kept sorted by key
// bytes, so serialization is deterministic and round-trips the canonical
// form byte for byte.
type kvMap struct {
	pairs []kvPair
}

// search returns the insertion position of key and whether it is present.
func (m *kvMap) search(key Key) (int, bool) {
	i := sort.Search(len(m.pairs), func(i int) bool {
		return bytes.Compare(m.pairs[i].key, key) >= 0
	})
	return i, i < len(m.pairs) && bytes.Equal(m.pairs[i].key, key)
}

// get returns the value stored under key.
func (m *kvMap) get(key Key) (Value, bool) {
	i, ok := m.search(key)
	if !ok {
		return nil, false
	}
	return m.pairs[i].value, true
}

// set stores value under key, replacing any existing entry.
func (m *kvMap) set(key Key, value Value) {
	i, ok := m.search(key)
	if ok {
		m.pairs[i].value = value
		return
	}
	m.pairs = append(m.pairs, kvPair{})
	copy(m.pairs[i+1:], m.pairs[i:])
	m.pairs[i] = kvPair{key: key, value: value}
}

// insertUnique stores value under key, failing if the key is present.
func (m *kvMap) insertUnique(key Key, value Value) error {
	i, ok := m.search(key)
	if ok {
		return &DuplicateKeyError{Key: key}
	}
	m.pairs = append(m.pairs, kvPair{})
	copy(m.pairs[i+1:], m.pairs[i:])
	m.pairs[i] = kvPair{key: key, value: value}
	return nil
}

// remove deletes the entry under key if present.
func (m *kvMap) remove(key Key) {
	i, ok := m.search(key)
	if !ok {
		return
	}
	m.pairs = append(m.pairs[:i], m.pairs[i+1:]...)
}

// removeType deletes every entry of the given key type.
func (m *kvMap) removeType(keyType uint8) {
	kept := m.pairs[:0]
	for _, pair := range m.pairs {
		if pair.key.KeyType() != keyType {
			kept = append(kept, pair)
		}
	}
	m.pairs = kept
}

// len returns the entry count.
func (m *kvMap) len() int {
	return len(m.pairs)
}

// typeRange returns all entries whose key type matches, in key order.
func (m *kvMap) typeRange(keyType uint8) []kvPair {
	var out []kvPair
	for _, pair := range m.pairs {
		if pair.key.KeyType() == keyType {
			out = append(out, pair)
		}
	}
	return out
}

// forEach visits every entry in key order.
func (m *kvMap) forEach(fn func(Key, Value) error) error {
	for _, pair := range m.pairs {
		if err := fn(pair.key, pair.value); err != nil {
			return err
		}
	}
	return nil
}

// encode writes every entry as length-prefixed key and value pairs,
// terminated by a zero-length key.
func (m *kvMap) encode(w io.Writer) error {
	for _, pair := range m.pairs {
		if err := writeKVBytes(w, pair.key); err != nil {
			return err
		}
		if err := writeKVBytes(w, pair.value); err != nil {
			return err
		}
	}
	_, err := w.Write([]byte{0x00})
	return err
}

// decode reads entries until the zero-length terminator key, rejecting
// duplicates.
func (m *kvMap) decode(r io.Reader) error {
	for {
		keyLen, err := wire.ReadVarInt(r, 0)
		if err != nil {
			return err
		}
		if keyLen == 0 {
			return nil
		}
		if keyLen > maxKVLen {
			return ErrOversizedKV
		}

		key := make(Key, keyLen)
		if _, err := io.ReadFull(r, key); err != nil {
			return err
		}

		value, err := readKVBytes(r)
		if err != nil {
			return err
		}
		if err := m.insertUnique(key, Value(value)); err != nil {
			return err
		}
	}
}

func writeKVBytes(w io.Writer, b []byte) error {
	if err := wire.WriteVarInt(w, 0, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readKVBytes(r io.Reader) ([]byte, error) {
	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, err
	}
	if count > maxKVLen {
		return nil, ErrOversizedKV
	}
	b := make([]byte, count)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}
