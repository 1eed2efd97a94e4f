package bip32

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/keystrata/coinkit/secp"
)

// XPriv is an extended private key: a private key scalar plus the chain
// code and metadata needed to derive children.
type XPriv struct {
	XKeyInfo

	key secp.Privkey
}

// XPub is an extended public key. It can derive non-hardened children
// without access to any private material.
type XPub struct {
	XKeyInfo

	key secp.Pubkey
}

// scalarInRange reports whether the 32 bytes form a scalar in [1, n-1].
func scalarInRange(b []byte) bool {
	k := new(big.Int).SetBytes(b)
	return k.Sign() != 0 && k.Cmp(btcec.S256().N) < 0
}

// NewMaster generates a master extended private key from a seed, using
// the standard "Bitcoin seed" HMAC domain separator.
func NewMaster(seed []byte, hint Hint) (*XPriv, error) {
	return NewMasterWithHMACKey(defaultHMACKey, seed, hint)
}

// NewMasterWithHMACKey generates a master extended private key with a
// caller-chosen HMAC domain separator. Networks that fork the derivation
// scheme use this to keep their key trees disjoint from Bitcoin's.
func NewMasterWithHMACKey(hmacKey, seed []byte, hint Hint) (*XPriv, error) {
	if len(seed) < SeedMinLen {
		return nil, ErrSeedTooShort
	}
	if len(seed) > SeedMaxLen {
		return nil, ErrSeedTooLong
	}

	tweak, chainCode := hmacExpand(hmacKey, seed)
	if !scalarInRange(tweak[:]) {
		return nil, ErrInvalidKey
	}

	return &XPriv{
		XKeyInfo: XKeyInfo{
			ChainCode: chainCode,
			Hint:      hint,
		},
		key: secp.Privkey(tweak),
	}, nil
}

// NewXPriv assembles an extended private key from its parts. Most callers
// want NewMaster or derivation instead; this exists for deserialization
// and tests.
func NewXPriv(info XKeyInfo, key secp.Privkey) *XPriv {
	return &XPriv{XKeyInfo: info, key: key}
}

// NewXPub assembles an extended public key from its parts.
func NewXPub(info XKeyInfo, key secp.Pubkey) *XPub {
	return &XPub{XKeyInfo: info, key: key}
}

// Privkey returns the raw private key scalar.
func (k *XPriv) Privkey() secp.Privkey {
	return k.key
}

// Pubkey computes the compressed public key for this extended key.
func (k *XPriv) Pubkey(be secp.Backend) (secp.Pubkey, error) {
	if be == nil {
		return secp.Pubkey{}, secp.ErrNoBackend
	}
	return be.DerivePubkey(k.key)
}

// Fingerprint computes the fingerprint of this key: the first four bytes
// of the HASH160 of its compressed public key. The public key is derived
// on every call; cache the result when deriving many siblings.
func (k *XPriv) Fingerprint(be secp.Backend) (KeyFingerprint, error) {
	pub, err := k.Pubkey(be)
	if err != nil {
		return KeyFingerprint{}, err
	}
	return fingerprint(pub), nil
}

// Neuter returns the extended public key for this extended private key.
// The result shares depth, parent, index, chain code and hint.
func (k *XPriv) Neuter(be secp.Backend) (*XPub, error) {
	pub, err := k.Pubkey(be)
	if err != nil {
		return nil, err
	}
	return &XPub{XKeyInfo: k.XKeyInfo, key: pub}, nil
}

// Child derives the child extended private key at the given index.
// Indices at or above HardenedOffset derive hardened children. A
// derivation tweak that falls outside the group order surfaces as an
// error; per the standard this occurs with negligible probability and the
// caller should move to the next index.
func (k *XPriv) Child(be secp.Backend, index uint32) (*XPriv, error) {
	if be == nil {
		return nil, secp.ErrNoBackend
	}

	data := make([]byte, 0, 37)
	if index >= HardenedOffset {
		data = append(data, 0x00)
		data = append(data, k.key[:]...)
	} else {
		pub, err := be.DerivePubkey(k.key)
		if err != nil {
			return nil, err
		}
		data = append(data, pub[:]...)
	}
	data = binary.BigEndian.AppendUint32(data, index)

	tweak, chainCode := hmacExpand(k.ChainCode[:], data)
	childKey, err := be.TweakPrivkey(k.key, tweak)
	if err != nil {
		return nil, fmt.Errorf("bip32: deriving child %d: %w",
			index, err)
	}

	parent, err := k.Fingerprint(be)
	if err != nil {
		return nil, err
	}

	return &XPriv{
		XKeyInfo: XKeyInfo{
			Depth:     k.Depth + 1,
			Parent:    parent,
			Index:     index,
			ChainCode: chainCode,
			Hint:      k.Hint,
		},
		key: childKey,
	}, nil
}

// DerivePath derives the descendant at the given path, one child step per
// component.
func (k *XPriv) DerivePath(be secp.Backend, path DerivationPath) (*XPriv,
	error) {

	current := k
	for _, index := range path {
		next, err := current.Child(be, index)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

// DerivePathString parses a path string such as "m/44'/0'/0'" and derives
// the descendant at it.
func (k *XPriv) DerivePathString(be secp.Backend, path string) (*XPriv,
	error) {

	parsed, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	return k.DerivePath(be, parsed)
}

// SignDigest signs a 32-byte digest with this key, returning a
// DER-encoded signature.
func (k *XPriv) SignDigest(be secp.Backend, digest secp.Digest) ([]byte,
	error) {

	if be == nil {
		return nil, secp.ErrNoBackend
	}
	return be.SignDigest(k.key, digest)
}

// SignRecoverable signs a 32-byte digest, returning a compact recoverable
// signature.
func (k *XPriv) SignRecoverable(be secp.Backend,
	digest secp.Digest) (secp.RecoverableSignature, error) {

	if be == nil {
		return secp.RecoverableSignature{}, secp.ErrNoBackend
	}
	return be.SignRecoverable(k.key, digest)
}

// Equal reports whether two extended private keys hold the same key
// material and derivation metadata. The hint is deliberately excluded: it
// affects serialization only.
func (k *XPriv) Equal(other *XPriv) bool {
	if k == nil || other == nil {
		return k == other
	}
	return k.Depth == other.Depth &&
		k.Parent == other.Parent &&
		k.Index == other.Index &&
		k.ChainCode == other.ChainCode &&
		k.key == other.key
}

// Pubkey returns the compressed public key.
func (k *XPub) Pubkey() secp.Pubkey {
	return k.key
}

// Fingerprint computes the fingerprint of this key.
func (k *XPub) Fingerprint() KeyFingerprint {
	return fingerprint(k.key)
}

// Child derives the child extended public key at the given index. Only
// non-hardened indices are possible; hardened indices fail with
// ErrHardenedChild. When the derivation tweak for an index falls outside
// the group order, the standard skip rule applies and derivation retries
// at index+1, so the returned key's Index may exceed the requested one.
func (k *XPub) Child(be secp.Backend, index uint32) (*XPub, error) {
	if be == nil {
		return nil, secp.ErrNoBackend
	}

	parent := k.Fingerprint()
	for ; ; index++ {
		if index >= HardenedOffset {
			return nil, ErrHardenedChild
		}

		data := make([]byte, 0, 37)
		data = append(data, k.key[:]...)
		data = binary.BigEndian.AppendUint32(data, index)

		tweak, chainCode := hmacExpand(k.ChainCode[:], data)
		if !scalarInRange(tweak[:]) {
			// Skip rule: this index is unusable, move on.
			continue
		}

		childKey, err := be.TweakPubkey(k.key, tweak)
		if err != nil {
			return nil, fmt.Errorf("bip32: deriving child %d: %w",
				index, err)
		}

		return &XPub{
			XKeyInfo: XKeyInfo{
				Depth:     k.Depth + 1,
				Parent:    parent,
				Index:     index,
				ChainCode: chainCode,
				Hint:      k.Hint,
			},
			key: childKey,
		}, nil
	}
}

// DerivePath derives the descendant at the given path.
func (k *XPub) DerivePath(be secp.Backend, path DerivationPath) (*XPub,
	error) {

	current := k
	for _, index := range path {
		next, err := current.Child(be, index)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

// DerivePathString parses a path string and derives the descendant at it.
func (k *XPub) DerivePathString(be secp.Backend, path string) (*XPub,
	error) {

	parsed, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	return k.DerivePath(be, parsed)
}

// VerifyDigest checks a DER-encoded signature over a digest against this
// key.
func (k *XPub) VerifyDigest(be secp.Backend, digest secp.Digest,
	sigDER []byte) error {

	if be == nil {
		return secp.ErrNoBackend
	}
	return be.VerifyDigest(k.key, digest, sigDER)
}

// Equal reports whether two extended public keys hold the same key
// material and derivation metadata, ignoring the hint.
func (k *XPub) Equal(other *XPub) bool {
	if k == nil || other == nil {
		return k == other
	}
	return k.Depth == other.Depth &&
		k.Parent == other.Parent &&
		k.Index == other.Index &&
		k.ChainCode == other.ChainCode &&
		bytes.Equal(k.key[:], other.key[:])
}
