// Package bip32 implements hierarchical deterministic key derivation:
// extended private and public keys, HMAC-SHA512 child derivation with
// hardened and normal branches, derivation path parsing, and the
// base58check serialization of extended keys with per-network version
// bytes.
//
// Keys are plain values. Operations that need curve math take an explicit
// secp.Backend; passing a nil backend fails with secp.ErrNoBackend rather
// than panicking, so key material can be carried, serialized and compared
// in contexts that have no curve implementation wired up.
package bip32

import (
	"crypto/hmac"
	"crypto/sha512"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/keystrata/coinkit/secp"
)

const (
	// HardenedOffset is the index at which hardened derivation begins.
	// Indices at or above this value use the hardened HMAC input.
	HardenedOffset uint32 = 0x8000_0000

	// ChainCodeLen is the length of a chain code.
	ChainCodeLen = 32

	// FingerprintLen is the length of a key fingerprint.
	FingerprintLen = 4

	// XKeyLen is the length of a serialized extended key, before
	// base58check framing.
	XKeyLen = 78

	// SeedMinLen is the minimum accepted master seed length.
	SeedMinLen = 16

	// SeedMaxLen is the maximum accepted master seed length.
	SeedMaxLen = 64
)

// defaultHMACKey is the HMAC domain separator for master key generation.
var defaultHMACKey = []byte("Bitcoin seed")

// ChainCode is the entropy half of an extended key, mixed into every
// child derivation.
type ChainCode [ChainCodeLen]byte

// KeyFingerprint is the first four bytes of the HASH160 of a compressed
// public key. Fingerprints identify parents in serialized keys and roots
// in derivation metadata. They are short enough to collide, so they are a
// lookup hint, never proof of a key relationship.
type KeyFingerprint [FingerprintLen]byte

// Hint describes the intended address type for keys derived from an
// extended key. It selects the serialization version bytes and nothing
// else: two keys differing only in hint derive identical children.
type Hint uint8

const (
	// HintLegacy marks keys intended for pay-to-pubkey-hash outputs.
	HintLegacy Hint = iota

	// HintCompatibility marks keys intended for witness outputs nested
	// in pay-to-script-hash.
	HintCompatibility

	// HintSegWit marks keys intended for native witness outputs. This
	// is the default for newly generated masters.
	HintSegWit
)

// String returns a human-readable hint name.
func (h Hint) String() string {
	switch h {
	case HintLegacy:
		return "legacy"
	case HintCompatibility:
		return "compatibility"
	case HintSegWit:
		return "segwit"
	default:
		return "unknown"
	}
}

// XKeyInfo carries the derivation metadata shared by extended private and
// public keys.
type XKeyInfo struct {
	// Depth is the number of derivation steps from the master. The
	// master itself has depth zero.
	Depth uint8

	// Parent is the fingerprint of the parent key. All-zero for the
	// master.
	Parent KeyFingerprint

	// Index is the child index this key was derived at. Zero for the
	// master.
	Index uint32

	// ChainCode is the entropy mixed into child derivations.
	ChainCode ChainCode

	// Hint is the intended address type. Not covered by equality and
	// not part of the derivation math.
	Hint Hint
}

// Hardened reports whether the key was derived via a hardened step.
func (i *XKeyInfo) Hardened() bool {
	return i.Index >= HardenedOffset
}

// hmacExpand computes HMAC-SHA512(key, data) and splits the result into
// the 32-byte scalar tweak and the 32-byte child chain code.
func hmacExpand(key, data []byte) (tweak [32]byte, chainCode ChainCode) {
	mac := hmac.New(sha512.New, key)
	// Hash writers never fail.
	_, _ = mac.Write(data)
	sum := mac.Sum(nil)
	copy(tweak[:], sum[:32])
	copy(chainCode[:], sum[32:])
	return tweak, chainCode
}

// fingerprint computes the key fingerprint of a compressed public key.
func fingerprint(pub secp.Pubkey) KeyFingerprint {
	var fp KeyFingerprint
	copy(fp[:], btcutil.Hash160(pub[:])[:FingerprintLen])
	return fp
}
