// Package secp abstracts the secp256k1 operations needed for key
// derivation and transaction signing behind a small capability interface.
// Callers construct a concrete backend once at startup and pass it down to
// the operations that need curve math; everything else in this module works
// on plain serialized key material and never touches the curve directly.
package secp

import (
	"errors"
)

var (
	// ErrNoBackend is returned when an operation that requires curve math
	// is invoked with a nil backend.
	ErrNoBackend = errors.New("secp: no curve backend provided")

	// ErrInvalidPrivkey is returned when a 32-byte scalar is zero or not
	// less than the curve group order.
	ErrInvalidPrivkey = errors.New("secp: invalid private key scalar")

	// ErrInvalidPubkey is returned when a 33-byte slice is not a valid
	// SEC1 compressed point.
	ErrInvalidPubkey = errors.New("secp: invalid compressed public key")

	// ErrBadTweak is returned when a tweak scalar is out of range, or
	// when applying it would produce the zero scalar or the point at
	// infinity.
	ErrBadTweak = errors.New("secp: invalid tweak")

	// ErrInvalidSignature is returned when signature bytes cannot be
	// parsed.
	ErrInvalidSignature = errors.New("secp: invalid signature encoding")

	// ErrVerifyFailed is returned when a well-formed signature does not
	// verify against the given key and digest.
	ErrVerifyFailed = errors.New("secp: signature verification failed")
)

const (
	// PrivkeyLen is the length of a raw private key scalar.
	PrivkeyLen = 32

	// PubkeyLen is the length of a SEC1 compressed public key.
	PubkeyLen = 33

	// RecoverableSigLen is the length of a compact recoverable
	// signature: one recovery header byte followed by R and S.
	RecoverableSigLen = 65
)

// Privkey is a raw 32-byte big-endian private key scalar.
type Privkey [PrivkeyLen]byte

// Pubkey is a 33-byte SEC1 compressed public key.
type Pubkey [PubkeyLen]byte

// RecoverableSignature is a compact signature with a leading recovery
// header byte, allowing public key recovery from the signed digest.
type RecoverableSignature [RecoverableSigLen]byte

// Digest is a 32-byte hash that is signed or verified directly, with no
// further hashing applied by the backend.
type Digest [32]byte

// Backend is the set of secp256k1 operations the rest of the module
// depends on. Implementations must be safe for concurrent use. All inputs
// and outputs are in serialized form so that key material stays a plain
// value type regardless of the backing library.
type Backend interface {
	// DerivePubkey computes the compressed public key for a private key
	// scalar.
	DerivePubkey(priv Privkey) (Pubkey, error)

	// TweakPrivkey returns priv + tweak (mod n). It fails with
	// ErrBadTweak if the tweak is out of range or the sum is zero.
	TweakPrivkey(priv Privkey, tweak [32]byte) (Privkey, error)

	// TweakPubkey returns pub + tweak*G. It fails with ErrBadTweak if
	// the tweak is out of range or the sum is the point at infinity.
	TweakPubkey(pub Pubkey, tweak [32]byte) (Pubkey, error)

	// SignDigest produces a DER-encoded ECDSA signature over digest.
	// The digest is signed as-is.
	SignDigest(priv Privkey, digest Digest) ([]byte, error)

	// SignRecoverable produces a compact signature from which the
	// public key can be recovered.
	SignRecoverable(priv Privkey, digest Digest) (RecoverableSignature, error)

	// VerifyDigest checks a DER-encoded signature against a key and
	// digest. It returns nil on success, ErrVerifyFailed on a
	// well-formed but invalid signature.
	VerifyDigest(pub Pubkey, digest Digest, sigDER []byte) error

	// RecoverPubkey extracts the signing public key from a compact
	// recoverable signature.
	RecoverPubkey(digest Digest, sig RecoverableSignature) (Pubkey, error)
}

// Bytes returns the pubkey as a fresh byte slice.
func (p Pubkey) Bytes() []byte {
	b := make([]byte, PubkeyLen)
	copy(b, p[:])
	return b
}

// NewPubkey copies a 33-byte slice into a Pubkey. Only the length is
// checked here; point validity is enforced by backends on use.
func NewPubkey(b []byte) (Pubkey, error) {
	var pub Pubkey
	if len(b) != PubkeyLen {
		return pub, ErrInvalidPubkey
	}
	copy(pub[:], b)
	return pub, nil
}

// NewPrivkey copies a 32-byte slice into a Privkey. Range validity is
// enforced by backends on use.
func NewPrivkey(b []byte) (Privkey, error) {
	var priv Privkey
	if len(b) != PrivkeyLen {
		return priv, ErrInvalidPrivkey
	}
	copy(priv[:], b)
	return priv, nil
}
