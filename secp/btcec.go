package secp

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// BtcecBackend implements Backend on top of btcec/v2. The zero value is
// ready for use; the struct carries no state and is safe for concurrent
// use.
type BtcecBackend struct{}

// NewBtcecBackend returns a Backend backed by btcec/v2.
func NewBtcecBackend() *BtcecBackend {
	return &BtcecBackend{}
}

// A compile-time assertion that BtcecBackend satisfies Backend.
var _ Backend = (*BtcecBackend)(nil)

// parseScalar loads a 32-byte scalar, rejecting zero and out-of-range
// values.
func parseScalar(b [32]byte) (*btcec.ModNScalar, error) {
	var s btcec.ModNScalar
	if overflow := s.SetBytes(&b); overflow != 0 {
		return nil, ErrInvalidPrivkey
	}
	if s.IsZero() {
		return nil, ErrInvalidPrivkey
	}
	return &s, nil
}

// DerivePubkey computes the compressed public key for a private key scalar.
func (b *BtcecBackend) DerivePubkey(priv Privkey) (Pubkey, error) {
	var pub Pubkey
	if _, err := parseScalar(priv); err != nil {
		return pub, err
	}
	privKey, _ := btcec.PrivKeyFromBytes(priv[:])
	copy(pub[:], privKey.PubKey().SerializeCompressed())
	return pub, nil
}

// TweakPrivkey returns priv + tweak (mod n).
func (b *BtcecBackend) TweakPrivkey(priv Privkey, tweak [32]byte) (Privkey, error) {
	var out Privkey

	k, err := parseScalar(priv)
	if err != nil {
		return out, err
	}

	var t btcec.ModNScalar
	if overflow := t.SetBytes(&tweak); overflow != 0 {
		return out, ErrBadTweak
	}

	k.Add(&t)
	if k.IsZero() {
		return out, ErrBadTweak
	}

	out = k.Bytes()
	return out, nil
}

// TweakPubkey returns pub + tweak*G.
func (b *BtcecBackend) TweakPubkey(pub Pubkey, tweak [32]byte) (Pubkey, error) {
	var out Pubkey

	pubKey, err := btcec.ParsePubKey(pub[:])
	if err != nil {
		return out, ErrInvalidPubkey
	}

	var t btcec.ModNScalar
	if overflow := t.SetBytes(&tweak); overflow != 0 {
		return out, ErrBadTweak
	}

	var tweakPoint, parentPoint, childPoint btcec.JacobianPoint
	btcec.ScalarBaseMultNonConst(&t, &tweakPoint)
	pubKey.AsJacobian(&parentPoint)
	btcec.AddNonConst(&tweakPoint, &parentPoint, &childPoint)
	if (childPoint.X.IsZero() && childPoint.Y.IsZero()) ||
		childPoint.Z.IsZero() {

		return out, ErrBadTweak
	}

	childPoint.ToAffine()
	childKey := btcec.NewPublicKey(&childPoint.X, &childPoint.Y)
	copy(out[:], childKey.SerializeCompressed())
	return out, nil
}

// SignDigest produces a DER-encoded ECDSA signature over digest.
func (b *BtcecBackend) SignDigest(priv Privkey, digest Digest) ([]byte,
	error) {

	if _, err := parseScalar(priv); err != nil {
		return nil, err
	}
	privKey, _ := btcec.PrivKeyFromBytes(priv[:])
	sig := ecdsa.Sign(privKey, digest[:])
	return sig.Serialize(), nil
}

// SignRecoverable produces a compact signature with a recovery header.
func (b *BtcecBackend) SignRecoverable(priv Privkey,
	digest Digest) (RecoverableSignature, error) {

	var out RecoverableSignature
	if _, err := parseScalar(priv); err != nil {
		return out, err
	}
	privKey, _ := btcec.PrivKeyFromBytes(priv[:])
	sig, err := ecdsa.SignCompact(privKey, digest[:], true)
	if err != nil {
		return out, err
	}
	copy(out[:], sig)
	return out, nil
}

// VerifyDigest checks a DER-encoded signature against a key and digest.
func (b *BtcecBackend) VerifyDigest(pub Pubkey, digest Digest,
	sigDER []byte) error {

	pubKey, err := btcec.ParsePubKey(pub[:])
	if err != nil {
		return ErrInvalidPubkey
	}
	sig, err := ecdsa.ParseDERSignature(sigDER)
	if err != nil {
		return ErrInvalidSignature
	}
	if !sig.Verify(digest[:], pubKey) {
		return ErrVerifyFailed
	}
	return nil
}

// RecoverPubkey extracts the signing key from a compact signature.
func (b *BtcecBackend) RecoverPubkey(digest Digest,
	sig RecoverableSignature) (Pubkey, error) {

	var out Pubkey
	pubKey, _, err := ecdsa.RecoverCompact(sig[:], digest[:])
	if err != nil {
		return out, ErrInvalidSignature
	}
	copy(out[:], pubKey.SerializeCompressed())
	return out, nil
}
