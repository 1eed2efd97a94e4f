package secp

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// DecredBackend implements Backend directly on top of the decred
// secp256k1 package. It is interchangeable with BtcecBackend; having two
// independent constructions keeps the capability boundary honest and lets
// downstream users pin whichever library their dependency tree already
// carries.
type DecredBackend struct{}

// NewDecredBackend returns a Backend backed by dcrec/secp256k1/v4.
func NewDecredBackend() *DecredBackend {
	return &DecredBackend{}
}

var _ Backend = (*DecredBackend)(nil)

func parseDcrScalar(b [32]byte) (*secp256k1.ModNScalar, error) {
	var s secp256k1.ModNScalar
	if overflow := s.SetBytes(&b); overflow != 0 {
		return nil, ErrInvalidPrivkey
	}
	if s.IsZero() {
		return nil, ErrInvalidPrivkey
	}
	return &s, nil
}

// DerivePubkey computes the compressed public key for a private key scalar.
func (b *DecredBackend) DerivePubkey(priv Privkey) (Pubkey, error) {
	var pub Pubkey
	if _, err := parseDcrScalar(priv); err != nil {
		return pub, err
	}
	privKey := secp256k1.PrivKeyFromBytes(priv[:])
	copy(pub[:], privKey.PubKey().SerializeCompressed())
	return pub, nil
}

// TweakPrivkey returns priv + tweak (mod n).
func (b *DecredBackend) TweakPrivkey(priv Privkey,
	tweak [32]byte) (Privkey, error) {

	var out Privkey

	k, err := parseDcrScalar(priv)
	if err != nil {
		return out, err
	}

	var t secp256k1.ModNScalar
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
func (b *DecredBackend) TweakPubkey(pub Pubkey, tweak [32]byte) (Pubkey,
	error) {

	var out Pubkey

	pubKey, err := secp256k1.ParsePubKey(pub[:])
	if err != nil {
		return out, ErrInvalidPubkey
	}

	var t secp256k1.ModNScalar
	if overflow := t.SetBytes(&tweak); overflow != 0 {
		return out, ErrBadTweak
	}

	var tweakPoint, parentPoint, childPoint secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&t, &tweakPoint)
	pubKey.AsJacobian(&parentPoint)
	secp256k1.AddNonConst(&tweakPoint, &parentPoint, &childPoint)
	if (childPoint.X.IsZero() && childPoint.Y.IsZero()) ||
		childPoint.Z.IsZero() {

		return out, ErrBadTweak
	}

	childPoint.ToAffine()
	childKey := secp256k1.NewPublicKey(&childPoint.X, &childPoint.Y)
	copy(out[:], childKey.SerializeCompressed())
	return out, nil
}

// SignDigest produces a DER-encoded ECDSA signature over digest.
func (b *DecredBackend) SignDigest(priv Privkey, digest Digest) ([]byte,
	error) {

	if _, err := parseDcrScalar(priv); err != nil {
		return nil, err
	}
	privKey := secp256k1.PrivKeyFromBytes(priv[:])
	sig := ecdsa.Sign(privKey, digest[:])
	return sig.Serialize(), nil
}

// SignRecoverable produces a compact signature with a recovery header.
func (b *DecredBackend) SignRecoverable(priv Privkey,
	digest Digest) (RecoverableSignature, error) {

	var out RecoverableSignature
	if _, err := parseDcrScalar(priv); err != nil {
		return out, err
	}
	privKey := secp256k1.PrivKeyFromBytes(priv[:])
	sig := ecdsa.SignCompact(privKey, digest[:], true)
	copy(out[:], sig)
	return out, nil
}

// VerifyDigest checks a DER-encoded signature against a key and digest.
func (b *DecredBackend) VerifyDigest(pub Pubkey, digest Digest,
	sigDER []byte) error {

	pubKey, err := secp256k1.ParsePubKey(pub[:])
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
func (b *DecredBackend) RecoverPubkey(digest Digest,
	sig RecoverableSignature) (Pubkey, error) {

	var out Pubkey
	pubKey, _, err := ecdsa.RecoverCompact(sig[:], digest[:])
	if err != nil {
		return out, ErrInvalidSignature
	}
	copy(out[:], pubKey.SerializeCompressed())
	return out, nil
}
