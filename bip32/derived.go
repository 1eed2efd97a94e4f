package bip32

import (
	"bytes"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/keystrata/coinkit/secp"
)

// DerivedXPriv is an extended private key paired with the metadata
// describing where in a tree it lives. Deriving children extends the
// metadata in lockstep, so a derived key can always answer whether some
// other derivation descends from it.
type DerivedXPriv struct {
	*XPriv

	// Derivation locates this key relative to its tree's root.
	Derivation *KeyDerivation
}

// DerivedXPub is the public counterpart of DerivedXPriv.
type DerivedXPub struct {
	*XPub

	// Derivation locates this key relative to its tree's root.
	Derivation *KeyDerivation
}

// DerivedPubkey is a plain compressed public key with derivation
// metadata, as exchanged in PSBT derivation entries.
type DerivedPubkey struct {
	// Key is the compressed public key.
	Key secp.Pubkey

	// Derivation locates the key relative to its tree's root.
	Derivation *KeyDerivation
}

// NewDerivedMaster generates a master key from a seed and anchors its
// derivation metadata at itself: the root fingerprint is the master's own
// and the path is empty.
func NewDerivedMaster(be secp.Backend, seed []byte,
	hint Hint) (*DerivedXPriv, error) {

	master, err := NewMaster(seed, hint)
	if err != nil {
		return nil, err
	}
	root, err := master.Fingerprint(be)
	if err != nil {
		return nil, err
	}
	return &DerivedXPriv{
		XPriv:      master,
		Derivation: &KeyDerivation{Root: root},
	}, nil
}

// NewDerivedXPriv pairs an extended private key with its derivation
// metadata.
func NewDerivedXPriv(key *XPriv, derivation *KeyDerivation) *DerivedXPriv {
	return &DerivedXPriv{XPriv: key, Derivation: derivation}
}

// Child derives a child key, extending the derivation metadata by one
// step.
func (d *DerivedXPriv) Child(be secp.Backend, index uint32) (*DerivedXPriv,
	error) {

	child, err := d.XPriv.Child(be, index)
	if err != nil {
		return nil, err
	}
	return &DerivedXPriv{
		XPriv:      child,
		Derivation: d.Derivation.Extended(index),
	}, nil
}

// DerivePath derives a descendant, extending the derivation metadata by
// the whole path.
func (d *DerivedXPriv) DerivePath(be secp.Backend,
	path DerivationPath) (*DerivedXPriv, error) {

	current := d
	for _, index := range path {
		next, err := current.Child(be, index)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

// Neuter returns the derived extended public key sharing this key's
// derivation metadata.
func (d *DerivedXPriv) Neuter(be secp.Backend) (*DerivedXPub, error) {
	xpub, err := d.XPriv.Neuter(be)
	if err != nil {
		return nil, err
	}
	return &DerivedXPub{
		XPub:       xpub,
		Derivation: d.Derivation.Clone(),
	}, nil
}

// DerivedPubkey returns this key's compressed public key with derivation
// metadata attached.
func (d *DerivedXPriv) DerivedPubkey(be secp.Backend) (*DerivedPubkey,
	error) {

	pub, err := d.Pubkey(be)
	if err != nil {
		return nil, err
	}
	return &DerivedPubkey{
		Key:        pub,
		Derivation: d.Derivation.Clone(),
	}, nil
}

// IsPossibleAncestorOf reports whether the given derivation could
// describe a descendant of this key. Fingerprints collide, so a positive
// answer is a hint to try DerivesPubkey, not a guarantee.
func (d *DerivedXPriv) IsPossibleAncestorOf(other *KeyDerivation) bool {
	return d.Derivation.IsPossibleAncestorOf(other)
}

// DeriveDescendant derives the key at a claimed descendant derivation.
// The boolean is false when the derivation does not descend from this
// key.
func (d *DerivedXPriv) DeriveDescendant(be secp.Backend,
	descendant *KeyDerivation) (*DerivedXPriv, bool, error) {

	suffix, ok := d.Derivation.PathToDescendant(descendant)
	if !ok {
		return nil, false, nil
	}
	derived, err := d.DerivePath(be, suffix)
	if err != nil {
		return nil, false, err
	}
	return derived, true, nil
}

// DerivesPubkey confirms or refutes a claimed descendant public key by
// actually deriving it and comparing.
func (d *DerivedXPriv) DerivesPubkey(be secp.Backend,
	claimed *DerivedPubkey) (bool, error) {

	derived, ok, err := d.DeriveDescendant(be, claimed.Derivation)
	if err != nil || !ok {
		return false, err
	}
	pub, err := derived.Pubkey(be)
	if err != nil {
		return false, err
	}
	return pub == claimed.Key, nil
}

// NewDerivedXPub pairs an extended public key with its derivation
// metadata.
func NewDerivedXPub(key *XPub, derivation *KeyDerivation) *DerivedXPub {
	return &DerivedXPub{XPub: key, Derivation: derivation}
}

// Child derives a child key, extending the derivation metadata by one
// step. The skip rule applies, so the metadata records the index actually
// used.
func (d *DerivedXPub) Child(be secp.Backend, index uint32) (*DerivedXPub,
	error) {

	child, err := d.XPub.Child(be, index)
	if err != nil {
		return nil, err
	}
	return &DerivedXPub{
		XPub:       child,
		Derivation: d.Derivation.Extended(child.Index),
	}, nil
}

// DerivePath derives a descendant, extending the derivation metadata by
// the whole path.
func (d *DerivedXPub) DerivePath(be secp.Backend,
	path DerivationPath) (*DerivedXPub, error) {

	current := d
	for _, index := range path {
		next, err := current.Child(be, index)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

// IsPossibleAncestorOf reports whether the given derivation could
// describe a descendant of this key.
func (d *DerivedXPub) IsPossibleAncestorOf(other *KeyDerivation) bool {
	return d.Derivation.IsPossibleAncestorOf(other)
}

// DerivesPubkey confirms or refutes a claimed descendant public key.
func (d *DerivedXPub) DerivesPubkey(be secp.Backend,
	claimed *DerivedPubkey) (bool, error) {

	suffix, ok := d.Derivation.PathToDescendant(claimed.Derivation)
	if !ok {
		return false, nil
	}
	derived, err := d.DerivePath(be, suffix)
	if err != nil {
		return false, err
	}
	return bytes.Equal(derived.Pubkey().Bytes(), claimed.Key[:]), nil
}

// Hash160 returns the HASH160 of the public key, as committed to by
// pay-to-pubkey-hash and pay-to-witness-pubkey-hash outputs.
func (p *DerivedPubkey) Hash160() []byte {
	return btcutil.Hash160(p.Key[:])
}

// Fingerprint returns the key's own fingerprint.
func (p *DerivedPubkey) Fingerprint() KeyFingerprint {
	return fingerprint(p.Key)
}
