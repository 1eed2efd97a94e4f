package bip32

import (
	"testing"

	"github.com/keystrata/coinkit/secp"
	"github.com/stretchr/testify/require"
)

func newTestMaster(t *testing.T, be secp.Backend) *DerivedXPriv {
	t.Helper()
	seed := mustSeed(t, "000102030405060708090a0b0c0d0e0f")
	master, err := NewDerivedMaster(be, seed, HintSegWit)
	require.NoError(t, err)
	return master
}

func TestDerivedMasterAnchorsAtItself(t *testing.T) {
	be := secp.NewBtcecBackend()
	master := newTestMaster(t, be)

	fp, err := master.Fingerprint(be)
	require.NoError(t, err)
	require.Equal(t, fp, master.Derivation.Root)
	require.Empty(t, master.Derivation.Path)
}

func TestDerivedChildTracksPath(t *testing.T) {
	be := secp.NewBtcecBackend()
	master := newTestMaster(t, be)

	path, err := ParsePath("m/84'/0'/0'")
	require.NoError(t, err)
	account, err := master.DerivePath(be, path)
	require.NoError(t, err)
	require.Equal(t, path, account.Derivation.Path)
	require.Equal(t, master.Derivation.Root, account.Derivation.Root)

	leaf, err := account.Child(be, 3)
	require.NoError(t, err)
	require.Equal(t, path.Extend(3), leaf.Derivation.Path)

	// The raw key matches plain derivation of the same path.
	plain, err := master.XPriv.DerivePathString(be, "m/84'/0'/0'/3")
	require.NoError(t, err)
	require.True(t, plain.Equal(leaf.XPriv))
}

func TestDeriveDescendant(t *testing.T) {
	for name, be := range backends {
		be := be
		t.Run(name, func(t *testing.T) {
			master := newTestMaster(t, be)
			account, err := master.DerivePath(
				be, DerivationPath{HardenedOffset + 84},
			)
			require.NoError(t, err)

			target := account.Derivation.Extended(0).Extended(9)
			require.True(t, account.IsPossibleAncestorOf(target))

			derived, ok, err := account.DeriveDescendant(be, target)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, target.Path, derived.Derivation.Path)

			claimed, err := derived.DerivedPubkey(be)
			require.NoError(t, err)
			owns, err := account.DerivesPubkey(be, claimed)
			require.NoError(t, err)
			require.True(t, owns)

			// A claim under a foreign root is not a descendant.
			foreign := target.Clone()
			foreign.Root = KeyFingerprint{0x01}
			_, ok, err = account.DeriveDescendant(be, foreign)
			require.NoError(t, err)
			require.False(t, ok)

			// A wrong pubkey under a correct derivation is refuted.
			bogus := &DerivedPubkey{Derivation: target}
			bogus.Key[0] = 0x02
			owns, err = account.DerivesPubkey(be, bogus)
			require.NoError(t, err)
			require.False(t, owns)
		})
	}
}

func TestDerivedXPub(t *testing.T) {
	be := secp.NewDecredBackend()
	master := newTestMaster(t, be)

	account, err := master.DerivePath(
		be, DerivationPath{HardenedOffset, HardenedOffset + 1},
	)
	require.NoError(t, err)
	accountPub, err := account.Neuter(be)
	require.NoError(t, err)
	require.Equal(t, account.Derivation, accountPub.Derivation)

	leafPub, err := accountPub.DerivePath(be, DerivationPath{0, 2})
	require.NoError(t, err)

	leaf, err := account.DerivePath(be, DerivationPath{0, 2})
	require.NoError(t, err)
	claimed, err := leaf.DerivedPubkey(be)
	require.NoError(t, err)

	require.Equal(t, claimed.Key, leafPub.Pubkey())
	require.Equal(t, claimed.Derivation, leafPub.Derivation)

	owns, err := accountPub.DerivesPubkey(be, claimed)
	require.NoError(t, err)
	require.True(t, owns)

	// Hash160 commits to the compressed key bytes.
	require.Len(t, claimed.Hash160(), 20)
	require.Equal(t, fingerprint(claimed.Key),
		claimed.Fingerprint())
}
