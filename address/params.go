// Package address encodes and decodes the standard output scripts to and
// from their human-facing address forms: base58check for legacy and
// script hash outputs, bech32 for native witness outputs. All encoding is
// parameterized by per-network ChainParams.
package address

import (
	"strings"
	"sync"

	"github.com/keystrata/coinkit/bip32"
)

// Human-readable prefixes for bech32 encoded witness addresses for each
// supported network.
const (
	Bech32HRPMainnet       = "bc"
	Bech32HRPTestnet       = "tb"
	Bech32HRPRegressionnet = "bcrt"
	Bech32HRPHandshake     = "hs"
)

// ChainParams defines a network by its address encoding parameters and
// the extended key version bytes used alongside them.
type ChainParams struct {
	// Name is a human-readable network name.
	Name string

	// Bech32HRP is the human-readable prefix of witness addresses.
	Bech32HRP string

	// P2PKHVersion is the base58check version byte for pubkey hash
	// addresses.
	P2PKHVersion byte

	// P2SHVersion is the base58check version byte for script hash
	// addresses.
	P2SHVersion byte

	// WitnessOnly marks networks with no base58 address forms at all.
	WitnessOnly bool

	// MaxWitnessVersion is the highest witness version the network's
	// address format can carry.
	MaxWitnessVersion byte

	// HDParams are the extended key version bytes conventionally paired
	// with this network.
	HDParams *bip32.NetworkParams
}

var (
	registerMtx sync.RWMutex

	// Set of all registered prefixes for bech32 encoded addresses.
	bech32Prefixes = make(map[string]*ChainParams)

	// MainNetParams are the bitcoin mainnet address parameters.
	MainNetParams = ChainParams{
		Name:              "mainnet",
		Bech32HRP:         Bech32HRPMainnet,
		P2PKHVersion:      0x00,
		P2SHVersion:       0x05,
		MaxWitnessVersion: 16,
		HDParams:          bip32.MainNetParams,
	}

	// TestNetParams are the bitcoin testnet address parameters.
	TestNetParams = ChainParams{
		Name:              "testnet",
		Bech32HRP:         Bech32HRPTestnet,
		P2PKHVersion:      0x6f,
		P2SHVersion:       0xc4,
		MaxWitnessVersion: 16,
		HDParams:          bip32.TestNetParams,
	}

	// RegressionNetParams are the bitcoin regtest address parameters.
	RegressionNetParams = ChainParams{
		Name:              "regtest",
		Bech32HRP:         Bech32HRPRegressionnet,
		P2PKHVersion:      0x6f,
		P2SHVersion:       0xc4,
		MaxWitnessVersion: 16,
		HDParams:          bip32.TestNetParams,
	}

	// HandshakeMainNetParams are the parameters of a witness-only
	// network: every address is a bech32 witness program and witness
	// versions run up to 31.
	HandshakeMainNetParams = ChainParams{
		Name:              "handshake",
		Bech32HRP:         Bech32HRPHandshake,
		WitnessOnly:       true,
		MaxWitnessVersion: 31,
		HDParams:          bip32.MainNetParams,
	}
)

// Register adds a network to the bech32 prefix registry so its addresses
// can be recognized by Net.
func Register(params *ChainParams) {
	registerMtx.Lock()
	defer registerMtx.Unlock()
	bech32Prefixes[params.Bech32HRP] = params
}

// IsForNet reports whether the HRP is associated with the passed network.
func IsForNet(hrp string, net *ChainParams) bool {
	return strings.ToLower(hrp) == net.Bech32HRP
}

// Net returns the registered ChainParams associated with a bech32 HRP.
func Net(hrp string) (*ChainParams, error) {
	registerMtx.RLock()
	defer registerMtx.RUnlock()

	params, ok := bech32Prefixes[strings.ToLower(hrp)]
	if !ok {
		return nil, ErrUnsupportedHRP
	}
	return params, nil
}

func init() {
	// Register all default networks when the package is initialized.
	Register(&MainNetParams)
	Register(&TestNetParams)
	Register(&RegressionNetParams)
	Register(&HandshakeMainNetParams)
}
