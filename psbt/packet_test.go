package psbt

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/keystrata/coinkit/bip32"
	"github.com/keystrata/coinkit/secp"
	"github.com/keystrata/coinkit/txn"
	"github.com/stretchr/testify/require"
)

// Interchange vectors: packets that must decode and re-serialize byte
// for byte.
var packetVectors = []string{
	// One legacy input funded by a full (witness) transaction.
	"70736274ff0100750200000001268171371edff285e937adeea4b37b78000c0566cbb3ad64641713ca42171bf60000000000feffffff02d3dff505000000001976a914d0c59903c5bac2868760e90fd521a4665aa7652088ac00e1f5050000000017a9143545e6e33b832c47050f24d3eeb93c9c03948bc787b32e1300000100fda5010100000000010289a3c71eab4d20e0371bbba4cc698fa295c9463afa2e397f8533ccb62f9567e50100000017160014be18d152a9b012039daf3da7de4f53349eecb985ffffffff86f8aa43a71dff1448893a530a7237ef6b4608bbb2dd2d0171e63aec6a4890b40100000017160014fe3e9ef1a745e974d902c4355943abcb34bd5353ffffffff0200c2eb0b000000001976a91485cff1097fd9e008bb34af709c62197b38978a4888ac72fef84e2c00000017a914339725ba21efd62ac753a9bcd067d6c7a6a39d05870247304402202712be22e0270f394f568311dc7ca9a68970b8025fdd3b240229f07f8a5f3a240220018b38d7dcd314e734c9276bd6fb40f673325bc4baa144c800d2f2f02db2765c012103d2e15674941bad4a996372cb87e1856d3652606d98562fe39c5e9e7e413f210502483045022100d12b852d85dcd961d2f5f4ab660654df6eedcc794c0c33ce5cc309ffb5fce58d022067338a8e0e1725c197fb1a88af59f51e44e4255b20167c8684031c05d1f2592a01210223b72beef0965d10be0778efecd61fcac6f79a4ea169393380734464f84f2ab300000000000000",
	// One finalized input plus one nested witness input.
	"70736274ff0100a00200000002ab0949a08c5af7c49b8212f417e2f15ab3f5c33dcf153821a8139f877a5b7be40000000000feffffffab0949a08c5af7c49b8212f417e2f15ab3f5c33dcf153821a8139f877a5b7be40100000000feffffff02603bea0b000000001976a914768a40bbd740cbe81d988e71de2a4d5c71396b1d88ac8e240000000000001976a9146f4620b553fa095e721b9ee0efe9fa039cca459788ac000000000001076a47304402204759661797c01b036b25928948686218347d89864b719e1f7fcf57d1e511658702205309eabf56aa4d8891ffd111fdf1336f3a29da866d7f8486d75546ceedaf93190121035cdc61fc7ba971c0b501a646a2a83b102cb43881217ca682dc86e2d73fa882920001012000e1f5050000000017a9143545e6e33b832c47050f24d3eeb93c9c03948bc787010416001485d13537f2e265405a34dbafa9e3dda01fb82308000000",
	// As the first, with an explicit sighash type entry.
	"70736274ff0100750200000001268171371edff285e937adeea4b37b78000c0566cbb3ad64641713ca42171bf60000000000feffffff02d3dff505000000001976a914d0c59903c5bac2868760e90fd521a4665aa7652088ac00e1f5050000000017a9143545e6e33b832c47050f24d3eeb93c9c03948bc787b32e1300000100fda5010100000000010289a3c71eab4d20e0371bbba4cc698fa295c9463afa2e397f8533ccb62f9567e50100000017160014be18d152a9b012039daf3da7de4f53349eecb985ffffffff86f8aa43a71dff1448893a530a7237ef6b4608bbb2dd2d0171e63aec6a4890b40100000017160014fe3e9ef1a745e974d902c4355943abcb34bd5353ffffffff0200c2eb0b000000001976a91485cff1097fd9e008bb34af709c62197b38978a4888ac72fef84e2c00000017a914339725ba21efd62ac753a9bcd067d6c7a6a39d05870247304402202712be22e0270f394f568311dc7ca9a68970b8025fdd3b240229f07f8a5f3a240220018b38d7dcd314e734c9276bd6fb40f673325bc4baa144c800d2f2f02db2765c012103d2e15674941bad4a996372cb87e1856d3652606d98562fe39c5e9e7e413f210502483045022100d12b852d85dcd961d2f5f4ab660654df6eedcc794c0c33ce5cc309ffb5fce58d022067338a8e0e1725c197fb1a88af59f51e44e4255b20167c8684031c05d1f2592a01210223b72beef0965d10be0778efecd61fcac6f79a4ea169393380734464f84f2ab30000000001030401000000000000",
}

func mustBytes(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestPacketRoundTrip(t *testing.T) {
	for i, vector := range packetVectors {
		raw := mustBytes(t, vector)
		p, err := DecodePacketBytes(raw)
		require.NoError(t, err, "vector %d", i)
		require.Equal(t, raw, p.Bytes(), "vector %d", i)

		// The base64 form round-trips through the same bytes.
		again, err := DecodeB64(p.B64())
		require.NoError(t, err)
		require.Equal(t, raw, again.Bytes())
	}
}

func TestDecodeBadMagic(t *testing.T) {
	raw := mustBytes(t, packetVectors[0])
	raw[4] = 0x00
	_, err := DecodePacketBytes(raw)
	require.ErrorIs(t, err, ErrBadMagic)
}

func TestDecodeDuplicateKey(t *testing.T) {
	p, err := DecodePacketBytes(mustBytes(t, packetVectors[0]))
	require.NoError(t, err)
	txBytes, ok := p.Global.Get(keyUnsignedTx)
	require.True(t, ok)

	// A global map carrying the unsigned transaction twice.
	var buf bytes.Buffer
	buf.Write(magic)
	for i := 0; i < 2; i++ {
		require.NoError(t, writeKVBytes(&buf, keyUnsignedTx))
		require.NoError(t, writeKVBytes(&buf, txBytes))
	}
	buf.WriteByte(0x00)

	_, err = DecodePacketBytes(buf.Bytes())
	var dupErr *DuplicateKeyError
	require.ErrorAs(t, err, &dupErr)
}

func TestValidateMapCounts(t *testing.T) {
	p, err := DecodePacketBytes(mustBytes(t, packetVectors[0]))
	require.NoError(t, err)

	p.Inputs = append(p.Inputs, &Input{})
	err = p.Validate()
	var countErr *MapCountError
	require.ErrorAs(t, err, &countErr)
	require.Equal(t, "input", countErr.Kind)
	require.Equal(t, 2, countErr.Maps)
	require.Equal(t, 1, countErr.Tx)
}

func TestValidateBothUtxoForms(t *testing.T) {
	p, err := DecodePacketBytes(mustBytes(t, packetVectors[0]))
	require.NoError(t, err)

	// The vector's input already carries a non-witness UTXO; adding
	// the witness form makes it ambiguous.
	p.Inputs[0].SetWitnessUtxo(txn.NewTxOut(1, txn.ScriptPubkey{0x51}))
	require.ErrorIs(t, p.Validate(), ErrBothUtxoForms)
}

func TestSetUnsignedTxRejectsScriptSigs(t *testing.T) {
	tx := txn.NewLegacyTx(2, []*txn.TxIn{
		txn.NewTxIn(txn.Outpoint{}, txn.ScriptSig{0x51}, 0xffffffff),
	}, []*txn.TxOut{
		txn.NewTxOut(1, txn.NewPKHScriptPubkey(make([]byte, 20))),
	}, 0)

	_, err := NewPacket(tx)
	require.ErrorIs(t, err, ErrScriptSigInTx)
}

func TestInputSighashFlag(t *testing.T) {
	in := &Input{}

	// Absent means the all-type default.
	flag, err := in.SighashFlag()
	require.NoError(t, err)
	require.Equal(t, txn.SighashAll, flag)

	in.SetSighashFlag(txn.SighashSingle | txn.SighashAnyoneCanPay)
	flag, err = in.SighashFlag()
	require.NoError(t, err)
	require.Equal(t, txn.SighashSingle|txn.SighashAnyoneCanPay, flag)
	require.NoError(t, in.Validate())

	// The none family is stored only by foreign software; both the
	// accessor and the schema reject it.
	in.Set(Key{InputSighashType}, Value{0x02, 0x00, 0x00, 0x00})
	_, err = in.SighashFlag()
	require.ErrorIs(t, err, txn.ErrNoneUnsupported)
	require.Error(t, in.Validate())

	// High bytes must be zero.
	in.Set(Key{InputSighashType}, Value{0x01, 0x00, 0x01, 0x00})
	require.Error(t, in.Validate())
}

func TestFindPrevout(t *testing.T) {
	p, err := DecodePacketBytes(mustBytes(t, packetVectors[0]))
	require.NoError(t, err)

	out, err := p.FindPrevout(0)
	require.NoError(t, err)
	require.EqualValues(t, 200_000_000, out.Value)
	require.Equal(t, txn.ScriptTypePKH, out.ScriptPubkey.Type())

	t.Run("wrong txid", func(t *testing.T) {
		broken, err := DecodePacketBytes(mustBytes(t, packetVectors[0]))
		require.NoError(t, err)
		tx, err := broken.UnsignedTx()
		require.NoError(t, err)
		tx.Vin[0].PreviousOutpoint.Txid[0] ^= 0xff
		require.NoError(t, broken.Global.SetUnsignedTx(tx))

		_, err = broken.FindPrevout(0)
		require.ErrorIs(t, err, ErrWrongPrevout)
	})

	t.Run("index out of range", func(t *testing.T) {
		broken, err := DecodePacketBytes(mustBytes(t, packetVectors[0]))
		require.NoError(t, err)
		tx, err := broken.UnsignedTx()
		require.NoError(t, err)
		tx.Vin[0].PreviousOutpoint.Index = 9
		require.NoError(t, broken.Global.SetUnsignedTx(tx))

		_, err = broken.FindPrevout(0)
		require.ErrorIs(t, err, ErrWrongPrevout)
	})

	t.Run("missing utxo", func(t *testing.T) {
		bare, err := NewPacket(txn.NewLegacyTx(2, []*txn.TxIn{
			txn.NewTxIn(txn.Outpoint{}, nil, 0xffffffff),
		}, []*txn.TxOut{
			txn.NewTxOut(1, txn.NewPKHScriptPubkey(
				make([]byte, 20),
			)),
		}, 0))
		require.NoError(t, err)

		_, err = bare.FindPrevout(0)
		require.ErrorIs(t, err, ErrMissingUtxo)
	})
}

func TestGlobalXpubs(t *testing.T) {
	be := secp.NewBtcecBackend()
	seed := mustBytes(t, "000102030405060708090a0b0c0d0e0f")
	master, err := bip32.NewDerivedMaster(be, seed, bip32.HintLegacy)
	require.NoError(t, err)

	account, err := master.DerivePath(be, bip32.DerivationPath{
		bip32.HardenedOffset + 44, bip32.HardenedOffset,
		bip32.HardenedOffset,
	})
	require.NoError(t, err)
	accountPub, err := account.Neuter(be)
	require.NoError(t, err)

	p, err := DecodePacketBytes(mustBytes(t, packetVectors[0]))
	require.NoError(t, err)

	t.Run("depth mismatch", func(t *testing.T) {
		err := p.Global.InsertXpub(accountPub.XPub,
			bip32.MainNetParams, master.Derivation)
		var valueErr *InvalidValueError
		require.ErrorAs(t, err, &valueErr)
	})

	require.NoError(t, p.Global.InsertXpub(accountPub.XPub,
		bip32.MainNetParams, accountPub.Derivation))
	require.NoError(t, p.Validate())

	// The entry survives a serialization round-trip.
	decoded, err := DecodePacketBytes(p.Bytes())
	require.NoError(t, err)
	entries, err := decoded.Global.Xpubs()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, accountPub.Derivation, entries[0].Derivation)

	xpub, err := entries[0].XPub(bip32.MainNetParams)
	require.NoError(t, err)
	require.True(t, xpub.Equal(accountPub.XPub))
}

func TestAddInputOutput(t *testing.T) {
	p, err := NewPacket(txn.NewLegacyTx(2, nil, nil, 0))
	require.NoError(t, err)

	require.NoError(t, p.AddInput(
		txn.NewTxIn(txn.Outpoint{Index: 3}, nil, 0xfffffffd), nil,
	))
	require.NoError(t, p.AddOutput(
		txn.NewTxOut(500, txn.NewPKHScriptPubkey(make([]byte, 20))),
		&Output{},
	))

	tx, err := p.UnsignedTx()
	require.NoError(t, err)
	require.Len(t, tx.Vin, 1)
	require.Len(t, tx.Vout, 1)
	require.Len(t, p.Inputs, 1)
	require.Len(t, p.Outputs, 1)
	require.NoError(t, p.Validate())
}
