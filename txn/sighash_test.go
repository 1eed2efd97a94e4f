package txn

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
)

// legacyTxHex is a mainnet p2sh spend with one input and two outputs.
const legacyTxHex = "0100000001813f79011acb80925dfe69b3def355fe914bd1d96a" +
	"3f5f71bf8303c6a989c7d1000000006b483045022100ed81ff192e75a3fd2304004d" +
	"cadb746fa5e24c5031ccfcf21320b0277457c98f02207a986d955c6e0cb35d446a89" +
	"d3f56100f4d7f67801c31967743a9c8e10615bed01210349fc4e631e3624a545de3f" +
	"89f5d8684c7b8138bd94bdd531d2e213bf016b278afeffffff02a135ef0100000000" +
	"1976a914bc3b654dca7e56b04dca18f2566cdaf02e8d9ada88ac99c3980000000000" +
	"1976a9141c4bc762dd5423e332166702cb75f40df79fea1288ac19430600"

// legacyPrevoutScriptHex is the p2sh script pubkey funding the input
// above.
const legacyPrevoutScriptHex = "a91424d6008f143af0cca57344069c46661aa4fcea2387"

// witnessTxHex is a testnet p2wpkh spend with one input and one output.
const witnessTxHex = "02000000000101ee9242c89e79ab2aa537408839329895392b97" +
	"505b3496d5543d6d2f531b94d20000000000fdffffff0173d3010000000000" +
	"17a914bba5acbec4e6e3374a0345bf3609fa7cfea825f18700cafd0700"

// witnessPrevoutScriptHex is the p2wpkh script pubkey funding the input
// above, spent for 120000 base units.
const witnessPrevoutScriptHex = "0014758ce550380d964051086798d6546bebdca27a73"

// twoInWitnessTxHex spends the same prevout twice into two outputs.
const twoInWitnessTxHex = "02000000000102ee9242c89e79ab2aa53740883932989539" +
	"2b97505b3496d5543d6d2f531b94d20000000000fdffffffee9242c89e79ab2aa537" +
	"408839329895392b97505b3496d5543d6d2f531b94d20000000000fdffffff0273d3" +
	"01000000000017a914bba5acbec4e6e3374a0345bf3609fa7cfea825f18773d30100" +
	"0000000017a914bba5acbec4e6e3374a0345bf3609fa7cfea825f1870000cafd0700"

// twoInLegacyTxHex is the legacy rendering of the two-input spend.
const twoInLegacyTxHex = "0200000002ee9242c89e79ab2aa5374088393298953" +
	"92b97505b3496d5543d6d2f531b94d20000000000fdffffffee9242c89e79ab2aa53" +
	"7408839329895392b97505b3496d5543d6d2f531b94d20000000000fdffffff0273d" +
	"301000000000017a914bba5acbec4e6e3374a0345bf3609fa7cfea825f18773d3010" +
	"00000000017a914bba5acbec4e6e3374a0345bf3609fa7cfea825f18700000000"

// twoInOneOutWitnessTxHex has two inputs but only one output, so the
// single types overflow at index 1.
const twoInOneOutWitnessTxHex = "02000000000102ee9242c89e79ab2aa5374088393" +
	"29895392b97505b3496d5543d6d2f531b94d20000000000fdffffffee9242c89e79a" +
	"b2aa537408839329895392b97505b3496d5543d6d2f531b94d20000000000fdfffff" +
	"f0173d301000000000017a914bba5acbec4e6e3374a0345bf3609fa7cfea825f1870" +
	"000cafd0700"

func mustBytes(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func decodeLegacyTx(t *testing.T, s string) *LegacyTx {
	t.Helper()
	tx, err := DecodeTxBytes(mustBytes(t, s))
	require.NoError(t, err)
	ltx, ok := tx.(*LegacyTx)
	require.True(t, ok)
	return ltx
}

func decodeWitnessTx(t *testing.T, s string) *WitnessTx {
	t.Helper()
	tx, err := DecodeTxBytes(mustBytes(t, s))
	require.NoError(t, err)
	wtx, ok := tx.(*WitnessTx)
	require.True(t, ok)
	return wtx
}

func TestLegacySignatureHash(t *testing.T) {
	tx := decodeLegacyTx(t, legacyTxHex)
	script := ScriptPubkey(mustBytes(t, legacyPrevoutScriptHex))

	testCases := []struct {
		name   string
		flag   SighashFlag
		digest string
	}{{
		name:   "all",
		flag:   SighashAll,
		digest: "b85c4f8d1377cc138225dd9b319d0a4ca547f7884270640f44c5fcdf269e0fe8",
	}, {
		name:   "all anyonecanpay",
		flag:   SighashAll | SighashAnyoneCanPay,
		digest: "3b67a5114cc9fc837ddd6f6ec11bde38db5f68c34ab6ece2a043d7b25f2cf8bb",
	}, {
		name:   "single",
		flag:   SighashSingle,
		digest: "1dab67d768be0380fc800098005d1f61744ffe585b0852f8d7adc12121a86938",
	}, {
		name:   "single anyonecanpay",
		flag:   SighashSingle | SighashAnyoneCanPay,
		digest: "d4687b93c0a9090dc0a3384cd3a594ce613834bb37abc56f6032e96c597547e3",
	}}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			digest, err := tx.SignatureHash(&SighashArgs{
				Index:         0,
				Flag:          tc.flag,
				PrevoutScript: script,
			})
			require.NoError(t, err)
			require.Equal(t, tc.digest,
				hex.EncodeToString(digest[:]))
		})
	}

	txid := tx.TxID()
	require.Equal(t,
		"03ee4f7a4e68f802303bc659f8f817964b4b74fe046facc3ae1be4679d622c45",
		hex.EncodeToString(txid[:]))
}

// The legacy digest ignores witnesses, so the witness rendering of the
// same transaction signs identically through its embedded legacy view.
func TestLegacySignatureHashOfWitnessTx(t *testing.T) {
	witnessHex := "01000000000101813f79011acb80925dfe69b3def355fe914bd1" +
		"d96a3f5f71bf8303c6a989c7d1000000006b483045022100ed81ff192e75" +
		"a3fd2304004dcadb746fa5e24c5031ccfcf21320b0277457c98f02207a98" +
		"6d955c6e0cb35d446a89d3f56100f4d7f67801c31967743a9c8e10615bed" +
		"01210349fc4e631e3624a545de3f89f5d8684c7b8138bd94bdd531d2e213" +
		"bf016b278afeffffff02a135ef01000000001976a914bc3b654dca7e56b0" +
		"4dca18f2566cdaf02e8d9ada88ac99c39800000000001976a9141c4bc762" +
		"dd5423e332166702cb75f40df79fea1288ac0019430600"

	wtx := decodeWitnessTx(t, witnessHex)
	require.False(t, wtx.HasWitnessData())

	script := ScriptPubkey(mustBytes(t, legacyPrevoutScriptHex))
	digest, err := wtx.LegacyTx.SignatureHash(&SighashArgs{
		Index:         0,
		Flag:          SighashAll,
		PrevoutScript: script,
	})
	require.NoError(t, err)
	require.Equal(t,
		"b85c4f8d1377cc138225dd9b319d0a4ca547f7884270640f44c5fcdf269e0fe8",
		hex.EncodeToString(digest[:]))

	txid := wtx.TxID()
	require.Equal(t,
		"03ee4f7a4e68f802303bc659f8f817964b4b74fe046facc3ae1be4679d622c45",
		hex.EncodeToString(txid[:]))
}

func TestLegacySignatureHashTwoInputs(t *testing.T) {
	tx := decodeLegacyTx(t, twoInLegacyTxHex)
	script := ScriptPubkey(mustBytes(t, witnessPrevoutScriptHex))

	testCases := []struct {
		name   string
		flag   SighashFlag
		digest string
	}{{
		name:   "all",
		flag:   SighashAll,
		digest: "3ab40bf1287b7be9a5c67ed0f97f80b38c5f68e53ec93bffd3893901eaaafdb2",
	}, {
		name:   "all anyonecanpay",
		flag:   SighashAll | SighashAnyoneCanPay,
		digest: "2d5802fed31e1ef6a857346cc0a9085ea452daeeb3a0b5afcb16a2203ce5689d",
	}, {
		name:   "single",
		flag:   SighashSingle,
		digest: "ea52b62b26c1f0db838c952fa50806fb8e39ba4c92a9a88d1b4ba7e9c094517d",
	}, {
		name:   "single anyonecanpay",
		flag:   SighashSingle | SighashAnyoneCanPay,
		digest: "9e2aca0a04afa6e1e5e00ff16b06a247a0da1e7bbaa7cd761c066a82bb3b07d0",
	}}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			digest, err := tx.SignatureHash(&SighashArgs{
				Index:         1,
				Flag:          tc.flag,
				PrevoutScript: script,
			})
			require.NoError(t, err)
			require.Equal(t, tc.digest,
				hex.EncodeToString(digest[:]))
		})
	}

	txid := tx.TxID()
	require.Equal(t,
		"40157948972c5c97a2bafff861ee2f8745151385c7f9fbd03991ddf59b76ac81",
		hex.EncodeToString(txid[:]))
}

func TestWitnessSignatureHash(t *testing.T) {
	tx := decodeWitnessTx(t, witnessTxHex)
	script := ScriptPubkey(mustBytes(t, witnessPrevoutScriptHex))

	testCases := []struct {
		name   string
		flag   SighashFlag
		digest string
	}{{
		name:   "all",
		flag:   SighashAll,
		digest: "135754ab872e4943f7a9c30d6143c4c7187e33d0f63c75ec82a7f9a15e2f2d00",
	}, {
		name:   "all anyonecanpay",
		flag:   SighashAll | SighashAnyoneCanPay,
		digest: "cc7438d5b15e93ba612dcd227cf1937c35273675b3aa7d1b771573667376ddf6",
	}, {
		name:   "single",
		flag:   SighashSingle,
		digest: "d04631d2742e6fd8e80e2e4309dece65becca41d37fd6bc0bcba041c52d824d5",
	}, {
		name:   "single anyonecanpay",
		flag:   SighashSingle | SighashAnyoneCanPay,
		digest: "ffea9cdda07170af9bc9967cedf485e9fe15b78a622e0c196c0b6fc64f40c615",
	}}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			digest, err := tx.WitnessSignatureHash(
				&WitnessSighashArgs{
					Index:         0,
					Flag:          tc.flag,
					PrevoutScript: script,
					PrevoutValue:  120_000,
				},
			)
			require.NoError(t, err)
			require.Equal(t, tc.digest,
				hex.EncodeToString(digest[:]))
		})
	}

	txid := tx.TxID()
	require.Equal(t,
		"9e77087321b870859ebf08976d665c42d9f98cad18fff6a05a91c1d2da6d6c41",
		hex.EncodeToString(txid[:]))
}

func TestWitnessSignatureHashTwoInputs(t *testing.T) {
	tx := decodeWitnessTx(t, twoInWitnessTxHex)
	script := ScriptPubkey(mustBytes(t, witnessPrevoutScriptHex))

	testCases := []struct {
		name   string
		flag   SighashFlag
		digest string
	}{{
		name:   "all",
		flag:   SighashAll,
		digest: "75385c87ece4980b581cfd71bc5814f607801a87f6e0973c63dc9fda465c19c4",
	}, {
		name:   "all anyonecanpay",
		flag:   SighashAll | SighashAnyoneCanPay,
		digest: "bc55c4303c82cdcc8e290c597a00d662ab34414d79ec15d63912b8be7fe2ca3c",
	}, {
		name:   "single",
		flag:   SighashSingle,
		digest: "9d57bf7af01a4e0baa57e749aa193d37a64e3bbc08eb88af93944f41af8dfc70",
	}, {
		name:   "single anyonecanpay",
		flag:   SighashSingle | SighashAnyoneCanPay,
		digest: "ffea9cdda07170af9bc9967cedf485e9fe15b78a622e0c196c0b6fc64f40c615",
	}}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			digest, err := tx.WitnessSignatureHash(
				&WitnessSighashArgs{
					Index:         1,
					Flag:          tc.flag,
					PrevoutScript: script,
					PrevoutValue:  120_000,
				},
			)
			require.NoError(t, err)
			require.Equal(t, tc.digest,
				hex.EncodeToString(digest[:]))
		})
	}

	txid := tx.TxID()
	require.Equal(t,
		"184e7bce099679b27ed958213c97d2fb971e227c6517bca11f06ccbb97dcdc30",
		hex.EncodeToString(txid[:]))
}

func TestSignatureHashRejectsNone(t *testing.T) {
	tx := decodeWitnessTx(t, witnessTxHex)
	script := ScriptPubkey(mustBytes(t, witnessPrevoutScriptHex))

	_, err := tx.WitnessSignatureHash(&WitnessSighashArgs{
		Index:         0,
		Flag:          SighashNone,
		PrevoutScript: script,
		PrevoutValue:  120_000,
	})
	require.ErrorIs(t, err, ErrNoneUnsupported)

	_, err = tx.LegacyTx.SignatureHash(&SighashArgs{
		Index:         0,
		Flag:          SighashNone | SighashAnyoneCanPay,
		PrevoutScript: script,
	})
	require.ErrorIs(t, err, ErrNoneUnsupported)
}

func TestSignatureHashSingleOverflow(t *testing.T) {
	tx := decodeWitnessTx(t, twoInOneOutWitnessTxHex)
	require.Len(t, tx.Vin, 2)
	require.Len(t, tx.Vout, 1)

	script := ScriptPubkey(mustBytes(t, witnessPrevoutScriptHex))

	_, err := tx.WitnessSignatureHash(&WitnessSighashArgs{
		Index:         1,
		Flag:          SighashSingle,
		PrevoutScript: script,
		PrevoutValue:  120_000,
	})
	require.ErrorIs(t, err, ErrSighashSingleBug)

	_, err = tx.WitnessSignatureHash(&WitnessSighashArgs{
		Index:         1,
		Flag:          SighashSingleReverse,
		PrevoutScript: script,
		PrevoutValue:  120_000,
	})
	require.ErrorIs(t, err, ErrSighashSingleBug)

	_, err = tx.LegacyTx.SignatureHash(&SighashArgs{
		Index:         1,
		Flag:          SighashSingle,
		PrevoutScript: script,
	})
	require.ErrorIs(t, err, ErrSighashSingleBug)
}

func TestWitnessSighashNoInput(t *testing.T) {
	tx := decodeWitnessTx(t, twoInWitnessTxHex)
	script := ScriptPubkey(mustBytes(t, witnessPrevoutScriptHex))

	// Make the two inputs spend distinct outpoints so the commitment
	// difference is visible.
	varied := tx.Clone()
	varied.Vin[1].PreviousOutpoint.Index = 1

	digestAt := func(index int, flag SighashFlag) chainhash.Hash {
		digest, err := varied.WitnessSignatureHash(
			&WitnessSighashArgs{
				Index:         index,
				Flag:          flag,
				PrevoutScript: script,
				PrevoutValue:  120_000,
			},
		)
		require.NoError(t, err)
		return digest
	}

	// With anyone-can-pay alone the two inputs sign different
	// outpoints; adding no-input removes the outpoint from the
	// preimage and the digests collapse.
	acp := SighashAll | SighashAnyoneCanPay
	require.NotEqual(t, digestAt(0, acp), digestAt(1, acp))
	require.Equal(t,
		digestAt(0, acp|SighashNoInput),
		digestAt(1, acp|SighashNoInput))

	// No-input also differs from the plain commitment.
	plain, err := tx.WitnessSignatureHash(&WitnessSighashArgs{
		Index:         0,
		Flag:          SighashAll,
		PrevoutScript: script,
		PrevoutValue:  120_000,
	})
	require.NoError(t, err)
	noInput, err := tx.WitnessSignatureHash(&WitnessSighashArgs{
		Index:         0,
		Flag:          SighashAll | SighashNoInput,
		PrevoutScript: script,
		PrevoutValue:  120_000,
	})
	require.NoError(t, err)
	require.NotEqual(t, plain, noInput)
}

func TestWitnessSighashSingleReverse(t *testing.T) {
	tx := decodeWitnessTx(t, twoInWitnessTxHex)
	script := ScriptPubkey(mustBytes(t, witnessPrevoutScriptHex))

	// Give the outputs distinct values so the mirror is observable.
	forward := tx.Clone()
	forward.Vout[0].Value = 1000
	forward.Vout[1].Value = 2000

	// The same transaction with its outputs swapped.
	swapped := forward.Clone()
	swapped.Vout[0], swapped.Vout[1] = swapped.Vout[1], swapped.Vout[0]

	flag := SighashSingleReverse | SighashNoInput | SighashAnyoneCanPay
	digest := func(tx *WitnessTx, index int) chainhash.Hash {
		d, err := tx.WitnessSignatureHash(&WitnessSighashArgs{
			Index:         index,
			Flag:          flag,
			PrevoutScript: script,
			PrevoutValue:  120_000,
		})
		require.NoError(t, err)
		return d
	}

	// Index 0 commits to the last output, index 1 to the first. Both
	// inputs are otherwise identical under no-input and anyone-can-pay,
	// so mirroring the outputs mirrors the digests.
	require.NotEqual(t, digest(forward, 0), digest(swapped, 0))
	require.Equal(t, digest(forward, 0), digest(swapped, 1))
	require.Equal(t, digest(forward, 1), digest(swapped, 0))
}

func TestParseSighashFlag(t *testing.T) {
	valid := []byte{0x01, 0x03, 0x81, 0x83}
	for _, b := range valid {
		flag, err := ParseSighashFlag(b)
		require.NoError(t, err)
		require.Equal(t, SighashFlag(b), flag)
	}

	for _, b := range []byte{0x02, 0x82} {
		_, err := ParseSighashFlag(b)
		require.ErrorIs(t, err, ErrNoneUnsupported)
	}

	unknown := []byte{0x00, 0x04, 0x16, 0x30, 0x34, 0x39, 0x84, 0xab}
	for _, b := range unknown {
		_, err := ParseSighashFlag(b)
		var unknownErr *UnknownSighashError
		require.ErrorAs(t, err, &unknownErr)
		require.Equal(t, b, unknownErr.Flag)
	}
}

func TestParseExtendedSighashFlag(t *testing.T) {
	valid := []byte{0x01, 0x03, 0x04, 0x41, 0x43, 0x44, 0x81, 0x83,
		0x84, 0xc1, 0xc3, 0xc4}
	for _, b := range valid {
		flag, err := ParseExtendedSighashFlag(b)
		require.NoError(t, err)
		require.Equal(t, SighashFlag(b), flag)
	}

	for _, b := range []byte{0x02, 0x42, 0x82, 0xc2} {
		_, err := ParseExtendedSighashFlag(b)
		require.ErrorIs(t, err, ErrNoneUnsupported)
	}

	for _, b := range []byte{0x00, 0x05, 0x16, 0xab} {
		_, err := ParseExtendedSighashFlag(b)
		var unknownErr *UnknownSighashError
		require.ErrorAs(t, err, &unknownErr)
	}
}

func TestSignatureHashIndexOutOfRange(t *testing.T) {
	tx := decodeWitnessTx(t, witnessTxHex)
	script := ScriptPubkey(mustBytes(t, witnessPrevoutScriptHex))

	_, err := tx.WitnessSignatureHash(&WitnessSighashArgs{
		Index:         1,
		Flag:          SighashAll,
		PrevoutScript: script,
		PrevoutValue:  120_000,
	})
	var indexErr *InputIndexError
	require.ErrorAs(t, err, &indexErr)
	require.Equal(t, 1, indexErr.Index)
	require.Equal(t, 1, indexErr.VinLen)
}
