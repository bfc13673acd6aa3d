package wallet

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy source exhausted")
}

func TestGenerateCount(t *testing.T) {
	for _, count := range []int{0, 1, 5, 32} {
		ids, err := Generate(count)
		require.NoError(t, err)
		assert.Len(t, ids, count)
	}
}

func TestGenerateNegativeCount(t *testing.T) {
	_, err := Generate(-1)
	assert.ErrorIs(t, err, ErrInvalidCount)
}

func TestGenerateUnique(t *testing.T) {
	ids, err := Generate(64)
	require.NoError(t, err)

	secrets := make(map[string]struct{}, len(ids))
	addrs := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		secrets[id.PrivateKey] = struct{}{}
		addrs[id.Address] = struct{}{}
	}
	assert.Len(t, secrets, len(ids), "private keys must not repeat")
	assert.Len(t, addrs, len(ids), "addresses must not repeat")
}

func TestGenerateEntropyFailure(t *testing.T) {
	ids, err := Generator{Rand: failingReader{}}.Generate(3)
	require.Error(t, err)
	assert.Nil(t, ids, "no partial wallet list on failure")
}

func TestIdentityFormat(t *testing.T) {
	ids, err := Generate(4)
	require.NoError(t, err)

	for _, id := range ids {
		require.True(t, strings.HasPrefix(id.PrivateKey, SecretPrefix))
		assert.Len(t, id.PrivateKey, len(SecretPrefix)+2*PrivateKeySize)
		assert.Equal(t, strings.ToLower(id.PrivateKey), id.PrivateKey)

		require.True(t, common.IsHexAddress(id.Address), id.Address)
		assert.Equal(t, common.HexToAddress(id.Address).Hex(), id.Address, "address carries the EIP-55 checksum")
	}
}

func TestAddressMatchesGoEthereum(t *testing.T) {
	ids, err := Generate(8)
	require.NoError(t, err)

	for _, id := range ids {
		raw, err := hexutil.Decode(id.PrivateKey)
		require.NoError(t, err)
		key, err := ethcrypto.ToECDSA(raw)
		require.NoError(t, err)
		assert.Equal(t, ethcrypto.PubkeyToAddress(key.PublicKey).Hex(), id.Address)
	}
}

func TestAddressFromSecretDeterministic(t *testing.T) {
	ids, err := Generate(4)
	require.NoError(t, err)

	for _, id := range ids {
		addr, err := AddressFromSecret(id.PrivateKey)
		require.NoError(t, err)
		assert.Equal(t, id.Address, addr)
	}

	// Private key 1 is the generator point.
	addr, err := AddressFromSecret("0x" + strings.Repeat("0", 63) + "1")
	require.NoError(t, err)
	assert.Equal(t, "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf", addr)
}

func TestAddressFromSecretInvalid(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{"empty", ""},
		{"no prefix", strings.Repeat("ab", 32)},
		{"bare prefix", "0x"},
		{"short", "0x1234"},
		{"not hex", "0x" + strings.Repeat("zz", 32)},
		{"zero", "0x" + strings.Repeat("00", 32)},
		{"above curve order", "0x" + strings.Repeat("ff", 32)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AddressFromSecret(tt.secret)
			assert.ErrorIs(t, err, ErrInvalidSecret)
		})
	}
}

func TestEIP55Vectors(t *testing.T) {
	vectors := []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	}
	for _, want := range vectors {
		assert.Equal(t, want, eip55Checksum(strings.ToLower(want[2:])))
	}
}

func TestPeerID(t *testing.T) {
	ids, err := Generate(2)
	require.NoError(t, err)

	first, err := ids[0].PeerID()
	require.NoError(t, err)
	again, err := ids[0].PeerID()
	require.NoError(t, err)
	second, err := ids[1].PeerID()
	require.NoError(t, err)

	assert.Equal(t, first, again)
	assert.NotEqual(t, first, second)
	// secp256k1 keys are inlined into the peer ID.
	assert.True(t, strings.HasPrefix(first.String(), "16Uiu2HA"), first.String())

	_, err = Identity{PrivateKey: "nope"}.PeerID()
	assert.ErrorIs(t, err, ErrInvalidSecret)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")

	ids, err := Generate(3)
	require.NoError(t, err)
	require.NoError(t, Save(path, ids))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n    {\n        \"address\": ")
	assert.Contains(t, string(data), "\"private_key\": \"0x")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ids, loaded)

	// Overwrites without asking.
	require.NoError(t, Save(path, ids[:1]))
	loaded, err = Load(path)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestSaveEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	require.NoError(t, Save(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestSaveUnwritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "wallets.json")
	assert.Error(t, Save(path, nil))
}
