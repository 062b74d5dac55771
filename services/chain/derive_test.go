package chain

import (
	"testing"

	"github.com/btcsuite/btcutil/hdkeychain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// BIP32 test vector 1 keys.
const (
	testXPub = "xpub661MyMwAqRbcFtXgS5sYJABqqG9YLmC4Q1Rdap9gSE8NqtwybGhePY2gZ29ESFjqJoCu1Rupje8YtGqsefD265TMg7usUDFdp6W1EGMcet8"
	testXPrv = "xprv9s21ZrQH143K3QTDL4LXw2F7HEK3wJUD2nW2nRk4stbPy6cq3jPPqjiChkVvvNKmPGJxWUtg6LnF5kejMRNNU3TGtRBeJgk33yuGBxrMPHi"
)

func TestDeriveIsDeterministic(t *testing.T) {
	first, err := DeriveAddressAtIndex(testXPub, 5)
	require.NoError(t, err)
	second, err := DeriveAddressAtIndex(testXPub, 5)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDeriveDistinctIndices(t *testing.T) {
	seen := map[common.Address]uint64{}
	for i := uint64(0); i < 25; i++ {
		addr, err := DeriveAddressAtIndex(testXPub, i)
		require.NoError(t, err)
		prev, dup := seen[addr]
		assert.False(t, dup, "index %d derived the same address as index %d", i, prev)
		seen[addr] = i
	}
}

func TestDeriveRejectsPrivateKey(t *testing.T) {
	_, err := DeriveAddressAtIndex(testXPrv, 0)
	assert.Error(t, err)
}

func TestDeriveRejectsEmptyXPub(t *testing.T) {
	_, err := DeriveAddressAtIndex("", 0)
	assert.Error(t, err)
}

func TestDeriveRejectsHardenedRange(t *testing.T) {
	_, err := DeriveAddressAtIndex(testXPub, uint64(hdkeychain.HardenedKeyStart))
	assert.Error(t, err)
}
