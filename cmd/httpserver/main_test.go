package main

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnerFrom(t *testing.T) {
	// Well-known development key of the first hardhat account.
	const key = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	want := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

	owner, err := ownerFrom("", key)
	require.NoError(t, err)
	assert.Equal(t, want, owner)

	owner, err = ownerFrom(want.Hex(), "")
	require.NoError(t, err)
	assert.Equal(t, want, owner)

	_, err = ownerFrom(want.Hex(), key)
	assert.Error(t, err)

	_, err = ownerFrom("", "")
	assert.Error(t, err)

	_, err = ownerFrom("not-an-address", "")
	assert.Error(t, err)
}
