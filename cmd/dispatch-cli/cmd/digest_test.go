package cmd

import (
	"bytes"
	"strings"
	"testing"

	"dispatch-core/internal/dispatch"
	"dispatch-core/pkg/wallet/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestCommand(t *testing.T) {
	contract := "0x63c0c19a282a1B52b07dD5a65b58948A07DAE32B"
	want, err := dispatch.Digest(&types.DelegationAuthorizationSpec{
		ContractAddress: common.HexToAddress(contract),
		ChainID:         8453,
		Nonce:           2,
	})
	require.NoError(t, err)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"digest", "--contract", contract, "--chain-id", "8453", "--nonce", "2"})
	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, want.Hex(), strings.TrimSpace(out.String()))
}

func TestDigestCommandRejectsBadAddress(t *testing.T) {
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"digest", "--contract", "not-an-address"})
	assert.Error(t, rootCmd.Execute())
}
