package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainIDHex(t *testing.T) {
	tests := []struct {
		chainID uint64
		want    string
	}{
		{1, "0x1"},
		{10, "0xa"},
		{137, "0x89"},
		{8453, "0x2105"},
		{42161, "0xa4b1"},
		{56, "0x38"},
		{100, "0x64"},
		{11155111, "0xaa36a7"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, ChainIDHex(tt.chainID))
		})
	}
}

func TestCallNormalize(t *testing.T) {
	c := Call{To: "0x00000000000000000000000000000000000000a1"}.Normalize()
	assert.Equal(t, "0x", c.Data)
	assert.Equal(t, "0x0", c.Value)

	// 已有值不覆盖
	c = Call{To: "0xa1", Data: "0xdeadbeef", Value: "0x10"}.Normalize()
	assert.Equal(t, "0xdeadbeef", c.Data)
	assert.Equal(t, "0x10", c.Value)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("SELL")
	require.NoError(t, err)
	assert.Equal(t, KindSell, k)

	k, err = ParseKind(" swap ")
	require.NoError(t, err)
	assert.Equal(t, KindSwap, k)

	_, err = ParseKind("buy")
	assert.Error(t, err)
}

func TestWalletCapabilities(t *testing.T) {
	caps := WalletCapabilities{
		"0x2105": {AtomicBatchSupported: true, PaymasterServiceSupported: true},
		"0x1":    {AtomicBatchSupported: true},
	}

	assert.True(t, caps.SupportsSponsoredBatch(8453))
	assert.False(t, caps.SupportsSponsoredBatch(1))
	assert.False(t, caps.SupportsSponsoredBatch(137))

	var empty WalletCapabilities
	assert.False(t, empty.SupportsSponsoredBatch(8453))
}

func TestBundleStateTerminal(t *testing.T) {
	assert.False(t, BundlePending.Terminal())
	assert.True(t, BundleConfirmed.Terminal())
	assert.True(t, BundleFailed.Terminal())
}
