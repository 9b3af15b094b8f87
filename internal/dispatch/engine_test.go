package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"dispatch-core/internal/backend"
	"dispatch-core/internal/wallet"
	"dispatch-core/pkg/errno"
	"dispatch-core/pkg/wallet/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transition struct{ from, to State }

func newTestEngine(w *fakeWallet, sender *fakeSender, c *fakeConfirmer, s *recordingSleeper) (*Engine, *[]transition) {
	var seen []transition
	e := New(w, sender, c, Options{
		PollMaxAttempts: 5,
		PollInterval:    time.Second,
		Sleeper:         s.sleep,
		OnTransition: func(from, to State) {
			seen = append(seen, transition{from, to})
		},
	})
	return e, &seen
}

func TestEngineSellBatchPath(t *testing.T) {
	w := newFakeWallet()
	w.caps = sponsoredCaps(8453)
	w.sendCallsResult = []byte(`{"id":"0xbundle"}`)
	w.statuses = []types.BundleState{types.BundlePending, types.BundlePending, types.BundleConfirmed}
	w.receipts = []types.Receipt{{TransactionHash: "0xabc"}}
	c := &fakeConfirmer{resp: &backend.ConfirmResponse{ID: 42}}
	s := &recordingSleeper{}

	e, seen := newTestEngine(w, &fakeSender{}, c, s)
	res, err := e.Run(context.Background(), fullDescriptor(), w.address().Hex())
	require.NoError(t, err)

	assert.Equal(t, []State{StateIdle, StateProbing, StateDispatching, StatePolling, StateConfirming, StateDone}, res.Run.States)
	assert.Equal(t, StateDone, res.State())
	assert.Len(t, *seen, 5)
	assert.Equal(t, transition{StateIdle, StateProbing}, (*seen)[0])

	assert.Equal(t, int64(42), res.ConfirmedID)
	assert.Equal(t, "0xabc", res.Outcome.TxHash)
	assert.Equal(t, 3, res.Run.PollAttempts)
	assert.Len(t, s.durations, 2)

	assert.Equal(t, 1, w.count("wallet_sendCalls"))
	require.Len(t, c.calls, 1)
	assert.Equal(t, types.KindSell, c.calls[0].kind)
	assert.Equal(t, int64(42), c.calls[0].id)
	assert.Equal(t, "0xabc", c.calls[0].req.TxHash)
}

func TestEngineDelegationSkipsPolling(t *testing.T) {
	w := newFakeWallet()
	c := &fakeConfirmer{resp: &backend.ConfirmResponse{ID: 5}}
	d := fullDescriptor()
	d.Kind = types.KindSwap

	e, _ := newTestEngine(w, &fakeSender{}, c, &recordingSleeper{})
	res, err := e.Run(context.Background(), d, w.address().Hex())
	require.NoError(t, err)

	assert.Equal(t, []State{StateIdle, StateProbing, StateDispatching, StateConfirming, StateDone}, res.Run.States)
	assert.Equal(t, []Path{PathBatch}, res.Skipped)
	assert.Equal(t, PathDelegation, res.Outcome.Path)
	assert.Equal(t, 0, w.count("wallet_getCallsStatus"))

	require.Len(t, c.calls, 1)
	assert.Equal(t, types.KindSwap, c.calls[0].kind)
	assert.NotNil(t, c.calls[0].req.Authorization)
}

func TestEngineTimeoutDoesNotConfirm(t *testing.T) {
	w := newFakeWallet()
	w.caps = sponsoredCaps(8453)
	w.sendCallsResult = []byte(`"0xbundle"`)
	w.statuses = []types.BundleState{types.BundlePending}
	c := &fakeConfirmer{resp: &backend.ConfirmResponse{ID: 1}}

	e, _ := newTestEngine(w, &fakeSender{}, c, &recordingSleeper{})
	res, err := e.Run(context.Background(), fullDescriptor(), "0xabc")

	assert.True(t, errors.Is(err, errno.ErrTransactionTimeout))
	assert.Equal(t, StateFailed, res.State())
	assert.Equal(t, StatePolling, res.Run.States[len(res.Run.States)-2])
	assert.Equal(t, 5, res.Run.PollAttempts)
	assert.Empty(t, c.calls)
}

func TestEngineRejectionFailsInDispatching(t *testing.T) {
	w := newFakeWallet()
	w.caps = sponsoredCaps(8453)
	w.sendCallsErr = wallet.NewRPCError(wallet.CodeUserRejected, "User rejected")
	sender := &fakeSender{hash: "0xstd"}
	c := &fakeConfirmer{resp: &backend.ConfirmResponse{ID: 1}}

	e, _ := newTestEngine(w, sender, c, &recordingSleeper{})
	res, err := e.Run(context.Background(), fullDescriptor(), "0xabc")

	assert.True(t, errors.Is(err, errno.ErrWalletRejected))
	assert.Equal(t, []State{StateIdle, StateProbing, StateDispatching, StateFailed}, res.Run.States)
	assert.Empty(t, sender.txs)
	assert.Empty(t, c.calls)
}

func TestEngineConfirmationRejected(t *testing.T) {
	w := newFakeWallet()
	d := fullDescriptor()
	d.BatchCall = nil
	d.Delegation = nil
	c := &fakeConfirmer{err: &backend.APIError{StatusCode: 400, Message: "invalid tx hash"}}

	e, _ := newTestEngine(w, &fakeSender{hash: "0xstd"}, c, &recordingSleeper{})
	res, err := e.Run(context.Background(), d, "0xabc")

	assert.True(t, errors.Is(err, errno.ErrConfirmationRejected))
	assert.Equal(t, StateFailed, res.State())
	assert.Equal(t, "0xstd", res.Outcome.TxHash)
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		ok       bool
	}{
		{StateIdle, StateProbing, true},
		{StateIdle, StateDispatching, false},
		{StateProbing, StateDispatching, true},
		{StateDispatching, StatePolling, true},
		{StateDispatching, StateConfirming, true},
		{StatePolling, StateDispatching, false},
		{StatePolling, StateConfirming, true},
		{StateConfirming, StateDone, true},
		{StateConfirming, StateFailed, true},
		{StateDone, StateFailed, false},
		{StateFailed, StateProbing, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
	assert.True(t, StateDone.Terminal())
	assert.False(t, StatePolling.Terminal())
}
