package dispatch

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"sync"
	"time"

	"dispatch-core/internal/backend"
	"dispatch-core/pkg/wallet/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// fakeWallet 记录每个方法的调用, 按预设返回
type fakeWallet struct {
	mu sync.Mutex

	caps    types.WalletCapabilities
	capsErr error

	sendCallsResult json.RawMessage
	sendCallsErr    error
	sendCallsReqs   []*types.SendCallsRequest

	statuses  []types.BundleState
	receipts  []types.Receipt
	statusErr error

	key     *ecdsa.PrivateKey
	vOffset byte
	signErr error

	calls []string
}

func newFakeWallet() *fakeWallet {
	key, _ := crypto.GenerateKey()
	return &fakeWallet{key: key, vOffset: 27}
}

func (w *fakeWallet) record(method string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, method)
}

func (w *fakeWallet) count(method string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, c := range w.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (w *fakeWallet) address() common.Address {
	return crypto.PubkeyToAddress(w.key.PublicKey)
}

func (w *fakeWallet) GetCapabilities(ctx context.Context, account string) (types.WalletCapabilities, error) {
	w.record("wallet_getCapabilities")
	return w.caps, w.capsErr
}

func (w *fakeWallet) SendCalls(ctx context.Context, req *types.SendCallsRequest) (json.RawMessage, error) {
	w.record("wallet_sendCalls")
	w.sendCallsReqs = append(w.sendCallsReqs, req)
	if w.sendCallsErr != nil {
		return nil, w.sendCallsErr
	}
	return w.sendCallsResult, nil
}

func (w *fakeWallet) GetCallsStatus(ctx context.Context, bundleID string) (*types.BundleStatus, error) {
	n := w.count("wallet_getCallsStatus")
	w.record("wallet_getCallsStatus")
	if w.statusErr != nil {
		return nil, w.statusErr
	}
	state := types.BundlePending
	if n < len(w.statuses) {
		state = w.statuses[n]
	} else if len(w.statuses) > 0 {
		state = w.statuses[len(w.statuses)-1]
	}
	st := &types.BundleStatus{State: state}
	if state == types.BundleConfirmed {
		st.Receipts = w.receipts
	}
	return st, nil
}

func (w *fakeWallet) SignDigest(ctx context.Context, account string, digest common.Hash) ([]byte, error) {
	w.record("eth_sign")
	if w.signErr != nil {
		return nil, w.signErr
	}
	sig, err := crypto.Sign(digest[:], w.key)
	if err != nil {
		return nil, err
	}
	sig[64] += w.vOffset
	return sig, nil
}

type fakeSender struct {
	hash string
	err  error
	txs  []*types.UnsignedTransaction
}

func (s *fakeSender) SendTransaction(ctx context.Context, account string, tx *types.UnsignedTransaction) (string, error) {
	s.txs = append(s.txs, tx)
	return s.hash, s.err
}

type confirmCall struct {
	kind types.Kind
	id   int64
	req  *backend.ConfirmRequest
}

type fakeConfirmer struct {
	resp  *backend.ConfirmResponse
	err   error
	calls []confirmCall
}

func (c *fakeConfirmer) ConfirmSell(ctx context.Context, id int64, req *backend.ConfirmRequest) (*backend.ConfirmResponse, error) {
	c.calls = append(c.calls, confirmCall{types.KindSell, id, req})
	return c.resp, c.err
}

func (c *fakeConfirmer) ConfirmSwap(ctx context.Context, id int64, req *backend.ConfirmRequest) (*backend.ConfirmResponse, error) {
	c.calls = append(c.calls, confirmCall{types.KindSwap, id, req})
	return c.resp, c.err
}

// recordingSleeper 不真正等待, 只记录次数
type recordingSleeper struct {
	durations []time.Duration
	err       error
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.durations = append(s.durations, d)
	return s.err
}

func sponsoredCaps(chainID uint64) types.WalletCapabilities {
	return types.WalletCapabilities{
		types.ChainIDHex(chainID): {AtomicBatchSupported: true, PaymasterServiceSupported: true},
	}
}
