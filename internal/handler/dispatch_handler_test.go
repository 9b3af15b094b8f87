package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"dispatch-core/internal/backend"
	"dispatch-core/internal/handler/response"
	"dispatch-core/internal/model"
	"dispatch-core/pkg/errno"
	"dispatch-core/pkg/wallet/types"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	rec     *model.DispatchRecord
	err     error
	kind    types.Kind
	req     *backend.PaymentInfoRequest
	account string
	caps    types.WalletCapabilities
}

func (f *fakeAPI) Dispatch(ctx context.Context, kind types.Kind, req *backend.PaymentInfoRequest, account string) (*model.DispatchRecord, error) {
	f.kind, f.req, f.account = kind, req, account
	return f.rec, f.err
}

func (f *fakeAPI) Capabilities(ctx context.Context, account string) types.WalletCapabilities {
	f.account = account
	return f.caps
}

func (f *fakeAPI) Latest(ctx context.Context, kind types.Kind, id int64) (*model.DispatchRecord, error) {
	f.kind = kind
	if f.rec == nil || f.rec.DescriptorID != id {
		return nil, errno.ErrNotFound
	}
	return f.rec, nil
}

func newTestRouter(api DispatchAPI) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewDispatchHandler(api)
	r := gin.New()
	r.GET("/health", HealthCheck)
	r.POST("/api/v1/dispatch", h.Dispatch)
	r.GET("/api/v1/capabilities/:account", h.Capabilities)
	r.GET("/api/v1/dispatches/:kind/:id", h.GetDispatch)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) response.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestDispatchEndpoint(t *testing.T) {
	api := &fakeAPI{rec: &model.DispatchRecord{Kind: "swap", DescriptorID: 7, State: "DONE", TxHash: "0xabc"}}
	r := newTestRouter(api)

	resp := doJSON(t, r, http.MethodPost, "/api/v1/dispatch", map[string]string{
		"kind": "SWAP", "account": "0xabc", "asset": "USDC", "blockchain": "base", "amount": "12.5", "target_asset": "ETH",
	})

	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, types.KindSwap, api.kind)
	assert.Equal(t, "0xabc", api.account)
	assert.Equal(t, "ETH", api.req.TargetAsset)
	assert.Equal(t, "12.5", api.req.Amount.String())

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "0xabc", data["tx_hash"])
}

func TestDispatchEndpointErrors(t *testing.T) {
	t.Run("bind", func(t *testing.T) {
		resp := doJSON(t, newTestRouter(&fakeAPI{}), http.MethodPost, "/api/v1/dispatch", map[string]string{"kind": "sell"})
		assert.Equal(t, errno.ErrBind.Code, resp.Code)
	})

	t.Run("unknown kind", func(t *testing.T) {
		resp := doJSON(t, newTestRouter(&fakeAPI{}), http.MethodPost, "/api/v1/dispatch", map[string]string{
			"kind": "buy", "account": "0xabc", "asset": "USDC", "blockchain": "base", "amount": "1",
		})
		assert.Equal(t, errno.ErrBind.Code, resp.Code)
	})

	t.Run("dispatch failed", func(t *testing.T) {
		api := &fakeAPI{
			rec: &model.DispatchRecord{State: "FAILED", ErrorCode: errno.ErrTransactionTimeout.Code},
			err: errno.ErrTransactionTimeout,
		}
		resp := doJSON(t, newTestRouter(api), http.MethodPost, "/api/v1/dispatch", map[string]string{
			"kind": "sell", "account": "0xabc", "asset": "USDC", "blockchain": "base", "amount": "1",
		})
		assert.Equal(t, errno.ErrTransactionTimeout.Code, resp.Code)
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "FAILED", data["state"])
	})
}

func TestCapabilitiesEndpoint(t *testing.T) {
	api := &fakeAPI{caps: types.WalletCapabilities{"0x2105": {AtomicBatchSupported: true}}}
	resp := doJSON(t, newTestRouter(api), http.MethodGet, "/api/v1/capabilities/0xdef", nil)

	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "0xdef", api.account)
	assert.Contains(t, resp.Data.(map[string]interface{}), "0x2105")
}

func TestGetDispatchEndpoint(t *testing.T) {
	api := &fakeAPI{rec: &model.DispatchRecord{Kind: "sell", DescriptorID: 42, State: "DONE"}}
	r := newTestRouter(api)

	resp := doJSON(t, r, http.MethodGet, "/api/v1/dispatches/sell/42", nil)
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, types.KindSell, api.kind)

	resp = doJSON(t, r, http.MethodGet, "/api/v1/dispatches/sell/43", nil)
	assert.Equal(t, errno.ErrNotFound.Code, resp.Code)

	resp = doJSON(t, r, http.MethodGet, "/api/v1/dispatches/sell/abc", nil)
	assert.Equal(t, errno.ErrBind.Code, resp.Code)

	resp = doJSON(t, r, http.MethodGet, "/api/v1/dispatches/buy/1", nil)
	assert.Equal(t, errno.ErrBind.Code, resp.Code)
}

func TestHealthCheck(t *testing.T) {
	resp := doJSON(t, newTestRouter(&fakeAPI{}), http.MethodGet, "/health", nil)
	assert.Equal(t, "UP", resp.Data.(map[string]interface{})["status"])
}
