package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dispatch-core/pkg/errno"
	"dispatch-core/pkg/wallet/types"
)

// Client 交易所后端 REST 客户端
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("backend base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// APIError 后端返回非 2xx
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return errno.ErrBackend
}

// ConfirmRequest 确认请求体, 二选一
type ConfirmRequest struct {
	TxHash        string                     `json:"txHash,omitempty"`
	Authorization *types.SignedAuthorization `json:"authorization,omitempty"`
}

type ConfirmResponse struct {
	ID     int64  `json:"id"`
	Status string `json:"status,omitempty"`
}

// FetchPaymentInfo PUT /{sell|swap}/paymentInfos
// 描述的 Kind 由请求的端点决定
func (c *Client) FetchPaymentInfo(ctx context.Context, kind types.Kind, req *PaymentInfoRequest) (*types.TransactionDescriptor, error) {
	var info PaymentInfo
	if err := c.do(ctx, http.MethodPut, "/"+string(kind)+"/paymentInfos", req, &info); err != nil {
		return nil, err
	}
	return info.Descriptor(kind)
}

// ConfirmSell PUT /sell/paymentInfos/{id}/confirm
func (c *Client) ConfirmSell(ctx context.Context, id int64, req *ConfirmRequest) (*ConfirmResponse, error) {
	return c.confirm(ctx, types.KindSell, id, req)
}

// ConfirmSwap PUT /swap/paymentInfos/{id}/confirm
func (c *Client) ConfirmSwap(ctx context.Context, id int64, req *ConfirmRequest) (*ConfirmResponse, error) {
	return c.confirm(ctx, types.KindSwap, id, req)
}

func (c *Client) confirm(ctx context.Context, kind types.Kind, id int64, req *ConfirmRequest) (*ConfirmResponse, error) {
	var resp ConfirmResponse
	path := fmt.Sprintf("/%s/paymentInfos/%d/confirm", kind, id)
	if err := c.do(ctx, http.MethodPut, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errno.ErrBackend, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", errno.ErrBackend, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", errno.ErrBackend, path, err)
	}
	return nil
}

// errorMessage 优先取 {"message": "..."}
func errorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > 256 {
		msg = msg[:256]
	}
	return msg
}
