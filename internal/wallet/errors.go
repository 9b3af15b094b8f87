package wallet

import (
	"context"
	"errors"
	"fmt"

	"dispatch-core/pkg/errno"

	"github.com/ethereum/go-ethereum/rpc"
)

// 钱包侧常见错误码 (EIP-1193 / EIP-5792 / JSON-RPC)
const (
	CodeUserRejected       = 4001
	CodeUnauthorized       = 4100
	CodeUnsupportedMethod  = 4200
	CodeMethodNotFound     = -32601
	CodeRequestPending     = -32002
	CodeUnsupportedNonAtom = 5700
)

// RPCError 钱包返回的错误, 保留原始 code / message
// Unwrap 到错误分类, 所以 errors.Is(err, errno.ErrWalletRejected) 和 errors.As(err, &rpcErr) 都可用
type RPCError struct {
	Code    int
	Message string
	Data    interface{}
	kind    errno.Errno
}

func NewRPCError(code int, message string) *RPCError {
	return &RPCError{Code: code, Message: message, kind: classify(code)}
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("wallet error %d: %s", e.Code, e.Message)
}

func (e *RPCError) Unwrap() error {
	return e.kind
}

// Kind 错误分类
func (e *RPCError) Kind() errno.Errno {
	return e.kind
}

func classify(code int) errno.Errno {
	switch code {
	case CodeUserRejected:
		return errno.ErrWalletRejected
	case CodeRequestPending:
		return errno.ErrPendingRequest
	case CodeMethodNotFound, CodeUnsupportedMethod, CodeUnsupportedNonAtom:
		return errno.ErrCapabilityUnsupported
	default:
		return errno.ErrWalletRPC
	}
}

// translate 把 go-ethereum rpc 层的错误转换成 *RPCError
// 只在钱包适配器边界调用一次
func translate(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var already *RPCError
	if errors.As(err, &already) {
		return already
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		out := NewRPCError(rpcErr.ErrorCode(), rpcErr.Error())
		var dataErr rpc.DataError
		if errors.As(err, &dataErr) {
			out.Data = dataErr.ErrorData()
		}
		return out
	}

	// 传输层错误 (连接失败, HTTP 非 2xx 等)
	return fmt.Errorf("%w: %v", errno.ErrWalletRPC, err)
}
