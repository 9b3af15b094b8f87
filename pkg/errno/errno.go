package errno

import "errors"

// Errno defines the error code logic
type Errno struct {
	Code    int
	Message string
}

func (e Errno) Error() string {
	return e.Message
}

// WithMessage 复制一份错误码并替换提示信息, Code 不变
func (e Errno) WithMessage(msg string) Errno {
	return Errno{Code: e.Code, Message: msg}
}

// Is 按 Code 比较, 这样 WithMessage 之后仍能被 errors.Is 识别
func (e Errno) Is(target error) bool {
	var t Errno
	switch typed := target.(type) {
	case Errno:
		t = typed
	case *Errno:
		if typed == nil {
			return false
		}
		t = *typed
	default:
		return false
	}
	return e.Code == t.Code
}

// Decode tries to convert an error to Errno
// 会沿着 %w 包装链查找, 找不到时按内部错误处理
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	var pe *Errno
	if errors.As(err, &pe) && pe != nil {
		return pe.Code, pe.Message
	}
	var e Errno
	if errors.As(err, &e) {
		return e.Code, e.Message
	}
	return InternalServerError.Code, err.Error()
}

// Common Errors
var (
	OK                  = Errno{Code: 0, Message: "Success"}
	InternalServerError = Errno{Code: 10001, Message: "Internal server error"}
	ErrBind             = Errno{Code: 10002, Message: "Error occurred while binding the request body to the struct"}
	ErrTokenInvalid     = Errno{Code: 10003, Message: "Token invalid"}
	ErrDatabase         = Errno{Code: 10004, Message: "Database error"}
	ErrNotFound         = Errno{Code: 10005, Message: "Record not found"}
)

// Dispatch Errors (30000+)
var (
	ErrCapabilityUnsupported = Errno{Code: 30001, Message: "Wallet does not support the required capability"}
	ErrWalletRejected        = Errno{Code: 30002, Message: "User rejected the request in wallet"}
	ErrPendingRequest        = Errno{Code: 30003, Message: "A wallet request is already pending"}
	ErrTransactionFailed     = Errno{Code: 30004, Message: "Transaction failed on chain"}
	ErrTransactionTimeout    = Errno{Code: 30005, Message: "Transaction status unknown after polling"}
	ErrConfirmationRejected  = Errno{Code: 30006, Message: "Backend rejected the transaction confirmation"}
	ErrWalletRPC             = Errno{Code: 30007, Message: "Wallet RPC error"}
	ErrMissingReceipt        = Errno{Code: 30008, Message: "Confirmed bundle has no receipt"}
	ErrMissingStandardTx     = Errno{Code: 30009, Message: "Descriptor has no standard transaction"}
	ErrDispatchInFlight      = Errno{Code: 30010, Message: "Dispatch already in progress for this transaction"}
	ErrBackend               = Errno{Code: 30011, Message: "Backend request failed"}
	ErrInvalidDescriptor     = Errno{Code: 30012, Message: "Invalid transaction descriptor"}
)
