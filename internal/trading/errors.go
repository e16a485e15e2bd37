package trading

import (
	"fmt"

	"tradegate/internal/host"
	"tradegate/internal/safecall"
)

// Code 为交易合约对外暴露的错误码。
type Code uint32

const (
	CodeUnauthorized       Code = 1
	CodePaused             Code = 2
	CodeAlreadyInitialized Code = 3
	CodeNotInitialized     Code = 4
	CodeInvalidAmount      Code = 5
	CodeCallFailed              = Code(safecall.CallFailed)
)

func (c Code) String() string {
	switch c {
	case CodeUnauthorized:
		return "UNAUTHORIZED"
	case CodePaused:
		return "PAUSED"
	case CodeAlreadyInitialized:
		return "ALREADY_INITIALIZED"
	case CodeNotInitialized:
		return "NOT_INITIALIZED"
	case CodeInvalidAmount:
		return "INVALID_AMOUNT"
	case CodeCallFailed:
		return "CALL_FAILED"
	default:
		return fmt.Sprintf("CODE_%d", uint32(c))
	}
}

// Error 为合约级类型化错误。errors.Is 按错误码匹配。
type Error struct {
	Code  Code
	Op    string
	Stage Stage
	Err   error
}

var (
	ErrUnauthorized       = &Error{Code: CodeUnauthorized}
	ErrPaused             = &Error{Code: CodePaused}
	ErrAlreadyInitialized = &Error{Code: CodeAlreadyInitialized}
	ErrNotInitialized     = &Error{Code: CodeNotInitialized}
	ErrInvalidAmount      = &Error{Code: CodeInvalidAmount}
	ErrCallFailed         = &Error{Code: CodeCallFailed}
)

func (e *Error) Error() string {
	msg := "trading"
	if e.Op != "" {
		msg += ": " + e.Op
	}
	msg += ": " + e.Code.String()
	if e.Stage != "" {
		msg += " (stage=" + string(e.Stage) + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// ErrorCode 实现 host.Coded。
func (e *Error) ErrorCode() uint32 {
	return uint32(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 按错误码匹配。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// CodeOf 返回错误链上的数字错误码，包括资产组件透传的错误码。
func CodeOf(err error) (uint32, bool) {
	return host.ErrorCode(err)
}
