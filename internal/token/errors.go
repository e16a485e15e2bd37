package token

// Error 为资产组件的类型化错误，带数字错误码。
type Error struct {
	code uint32
	msg  string
}

func (e *Error) Error() string {
	return e.msg
}

// ErrorCode 返回数字错误码。
func (e *Error) ErrorCode() uint32 {
	return e.code
}

var (
	ErrInsufficientBalance = &Error{code: 101, msg: "token: 余额不足"}
	ErrInvalidAmount       = &Error{code: 102, msg: "token: 数量必须为正"}
	ErrUnknownAsset        = &Error{code: 103, msg: "token: 资产不存在"}
	ErrNotAuthorized       = &Error{code: 104, msg: "token: 未获授权"}
	ErrOverflow            = &Error{code: 105, msg: "token: 余额溢出"}
)
