package host

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthorized 表示调用未获得所需身份的授权。
	ErrNotAuthorized = errors.New("host: 身份未授权")
	// ErrComponentNotFound 表示目标组件未部署。
	ErrComponentNotFound = errors.New("host: 组件不存在")
	// ErrComponentExists 表示组件地址已被占用。
	ErrComponentExists = errors.New("host: 组件地址已存在")
)

// Coded 由携带数字错误码的错误实现。
type Coded interface {
	error
	ErrorCode() uint32
}

// ErrorCode 提取错误链上的数字错误码。
func ErrorCode(err error) (uint32, bool) {
	var coded Coded
	if errors.As(err, &coded) {
		return coded.ErrorCode(), true
	}
	return 0, false
}

// Fault 表示异常终止：panic、沙箱陷阱或资源耗尽，而非类型化错误返回。
type Fault struct {
	Component ComponentRef
	Reason    string
	Err       error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("host: 组件 %s 异常终止: %s: %v", f.Component, f.Reason, f.Err)
	}
	return fmt.Sprintf("host: 组件 %s 异常终止: %s", f.Component, f.Reason)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// IsFault 判断错误是否为异常终止。
func IsFault(err error) bool {
	var fault *Fault
	return errors.As(err, &fault)
}
