package host

import (
	"fmt"

	"github.com/google/uuid"
)

// Identity 表示账户或调用方身份。
type Identity string

// ComponentRef 表示已部署组件的地址。
type ComponentRef string

// Amount 为资产数量，单位为资产最小精度。
type Amount int64

// NewIdentity 生成一个随机身份。
func NewIdentity() Identity {
	return Identity("acct_" + uuid.NewString())
}

// NewComponentRef 生成一个随机组件地址。
func NewComponentRef() ComponentRef {
	return ComponentRef("comp_" + uuid.NewString())
}

// Args 为跨组件调用参数。类型不符时访问器会 panic，与被调方遇到非法输入的异常终止一致。
type Args []any

// Identity 读取第 i 个参数为 Identity。
func (a Args) Identity(i int) Identity {
	switch v := a.at(i).(type) {
	case Identity:
		return v
	case string:
		return Identity(v)
	default:
		panic(fmt.Sprintf("host: 参数 %d 类型为 %T，期望 Identity", i, v))
	}
}

// Amount 读取第 i 个参数为 Amount。
func (a Args) Amount(i int) Amount {
	switch v := a.at(i).(type) {
	case Amount:
		return v
	case int64:
		return Amount(v)
	case int:
		return Amount(v)
	default:
		panic(fmt.Sprintf("host: 参数 %d 类型为 %T，期望 Amount", i, v))
	}
}

func (a Args) at(i int) any {
	if i < 0 || i >= len(a) {
		panic(fmt.Sprintf("host: 缺少参数 %d (共 %d 个)", i, len(a)))
	}
	return a[i]
}
