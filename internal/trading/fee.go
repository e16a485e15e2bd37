package trading

import (
	"tradegate/internal/host"
)

// AssetLedger 为资产组件的划转原语。失败以类型化错误返回，不会异常终止。
type AssetLedger interface {
	Transfer(env *host.Env, asset host.ComponentRef, from, to host.Identity, amount host.Amount) error
}

// FeeTransferExecutor 执行单笔手续费划转。
type FeeTransferExecutor struct {
	assets AssetLedger
}

// NewFeeTransferExecutor 创建划转执行器。
func NewFeeTransferExecutor(assets AssetLedger) *FeeTransferExecutor {
	return &FeeTransferExecutor{assets: assets}
}

// Transfer 校验数量后委托资产组件，资产组件的错误原样返回。
func (f *FeeTransferExecutor) Transfer(env *host.Env, req TransferRequest) error {
	if req.Amount <= 0 {
		return &Error{Code: CodeInvalidAmount, Op: "fee_transfer"}
	}
	return f.assets.Transfer(env, req.Asset, req.From, req.To, req.Amount)
}
