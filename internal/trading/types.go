package trading

import "tradegate/internal/host"

// RewardEntryPoint 为奖励组件的发放入口。
const RewardEntryPoint = "add_reward"

// Stage 为单次调用在编排状态机中的位置。
type Stage string

const (
	StageStart         Stage = "start"
	StageGateChecked   Stage = "gate_checked"
	StageFeeApplied    Stage = "fee_applied"
	StageRewardInvoked Stage = "reward_invoked"
	StageCommitted     Stage = "committed"
	StageAborted       Stage = "aborted"
)

// TransferRequest 描述一笔手续费划转，仅在单次调用内存在。
type TransferRequest struct {
	From   host.Identity
	To     host.Identity
	Asset  host.ComponentRef
	Amount host.Amount
}

// RewardRequest 描述一次奖励调用，数量合法性由奖励组件判定。
type RewardRequest struct {
	Component   host.ComponentRef
	Beneficiary host.Identity
	Amount      host.Amount
}

// TradeRequest 为 trade 的参数。
type TradeRequest struct {
	Trader    host.Identity
	Asset     host.ComponentRef
	Fee       host.Amount
	Recipient host.Identity
}

func (r TradeRequest) feeTransfer() TransferRequest {
	return TransferRequest{
		From:   r.Trader,
		To:     r.Recipient,
		Asset:  r.Asset,
		Amount: r.Fee,
	}
}

// TradeAndRewardRequest 为 tradeAndReward 的参数。
type TradeAndRewardRequest struct {
	TradeRequest
	RewardComponent host.ComponentRef
	RewardAmount    host.Amount
}

// reward 以成交接收方为受益人。
func (r TradeAndRewardRequest) reward() RewardRequest {
	return RewardRequest{
		Component:   r.RewardComponent,
		Beneficiary: r.Recipient,
		Amount:      r.RewardAmount,
	}
}
