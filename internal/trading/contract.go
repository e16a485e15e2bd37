package trading

import (
	"go.uber.org/zap"

	"tradegate/internal/host"
	"tradegate/internal/safecall"
)

// Invoker 为跨组件调用的故障隔离边界。
type Invoker interface {
	Invoke(env *host.Env, target host.ComponentRef, entryPoint string, args ...any) safecall.Outcome
}

// Contract 编排暂停检查、手续费划转与奖励调用。
// 任何失败都只通过返回错误表达，由宿主回滚整个调用；这里从不发起补偿划转。
type Contract struct {
	gate    *PauseGate
	fees    *FeeTransferExecutor
	invoker Invoker
	logger  *zap.Logger
}

// NewContract 创建交易合约。
func NewContract(assets AssetLedger, invoker Invoker, logger *zap.Logger) *Contract {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Contract{
		gate:    &PauseGate{},
		fees:    NewFeeTransferExecutor(assets),
		invoker: invoker,
		logger:  logger,
	}
}

// Initialize 设置管理员。
func (c *Contract) Initialize(env *host.Env, admin host.Identity) error {
	if err := c.gate.Initialize(env, admin); err != nil {
		return err
	}
	c.logger.Info("交易合约已初始化",
		zap.String("contract", string(env.Current())),
		zap.String("admin", string(admin)),
	)
	return nil
}

// IsPaused 返回暂停状态。
func (c *Contract) IsPaused(env *host.Env) (bool, error) {
	return c.gate.IsPaused(env)
}

// SetPause 切换暂停状态。
func (c *Contract) SetPause(env *host.Env, caller host.Identity, value bool) error {
	if err := c.gate.SetPause(env, caller, value); err != nil {
		return err
	}
	c.logger.Info("暂停状态已更新",
		zap.String("contract", string(env.Current())),
		zap.Bool("paused", value),
	)
	return nil
}

// Trade 仅执行手续费划转，从不触及奖励调用。
func (c *Contract) Trade(env *host.Env, req TradeRequest) error {
	p := begin(env)

	if err := c.gate.RequirePassable(env); err != nil {
		return p.abort(err)
	}
	p.advance(StageGateChecked)

	if err := c.fees.Transfer(env, req.feeTransfer()); err != nil {
		return p.abort(err)
	}
	p.advance(StageFeeApplied)

	p.advance(StageCommitted)
	return nil
}

// TradeAndReward 执行手续费划转后调用奖励组件。奖励调用异常终止时返回 CALL_FAILED，
// 宿主据此连同已完成的划转一并回滚。
func (c *Contract) TradeAndReward(env *host.Env, req TradeAndRewardRequest) error {
	p := begin(env)

	if err := c.gate.RequirePassable(env); err != nil {
		return p.abort(err)
	}
	p.advance(StageGateChecked)

	if err := c.fees.Transfer(env, req.feeTransfer()); err != nil {
		return p.abort(err)
	}
	p.advance(StageFeeApplied)

	reward := req.reward()
	outcome := c.invoker.Invoke(env, reward.Component, RewardEntryPoint, reward.Beneficiary, reward.Amount)
	p.advance(StageRewardInvoked)

	if !outcome.Succeeded() {
		c.logger.Warn("奖励调用失败，整笔交易将回滚",
			zap.String("invocation_id", env.InvocationID()),
			zap.String("reward_component", string(reward.Component)),
			zap.Uint32("code", uint32(outcome.Code)),
		)
		return p.abort(&Error{Code: Code(outcome.Code), Op: "trade_and_reward", Stage: StageRewardInvoked})
	}
	if outcome.CalleeErr != nil {
		c.logger.Warn("奖励组件返回错误，按正常结束处理",
			zap.String("invocation_id", env.InvocationID()),
			zap.String("reward_component", string(reward.Component)),
			zap.Error(outcome.CalleeErr),
		)
	}

	p.advance(StageCommitted)
	return nil
}

// progress 记录状态机位置并写入调用回执。
type progress struct {
	env   *host.Env
	stage Stage
}

func begin(env *host.Env) *progress {
	p := &progress{env: env}
	p.advance(StageStart)
	return p
}

func (p *progress) advance(stage Stage) {
	p.stage = stage
	p.env.Annotate("stage", string(stage))
}

func (p *progress) abort(err error) error {
	p.env.Annotate("aborted_at", string(p.stage))
	p.env.Annotate("stage", string(StageAborted))
	return err
}
