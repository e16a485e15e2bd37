package reward

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tradegate/internal/host"
	"tradegate/internal/store"
)

const (
	// EntryAddReward 为发放奖励的入口，参数 (beneficiary, amount)。
	EntryAddReward = "add_reward"
	// EntryRewardOf 为查询累计奖励的入口，参数 (beneficiary)。
	EntryRewardOf = "reward_of"
)

// Book 为原生奖励组件，奖励记录写在调用事务内。
// 非法输入直接 panic，而非返回类型化错误。
type Book struct {
	logger *zap.Logger
}

// NewBook 创建奖励组件并初始化表结构。
func NewBook(st *store.Store, logger *zap.Logger) (*Book, error) {
	if st == nil {
		return nil, errors.New("reward: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	err := st.Migrate("reward",
		`CREATE TABLE IF NOT EXISTS reward_grants (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			component TEXT NOT NULL,
			beneficiary TEXT NOT NULL,
			amount INTEGER NOT NULL,
			invocation_id TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_reward_grants_beneficiary ON reward_grants(component, beneficiary);`,
	)
	if err != nil {
		return nil, err
	}

	return &Book{logger: logger}, nil
}

// Invoke 实现 host.Component。
func (b *Book) Invoke(env *host.Env, entryPoint string, args host.Args) (any, error) {
	switch entryPoint {
	case EntryAddReward:
		return nil, b.addReward(env, args.Identity(0), args.Amount(1))
	case EntryRewardOf:
		return b.rewardOf(env, args.Identity(0))
	default:
		panic(fmt.Sprintf("reward: 未知入口 %q", entryPoint))
	}
}

func (b *Book) addReward(env *host.Env, beneficiary host.Identity, amount host.Amount) error {
	if amount <= 0 {
		panic("reward: 奖励数量无效")
	}

	if _, err := env.Tx().ExecContext(env.Context(),
		`INSERT INTO reward_grants (component, beneficiary, amount, invocation_id) VALUES (?, ?, ?, ?)`,
		string(env.Current()), string(beneficiary), int64(amount), env.InvocationID(),
	); err != nil {
		return fmt.Errorf("reward: 写入奖励失败: %w", err)
	}

	b.logger.Debug("奖励已记录",
		zap.String("component", string(env.Current())),
		zap.String("beneficiary", string(beneficiary)),
		zap.Int64("amount", int64(amount)),
	)
	return nil
}

func (b *Book) rewardOf(env *host.Env, beneficiary host.Identity) (host.Amount, error) {
	var total int64
	if err := env.Tx().QueryRowContext(env.Context(),
		`SELECT COALESCE(SUM(amount), 0) FROM reward_grants WHERE component = ? AND beneficiary = ?`,
		string(env.Current()), string(beneficiary),
	).Scan(&total); err != nil {
		return 0, fmt.Errorf("reward: 查询奖励失败: %w", err)
	}
	return host.Amount(total), nil
}

// Total 在独立调用中查询 ref 处奖励组件记录的累计奖励。
func (b *Book) Total(ctx context.Context, h *host.Host, ref host.ComponentRef, beneficiary host.Identity) (host.Amount, error) {
	var total host.Amount
	_, err := h.Invoke(ctx, host.Call{Operation: "reward.total", Contract: ref}, func(env *host.Env) error {
		var err error
		total, err = b.rewardOf(env, beneficiary)
		return err
	})
	return total, err
}
