package trading

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"tradegate/internal/host"
)

// 暂停时无论参数如何都返回 PAUSED，且余额不变。
func TestProperty_PausedGateBlocksEverything(t *testing.T) {
	f := newFixture(t)
	if err := f.client.SetPause(f.ctx, f.admin, true); err != nil {
		t.Fatalf("pause: %v", err)
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("paused trade and trade_and_reward return PAUSED without effects", prop.ForAll(
		func(fee, rewardAmount int64, withReward bool) bool {
			var err error
			if withReward {
				err = f.client.TradeAndReward(f.ctx, f.rewardReq(host.Amount(fee), host.Amount(rewardAmount)))
			} else {
				err = f.client.Trade(f.ctx, f.tradeReq(host.Amount(fee)))
			}
			code, ok := CodeOf(err)
			if !ok || code != uint32(CodePaused) {
				return false
			}
			return f.balance(t, f.trader) == 1000 && f.balance(t, f.recipient) == 0
		},
		gen.Int64Range(-10, 5000),
		gen.Int64Range(-10, 100),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// 未调用 SetPause 时多次读取结果一致。
func TestProperty_IsPausedIsIdempotent(t *testing.T) {
	f := newFixture(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("repeated reads agree", prop.ForAll(
		func(state bool, reads int) bool {
			if err := f.client.SetPause(f.ctx, f.admin, state); err != nil {
				return false
			}
			for i := 0; i < reads; i++ {
				paused, err := f.client.IsPaused(f.ctx)
				if err != nil || paused != state {
					return false
				}
			}
			return true
		},
		gen.Bool(),
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t)
}
