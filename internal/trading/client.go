package trading

import (
	"context"
	"slices"

	"tradegate/internal/host"
)

// Client 为交易合约的对外调用面，每个方法对应一次独立的顶层调用。
// 默认以操作发起方作为签名者，As 可覆盖。
type Client struct {
	host     *host.Host
	contract *Contract
	ref      host.ComponentRef

	signers      []host.Identity
	authorizeAll bool
}

// NewClient 创建指向 ref 处合约实例的客户端。
func NewClient(h *host.Host, contract *Contract, ref host.ComponentRef) *Client {
	return &Client{host: h, contract: contract, ref: ref}
}

// Ref 返回合约实例地址。
func (c *Client) Ref() host.ComponentRef {
	return c.ref
}

// As 返回以指定身份签名的客户端副本。
func (c *Client) As(signers ...host.Identity) *Client {
	clone := *c
	clone.signers = slices.Clone(signers)
	clone.authorizeAll = false
	return &clone
}

// WithAllAuths 返回视所有身份均已授权的客户端副本。
func (c *Client) WithAllAuths() *Client {
	clone := *c
	clone.authorizeAll = true
	return &clone
}

func (c *Client) call(operation string, actor host.Identity) host.Call {
	signers := c.signers
	if signers == nil && actor != "" {
		signers = []host.Identity{actor}
	}
	return host.Call{
		Operation:    operation,
		Contract:     c.ref,
		Signers:      signers,
		AuthorizeAll: c.authorizeAll,
	}
}

// Initialize 设置管理员。
func (c *Client) Initialize(ctx context.Context, admin host.Identity) error {
	_, err := c.host.Invoke(ctx, c.call("initialize", admin), func(env *host.Env) error {
		return c.contract.Initialize(env, admin)
	})
	return err
}

// IsPaused 查询暂停状态。
func (c *Client) IsPaused(ctx context.Context) (bool, error) {
	var paused bool
	_, err := c.host.Invoke(ctx, c.call("is_paused", ""), func(env *host.Env) error {
		var err error
		paused, err = c.contract.IsPaused(env)
		return err
	})
	return paused, err
}

// SetPause 以 caller 身份切换暂停状态。
func (c *Client) SetPause(ctx context.Context, caller host.Identity, value bool) error {
	_, err := c.host.Invoke(ctx, c.call("set_pause", caller), func(env *host.Env) error {
		return c.contract.SetPause(env, caller, value)
	})
	return err
}

// Trade 执行手续费划转。
func (c *Client) Trade(ctx context.Context, req TradeRequest) error {
	_, err := c.host.Invoke(ctx, c.call("trade", req.Trader), func(env *host.Env) error {
		return c.contract.Trade(env, req)
	})
	return err
}

// TradeAndReward 执行手续费划转与奖励调用，要么全部生效，要么全部不生效。
func (c *Client) TradeAndReward(ctx context.Context, req TradeAndRewardRequest) error {
	_, err := c.host.Invoke(ctx, c.call("trade_and_reward", req.Trader), func(env *host.Env) error {
		return c.contract.TradeAndReward(env, req)
	})
	return err
}
