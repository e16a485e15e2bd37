package token

import (
	"context"

	"tradegate/internal/host"
)

// Client 以独立调用的方式访问资产组件。
type Client struct {
	host   *host.Host
	ledger *Ledger
}

// NewClient 创建资产客户端。
func NewClient(h *host.Host, ledger *Ledger) *Client {
	return &Client{host: h, ledger: ledger}
}

// Ledger 返回底层资产组件。
func (c *Client) Ledger() *Ledger {
	return c.ledger
}

// Issue 发行新资产。
func (c *Client) Issue(ctx context.Context, issuer host.Identity) (host.ComponentRef, error) {
	var asset host.ComponentRef
	_, err := c.host.Invoke(ctx, host.Call{Operation: "token.issue", Signers: []host.Identity{issuer}}, func(env *host.Env) error {
		var err error
		asset, err = c.ledger.Issue(env, issuer)
		return err
	})
	return asset, err
}

// Mint 以发行方身份增发。
func (c *Client) Mint(ctx context.Context, asset host.ComponentRef, issuer, to host.Identity, amount host.Amount) error {
	_, err := c.host.Invoke(ctx, host.Call{Operation: "token.mint", Contract: asset, Signers: []host.Identity{issuer}}, func(env *host.Env) error {
		return c.ledger.Mint(env, asset, to, amount)
	})
	return err
}

// Transfer 以 from 身份转账。
func (c *Client) Transfer(ctx context.Context, asset host.ComponentRef, from, to host.Identity, amount host.Amount) error {
	_, err := c.host.Invoke(ctx, host.Call{Operation: "token.transfer", Contract: asset, Signers: []host.Identity{from}}, func(env *host.Env) error {
		return c.ledger.Transfer(env, asset, from, to, amount)
	})
	return err
}

// Balance 查询余额。
func (c *Client) Balance(ctx context.Context, asset host.ComponentRef, holder host.Identity) (host.Amount, error) {
	var amount host.Amount
	_, err := c.host.Invoke(ctx, host.Call{Operation: "token.balance", Contract: asset}, func(env *host.Env) error {
		var err error
		amount, err = c.ledger.Balance(env, asset, holder)
		return err
	})
	return amount, err
}
