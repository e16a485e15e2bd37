package token

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradegate/internal/host"
	"tradegate/internal/store"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	st, err := store.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	h, err := host.New(st, nil)
	require.NoError(t, err)
	ledger, err := NewLedger(st, nil)
	require.NoError(t, err)
	return NewClient(h, ledger)
}

func TestLedger_MintAndTransfer(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	issuer, alice, bob := host.NewIdentity(), host.NewIdentity(), host.NewIdentity()

	asset, err := c.Issue(ctx, issuer)
	require.NoError(t, err)
	require.NoError(t, c.Mint(ctx, asset, issuer, alice, 1000))
	require.NoError(t, c.Transfer(ctx, asset, alice, bob, 250))

	balance, err := c.Balance(ctx, asset, alice)
	require.NoError(t, err)
	assert.Equal(t, host.Amount(750), balance)

	balance, err = c.Balance(ctx, asset, bob)
	require.NoError(t, err)
	assert.Equal(t, host.Amount(250), balance)
}

func TestLedger_TypedFailures(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	issuer, alice, bob := host.NewIdentity(), host.NewIdentity(), host.NewIdentity()

	asset, err := c.Issue(ctx, issuer)
	require.NoError(t, err)
	require.NoError(t, c.Mint(ctx, asset, issuer, alice, 100))

	err = c.Transfer(ctx, asset, alice, bob, 101)
	require.ErrorIs(t, err, ErrInsufficientBalance)
	code, ok := host.ErrorCode(err)
	require.True(t, ok)
	assert.Equal(t, uint32(101), code)

	require.ErrorIs(t, c.Transfer(ctx, asset, alice, bob, 0), ErrInvalidAmount)
	require.ErrorIs(t, c.Transfer(ctx, host.NewComponentRef(), alice, bob, 1), ErrUnknownAsset)
	require.ErrorIs(t, c.Mint(ctx, asset, alice, alice, 1), ErrNotAuthorized)

	balance, err := c.Balance(ctx, asset, alice)
	require.NoError(t, err)
	assert.Equal(t, host.Amount(100), balance)
}

func TestLedger_TransferRequiresSenderAuth(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	issuer, alice, bob := host.NewIdentity(), host.NewIdentity(), host.NewIdentity()

	asset, err := c.Issue(ctx, issuer)
	require.NoError(t, err)
	require.NoError(t, c.Mint(ctx, asset, issuer, alice, 100))

	_, err = c.host.Invoke(ctx, host.Call{Operation: "token.transfer", Signers: []host.Identity{bob}}, func(env *host.Env) error {
		return c.ledger.Transfer(env, asset, alice, bob, 10)
	})
	require.ErrorIs(t, err, ErrNotAuthorized)
	require.ErrorIs(t, err, host.ErrNotAuthorized)
}
