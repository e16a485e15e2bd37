package host

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradegate/internal/store"
)

type recordingObserver struct {
	receipts []Receipt
}

func (r *recordingObserver) ObserveInvocation(_ context.Context, receipt Receipt) {
	r.receipts = append(r.receipts, receipt)
}

func newTestHost(t *testing.T, opts ...Option) *Host {
	t.Helper()
	st, err := store.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	h, err := New(st, nil, opts...)
	require.NoError(t, err)
	return h
}

func readKey(t *testing.T, h *Host, owner ComponentRef, key string) (string, bool) {
	t.Helper()
	var (
		value string
		ok    bool
	)
	_, err := h.Invoke(context.Background(), Call{Operation: "read", Contract: owner}, func(env *Env) error {
		var err error
		value, ok, err = env.Storage().Get(key)
		return err
	})
	require.NoError(t, err)
	return value, ok
}

func TestInvoke_CommitsOnSuccess(t *testing.T) {
	obs := &recordingObserver{}
	h := newTestHost(t, WithObserver(obs))
	owner := NewComponentRef()

	receipt, err := h.Invoke(context.Background(), Call{Operation: "write", Contract: owner}, func(env *Env) error {
		env.Annotate("stage", "done")
		return env.Storage().Put("k", "v")
	})
	require.NoError(t, err)
	assert.True(t, receipt.Committed)
	assert.NotEmpty(t, receipt.ID)
	assert.Equal(t, "done", receipt.Annotations["stage"])

	value, ok := readKey(t, h, owner, "k")
	assert.True(t, ok)
	assert.Equal(t, "v", value)

	require.Len(t, obs.receipts, 2)
	assert.Equal(t, "write", obs.receipts[0].Operation)
}

func TestInvoke_RollsBackOnError(t *testing.T) {
	h := newTestHost(t)
	owner := NewComponentRef()
	boom := errors.New("boom")

	receipt, err := h.Invoke(context.Background(), Call{Operation: "write", Contract: owner}, func(env *Env) error {
		require.NoError(t, env.Storage().Put("k", "v"))
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.False(t, receipt.Committed)

	_, ok := readKey(t, h, owner, "k")
	assert.False(t, ok)
}

func TestInvoke_PanicBecomesFaultAndRollsBack(t *testing.T) {
	h := newTestHost(t)
	owner := NewComponentRef()

	_, err := h.Invoke(context.Background(), Call{Operation: "write", Contract: owner}, func(env *Env) error {
		require.NoError(t, env.Storage().Put("k", "v"))
		panic("assertion failed")
	})
	require.Error(t, err)
	assert.True(t, IsFault(err))

	_, ok := readKey(t, h, owner, "k")
	assert.False(t, ok)
}

func TestSavepoint_RollbackKeepsOuterWrites(t *testing.T) {
	h := newTestHost(t)
	owner := NewComponentRef()

	_, err := h.Invoke(context.Background(), Call{Operation: "write", Contract: owner}, func(env *Env) error {
		if err := env.Storage().Put("outer", "1"); err != nil {
			return err
		}
		sp, err := env.Savepoint()
		if err != nil {
			return err
		}
		if err := env.Storage().Put("inner", "1"); err != nil {
			return err
		}
		return sp.Rollback()
	})
	require.NoError(t, err)

	_, ok := readKey(t, h, owner, "outer")
	assert.True(t, ok)
	_, ok = readKey(t, h, owner, "inner")
	assert.False(t, ok)
}

func TestStorage_IsolatedPerFrame(t *testing.T) {
	h := newTestHost(t)
	a, b := NewComponentRef(), NewComponentRef()

	_, err := h.Invoke(context.Background(), Call{Operation: "write", Contract: a}, func(env *Env) error {
		if err := env.Storage().Put("k", "a"); err != nil {
			return err
		}
		return env.Frame(b).Storage().Put("k", "b")
	})
	require.NoError(t, err)

	value, _ := readKey(t, h, a, "k")
	assert.Equal(t, "a", value)
	value, _ = readKey(t, h, b, "k")
	assert.Equal(t, "b", value)
}

func TestRequireAuth(t *testing.T) {
	h := newTestHost(t)
	signer, other := NewIdentity(), NewIdentity()

	_, err := h.Invoke(context.Background(), Call{Operation: "auth", Signers: []Identity{signer}}, func(env *Env) error {
		assert.NoError(t, env.RequireAuth(signer))
		assert.ErrorIs(t, env.RequireAuth(other), ErrNotAuthorized)
		assert.ErrorIs(t, env.RequireAuth(""), ErrNotAuthorized)
		return nil
	})
	require.NoError(t, err)

	_, err = h.Invoke(context.Background(), Call{Operation: "auth", AuthorizeAll: true}, func(env *Env) error {
		return env.RequireAuth(other)
	})
	require.NoError(t, err)
}

func TestRegister_RejectsDuplicates(t *testing.T) {
	h := newTestHost(t)
	noop := ComponentFunc(func(*Env, string, Args) (any, error) { return nil, nil })

	ref, err := h.Deploy(noop)
	require.NoError(t, err)
	require.ErrorIs(t, h.Register(ref, noop), ErrComponentExists)

	_, err = h.Invoke(context.Background(), Call{Operation: "resolve"}, func(env *Env) error {
		_, err := env.Resolve(NewComponentRef())
		return err
	})
	require.ErrorIs(t, err, ErrComponentNotFound)
}

func TestArgs_PanicsOnMismatch(t *testing.T) {
	args := Args{Identity("alice"), Amount(5)}
	assert.Equal(t, Identity("alice"), args.Identity(0))
	assert.Equal(t, Amount(5), args.Amount(1))
	assert.Panics(t, func() { args.Amount(0) })
	assert.Panics(t, func() { args.Identity(2) })
}

func TestFrame_DoesNotInheritCallerAuth(t *testing.T) {
	h := newTestHost(t)
	signer, forwarded := NewIdentity(), NewIdentity()
	callee := NewComponentRef()

	for _, call := range []Call{
		{Operation: "frame", Signers: []Identity{signer, forwarded}},
		{Operation: "frame", AuthorizeAll: true},
	} {
		_, err := h.Invoke(context.Background(), call, func(env *Env) error {
			require.NoError(t, env.RequireAuth(signer))

			child := env.Frame(callee)
			assert.ErrorIs(t, child.RequireAuth(signer), ErrNotAuthorized)

			scoped := env.Frame(callee, forwarded)
			assert.NoError(t, scoped.RequireAuth(forwarded))
			assert.ErrorIs(t, scoped.RequireAuth(signer), ErrNotAuthorized)

			return env.RequireAuth(signer)
		})
		require.NoError(t, err)
	}
}

func TestInvoke_CommitFailureMarksReceiptAborted(t *testing.T) {
	h := newTestHost(t)
	ref := NewComponentRef()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	receipt, err := h.Invoke(ctx, Call{Operation: "late_cancel", Contract: ref}, func(env *Env) error {
		if err := env.Storage().Put("k", "v"); err != nil {
			return err
		}
		env.Annotate("stage", "committed")
		cancel()
		return nil
	})
	require.Error(t, err)
	assert.False(t, receipt.Committed)
	assert.Equal(t, "aborted", receipt.Annotations["stage"])
	assert.Equal(t, "commit", receipt.Annotations["aborted_at"])

	_, ok := readKey(t, h, ref, "k")
	assert.False(t, ok)
}
