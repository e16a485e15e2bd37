package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradegate/internal/host"
	"tradegate/internal/store"
	"tradegate/internal/token"
)

func TestService_RecordsInvocationReceipts(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	svc, err := NewService(st, nil)
	require.NoError(t, err)
	h, err := host.New(st, nil, host.WithObserver(svc))
	require.NoError(t, err)

	_, err = h.Invoke(ctx, host.Call{Operation: "ok"}, func(env *host.Env) error {
		env.Annotate("stage", "committed")
		return nil
	})
	require.NoError(t, err)

	_, err = h.Invoke(ctx, host.Call{Operation: "fail"}, func(*host.Env) error {
		return token.ErrInsufficientBalance
	})
	require.Error(t, err)

	svc.RecordError(ctx, "scenario step failed", errors.New("boom"), map[string]interface{}{"step": 3})

	all, err := svc.ListEvents(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, EventError, all[0].Type)

	aborted, err := svc.ListEvents(ctx, EventAborted, 10)
	require.NoError(t, err)
	require.Len(t, aborted, 1)

	var payload InvocationPayload
	require.NoError(t, json.Unmarshal(aborted[0].Payload.(json.RawMessage), &payload))
	assert.Equal(t, "fail", payload.Operation)
	assert.False(t, payload.Committed)
	require.NotNil(t, payload.Code)
	assert.Equal(t, uint32(101), *payload.Code)

	committed, err := svc.ListEvents(ctx, EventCommitted, 10)
	require.NoError(t, err)
	require.Len(t, committed, 1)
	require.NoError(t, json.Unmarshal(committed[0].Payload.(json.RawMessage), &payload))
	assert.Equal(t, "committed", payload.Annotations["stage"])
}
