package scenario

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradegate/internal/config"
	"tradegate/internal/host"
	"tradegate/internal/reward"
	"tradegate/internal/safecall"
	"tradegate/internal/store"
	"tradegate/internal/token"
	"tradegate/internal/trading"
)

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	ctx := context.Background()

	st, err := store.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	h, err := host.New(st, nil)
	require.NoError(t, err)
	ledger, err := token.NewLedger(st, nil)
	require.NoError(t, err)
	book, err := reward.NewBook(st, nil)
	require.NoError(t, err)

	sandbox := reward.NewSandbox(ctx, config.SandboxConfig{CallTimeout: time.Second, MemoryLimitPages: 1}, nil)
	t.Cleanup(func() { _ = sandbox.Close(ctx) })

	runner, err := NewRunner(Deps{
		Host:     h,
		Tokens:   token.NewClient(h, ledger),
		Book:     book,
		Sandbox:  sandbox,
		Contract: trading.NewContract(ledger, safecall.NewInvoker(nil, nil), nil),
	}, nil)
	require.NoError(t, err)
	return runner
}

func code(c uint32) *uint32 { return &c }

func TestRunFile_EndToEnd(t *testing.T) {
	runner := newTestRunner(t)

	report, err := runner.RunFile(context.Background(), filepath.Join("..", "..", "configs", "scenarios", "end_to_end.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "end_to_end", report.Name)
	assert.Equal(t, 14, report.Steps)
	assert.NotEmpty(t, report.Contract)
}

func TestRunFile_WasmReward(t *testing.T) {
	runner := newTestRunner(t)

	report, err := runner.RunFile(context.Background(), filepath.Join("testdata", "wasm_reward.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 6, report.Steps)
}

func TestRun_StopsAtFirstMismatch(t *testing.T) {
	runner := newTestRunner(t)

	file := File{
		Name:     "mismatch",
		Accounts: []string{"admin", "outsider"},
		Steps: []Step{
			{Op: OpInitialize, Caller: "admin"},
			{Op: OpSetPause, Caller: "outsider", Value: true, ExpectError: code(uint32(trading.CodeUnauthorized))},
			{Op: OpExpectPaused, Value: true},
			{Op: OpSetPause, Caller: "admin", Value: true},
		},
	}

	report, err := runner.Run(context.Background(), file, ".")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "步骤 3 (expect_paused)")
	assert.Equal(t, 2, report.Steps)
}

func TestRun_UnexpectedSuccessFails(t *testing.T) {
	runner := newTestRunner(t)

	file := File{
		Name:     "unexpected",
		Accounts: []string{"admin"},
		Steps: []Step{
			{Op: OpInitialize, Caller: "admin"},
			{Op: OpSetPause, Caller: "admin", Value: true, ExpectError: code(uint32(trading.CodePaused))},
		},
	}

	_, err := runner.Run(context.Background(), file, ".")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "实际成功")
}

func TestRun_SignerOverridesActor(t *testing.T) {
	runner := newTestRunner(t)

	file := File{
		Name:     "forged",
		Accounts: []string{"admin", "mallory"},
		Steps: []Step{
			{Op: OpInitialize, Caller: "admin"},
			{Op: OpSetPause, Caller: "admin", Signer: "mallory", Value: true, ExpectError: code(uint32(trading.CodeUnauthorized))},
			{Op: OpExpectPaused, Value: false},
		},
	}

	report, err := runner.Run(context.Background(), file, ".")
	require.NoError(t, err)
	assert.Equal(t, 3, report.Steps)
}

func TestRun_RejectsUndeclaredNames(t *testing.T) {
	runner := newTestRunner(t)

	_, err := runner.Run(context.Background(), File{
		Name:  "undeclared",
		Steps: []Step{{Op: OpInitialize, Caller: "ghost"}},
	}, ".")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")

	_, err = runner.Run(context.Background(), File{
		Name:    "bad_reward",
		Rewards: []RewardSpec{{Name: "x", Kind: "lua"}},
	}, ".")
	require.Error(t, err)
}

func TestLoad_DefaultsNameToFileName(t *testing.T) {
	file, err := Load(filepath.Join("testdata", "wasm_reward.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "wasm_reward", file.Name)
	require.Len(t, file.Steps, 6)
	require.NotNil(t, file.Steps[3].ExpectError)
	assert.Equal(t, uint32(2001), *file.Steps[3].ExpectError)
	assert.Equal(t, int64(-1), file.Steps[3].RewardAmount)
}
