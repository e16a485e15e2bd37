package reward

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"tradegate/internal/config"
	"tradegate/internal/host"
)

// Sandbox 基于 wazero 运行独立部署的奖励模块。无文件系统、无网络、无 WASI。
// 陷阱、超时与内存上限都以 *host.Fault 返回。
type Sandbox struct {
	runtime wazero.Runtime
	timeout time.Duration
	logger  *zap.Logger
}

// NewSandbox 创建受限运行时。
func NewSandbox(ctx context.Context, cfg config.SandboxConfig, logger *zap.Logger) *Sandbox {
	if logger == nil {
		logger = zap.NewNop()
	}

	runtimeCfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}

	return &Sandbox{
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		timeout: cfg.CallTimeout,
		logger:  logger,
	}
}

// Load 编译模块字节码。
func (s *Sandbox) Load(ctx context.Context, wasm []byte) (*Module, error) {
	compiled, err := s.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, fmt.Errorf("reward: 编译 WASM 模块失败: %w", err)
	}
	return &Module{sandbox: s, compiled: compiled}, nil
}

// LoadFile 从文件加载模块。
func (s *Sandbox) LoadFile(ctx context.Context, path string) (*Module, error) {
	wasm, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reward: 读取 WASM 模块 %q 失败: %w", path, err)
	}
	return s.Load(ctx, wasm)
}

// Close 释放运行时。
func (s *Sandbox) Close(ctx context.Context) error {
	return s.runtime.Close(ctx)
}

// Module 为已编译的奖励模块，每次调用都在全新实例中执行。
// 只有 Amount 参数会传入模块，Identity 参数在边界处被丢弃。
type Module struct {
	sandbox  *Sandbox
	compiled wazero.CompiledModule
}

// Invoke 实现 host.Component。
func (m *Module) Invoke(env *host.Env, entryPoint string, args host.Args) (any, error) {
	ctx := env.Context()
	if m.sandbox.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.sandbox.timeout)
		defer cancel()
	}

	mod, err := m.sandbox.runtime.InstantiateModule(ctx, m.compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, &host.Fault{Component: env.Current(), Reason: "实例化失败", Err: err}
	}
	defer func() { _ = mod.Close(context.Background()) }()

	fn := mod.ExportedFunction(entryPoint)
	if fn == nil {
		return nil, &host.Fault{Component: env.Current(), Reason: fmt.Sprintf("入口 %q 不存在", entryPoint)}
	}

	params, err := encodeParams(args)
	if err != nil {
		return nil, &host.Fault{Component: env.Current(), Reason: "参数编码失败", Err: err}
	}
	if want := len(fn.Definition().ParamTypes()); want != len(params) {
		return nil, &host.Fault{Component: env.Current(), Reason: fmt.Sprintf("参数个数不符: 期望 %d，实际 %d", want, len(params))}
	}

	results, err := fn.Call(ctx, params...)
	if err != nil {
		m.sandbox.logger.Debug("WASM 调用异常终止",
			zap.String("component", string(env.Current())),
			zap.String("entry", entryPoint),
			zap.Error(err),
		)
		return nil, &host.Fault{Component: env.Current(), Reason: "执行陷阱", Err: err}
	}

	if len(results) == 0 {
		return nil, nil
	}
	return host.Amount(int64(results[0])), nil
}

// encodeParams 将数量参数编码为 i64，身份参数跳过，其余类型报错。
func encodeParams(args host.Args) ([]uint64, error) {
	params := make([]uint64, 0, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case host.Amount:
			params = append(params, api.EncodeI64(int64(v)))
		case int64:
			params = append(params, api.EncodeI64(v))
		case int:
			params = append(params, api.EncodeI64(int64(v)))
		case host.Identity:
		default:
			return nil, fmt.Errorf("参数 %d 类型 %T 不受支持", i, v)
		}
	}
	return params, nil
}
