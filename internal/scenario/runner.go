package scenario

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"tradegate/internal/host"
	"tradegate/internal/reward"
	"tradegate/internal/token"
	"tradegate/internal/trading"
)

// Deps 为场景执行所需的组件。
type Deps struct {
	Host     *host.Host
	Tokens   *token.Client
	Book     *reward.Book
	Sandbox  *reward.Sandbox
	Contract *trading.Contract
}

// Runner 通过交易合约的对外调用面回放场景。
type Runner struct {
	deps   Deps
	logger *zap.Logger
}

// NewRunner 创建场景执行器。
func NewRunner(deps Deps, logger *zap.Logger) (*Runner, error) {
	if deps.Host == nil || deps.Tokens == nil || deps.Book == nil || deps.Contract == nil {
		return nil, errors.New("scenario: host、tokens、book 与 contract 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{deps: deps, logger: logger}, nil
}

// Load 解析场景文件。
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("scenario: 读取场景文件 %q 失败: %w", path, err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return File{}, fmt.Errorf("scenario: 解析场景文件 %q 失败: %w", path, err)
	}
	if file.Name == "" {
		file.Name = filepath.Base(path)
	}
	return file, nil
}

// RunFile 加载并执行场景文件。
func (r *Runner) RunFile(ctx context.Context, path string) (Report, error) {
	file, err := Load(path)
	if err != nil {
		return Report{}, err
	}
	return r.Run(ctx, file, filepath.Dir(path))
}

// Run 在新部署的合约实例上执行场景，遇到第一个不符合预期的步骤即停止。
func (r *Runner) Run(ctx context.Context, file File, baseDir string) (Report, error) {
	world, err := r.setup(ctx, file, baseDir)
	if err != nil {
		return Report{}, fmt.Errorf("scenario %s: 准备失败: %w", file.Name, err)
	}

	report := Report{Name: file.Name, Contract: string(world.client.Ref())}
	for i, step := range file.Steps {
		if err := r.step(ctx, world, step); err != nil {
			return report, fmt.Errorf("scenario %s: 步骤 %d (%s): %w", file.Name, i+1, step.Op, err)
		}
		report.Steps++
	}

	r.logger.Info("场景执行完成",
		zap.String("scenario", file.Name),
		zap.Int("steps", report.Steps),
		zap.String("contract", report.Contract),
	)
	return report, nil
}

type world struct {
	client   *trading.Client
	accounts map[string]host.Identity
	assets   map[string]asset
	rewards  map[string]host.ComponentRef
}

type asset struct {
	ref    host.ComponentRef
	issuer host.Identity
}

func (r *Runner) setup(ctx context.Context, file File, baseDir string) (*world, error) {
	w := &world{
		client:   trading.NewClient(r.deps.Host, r.deps.Contract, host.NewComponentRef()),
		accounts: make(map[string]host.Identity, len(file.Accounts)),
		assets:   make(map[string]asset, len(file.Assets)),
		rewards:  make(map[string]host.ComponentRef, len(file.Rewards)),
	}

	for _, name := range file.Accounts {
		w.accounts[name] = host.NewIdentity()
	}

	for _, as := range file.Assets {
		issuer, err := w.account(as.Issuer)
		if err != nil {
			return nil, err
		}
		ref, err := r.deps.Tokens.Issue(ctx, issuer)
		if err != nil {
			return nil, err
		}
		w.assets[as.Name] = asset{ref: ref, issuer: issuer}
	}

	for _, rs := range file.Rewards {
		component, err := r.rewardComponent(ctx, rs, baseDir)
		if err != nil {
			return nil, err
		}
		ref, err := r.deps.Host.Deploy(component)
		if err != nil {
			return nil, err
		}
		w.rewards[rs.Name] = ref
	}

	return w, nil
}

func (r *Runner) rewardComponent(ctx context.Context, rs RewardSpec, baseDir string) (host.Component, error) {
	switch rs.Kind {
	case "", RewardNative:
		return r.deps.Book, nil
	case RewardWasm:
		if r.deps.Sandbox == nil {
			return nil, fmt.Errorf("奖励组件 %s 需要 WASM 沙箱", rs.Name)
		}
		path := rs.Module
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		return r.deps.Sandbox.LoadFile(ctx, path)
	default:
		return nil, fmt.Errorf("奖励组件 %s 类型 %q 不支持", rs.Name, rs.Kind)
	}
}

func (r *Runner) step(ctx context.Context, w *world, s Step) error {
	client := w.client
	if s.Signer != "" {
		signer, err := w.account(s.Signer)
		if err != nil {
			return err
		}
		client = client.As(signer)
	}

	switch s.Op {
	case OpInitialize:
		caller, err := w.account(s.Caller)
		if err != nil {
			return err
		}
		return expect(s, client.Initialize(ctx, caller))

	case OpSetPause:
		caller, err := w.account(s.Caller)
		if err != nil {
			return err
		}
		return expect(s, client.SetPause(ctx, caller, s.Value))

	case OpMint:
		a, to, err := w.assetAndAccount(s.Asset, s.Account)
		if err != nil {
			return err
		}
		return expect(s, r.deps.Tokens.Mint(ctx, a.ref, a.issuer, to, host.Amount(s.Amount)))

	case OpTrade:
		req, err := w.tradeRequest(s)
		if err != nil {
			return err
		}
		return expect(s, client.Trade(ctx, req))

	case OpTradeAndReward:
		req, err := w.tradeRequest(s)
		if err != nil {
			return err
		}
		ref, ok := w.rewards[s.Reward]
		if !ok {
			return fmt.Errorf("未声明的奖励组件 %q", s.Reward)
		}
		return expect(s, client.TradeAndReward(ctx, trading.TradeAndRewardRequest{
			TradeRequest:    req,
			RewardComponent: ref,
			RewardAmount:    host.Amount(s.RewardAmount),
		}))

	case OpExpectBalance:
		a, holder, err := w.assetAndAccount(s.Asset, s.Account)
		if err != nil {
			return err
		}
		got, err := r.deps.Tokens.Balance(ctx, a.ref, holder)
		if err != nil {
			return err
		}
		if got != host.Amount(s.Amount) {
			return fmt.Errorf("%s 余额为 %d，期望 %d", s.Account, got, s.Amount)
		}
		return nil

	case OpExpectPaused:
		paused, err := client.IsPaused(ctx)
		if err != nil {
			return err
		}
		if paused != s.Value {
			return fmt.Errorf("暂停状态为 %t，期望 %t", paused, s.Value)
		}
		return nil

	case OpExpectReward:
		ref, ok := w.rewards[s.Reward]
		if !ok {
			return fmt.Errorf("未声明的奖励组件 %q", s.Reward)
		}
		holder, err := w.account(s.Account)
		if err != nil {
			return err
		}
		got, err := r.deps.Book.Total(ctx, r.deps.Host, ref, holder)
		if err != nil {
			return err
		}
		if got != host.Amount(s.Amount) {
			return fmt.Errorf("%s 累计奖励为 %d，期望 %d", s.Account, got, s.Amount)
		}
		return nil

	default:
		return fmt.Errorf("未知步骤类型 %q", s.Op)
	}
}

// expect 将调用结果与步骤声明的错误码比对。
func expect(s Step, err error) error {
	if s.ExpectError == nil {
		return err
	}
	if err == nil {
		return fmt.Errorf("期望错误码 %d，实际成功", *s.ExpectError)
	}
	code, ok := trading.CodeOf(err)
	if !ok || code != *s.ExpectError {
		return fmt.Errorf("期望错误码 %d，实际: %w", *s.ExpectError, err)
	}
	return nil
}

func (w *world) account(name string) (host.Identity, error) {
	id, ok := w.accounts[name]
	if !ok {
		return "", fmt.Errorf("未声明的账户 %q", name)
	}
	return id, nil
}

func (w *world) assetAndAccount(assetName, accountName string) (asset, host.Identity, error) {
	a, ok := w.assets[assetName]
	if !ok {
		return asset{}, "", fmt.Errorf("未声明的资产 %q", assetName)
	}
	id, err := w.account(accountName)
	if err != nil {
		return asset{}, "", err
	}
	return a, id, nil
}

func (w *world) tradeRequest(s Step) (trading.TradeRequest, error) {
	a, trader, err := w.assetAndAccount(s.Asset, s.Trader)
	if err != nil {
		return trading.TradeRequest{}, err
	}
	recipient, err := w.account(s.Recipient)
	if err != nil {
		return trading.TradeRequest{}, err
	}
	return trading.TradeRequest{
		Trader:    trader,
		Asset:     a.ref,
		Fee:       host.Amount(s.Fee),
		Recipient: recipient,
	}, nil
}
