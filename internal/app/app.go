package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tradegate/internal/config"
	"tradegate/internal/host"
	"tradegate/internal/metrics"
	"tradegate/internal/monitor"
	"tradegate/internal/reward"
	"tradegate/internal/safecall"
	"tradegate/internal/scenario"
	"tradegate/internal/store"
	"tradegate/internal/token"
	"tradegate/internal/trading"
)

// App 聚合核心依赖并驱动系统生命周期。
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store

	monitor *monitor.Service
	metrics *metrics.Metrics
	host    *host.Host
	tokens  *token.Client
	book    *reward.Book
	sandbox *reward.Sandbox
	client  *trading.Client
	runner  *scenario.Runner

	admin host.Identity
}

// New 创建 App 实例并装配宿主、资产账本、奖励组件与交易合约。
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, st *store.Store) (*App, error) {
	if cfg == nil || st == nil {
		return nil, errors.New("app: 配置与 store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	monitorSvc, err := monitor.NewService(st, logger.Named("monitor"))
	if err != nil {
		return nil, err
	}
	m, err := metrics.New()
	if err != nil {
		return nil, fmt.Errorf("app: 注册指标失败: %w", err)
	}

	h, err := host.New(st, logger.Named("host"), host.WithObserver(monitorSvc), host.WithObserver(m))
	if err != nil {
		return nil, err
	}
	ledger, err := token.NewLedger(st, logger.Named("token"))
	if err != nil {
		return nil, err
	}
	book, err := reward.NewBook(st, logger.Named("reward"))
	if err != nil {
		return nil, err
	}
	sandbox := reward.NewSandbox(ctx, cfg.Sandbox, logger.Named("sandbox"))

	contract := trading.NewContract(ledger, safecall.NewInvoker(logger.Named("safecall"), m), logger.Named("trading"))
	tokens := token.NewClient(h, ledger)

	runner, err := scenario.NewRunner(scenario.Deps{
		Host:     h,
		Tokens:   tokens,
		Book:     book,
		Sandbox:  sandbox,
		Contract: contract,
	}, logger.Named("scenario"))
	if err != nil {
		_ = sandbox.Close(ctx)
		return nil, err
	}

	admin := host.Identity(cfg.Contract.Admin)
	if admin == "" {
		admin = host.NewIdentity()
	}

	return &App{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		monitor: monitorSvc,
		metrics: m,
		host:    h,
		tokens:  tokens,
		book:    book,
		sandbox: sandbox,
		client:  trading.NewClient(h, contract, host.ComponentRef(cfg.Contract.ID)),
		runner:  runner,
		admin:   admin,
	}, nil
}

// Client 返回固定地址处交易合约的客户端。
func (a *App) Client() *trading.Client {
	return a.client
}

// Admin 返回启动时使用的管理员身份。
func (a *App) Admin() host.Identity {
	return a.admin
}

// Close 释放 WASM 运行时。
func (a *App) Close(ctx context.Context) error {
	return a.sandbox.Close(ctx)
}

// Run 完成合约初始化，随后并行运行监控接口与场景回放。
// 未启用监控接口时，场景回放结束即返回。
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("交易合约宿主已初始化",
		zap.String("environment", a.cfg.App.Environment),
		zap.String("contract", a.cfg.Contract.ID),
	)

	if err := a.bootstrap(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.cfg.Monitor.Enabled {
		g.Go(func() error {
			return serveMonitor(gctx, newMonitorHandler(a.monitor, a.metrics, a.logger), a.cfg.Monitor.Port, a.logger)
		})
	}

	if path := a.cfg.Scenario.Path; path != "" {
		g.Go(func() error {
			report, err := a.runner.RunFile(gctx, path)
			if err != nil {
				a.monitor.RecordError(context.WithoutCancel(gctx), "场景执行失败", err, map[string]interface{}{
					"scenario": path,
					"steps":    report.Steps,
				})
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("系统异常退出: %w", err)
	}
	return nil
}

// bootstrap 初始化固定地址处的合约，已初始化时沿用原有管理员。
func (a *App) bootstrap(ctx context.Context) error {
	err := a.client.Initialize(ctx, a.admin)
	switch {
	case err == nil:
		a.logger.Info("交易合约已初始化", zap.String("admin", string(a.admin)))
	case errors.Is(err, trading.ErrAlreadyInitialized):
		a.logger.Info("交易合约沿用已有状态", zap.String("contract", a.cfg.Contract.ID))
	default:
		return fmt.Errorf("初始化交易合约失败: %w", err)
	}

	if a.cfg.Contract.StartPaused {
		if err := a.client.SetPause(ctx, a.admin, true); err != nil {
			return fmt.Errorf("暂停交易合约失败: %w", err)
		}
		a.logger.Warn("交易合约以暂停状态启动")
	}

	if path := a.cfg.Sandbox.RewardModule; path != "" {
		mod, err := a.sandbox.LoadFile(ctx, path)
		if err != nil {
			return err
		}
		ref, err := a.host.Deploy(mod)
		if err != nil {
			return err
		}
		a.logger.Info("WASM 奖励组件已部署", zap.String("ref", string(ref)), zap.String("module", path))
	}

	ref, err := a.host.Deploy(a.book)
	if err != nil {
		return err
	}
	a.logger.Info("原生奖励组件已部署", zap.String("ref", string(ref)))
	return nil
}
