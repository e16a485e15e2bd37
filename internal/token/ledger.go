package token

import (
	"database/sql"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"tradegate/internal/host"
	"tradegate/internal/store"
)

// Ledger 为同质化资产组件，余额保存在调用事务内。
type Ledger struct {
	logger *zap.Logger
}

// NewLedger 创建资产组件并初始化表结构。
func NewLedger(st *store.Store, logger *zap.Logger) (*Ledger, error) {
	if st == nil {
		return nil, errors.New("token: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	err := st.Migrate("token",
		`CREATE TABLE IF NOT EXISTS token_assets (
			asset TEXT PRIMARY KEY,
			issuer TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS token_balances (
			asset TEXT NOT NULL,
			holder TEXT NOT NULL,
			amount INTEGER NOT NULL,
			PRIMARY KEY (asset, holder)
		);`,
	)
	if err != nil {
		return nil, err
	}

	return &Ledger{logger: logger}, nil
}

// Issue 登记一个由 issuer 发行的新资产。
func (l *Ledger) Issue(env *host.Env, issuer host.Identity) (host.ComponentRef, error) {
	if err := env.RequireAuth(issuer); err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotAuthorized, err)
	}

	asset := host.NewComponentRef()
	if _, err := env.Tx().ExecContext(env.Context(),
		`INSERT INTO token_assets (asset, issuer) VALUES (?, ?)`,
		string(asset), string(issuer),
	); err != nil {
		return "", fmt.Errorf("token: 登记资产失败: %w", err)
	}

	l.logger.Debug("资产已发行", zap.String("asset", string(asset)), zap.String("issuer", string(issuer)))
	return asset, nil
}

// Mint 由发行方为 to 增发。
func (l *Ledger) Mint(env *host.Env, asset host.ComponentRef, to host.Identity, amount host.Amount) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	issuer, err := l.issuer(env, asset)
	if err != nil {
		return err
	}
	if err := env.RequireAuth(issuer); err != nil {
		return fmt.Errorf("%w: %w", ErrNotAuthorized, err)
	}

	return l.credit(env, asset, to, amount)
}

// Balance 返回 holder 的余额，未持有时为 0。
func (l *Ledger) Balance(env *host.Env, asset host.ComponentRef, holder host.Identity) (host.Amount, error) {
	if _, err := l.issuer(env, asset); err != nil {
		return 0, err
	}
	return l.balance(env, asset, holder)
}

// Transfer 从 from 扣减并向 to 入账，需要 from 授权。失败均为类型化错误。
func (l *Ledger) Transfer(env *host.Env, asset host.ComponentRef, from, to host.Identity, amount host.Amount) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if _, err := l.issuer(env, asset); err != nil {
		return err
	}
	if err := env.RequireAuth(from); err != nil {
		return fmt.Errorf("%w: %w", ErrNotAuthorized, err)
	}

	current, err := l.balance(env, asset, from)
	if err != nil {
		return err
	}
	if current < amount {
		return fmt.Errorf("%w: 持有 %d，需要 %d", ErrInsufficientBalance, current, amount)
	}

	if err := l.setBalance(env, asset, from, current-amount); err != nil {
		return err
	}
	if err := l.credit(env, asset, to, amount); err != nil {
		return err
	}

	l.logger.Debug("资产已转账",
		zap.String("asset", string(asset)),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Int64("amount", int64(amount)),
	)
	return nil
}

func (l *Ledger) credit(env *host.Env, asset host.ComponentRef, to host.Identity, amount host.Amount) error {
	current, err := l.balance(env, asset, to)
	if err != nil {
		return err
	}
	if current > host.Amount(math.MaxInt64)-amount {
		return ErrOverflow
	}
	return l.setBalance(env, asset, to, current+amount)
}

func (l *Ledger) issuer(env *host.Env, asset host.ComponentRef) (host.Identity, error) {
	var issuer string
	err := env.Tx().QueryRowContext(env.Context(),
		`SELECT issuer FROM token_assets WHERE asset = ?`, string(asset),
	).Scan(&issuer)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrUnknownAsset, asset)
	}
	if err != nil {
		return "", fmt.Errorf("token: 查询资产失败: %w", err)
	}
	return host.Identity(issuer), nil
}

func (l *Ledger) balance(env *host.Env, asset host.ComponentRef, holder host.Identity) (host.Amount, error) {
	var amount int64
	err := env.Tx().QueryRowContext(env.Context(),
		`SELECT amount FROM token_balances WHERE asset = ? AND holder = ?`,
		string(asset), string(holder),
	).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("token: 查询余额失败: %w", err)
	}
	return host.Amount(amount), nil
}

func (l *Ledger) setBalance(env *host.Env, asset host.ComponentRef, holder host.Identity, amount host.Amount) error {
	_, err := env.Tx().ExecContext(env.Context(),
		`INSERT INTO token_balances (asset, holder, amount) VALUES (?, ?, ?)
		 ON CONFLICT(asset, holder) DO UPDATE SET amount = excluded.amount`,
		string(asset), string(holder), int64(amount),
	)
	if err != nil {
		return fmt.Errorf("token: 更新余额失败: %w", err)
	}
	return nil
}
