package host

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"tradegate/internal/store"
)

// 提交失败时写入回执的注记。
const (
	annotationStage     = "stage"
	annotationAbortedAt = "aborted_at"
	stageCommit         = "commit"
	stageAborted        = "aborted"
)

// Call 描述一次顶层调用。
type Call struct {
	Operation string
	Contract  ComponentRef
	Signers   []Identity
	// AuthorizeAll 视所有身份均已授权，仅供测试与场景回放使用。
	AuthorizeAll bool
}

// EntryFunc 为顶层入口，返回 nil 时提交本次调用的全部写入，否则全部回滚。
type EntryFunc func(env *Env) error

// Receipt 为一次调用的回执。
type Receipt struct {
	ID          string
	Operation   string
	Contract    ComponentRef
	Committed   bool
	Err         error
	Annotations map[string]string
	StartedAt   time.Time
	Duration    time.Duration
}

// Observer 在每次调用结束（提交或回滚之后）收到回执。
type Observer interface {
	ObserveInvocation(ctx context.Context, receipt Receipt)
}

// Option 配置 Host。
type Option func(*Host)

// WithObserver 注册调用观察者。
func WithObserver(o Observer) Option {
	return func(h *Host) {
		if o != nil {
			h.observers = append(h.observers, o)
		}
	}
}

// Host 提供调用级原子性：同一时刻仅执行一个调用，每个调用对应一个事务。
type Host struct {
	db     *sql.DB
	logger *zap.Logger

	mu sync.Mutex

	registryMu sync.RWMutex
	components map[ComponentRef]Component

	observers []Observer
}

// New 创建 Host 并初始化组件存储表。
func New(st *store.Store, logger *zap.Logger, opts ...Option) (*Host, error) {
	if st == nil {
		return nil, errors.New("host: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := st.Migrate("host", `CREATE TABLE IF NOT EXISTS contract_data (
		component TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (component, key)
	);`); err != nil {
		return nil, err
	}

	h := &Host{
		db:         st.DB(),
		logger:     logger,
		components: make(map[ComponentRef]Component),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Register 将组件部署到指定地址。
func (h *Host) Register(ref ComponentRef, c Component) error {
	if ref == "" || c == nil {
		return errors.New("host: 组件地址与实现不能为空")
	}

	h.registryMu.Lock()
	defer h.registryMu.Unlock()

	if _, exists := h.components[ref]; exists {
		return fmt.Errorf("%w: %s", ErrComponentExists, ref)
	}
	h.components[ref] = c
	h.logger.Debug("组件已部署", zap.String("component", string(ref)))
	return nil
}

// Deploy 以随机地址部署组件。
func (h *Host) Deploy(c Component) (ComponentRef, error) {
	ref := NewComponentRef()
	if err := h.Register(ref, c); err != nil {
		return "", err
	}
	return ref, nil
}

func (h *Host) lookup(ref ComponentRef) (Component, error) {
	h.registryMu.RLock()
	defer h.registryMu.RUnlock()

	c, ok := h.components[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrComponentNotFound, ref)
	}
	return c, nil
}

// Invoke 执行一次顶层调用。entry 返回错误或 panic 时，本次调用内的全部写入都会回滚。
func (h *Host) Invoke(ctx context.Context, call Call, entry EntryFunc) (Receipt, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	receipt := Receipt{
		ID:        uuid.NewString(),
		Operation: call.Operation,
		Contract:  call.Contract,
		StartedAt: time.Now().UTC(),
	}

	err := h.run(ctx, call, entry, &receipt)

	receipt.Duration = time.Since(receipt.StartedAt)
	receipt.Committed = err == nil
	receipt.Err = err

	if err != nil {
		h.logger.Debug("调用已回滚",
			zap.String("invocation_id", receipt.ID),
			zap.String("operation", call.Operation),
			zap.Error(err),
		)
	} else {
		h.logger.Debug("调用已提交",
			zap.String("invocation_id", receipt.ID),
			zap.String("operation", call.Operation),
			zap.Duration("duration", receipt.Duration),
		)
	}

	for _, o := range h.observers {
		o.ObserveInvocation(ctx, receipt)
	}

	return receipt, err
}

func (h *Host) run(ctx context.Context, call Call, entry EntryFunc, receipt *Receipt) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("host: 开启调用事务失败: %w", err)
	}

	env := newEnv(ctx, tx, h, call, receipt.ID)
	err = callEntry(env, entry)
	receipt.Annotations = env.annotations()

	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = multierr.Append(err, fmt.Errorf("host: 回滚调用事务失败: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		env.Annotate(annotationAbortedAt, stageCommit)
		env.Annotate(annotationStage, stageAborted)
		receipt.Annotations = env.annotations()
		return fmt.Errorf("host: 提交调用事务失败: %w", err)
	}
	return nil
}

func callEntry(env *Env, entry EntryFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Fault{Component: env.Current(), Reason: fmt.Sprint(r)}
		}
	}()
	return entry(env)
}
