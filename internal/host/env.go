package host

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
)

// Component 为可被跨组件调用的已部署组件。
// 正常返回（含类型化错误）视为正常结束；panic 或返回 *Fault 视为异常终止。
type Component interface {
	Invoke(env *Env, entryPoint string, args Args) (any, error)
}

// ComponentFunc 将函数适配为 Component。
type ComponentFunc func(env *Env, entryPoint string, args Args) (any, error)

// Invoke 实现 Component。
func (f ComponentFunc) Invoke(env *Env, entryPoint string, args Args) (any, error) {
	return f(env, entryPoint, args)
}

// Env 为单次顶层调用的执行环境，所有状态读写都经由同一个事务。
type Env struct {
	ctx     context.Context
	tx      *sql.Tx
	host    *Host
	id      string
	current ComponentRef
	shared  *invocationState

	signers      []Identity
	authorizeAll bool
}

type invocationState struct {
	annotations map[string]string
	savepoints  int
}

func newEnv(ctx context.Context, tx *sql.Tx, h *Host, call Call, id string) *Env {
	return &Env{
		ctx:     ctx,
		tx:      tx,
		host:    h,
		id:      id,
		current: call.Contract,
		shared:  &invocationState{annotations: make(map[string]string)},

		signers:      call.Signers,
		authorizeAll: call.AuthorizeAll,
	}
}

// Context 返回调用上下文。
func (e *Env) Context() context.Context {
	return e.ctx
}

// Tx 返回调用事务，组件自有表的读写必须使用它。
func (e *Env) Tx() *sql.Tx {
	return e.tx
}

// InvocationID 返回本次顶层调用的唯一标识。
func (e *Env) InvocationID() string {
	return e.id
}

// Current 返回当前执行帧所属组件。
func (e *Env) Current() ComponentRef {
	return e.current
}

// Frame 返回以 target 为当前组件的子帧，共享事务。
// 子帧只持有 forwarded 中的授权，调用方的签名者不会传递给被调方。
func (e *Env) Frame(target ComponentRef, forwarded ...Identity) *Env {
	child := *e
	child.current = target
	child.signers = slices.Clone(forwarded)
	child.authorizeAll = false
	return &child
}

// RequireAuth 校验 id 已在本次调用中授权。
func (e *Env) RequireAuth(id Identity) error {
	if id == "" {
		return fmt.Errorf("%w: 空身份", ErrNotAuthorized)
	}
	if e.authorizeAll || slices.Contains(e.signers, id) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNotAuthorized, id)
}

// Annotate 在调用回执上附加键值。
func (e *Env) Annotate(key, value string) {
	e.shared.annotations[key] = value
}

func (e *Env) annotations() map[string]string {
	out := make(map[string]string, len(e.shared.annotations))
	for k, v := range e.shared.annotations {
		out[k] = v
	}
	return out
}

// Resolve 查找已部署组件。
func (e *Env) Resolve(ref ComponentRef) (Component, error) {
	return e.host.lookup(ref)
}

// Storage 返回当前组件的实例存储。
func (e *Env) Storage() *Storage {
	return &Storage{env: e, owner: e.current}
}

// Savepoint 在调用事务内开启一个保存点。
func (e *Env) Savepoint() (*Savepoint, error) {
	e.shared.savepoints++
	name := fmt.Sprintf("sp_%d", e.shared.savepoints)
	if _, err := e.tx.ExecContext(e.ctx, "SAVEPOINT "+name); err != nil {
		return nil, fmt.Errorf("host: 创建保存点失败: %w", err)
	}
	return &Savepoint{env: e, name: name}, nil
}

// Savepoint 允许单独撤销一次嵌套调用的写入。
type Savepoint struct {
	env  *Env
	name string
	done bool
}

// Release 保留保存点之后的写入。
func (s *Savepoint) Release() error {
	if s.done {
		return nil
	}
	s.done = true
	if _, err := s.env.tx.ExecContext(s.env.ctx, "RELEASE SAVEPOINT "+s.name); err != nil {
		return fmt.Errorf("host: 释放保存点失败: %w", err)
	}
	return nil
}

// Rollback 撤销保存点之后的写入。
func (s *Savepoint) Rollback() error {
	if s.done {
		return nil
	}
	s.done = true
	if _, err := s.env.tx.ExecContext(s.env.ctx, "ROLLBACK TO SAVEPOINT "+s.name); err != nil {
		return fmt.Errorf("host: 回滚保存点失败: %w", err)
	}
	if _, err := s.env.tx.ExecContext(s.env.ctx, "RELEASE SAVEPOINT "+s.name); err != nil {
		return fmt.Errorf("host: 释放保存点失败: %w", err)
	}
	return nil
}

// Storage 为组件实例级键值存储。
type Storage struct {
	env   *Env
	owner ComponentRef
}

// Get 读取键值，不存在时 ok 为 false。
func (s *Storage) Get(key string) (string, bool, error) {
	var value string
	err := s.env.tx.QueryRowContext(s.env.ctx,
		`SELECT value FROM contract_data WHERE component = ? AND key = ?`,
		string(s.owner), key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("host: 读取存储 %s/%s 失败: %w", s.owner, key, err)
	}
	return value, true, nil
}

// Put 写入键值。
func (s *Storage) Put(key, value string) error {
	_, err := s.env.tx.ExecContext(s.env.ctx,
		`INSERT INTO contract_data (component, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(component, key) DO UPDATE SET value = excluded.value`,
		string(s.owner), key, value,
	)
	if err != nil {
		return fmt.Errorf("host: 写入存储 %s/%s 失败: %w", s.owner, key, err)
	}
	return nil
}
