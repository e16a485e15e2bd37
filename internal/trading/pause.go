package trading

import (
	"errors"
	"fmt"
	"strconv"

	"tradegate/internal/host"
)

const (
	keyAdmin  = "admin"
	keyPaused = "paused"
)

// PauseGate 持有暂停开关与管理员身份，存放在合约实例存储中。
type PauseGate struct{}

// Initialize 写入管理员，只能执行一次；初始为未暂停。
func (g *PauseGate) Initialize(env *host.Env, admin host.Identity) error {
	if admin == "" {
		return errors.New("trading: 管理员身份不能为空")
	}

	storage := env.Storage()
	if _, ok, err := storage.Get(keyAdmin); err != nil {
		return err
	} else if ok {
		return &Error{Code: CodeAlreadyInitialized, Op: "initialize"}
	}

	if err := storage.Put(keyAdmin, string(admin)); err != nil {
		return err
	}
	return storage.Put(keyPaused, strconv.FormatBool(false))
}

// Admin 返回管理员身份。
func (g *PauseGate) Admin(env *host.Env) (host.Identity, error) {
	admin, ok, err := env.Storage().Get(keyAdmin)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &Error{Code: CodeNotInitialized, Op: "admin"}
	}
	return host.Identity(admin), nil
}

// IsPaused 只读；未初始化的合约视为未暂停。
func (g *PauseGate) IsPaused(env *host.Env) (bool, error) {
	raw, ok, err := env.Storage().Get(keyPaused)
	if err != nil || !ok {
		return false, err
	}
	paused, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("trading: 暂停标志损坏 %q: %w", raw, err)
	}
	return paused, nil
}

// SetPause 仅管理员可调用，且 caller 必须在本次调用中完成授权。被拒绝时不改变状态。
func (g *PauseGate) SetPause(env *host.Env, caller host.Identity, value bool) error {
	admin, err := g.Admin(env)
	if err != nil {
		return err
	}
	if err := env.RequireAuth(caller); err != nil {
		return &Error{Code: CodeUnauthorized, Op: "set_pause", Err: err}
	}
	if caller != admin {
		return &Error{Code: CodeUnauthorized, Op: "set_pause"}
	}
	return env.Storage().Put(keyPaused, strconv.FormatBool(value))
}

// RequirePassable 在暂停时返回 Paused，必须是每个变更入口的第一步。
func (g *PauseGate) RequirePassable(env *host.Env) error {
	paused, err := g.IsPaused(env)
	if err != nil {
		return err
	}
	if paused {
		return &Error{Code: CodePaused, Op: "require_passable"}
	}
	return nil
}
