package safecall

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"

	"tradegate/internal/host"
)

// Code 为跨组件调用结果的分类码。
type Code uint32

const (
	// CodeOK 表示被调方未异常终止。
	CodeOK Code = 0
	// CallFailed 表示被调方异常终止或无法调用。不区分具体原因。
	CallFailed Code = 2001
)

// Outcome 为一次隔离调用的结果，不携带被调方的 panic 内容。
type Outcome struct {
	Code Code
	// Value 为被调方正常返回的值。
	Value any
	// CalleeErr 为被调方正常返回的类型化错误，此时 Code 仍为 CodeOK。
	CalleeErr error
}

// Succeeded 报告被调方是否正常结束。
func (o Outcome) Succeeded() bool {
	return o.Code == CodeOK
}

// Recorder 接收调用结果统计。
type Recorder interface {
	ObserveOutcome(target host.ComponentRef, entryPoint string, code Code)
}

// Invoker 在故障隔离边界内调用其他组件。
type Invoker struct {
	logger   *zap.Logger
	recorder Recorder
}

// NewInvoker 创建 Invoker，recorder 可为 nil。
func NewInvoker(logger *zap.Logger, recorder Recorder) *Invoker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invoker{logger: logger, recorder: recorder}
}

// Invoke 调用 target 的 entryPoint。被调方的写入位于独立保存点内：
// 正常返回时保留，返回错误或异常终止时撤销。异常终止被转换为 CallFailed，
// 调用方必须据此让整个调用失败。
func (i *Invoker) Invoke(env *host.Env, target host.ComponentRef, entryPoint string, args ...any) Outcome {
	outcome := i.invoke(env, target, entryPoint, host.Args(args))
	if i.recorder != nil {
		i.recorder.ObserveOutcome(target, entryPoint, outcome.Code)
	}
	return outcome
}

func (i *Invoker) invoke(env *host.Env, target host.ComponentRef, entryPoint string, args host.Args) Outcome {
	log := i.logger.With(
		zap.String("invocation_id", env.InvocationID()),
		zap.String("target", string(target)),
		zap.String("entry", entryPoint),
	)

	component, err := env.Resolve(target)
	if err != nil {
		log.Warn("跨组件调用目标不可用", zap.Error(err))
		return Outcome{Code: CallFailed}
	}

	sp, err := env.Savepoint()
	if err != nil {
		log.Error("创建跨组件调用保存点失败", zap.Error(err))
		return Outcome{Code: CallFailed}
	}

	value, callErr := call(env.Frame(target), component, entryPoint, args)
	if host.IsFault(callErr) {
		if rbErr := sp.Rollback(); rbErr != nil {
			log.Error("回滚被调方写入失败", zap.Error(rbErr))
		}
		log.Warn("跨组件调用异常终止", zap.Error(callErr))
		return Outcome{Code: CallFailed}
	}

	if callErr != nil {
		if rbErr := sp.Rollback(); rbErr != nil {
			log.Error("回滚被调方写入失败", zap.Error(rbErr))
			return Outcome{Code: CallFailed}
		}
		log.Debug("被调方返回类型化错误", zap.Error(callErr))
		return Outcome{Code: CodeOK, CalleeErr: callErr}
	}

	if err := sp.Release(); err != nil {
		log.Error("释放跨组件调用保存点失败", zap.Error(err))
		return Outcome{Code: CallFailed}
	}
	return Outcome{Code: CodeOK, Value: value}
}

// call 执行被调方，panic 被转换为 *host.Fault。
func call(env *host.Env, component host.Component, entryPoint string, args host.Args) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			reason := fmt.Sprint(r)
			if re, ok := r.(runtime.Error); ok {
				reason = "runtime: " + re.Error()
			}
			value, err = nil, &host.Fault{Component: env.Current(), Reason: reason}
		}
	}()
	return component.Invoke(env, entryPoint, args)
}
