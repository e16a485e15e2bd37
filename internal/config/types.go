package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了系统运行所需的全部配置项。
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Contract ContractConfig `mapstructure:"contract"`
	Sandbox  SandboxConfig  `mapstructure:"sandbox"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Scenario ScenarioConfig `mapstructure:"scenario"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// ContractConfig 描述交易合约的部署参数。
type ContractConfig struct {
	// ID 为合约在宿主内的固定地址，持久化数据库跨进程复用同一状态。
	ID string `mapstructure:"id"`
	// Admin 为空时启动阶段会生成一个新的管理员身份。
	Admin string `mapstructure:"admin"`
	// StartPaused 为 true 时初始化后立即暂停。
	StartPaused bool `mapstructure:"start_paused"`
}

// SandboxConfig 控制 WASM 奖励组件的资源上限。
type SandboxConfig struct {
	CallTimeout      time.Duration `mapstructure:"call_timeout"`
	MemoryLimitPages uint32        `mapstructure:"memory_limit_pages"`
	RewardModule     string        `mapstructure:"reward_module"`
}

// DatabaseConfig 管理数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// MonitorConfig 控制监控接口。
type MonitorConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// ScenarioConfig 指定启动时执行的场景文件。
type ScenarioConfig struct {
	Path string `mapstructure:"path"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.Contract.ID == "" {
		err = multierr.Append(err, errors.New("contract.id 不能为空"))
	}
	if c.Sandbox.CallTimeout <= 0 {
		err = multierr.Append(err, errors.New("sandbox.call_timeout 必须大于0"))
	}
	if c.Sandbox.MemoryLimitPages == 0 || c.Sandbox.MemoryLimitPages > 65536 {
		err = multierr.Append(err, errors.New("sandbox.memory_limit_pages 必须位于[1,65536]"))
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}
	if c.Monitor.Enabled && (c.Monitor.Port <= 0 || c.Monitor.Port > 65535) {
		err = multierr.Append(err, errors.New("monitor.port 必须位于[1,65535]"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
