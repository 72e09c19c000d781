package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultThreadID 是会话记忆使用的固定线程标识，所有初始化共享同一段对话。
const DefaultThreadID = "CDP AgentKit Chatbot Example!"

// DefaultAutonomousPrompt 是自主模式每轮注入的固定提示。
const DefaultAutonomousPrompt = "Be creative and do something interesting on the blockchain. " +
	"Choose an action or set of actions and execute it that highlights your abilities."

// Config 描述了守护进程与命令行在启动阶段需要加载的配置。
type Config struct {
	Server   ServerConfig   `json:"server"`
	Agent    AgentConfig    `json:"agent"`
	LLM      LLMConfig      `json:"llm"`
	Storage  StorageConfig  `json:"storage"`
	Activity ActivityConfig `json:"activity"`
	Web3     Web3Config     `json:"web3"`
	Pyth     PythConfig     `json:"pyth"`
	Platform PlatformConfig `json:"platform"`
	Logging  LoggingConfig  `json:"logging"`
	Runtime  RuntimeConfig  `json:"runtime"`
}

// ServerConfig 控制 HTTP 服务的监听地址等参数。
type ServerConfig struct {
	Address                  string   `json:"address"`
	ReadHeaderTimeoutSeconds int      `json:"read_header_timeout_seconds"`
	ShutdownTimeoutSeconds   int      `json:"shutdown_timeout_seconds"`
	AllowedOrigins           []string `json:"allowed_origins"`
}

// AgentConfig 描述推理引擎与自主模式的行为。
type AgentConfig struct {
	ThreadID                  string `json:"thread_id"`
	MaxSteps                  int    `json:"max_steps"`
	Autonomous                bool   `json:"autonomous"`
	AutonomousPrompt          string `json:"autonomous_prompt"`
	AutonomousIntervalSeconds int    `json:"autonomous_interval_seconds"`
}

// AutonomousInterval 返回自主模式两轮之间的等待时长。
func (a AgentConfig) AutonomousInterval() time.Duration {
	return time.Duration(a.AutonomousIntervalSeconds) * time.Second
}

// LLMConfig 用于配置大模型推理的调用方式。
type LLMConfig struct {
	Provider       string  `json:"provider"`
	Model          string  `json:"model"`
	BaseURL        string  `json:"base_url"`
	Temperature    float32 `json:"temperature"`
	MaxTokens      int     `json:"max_tokens"`
	TopP           float32 `json:"top_p"`
	TimeoutSeconds int     `json:"timeout_seconds"`
}

// Timeout 返回单次模型调用的超时时间。
func (l LLMConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// StorageConfig 统一描述钱包存储与会话记忆的后端。
type StorageConfig struct {
	Wallet WalletStoreConfig `json:"wallet"`
	Memory MemoryConfig      `json:"memory"`
}

// WalletStoreConfig 选择钱包存储驱动：file、mysql 或 sqlite。
type WalletStoreConfig struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

// MemoryConfig 选择会话记忆驱动：memory 或 redis。
type MemoryConfig struct {
	Driver     string      `json:"driver"`
	Redis      RedisConfig `json:"redis"`
	TTLSeconds int         `json:"ttl_seconds"`
}

// RedisConfig 描述 Redis 连接参数。
type RedisConfig struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Key      string `json:"key"`
}

// ActivityConfig 选择自主模式输出的投递方式：log、redis 或 rabbitmq。
type ActivityConfig struct {
	Driver   string         `json:"driver"`
	Redis    RedisConfig    `json:"redis"`
	RabbitMQ RabbitMQConfig `json:"rabbitmq"`
}

// RabbitMQConfig 描述 RabbitMQ 连接参数。
type RabbitMQConfig struct {
	URL     string `json:"url"`
	Queue   string `json:"queue"`
	Durable bool   `json:"durable"`
}

// Web3Config 指定网络定义文件以及可选的 RPC 覆盖地址。
type Web3Config struct {
	NetworksFile string `json:"networks_file"`
	RPCURL       string `json:"rpc_url"`
}

// PythConfig 配置 Pyth Hermes 价格服务。
type PythConfig struct {
	BaseURL string `json:"base_url"`
}

// PlatformConfig 配置平台 API（水龙头等）。
type PlatformConfig struct {
	BaseURL string `json:"base_url"`
}

// LoggingConfig 映射到 pkg/logger 的配置。
type LoggingConfig struct {
	Level   string      `json:"level"`
	Format  string      `json:"format"`
	Outputs []string    `json:"outputs"`
	Audit   AuditConfig `json:"audit"`
}

// AuditConfig 描述审计日志文件。
type AuditConfig struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// RuntimeConfig 用于放置运行时的通用参数。
type RuntimeConfig struct {
	DataDir string `json:"data_dir"`
}

// Default 返回只包含默认值的配置。
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults(".")
	return cfg
}

// Load 负责解析指定路径的 JSON 配置文件。文件不存在时返回默认配置。
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("配置文件路径为空")
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := &Config{}
			cfg.applyDefaults(filepath.Dir(path))
			return cfg, nil
		}
		return nil, fmt.Errorf("打开配置文件失败: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))
	return &cfg, nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ReadHeaderTimeoutSeconds <= 0 {
		c.Server.ReadHeaderTimeoutSeconds = 5
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		c.Server.ShutdownTimeoutSeconds = 5
	}

	if c.Agent.ThreadID == "" {
		c.Agent.ThreadID = DefaultThreadID
	}
	if c.Agent.MaxSteps <= 0 {
		c.Agent.MaxSteps = 25
	}
	if strings.TrimSpace(c.Agent.AutonomousPrompt) == "" {
		c.Agent.AutonomousPrompt = DefaultAutonomousPrompt
	}
	if c.Agent.AutonomousIntervalSeconds <= 0 {
		c.Agent.AutonomousIntervalSeconds = 10
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 2048
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = 120
	}

	if c.Storage.Wallet.Driver == "" {
		c.Storage.Wallet.Driver = "file"
	}
	if c.Storage.Memory.Driver == "" {
		c.Storage.Memory.Driver = "memory"
	}
	if c.Storage.Memory.Redis.Key == "" {
		c.Storage.Memory.Redis.Key = "kluivert:checkpoint"
	}

	if c.Activity.Driver == "" {
		c.Activity.Driver = "log"
	}
	if c.Activity.Redis.Key == "" {
		c.Activity.Redis.Key = "kluivert:activity"
	}
	if c.Activity.RabbitMQ.Queue == "" {
		c.Activity.RabbitMQ.Queue = "kluivert.activity"
	}

	if c.Web3.NetworksFile != "" && !filepath.IsAbs(c.Web3.NetworksFile) {
		c.Web3.NetworksFile = filepath.Join(baseDir, c.Web3.NetworksFile)
	}

	if c.Pyth.BaseURL == "" {
		c.Pyth.BaseURL = "https://hermes.pyth.network"
	}
	if c.Platform.BaseURL == "" {
		c.Platform.BaseURL = "https://api.cdp.coinbase.com/platform"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	if c.Runtime.DataDir == "" {
		c.Runtime.DataDir = filepath.Join(baseDir, "data")
	} else if !filepath.IsAbs(c.Runtime.DataDir) {
		c.Runtime.DataDir = filepath.Join(baseDir, c.Runtime.DataDir)
	}

	if c.Logging.Audit.Enabled && c.Logging.Audit.Path == "" {
		c.Logging.Audit.Path = filepath.Join(c.Runtime.DataDir, "audit.log")
	}
}
