package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"Kluivert-Agent/internal/activity"
	"Kluivert-Agent/internal/config"
	xerrors "Kluivert-Agent/internal/errors"
	"Kluivert-Agent/internal/memory"
	"Kluivert-Agent/internal/session"
	"Kluivert-Agent/internal/storage"
	"Kluivert-Agent/internal/tools"
	"Kluivert-Agent/internal/web3"
	"Kluivert-Agent/internal/web3/provider"
	"Kluivert-Agent/pkg/logger"
)

// EnvConfigPath 指定配置文件路径的环境变量。
const EnvConfigPath = "KLUIVERT_CONFIG"

// App 汇总守护进程与命令行共享的组件。
type App struct {
	Config      *config.Config
	Credentials config.Credentials
	Factory     *session.Factory
	Publisher   *activity.Fanout

	closers []func() error
}

// LoadEnvFiles 依次加载存在的 .env 文件，已设置的变量不会被覆盖。
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env", ".env.local"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("加载环境文件 %s 失败: %w", path, err)
		}
	}
	return nil
}

// ConfigPath 返回配置文件路径。
func ConfigPath() string {
	if path := strings.TrimSpace(os.Getenv(EnvConfigPath)); path != "" {
		return path
	}
	return filepath.Join("configs", "kluivert.json")
}

// ReportMissing 为每个缺失的变量输出一行占位提示。
func ReportMissing(w io.Writer, err error) {
	if !xerrors.HasCode(err, xerrors.CodeConfiguration) {
		return
	}
	missing := config.MissingVariables(err)
	if len(missing) == 0 {
		return
	}
	fmt.Fprintln(w, "Error: Required environment variables are not set")
	for _, name := range missing {
		fmt.Fprintf(w, "%s=your_%s_here\n", name, strings.ToLower(name))
	}
}

// Bootstrap 加载配置、初始化日志并组装会话工厂。凭据校验须在调用前完成。
func Bootstrap(ctx context.Context, creds config.Credentials, configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(logger.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Outputs: cfg.Logging.Outputs,
		Audit: logger.AuditConfig{
			Enabled:    cfg.Logging.Audit.Enabled,
			Path:       cfg.Logging.Audit.Path,
			MaxSizeMB:  cfg.Logging.Audit.MaxSizeMB,
			MaxBackups: cfg.Logging.Audit.MaxBackups,
			MaxAgeDays: cfg.Logging.Audit.MaxAgeDays,
		},
	}); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Runtime.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}

	a := &App{Config: cfg, Credentials: creds}
	a.closers = append(a.closers, logger.Sync)
	fail := func(err error) (*App, error) {
		a.Close()
		return nil, err
	}

	store, err := storage.OpenWalletStore(ctx, cfg.Storage.Wallet, cfg.Runtime.DataDir, creds.WalletStoreDSN)
	if err != nil {
		return fail(err)
	}

	var saver memory.Saver = memory.NewMemorySaver()
	if strings.EqualFold(cfg.Storage.Memory.Driver, "redis") {
		redisSaver, err := memory.NewRedisSaver(ctx, memory.RedisConfig{
			Address:  cfg.Storage.Memory.Redis.Address,
			Password: cfg.Storage.Memory.Redis.Password,
			DB:       cfg.Storage.Memory.Redis.DB,
			Prefix:   cfg.Storage.Memory.Redis.Key,
			TTL:      time.Duration(cfg.Storage.Memory.TTLSeconds) * time.Second,
		})
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, redisSaver.Close)
		saver = redisSaver
	}

	networks, err := web3.LoadNetworks(cfg.Web3.NetworksFile)
	if err != nil {
		return fail(err)
	}
	chains := provider.NewRegistry(networks,
		provider.WithRPCOverride(cfg.Web3.RPCURL),
		provider.WithDialer(dialChain),
	)
	a.closers = append(a.closers, func() error {
		if connected := chains.Chains(); len(connected) > 0 {
			logger.L().Info("关闭链客户端", "networks", connected)
		}
		chains.Close()
		return nil
	})

	publisher, err := activity.Open(ctx, cfg.Activity)
	if err != nil {
		return fail(err)
	}
	a.Publisher = publisher
	a.closers = append(a.closers, publisher.Close)

	a.Factory = session.NewFactory(creds,
		session.WithLLMConfig(cfg.LLM),
		session.WithAgentConfig(cfg.Agent),
		session.WithWalletStore(store),
		session.WithSaver(saver),
		session.WithChains(chains),
		session.WithPriceFeed(tools.NewPriceFeed(cfg.Pyth.BaseURL, nil)),
		session.WithPlatformURL(cfg.Platform.BaseURL),
	)

	logger.L().Info("组件初始化完成",
		"network_id", creds.NetworkID,
		"wallet_store", cfg.Storage.Wallet.Driver,
		"memory", cfg.Storage.Memory.Driver,
		"activity", cfg.Activity.Driver,
		"model", cfg.LLM.Model,
	)
	return a, nil
}

// dialChain 在首次连接某个网络时记录日志，RPC 地址可能包含密钥因此不输出。
func dialChain(ctx context.Context, network web3.Network) (web3.Client, error) {
	log := logger.Named("web3")
	client, err := provider.DialEthereum(ctx, network)
	if err != nil {
		log.Warn("连接链节点失败", "network", network.ID, "error", err)
		return nil, err
	}
	log.Info("已连接链节点", "network", network.ID, "chain_id", network.ChainID)
	return client, nil
}

// Close 按创建的逆序释放资源。
func (a *App) Close() {
	if a == nil {
		return
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.L().Warn("释放资源失败", "error", err)
		}
	}
	a.closers = nil
}
