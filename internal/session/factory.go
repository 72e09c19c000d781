package session

import (
	"context"
	"errors"
	"fmt"

	"Kluivert-Agent/internal/agent"
	"Kluivert-Agent/internal/config"
	xerrors "Kluivert-Agent/internal/errors"
	"Kluivert-Agent/internal/llm"
	"Kluivert-Agent/internal/llm/openai"
	"Kluivert-Agent/internal/memory"
	"Kluivert-Agent/internal/platform"
	"Kluivert-Agent/internal/tools"
	"Kluivert-Agent/internal/wallet"
	"Kluivert-Agent/internal/web3"
	"Kluivert-Agent/internal/web3/provider"
	"Kluivert-Agent/pkg/logger"
)

// ModelBuilder 根据配置与凭据创建大模型客户端。
type ModelBuilder func(cfg config.LLMConfig, creds config.Credentials) (llm.Client, error)

// FaucetBuilder 根据凭据创建平台水龙头客户端。
type FaucetBuilder func(creds config.Credentials) (tools.Faucet, error)

// ChainSource 按网络标识提供链客户端。
type ChainSource interface {
	Client(ctx context.Context, networkID string) (web3.Client, web3.Network, error)
}

// Metadata 描述一次初始化得到的智能体。
type Metadata struct {
	Model         string   `json:"model"`
	Tools         []string `json:"tools"`
	WalletID      string   `json:"wallet_id,omitempty"`
	WalletAddress string   `json:"wallet_address"`
	NetworkID     string   `json:"network_id"`
	Resumed       bool     `json:"resumed"`
}

// Session 是初始化完成的智能体与其运行配置。
type Session struct {
	Agent    agent.Runnable
	Config   agent.RunConfig
	Metadata Metadata
}

// Factory 负责构建智能体会话。检查点存储由工厂持有，
// 因此同一工厂多次初始化得到的会话共享对话记忆。
type Factory struct {
	creds        config.Credentials
	llmCfg       config.LLMConfig
	agentCfg     config.AgentConfig
	platformURL  string
	store        wallet.Store
	saver        memory.Saver
	chains       ChainSource
	priceFeed    *tools.PriceFeed
	buildModel   ModelBuilder
	buildFaucet  FaucetBuilder
	systemPrompt string
}

// Option 定义可选的 Factory 配置。
type Option func(*Factory)

// WithLLMConfig 设置大模型参数。
func WithLLMConfig(cfg config.LLMConfig) Option {
	return func(f *Factory) { f.llmCfg = cfg }
}

// WithAgentConfig 设置线程标识与推理步数等参数。
func WithAgentConfig(cfg config.AgentConfig) Option {
	return func(f *Factory) { f.agentCfg = cfg }
}

// WithWalletStore 设置钱包存储。
func WithWalletStore(store wallet.Store) Option {
	return func(f *Factory) { f.store = store }
}

// WithSaver 设置检查点存储。
func WithSaver(saver memory.Saver) Option {
	return func(f *Factory) {
		if saver != nil {
			f.saver = saver
		}
	}
}

// WithChains 设置链客户端来源。
func WithChains(chains ChainSource) Option {
	return func(f *Factory) { f.chains = chains }
}

// WithPriceFeed 设置 Pyth 价格服务。
func WithPriceFeed(feed *tools.PriceFeed) Option {
	return func(f *Factory) { f.priceFeed = feed }
}

// WithPlatformURL 设置平台 API 地址。
func WithPlatformURL(url string) Option {
	return func(f *Factory) { f.platformURL = url }
}

// WithModelBuilder 替换大模型客户端的构建方式。
func WithModelBuilder(b ModelBuilder) Option {
	return func(f *Factory) {
		if b != nil {
			f.buildModel = b
		}
	}
}

// WithFaucetBuilder 替换水龙头客户端的构建方式。
func WithFaucetBuilder(b FaucetBuilder) Option {
	return func(f *Factory) { f.buildFaucet = b }
}

// WithSystemPrompt 覆盖默认的系统指令。
func WithSystemPrompt(prompt string) Option {
	return func(f *Factory) {
		if prompt != "" {
			f.systemPrompt = prompt
		}
	}
}

// NewFactory 创建会话工厂。
func NewFactory(creds config.Credentials, opts ...Option) *Factory {
	defaults := config.Default()
	f := &Factory{
		creds:        creds,
		llmCfg:       defaults.LLM,
		agentCfg:     defaults.Agent,
		platformURL:  defaults.Platform.BaseURL,
		systemPrompt: SystemPrompt,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	if f.saver == nil {
		f.saver = memory.NewMemorySaver()
	}
	if f.agentCfg.ThreadID == "" {
		f.agentCfg.ThreadID = config.DefaultThreadID
	}
	if f.buildModel == nil {
		f.buildModel = OpenAIModel
	}
	if f.buildFaucet == nil {
		platformURL := f.platformURL
		f.buildFaucet = func(creds config.Credentials) (tools.Faucet, error) {
			client, err := platform.NewClient(platform.Config{
				BaseURL:    platformURL,
				KeyName:    creds.PlatformKeyName,
				PrivateKey: creds.PlatformPrivateKey,
			})
			if err != nil {
				return nil, err
			}
			return client, nil
		}
	}
	if f.chains == nil {
		if networks, err := web3.DefaultNetworks(); err == nil {
			f.chains = provider.NewRegistry(networks)
		}
	}
	return f
}

// OpenAIModel 是默认的 ModelBuilder。
func OpenAIModel(cfg config.LLMConfig, creds config.Credentials) (llm.Client, error) {
	client, err := openai.NewClient(openai.Config{
		APIKey:      creds.OpenAIAPIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		TopP:        cfg.TopP,
		Timeout:     cfg.Timeout(),
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// ThreadID 返回工厂创建的会话所使用的线程标识。
func (f *Factory) ThreadID() string {
	return f.agentCfg.ThreadID
}

// Initialize 构建一个新的智能体会话：创建模型、恢复或新建钱包、组装工具、
// 绑定检查点存储，并在返回前写回钱包状态。任一步骤失败都不会返回部分结果。
func (f *Factory) Initialize(ctx context.Context) (*Session, error) {
	log := logger.Named("session")

	model, err := f.buildModel(f.llmCfg, f.creds)
	if err != nil {
		return nil, initFailure(err, "创建大模型客户端失败")
	}

	var prior wallet.Data
	if f.store != nil {
		data, ok, err := f.store.Load(ctx)
		switch {
		case err != nil:
			log.Warn("读取钱包状态失败，将创建新钱包", "error", err)
		case ok:
			prior = data
		}
	}

	if f.chains == nil {
		return nil, initFailure(errors.New("未配置链客户端来源"), "初始化链客户端失败")
	}
	chain, network, err := f.chains.Client(ctx, f.creds.NetworkID)
	if err != nil {
		return nil, initFailure(err, "初始化链客户端失败")
	}

	walletProvider, err := wallet.NewProvider(ctx, wallet.ProviderConfig{
		KeyName: f.creds.PlatformKeyName,
		Network: network,
		Client:  chain,
		Data:    prior,
	})
	if err != nil {
		return nil, initFailure(err, "初始化钱包失败")
	}

	var faucet tools.Faucet
	if network.Faucet && f.buildFaucet != nil {
		faucet, err = f.buildFaucet(f.creds)
		if err != nil {
			return nil, initFailure(err, "创建平台客户端失败")
		}
	}

	toolset, err := tools.Toolkit{Wallet: walletProvider, PriceFeed: f.priceFeed, Faucet: faucet}.Build()
	if err != nil {
		return nil, initFailure(err, "组装工具失败")
	}

	engine := agent.New(model, toolset,
		agent.WithSaver(f.saver),
		agent.WithSystemPrompt(f.systemPrompt),
		agent.WithMaxSteps(f.agentCfg.MaxSteps),
		agent.WithLLMTimeout(f.llmCfg.Timeout()),
	)

	exported, err := walletProvider.Export()
	if err != nil {
		return nil, initFailure(err, "导出钱包失败")
	}
	if f.store != nil {
		if err := f.store.Save(ctx, exported); err != nil {
			return nil, initFailure(err, "保存钱包状态失败")
		}
		logger.Audit().Info("wallet_saved",
			"wallet_id", walletProvider.WalletID(),
			"address", walletProvider.Address().Hex(),
			"network_id", network.ID,
			"resumed", walletProvider.Resumed(),
		)
	}

	meta := Metadata{
		Model:         modelName(model, f.llmCfg),
		Tools:         toolset.Names(),
		WalletID:      walletProvider.WalletID(),
		WalletAddress: walletProvider.Address().Hex(),
		NetworkID:     network.ID,
		Resumed:       walletProvider.Resumed(),
	}
	log.Info("智能体初始化完成", "address", meta.WalletAddress, "network_id", meta.NetworkID,
		"tools", len(meta.Tools), "resumed", meta.Resumed)

	return &Session{
		Agent:    engine,
		Config:   agent.RunConfig{ThreadID: f.agentCfg.ThreadID},
		Metadata: meta,
	}, nil
}

func initFailure(err error, message string) error {
	return xerrors.Wrap(xerrors.CodeAgentInitialization, err, message)
}

func modelName(model llm.Client, cfg config.LLMConfig) string {
	if named, ok := model.(interface{ Model() string }); ok {
		return named.Model()
	}
	if cfg.Model != "" {
		return cfg.Model
	}
	return fmt.Sprintf("%T", model)
}
