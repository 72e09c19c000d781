package wallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"Kluivert-Agent/internal/web3"
	"Kluivert-Agent/pkg/logger"
)

// export 是钱包导出文档的结构。
type export struct {
	WalletID         string `json:"wallet_id"`
	Seed             string `json:"seed"`
	NetworkID        string `json:"network_id"`
	DefaultAddressID string `json:"default_address_id"`
}

// ProviderConfig 描述构建钱包提供者所需的信息。
type ProviderConfig struct {
	// KeyName 为平台 API Key 名称，仅作为钱包元数据记录。
	KeyName string
	Network web3.Network
	Client  web3.Client
	// Data 为之前导出的钱包状态，为空时创建新钱包。
	Data Data
}

// Provider 持有智能体的链上身份，并为工具提供签名能力。
type Provider struct {
	walletID string
	keyName  string
	key      *ecdsa.PrivateKey
	address  common.Address
	network  web3.Network
	client   web3.Client
	resumed  bool
}

// NewProvider 从导出数据恢复钱包，没有导出数据时生成新的密钥。
func NewProvider(_ context.Context, cfg ProviderConfig) (*Provider, error) {
	if strings.TrimSpace(cfg.Network.ID) == "" {
		return nil, errors.New("钱包提供者缺少网络配置")
	}

	p := &Provider{keyName: cfg.KeyName, network: cfg.Network, client: cfg.Client}
	if len(cfg.Data) == 0 {
		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("生成钱包密钥失败: %w", err)
		}
		p.key = key
		p.walletID = uuid.NewString()
		p.address = crypto.PubkeyToAddress(key.PublicKey)
		return p, nil
	}

	var doc export
	if err := json.Unmarshal(cfg.Data, &doc); err != nil {
		return nil, fmt.Errorf("解析钱包数据失败: %w", err)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(doc.Seed), "0x"))
	if err != nil {
		return nil, fmt.Errorf("钱包数据中的 seed 无效: %w", err)
	}
	address := crypto.PubkeyToAddress(key.PublicKey)
	if doc.DefaultAddressID != "" && !strings.EqualFold(doc.DefaultAddressID, address.Hex()) {
		return nil, fmt.Errorf("钱包地址 %s 与 seed 推导的地址 %s 不一致", doc.DefaultAddressID, address.Hex())
	}

	if doc.NetworkID != "" && doc.NetworkID != cfg.Network.ID {
		logger.Named("wallet").Warn("钱包数据的网络与当前配置不一致，以当前配置为准",
			"address", address.Hex(),
			"stored_network", doc.NetworkID,
			"configured_network", cfg.Network.ID,
		)
	}

	p.key = key
	p.address = address
	p.walletID = doc.WalletID
	if p.walletID == "" {
		p.walletID = uuid.NewString()
	}
	p.resumed = true
	return p, nil
}

// WalletID 返回钱包标识。
func (p *Provider) WalletID() string { return p.walletID }

// Address 返回默认地址。
func (p *Provider) Address() common.Address { return p.address }

// Network 返回钱包所在网络。
func (p *Provider) Network() web3.Network { return p.network }

// Client 返回链客户端，可能为 nil。
func (p *Provider) Client() web3.Client { return p.client }

// Resumed 表示钱包是否从已有数据恢复。
func (p *Provider) Resumed() bool { return p.resumed }

// ChainClient 返回链客户端，未配置时返回错误。
func (p *Provider) ChainClient() (web3.Client, error) {
	if p.client == nil {
		return nil, fmt.Errorf("网络 %s 未配置链客户端", p.network.ID)
	}
	return p.client, nil
}

// Transactor 返回绑定当前网络链 ID 的交易签名器。
func (p *Provider) Transactor(ctx context.Context) (*bind.TransactOpts, error) {
	chainID := big.NewInt(p.network.ChainID)
	if p.network.ChainID == 0 {
		client, err := p.ChainClient()
		if err != nil {
			return nil, err
		}
		chainID, err = client.ChainID(ctx)
		if err != nil {
			return nil, err
		}
	}
	opts, err := bind.NewKeyedTransactorWithChainID(p.key, chainID)
	if err != nil {
		return nil, fmt.Errorf("创建交易签名器失败: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

// Export 导出当前钱包状态，写回存储后可在重启时恢复。
func (p *Provider) Export() (Data, error) {
	encoded, err := json.Marshal(export{
		WalletID:         p.walletID,
		Seed:             hex.EncodeToString(crypto.FromECDSA(p.key)),
		NetworkID:        p.network.ID,
		DefaultAddressID: p.address.Hex(),
	})
	if err != nil {
		return nil, fmt.Errorf("导出钱包失败: %w", err)
	}
	return Data(encoded), nil
}
