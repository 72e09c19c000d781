package config

import (
	"fmt"
	"os"
	"strings"

	xerrors "Kluivert-Agent/internal/errors"
)

// 环境变量名称。
const (
	EnvOpenAIAPIKey       = "OPENAI_API_KEY"
	EnvPlatformKeyName    = "CDP_API_KEY_NAME"
	EnvPlatformPrivateKey = "CDP_API_KEY_PRIVATE_KEY"
	EnvNetworkID          = "NETWORK_ID"
	EnvWalletStoreDSN     = "WALLET_STORE_DSN"

	// legacyPrefix 兼容早期前端部署时使用的变量名。
	legacyPrefix = "NEXT_PUBLIC_"
)

// DefaultNetworkID 是未配置 NETWORK_ID 时使用的公共测试网。
const DefaultNetworkID = "base-sepolia"

// Credentials 是进程启动时读取一次、之后不再变化的密钥集合。
type Credentials struct {
	OpenAIAPIKey       string
	PlatformKeyName    string
	PlatformPrivateKey string
	NetworkID          string
	WalletStoreDSN     string
}

// LookupFunc 与 os.LookupEnv 签名一致，便于测试注入。
type LookupFunc func(key string) (string, bool)

// RequiredVariables 返回启动时必须存在的变量名。
func RequiredVariables() []string {
	return []string{EnvOpenAIAPIKey, EnvPlatformKeyName, EnvPlatformPrivateKey}
}

// ValidateEnvironment 校验必需的变量均已设置，并返回解析后的凭据。
// 缺少任一必需变量时返回 CONFIGURATION_ERROR，错误中列出所有缺失项；
// 缺少 NETWORK_ID 仅产生警告并使用默认网络。
func ValidateEnvironment(lookup LookupFunc) (Credentials, []string, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var missing []string
	values := make(map[string]string, 3)
	for _, name := range RequiredVariables() {
		value := lookupWithLegacy(lookup, name)
		if value == "" {
			missing = append(missing, name)
			continue
		}
		values[name] = value
	}
	if len(missing) > 0 {
		return Credentials{}, nil, xerrors.New(xerrors.CodeConfiguration,
			fmt.Sprintf("缺少必需的环境变量: %s", strings.Join(missing, ", ")),
			xerrors.WithMetadata("missing", strings.Join(missing, ",")),
		)
	}

	var warnings []string
	networkID := lookupWithLegacy(lookup, EnvNetworkID)
	if networkID == "" {
		networkID = DefaultNetworkID
		warnings = append(warnings, fmt.Sprintf("%s 未设置，默认使用 %s 测试网", EnvNetworkID, DefaultNetworkID))
	}

	return Credentials{
		OpenAIAPIKey:       values[EnvOpenAIAPIKey],
		PlatformKeyName:    values[EnvPlatformKeyName],
		PlatformPrivateKey: NormalizePrivateKey(values[EnvPlatformPrivateKey]),
		NetworkID:          networkID,
		WalletStoreDSN:     lookupWithLegacy(lookup, EnvWalletStoreDSN),
	}, warnings, nil
}

// MissingVariables 从 CONFIGURATION_ERROR 中取出缺失的变量名。
func MissingVariables(err error) []string {
	e, ok := xerrors.From(err)
	if !ok || e.Code() != xerrors.CodeConfiguration {
		return nil
	}
	raw := e.Metadata()["missing"]
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// NormalizePrivateKey 将字面量 "\n" 还原为真正的换行符。
func NormalizePrivateKey(key string) string {
	return strings.ReplaceAll(strings.TrimSpace(key), `\n`, "\n")
}

func lookupWithLegacy(lookup LookupFunc, name string) string {
	if value, ok := lookup(name); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	if value, ok := lookup(legacyPrefix + name); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return ""
}
