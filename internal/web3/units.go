package web3

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseUnits converts a decimal string such as "0.015" into base units using
// the given number of decimals.
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("金额不能为空")
	}
	if strings.HasPrefix(amount, "-") {
		return nil, fmt.Errorf("金额不能为负数: %s", amount)
	}

	whole, frac, _ := strings.Cut(amount, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("金额 %s 的小数位超过 %d 位", amount, decimals)
	}
	frac += strings.Repeat("0", int(decimals)-len(frac))

	value, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("无法解析金额: %s", amount)
	}
	return value, nil
}

// FormatUnits renders base units as a decimal string without trailing zeros.
func FormatUnits(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	negative := value.Sign() < 0
	digits := new(big.Int).Abs(value).String()
	if decimals > 0 {
		if len(digits) <= int(decimals) {
			digits = strings.Repeat("0", int(decimals)-len(digits)+1) + digits
		}
		point := len(digits) - int(decimals)
		whole, frac := digits[:point], strings.TrimRight(digits[point:], "0")
		digits = whole
		if frac != "" {
			digits += "." + frac
		}
	}
	if negative {
		return "-" + digits
	}
	return digits
}
