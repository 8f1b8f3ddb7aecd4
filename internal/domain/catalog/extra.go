package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// Overrides 从条目extra字段解析出的手工覆盖值
// 所有字段可选，nil表示未设置
type Overrides struct {
	Amount       *int
	Price        *int
	PriceDigital *int
	Printing     *bool

	// Invalid 无法解析的行（用于日志）
	Invalid []string
}

// ParseExtra 解析"key: value"格式的extra字段
// 支持的键：amount、price、price_digital、printing
// 未知键忽略；值格式错误的行记录到Invalid，不影响其他行
func ParseExtra(raw string) Overrides {
	var o Overrides
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		var err error
		switch key {
		case "amount":
			o.Amount, err = parseNonNegative(value)
		case "price":
			o.Price, err = parseNonNegative(value)
		case "price_digital":
			o.PriceDigital, err = parseNonNegative(value)
		case "printing":
			o.Printing, err = parseBool(value)
		default:
			continue
		}
		if err != nil {
			o.Invalid = append(o.Invalid, line)
		}
	}
	return o
}

func parseNonNegative(s string) (*int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("负数: %d", n)
	}
	return &n, nil
}

func parseBool(s string) (*bool, error) {
	var b bool
	switch strings.ToLower(s) {
	case "1", "true", "yes", "ja", "y":
		b = true
	case "0", "false", "no", "nein", "n":
		b = false
	default:
		return nil, fmt.Errorf("无法识别的布尔值: %s", s)
	}
	return &b, nil
}
