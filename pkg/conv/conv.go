// Package conv 提供类型转换工具，用于在数据源边界把原生值转为不透明 ID 与表达式可用的值。
package conv

import (
	"math"
	"strconv"
	"strings"
)

// ToID 将 any 转为不透明 ID 字符串。
// string 去除首尾空白；整数直接格式化；只有整数值的浮点数按整数格式化。
// nil、空串、NaN/Inf 与其他类型返回 ("", false)。
func ToID(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(val)
		return s, s != ""
	case int:
		return strconv.Itoa(val), true
	case int32:
		return strconv.FormatInt(int64(val), 10), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) || val != math.Trunc(val) {
			return "", false
		}
		return strconv.FormatInt(int64(val), 10), true
	default:
		return "", false
	}
}

// Normalize 把数值类型统一为 int64 / float64，方便 CEL 表达式比较。
// 其他类型原样返回。
func Normalize(v any) any {
	switch val := v.(type) {
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case float32:
		return float64(val)
	default:
		return v
	}
}

// SplitList 把逗号分隔的字符串拆为去空白、去空项的列表。
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
