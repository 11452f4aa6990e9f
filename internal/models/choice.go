// internal/models/choice.go
package models

import (
	"fmt"
	"strings"
	"time"
)

// MaxLevel 一次完整游玩的选择次数
const MaxLevel = 6

// Decision 玩家在某一层做出的二选一决定。
// 只有 DecisionRed 与 DecisionBlue 两个取值，其字节同时用作内存路径元素和数据集键字符。
type Decision byte

const (
	DecisionRed  Decision = 'R'
	DecisionBlue Decision = 'B'
)

// AllDecisions 按固定顺序返回全部决定，用于路径枚举
func AllDecisions() []Decision {
	return []Decision{DecisionRed, DecisionBlue}
}

// Valid 判断是否为合法的决定
func (d Decision) Valid() bool {
	switch d {
	case DecisionRed, DecisionBlue:
		return true
	}
	return false
}

// Symbol 返回单字符编码
func (d Decision) Symbol() byte {
	return byte(d)
}

func (d Decision) String() string {
	if !d.Valid() {
		return "?"
	}
	return string(rune(d))
}

// Label 返回人类可读名称
func (d Decision) Label() string {
	switch d {
	case DecisionRed:
		return "Red"
	case DecisionBlue:
		return "Blue"
	default:
		return "Unknown"
	}
}

// DisplayName 返回路径树中显示的中文名称
func (d Decision) DisplayName() string {
	switch d {
	case DecisionRed:
		return "红色"
	case DecisionBlue:
		return "蓝色"
	default:
		return "未知"
	}
}

// Icon 返回紧凑路径中使用的图标
func (d Decision) Icon() string {
	switch d {
	case DecisionRed:
		return "🔴"
	case DecisionBlue:
		return "🔵"
	default:
		return "❓"
	}
}

// ParseDecision 解析 "R"/"B" 或 "red"/"blue"（不区分大小写）
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "r", "red":
		return DecisionRed, nil
	case "b", "blue":
		return DecisionBlue, nil
	}
	return 0, fmt.Errorf("无效的选择: %q", s)
}

// DecisionFromSymbol 将路径编码中的单个字符还原为决定
func DecisionFromSymbol(c byte) (Decision, bool) {
	d := Decision(c)
	return d, d.Valid()
}

// MarshalText 以单字符形式序列化
func (d Decision) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("无效的选择: %d", d)
	}
	return []byte{byte(d)}, nil
}

// UnmarshalText 接受 ParseDecision 支持的所有形式
func (d *Decision) UnmarshalText(text []byte) error {
	parsed, err := ParseDecision(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DecisionRecord 一次已完成的选择
type DecisionRecord struct {
	Decision Decision  `json:"decision"`
	Level    int       `json:"level"` // 做出选择时所在层级，从0开始
	MadeAt   time.Time `json:"made_at"`
}
