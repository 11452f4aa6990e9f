// internal/models/game_state.go
package models

import (
	"slices"
	"strings"
	"time"

	apperrors "github.com/Corphon/FutureGate/internal/errors"
)

// GameState 单个玩家会话的游戏进度。
// 由持有它的会话独占写入，层级始终等于已做选择的数量。
type GameState struct {
	decisions []DecisionRecord
	now       func() time.Time
}

// NewGameState 创建空的游戏状态（第0层）
func NewGameState() *GameState {
	return &GameState{
		decisions: make([]DecisionRecord, 0, MaxLevel),
		now:       time.Now,
	}
}

// AppendDecision 追加一个决定并返回新的层级。
// 第6层之后调用返回 AlreadyComplete 错误，状态保持不变。
func (s *GameState) AppendDecision(d Decision) (int, error) {
	if !d.Valid() {
		return s.Level(), apperrors.NewValidationError("无效的选择", nil)
	}
	if !s.CanChoose() {
		return s.Level(), apperrors.NewAlreadyCompleteError(s.Level())
	}

	s.decisions = append(s.decisions, DecisionRecord{
		Decision: d,
		Level:    len(s.decisions),
		MadeAt:   s.now(),
	})
	return s.Level(), nil
}

// Reset 回到第0层
func (s *GameState) Reset() {
	s.decisions = s.decisions[:0]
}

// IsComplete 是否已完成全部选择
func (s *GameState) IsComplete() bool {
	return s.Level() >= MaxLevel
}

// CanChoose 是否还能继续选择
func (s *GameState) CanChoose() bool {
	return s.Level() < MaxLevel
}

// Level 已做选择的数量
func (s *GameState) Level() int {
	return len(s.decisions)
}

// Remaining 剩余选择次数
func (s *GameState) Remaining() int {
	return MaxLevel - s.Level()
}

// PathCode 按顺序拼接的决定编码，例如 "RBR"
func (s *GameState) PathCode() string {
	var b strings.Builder
	b.Grow(len(s.decisions))
	for _, rec := range s.decisions {
		b.WriteByte(rec.Decision.Symbol())
	}
	return b.String()
}

// Path 已做出的决定序列
func (s *GameState) Path() []Decision {
	path := make([]Decision, len(s.decisions))
	for i, rec := range s.decisions {
		path[i] = rec.Decision
	}
	return path
}

// Decisions 返回带时间和层级的选择记录副本
func (s *GameState) Decisions() []DecisionRecord {
	return slices.Clone(s.decisions)
}

// Count 统计某个决定出现的次数
func (s *GameState) Count(d Decision) int {
	n := 0
	for _, rec := range s.decisions {
		if rec.Decision == d {
			n++
		}
	}
	return n
}
