// internal/services/navigator.go
package services

import (
	"fmt"
	"slices"
	"strings"

	apperrors "github.com/Corphon/FutureGate/internal/errors"
	"github.com/Corphon/FutureGate/internal/models"
)

// PathState 导航所需的只读游戏进度
type PathState interface {
	PathCode() string
	Level() int
	CanChoose() bool
	IsComplete() bool
}

// PathNavigator 根据路径编码解析当前故事、选择和结局。
// 只读取数据集，不修改任何状态，可在所有会话间共享。
type PathNavigator struct {
	story *models.StoryData
}

// NewPathNavigator 创建导航器
func NewPathNavigator(story *models.StoryData) *PathNavigator {
	return &PathNavigator{story: story}
}

// Story 返回底层数据集
func (n *PathNavigator) Story() *models.StoryData {
	return n.story
}

// CurrentPassage 空路径返回开场故事，否则按路径编码查找。
// 找不到时返回 DatasetGap 错误。
func (n *PathNavigator) CurrentPassage(state PathState) (*models.Passage, error) {
	code := state.PathCode()
	passage, ok := n.story.PassageFor(code)
	if !ok {
		return nil, apperrors.NewDatasetGapError(fmt.Sprintf("路径 %s 没有对应的故事", code))
	}
	return &passage, nil
}

// CurrentChoicePrompt 返回当前层级的选择提示；已完成时返回 nil, nil。
// 还能选择却找不到提示时返回 DatasetGap 错误。
func (n *PathNavigator) CurrentChoicePrompt(state PathState) (*models.ChoicePrompt, error) {
	if !state.CanChoose() {
		return nil, nil
	}
	level := state.Level()
	prompt, ok := n.story.ChoiceAt(level)
	if !ok {
		return nil, apperrors.NewDatasetGapError(fmt.Sprintf("第 %d 层没有选择提示", level))
	}
	return &prompt, nil
}

// TerminalPassage 所有64条完整路径共用同一个结局
func (n *PathNavigator) TerminalPassage() models.Passage {
	return n.story.Ending()
}

// TreeVisualization 生成逐层缩进的路径树
func (n *PathNavigator) TreeVisualization(state PathState) string {
	var tree strings.Builder
	tree.WriteString("故事路径树:\n")

	path := state.PathCode()
	level := state.Level()
	for i := 0; i <= level && i < models.MaxLevel; i++ {
		prefix := strings.Repeat("  ", i)
		if i < level {
			d, _ := models.DecisionFromSymbol(path[i])
			fmt.Fprintf(&tree, "%s├─ Level %d: %s\n", prefix, i+1, d.Label())
		} else if state.CanChoose() {
			fmt.Fprintf(&tree, "%s├─ Level %d: [当前选择]\n", prefix, i+1)
		}
	}

	if state.IsComplete() {
		fmt.Fprintf(&tree, "%s└─ 完整路径: %s\n", strings.Repeat("  ", level), path)
	}
	return tree.String()
}

const treeRule = "════════════\n"

// DetailedTree 带根节点的完整路径树：六个层级各占一行，
// 依次为已做的决定、当前选择和尚未到达的层级，完成后附加结局标记。
func (n *PathNavigator) DetailedTree(state PathState) string {
	var tree strings.Builder
	tree.WriteString("故事路径树:\n")
	tree.WriteString(treeRule)
	tree.WriteString("📚 开始\n")

	path := state.PathCode()
	level := state.Level()
	for i := 0; i < models.MaxLevel; i++ {
		indent := strings.Repeat("  ", i+1)
		switch {
		case i < level:
			d, _ := models.DecisionFromSymbol(path[i])
			fmt.Fprintf(&tree, "%s├─ %s %s (Level %d)\n", indent, d.Icon(), d.DisplayName(), i+1)
		case i == level && state.CanChoose():
			fmt.Fprintf(&tree, "%s├─ ❓ [当前选择] (Level %d)\n", indent, i+1)
		default:
			fmt.Fprintf(&tree, "%s├─ ⚪ [未选择] (Level %d)\n", indent, i+1)
		}
	}

	if state.IsComplete() {
		tree.WriteString("  └─ 🎯 故事完成!\n")
		fmt.Fprintf(&tree, "     完整路径: %s\n", path)
	}
	tree.WriteString(treeRule)
	return tree.String()
}

// TreeView 路径树的三种文字形式
type TreeView struct {
	Tree     string `json:"tree"`
	Detailed string `json:"detailed"`
	Compact  string `json:"compact"`
}

// Trees 同时生成三种路径树
func (n *PathNavigator) Trees(state PathState) TreeView {
	return TreeView{
		Tree:     n.TreeVisualization(state),
		Detailed: n.DetailedTree(state),
		Compact:  n.CompactPath(state),
	}
}

// CompactPath 单行路径，例如 "📚 → 🔴 → 🔵 → ❓"
func (n *PathNavigator) CompactPath(state PathState) string {
	var b strings.Builder
	b.WriteString("📚")
	path := state.PathCode()
	for i := 0; i < len(path); i++ {
		d, _ := models.DecisionFromSymbol(path[i])
		b.WriteString(" → ")
		b.WriteString(d.Icon())
	}
	if state.CanChoose() {
		b.WriteString(" → ❓")
	}
	return b.String()
}

// GameStatistics 控制面板上显示的统计
type GameStatistics struct {
	Level     int     `json:"level"`
	MaxLevel  int     `json:"max_level"`
	Remaining int     `json:"remaining"`
	Path      string  `json:"path"`
	Progress  float64 `json:"progress"` // 百分比
	RedCount  int     `json:"red_count"`
	BlueCount int     `json:"blue_count"`
	Complete  bool    `json:"complete"`
	Status    string  `json:"status"`
}

// Statistics 汇总当前进度
func (n *PathNavigator) Statistics(state PathState) GameStatistics {
	path := state.PathCode()
	stats := GameStatistics{
		Level:     state.Level(),
		MaxLevel:  models.MaxLevel,
		Remaining: models.MaxLevel - state.Level(),
		Path:      path,
		Progress:  float64(state.Level()) / float64(models.MaxLevel) * 100,
		RedCount:  strings.Count(path, models.DecisionRed.String()),
		BlueCount: strings.Count(path, models.DecisionBlue.String()),
		Complete:  state.IsComplete(),
		Status:    "进行中",
	}
	if stats.Complete {
		stats.Status = "完成"
	}
	return stats
}

// ReachablePaths 从空路径出发，沿红/蓝扩展，收集数据集中存在的路径。
// 某个前缀缺失时不再向下扩展。
func (n *PathNavigator) ReachablePaths(maxDepth int) []string {
	if maxDepth > models.MaxLevel {
		maxDepth = models.MaxLevel
	}
	var paths []string
	var walk func(prefix string)
	walk = func(prefix string) {
		if len(prefix) >= maxDepth {
			return
		}
		for _, d := range models.AllDecisions() {
			code := prefix + d.String()
			if n.story.HasPassage(code) {
				paths = append(paths, code)
				walk(code)
			}
		}
	}
	walk("")
	slices.Sort(paths)
	return paths
}

// StorySnapshot 一次渲染所需的全部内容
type StorySnapshot struct {
	Level     int                     `json:"level"`
	MaxLevel  int                     `json:"max_level"`
	Path      string                  `json:"path"`
	Complete  bool                    `json:"complete"`
	Passage   *models.Passage         `json:"passage,omitempty"`
	Prompt    *models.ChoicePrompt    `json:"prompt,omitempty"`
	Ending    *models.Passage         `json:"ending,omitempty"`
	Gaps      []string                `json:"gaps,omitempty"`
	Decisions []models.DecisionRecord `json:"decisions"`
	Tree      string                  `json:"tree"`
	Compact   string                  `json:"compact"`
	Stats     GameStatistics          `json:"stats"`
}

// Snapshot 汇总当前故事、选择、结局与可视化。
// 完成后只带结局；数据缺口记录在 Gaps 中，不会导致失败。
func (n *PathNavigator) Snapshot(state *models.GameState) *StorySnapshot {
	snap := &StorySnapshot{
		Level:     state.Level(),
		MaxLevel:  models.MaxLevel,
		Path:      state.PathCode(),
		Complete:  state.IsComplete(),
		Decisions: state.Decisions(),
		Tree:      n.TreeVisualization(state),
		Compact:   n.CompactPath(state),
		Stats:     n.Statistics(state),
	}

	if state.IsComplete() {
		ending := n.TerminalPassage()
		snap.Ending = &ending
		return snap
	}

	if passage, err := n.CurrentPassage(state); err != nil {
		snap.Gaps = append(snap.Gaps, err.Error())
	} else {
		snap.Passage = passage
	}

	if prompt, err := n.CurrentChoicePrompt(state); err != nil {
		snap.Gaps = append(snap.Gaps, err.Error())
	} else {
		snap.Prompt = prompt
	}
	return snap
}
