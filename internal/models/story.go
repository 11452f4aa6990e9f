// internal/models/story.go
package models

import (
	"maps"
	"slices"
)

// Passage 与某个路径编码（或开始/结局）绑定的一段故事
type Passage struct {
	Title string `toml:"title" json:"title" validate:"required"`
	Story string `toml:"story" json:"story" validate:"required"`
}

// ChoicePrompt 某一层选择前展示的标题、叙述和两个选项文字
type ChoicePrompt struct {
	Title string `toml:"title" json:"title" validate:"required"`
	Story string `toml:"story" json:"story" validate:"required"`
	Red   string `toml:"red" json:"red" validate:"required"`
	Blue  string `toml:"blue" json:"blue" validate:"required"`
}

// Label 返回某个决定对应的选项文字
func (p ChoicePrompt) Label(d Decision) string {
	switch d {
	case DecisionRed:
		return p.Red
	case DecisionBlue:
		return p.Blue
	default:
		return ""
	}
}

// StoryData 启动时加载一次的故事数据集，加载后只读，可在所有会话间共享
type StoryData struct {
	choices  map[int]ChoicePrompt
	passages map[string]Passage
	start    Passage
	ending   Passage
}

// NewStoryData 创建数据集，传入的映射会被复制
func NewStoryData(start, ending Passage, choices map[int]ChoicePrompt, passages map[string]Passage) *StoryData {
	return &StoryData{
		choices:  maps.Clone(choices),
		passages: maps.Clone(passages),
		start:    start,
		ending:   ending,
	}
}

// Start 空路径对应的开场故事
func (s *StoryData) Start() Passage {
	return s.start
}

// Ending 所有完整路径共用的结局
func (s *StoryData) Ending() Passage {
	return s.ending
}

// ChoiceAt 按层级查找选择提示
func (s *StoryData) ChoiceAt(level int) (ChoicePrompt, bool) {
	prompt, ok := s.choices[level]
	return prompt, ok
}

// PassageFor 按路径编码查找故事；空路径返回开场故事
func (s *StoryData) PassageFor(code string) (Passage, bool) {
	if code == "" {
		return s.start, true
	}
	passage, ok := s.passages[code]
	return passage, ok
}

// HasPassage 判断数据集中是否存在某个路径编码
func (s *StoryData) HasPassage(code string) bool {
	_, ok := s.passages[code]
	return ok
}

// Levels 返回已定义的层级，升序
func (s *StoryData) Levels() []int {
	return slices.Sorted(maps.Keys(s.choices))
}

// PassageCount 路径故事条目数
func (s *StoryData) PassageCount() int {
	return len(s.passages)
}
