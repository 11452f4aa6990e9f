// internal/services/text_streamer.go
package services

import (
	"context"
	"strings"
	"time"
)

// DefaultRevealDelay 相邻两段文字之间的默认间隔
const DefaultRevealDelay = 50 * time.Millisecond

// RevealFrame 逐段显示时推送的一帧
type RevealFrame struct {
	Index int    `json:"index"`
	Total int    `json:"total"`
	Chunk string `json:"chunk"`
	Text  string `json:"text"` // 截至本帧已显示的全部文字
	Done  bool   `json:"done"`
}

// TextStreamer 把一段文字按标点切分，并按固定间隔逐段产出。
// 与游戏状态无关，取消或重新开始都不会影响当前进度。
type TextStreamer struct {
	delay time.Duration
}

// NewTextStreamer 创建文字流；delay 为负数时按0处理
func NewTextStreamer(delay time.Duration) *TextStreamer {
	if delay < 0 {
		delay = 0
	}
	return &TextStreamer{delay: delay}
}

// Delay 相邻两段的间隔
func (s *TextStreamer) Delay() time.Duration {
	return s.delay
}

// isPausePoint 自然停顿处：中文标点、英文标点和换行
func isPausePoint(r rune) bool {
	switch r {
	case '。', '！', '？', '；', '：', '，', '\n',
		'.', '!', '?', ';', ':', ',':
		return true
	}
	return false
}

// SmartChunks 在停顿标点之后切分，标点留在前一段末尾。
// 所有分段按顺序拼接后等于原文。
func SmartChunks(text string) []string {
	var chunks []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if isPausePoint(r) {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// Stream 逐段产出文字，ctx 取消后立即停止并关闭通道。
// 第一帧不等待；最后一帧 Done 为 true。
func (s *TextStreamer) Stream(ctx context.Context, text string) <-chan RevealFrame {
	frames := make(chan RevealFrame)
	chunks := SmartChunks(text)

	go func() {
		defer close(frames)

		var timer *time.Timer
		if s.delay > 0 {
			timer = time.NewTimer(s.delay)
			defer timer.Stop()
		}

		var shown strings.Builder
		for i, chunk := range chunks {
			if i > 0 && timer != nil {
				timer.Reset(s.delay)
				select {
				case <-ctx.Done():
					return
				case <-timer.C:
				}
			}

			shown.WriteString(chunk)
			frame := RevealFrame{
				Index: i,
				Total: len(chunks),
				Chunk: chunk,
				Text:  shown.String(),
				Done:  i == len(chunks)-1,
			}
			select {
			case <-ctx.Done():
				return
			case frames <- frame:
			}
		}

		if len(chunks) == 0 {
			select {
			case <-ctx.Done():
			case frames <- RevealFrame{Done: true}:
			}
		}
	}()

	return frames
}
