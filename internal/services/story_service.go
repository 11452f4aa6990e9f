// internal/services/story_service.go
package services

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	apperrors "github.com/Corphon/FutureGate/internal/errors"
	"github.com/Corphon/FutureGate/internal/models"
)

// StoryService 在会话锁内推进或重置游戏，并生成渲染所需的快照
type StoryService struct {
	navigator *PathNavigator
	sessions  *SessionManager
	streamer  *TextStreamer
	logger    *zap.Logger
}

// NewStoryService 创建故事服务
func NewStoryService(navigator *PathNavigator, sessions *SessionManager, streamer *TextStreamer, logger *zap.Logger) *StoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if streamer == nil {
		streamer = NewTextStreamer(DefaultRevealDelay)
	}
	return &StoryService{
		navigator: navigator,
		sessions:  sessions,
		streamer:  streamer,
		logger:    logger.Named("story"),
	}
}

// Navigator 共享的路径导航器
func (s *StoryService) Navigator() *PathNavigator {
	return s.navigator
}

// Sessions 会话管理器
func (s *StoryService) Sessions() *SessionManager {
	return s.sessions
}

// Snapshot 当前会话的完整视图
func (s *StoryService) Snapshot(sessionID string) (*StorySnapshot, error) {
	var snap *StorySnapshot
	err := s.sessions.ExecuteWithSession(sessionID, func(session *Session) error {
		snap = s.snapshot(session)
		return nil
	})
	return snap, err
}

// Choose 追加一个决定。故事已完成时返回 AlreadyComplete，状态不变。
func (s *StoryService) Choose(sessionID string, d models.Decision) (*StorySnapshot, error) {
	var snap *StorySnapshot
	err := s.sessions.ExecuteWithSession(sessionID, func(session *Session) error {
		state := session.State()
		level, err := state.AppendDecision(d)
		if err != nil {
			if apperrors.IsAlreadyCompleteError(err) {
				storyRejectedTotal.WithLabelValues("already_complete").Inc()
				s.logger.Error("故事已完成后仍收到选择",
					zap.String("session_id", sessionID),
					zap.String("path", state.PathCode()),
					zap.Stringer("choice", d))
			} else {
				storyRejectedTotal.WithLabelValues("invalid").Inc()
			}
			return err
		}

		session.CancelReveal()
		storyDecisionsTotal.WithLabelValues(d.String(), strconv.Itoa(level)).Inc()
		if state.IsComplete() {
			storyCompletionsTotal.Inc()
			s.logger.Info("故事完成", zap.String("session_id", sessionID), zap.String("path", state.PathCode()))
		} else {
			s.logger.Debug("做出选择",
				zap.String("session_id", sessionID),
				zap.String("path", state.PathCode()),
				zap.Int("level", level))
		}

		snap = s.snapshot(session)
		return nil
	})
	return snap, err
}

// Reset 回到第0层
func (s *StoryService) Reset(sessionID string) (*StorySnapshot, error) {
	var snap *StorySnapshot
	err := s.sessions.ExecuteWithSession(sessionID, func(session *Session) error {
		session.CancelReveal()
		session.State().Reset()
		storyResetsTotal.Inc()
		s.logger.Debug("重新开始", zap.String("session_id", sessionID))
		snap = s.snapshot(session)
		return nil
	})
	return snap, err
}

// Tree 当前会话的路径树
func (s *StoryService) Tree(sessionID string) (TreeView, error) {
	var view TreeView
	err := s.sessions.ExecuteWithSession(sessionID, func(session *Session) error {
		view = s.navigator.Trees(session.State())
		return nil
	})
	return view, err
}

// Statistics 当前会话的统计
func (s *StoryService) Statistics(sessionID string) (GameStatistics, error) {
	var stats GameStatistics
	err := s.sessions.ExecuteWithSession(sessionID, func(session *Session) error {
		stats = s.navigator.Statistics(session.State())
		return nil
	})
	return stats, err
}

// ReachablePaths 数据集中可到达的全部路径
func (s *StoryService) ReachablePaths() []string {
	return s.navigator.ReachablePaths(models.MaxLevel)
}

// StreamReveal 为会话开始一轮逐段显示，并取消该会话之前的显示。
// 读取文字和登记显示在同一次会话锁内完成，之后的 Choose/Reset 一定能取消它。
// 返回的 cancel 必须在读取结束后调用。
func (s *StoryService) StreamReveal(ctx context.Context, sessionID string) (<-chan RevealFrame, context.CancelFunc, error) {
	var (
		text      string
		revealCtx context.Context
		cancel    context.CancelFunc
	)
	err := s.sessions.ExecuteWithSession(sessionID, func(session *Session) error {
		var err error
		text, err = s.revealText(session)
		if err != nil {
			return err
		}
		revealCtx, cancel = session.StartReveal(ctx)
		return nil
	})
	if err != nil {
		if apperrors.IsDatasetGapError(err) {
			datasetGapsTotal.WithLabelValues("reveal").Inc()
		}
		return nil, nil, err
	}
	return s.streamer.Stream(revealCtx, text), cancel, nil
}

// revealText 当前需要逐段显示的文字：未完成时为当前故事，完成后为结局。
// 调用方必须持有会话锁。
func (s *StoryService) revealText(session *Session) (string, error) {
	state := session.State()
	if state.IsComplete() {
		return s.navigator.TerminalPassage().Story, nil
	}
	passage, err := s.navigator.CurrentPassage(state)
	if err != nil {
		return "", err
	}
	return passage.Story, nil
}

// snapshot 调用方必须持有会话锁
func (s *StoryService) snapshot(session *Session) *StorySnapshot {
	snap := s.navigator.Snapshot(session.State())
	if len(snap.Gaps) > 0 {
		datasetGapsTotal.WithLabelValues("snapshot").Add(float64(len(snap.Gaps)))
		s.logger.Warn("内容缺失",
			zap.String("session_id", session.ID),
			zap.String("path", snap.Path),
			zap.Strings("gaps", snap.Gaps))
	}
	return snap
}
