// internal/services/session_manager.go
package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/Corphon/FutureGate/internal/errors"
	"github.com/Corphon/FutureGate/internal/models"
)

// DefaultSessionTTL 空闲会话的默认保留时间
const DefaultSessionTTL = time.Hour

// Session 单个玩家的会话。游戏状态只能在 ExecuteWithSession 的锁内读写。
type Session struct {
	ID string

	mu       sync.Mutex
	state    *models.GameState
	lastUsed time.Time // 受 SessionManager.globalLock 保护

	revealMu     sync.Mutex
	revealCancel context.CancelFunc
}

// State 当前游戏状态，调用方必须持有会话锁
func (s *Session) State() *models.GameState {
	return s.state
}

// StartReveal 开始新一轮文字显示，之前未结束的显示会被取消
func (s *Session) StartReveal(parent context.Context) (context.Context, context.CancelFunc) {
	s.revealMu.Lock()
	defer s.revealMu.Unlock()

	if s.revealCancel != nil {
		s.revealCancel()
	}
	ctx, cancel := context.WithCancel(parent)
	s.revealCancel = cancel
	return ctx, cancel
}

// CancelReveal 取消正在进行的文字显示，不影响游戏状态
func (s *Session) CancelReveal() {
	s.revealMu.Lock()
	defer s.revealMu.Unlock()

	if s.revealCancel != nil {
		s.revealCancel()
		s.revealCancel = nil
	}
}

// SessionManager 管理内存中的会话和会话锁
type SessionManager struct {
	sessions   map[string]*Session
	globalLock sync.RWMutex
	ttl        time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewSessionManager 创建会话管理器；ttl 非正数时使用默认值
func NewSessionManager(ttl time.Duration, logger *zap.Logger) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		logger:   logger.Named("sessions"),
		now:      time.Now,
	}
}

// Create 创建新会话并分配 uuid
func (m *SessionManager) Create() *Session {
	session := &Session{
		ID:       uuid.NewString(),
		state:    models.NewGameState(),
		lastUsed: m.now(),
	}

	m.globalLock.Lock()
	m.sessions[session.ID] = session
	count := len(m.sessions)
	m.globalLock.Unlock()

	activeSessions.Set(float64(count))
	m.logger.Debug("创建会话", zap.String("session_id", session.ID))
	return session
}

// Get 按ID查找会话并刷新最后使用时间
func (m *SessionManager) Get(id string) (*Session, bool) {
	m.globalLock.Lock()
	defer m.globalLock.Unlock()

	session, ok := m.sessions[id]
	if ok {
		session.lastUsed = m.now()
	}
	return session, ok
}

// GetOrCreate 找不到（或ID为空）时创建新会话；created 表示是否新建
func (m *SessionManager) GetOrCreate(id string) (session *Session, created bool) {
	if id != "" {
		if session, ok := m.Get(id); ok {
			return session, false
		}
	}
	return m.Create(), true
}

// ExecuteWithSession 在会话锁保护下执行操作
func (m *SessionManager) ExecuteWithSession(id string, fn func(*Session) error) error {
	session, ok := m.Get(id)
	if !ok {
		return apperrors.NewNotFoundError("会话不存在或已过期", nil)
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	return fn(session)
}

// Count 当前会话数量
func (m *SessionManager) Count() int {
	m.globalLock.RLock()
	defer m.globalLock.RUnlock()
	return len(m.sessions)
}

// StartEviction 定期清理空闲会话，ctx 结束时退出
func (m *SessionManager) StartEviction(ctx context.Context) {
	interval := min(m.ttl, 5*time.Minute)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.EvictIdle()
			}
		}
	}()
}

// EvictIdle 删除超过保留时间的会话；正在使用的会话跳过。返回删除的数量。
func (m *SessionManager) EvictIdle() int {
	m.globalLock.Lock()
	defer m.globalLock.Unlock()

	now := m.now()
	evicted := 0
	for id, session := range m.sessions {
		if now.Sub(session.lastUsed) <= m.ttl {
			continue
		}
		if !session.mu.TryLock() {
			continue
		}
		session.CancelReveal()
		delete(m.sessions, id)
		session.mu.Unlock()
		evicted++
	}

	if evicted > 0 {
		activeSessions.Set(float64(len(m.sessions)))
		m.logger.Info("清理空闲会话", zap.Int("evicted", evicted), zap.Int("remaining", len(m.sessions)))
	}
	return evicted
}
