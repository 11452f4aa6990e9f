// internal/api/websocket_handlers.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	apperrors "github.com/Corphon/FutureGate/internal/errors"
	"github.com/Corphon/FutureGate/internal/services"
)

// 客户端可发送的消息类型
const (
	wsMessageReveal = "reveal" // 重新开始逐段显示
	wsMessageCancel = "cancel" // 停止显示
	wsMessagePing   = "ping"
)

type wsClientMessage struct {
	Type string `json:"type"`
}

// WebSocketHandler 处理故事文字逐段显示的 WebSocket 连接
type WebSocketHandler struct {
	story    *services.StoryService
	manager  *WebSocketManager
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHandler 创建 WebSocket 处理器；allowedOrigins 为空时只接受同源连接
func NewWebSocketHandler(story *services.StoryService, manager *WebSocketManager, allowedOrigins []string, logger *zap.Logger) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	// 升级失败时返回统一的错误响应
	upgrader.Error = func(w http.ResponseWriter, r *http.Request, status int, reason error) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(&APIResponse{
			Error: &APIError{
				Code:    ErrorWebSocketUpgrade,
				Message: "WebSocket 连接失败",
				Details: reason.Error(),
			},
			Timestamp: time.Now(),
			RequestID: w.Header().Get(requestIDHeader),
		})
	}
	if len(allowedOrigins) > 0 {
		allowed := make(map[string]bool, len(allowedOrigins))
		for _, origin := range allowedOrigins {
			allowed[origin] = true
		}
		upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed[origin]
		}
	}
	return &WebSocketHandler{
		story:    story,
		manager:  manager,
		upgrader: upgrader,
		logger:   logger.Named("websocket"),
	}
}

// StoryWebSocket 连接建立后立即推送当前文字，之后按客户端消息重新显示或停止
func (wh *WebSocketHandler) StoryWebSocket(c *gin.Context) {
	sessionID := c.GetString(sessionIDKey)

	conn, err := wh.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		wh.logger.Warn("WebSocket 升级失败", zap.Error(err), zap.String("session_id", sessionID))
		return
	}

	client := newWebSocketClient(conn, sessionID, wh.logger)
	select {
	case wh.manager.register <- client:
	default:
		wh.logger.Error("注册通道已满，拒绝 WebSocket 连接")
		client.Close()
		return
	}
	defer func() {
		select {
		case wh.manager.unregister <- client:
		case <-time.After(5 * time.Second):
			wh.logger.Warn("WebSocket 客户端注销超时")
			client.Close()
		}
	}()

	go client.writePump()

	// 连接关闭时只停止本连接的显示，同一会话其他标签页不受影响
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	reveal := &connReveal{}
	defer reveal.stop()

	wh.startReveal(ctx, client, reveal)
	wh.readLoop(ctx, client, reveal)
}

// connReveal 单个连接当前的显示
type connReveal struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

func (r *connReveal) replace(cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
	r.cancel = cancel
}

func (r *connReveal) stop() {
	r.replace(nil)
}

// readLoop 读取客户端消息直到连接关闭
func (wh *WebSocketHandler) readLoop(ctx context.Context, client *WebSocketClient, reveal *connReveal) {
	client.conn.SetReadDeadline(time.Now().Add(wsPingTimeout))
	client.conn.SetPongHandler(func(string) error {
		client.UpdatePing()
		return client.conn.SetReadDeadline(time.Now().Add(wsPingTimeout))
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wh.logger.Debug("WebSocket 读取结束", zap.Error(err))
			}
			return
		}
		client.UpdatePing()
		client.conn.SetReadDeadline(time.Now().Add(wsPingTimeout))

		var msg wsClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			client.SendError(ErrorBadRequest, "无法解析的消息")
			continue
		}

		switch msg.Type {
		case wsMessageReveal:
			wh.startReveal(ctx, client, reveal)
		case wsMessageCancel:
			reveal.stop()
		case wsMessagePing:
			client.SendJSON(gin.H{"type": "pong", "timestamp": time.Now().Format(time.RFC3339)})
		default:
			client.SendError(ErrorBadRequest, "未知的消息类型: "+msg.Type)
		}
	}
}

// startReveal 开始一轮逐段显示，并把每一帧推送给客户端
func (wh *WebSocketHandler) startReveal(ctx context.Context, client *WebSocketClient, reveal *connReveal) {
	frames, cancel, err := wh.story.StreamReveal(ctx, client.sessionID)
	if err != nil {
		switch {
		case apperrors.IsDatasetGapError(err):
			client.SendError(ErrorStoryContentMissing, "内容暂不可用")
		case apperrors.IsNotFoundError(err):
			client.SendError(ErrorSessionNotFound, "会话不存在或已过期")
		default:
			client.SendError(ErrorRevealStreamFailed, "无法显示故事")
		}
		return
	}
	reveal.replace(cancel)

	go func() {
		defer cancel()
		for frame := range frames {
			client.SendJSON(gin.H{"type": "reveal", "frame": frame})
		}
	}()
}
