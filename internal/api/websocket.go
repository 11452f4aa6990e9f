// internal/api/websocket.go
package api

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsPingTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsSendBuffer   = 256
)

// WebSocketClient 一个浏览器标签页的 WebSocket 连接
type WebSocketClient struct {
	conn      *websocket.Conn
	sessionID string
	send      chan []byte
	done      chan struct{}
	closed    int32 // 0=开启，1=关闭
	lastPing  atomic.Int64
	createdAt time.Time
	logger    *zap.Logger
}

func newWebSocketClient(conn *websocket.Conn, sessionID string, logger *zap.Logger) *WebSocketClient {
	client := &WebSocketClient{
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan []byte, wsSendBuffer),
		done:      make(chan struct{}),
		createdAt: time.Now(),
		logger:    logger,
	}
	client.UpdatePing()
	return client
}

// Close 安全关闭客户端连接
func (client *WebSocketClient) Close() {
	if atomic.CompareAndSwapInt32(&client.closed, 0, 1) {
		close(client.done)
		client.conn.Close()
	}
}

// IsClosed 检查连接是否已关闭
func (client *WebSocketClient) IsClosed() bool {
	return atomic.LoadInt32(&client.closed) == 1
}

// UpdatePing 更新最后ping时间
func (client *WebSocketClient) UpdatePing() {
	client.lastPing.Store(time.Now().UnixNano())
}

// IsExpired 检查连接是否超时
func (client *WebSocketClient) IsExpired(timeout time.Duration) bool {
	return time.Since(time.Unix(0, client.lastPing.Load())) > timeout
}

// SendJSON 序列化后放入发送队列；队列满时丢弃
func (client *WebSocketClient) SendJSON(message interface{}) bool {
	if client.IsClosed() {
		return false
	}
	msgBytes, err := json.Marshal(message)
	if err != nil {
		client.logger.Error("序列化消息失败", zap.Error(err))
		return false
	}

	select {
	case client.send <- msgBytes:
		return true
	default:
		client.logger.Warn("消息队列已满，消息被丢弃", zap.String("session_id", client.sessionID))
		return false
	}
}

// SendError 发送错误消息
func (client *WebSocketClient) SendError(code, message string) {
	client.SendJSON(map[string]interface{}{
		"type":      "error",
		"error":     &APIError{Code: code, Message: message},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// writePump 把发送队列写到连接，并定时发送 ping
func (client *WebSocketClient) writePump() {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		client.Close()
	}()

	for {
		select {
		case <-client.done:
			return
		case message := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// WebSocketManager 按会话管理 WebSocket 连接
type WebSocketManager struct {
	connections map[string]map[*WebSocketClient]struct{} // sessionID -> clients
	register    chan *WebSocketClient
	unregister  chan *WebSocketClient
	mutex       sync.RWMutex
	pingTimeout time.Duration
	logger      *zap.Logger
}

// NewWebSocketManager 创建管理器，需调用 Run 启动
func NewWebSocketManager(logger *zap.Logger) *WebSocketManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketManager{
		connections: make(map[string]map[*WebSocketClient]struct{}),
		register:    make(chan *WebSocketClient, wsSendBuffer),
		unregister:  make(chan *WebSocketClient, wsSendBuffer),
		pingTimeout: wsPingTimeout,
		logger:      logger.Named("websocket"),
	}
}

// Run 管理器主循环，ctx 结束时关闭所有连接
func (manager *WebSocketManager) Run(ctx context.Context) {
	cleanupTicker := time.NewTicker(wsPingInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case client := <-manager.register:
			manager.registerClient(client)
		case client := <-manager.unregister:
			manager.unregisterClient(client)
		case <-cleanupTicker.C:
			manager.cleanupExpiredConnections()
		case <-ctx.Done():
			manager.shutdown()
			return
		}
	}
}

func (manager *WebSocketManager) registerClient(client *WebSocketClient) {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	if manager.connections[client.sessionID] == nil {
		manager.connections[client.sessionID] = make(map[*WebSocketClient]struct{})
	}
	manager.connections[client.sessionID][client] = struct{}{}
	manager.logger.Debug("WebSocket 客户端已连接", zap.String("session_id", client.sessionID))
}

func (manager *WebSocketManager) unregisterClient(client *WebSocketClient) {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	if clients, exists := manager.connections[client.sessionID]; exists {
		delete(clients, client)
		if len(clients) == 0 {
			delete(manager.connections, client.sessionID)
		}
	}
	client.Close()
	manager.logger.Debug("WebSocket 客户端已断开", zap.String("session_id", client.sessionID))
}

// cleanupExpiredConnections 清理超时和已关闭的连接
func (manager *WebSocketManager) cleanupExpiredConnections() {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	for sessionID, clients := range manager.connections {
		for client := range clients {
			if client.IsClosed() || client.IsExpired(manager.pingTimeout) {
				delete(clients, client)
				client.Close()
			}
		}
		if len(clients) == 0 {
			delete(manager.connections, sessionID)
		}
	}
}

func (manager *WebSocketManager) shutdown() {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	for _, clients := range manager.connections {
		for client := range clients {
			client.Close()
		}
	}
	manager.connections = make(map[string]map[*WebSocketClient]struct{})
	manager.logger.Info("WebSocket 管理器已关闭")
}

// BroadcastToSession 向同一会话的所有连接推送消息
func (manager *WebSocketManager) BroadcastToSession(sessionID string, message interface{}) {
	manager.mutex.RLock()
	clients := make([]*WebSocketClient, 0, len(manager.connections[sessionID]))
	for client := range manager.connections[sessionID] {
		clients = append(clients, client)
	}
	manager.mutex.RUnlock()

	for _, client := range clients {
		client.SendJSON(message)
	}
}

// ConnectionCount 当前连接数
func (manager *WebSocketManager) ConnectionCount() int {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()

	total := 0
	for _, clients := range manager.connections {
		total += len(clients)
	}
	return total
}
