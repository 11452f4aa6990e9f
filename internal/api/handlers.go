// internal/api/handlers.go
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Corphon/FutureGate/internal/models"
	"github.com/Corphon/FutureGate/internal/services"
)

// PageTitle 页面标题
const PageTitle = "未来之门"

// Handler 处理页面和故事API请求
type Handler struct {
	Story     *services.StoryService
	WebSocket *WebSocketManager
	Response  *ResponseHelper
	logger    *zap.Logger
}

// ChoiceRequest 选择请求
type ChoiceRequest struct {
	Choice string `json:"choice" binding:"required"`
}

// NewHandler 创建API处理器
func NewHandler(story *services.StoryService, wsManager *WebSocketManager, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Story:     story,
		WebSocket: wsManager,
		Response:  NewResponseHelper(),
		logger:    logger.Named("handler"),
	}
}

// IndexPage 返回游戏页面，首屏内容由服务端渲染
func (h *Handler) IndexPage(c *gin.Context) {
	snap, err := h.Story.Snapshot(c.GetString(sessionIDKey))
	if err != nil {
		h.logger.Error("生成页面快照失败", zap.Error(err))
		c.String(http.StatusInternalServerError, "页面暂时不可用")
		return
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"Title":    PageTitle,
		"Snapshot": snap,
	})
}

// GetStory 返回当前会话的完整快照
func (h *Handler) GetStory(c *gin.Context) {
	snap, err := h.Story.Snapshot(c.GetString(sessionIDKey))
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, snap)
}

// MakeChoice 追加一个决定
func (h *Handler) MakeChoice(c *gin.Context) {
	var req ChoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "参数格式错误", err.Error())
		return
	}

	decision, err := models.ParseDecision(req.Choice)
	if err != nil {
		h.Response.Error(c, http.StatusBadRequest, ErrorChoiceInvalid, "无效的选择，只能是 R 或 B", req.Choice)
		return
	}

	sessionID := c.GetString(sessionIDKey)
	snap, err := h.Story.Choose(sessionID, decision)
	if err != nil {
		h.Response.AppError(c, err)
		return
	}

	h.broadcastState(sessionID, snap)
	if snap.Complete {
		h.Response.Success(c, snap, "故事完成")
		return
	}
	h.Response.Success(c, snap, "选择成功")
}

// ResetStory 回到开头
func (h *Handler) ResetStory(c *gin.Context) {
	sessionID := c.GetString(sessionIDKey)
	snap, err := h.Story.Reset(sessionID)
	if err != nil {
		h.Response.AppError(c, err)
		return
	}

	h.broadcastState(sessionID, snap)
	h.Response.Success(c, snap, "已重新开始")
}

// GetTree 返回路径树、完整路径树和单行路径
func (h *Handler) GetTree(c *gin.Context) {
	view, err := h.Story.Tree(c.GetString(sessionIDKey))
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, view)
}

// GetStats 返回当前会话的统计
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.Story.Statistics(c.GetString(sessionIDKey))
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, stats)
}

// GetPaths 返回数据集中所有可到达的路径
func (h *Handler) GetPaths(c *gin.Context) {
	paths := h.Story.ReachablePaths()
	h.Response.Success(c, gin.H{
		"paths": paths,
		"count": len(paths),
	})
}

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	story := h.Story.Navigator().Story()
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"passages":    story.PassageCount(),
		"levels":      len(story.Levels()),
		"sessions":    h.Story.Sessions().Count(),
		"connections": h.WebSocket.ConnectionCount(),
	})
}

// broadcastState 同一会话的其他标签页同步最新状态
func (h *Handler) broadcastState(sessionID string, snap *services.StorySnapshot) {
	h.WebSocket.BroadcastToSession(sessionID, gin.H{"type": "state", "snapshot": snap})
}
