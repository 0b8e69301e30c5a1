package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/eegeren/cortexa-ai/backend/go/internal/apperr"
	"github.com/eegeren/cortexa-ai/backend/go/internal/models"
	"github.com/gin-gonic/gin"
)

// UpsertDisabledMessage 是 /memory/upsert 的固定响应。
const UpsertDisabledMessage = "Use /chat/complete for automatic memory"

// ChatCompleter 是 handler 依赖的对话服务。
type ChatCompleter interface {
	Complete(ctx context.Context, identity models.Identity, message string) (*models.ChatReply, error)
}

// Handler 封装了所有 API endpoint 的处理函数。
type Handler struct {
	chat ChatCompleter
}

// NewHandler 创建一个新的 Handler 实例。
func NewHandler(chat ChatCompleter) *Handler {
	return &Handler{chat: chat}
}

// Complete 处理 POST /chat/complete。
func (h *Handler) Complete(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		abortWithError(c, apperr.Unauthenticated("chat", errors.New("no identity in context")))
		return
	}

	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, apperr.InvalidInput("chat", err))
		return
	}

	reply, err := h.chat.Complete(c.Request.Context(), identity, req.Message)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if reply.MemoriesUsed == nil {
		reply.MemoriesUsed = []string{}
	}
	c.JSON(http.StatusOK, reply)
}

// UpsertMemory 处理 POST /memory/upsert。记忆只能通过对话自动写入。
func (h *Handler) UpsertMemory(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{"error": UpsertDisabledMessage})
}

// Health 处理 GET /health。
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
