package api

import (
	"github.com/eegeren/cortexa-ai/backend/go/internal/auth"
	"github.com/eegeren/cortexa-ai/backend/go/pkg/httpmiddleware"
	"github.com/eegeren/cortexa-ai/backend/go/pkg/logger"
	"github.com/gin-gonic/gin"
)

// SetupRouter 配置和返回一个 Gin 引擎实例。limiter 为 nil 时不限流。
func SetupRouter(h *Handler, resolver auth.Resolver, limiter httpmiddleware.KeyedLimiter, log *logger.Logger) *gin.Engine {
	if log == nil {
		log = logger.Discard()
	}
	r := gin.New()
	r.Use(gin.Recovery(), httpmiddleware.RequestID(), httpmiddleware.AccessLog(log))

	r.GET("/health", h.Health)

	// 以下路由都需要认证，限流按用户计算
	authed := r.Group("/")
	authed.Use(AuthMiddleware(resolver))
	if limiter != nil {
		authed.Use(httpmiddleware.RateLimit(limiter, userKey))
	}
	{
		authed.POST("/chat/complete", h.Complete)
		authed.POST("/memory/upsert", h.UpsertMemory)
	}

	return r
}
