package api

import (
	"errors"
	"net/http"

	"github.com/eegeren/cortexa-ai/backend/go/internal/apperr"
	"github.com/eegeren/cortexa-ai/backend/go/internal/auth"
	"github.com/eegeren/cortexa-ai/backend/go/internal/models"
	"github.com/gin-gonic/gin"
)

// identityKey 是已认证身份在 gin.Context 中的键。
const identityKey = "identity"

// AuthMiddleware 创建一个 Gin 中间件，从 Authorization 头解析调用者身份。
func AuthMiddleware(resolver auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 我们期望的格式是 "Bearer <token>"
		token, ok := auth.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortWithError(c, apperr.Unauthenticated("auth", errors.New("missing bearer token")))
			return
		}

		identity, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			abortWithError(c, err)
			return
		}

		// 将身份存储在 Gin 的上下文中，以便后续的处理函数可以使用
		c.Set(identityKey, identity)
		c.Next()
	}
}

// IdentityFrom 返回 AuthMiddleware 写入的身份。
func IdentityFrom(c *gin.Context) (models.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return models.Identity{}, false
	}
	id, ok := v.(models.Identity)
	return id, ok
}

// userKey 是限流使用的键。
func userKey(c *gin.Context) string {
	id, _ := IdentityFrom(c)
	return id.ID
}

// abortWithError 按错误种类写回状态码。5xx 不回显内部原因。
func abortWithError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	switch {
	case errors.Is(err, apperr.ErrUnauthenticated):
		msg = "Invalid or missing credentials"
	case status >= http.StatusInternalServerError && status != http.StatusBadGateway:
		msg = "Internal server error"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "kind": apperr.KindName(err)})
}
