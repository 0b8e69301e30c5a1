// Package auth 把 bearer token 解析为调用者身份。
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/eegeren/cortexa-ai/backend/go/internal/apperr"
	"github.com/eegeren/cortexa-ai/backend/go/internal/models"
	"github.com/golang-jwt/jwt"
)

// Resolver 从 bearer 凭证解析出用户身份。
type Resolver interface {
	Resolve(ctx context.Context, token string) (models.Identity, error)
}

// JWTResolver 校验 HS256 签名的 JWT，用户 id 取自 sub。
type JWTResolver struct {
	secret []byte
	parser *jwt.Parser
}

// NewJWTResolver 创建解析器。
func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{
		secret: []byte(secret),
		parser: &jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Name}},
	}
}

// Resolve 校验签名和过期时间。sub 可以是字符串或数字，缺失或为空时认证失败。
func (r *JWTResolver) Resolve(_ context.Context, token string) (models.Identity, error) {
	const op = "auth.jwt"
	if token == "" {
		return models.Identity{}, apperr.Unauthenticated(op, errors.New("missing token"))
	}

	parsed, err := r.parser.Parse(token, func(t *jwt.Token) (interface{}, error) {
		// 确保 token 的签名方法是我们期望的
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return r.secret, nil
	})
	if err != nil {
		return models.Identity{}, apperr.Unauthenticated(op, fmt.Errorf("invalid token: %w", err))
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return models.Identity{}, apperr.Unauthenticated(op, errors.New("invalid token"))
	}

	var id string
	switch sub := claims["sub"].(type) {
	case string:
		id = strings.TrimSpace(sub)
	case float64: // JWT 解析数字时默认为 float64
		if sub != 0 {
			id = strconv.FormatFloat(sub, 'f', -1, 64)
		}
	}
	if id == "" {
		return models.Identity{}, apperr.Unauthenticated(op, errors.New("invalid token payload"))
	}
	return models.Identity{ID: id}, nil
}

// IssueToken 签发一个 HS256 token，开发和测试时使用。
func IssueToken(secret, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// BearerToken 从 Authorization 头中取出 token，格式必须是 "Bearer <token>"。
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
