package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/UoaWDCC/uabc-web-sub005/internal/model"
	"github.com/UoaWDCC/uabc-web-sub005/internal/service"
	"github.com/UoaWDCC/uabc-web-sub005/pkg/jwt"
	"github.com/UoaWDCC/uabc-web-sub005/pkg/response"
)

// 与 middleware.JWTAuth 写入的键保持一致
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
	ctxClaims = "claims"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	s := c.GetString(ctxUserID)
	if s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetCaller 提取调用者 ID 与角色
func MustGetCaller(c *gin.Context) (service.Caller, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return service.Caller{}, false
	}
	role := c.GetString(ctxRole)
	if role == "" {
		response.Unauthorized(c, 10002, "未认证")
		return service.Caller{}, false
	}
	return service.Caller{UserID: userID, Role: model.Role(role)}, true
}

// MustGetClaims 提取完整的 Token 声明（注销时需要 jti 与过期时间）
func MustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(ctxClaims)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	if !ok || claims == nil {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	return claims, true
}
