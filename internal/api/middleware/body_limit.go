package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/UoaWDCC/uabc-web-sub005/pkg/response"
)

// BodyLimit 请求体大小限制中间件
// Content-Length 已超限的请求直接拒绝；其余由 MaxBytesReader 在读取时截断，
// 绑定失败会以 400 返回
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()
	}
}
