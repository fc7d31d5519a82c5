package jwt

import (
	"strings"

	"ChatBooks/internal/config"
	"ChatBooks/pkg/back"
	"ChatBooks/pkg/util/myjwt"
	"ChatBooks/pkg/xerr"

	"github.com/gin-gonic/gin"
)

// ContextSessionKey gin.Context 中保存会话 ID 的 key
const ContextSessionKey = "session_id"

// Auth 校验 Bearer token，并把会话 ID 写入上下文
//
// 浏览器原生 WebSocket 不能带自定义 Header，所以也接受 ?token=
func Auth(conf config.JwtConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			back.Error(c, xerr.Unauthorized, "missing or invalid authorization header")
			c.Abort()
			return
		}

		claims, err := myjwt.ParseToken(conf, token)
		if err != nil {
			back.Error(c, xerr.Unauthorized, "invalid token")
			c.Abort()
			return
		}

		c.Set(ContextSessionKey, claims.SessionID)
		c.Next()
	}
}

// SessionID 从上下文取会话 ID
func SessionID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(ContextSessionKey))
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return strings.TrimSpace(c.Query("token"))
}
