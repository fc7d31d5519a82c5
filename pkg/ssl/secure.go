package ssl

import (
	"strconv"

	"ChatBooks/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
)

// SecureHandler 安全响应头；开启 sslRedirect 时把 http 请求重定向到 https
func SecureHandler(conf config.MainConfig) gin.HandlerFunc {
	secureMiddleware := secure.New(secure.Options{
		SSLRedirect:        conf.SSLRedirect,
		SSLHost:            conf.Host + ":" + strconv.Itoa(conf.Port),
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		IsDevelopment:      !conf.SSLRedirect,
	})
	return func(c *gin.Context) {
		// Process 出错时已经写好了响应（重定向），这里只需要停止处理链
		if err := secureMiddleware.Process(c.Writer, c.Request); err != nil {
			c.Abort()
			return
		}
		c.Next()
	}
}
