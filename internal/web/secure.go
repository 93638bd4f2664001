package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
)

// SecureOptions returns the security header policy for a JSON API.
func SecureOptions(devMode bool) secure.Options {
	return secure.Options{
		IsDevelopment:         devMode,
		ContentTypeNosniff:    true,
		FrameDeny:             true,
		BrowserXssFilter:      true,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		STSSeconds:            31536000,
		STSIncludeSubdomains:  true,
	}
}

// SecureHeaders adapts unrolled/secure to gin. A policy violation aborts the request.
func SecureHeaders(options secure.Options, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	middleware := secure.New(options)
	return func(contextGin *gin.Context) {
		if err := middleware.Process(contextGin.Writer, contextGin.Request); err != nil {
			logger.Warn("secure headers rejected request",
				zap.String("code", "web.secure.rejected"),
				zap.String("host", contextGin.Request.Host),
				zap.Error(err))
			contextGin.AbortWithStatus(http.StatusBadRequest)
			return
		}
		if status := contextGin.Writer.Status(); status > 300 && status < 399 {
			contextGin.Abort()
			return
		}
		contextGin.Next()
	}
}
