package web

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/moviecatalog/internal/apierror"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
)

// NewRateLimiter limits requests per client IP using an in-memory store.
// rateFormatted follows the limiter notation ("20-M", "1000-H"); empty disables limiting
// and returns a nil handler.
func NewRateLimiter(rateFormatted string, logger *zap.Logger) (gin.HandlerFunc, error) {
	if strings.TrimSpace(rateFormatted) == "" {
		return nil, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	rate, err := limiter.NewRateFromFormatted(strings.TrimSpace(rateFormatted))
	if err != nil {
		return nil, err
	}
	instance := limiter.New(memory.NewStore(), rate)
	return mgin.NewMiddleware(instance,
		mgin.WithLimitReachedHandler(func(contextGin *gin.Context) {
			logger.Info("rate limit reached",
				zap.String("code", "web.rate_limit.reached"),
				zap.String("client_ip", contextGin.ClientIP()),
				zap.String("path", contextGin.FullPath()))
			apierror.Abort(contextGin, logger, apierror.TooManyRequests("Too many requests"))
		}),
		mgin.WithErrorHandler(func(contextGin *gin.Context, limitErr error) {
			apierror.Abort(contextGin, logger, apierror.Internal("Internal server error", limitErr))
		}),
	), nil
}
