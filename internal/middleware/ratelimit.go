package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-petr/bank-ledger/pkg/web"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// ErrTooManyRequests indicates that the client exceeded the rate limit.
var ErrTooManyRequests = errors.New("too many requests, try again later")

const rateLimitPrefix = "ratelimit"

// NewLimiter returns a limiter for a formatted rate like "100-M".
// Counters live in redis when client is not nil so that they are shared between instances.
// When redis cannot be reached at startup the counters are kept in process memory.
func NewLimiter(rate string, client *redis.Client, logger zerolog.Logger) (*limiter.Limiter, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}

	options := limiter.StoreOptions{Prefix: rateLimitPrefix}

	if client == nil {
		return limiter.New(memory.NewStoreWithOptions(options), r), nil
	}

	store, err := sredis.NewStoreWithOptions(client, options)
	if err != nil {
		logger.Warn().Err(err).Msg("rate limit store unavailable, counting requests in memory")

		return limiter.New(memory.NewStoreWithOptions(options), r), nil
	}

	return limiter.New(store, r), nil
}

// RateLimit limits requests per client ip.
// Requests pass when the limiter store is unavailable.
func RateLimit(l *limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := zerolog.Ctx(c.Request.Context())
		ip := c.ClientIP()

		lctx, err := l.Get(c.Request.Context(), ip)
		if err != nil {
			log.Error().Err(err).Str("ip", ip).Msg("rate limit check failed")
			c.Next()

			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))

		if lctx.Reached {
			log.Warn().Str("ip", ip).Int64("limit", lctx.Limit).Msg("rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, web.Error(ErrTooManyRequests))

			return
		}

		c.Next()
	}
}
