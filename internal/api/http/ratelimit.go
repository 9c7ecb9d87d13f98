package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ciepi/portal-service/internal/persistence"
	apperrors "github.com/ciepi/portal-service/pkg/util"
)

// PollLimiter enforces a minimum interval between status polls per token,
// backed by a short-lived Redis key. Redis being unreachable never blocks
// the poll.
func PollLimiter(redis *persistence.Redis, interval time.Duration, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if interval <= 0 || redis == nil || redis.Client == nil {
			return c.Next()
		}

		key := "poll:" + c.Params("token")
		ok, err := redis.Client.SetNX(c.UserContext(), key, 1, interval).Result()
		if err != nil {
			logger.Warn("poll limiter unavailable", zap.Error(err))
			return c.Next()
		}
		if !ok {
			return apperrors.NewPollTooFrequent(int(interval / time.Second))
		}
		return c.Next()
	}
}
