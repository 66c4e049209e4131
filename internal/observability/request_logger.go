package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"github.com/spec-kit/northwind-service/pkg/util/fiberutil"
)

// RequestLogger logs one line per request and feeds the HTTP metrics. Metrics are
// labelled by route template so that arbitrary paths cannot mint new series.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		status := c.Response().StatusCode()
		method := utils.CopyString(c.Method())
		metrics.RecordRequest(fiberutil.RouteTemplate(c), method, status, latency)

		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", utils.CopyString(c.Path())),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("ip", utils.CopyString(c.IP())),
		}
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			fields = append(fields, zap.String("request_id", rid))
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			logger.Error("request", fields...)
		case status >= fiber.StatusBadRequest:
			logger.Warn("request", fields...)
		default:
			logger.Debug("request", fields...)
		}
		return err
	}
}
