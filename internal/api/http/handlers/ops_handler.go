package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/northwind-service/internal/ratelimit"
	apperrors "github.com/spec-kit/northwind-service/pkg/util/errorutil"
)

// StatsReader returns persisted rate limit statistics.
type StatsReader interface {
	Totals(ctx context.Context) (ratelimit.Totals, error)
}

// OpsHandler serves the admin-only /actuator endpoints.
type OpsHandler struct {
	metrics fiber.Handler
	stats   StatsReader
	limiter *ratelimit.Limiter
	dropped func() int64
}

// NewOpsHandler constructs handler. stats and dropped may be nil when statistics
// are disabled.
func NewOpsHandler(registry *prometheus.Registry, limiter *ratelimit.Limiter, stats StatsReader, dropped func() int64) *OpsHandler {
	return &OpsHandler{
		metrics: adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
		stats:   stats,
		limiter: limiter,
		dropped: dropped,
	}
}

// Metrics handles GET /actuator/metrics.
func (h *OpsHandler) Metrics(c *fiber.Ctx) error {
	return h.metrics(c)
}

// RateLimit handles GET /actuator/ratelimit.
func (h *OpsHandler) RateLimit(c *fiber.Ctx) error {
	data := fiber.Map{
		"window_ms":    h.limiter.Window().Milliseconds(),
		"max_requests": h.limiter.Limit(),
		"tracked_keys": h.limiter.Len(),
	}
	if h.dropped != nil {
		data["dropped_events"] = h.dropped()
	}
	if h.stats != nil {
		totals, err := h.stats.Totals(c.UserContext())
		if err != nil {
			return apperrors.NewUnavailable("rate limit statistics unavailable", nil)
		}
		data["totals"] = totals
	}
	return c.JSON(fiber.Map{"data": data})
}
