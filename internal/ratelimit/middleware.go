package ratelimit

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/spec-kit/northwind-service/pkg/util/fiberutil"
)

// RejectBody is the fixed plain-text body of a 429 response.
const RejectBody = "Too Many Requests"

// RejectedRoute is the route recorded for requests refused before routing.
const RejectedRoute = "*"

// Event describes one limiter decision for statistics. Route is the registered route
// template that served the request, fiberutil.Unmatched when no handler matched, or
// RejectedRoute for requests the limiter refused.
type Event struct {
	Key     string
	Allowed bool
	Method  string
	Route   string
	At      time.Time
}

// Sink accepts decision events without blocking the request.
type Sink interface {
	Offer(ev Event) bool
}

// DecisionObserver counts decisions, e.g. in Prometheus.
type DecisionObserver interface {
	ObserveRateLimitDecision(allowed bool)
}

// KeyFunc derives the client key from a request. The limiter keeps the returned
// string as a map key, so it must not alias fiber's request buffers.
type KeyFunc func(c *fiber.Ctx) string

// MiddlewareOptions configures the fiber adapter.
type MiddlewareOptions struct {
	// Methods subject to limiting; defaults to GET only.
	Methods  []string
	KeyFn    KeyFunc
	Sink     Sink
	Observer DecisionObserver
}

// Middleware applies a Limiter to eligible requests.
type Middleware struct {
	limiter  *Limiter
	methods  map[string]struct{}
	keyFn    KeyFunc
	sink     Sink
	observer DecisionObserver
}

// NewMiddleware builds the fiber adapter around limiter.
func NewMiddleware(limiter *Limiter, opts MiddlewareOptions) *Middleware {
	methods := opts.Methods
	if len(methods) == 0 {
		methods = []string{fiber.MethodGet}
	}
	set := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		set[strings.ToUpper(strings.TrimSpace(m))] = struct{}{}
	}
	keyFn := opts.KeyFn
	if keyFn == nil {
		keyFn = ClientIP
	}
	return &Middleware{
		limiter:  limiter,
		methods:  set,
		keyFn:    keyFn,
		sink:     opts.Sink,
		observer: opts.Observer,
	}
}

// ClientIP keys requests by the address fiber resolves for the peer, which honours
// the configured proxy header for trusted proxies. c.IP may alias the request
// buffer, so the key is copied before it outlives the request.
func ClientIP(c *fiber.Ctx) string {
	if ip := c.IP(); ip != "" {
		return utils.CopyString(ip)
	}
	return "unknown"
}

// Eligible reports whether requests with method are counted.
func (m *Middleware) Eligible(method string) bool {
	_, ok := m.methods[strings.ToUpper(method)]
	return ok
}

// Handle counts the request and rejects it with 429 once the key is over budget.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	if !m.Eligible(c.Method()) {
		return c.Next()
	}

	key := m.keyFn(c)
	dec := m.limiter.Allow(key)

	if m.observer != nil {
		m.observer.ObserveRateLimitDecision(dec.Allowed)
	}
	c.Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))

	if !dec.Allowed {
		retryAfter := int(time.Until(dec.ResetAt).Round(time.Second).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		m.offer(key, false, c.Method(), RejectedRoute)
		return c.Status(fiber.StatusTooManyRequests).SendString(RejectBody)
	}

	err := c.Next()
	// the route template is only known once routing has run
	m.offer(key, true, c.Method(), fiberutil.RouteTemplate(c))
	return err
}

func (m *Middleware) offer(key string, allowed bool, method, route string) {
	if m.sink == nil {
		return
	}
	m.sink.Offer(Event{
		Key:     key,
		Allowed: allowed,
		Method:  utils.CopyString(method),
		Route:   route,
		At:      time.Now(),
	})
}
