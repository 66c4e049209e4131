package fiberutil

import "github.com/gofiber/fiber/v2"

// Unmatched labels requests that never reached a registered handler, e.g. ones
// rejected by a middleware or answered with 404 by the router.
const Unmatched = "unmatched"

// RouteTemplate returns the registered path of the handler that served c, such as
// "/api/products/:id". Requests that only passed through app.Use middleware, whose
// route is the root prefix, report Unmatched. The value comes from
// route registration, never from the request buffer, so it is safe to retain and
// its cardinality is bounded by the route table.
func RouteTemplate(c *fiber.Ctx) string {
	r := c.Route()
	if r == nil || r.Path == "" || r.Path == "/" {
		return Unmatched
	}
	return r.Path
}
