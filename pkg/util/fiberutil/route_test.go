package fiberutil

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteTemplate(t *testing.T) {
	var seen []string
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		err := c.Next()
		seen = append(seen, RouteTemplate(c))
		return err
	})
	app.Use(func(c *fiber.Ctx) error {
		if c.Get("X-Reject") != "" {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		return c.Next()
	})
	app.Get("/api/products/:id", func(c *fiber.Ctx) error { return c.SendString("ok") })

	for _, tc := range []struct {
		path   string
		reject bool
	}{
		{"/api/products/1", false},
		{"/api/products/2", false},
		{"/api/products/3", true},
		{"/junk/000001", false},
	} {
		req := httptest.NewRequest(fiber.MethodGet, tc.path, nil)
		if tc.reject {
			req.Header.Set("X-Reject", "1")
		}
		_, err := app.Test(req)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"/api/products/:id", "/api/products/:id", Unmatched, Unmatched}, seen)
}
