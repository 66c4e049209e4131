package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/northwind-service/internal/config"
)

// NewApp builds the fiber application. Request values are copied (Immutable) since
// several components keep them after the handler returns. A configured proxy header
// is honoured only for requests arriving from one of the trusted proxies.
func NewApp(cfg config.AppConfig) *fiber.App {
	fiberCfg := fiber.Config{
		AppName:               cfg.Name,
		Immutable:             true,
		DisableStartupMessage: true,
	}
	if cfg.ProxyHeader != "" {
		fiberCfg.ProxyHeader = cfg.ProxyHeader
		fiberCfg.EnableTrustedProxyCheck = true
		fiberCfg.TrustedProxies = cfg.TrustedProxies
		fiberCfg.EnableIPValidation = true
	}
	return fiber.New(fiberCfg)
}
