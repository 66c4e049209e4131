package http

import (
	"context"
	"errors"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/northwind-service/internal/config"
	"github.com/spec-kit/northwind-service/internal/observability"
	apperrors "github.com/spec-kit/northwind-service/pkg/util/errorutil"
	"github.com/spec-kit/northwind-service/pkg/util/fiberutil"
)

// RegisterMiddlewares attaches the global middlewares that run before the request gate:
// request id, access log, error rendering, CORS and the request timeout.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, corsCfg config.CORSConfig, timeout time.Duration) {
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics))
	app.Use(cors.New(corsConfig(corsCfg)))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
}

func corsConfig(cfg config.CORSConfig) cors.Config {
	origins := strings.Join(cfg.AllowOrigins, ",")
	return cors.Config{
		AllowOrigins: origins,
		AllowMethods: strings.Join(cfg.AllowMethods, ","),
		AllowHeaders: strings.Join(cfg.AllowHeaders, ","),
		// fiber refuses credentials with a wildcard origin
		AllowCredentials: cfg.AllowCredentials && origins != "*",
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := toDomainError(err)
				metrics.RecordError(fiberutil.RouteTemplate(c), utils.CopyString(c.Method()), domainErr.Code)
				response := fiber.Map{"error": fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
				}}
				if len(domainErr.Details) > 0 {
					response["error"].(fiber.Map)["details"] = domainErr.Details
				}
				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed", zap.String("path", c.Path()), zap.Error(domainErr))
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(response)
				err = nil
			}
		}()
		return c.Next()
	}
}

func toDomainError(err error) *apperrors.DomainError {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return apperrors.FromStatus(fiberErr.Code, fiberErr.Message)
	}
	return apperrors.ToDomainError(err)
}
