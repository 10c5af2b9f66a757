package http

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/pkg/util/errorutil"
)

// MiddlewareConfig lists what the global chain needs.
type MiddlewareConfig struct {
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	Timeout      time.Duration
	AccessFilter *auth.AccessFilter
}

// Middlewares returns the global interceptors in execution order. Each one
// either passes through with c.Next or short-circuits by returning an error
// that the error handler renders.
func Middlewares(cfg MiddlewareConfig) []fiber.Handler {
	chain := make([]fiber.Handler, 0, 4)
	if cfg.Timeout > 0 {
		chain = append(chain, requestTimeoutMiddleware(cfg.Timeout))
	}
	chain = append(chain,
		observability.RequestLogger(cfg.Logger, cfg.Metrics),
		errorHandlingMiddleware(cfg.Logger, cfg.Metrics),
	)
	if cfg.AccessFilter != nil {
		chain = append(chain, cfg.AccessFilter.Handle)
	}
	return chain
}

// RegisterMiddlewares attaches the global chain to app.
func RegisterMiddlewares(app *fiber.App, cfg MiddlewareConfig) {
	for _, mw := range Middlewares(cfg) {
		app.Use(mw)
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
				err = errorutil.NewInternalError(nil)
			}
			if err != nil {
				domainErr := toDomainError(err)
				metrics.RecordError(c.Route().Path, c.Method(), domainErr.Code)
				response := fiber.Map{"error": fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
				}}
				if len(domainErr.Details) > 0 {
					response["error"].(fiber.Map)["details"] = domainErr.Details
				}
				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed", zap.Error(domainErr))
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(response)
				err = nil
			}
		}()
		return c.Next()
	}
}

func toDomainError(err error) *errorutil.DomainError {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return errorutil.FromStatus(fiberErr.Code, fiberErr.Message)
	}
	return errorutil.ToDomainError(err)
}
