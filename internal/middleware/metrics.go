package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
)

var (
	promOnce sync.Once
	promHTTP *fiberprometheus.FiberPrometheus
)

// InitMetrics creates the Prometheus HTTP middleware for the given service
// name. The underlying collectors live in the default registry, so the
// middleware is created once and shared.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		promHTTP = fiberprometheus.New(serviceName)
	})
	return promHTTP
}

// MetricsMiddleware records request counts, durations, and in-flight requests.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
