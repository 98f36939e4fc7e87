package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
)

var (
	promOnce sync.Once
	promInst *fiberprometheus.FiberPrometheus
)

// InitMetrics returns the Prometheus middleware for the given service name.
// The underlying collectors register against the default registry, so the
// instance is created once and shared.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		promInst = fiberprometheus.New(serviceName)
	})
	return promInst
}

// MetricsMiddleware returns the Fiber handler that records HTTP metrics.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
