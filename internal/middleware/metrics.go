package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RedisErrors counts Redis command failures by operation name.
var RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "inkwell_redis_errors_total",
	Help: "Total number of Redis errors by operation type",
}, []string{"operation"})

// EmailDeliveries counts outbound email attempts by outcome.
var EmailDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "inkwell_email_deliveries_total",
	Help: "Total number of transactional email deliveries by outcome",
}, []string{"outcome"})

// InitMetrics creates the fiberprometheus middleware for the given service name.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}

// MetricsMiddleware returns the request-instrumentation handler.
func MetricsMiddleware(p *fiberprometheus.FiberPrometheus) fiber.Handler {
	return p.Middleware
}
