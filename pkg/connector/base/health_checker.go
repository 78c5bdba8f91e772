package base

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/arrowload/pkg/connector/core"
	"github.com/ajitpratap0/arrowload/pkg/logger"
)

// CheckHealth performs one health check against dest and reports status
// and latency. It never returns an error; failures are carried in the status.
func CheckHealth(ctx context.Context, dest core.Destination) *core.HealthStatus {
	start := time.Now()
	err := dest.Health(ctx)

	status := &core.HealthStatus{
		Status:    "healthy",
		Timestamp: start,
		Latency:   time.Since(start),
		Details: map[string]interface{}{
			"destination":  dest.Name(),
			"transactions": dest.SupportsTransactions(),
		},
	}
	if _, ok := dest.(core.BulkAppender); ok {
		status.Details["bulk_append"] = true
	}

	if err != nil {
		status.Status = "unhealthy"
		status.Error = err.Error()
		logger.Get().Warn("health check failed",
			zap.String("component", "health_checker"),
			zap.String("destination", dest.Name()),
			zap.Error(err))
	}
	return status
}
