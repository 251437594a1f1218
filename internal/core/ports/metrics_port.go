package ports

import (
	"time"

	"github.com/gin-gonic/gin"
)

type MetricsPort interface {
	RecordMetrics(c *gin.Context, start time.Time)
	RecordRideOperation(op string, outcome string)
	RecordSideEffectFailure(kind string)
	RecordSOS()
}
