package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	scheduler "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Scheduler"
)

// DueCheck fires the schedule executor before every dashboard request. This
// is the soft scheduling model: no background timer, each page refresh
// drives the scan. The executor's once-per-occurrence guards make the
// arbitrary call frequency safe.
func DueCheck(executor *scheduler.Executor) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		executor.RunDueSchedules(context.Background())
		ctx.Next()
	}
}
