// Package di contains the dependency injection token for C11's scheduler.
package di

import (
	"github.com/fd1az/flashbot/business/orchestrator/app"
	"github.com/fd1az/flashbot/internal/di"
)

const Scheduler = "orchestrator.Scheduler"

// GetScheduler resolves the pipeline scheduler from the registry.
func GetScheduler(sr di.ServiceRegistry) *app.Scheduler {
	return di.GetToken[*app.Scheduler](sr, Scheduler)
}
