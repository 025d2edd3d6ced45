// Package di contains dependency injection tokens for the registry context.
package di

import (
	"github.com/fd1az/flashbot/business/registry/app"
	"github.com/fd1az/flashbot/internal/di"
)

const (
	Service = "registry.Service"
)

// GetService resolves the registry Service from the registry.
func GetService(sr di.ServiceRegistry) *app.Service {
	return di.GetToken[*app.Service](sr, Service)
}
