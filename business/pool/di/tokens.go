// Package di contains dependency injection tokens for the pool context.
package di

import (
	"github.com/fd1az/flashbot/business/pool/app"
	"github.com/fd1az/flashbot/internal/di"
)

// DI tokens for the pool module.
const (
	RPC    = "pool.RPC"
	Reader = "pool.Reader"
)

// GetRPC resolves the RPC port from the registry.
func GetRPC(sr di.ServiceRegistry) app.RPC {
	return di.GetToken[app.RPC](sr, RPC)
}

// GetReader resolves the pool Reader from the registry.
func GetReader(sr di.ServiceRegistry) *app.Reader {
	return di.GetToken[*app.Reader](sr, Reader)
}
