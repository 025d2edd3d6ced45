// Package di contains dependency injection tokens for the gas context.
package di

import (
	"github.com/fd1az/flashbot/business/gas/app"
	"github.com/fd1az/flashbot/internal/di"
)

const Oracle = "gas.Oracle"

// GetOracle resolves the gas Oracle from the registry.
func GetOracle(sr di.ServiceRegistry) app.Oracle {
	return di.GetToken[app.Oracle](sr, Oracle)
}
