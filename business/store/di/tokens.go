// Package di contains the dependency injection token for C10's trade
// store service.
package di

import (
	"github.com/fd1az/flashbot/business/store/app"
	"github.com/fd1az/flashbot/internal/di"
)

const Service = "store.Service"

func GetService(sr di.ServiceRegistry) *app.Service { return di.GetToken[*app.Service](sr, Service) }
