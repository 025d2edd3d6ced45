// Package di contains dependency injection tokens for the arbitrage
// context: C4 the opportunity detector, C5 the input sizer, and C6 the
// cost estimator.
package di

import (
	"github.com/fd1az/flashbot/business/arbitrage/app"
	"github.com/fd1az/flashbot/internal/di"
)

const (
	Detector  = "arbitrage.Detector"
	Sizer     = "arbitrage.Sizer"
	Estimator = "arbitrage.Estimator"
)

// GetDetector resolves the opportunity detector from the registry.
func GetDetector(sr di.ServiceRegistry) *app.Detector {
	return di.GetToken[*app.Detector](sr, Detector)
}

// GetSizer resolves the input sizer from the registry.
func GetSizer(sr di.ServiceRegistry) *app.Sizer {
	return di.GetToken[*app.Sizer](sr, Sizer)
}

// GetEstimator resolves the cost estimator from the registry.
func GetEstimator(sr di.ServiceRegistry) *app.Estimator {
	return di.GetToken[*app.Estimator](sr, Estimator)
}
