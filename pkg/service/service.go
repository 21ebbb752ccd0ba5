// Package service runs the host's HTTP server with graceful shutdown.
//
// Example usage:
//
//	svc := service.NewHTTPService("logtable-host", addr, handler,
//	    service.FromServerConfig(cfg.Server)...,
//	)
//	if err := service.Run(ctx, log, cfg.Server.ShutdownTimeout, svc); err != nil {
//	    return err
//	}
package service

import "context"

// Service is a component with a start/stop lifecycle.
type Service interface {
	// Start begins serving and returns once the service accepts work.
	Start(ctx context.Context) error

	// Stop waits for in-flight work until the context deadline.
	Stop(ctx context.Context) error

	Name() string

	// Health returns nil while the service is running.
	Health() error

	// Err delivers a failure that stopped the service after Start returned.
	Err() <-chan error
}
