package service

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Combine-Capital/logtable/pkg/errors"
	"github.com/Combine-Capital/logtable/pkg/logging"
)

// DefaultShutdownTimeout bounds graceful shutdown when none is configured.
const DefaultShutdownTimeout = 30 * time.Second

// ShutdownSignals trigger graceful shutdown in Run.
var ShutdownSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}

// Run starts services in order and blocks until ctx is canceled, a shutdown
// signal arrives, or a service fails. Services are then stopped in reverse
// order within timeout. A service failure is returned.
func Run(ctx context.Context, log *logging.Logger, timeout time.Duration, services ...Service) error {
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}

	ctx, stop := signal.NotifyContext(ctx, ShutdownSignals...)
	defer stop()

	var started []Service
	var runErr error
	for _, svc := range services {
		if err := svc.Start(ctx); err != nil {
			runErr = err
			break
		}
		log.Information("Service {Service} started", svc.Name())
		started = append(started, svc)
	}

	if runErr == nil {
		runErr = wait(ctx, started)
		if runErr == nil {
			log.Information("Shutdown requested, stopping services")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	var stopErrs []error
	for i := len(started) - 1; i >= 0; i-- {
		svc := started[i]
		if err := svc.Stop(shutdownCtx); err != nil {
			log.Error(err, "Service {Service} did not stop cleanly", svc.Name())
			stopErrs = append(stopErrs, err)
			continue
		}
		log.Information("Service {Service} stopped", svc.Name())
	}

	if runErr != nil {
		return runErr
	}
	return errors.Join(stopErrs...)
}

// wait returns nil when ctx ends and the first service failure otherwise.
func wait(ctx context.Context, services []Service) error {
	failed := make(chan error, len(services))
	for _, svc := range services {
		go func() {
			select {
			case err := <-svc.Err():
				failed <- err
			case <-ctx.Done():
			}
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-failed:
		return err
	}
}

// CleanupFunc releases one resource during shutdown.
type CleanupFunc func(context.Context) error

// CleanupHandler runs cleanup functions in reverse registration order.
type CleanupHandler struct {
	cleanups []CleanupFunc
}

func NewCleanupHandler() *CleanupHandler {
	return &CleanupHandler{}
}

// Register adds fn. The last registered function runs first.
func (h *CleanupHandler) Register(fn CleanupFunc) {
	h.cleanups = append(h.cleanups, fn)
}

// Execute runs every cleanup, even after failures, and returns all errors
// joined. The handler is empty afterwards, so a second call does nothing.
func (h *CleanupHandler) Execute(ctx context.Context) error {
	var errs []error
	for i := len(h.cleanups) - 1; i >= 0; i-- {
		if err := h.cleanups[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	h.cleanups = nil
	return errors.Join(errs...)
}
