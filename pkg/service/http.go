package service

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Combine-Capital/logtable/pkg/config"
	"github.com/Combine-Capital/logtable/pkg/errors"
)

// HTTPService serves an http.Handler with graceful shutdown.
type HTTPService struct {
	name            string
	addr            string
	handler         http.Handler
	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration
	maxHeaderBytes  int

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	started  bool
	errCh    chan error
}

// HTTPServiceOption configures an HTTPService.
type HTTPServiceOption func(*HTTPService)

func WithReadTimeout(timeout time.Duration) HTTPServiceOption {
	return func(s *HTTPService) {
		s.readTimeout = timeout
	}
}

func WithWriteTimeout(timeout time.Duration) HTTPServiceOption {
	return func(s *HTTPService) {
		s.writeTimeout = timeout
	}
}

func WithShutdownTimeout(timeout time.Duration) HTTPServiceOption {
	return func(s *HTTPService) {
		s.shutdownTimeout = timeout
	}
}

func WithMaxHeaderBytes(bytes int) HTTPServiceOption {
	return func(s *HTTPService) {
		s.maxHeaderBytes = bytes
	}
}

// FromServerConfig returns the options set in the server section. Zero
// values keep the defaults.
func FromServerConfig(cfg config.ServerConfig) []HTTPServiceOption {
	var opts []HTTPServiceOption
	if cfg.ReadTimeout > 0 {
		opts = append(opts, WithReadTimeout(cfg.ReadTimeout))
	}
	if cfg.WriteTimeout > 0 {
		opts = append(opts, WithWriteTimeout(cfg.WriteTimeout))
	}
	if cfg.ShutdownTimeout > 0 {
		opts = append(opts, WithShutdownTimeout(cfg.ShutdownTimeout))
	}
	if cfg.MaxHeaderBytes > 0 {
		opts = append(opts, WithMaxHeaderBytes(cfg.MaxHeaderBytes))
	}
	return opts
}

// Addr formats the listen address for port.
func Addr(port int) string {
	return fmt.Sprintf(":%d", port)
}

// NewHTTPService creates a service listening on addr.
func NewHTTPService(name, addr string, handler http.Handler, opts ...HTTPServiceOption) *HTTPService {
	s := &HTTPService{
		name:            name,
		addr:            addr,
		handler:         handler,
		readTimeout:     10 * time.Second,
		writeTimeout:    10 * time.Second,
		shutdownTimeout: 30 * time.Second,
		maxHeaderBytes:  1 << 20,
		errCh:           make(chan error, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start binds the listener and serves in the background. Bind failures
// are returned; later serve failures are delivered on Err.
func (s *HTTPService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.NewPermanent(fmt.Sprintf("service %s already started", s.name), nil)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return errors.Wrapf(err, "failed to start HTTP service %s", s.name)
	}

	s.server = &http.Server{
		Handler:        s.handler,
		ReadTimeout:    s.readTimeout,
		WriteTimeout:   s.writeTimeout,
		MaxHeaderBytes: s.maxHeaderBytes,
		BaseContext:    func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	s.listener = ln
	s.started = true

	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.errCh <- errors.Wrapf(err, "HTTP service %s stopped", s.name)
		}
	}()
	return nil
}

// Stop shuts the server down, waiting for in-flight requests. Without a
// context deadline the configured shutdown timeout applies.
func (s *HTTPService) Stop(ctx context.Context) error {
	s.mu.Lock()
	server := s.server
	started := s.started
	s.mu.Unlock()

	if !started || server == nil {
		return nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.shutdownTimeout)
		defer cancel()
	}

	if err := server.Shutdown(ctx); err != nil {
		return errors.Wrapf(err, "failed to shutdown HTTP service %s", s.name)
	}

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()
	return nil
}

func (s *HTTPService) Name() string {
	return s.name
}

// ListenAddr returns the bound address, or "" before Start.
func (s *HTTPService) ListenAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *HTTPService) Health() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return errors.NewTemporary(fmt.Sprintf("service %s not running", s.name), nil)
	}
	return nil
}

func (s *HTTPService) Err() <-chan error {
	return s.errCh
}
