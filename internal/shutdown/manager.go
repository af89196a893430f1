// Package shutdown sequences the release of process resources on SIGINT/SIGTERM.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Manager is the single owner of the termination signals. Hooks run once, in reverse
// registration order, each under its own timeout. Hook errors are logged and never
// stop the sequence.
type Manager struct {
	timeout time.Duration
	logger  *zap.Logger

	mu    sync.Mutex
	hooks []hook
	once  sync.Once
}

type hook struct {
	name string
	fn   func(context.Context) error
}

// New creates a Manager.
func New(timeout time.Duration, logger *zap.Logger) *Manager {
	return &Manager{timeout: timeout, logger: logger}
}

// Add registers a hook. Register in acquisition order: the last acquired is released first.
func (m *Manager) Add(name string, fn func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook{name: name, fn: fn})
}

// Wait blocks until SIGINT, SIGTERM or ctx cancellation, then runs the hooks.
func (m *Manager) Wait(ctx context.Context) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	m.logger.Info("received shutdown signal, starting graceful shutdown")
	m.Run(context.Background())
}

// Run executes the hooks. Only the first call does work.
func (m *Manager) Run(ctx context.Context) {
	m.once.Do(func() {
		m.mu.Lock()
		hooks := append([]hook(nil), m.hooks...)
		m.mu.Unlock()

		for i := len(hooks) - 1; i >= 0; i-- {
			h := hooks[i]
			hctx, cancel := context.WithTimeout(ctx, m.timeout)
			start := time.Now()
			err := h.fn(hctx)
			cancel()

			if err != nil {
				m.logger.Error("shutdown hook failed",
					zap.String("name", h.name),
					zap.Error(err),
					zap.Duration("duration", time.Since(start)))
				continue
			}
			m.logger.Info("shutdown hook completed",
				zap.String("name", h.name),
				zap.Duration("duration", time.Since(start)))
		}
		m.logger.Info("graceful shutdown completed")
	})
}

// CloseFunc adapts an io.Closer-like value to a hook.
func CloseFunc(c interface{ Close() error }) func(context.Context) error {
	return func(context.Context) error {
		return c.Close()
	}
}
