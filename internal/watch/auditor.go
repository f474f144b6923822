package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hulysync/beads-bridge/internal/logging"
)

// Config holds configuration for the audit loop.
type Config struct {
	// DebounceInterval is how long the files must be quiet before the audit
	// runs. This batches the bursts of writes SQLite and bd produce.
	DebounceInterval time.Duration

	// AuditOnStart runs one audit before waiting for changes.
	AuditOnStart bool

	// Logger for watch activity
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 500 * time.Millisecond,
		AuditOnStart:     true,
		Logger:           logging.Discard(),
	}
}

// AuditFunc runs one read-only audit. Its error is logged, never fatal.
type AuditFunc func(ctx context.Context) error

// Auditor runs an AuditFunc after each quiet period following file changes.
type Auditor struct {
	watcher *FileWatcher
	audit   AuditFunc
	config  *Config
	runs    atomic.Int64
}

// NewAuditor creates an Auditor. The watcher must already be started.
func NewAuditor(watcher *FileWatcher, audit AuditFunc, config *Config) (*Auditor, error) {
	if watcher == nil {
		return nil, fmt.Errorf("watcher cannot be nil")
	}
	if audit == nil {
		return nil, fmt.Errorf("audit cannot be nil")
	}
	if !watcher.IsRunning() {
		return nil, fmt.Errorf("watcher is not running")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = logging.Discard()
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = DefaultConfig().DebounceInterval
	}
	return &Auditor{watcher: watcher, audit: audit, config: config}, nil
}

// Runs returns how many audits have completed.
func (a *Auditor) Runs() int64 {
	return a.runs.Load()
}

// Run blocks until ctx is cancelled or the watcher is stopped.
func (a *Auditor) Run(ctx context.Context) error {
	logger := a.config.Logger

	if a.config.AuditOnStart {
		a.runAudit(ctx)
	}

	timer := time.NewTimer(a.config.DebounceInterval)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watch stopped")
			return nil

		case c, ok := <-a.watcher.Changes():
			if !ok {
				return nil
			}
			logger.Debug("file changed", "path", c.Path, "kind", c.Kind.String())
			timer.Reset(a.config.DebounceInterval)

		case err, ok := <-a.watcher.Errors():
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)

		case <-timer.C:
			a.runAudit(ctx)
		}
	}
}

func (a *Auditor) runAudit(ctx context.Context) {
	if err := a.audit(ctx); err != nil {
		a.config.Logger.Warn("audit failed", "error", err)
	}
	a.runs.Add(1)
}
