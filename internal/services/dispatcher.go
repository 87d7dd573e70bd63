package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"schoolevents/internal/domain"
)

// DispatcherConfig controls queue size, concurrency and retry policy.
type DispatcherConfig struct {
	QueueSize      int
	Workers        int
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	AttemptTimeout time.Duration
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 500 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 10 * time.Second
	}
	return c
}

// Dispatcher delivers notification intents off the request path. Enqueue never
// blocks; delivery runs on worker goroutines with bounded retries. An intent that
// cannot be queued or delivered is logged and dropped.
type Dispatcher struct {
	logger   *slog.Logger
	notifier domain.Notifier
	cfg      DispatcherConfig
	queue    chan domain.NotificationIntent

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. Call Start to launch workers and Stop to drain.
func NewDispatcher(logger *slog.Logger, notifier domain.Notifier, cfg DispatcherConfig) *Dispatcher {
	cfg = cfg.withDefaults()
	return &Dispatcher{
		logger:   logger,
		notifier: notifier,
		cfg:      cfg,
		queue:    make(chan domain.NotificationIntent, cfg.QueueSize),
	}
}

// Enqueue implements domain.NotificationQueue.
func (d *Dispatcher) Enqueue(intent domain.NotificationIntent) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("notification dropped: dispatcher stopped",
			"kind", intent.Kind, "registration_id", intent.RegistrationID)
		return false
	}
	select {
	case d.queue <- intent:
		return true
	default:
		d.logger.Warn("notification dropped: queue full",
			"kind", intent.Kind, "registration_id", intent.RegistrationID, "queue_size", d.cfg.QueueSize)
		return false
	}
}

// Start launches the workers. ctx bounds every delivery attempt.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
}

// Stop stops accepting intents and waits for queued ones to be processed.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for intent := range d.queue {
		d.deliver(ctx, intent)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, intent domain.NotificationIntent) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.cfg.InitialBackoff
	b.MaxInterval = d.cfg.MaxBackoff

	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, d.cfg.AttemptTimeout)
		defer cancel()
		err := d.notifier.Notify(attemptCtx, intent)
		if errors.Is(err, domain.ErrInvalidInput) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(d.cfg.MaxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			d.logger.Warn("notification attempt failed",
				"kind", intent.Kind, "registration_id", intent.RegistrationID,
				"attempt", attempts, "retry_in", next, "err", err)
		}),
	)
	if err != nil {
		d.logger.Error("notification dropped: delivery failed",
			"kind", intent.Kind, "registration_id", intent.RegistrationID,
			"user_id", intent.UserID, "attempts", attempts, "err", err)
		return
	}
	d.logger.Debug("notification delivered",
		"kind", intent.Kind, "registration_id", intent.RegistrationID, "attempts", attempts)
}
