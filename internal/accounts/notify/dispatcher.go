package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/metrics"
	"github.com/sethvargo/go-retry"
)

// DispatcherConfig tunes the delivery queue.
type DispatcherConfig struct {
	QueueSize   int           // default 256
	Workers     int           // default 2
	MaxAttempts int           // per message, default 3
	Backoff     time.Duration // first retry delay, doubled per attempt, default 1s
	Brand       Brand
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
	if c.Backoff <= 0 {
		c.Backoff = time.Second
	}
	return c
}

// Dispatcher delivers notifications on background workers. Enqueue never
// blocks: when the queue is full the message is dropped and logged. Failed
// deliveries are retried with exponential backoff, then logged and counted.
type Dispatcher struct {
	Sender Sender
	Logger *slog.Logger

	cfg   DispatcherConfig
	queue chan domain.Message

	// Internal channels for lifecycle management
	stopCh  chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopped bool
}

func NewDispatcher(sender Sender, logger *slog.Logger, cfg DispatcherConfig) *Dispatcher {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		Sender: sender,
		Logger: logger,
		cfg:    cfg,
		queue:  make(chan domain.Message, cfg.QueueSize),
		stopCh: make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the workers. Messages enqueued before Start wait in the queue.
func (d *Dispatcher) Start() {
	for range d.cfg.Workers {
		d.wg.Add(1)
		go d.run()
	}
	d.Logger.Info("notification dispatcher started", "workers", d.cfg.Workers, "queue_size", d.cfg.QueueSize)
}

// Stop stops accepting messages and waits for the workers to deliver what
// is already queued. When ctx ends first, in-flight deliveries are cancelled
// and ctx.Err() is returned.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.stopCh)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
		d.cancel()
		<-done
	}
	d.cancel()

	if dropped := len(d.queue); dropped > 0 {
		d.Logger.Error("notification dispatcher stopped with undelivered messages", "count", dropped)
	}
	d.Logger.Info("notification dispatcher stopped")
	return err
}

// Enqueue hands msg to a worker without waiting for delivery.
func (d *Dispatcher) Enqueue(msg domain.Message) {
	kind := string(msg.Notification.Kind())

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		d.Logger.Error("notification dropped, dispatcher stopped", "kind", kind, "to", msg.To)
		metrics.RecordNotification(kind, metrics.ResultDropped)
		return
	}

	select {
	case d.queue <- msg:
	default:
		d.Logger.Error("notification dropped, queue full", "kind", kind, "to", msg.To, "queue_size", d.cfg.QueueSize)
		metrics.RecordNotification(kind, metrics.ResultDropped)
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case msg := <-d.queue:
			d.deliver(msg)
		case <-d.stopCh:
			// Drain what was queued before Stop.
			for {
				select {
				case msg := <-d.queue:
					d.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(msg domain.Message) {
	kind := string(msg.Notification.Kind())
	log := d.Logger.With("kind", kind, "to", msg.To)

	email, err := Render(d.ctx, d.cfg.Brand, msg)
	if err != nil {
		log.Error("failed to render notification", "error", err)
		metrics.RecordNotification(kind, metrics.ResultFailed)
		return
	}

	attempts := 0
	backoff := retry.WithMaxRetries(uint64(d.cfg.MaxAttempts-1), retry.NewExponential(d.cfg.Backoff)) // #nosec G115 - MaxAttempts > 0
	err = retry.Do(d.ctx, backoff, func(ctx context.Context) error {
		attempts++
		if err := d.Sender.Send(ctx, email); err != nil {
			log.Warn("notification delivery attempt failed", "attempt", attempts, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		log.Error("notification delivery failed", "attempts", attempts, "error", err)
		metrics.RecordNotification(kind, metrics.ResultFailed)
		return
	}

	log.Info("notification sent", "attempts", attempts)
	metrics.RecordNotification(kind, metrics.ResultSent)
}
