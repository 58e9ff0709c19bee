// Package notify delivers run completion messages off the hot path. Delivery
// is best-effort: a run never fails because its notification could not be
// sent.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"shiftd/internal/eventbus"
	rtsup "shiftd/internal/runtime/supervisor"
	logx "shiftd/pkg/logx"
)

var (
	ErrDisabled  = errors.New("notify disabled")
	ErrQueueFull = errors.New("notify queue full")
	ErrStopped   = errors.New("notify stopped")
)

// Message is one outbound notification.
type Message struct {
	AutomationID string    `json:"automation_id"`
	ExecutionID  string    `json:"execution_id"`
	Kind         string    `json:"kind"` // "run.completed", "run.failed"
	Text         string    `json:"text"`
	At           time.Time `json:"at"`
}

// Sender delivers a single message to its destination.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

type Config struct {
	Enabled       bool
	Workers       int
	QueueSize     int
	RatePerSec    int
	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
	WebhookURL    string
	SendTimeout   time.Duration
}

// Service is an async queue + worker pool + rate limit + retry pipeline.
// It is safe for concurrent use.
type Service struct {
	mu sync.Mutex

	log    logx.Logger
	sender Sender
	bus    eventbus.Bus

	cfg     Config
	limiter *rate.Limiter

	accepting bool
	queue     chan Message
	sup       *rtsup.Supervisor
}

func New(cfg Config, sender Sender, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{log: log, sender: sender, bus: bus}
	s.applyLocked(cfg)
	return s
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

// Apply swaps config in place. Queue and worker counts only take effect on
// the next Start; the rate limiter updates immediately.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 5
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = 10 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	s.cfg = cfg
	// Burst equals the per-second rate so short spikes don't stall workers.
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

// Start is idempotent.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue != nil || !s.cfg.Enabled || s.sender == nil {
		return
	}
	s.queue = make(chan Message, s.cfg.QueueSize)
	s.accepting = true
	s.sup = rtsup.New(ctx,
		rtsup.WithLogger(s.log.With(logx.String("comp", "notify"))),
		rtsup.WithCancelOnError(false),
	)
	q := s.queue
	for i := 0; i < s.cfg.Workers; i++ {
		s.sup.GoRestart(fmt.Sprintf("worker.%d", i), func(ctx context.Context) error {
			s.workerLoop(ctx, q)
			return nil
		})
	}
}

// Stop blocks new publishes, closes the queue and waits for workers to drain
// until ctx expires.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	q := s.queue
	sup := s.sup
	s.queue = nil
	s.sup = nil
	s.accepting = false
	s.mu.Unlock()
	if q == nil {
		return
	}
	close(q)
	if err := sup.Wait(ctx); err != nil {
		sup.Cancel()
	}
}

// Publish enqueues a message without blocking. A full queue drops the
// message and reports ErrQueueFull; callers treat that as advisory.
func (s *Service) Publish(m Message) error {
	s.mu.Lock()
	if !s.cfg.Enabled {
		s.mu.Unlock()
		return ErrDisabled
	}
	if !s.accepting || s.queue == nil {
		s.mu.Unlock()
		return ErrStopped
	}
	q := s.queue
	s.mu.Unlock()

	if m.At.IsZero() {
		m.At = time.Now()
	}
	select {
	case q <- m:
		return nil
	default:
		s.publishEvent("notify.dropped", m, ErrQueueFull)
		return ErrQueueFull
	}
}

func (s *Service) workerLoop(ctx context.Context, q <-chan Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-q:
			if !ok {
				return
			}
			s.sendWithRetry(ctx, m)
		}
	}
}

func (s *Service) sendWithRetry(ctx context.Context, m Message) {
	s.mu.Lock()
	cfg := s.cfg
	lim := s.limiter
	s.mu.Unlock()

	attempts := 1 + cfg.RetryMax
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := lim.Wait(ctx); err != nil {
			return
		}
		callCtx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
		err := s.sender.Send(callCtx, m)
		cancel()
		if err == nil {
			s.publishEvent("notify.sent", m, nil)
			return
		}
		lastErr = err
		s.log.Debug("notify send failed",
			logx.String("automation_id", m.AutomationID),
			logx.Int("attempt", attempt), logx.Err(err))
		if attempt >= attempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(retryDelay(cfg, attempt)):
		}
	}
	s.log.Warn("notification dropped after retries",
		logx.String("automation_id", m.AutomationID), logx.Err(lastErr))
	s.publishEvent("notify.failed", m, lastErr)
}

func (s *Service) publishEvent(typ string, m Message, err error) {
	if s.bus == nil {
		return
	}
	data := map[string]string{
		"automation_id": m.AutomationID,
		"execution_id":  m.ExecutionID,
		"kind":          m.Kind,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	s.bus.Publish(eventbus.Event{Type: typ, Data: data})
}

// retryDelay doubles the base delay per attempt, capped at RetryMaxDelay.
func retryDelay(cfg Config, attempt int) time.Duration {
	d := cfg.RetryBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= cfg.RetryMaxDelay {
			return cfg.RetryMaxDelay
		}
	}
	return d
}
