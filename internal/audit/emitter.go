package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sink consumes audit events (file, webhook, etc.).
type Sink interface {
	Name() string
	Deliver(context.Context, *Event) error
	Close(context.Context) error
}

// Metrics holds counters for event delivery.
type Metrics struct {
	enqueued uint64
	dropped  uint64

	sinkSuccess map[string]uint64
	sinkFailure map[string]uint64
}

func (m *Metrics) snapshot() Metrics {
	out := Metrics{
		enqueued:    m.enqueued,
		dropped:     m.dropped,
		sinkSuccess: make(map[string]uint64, len(m.sinkSuccess)),
		sinkFailure: make(map[string]uint64, len(m.sinkFailure)),
	}
	for k, v := range m.sinkSuccess {
		out.sinkSuccess[k] = v
	}
	for k, v := range m.sinkFailure {
		out.sinkFailure[k] = v
	}
	return out
}

func (m Metrics) Enqueued() uint64 { return m.enqueued }
func (m Metrics) Dropped() uint64  { return m.dropped }

func (m Metrics) SinkSuccess(name string) uint64 { return m.sinkSuccess[name] }
func (m Metrics) SinkFailure(name string) uint64 { return m.sinkFailure[name] }

// EmitterConfig controls worker and queue sizing.
type EmitterConfig struct {
	QueueSize       int
	Workers         int
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

// Emitter buffers events and delivers them to sinks off the request path.
type Emitter struct {
	queue           chan *Event
	sinks           []Sink
	metrics         Metrics
	shutdownTimeout time.Duration
	logger          *slog.Logger

	mu        sync.RWMutex
	metricsMu sync.Mutex
	closed    bool
	wg        sync.WaitGroup
}

// NewEmitter starts background workers delivering to sinks.
func NewEmitter(cfg EmitterConfig, sinks []Sink) *Emitter {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	em := &Emitter{
		queue: make(chan *Event, cfg.QueueSize),
		sinks: sinks,
		metrics: Metrics{
			sinkSuccess: make(map[string]uint64, len(sinks)),
			sinkFailure: make(map[string]uint64, len(sinks)),
		},
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          cfg.Logger,
	}
	for i := 0; i < cfg.Workers; i++ {
		em.wg.Add(1)
		go em.worker()
	}
	return em
}

// Emit enqueues ev without blocking; a full queue drops it.
func (e *Emitter) Emit(ev *Event) {
	if e == nil || ev == nil {
		return
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	accepted := false
	if !e.closed {
		select {
		case e.queue <- ev:
			accepted = true
		default:
		}
	}

	e.metricsMu.Lock()
	if accepted {
		e.metrics.enqueued++
	} else {
		e.metrics.dropped++
	}
	e.metricsMu.Unlock()
}

// Close stops accepting events and waits up to the shutdown timeout for
// the queue to drain.
func (e *Emitter) Close(ctx context.Context) {
	if e == nil {
		return
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	waitCtx, cancel := context.WithTimeout(ctx, e.shutdownTimeout)
	defer cancel()

	select {
	case <-done:
	case <-waitCtx.Done():
	}

	for _, s := range e.sinks {
		if err := s.Close(waitCtx); err != nil {
			e.logger.Warn("audit sink close failed", "sink", s.Name(), "error", err)
		}
	}
}

// MetricsSnapshot copies the current counters.
func (e *Emitter) MetricsSnapshot() Metrics {
	if e == nil {
		return Metrics{}
	}
	e.metricsMu.Lock()
	defer e.metricsMu.Unlock()
	return e.metrics.snapshot()
}

func (e *Emitter) worker() {
	defer e.wg.Done()
	for ev := range e.queue {
		e.deliver(ev)
	}
}

func (e *Emitter) deliver(ev *Event) {
	for _, s := range e.sinks {
		err := s.Deliver(context.Background(), ev)
		e.metricsMu.Lock()
		if err != nil {
			e.metrics.sinkFailure[s.Name()]++
		} else {
			e.metrics.sinkSuccess[s.Name()]++
		}
		e.metricsMu.Unlock()
		if err != nil {
			e.logger.Warn("audit sink failed", "sink", s.Name(), "error", err)
		}
	}
}
