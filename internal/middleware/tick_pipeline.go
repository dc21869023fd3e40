package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"IgniteX/internal/domain/models"
	domrepo "IgniteX/internal/domain/repository"
	domsvc "IgniteX/internal/domain/service"
	"IgniteX/pkg/logger"
)

// TickSink receives validated, throttled ticks.
type TickSink interface {
	OnTick(ctx context.Context, tick models.PriceTick)
}

// TickSinkFunc adapts a function to TickSink.
type TickSinkFunc func(ctx context.Context, tick models.PriceTick)

func (f TickSinkFunc) OnTick(ctx context.Context, tick models.PriceTick) { f(ctx, tick) }

// TickPipeline sits between the price stream and its consumers. It validates
// ticks, throttles per instrument, and fans the survivors out to every sink.
// Stream errors trigger reconnects with capped backoff.
type TickPipeline struct {
	stream  domsvc.PriceStream
	sinks   []TickSink
	metrics domrepo.Metrics
	logger  *logger.Logger

	maxPerSec   int
	instruments []string

	mu       sync.Mutex
	lastSeen map[string]time.Time
	started  bool
	stopCh   chan struct{}
}

type PipelineOption func(*TickPipeline)

// WithMaxTicksPerSec caps accepted ticks per instrument per second.
func WithMaxTicksPerSec(n int) PipelineOption {
	return func(p *TickPipeline) {
		if n > 0 {
			p.maxPerSec = n
		}
	}
}

func NewTickPipeline(stream domsvc.PriceStream, instruments []string, metrics domrepo.Metrics, l *logger.Logger, sinks []TickSink, opts ...PipelineOption) *TickPipeline {
	p := &TickPipeline{
		stream:      stream,
		sinks:       sinks,
		metrics:     metrics,
		logger:      l,
		maxPerSec:   50,
		instruments: instruments,
		lastSeen:    make(map[string]time.Time),
		stopCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start connects, subscribes, and launches the read loop.
func (p *TickPipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = true
	p.mu.Unlock()

	if err := p.stream.Connect(ctx); err != nil {
		p.reset()
		return fmt.Errorf("tick pipeline: %w", err)
	}
	if err := p.stream.Subscribe(ctx, p.instruments); err != nil {
		p.reset()
		return fmt.Errorf("tick pipeline: %w", err)
	}

	go p.run(ctx)
	return nil
}

func (p *TickPipeline) reset() {
	p.mu.Lock()
	p.started = false
	p.mu.Unlock()
}

// Stop terminates the read loop and closes the stream.
func (p *TickPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()

	close(p.stopCh)
	_ = p.stream.Close()
}

func (p *TickPipeline) run(ctx context.Context) {
	backoff := time.Second
	for {
		ticks, errs := p.stream.Read(ctx)
	readLoop:
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stopCh:
				return
			case tick, ok := <-ticks:
				if !ok {
					break readLoop
				}
				p.handle(ctx, tick)
			case err, ok := <-errs:
				if ok && err != nil {
					p.metrics.RecordError("stream_read")
					p.logger.Warn("price stream error", logger.Error(err))
				}
				break readLoop
			}
		}

		// Reconnect with capped backoff before resuming reads.
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stopCh:
				return
			case <-time.After(backoff):
			}
			if err := p.stream.Reconnect(ctx); err != nil {
				p.metrics.RecordError("stream_reconnect")
				p.logger.Warn("price stream reconnect failed", logger.Error(err))
				if backoff < 30*time.Second {
					backoff *= 2
				}
				continue
			}
			backoff = time.Second
			p.logger.Info("price stream reconnected")
			break
		}
	}
}

func (p *TickPipeline) handle(ctx context.Context, tick models.PriceTick) {
	if err := validateTick(tick); err != nil {
		p.metrics.RecordError("tick_invalid")
		return
	}
	if !p.allow(tick.Instrument, time.Now()) {
		p.metrics.RecordError("tick_throttled")
		return
	}
	for _, sink := range p.sinks {
		sink.OnTick(ctx, tick)
	}
}

func validateTick(t models.PriceTick) error {
	if t.Instrument == "" {
		return fmt.Errorf("instrument empty")
	}
	if t.Timestamp.IsZero() {
		return fmt.Errorf("timestamp zero")
	}
	if t.Price <= 0 || t.Volume < 0 {
		return fmt.Errorf("bad price/volume")
	}
	return nil
}

// allow enforces a minimum spacing between accepted ticks per instrument.
func (p *TickPipeline) allow(instrument string, now time.Time) bool {
	if p.maxPerSec <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	last := p.lastSeen[instrument]
	if !last.IsZero() && now.Sub(last) < time.Second/time.Duration(p.maxPerSec) {
		return false
	}
	p.lastSeen[instrument] = now
	return true
}
