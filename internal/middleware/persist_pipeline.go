package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"BoltX/internal/domain/models"
	domrepo "BoltX/internal/domain/repository"
	applogger "BoltX/pkg/logger"
)

// Sink is the downstream the pipeline flushes predictions into.
type Sink interface {
	Process(ctx context.Context, p *models.PersistedPrediction) error
}

// PersistPipeline decouples prediction writes from the request path.
// Submit never blocks: when the buffer is full the record is dropped and counted.
// Failed writes are retried with exponential backoff before being dropped.
type PersistPipeline struct {
	sink        Sink
	metrics     domrepo.Metrics
	log         *applogger.Logger
	bufSize     int
	workers     int
	maxAttempts int
	backoffMin  time.Duration
	backoffMax  time.Duration
	timeout     time.Duration

	mu      sync.RWMutex
	bufCh   chan *models.PersistedPrediction
	started bool
	closed  bool
	wg      sync.WaitGroup
}

type PipelineOption func(*PersistPipeline)

// WithBufferSize sets how many predictions may wait for a worker.
func WithBufferSize(n int) PipelineOption {
	return func(p *PersistPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithWorkers sets the number of flushing goroutines.
func WithWorkers(n int) PipelineOption {
	return func(p *PersistPipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithRetry sets attempts per record and the backoff range between them.
func WithRetry(maxAttempts int, min, max time.Duration) PipelineOption {
	return func(p *PersistPipeline) {
		if maxAttempts > 0 {
			p.maxAttempts = maxAttempts
		}
		if min > 0 {
			p.backoffMin = min
		}
		if max >= p.backoffMin {
			p.backoffMax = max
		}
	}
}

// WithTimeout bounds a single write attempt.
func WithTimeout(d time.Duration) PipelineOption {
	return func(p *PersistPipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *applogger.Logger) PipelineOption {
	return func(p *PersistPipeline) {
		if l != nil {
			p.log = l
		}
	}
}

func NewPersistPipeline(sink Sink, metrics domrepo.Metrics, opts ...PipelineOption) *PersistPipeline {
	p := &PersistPipeline{
		sink:        sink,
		metrics:     metrics,
		log:         applogger.Nop(),
		bufSize:     1000,
		workers:     1,
		maxAttempts: 3,
		backoffMin:  50 * time.Millisecond,
		backoffMax:  2 * time.Second,
		timeout:     5 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.PersistedPrediction, p.bufSize)
	p.log = p.log.With(applogger.String("component", "persist_pipeline"))
	return p
}

// Start launches the workers. ctx only carries values; Stop ends the workers.
func (p *PersistPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true
	base := context.WithoutCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(base)
	}
}

// Submit enqueues p without blocking and reports whether it was accepted.
func (p *PersistPipeline) Submit(pred *models.PersistedPrediction) bool {
	if err := validatePrediction(pred); err != nil {
		p.metrics.RecordError("pipeline_validate")
		p.log.Warn("rejected prediction", applogger.Error(err))
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.metrics.RecordDropped("pipeline_closed")
		return false
	}
	select {
	case p.bufCh <- pred:
		return true
	default:
		p.metrics.RecordDropped("pipeline_buffer_full")
		p.log.Warn("persist buffer full, dropping prediction",
			applogger.String("session_id", pred.SessionID),
			applogger.Int("buffer", p.bufSize))
		return false
	}
}

// Depth returns the number of queued predictions.
func (p *PersistPipeline) Depth() int { return len(p.bufCh) }

// Stop stops accepting work and waits for queued predictions to flush or ctx to expire.
func (p *PersistPipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.bufCh)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("persist pipeline stop: %w (pending %d)", ctx.Err(), len(p.bufCh))
	}
}

func (p *PersistPipeline) run(ctx context.Context) {
	defer p.wg.Done()
	for pred := range p.bufCh {
		p.flush(ctx, pred)
	}
}

func (p *PersistPipeline) flush(ctx context.Context, pred *models.PersistedPrediction) {
	start := time.Now()
	backoff := p.backoffMin
	var err error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		actx, cancel := context.WithTimeout(ctx, p.timeout)
		err = p.sink.Process(actx, pred)
		cancel()
		if err == nil {
			p.metrics.RecordLatency("pipeline_flush", time.Since(start).Seconds())
			return
		}
		p.metrics.RecordError("pipeline_flush")
		if attempt == p.maxAttempts {
			break
		}
		time.Sleep(backoff)
		if backoff *= 2; backoff > p.backoffMax {
			backoff = p.backoffMax
		}
	}
	p.metrics.RecordDropped("pipeline_flush_failed")
	p.log.Error("prediction dropped after retries",
		applogger.String("session_id", pred.SessionID),
		applogger.String("prediction_id", pred.ID),
		applogger.Int("attempts", p.maxAttempts),
		applogger.Error(err))
}

func validatePrediction(pred *models.PersistedPrediction) error {
	if pred == nil {
		return errors.New("prediction nil")
	}
	if pred.SessionID == "" || pred.CustomerID == "" {
		return errors.New("customer or session id empty")
	}
	if s := pred.Prediction.RiskScore; s < 0 || s > 100 {
		return fmt.Errorf("risk score %d out of range", s)
	}
	return nil
}
