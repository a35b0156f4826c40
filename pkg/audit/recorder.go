package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// RecorderConfig contains configuration for the async recorder.
type RecorderConfig struct {
	// BufferSize is the pending record channel capacity. Default: 1024.
	BufferSize int

	// WriteTimeout bounds each storage write. Default: 5s.
	WriteTimeout time.Duration
}

// DefaultRecorderConfig returns the default recorder configuration.
func DefaultRecorderConfig() *RecorderConfig {
	return &RecorderConfig{
		BufferSize:   1024,
		WriteTimeout: 5 * time.Second,
	}
}

// Validate checks the configuration.
func (c *RecorderConfig) Validate() error {
	if c.BufferSize <= 0 {
		return fmt.Errorf("buffer size must be positive, got %d", c.BufferSize)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	return nil
}

// Recorder writes audit records asynchronously so decision latency never
// waits on storage. Records are dropped (and counted) when the buffer is
// full rather than blocking the caller.
type Recorder struct {
	storage Storage
	config  *RecorderConfig
	logger  *slog.Logger

	ch     chan *Record
	stopCh chan struct{}
	doneCh chan struct{}

	mu      sync.Mutex
	dropped int64
	closed  bool
}

// NewRecorder creates and starts an async recorder.
func NewRecorder(storage Storage, config *RecorderConfig, logger *slog.Logger) (*Recorder, error) {
	if storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if config == nil {
		config = DefaultRecorderConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recorder config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		storage: storage,
		config:  config,
		logger:  logger.With("component", "audit.recorder"),
		ch:      make(chan *Record, config.BufferSize),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	go r.run()
	return r, nil
}

// Record enqueues one audit record. It never blocks; when the buffer is
// full the record is dropped and the drop counter incremented.
func (r *Recorder) Record(record *Record) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	select {
	case r.ch <- record:
	default:
		r.mu.Lock()
		r.dropped++
		dropped := r.dropped
		r.mu.Unlock()
		r.logger.Warn("audit buffer full, record dropped",
			"event", record.Event,
			"entity", record.Entity,
			"total_dropped", dropped,
		)
	}
}

// Dropped returns how many records were dropped since start.
func (r *Recorder) Dropped() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close stops the recorder after draining buffered records.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	close(r.stopCh)
	<-r.doneCh
	return nil
}

func (r *Recorder) run() {
	defer close(r.doneCh)

	for {
		select {
		case record := <-r.ch:
			r.write(record)

		case <-r.stopCh:
			// Drain what is already buffered before exiting.
			for {
				select {
				case record := <-r.ch:
					r.write(record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(record *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("audit write failed",
			"error", err,
			"event", record.Event,
			"entity", record.Entity,
		)
	}
}
