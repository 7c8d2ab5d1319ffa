package recorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"cpathways/cprules/pkg/audit"
	"cpathways/cprules/pkg/engine"
	"cpathways/cprules/pkg/model"
)

// Config contains configuration for the audit recorder.
type Config struct {
	// Enabled enables recording.
	Enabled bool

	// AsyncBuffer is the size of the write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds both enqueueing and a single storage write.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// HashContext stores a SHA-256 of each request context.
	// Default: true
	HashContext bool
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
		HashContext:  true,
	}
}

// DropCounter counts records that could not be queued.
type DropCounter interface {
	RecordAuditDropped()
}

// Recorder records engine decisions asynchronously.
type Recorder struct {
	storage    audit.Storage
	config     *Config
	recordChan chan *audit.Record
	wg         sync.WaitGroup
	done       chan struct{}
	closeOnce  sync.Once
	logger     *slog.Logger
	drops      DropCounter

	// mu guards closed. Senders hold the read lock while enqueueing so
	// Close cannot close done until every accepted record is in the channel.
	mu     sync.RWMutex
	closed bool
}

// NewRecorder creates a recorder writing to storage and starts its worker.
func NewRecorder(storage audit.Storage, config *Config, logger *slog.Logger) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.AsyncBuffer <= 0 {
		config.AsyncBuffer = DefaultConfig().AsyncBuffer
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		storage:    storage,
		config:     config,
		recordChan: make(chan *audit.Record, config.AsyncBuffer),
		done:       make(chan struct{}),
		logger:     logger.With("component", "audit.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("audit recorder initialized",
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
		"hash_context", config.HashContext,
	)

	return r
}

// SetDropCounter attaches a counter for dropped records.
func (r *Recorder) SetDropCounter(c DropCounter) {
	r.drops = c
}

// RecordDecision implements engine.DecisionRecorder.
// It returns as soon as the record is queued.
func (r *Recorder) RecordDecision(ctx context.Context, req *engine.Request, decision *engine.Decision) error {
	if !r.config.Enabled || decision == nil {
		return nil
	}

	record := r.createRecord(req, decision)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.logger.Warn("recorder shutting down, dropping record",
			"record_id", record.ID,
			"action", record.Action,
		)
		r.dropped()
		return audit.NewRecorderError(record.ID, context.Canceled)
	}

	timer := time.NewTimer(r.config.WriteTimeout)
	defer timer.Stop()

	select {
	case r.recordChan <- record:
		r.logger.Debug("audit record enqueued",
			"record_id", record.ID,
			"action", record.Action,
		)
		return nil
	case <-timer.C:
		r.logger.Error("audit channel full, dropping record",
			"record_id", record.ID,
			"action", record.Action,
			"channel_capacity", r.config.AsyncBuffer,
		)
		r.dropped()
		return audit.NewRecorderError(record.ID, context.DeadlineExceeded)
	case <-ctx.Done():
		r.dropped()
		return audit.NewRecorderError(record.ID, ctx.Err())
	}
}

func (r *Recorder) dropped() {
	if r.drops != nil {
		r.drops.RecordAuditDropped()
	}
}

// Close stops accepting records, drains the queue and waits for the worker.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.logger.Info("shutting down audit recorder")

		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()

		close(r.done)
		r.wg.Wait()
		r.logger.Info("audit recorder shut down complete")
	})
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.writeRecord(record)

		case <-r.done:
			r.logger.Info("draining audit channel before shutdown",
				"pending_count", len(r.recordChan),
			)
			for {
				select {
				case record := <-r.recordChan:
					r.writeRecord(record)
				default:
					r.logger.Info("audit channel drained")
					return
				}
			}
		}
	}
}

func (r *Recorder) writeRecord(record *audit.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	record.RecordedAt = start

	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("failed to store audit record",
			"record_id", record.ID,
			"action", record.Action,
			"error", err,
		)
		return
	}

	duration := time.Since(start)
	r.logger.Debug("audit record stored",
		"record_id", record.ID,
		"action", record.Action,
		"verdict", record.Verdict,
		"duration_ms", duration.Milliseconds(),
	)

	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow audit write",
			"record_id", record.ID,
			"duration_ms", duration.Milliseconds(),
			"threshold_ms", (r.config.WriteTimeout / 2).Milliseconds(),
		)
	}
}

// createRecord builds an audit record from a request and its decision.
func (r *Recorder) createRecord(req *engine.Request, decision *engine.Decision) *audit.Record {
	record := &audit.Record{
		ID:             uuid.New().String(),
		Action:         decision.Action.String(),
		Verdict:        decision.Verdict.Label(),
		ConnectionType: decision.Verdict.ConnectionType,
		Permitted:      decision.Permitted,
		Fallback:       decision.Fallback,
		EvaluatedAt:    decision.EvaluatedAt,
		Duration:       decision.Duration,
		Error:          decision.Error,
	}

	if req == nil {
		return record
	}

	record.SessionID = req.SessionID
	summarizeContext(record, req.Context)

	if r.config.HashContext && req.Context != nil {
		if data, err := json.Marshal(req.Context); err == nil {
			record.ContextHash = HashContent(data)
		}
	}

	return record
}

func summarizeContext(record *audit.Record, ctx *model.Context) {
	if ctx == nil {
		return
	}
	record.ShapeType = ctx.Shape.TypeName()
	record.SourceType = ctx.Source.TypeName()
	record.TargetType = ctx.Target.TypeName()
	record.HoverType = ctx.Hover.TypeName()
	if ctx.Connection != nil {
		record.ConnectionID = ctx.Connection.ID
	}
}
