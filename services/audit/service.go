// Package audit records successfully completed privileged actions.
//
// Entries are handed to a pool of background workers so the client response
// never waits on the audit table. Write failures are logged and dropped; they
// never reach the caller and never undo the action being recorded.
package audit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/upb/contact-directory/models"
	"github.com/upb/contact-directory/repositories"
	"go.uber.org/zap"
)

// RecentLimit is the number of entries returned by Recent
const RecentLimit = 100

// ErrStopTimeout is returned by Stop when pending entries could not be drained in time
var ErrStopTimeout = errors.New("audit recorder stop timed out")

// Event is one entry waiting to be written
type Event struct {
	Log *models.AuditLog
}

// Recorder handles asynchronous audit logging
type Recorder struct {
	auditRepo    repositories.AuditRepository
	logger       *zap.Logger
	eventChan    chan *Event
	workerCount  int
	bufferSize   int
	writeTimeout time.Duration
	wg           sync.WaitGroup

	// mu guards started/stopped and the channel close against concurrent sends
	mu      sync.RWMutex
	started bool
	stopped bool
}

// Config holds configuration for the Recorder
type Config struct {
	BufferSize   int           // Size of the event buffer channel
	WorkerCount  int           // Number of concurrent workers
	WriteTimeout time.Duration // Deadline for a single insert
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:   1000,
		WorkerCount:  2,
		WriteTimeout: 5 * time.Second,
	}
}

// NewRecorder creates a new Recorder. Until Start is called entries are written inline.
func NewRecorder(auditRepo repositories.AuditRepository, logger *zap.Logger, config Config) *Recorder {
	def := DefaultConfig()
	if config.BufferSize <= 0 {
		config.BufferSize = def.BufferSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = def.WorkerCount
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = def.WriteTimeout
	}

	return &Recorder{
		auditRepo:    auditRepo,
		logger:       logger,
		eventChan:    make(chan *Event, config.BufferSize),
		workerCount:  config.WorkerCount,
		bufferSize:   config.BufferSize,
		writeTimeout: config.WriteTimeout,
	}
}

// Start starts the background workers
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return errors.New("audit recorder already started")
	}
	if r.stopped {
		return errors.New("audit recorder already stopped")
	}

	for i := 0; i < r.workerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.started = true
	r.logger.Info("started audit recorder",
		zap.Int("worker_count", r.workerCount),
		zap.Int("buffer_size", r.bufferSize))

	return nil
}

// Stop closes the queue and waits for pending entries to be written.
// Entries recorded after Stop are written inline.
func (r *Recorder) Stop(timeout time.Duration) error {
	r.mu.Lock()
	if !r.started || r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	pending := len(r.eventChan)
	close(r.eventChan)
	r.mu.Unlock()

	r.logger.Info("stopping audit recorder", zap.Int("pending_events", pending))

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("audit recorder stopped gracefully")
		return nil
	case <-time.After(timeout):
		return ErrStopTimeout
	}
}

// Record builds an entry for a completed action and queues it.
// actor may be nil for actions without an authenticated principal.
func (r *Recorder) Record(actor *models.Principal, action models.AuditAction, entityType string, entityID *int64, details string) {
	log := models.NewAuditLog(action, entityType).WithDetails(details)
	if actor != nil {
		log.WithUser(actor.ID)
	}
	if entityID != nil {
		log.WithEntity(*entityID)
	}
	r.LogEvent(&Event{Log: log})
}

// LogEvent queues an entry without blocking. When the queue is full, or the
// workers are not running, the entry is written on the caller's goroutine.
func (r *Recorder) LogEvent(event *Event) {
	r.mu.RLock()
	if r.started && !r.stopped {
		select {
		case r.eventChan <- event:
			r.mu.RUnlock()
			return
		default:
			r.logger.Warn("audit event channel full, writing inline",
				zap.String("action", string(event.Log.Action)),
				zap.String("entity_type", event.Log.EntityType))
		}
	}
	r.mu.RUnlock()

	r.write(-1, event)
}

// Recent returns the most recent entries, newest first, with actor emails
func (r *Recorder) Recent(ctx context.Context) ([]*models.AuditLog, error) {
	return r.auditRepo.ListRecent(ctx, RecentLimit)
}

// worker processes events from the channel
func (r *Recorder) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("audit worker started", zap.Int("worker_id", id))

	for event := range r.eventChan {
		r.write(id, event)
	}

	r.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

// write inserts one entry; failures are logged, never returned
func (r *Recorder) write(workerID int, event *Event) {
	ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
	defer cancel()

	if err := r.auditRepo.Insert(ctx, event.Log); err != nil {
		fields := []zap.Field{
			zap.Int("worker_id", workerID),
			zap.Error(err),
			zap.String("action", string(event.Log.Action)),
			zap.String("entity_type", event.Log.EntityType),
		}
		if event.Log.UserID != nil {
			fields = append(fields, zap.Int64("user_id", *event.Log.UserID))
		}
		r.logger.Error("failed to write audit entry", fields...)
	}
}

// Stats represents recorder statistics
type Stats struct {
	BufferSize    int
	PendingEvents int
	WorkerCount   int
	Started       bool
}

// GetStats returns statistics about the recorder
func (r *Recorder) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Stats{
		BufferSize:    r.bufferSize,
		PendingEvents: len(r.eventChan),
		WorkerCount:   r.workerCount,
		Started:       r.started && !r.stopped,
	}
}
