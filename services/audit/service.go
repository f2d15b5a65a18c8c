package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/atlas-hitl/review-plane/models"
	"github.com/atlas-hitl/review-plane/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service writes the audit trail asynchronously. Events are buffered on a
// channel and persisted by background workers so that case intake and
// reviewer actions never block on the audit database.
type Service struct {
	auditRepo   repositories.AuditRepository
	logger      *zap.Logger
	eventChan   chan *models.AuditEvent
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	started     bool
	mu          sync.Mutex
}

// Config holds configuration for the audit service
type Config struct {
	BufferSize  int // Size of the event buffer channel
	WorkerCount int // Number of concurrent workers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  10000,
		WorkerCount: 5,
	}
}

// NewService creates a new audit service instance
func NewService(auditRepo repositories.AuditRepository, logger *zap.Logger, config Config) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		auditRepo:   auditRepo,
		logger:      logger,
		eventChan:   make(chan *models.AuditEvent, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
		ctx:         ctx,
		cancel:      cancel,
		started:     false,
	}
}

// Start starts the background workers
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop gracefully stops the audit service
// Waits for all pending events to be processed
func (s *Service) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("audit service not started")
	}
	s.mu.Unlock()

	s.logger.Info("stopping audit service", zap.Int("pending_events", len(s.eventChan)))

	// Close the event channel (no more events will be accepted)
	close(s.eventChan)

	// Wait for workers to finish with timeout
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped gracefully")
		s.cancel()
		return nil
	case <-time.After(timeout):
		s.cancel()
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// Record queues an event for persistence (non-blocking).
// A full buffer drops the event with a warning rather than stalling the caller.
func (s *Service) Record(event *models.AuditEvent) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("audit service not started")
	}
	s.mu.Unlock()

	select {
	case s.eventChan <- event:
		return nil
	default:
		s.logger.Warn("audit event channel full, dropping event",
			zap.String("actor", event.Actor),
			zap.String("action", event.Action))
		return fmt.Errorf("audit event buffer full")
	}
}

// RecordBlocking queues an event synchronously.
// Waits until the event is queued or the context is cancelled.
func (s *Service) RecordBlocking(ctx context.Context, event *models.AuditEvent) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("audit service not started")
	}
	s.mu.Unlock()

	select {
	case s.eventChan <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return fmt.Errorf("audit service stopped")
	}
}

// worker processes events from the channel
func (s *Service) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("audit worker started", zap.Int("worker_id", id))

	for event := range s.eventChan {
		if err := s.processEvent(event); err != nil {
			s.logger.Error("failed to process audit event",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("actor", event.Actor),
				zap.String("action", event.Action))
		}
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

// processEvent persists a single audit event
func (s *Service) processEvent(event *models.AuditEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.auditRepo.Insert(ctx, event); err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}

	return nil
}

// List retrieves audit events newest first
func (s *Service) List(ctx context.Context, limit, offset int) ([]*models.AuditEvent, error) {
	return s.auditRepo.List(ctx, limit, offset)
}

// ListByCase retrieves audit events for a case
func (s *Service) ListByCase(ctx context.Context, caseID uuid.UUID, limit, offset int) ([]*models.AuditEvent, error) {
	return s.auditRepo.ListByCase(ctx, caseID, limit, offset)
}

// GetStats returns statistics about the audit service
func (s *Service) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.eventChan),
		WorkerCount:   s.workerCount,
		Started:       s.started,
	}
}

// Stats represents audit service statistics
type Stats struct {
	BufferSize    int
	PendingEvents int
	WorkerCount   int
	Started       bool
}

// Convenience methods for the common event shapes

// RecordPolicyDecision records the engine's verdict on an intake request
func (s *Service) RecordPolicyDecision(caseID *uuid.UUID, detail string) error {
	event := models.NewAuditEvent(models.AuditActorPolicyEngine, models.AuditActionPolicyDecision).WithDetail(detail)
	if caseID != nil {
		event = event.WithCase(*caseID)
	}
	return s.Record(event)
}

// RecordReviewerAction records a reviewer verdict on a case
func (s *Service) RecordReviewerAction(action string, caseID uuid.UUID, reviewer, note string) error {
	detail := reviewer
	if note != "" {
		detail = fmt.Sprintf("%s: %s", reviewer, note)
	}
	event := models.NewAuditEvent(models.AuditActorReviewer, action).
		WithCase(caseID).
		WithDetail(detail)
	return s.Record(event)
}

// RecordCaseExpired records an SLA expiration sweep hit
func (s *Service) RecordCaseExpired(caseID uuid.UUID, age time.Duration) error {
	event := models.NewAuditEvent(models.AuditActorSystem, models.AuditActionCaseExpired).
		WithCase(caseID).
		WithDetail(fmt.Sprintf("expired after %s without review", age.Round(time.Minute)))
	return s.Record(event)
}

// RecordActionExecuted records a call to the target benefit system
func (s *Service) RecordActionExecuted(caseID *uuid.UUID, toolName string, source models.DecisionSource) error {
	event := models.NewAuditEvent(models.AuditActorSystem, models.AuditActionActionExecuted).
		WithDetail(fmt.Sprintf("%s (%s)", toolName, source))
	if caseID != nil {
		event = event.WithCase(*caseID)
	}
	return s.Record(event)
}
