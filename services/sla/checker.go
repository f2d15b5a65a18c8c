package sla

import (
	"context"
	"sync"
	"time"

	"github.com/atlas-hitl/review-plane/models"
	"github.com/atlas-hitl/review-plane/repositories"
	"github.com/atlas-hitl/review-plane/services/cases"
	"go.uber.org/zap"
)

// openStatuses are the case states the expiration sweep applies to
var openStatuses = []models.CaseStatus{
	models.CaseStatusPendingReview,
	models.CaseStatusNeedsMoreInfo,
}

// Checker expires cases that sit unresolved past the review window.
// It runs a periodic sweep in the background; Sweep can also be invoked
// directly (the check-sla endpoint does this).
type Checker struct {
	caseRepo repositories.CaseRepository
	caseSvc  *cases.Service
	window   time.Duration
	interval time.Duration
	logger   *zap.Logger

	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewChecker creates an SLA checker
func NewChecker(caseRepo repositories.CaseRepository, caseSvc *cases.Service, window, interval time.Duration, logger *zap.Logger) *Checker {
	return &Checker{
		caseRepo: caseRepo,
		caseSvc:  caseSvc,
		window:   window,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start launches the periodic sweep
func (c *Checker) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true

	c.wg.Add(1)
	go c.run()

	c.logger.Info("started SLA checker",
		zap.Duration("window", c.window),
		zap.Duration("interval", c.interval))
}

// Stop halts the periodic sweep and waits for an in-flight sweep to finish
func (c *Checker) Stop() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.started = false
	c.mu.Unlock()

	close(c.stop)
	c.wg.Wait()
	c.logger.Info("SLA checker stopped")
}

func (c *Checker) run() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.interval)
			if _, err := c.Sweep(ctx); err != nil {
				c.logger.Error("SLA sweep failed", zap.Error(err))
			}
			cancel()
		case <-c.stop:
			return
		}
	}
}

// Sweep expires every open case older than the review window and returns
// the number of cases expired.
func (c *Checker) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-c.window)

	stale, err := c.caseRepo.ListStale(ctx, openStatuses, cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, sc := range stale {
		age := time.Since(sc.CreatedAt)
		if err := c.caseSvc.Expire(ctx, sc.ID, age); err != nil {
			c.logger.Error("failed to expire stale case",
				zap.String("case_id", sc.ID.String()),
				zap.Error(err))
			continue
		}
		expired++
	}

	if expired > 0 {
		c.logger.Info("expired stale cases", zap.Int("count", expired))
	}
	return expired, nil
}

// Window returns the configured review window
func (c *Checker) Window() time.Duration {
	return c.window
}
