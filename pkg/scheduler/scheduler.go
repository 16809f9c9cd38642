// Package scheduler drives the case-processing loop: it pulls candidate
// cases from a queue and applies one status update per case through the
// navigation layer, either step-at-a-time (manual mode) or as an
// unattended background loop (automatic mode). Individual case failures
// never abort a run; they are collected on the run state and the loop
// moves on.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/caseflow/pkg/logging"
	"github.com/entrhq/caseflow/pkg/queue"
	"github.com/entrhq/caseflow/pkg/rewrite"
	"github.com/google/uuid"
)

var (
	// ErrAlreadyRunning is returned by Start while a run is active.
	ErrAlreadyRunning = errors.New("scheduler: a run is already active")

	// ErrNotRunning is returned by Stop when no run is active.
	ErrNotRunning = errors.New("scheduler: no active run")

	// ErrManualOnly is returned by ProcessNextCase unless the active
	// run is a manual one.
	ErrManualOnly = errors.New("scheduler: single-step advance requires a running manual run")
)

// statsTimeout bounds the statistics fetch inside GetState. A source
// slower than this is reported as unavailable, never as an error.
const statsTimeout = 5 * time.Second

// Processor applies the per-case mutation. The session.Navigator-backed
// implementation lives with the wiring; tests substitute fakes.
type Processor interface {
	Process(ctx context.Context, c queue.Candidate) error
}

// Snapshot is the read-only view GetState returns. Stats are zeroed
// with StatsAvailable false when the statistics source is absent, slow,
// or failing.
type Snapshot struct {
	RunID          string
	Status         Status
	Mode           Mode
	CurrentCaseID  string
	ProcessedCount int
	TotalProcessed int
	Errors         []string
	StartedAt      time.Time
	EndedAt        *time.Time

	Stats          queue.Totals
	StatsAvailable bool
}

// Scheduler owns the single active run. All mutating operations
// serialize on an internal lock; the per-case unit additionally holds a
// processing lock so two advances can never interleave their
// fetch-mutate-record sequence.
type Scheduler struct {
	source    queue.Source
	processor Processor
	stats     queue.StatsSource // optional
	rewriter  rewrite.Rewriter  // optional
	log       *logging.Logger

	mu             sync.Mutex
	run            *RunState
	totalProcessed int // across all runs of this process

	procMu sync.Mutex
	wg     sync.WaitGroup
}

// New creates a scheduler. stats and rewriter may be nil; log may be
// nil.
func New(source queue.Source, processor Processor, stats queue.StatsSource, rewriter rewrite.Rewriter, log *logging.Logger) *Scheduler {
	return &Scheduler{
		source:    source,
		processor: processor,
		stats:     stats,
		rewriter:  rewriter,
		log:       log,
	}
}

// Start begins a fresh run in the given mode. Fails with
// ErrAlreadyRunning while a run is active. In automatic mode the
// processing loop runs in the background until the queue is exhausted
// or Stop is called.
func (s *Scheduler) Start(mode Mode) error {
	if mode != ModeManual && mode != ModeAutomatic {
		return fmt.Errorf("scheduler: unknown mode %q", mode)
	}

	s.mu.Lock()
	if s.run != nil && s.run.Status == StatusRunning {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.mu.Unlock()

	// Drain a previous automatic loop before replacing the run, so a
	// stale loop can never account its last case against the new run.
	s.wg.Wait()

	s.mu.Lock()
	if s.run != nil && s.run.Status == StatusRunning {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.run = &RunState{
		RunID:     uuid.New().String(),
		Status:    StatusRunning,
		Mode:      mode,
		StartedAt: time.Now(),
	}
	runID := s.run.RunID
	s.mu.Unlock()

	s.infof("run %s started in %s mode", runID, mode)

	if mode == ModeAutomatic {
		s.wg.Add(1)
		go s.loop()
	}
	return nil
}

// ProcessNextCase advances a manual run by exactly one case. It fails
// with ErrManualOnly unless the active run is running in manual mode.
// The return value reports whether a candidate was processed; false
// with a nil error means the queue is exhausted, counters untouched and
// the run still running - stopping is the caller's decision.
func (s *Scheduler) ProcessNextCase(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.run == nil || s.run.Status != StatusRunning || s.run.Mode != ModeManual {
		s.mu.Unlock()
		return false, ErrManualOnly
	}
	s.mu.Unlock()

	return s.processNext(ctx)
}

// Stop halts the active run. The status flips to stopped immediately;
// an automatic loop honors it at the next between-case check, letting
// any in-progress case run to completion.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.run == nil || s.run.Status != StatusRunning {
		return ErrNotRunning
	}

	now := time.Now()
	s.run.Status = StatusStopped
	s.run.EndedAt = &now
	s.infof("run %s stopped after %d cases", s.run.RunID, s.run.ProcessedCount)
	return nil
}

// Wait blocks until a background automatic loop has exited. Used by
// callers that need to know the loop is fully drained after Stop or
// exhaustion.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// GetState returns a snapshot of the run and, when a statistics source
// is wired, the aggregate totals. It never fails: a slow or broken
// source degrades to zeroed stats with StatsAvailable false.
func (s *Scheduler) GetState() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		Status:         StatusIdle,
		TotalProcessed: s.totalProcessed,
	}
	if s.run != nil {
		snap.RunID = s.run.RunID
		snap.Status = s.run.Status
		snap.Mode = s.run.Mode
		snap.CurrentCaseID = s.run.CurrentCaseID
		snap.ProcessedCount = s.run.ProcessedCount
		snap.Errors = append([]string(nil), s.run.Errors...)
		snap.StartedAt = s.run.StartedAt
		snap.EndedAt = s.run.EndedAt
	}
	s.mu.Unlock()

	if s.stats == nil {
		return snap
	}

	ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
	defer cancel()

	totals, err := s.stats.Totals(ctx)
	if err != nil {
		s.warnf("statistics unavailable: %v", err)
		return snap
	}
	snap.Stats = totals
	snap.StatsAvailable = true
	return snap
}

// loop is the automatic-mode driver. Cancellation is observed between
// cases only: a case's portal calls always run to completion.
func (s *Scheduler) loop() {
	defer s.wg.Done()
	ctx := context.Background()

	for {
		s.mu.Lock()
		running := s.run != nil && s.run.Status == StatusRunning
		s.mu.Unlock()
		if !running {
			return
		}

		processed, err := s.processNext(ctx)
		if err != nil {
			s.finish(StatusError, err)
			return
		}
		if !processed {
			// Clean completion: the queue is exhausted.
			s.finish(StatusIdle, nil)
			return
		}
	}
}

// processNext is the shared per-case unit for both modes: claim the
// next candidate, rewrite its update text, apply the mutation, and
// account for the attempt. A failing case is recorded on the run and
// does not abort it; only a failing candidate source is fatal.
func (s *Scheduler) processNext(ctx context.Context) (bool, error) {
	s.procMu.Lock()
	defer s.procMu.Unlock()

	candidate, err := s.source.Next(ctx)
	if err != nil {
		return false, fmt.Errorf("scheduler: fetch next candidate: %w", err)
	}
	if candidate == nil {
		return false, nil
	}

	s.mu.Lock()
	s.run.CurrentCaseID = candidate.CaseID
	s.mu.Unlock()

	if s.rewriter != nil {
		if rewritten, rwErr := s.rewriter.Rewrite(ctx, candidate.Content); rwErr == nil {
			candidate.Content = rewritten
		} else {
			// Rewriting is best-effort: post the original text.
			s.warnf("rewrite failed for case %s, posting original text: %v", candidate.CaseID, rwErr)
		}
	}

	procErr := s.processor.Process(ctx, *candidate)

	s.mu.Lock()
	s.run.ProcessedCount++
	s.totalProcessed++
	s.run.CurrentCaseID = ""
	if procErr != nil {
		s.run.Errors = append(s.run.Errors, fmt.Sprintf("case %s: %v", candidate.CaseID, procErr))
	}
	s.mu.Unlock()

	if procErr != nil {
		s.warnf("case %s failed: %v", candidate.CaseID, procErr)
	}
	return true, nil
}

// finish ends the run with the given terminal status.
func (s *Scheduler) finish(status Status, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.run == nil || s.run.Status != StatusRunning {
		return
	}

	now := time.Now()
	s.run.Status = status
	s.run.EndedAt = &now
	if cause != nil {
		s.run.Errors = append(s.run.Errors, cause.Error())
		s.errorf("run %s aborted: %v", s.run.RunID, cause)
		return
	}
	s.infof("run %s completed, %d cases processed", s.run.RunID, s.run.ProcessedCount)
}

func (s *Scheduler) infof(format string, v ...interface{}) {
	if s.log != nil {
		s.log.Infof(format, v...)
	}
}

func (s *Scheduler) warnf(format string, v ...interface{}) {
	if s.log != nil {
		s.log.Warnf(format, v...)
	}
}

func (s *Scheduler) errorf(format string, v ...interface{}) {
	if s.log != nil {
		s.log.Errorf(format, v...)
	}
}
