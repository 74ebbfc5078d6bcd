package authcore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// CleanupAnalytics is the immutable record of one cleanup cycle. Sweep
// errors are carried as text so a snapshot stays a plain value.
type CleanupAnalytics struct {
	SessionsRemoved   int
	TokensRemoved     int
	RanAt             time.Time
	Duration          time.Duration
	SessionSweepError string
	TokenSweepError   string
}

// CleanupHealth reports the job's liveness.
type CleanupHealth struct {
	Running     bool
	LastSuccess time.Time
}

// CleanupJob is the recurring expired-record sweep. Its lifecycle is an
// explicit state machine: stopped, started by Start, stopped again by
// Stop. Start on a running job fails with [ErrCleanupAlreadyRunning]
// instead of spawning a second timer.
//
// The job shares the credential store with live request handling. It only
// deletes records that are already expired, so racing a validation call is
// harmless: the validator sees either an expired session or a missing one,
// both of which it reports normally.
type CleanupJob struct {
	store   CredentialStore
	cfg     CleanupConfig
	logger  *slog.Logger
	metrics *Metrics
	audit   *auditDispatcher

	mu            sync.Mutex
	running       bool
	done          chan struct{}
	wg            sync.WaitGroup
	lastSuccess   time.Time
	lastAnalytics CleanupAnalytics
}

func newCleanupJob(store CredentialStore, cfg CleanupConfig, logger *slog.Logger, metrics *Metrics, audit *auditDispatcher) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{
		store:   store,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		audit:   audit,
	}
}

// Start launches the periodic sweep. The first cycle runs one interval
// after Start, not immediately; call RunOnce for an eager sweep.
func (j *CleanupJob) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return ErrCleanupAlreadyRunning
	}

	j.done = make(chan struct{})
	j.running = true

	j.wg.Add(1)
	go j.loop(j.done)

	j.logger.Info("cleanup job started", "interval", j.cfg.Interval, "batch_size", j.cfg.BatchSize)
	return nil
}

// Stop halts future cycles and waits for an in-flight cycle to finish.
// Safe to call at any point, including mid-cycle and on a stopped job.
func (j *CleanupJob) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	done := j.done
	j.running = false
	j.mu.Unlock()

	close(done)
	j.wg.Wait()
	j.logger.Info("cleanup job stopped")
}

func (j *CleanupJob) loop(done chan struct{}) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			j.RunOnce(context.Background())
		}
	}
}

// RunOnce executes one cleanup cycle synchronously and returns its
// analytics. The session and token sweeps are independent; a failure in
// one never blocks the other, and any failure is logged rather than
// propagated as a crash.
func (j *CleanupJob) RunOnce(ctx context.Context) CleanupAnalytics {
	start := time.Now()

	sessions, sessErr := j.sweepSessions(ctx, start)
	tokens, tokErr := j.sweepTokens(ctx, start)

	analytics := CleanupAnalytics{
		SessionsRemoved:   sessions,
		TokensRemoved:     tokens,
		RanAt:             start,
		Duration:          time.Since(start),
		SessionSweepError: errMessage(sessErr),
		TokenSweepError:   errMessage(tokErr),
	}

	j.mu.Lock()
	j.lastAnalytics = analytics
	if sessErr == nil && tokErr == nil {
		j.lastSuccess = start
	}
	j.mu.Unlock()

	j.metrics.Add(MetricCleanupSessionsRemoved, uint64(sessions))
	j.metrics.Add(MetricCleanupTokensRemoved, uint64(tokens))

	if sessErr != nil || tokErr != nil {
		j.metrics.Inc(MetricCleanupCycleErrors)
		j.logger.Error("cleanup cycle finished with errors",
			"sessions_removed", sessions,
			"tokens_removed", tokens,
			"session_sweep_error", analytics.SessionSweepError,
			"token_sweep_error", analytics.TokenSweepError,
			"duration", analytics.Duration)
	} else {
		j.logger.Info("cleanup cycle finished",
			"sessions_removed", sessions,
			"tokens_removed", tokens,
			"duration", analytics.Duration)
	}

	j.audit.Emit(ctx, AuditEvent{
		Timestamp: start,
		EventType: AuditCleanupCycle,
		Success:   sessErr == nil && tokErr == nil,
		Metadata: map[string]string{
			"sessions_removed": fmt.Sprintf("%d", sessions),
			"tokens_removed":   fmt.Sprintf("%d", tokens),
		},
	})

	return analytics
}

// sweepSessions deletes expired sessions in batches. Each batch commits on
// its own, so a stop or failure mid-sweep leaves only fully-deleted
// batches behind, never a torn write.
func (j *CleanupJob) sweepSessions(ctx context.Context, now time.Time) (int, error) {
	total := 0
	for {
		ids, err := j.store.FindExpiredSessions(ctx, now, j.cfg.BatchSize)
		if err != nil {
			return total, err
		}
		if len(ids) == 0 {
			return total, nil
		}

		n, err := j.store.DeleteSessions(ctx, ids)
		total += n
		if err != nil {
			return total, err
		}
		if len(ids) < j.cfg.BatchSize {
			return total, nil
		}
	}
}

func (j *CleanupJob) sweepTokens(ctx context.Context, now time.Time) (int, error) {
	total := 0
	for {
		hashes, err := j.store.FindExpiredTokens(ctx, now, j.cfg.BatchSize)
		if err != nil {
			return total, err
		}
		if len(hashes) == 0 {
			return total, nil
		}

		n, err := j.store.DeleteTokens(ctx, hashes)
		total += n
		if err != nil {
			return total, err
		}
		if len(hashes) < j.cfg.BatchSize {
			return total, nil
		}
	}
}

// Health reports whether the job is running and when a cycle last
// completed without errors.
func (j *CleanupJob) Health() CleanupHealth {
	j.mu.Lock()
	defer j.mu.Unlock()
	return CleanupHealth{
		Running:     j.running,
		LastSuccess: j.lastSuccess,
	}
}

// LastAnalytics returns the snapshot of the most recent cycle. Zero value
// before the first cycle.
func (j *CleanupJob) LastAnalytics() CleanupAnalytics {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastAnalytics
}
