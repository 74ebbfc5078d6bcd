package authcore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCleanupFixture(t *testing.T, mutate func(*Config)) (*CleanupJob, *mockCredentialStore) {
	t.Helper()

	store := newMockStore()
	engine := newTestEngine(t, store, mutate)
	t.Cleanup(engine.Close)

	job, err := engine.NewCleanupJob(quietLogger())
	if err != nil {
		t.Fatalf("NewCleanupJob: %v", err)
	}
	return job, store
}

func seedSessions(t *testing.T, store *mockCredentialStore, expired, live int) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < expired; i++ {
		sess := &Session{
			ID:        "expired-" + string(rune('a'+i)),
			UserID:    "u-1",
			CreatedAt: now.Add(-2 * time.Hour),
			ExpiresAt: now.Add(-time.Minute),
		}
		if err := store.CreateSession(ctx, sess); err != nil {
			t.Fatalf("CreateSession: %v", err)
		}
	}
	for i := 0; i < live; i++ {
		sess := &Session{
			ID:        "live-" + string(rune('a'+i)),
			UserID:    "u-1",
			CreatedAt: now,
			ExpiresAt: now.Add(time.Hour),
		}
		if err := store.CreateSession(ctx, sess); err != nil {
			t.Fatalf("CreateSession: %v", err)
		}
	}
}

func TestRunOnceRemovesOnlyExpired(t *testing.T) {
	job, store := newCleanupFixture(t, nil)

	seedSessions(t, store, 3, 7)

	now := time.Now()
	for i := 0; i < 2; i++ {
		tok := &Token{
			Hash:      "expired-tok-" + string(rune('a'+i)),
			Kind:      TokenKindReset,
			Subject:   "u-1",
			CreatedAt: now.Add(-2 * time.Hour),
			ExpiresAt: now.Add(-time.Minute),
		}
		if err := store.CreateToken(context.Background(), tok); err != nil {
			t.Fatalf("CreateToken: %v", err)
		}
	}

	analytics := job.RunOnce(context.Background())

	if analytics.SessionsRemoved != 3 {
		t.Errorf("SessionsRemoved: got %d want 3", analytics.SessionsRemoved)
	}
	if analytics.TokensRemoved != 2 {
		t.Errorf("TokensRemoved: got %d want 2", analytics.TokensRemoved)
	}
	if analytics.SessionSweepError != "" || analytics.TokenSweepError != "" {
		t.Errorf("unexpected sweep errors: %+v", analytics)
	}
	if store.sessionCount() != 7 {
		t.Errorf("live sessions disturbed: %d remain", store.sessionCount())
	}
	if store.tokenCount() != 0 {
		t.Errorf("expired tokens remain: %d", store.tokenCount())
	}
}

func TestRunOnceBatches(t *testing.T) {
	job, store := newCleanupFixture(t, func(cfg *Config) {
		cfg.Cleanup.BatchSize = 2
	})

	seedSessions(t, store, 5, 0)

	analytics := job.RunOnce(context.Background())
	if analytics.SessionsRemoved != 5 {
		t.Errorf("SessionsRemoved across batches: got %d want 5", analytics.SessionsRemoved)
	}
	if store.sessionCount() != 0 {
		t.Errorf("%d expired sessions remain", store.sessionCount())
	}
}

func TestStartRejectsSecondStart(t *testing.T) {
	job, _ := newCleanupFixture(t, nil)

	if err := job.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer job.Stop()

	if err := job.Start(); !errors.Is(err, ErrCleanupAlreadyRunning) {
		t.Fatalf("second Start: expected ErrCleanupAlreadyRunning, got %v", err)
	}

	health := job.Health()
	if !health.Running {
		t.Error("Health reports not running")
	}
}

func TestSecondStartDoesNotDoubleTheTimer(t *testing.T) {
	job, store := newCleanupFixture(t, func(cfg *Config) {
		cfg.Cleanup.Interval = time.Second
	})

	if err := job.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer job.Stop()

	if err := job.Start(); !errors.Is(err, ErrCleanupAlreadyRunning) {
		t.Fatalf("second Start: expected ErrCleanupAlreadyRunning, got %v", err)
	}

	// On an empty store each cycle scans for expired sessions exactly once,
	// so the scan count tracks the number of cycles. A single ticker fires
	// twice in this window; a leaked second ticker would double that.
	time.Sleep(2600 * time.Millisecond)
	job.Stop()

	scans := store.expiredScanCount()
	if scans < 1 {
		t.Fatal("no cleanup cycle ran")
	}
	if scans > 3 {
		t.Fatalf("too many cleanup cycles for the interval: %d scans", scans)
	}
}

func TestStopIsIdempotentAndRestartable(t *testing.T) {
	job, _ := newCleanupFixture(t, nil)

	if err := job.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	job.Stop()
	job.Stop()

	if job.Health().Running {
		t.Error("Health reports running after Stop")
	}

	// A stopped job can be started again.
	if err := job.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	job.Stop()
}

func TestSweepFailureDoesNotStopTheJob(t *testing.T) {
	job, store := newCleanupFixture(t, nil)
	ctx := context.Background()

	store.mu.Lock()
	store.sessionErr = errors.New("redis gone")
	store.mu.Unlock()

	analytics := job.RunOnce(ctx)
	if analytics.SessionSweepError == "" {
		t.Error("session sweep error not reported")
	}
	if job.Health().LastSuccess.Equal(analytics.RanAt) {
		t.Error("failed cycle recorded as success")
	}

	// Recovery: the next cycle succeeds and records it.
	store.mu.Lock()
	store.sessionErr = nil
	store.mu.Unlock()

	analytics = job.RunOnce(ctx)
	if analytics.SessionSweepError != "" {
		t.Errorf("unexpected error after recovery: %s", analytics.SessionSweepError)
	}
	if !job.Health().LastSuccess.Equal(analytics.RanAt) {
		t.Error("successful cycle not recorded")
	}
}

func TestTokenSweepRunsDespiteSessionFailure(t *testing.T) {
	job, store := newCleanupFixture(t, nil)
	ctx := context.Background()

	now := time.Now()
	tok := &Token{
		Hash:      "expired-tok",
		Kind:      TokenKindVerification,
		Subject:   "u-1",
		CreatedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Minute),
	}
	if err := store.CreateToken(ctx, tok); err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	store.mu.Lock()
	store.sessionErr = errors.New("redis gone")
	store.mu.Unlock()

	analytics := job.RunOnce(ctx)
	if analytics.TokensRemoved != 1 {
		t.Errorf("token sweep blocked by session failure: removed %d", analytics.TokensRemoved)
	}
}

func TestLastAnalyticsSnapshot(t *testing.T) {
	job, store := newCleanupFixture(t, nil)

	if got := job.LastAnalytics(); !got.RanAt.IsZero() {
		t.Error("expected zero analytics before first cycle")
	}

	seedSessions(t, store, 1, 0)
	want := job.RunOnce(context.Background())

	got := job.LastAnalytics()
	if got.SessionsRemoved != want.SessionsRemoved || !got.RanAt.Equal(want.RanAt) {
		t.Errorf("snapshot mismatch: got %+v want %+v", got, want)
	}
}

func TestPeriodicSweepFires(t *testing.T) {
	store := newMockStore()
	engine := newTestEngine(t, store, func(cfg *Config) {
		cfg.Cleanup.Interval = time.Second
	})
	t.Cleanup(engine.Close)

	job, err := engine.NewCleanupJob(quietLogger())
	if err != nil {
		t.Fatalf("NewCleanupJob: %v", err)
	}

	seedSessions(t, store, 2, 1)

	if err := job.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer job.Stop()

	deadline := time.After(5 * time.Second)
	for store.sessionCount() != 1 {
		select {
		case <-deadline:
			t.Fatalf("sweep did not fire; %d sessions remain", store.sessionCount())
		case <-time.After(50 * time.Millisecond):
		}
	}
}
