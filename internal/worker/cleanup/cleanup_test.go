package cleanup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type mockSessionPurger struct {
	deleteExpiredFn func(ctx context.Context) (int64, error)
	calls           int
}

func (m *mockSessionPurger) DeleteExpired(ctx context.Context) (int64, error) {
	m.calls++
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx)
	}
	return 0, nil
}

type mockActivityPurger struct {
	deleteOlderThanFn func(ctx context.Context, cutoff time.Time) (int64, error)
	lastCutoff        time.Time
	calls             int
}

func (m *mockActivityPurger) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.calls++
	m.lastCutoff = cutoff
	if m.deleteOlderThanFn != nil {
		return m.deleteOlderThanFn(ctx, cutoff)
	}
	return 0, nil
}

type mockPurgeMetrics struct {
	sessionsPurged int64
	recorded       int
}

func (m *mockPurgeMetrics) RecordSessionsPurged(count int64) {
	m.recorded++
	m.sessionsPurged += count
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_PurgesSessionsAndActivityLogs(t *testing.T) {
	sessions := &mockSessionPurger{
		deleteExpiredFn: func(ctx context.Context) (int64, error) {
			return 7, nil
		},
	}
	activity := &mockActivityPurger{
		deleteOlderThanFn: func(ctx context.Context, cutoff time.Time) (int64, error) {
			return 12, nil
		},
	}
	metrics := &mockPurgeMetrics{}

	job := NewJob(sessions, activity, metrics, testLogger())

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if sessions.calls != 1 {
		t.Errorf("DeleteExpired calls = %d, want 1", sessions.calls)
	}
	if activity.calls != 1 {
		t.Errorf("DeleteOlderThan calls = %d, want 1", activity.calls)
	}
	if metrics.sessionsPurged != 7 {
		t.Errorf("sessionsPurged = %d, want 7", metrics.sessionsPurged)
	}
}

func TestRun_ActivityCutoffUsesRetentionDays(t *testing.T) {
	activity := &mockActivityPurger{}
	job := NewJob(&mockSessionPurger{}, activity, &mockPurgeMetrics{}, testLogger())
	job.ActivityRetentionDays = 30

	before := time.Now().AddDate(0, 0, -30)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	after := time.Now().AddDate(0, 0, -30)

	if activity.lastCutoff.Before(before) || activity.lastCutoff.After(after) {
		t.Errorf("cutoff = %v, want between %v and %v", activity.lastCutoff, before, after)
	}
}

func TestRun_NoPurgedSessionsSkipsMetric(t *testing.T) {
	metrics := &mockPurgeMetrics{}
	job := NewJob(&mockSessionPurger{}, &mockActivityPurger{}, metrics, testLogger())

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if metrics.recorded != 0 {
		t.Errorf("RecordSessionsPurged calls = %d, want 0", metrics.recorded)
	}
}

func TestRun_SessionErrorStillPurgesActivityLogs(t *testing.T) {
	sessions := &mockSessionPurger{
		deleteExpiredFn: func(ctx context.Context) (int64, error) {
			return 0, errors.New("db down")
		},
	}
	activity := &mockActivityPurger{}

	job := NewJob(sessions, activity, &mockPurgeMetrics{}, testLogger())

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("Run() error = nil, want error")
	}
	if activity.calls != 1 {
		t.Errorf("DeleteOlderThan calls = %d, want 1", activity.calls)
	}
}

func TestRun_ActivityError(t *testing.T) {
	activity := &mockActivityPurger{
		deleteOlderThanFn: func(ctx context.Context, cutoff time.Time) (int64, error) {
			return 0, errors.New("db down")
		},
	}

	job := NewJob(&mockSessionPurger{}, activity, &mockPurgeMetrics{}, testLogger())

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("Run() error = nil, want error")
	}
}

func TestRunPeriodic_StopsOnContextCancel(t *testing.T) {
	sessions := &mockSessionPurger{}
	job := NewJob(sessions, &mockActivityPurger{}, &mockPurgeMetrics{}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		job.RunPeriodic(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunPeriodic did not stop after context cancel")
	}

	// 起動直後の実行 + ティック数回
	if sessions.calls < 2 {
		t.Errorf("DeleteExpired calls = %d, want >= 2", sessions.calls)
	}
}
