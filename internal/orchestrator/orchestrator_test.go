package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"avatarstudio/internal/domain"
)

type fakeVendor struct {
	mu          sync.Mutex
	submitJob   *domain.Job
	submitErr   error
	statuses    []domain.Job
	statusDelay time.Duration
	statusCalls int
	inFlight    int32
	overlapped  atomic.Bool
}

func (f *fakeVendor) Submit(ctx context.Context, req domain.GenerationRequest) (*domain.Job, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	job := *f.submitJob
	return &job, nil
}

// Status serves the scripted snapshots in order, repeating the last one.
func (f *fakeVendor) Status(ctx context.Context, jobID string) (*domain.Job, error) {
	if atomic.AddInt32(&f.inFlight, 1) > 1 {
		f.overlapped.Store(true)
	}
	defer atomic.AddInt32(&f.inFlight, -1)

	if f.statusDelay > 0 {
		select {
		case <-time.After(f.statusDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.statusCalls
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	f.statusCalls++
	if idx < 0 {
		return &domain.Job{JobID: jobID, Status: domain.JobStatusProcessing}, nil
	}
	snap := f.statuses[idx]
	return &snap, nil
}

func validRequest() domain.GenerationRequest {
	return domain.GenerationRequest{
		InputType: domain.InputText,
		Text:      "hello there",
		VoiceID:   "voice-1",
		AvatarID:  "avatar-1",
	}
}

func newTestOrchestrator(vendor *fakeVendor) *Orchestrator {
	return New(vendor, Options{
		PollInterval:  5 * time.Millisecond,
		SafetyTimeout: time.Second,
	})
}

func TestSubmitStoresPollingSnapshot(t *testing.T) {
	vendor := &fakeVendor{submitJob: &domain.Job{JobID: "job-1", Status: domain.JobStatusSubmitted}}
	o := newTestOrchestrator(vendor)

	job, err := o.Submit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.JobID != "job-1" {
		t.Fatalf("JobID = %q", job.JobID)
	}
	stored, ok := o.Job("job-1")
	if !ok || stored.Status != domain.JobStatusSubmitted {
		t.Fatalf("stored = %+v, ok = %v", stored, ok)
	}
	if state := o.State("job-1"); state != StatePolling {
		t.Fatalf("State = %q, want polling", state)
	}
}

func TestSubmitValidationDoesNotReachVendor(t *testing.T) {
	vendor := &fakeVendor{submitErr: errors.New("must not be called")}
	o := newTestOrchestrator(vendor)

	_, err := o.Submit(context.Background(), domain.GenerationRequest{InputType: domain.InputText})
	var validation *domain.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if state := o.State("job-1"); state != StateIdle {
		t.Fatalf("State = %q, want idle after rejected submit", state)
	}
}

func TestWatchDeliversUpdatesAndSucceeds(t *testing.T) {
	vendor := &fakeVendor{
		submitJob: &domain.Job{JobID: "job-1", Status: domain.JobStatusSubmitted},
		statuses: []domain.Job{
			{JobID: "job-1", Status: domain.JobStatusProcessing},
			{JobID: "job-1", Status: domain.JobStatusProcessing},
			{JobID: "job-1", Status: domain.JobStatusSucceeded, OutputURL: "https://cdn.test/out.mp4"},
		},
	}
	o := newTestOrchestrator(vendor)
	if _, err := o.Submit(context.Background(), validRequest()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	var mu sync.Mutex
	var seen []domain.JobStatus
	outcome, err := o.Watch(context.Background(), "job-1", func(job domain.Job) {
		mu.Lock()
		seen = append(seen, job.Status)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	select {
	case result := <-outcome:
		if result != OutcomeSucceeded {
			t.Fatalf("outcome = %q, want succeeded", result)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not finish")
	}

	final, _ := o.Job("job-1")
	if final.Status != domain.JobStatusSucceeded || final.OutputURL != "https://cdn.test/out.mp4" {
		t.Fatalf("final = %+v", final)
	}
	if state := o.State("job-1"); state != StateSucceeded {
		t.Fatalf("State = %q, want succeeded", state)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) == 0 || seen[len(seen)-1] != domain.JobStatusSucceeded {
		t.Fatalf("updates = %v, want trailing succeeded", seen)
	}
}

func TestWatchReportsFailure(t *testing.T) {
	vendor := &fakeVendor{
		statuses: []domain.Job{
			{JobID: "job-1", Status: domain.JobStatusProcessing},
			{JobID: "job-1", Status: domain.JobStatusFailed},
		},
	}
	o := newTestOrchestrator(vendor)

	outcome, err := o.Watch(context.Background(), "job-1", nil)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	select {
	case result := <-outcome:
		if result != OutcomeFailed {
			t.Fatalf("outcome = %q, want failed", result)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not finish")
	}
	if state := o.State("job-1"); state != StateFailed {
		t.Fatalf("State = %q, want failed", state)
	}
}

func TestWatchTimesOutAsDistinctOutcome(t *testing.T) {
	vendor := &fakeVendor{
		statuses: []domain.Job{{JobID: "job-1", Status: domain.JobStatusProcessing}},
	}
	o := New(vendor, Options{
		PollInterval:  2 * time.Millisecond,
		SafetyTimeout: 30 * time.Millisecond,
	})

	outcome, err := o.Watch(context.Background(), "job-1", nil)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	select {
	case result := <-outcome:
		if result != OutcomeTimedOut {
			t.Fatalf("outcome = %q, want timed_out", result)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not finish")
	}
	if state := o.State("job-1"); state != StateTimedOut {
		t.Fatalf("State = %q, want timed_out", state)
	}
}

func TestTerminalSnapshotIsNeverReverted(t *testing.T) {
	vendor := &fakeVendor{}
	o := newTestOrchestrator(vendor)

	if !o.apply(domain.Job{JobID: "job-1", Status: domain.JobStatusSucceeded, OutputURL: "https://cdn.test/a.mp4"}, nil) {
		t.Fatal("terminal snapshot should report terminal")
	}
	// A late out-of-order processing snapshot must be discarded.
	if !o.apply(domain.Job{JobID: "job-1", Status: domain.JobStatusProcessing}, nil) {
		t.Fatal("apply after terminal should still report terminal")
	}
	stored, _ := o.Job("job-1")
	if stored.Status != domain.JobStatusSucceeded || stored.OutputURL != "https://cdn.test/a.mp4" {
		t.Fatalf("stored = %+v, terminal snapshot was reverted", stored)
	}
}

func TestWatchRestartOnTerminalJobResolvesImmediately(t *testing.T) {
	vendor := &fakeVendor{
		statuses: []domain.Job{{JobID: "job-1", Status: domain.JobStatusProcessing}},
	}
	o := newTestOrchestrator(vendor)
	o.apply(domain.Job{JobID: "job-1", Status: domain.JobStatusSucceeded}, nil)

	outcome, err := o.Watch(context.Background(), "job-1", nil)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	select {
	case result := <-outcome:
		if result != OutcomeSucceeded {
			t.Fatalf("outcome = %q, want succeeded from stored snapshot", result)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("restarted watch did not finish")
	}
}

func TestWatchRestartCancelsPreviousLoop(t *testing.T) {
	vendor := &fakeVendor{
		statuses: []domain.Job{{JobID: "job-1", Status: domain.JobStatusProcessing}},
	}
	o := newTestOrchestrator(vendor)

	first, err := o.Watch(context.Background(), "job-1", nil)
	if err != nil {
		t.Fatalf("first Watch: %v", err)
	}
	second, err := o.Watch(context.Background(), "job-1", nil)
	if err != nil {
		t.Fatalf("second Watch: %v", err)
	}

	select {
	case _, ok := <-first:
		if ok {
			t.Fatal("first watch should close without an outcome")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first watch was not cancelled")
	}
	o.Cancel("job-1")
	select {
	case _, ok := <-second:
		if ok {
			t.Fatal("cancelled watch should close without an outcome")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second watch did not tear down")
	}
}

func TestWatchContextTeardownClosesOutcome(t *testing.T) {
	vendor := &fakeVendor{
		statuses: []domain.Job{{JobID: "job-1", Status: domain.JobStatusProcessing}},
	}
	o := newTestOrchestrator(vendor)

	ctx, cancel := context.WithCancel(context.Background())
	outcome, err := o.Watch(ctx, "job-1", nil)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	cancel()

	select {
	case _, ok := <-outcome:
		if ok {
			t.Fatal("expected closed channel, got an outcome")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not tear down")
	}
}

func TestWatchRequiresJobID(t *testing.T) {
	o := newTestOrchestrator(&fakeVendor{})
	_, err := o.Watch(context.Background(), "   ", nil)
	var validation *domain.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}

func TestStatusCallsNeverOverlap(t *testing.T) {
	vendor := &fakeVendor{
		statuses:    []domain.Job{{JobID: "job-1", Status: domain.JobStatusProcessing}},
		statusDelay: 15 * time.Millisecond,
	}
	o := New(vendor, Options{
		PollInterval:  2 * time.Millisecond,
		SafetyTimeout: time.Second,
	})

	outcome, err := o.Watch(context.Background(), "job-1", nil)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	o.Cancel("job-1")
	<-outcome

	if vendor.overlapped.Load() {
		t.Fatal("status calls overlapped; ticks must re-arm only after the previous poll resolves")
	}
}
