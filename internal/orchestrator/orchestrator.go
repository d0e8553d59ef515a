// Package orchestrator drives the client-side lifecycle of avatar video
// generation jobs: validated submission, then a per-job polling loop that
// stops on a terminal status, a safety ceiling, or caller teardown.
package orchestrator

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"avatarstudio/internal/domain"
	"avatarstudio/internal/infra"
)

const (
	defaultPollInterval  = 3 * time.Second
	defaultSafetyTimeout = 5 * time.Minute
)

// VendorClient is the subset of the vendor API the orchestrator drives.
type VendorClient interface {
	Submit(ctx context.Context, req domain.GenerationRequest) (*domain.Job, error)
	Status(ctx context.Context, jobID string) (*domain.Job, error)
}

// Recorder receives lifecycle events for metrics. All methods must be safe
// for concurrent use.
type Recorder interface {
	JobSubmitted()
	PollTick()
	WatchStarted()
	WatchEnded(outcome string)
}

// JobState is the orchestrator-local state for one job identifier.
type JobState string

const (
	StateIdle      JobState = "idle"
	StatePolling   JobState = "polling"
	StateSucceeded JobState = "succeeded"
	StateFailed    JobState = "failed"
	StateTimedOut  JobState = "timed_out"
)

// Outcome is the final result of one watch loop. Timed out is deliberately
// distinct from failed: the vendor never rejected the job, it just never
// reached a terminal status within the ceiling.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeTimedOut  Outcome = "timed_out"
)

// Options configures an Orchestrator.
type Options struct {
	PollInterval  time.Duration
	SafetyTimeout time.Duration
	Logger        *infra.Logger
	Metrics       Recorder
}

type watch struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Orchestrator owns the mutable job snapshot for each submission and at most
// one active polling loop per job identifier.
type Orchestrator struct {
	client   VendorClient
	interval time.Duration
	ceiling  time.Duration
	logger   *infra.Logger
	metrics  Recorder

	mu      sync.Mutex
	jobs    map[string]domain.Job
	states  map[string]JobState
	watches map[string]*watch
}

// New constructs an Orchestrator around the given vendor client.
func New(client VendorClient, opts Options) *Orchestrator {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ceiling := opts.SafetyTimeout
	if ceiling <= 0 {
		ceiling = defaultSafetyTimeout
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Orchestrator{
		client:   client,
		interval: interval,
		ceiling:  ceiling,
		logger:   logger,
		metrics:  opts.Metrics,
		jobs:     make(map[string]domain.Job),
		states:   make(map[string]JobState),
		watches:  make(map[string]*watch),
	}
}

// Submit validates the request, submits it to the vendor, and records the
// returned job in polling state. Failures leave the orchestrator idle for
// that submission and propagate to the caller.
func (o *Orchestrator) Submit(ctx context.Context, req domain.GenerationRequest) (*domain.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	job, err := o.client.Submit(ctx, req)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.jobs[job.JobID] = *job
	o.states[job.JobID] = StatePolling
	o.mu.Unlock()

	if o.metrics != nil {
		o.metrics.JobSubmitted()
	}
	return job, nil
}

// Watch starts the polling loop for a job. Each snapshot replaces the stored
// job wholesale and is handed to onUpdate. The returned channel receives the
// final outcome exactly once; it is closed without a value when the caller's
// context tears the loop down first. Starting a new watch for a job that
// already has one cancels the prior loop before the new one begins.
func (o *Orchestrator) Watch(ctx context.Context, jobID string, onUpdate func(domain.Job)) (<-chan Outcome, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, &domain.ValidationError{Field: "jobId", Reason: "job id is required"}
	}

	o.mu.Lock()
	prev := o.watches[jobID]
	o.mu.Unlock()
	if prev != nil {
		prev.cancel()
		<-prev.done
	}

	runCtx, cancel := context.WithCancel(ctx)
	w := &watch{cancel: cancel, done: make(chan struct{})}
	o.mu.Lock()
	o.watches[jobID] = w
	if _, ok := o.states[jobID]; !ok {
		o.states[jobID] = StatePolling
	}
	o.mu.Unlock()

	outcome := make(chan Outcome, 1)
	go o.run(runCtx, w, jobID, onUpdate, outcome)
	return outcome, nil
}

// Cancel tears down the active watch for a job, releasing its timers. It is
// a no-op when no watch is active.
func (o *Orchestrator) Cancel(jobID string) {
	o.mu.Lock()
	w := o.watches[jobID]
	o.mu.Unlock()
	if w != nil {
		w.cancel()
		<-w.done
	}
}

// Job returns the latest stored snapshot for a job identifier.
func (o *Orchestrator) Job(jobID string) (domain.Job, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	job, ok := o.jobs[jobID]
	return job, ok
}

// State returns the orchestrator state for a job identifier. Unknown
// identifiers are idle.
func (o *Orchestrator) State(jobID string) JobState {
	o.mu.Lock()
	defer o.mu.Unlock()
	if state, ok := o.states[jobID]; ok {
		return state
	}
	return StateIdle
}

func (o *Orchestrator) run(ctx context.Context, w *watch, jobID string, onUpdate func(domain.Job), outcome chan<- Outcome) {
	defer close(w.done)
	defer o.clearWatch(jobID, w)
	if o.metrics != nil {
		o.metrics.WatchStarted()
	}

	// The next tick is armed only after the current status call resolves,
	// so in-flight requests never overlap and snapshots apply in order.
	tick := time.NewTimer(o.interval)
	defer tick.Stop()
	deadline := time.NewTimer(o.ceiling)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			close(outcome)
			o.endWatch("cancelled")
			return
		case <-deadline.C:
			o.setState(jobID, StateTimedOut)
			o.logger.Warn().Str("job_id", jobID).Dur("ceiling", o.ceiling).Msg("orchestrator: watch timed out without terminal status")
			outcome <- OutcomeTimedOut
			o.endWatch(string(OutcomeTimedOut))
			return
		case <-tick.C:
			snap, err := o.client.Status(ctx, jobID)
			if o.metrics != nil {
				o.metrics.PollTick()
			}
			if err == nil && snap != nil {
				if terminal := o.apply(*snap, onUpdate); terminal {
					final, _ := o.Job(jobID)
					result := OutcomeFailed
					if final.Status == domain.JobStatusSucceeded {
						result = OutcomeSucceeded
					}
					outcome <- result
					o.endWatch(string(result))
					return
				}
			}
			tick.Reset(o.interval)
		}
	}
}

// apply replaces the stored snapshot wholesale and reports whether the job
// is now terminal. A snapshot arriving after the job reached a terminal
// state is discarded so an out-of-order response can never revert it.
func (o *Orchestrator) apply(snap domain.Job, onUpdate func(domain.Job)) bool {
	o.mu.Lock()
	current, ok := o.jobs[snap.JobID]
	if ok && current.Status.Terminal() {
		o.mu.Unlock()
		return true
	}
	o.jobs[snap.JobID] = snap
	switch snap.Status {
	case domain.JobStatusSucceeded:
		o.states[snap.JobID] = StateSucceeded
	case domain.JobStatusFailed:
		o.states[snap.JobID] = StateFailed
	default:
		o.states[snap.JobID] = StatePolling
	}
	o.mu.Unlock()

	if onUpdate != nil {
		onUpdate(snap)
	}
	return snap.Status.Terminal()
}

func (o *Orchestrator) setState(jobID string, state JobState) {
	o.mu.Lock()
	o.states[jobID] = state
	o.mu.Unlock()
}

func (o *Orchestrator) clearWatch(jobID string, w *watch) {
	o.mu.Lock()
	if o.watches[jobID] == w {
		delete(o.watches, jobID)
	}
	o.mu.Unlock()
}

func (o *Orchestrator) endWatch(outcome string) {
	if o.metrics != nil {
		o.metrics.WatchEnded(outcome)
	}
}
