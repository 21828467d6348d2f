// Package scheduler runs compiled graphs on cron schedules. Each firing
// invokes the graph on a fresh thread ID so scheduled runs never collide,
// and failures are logged and counted rather than stopping the schedule.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/agentgraph-dev/agentgraph/graph"
	"github.com/agentgraph-dev/agentgraph/state"
)

// Job is one scheduled graph invocation.
type Job struct {
	// Name labels the job in logs.
	Name string
	// Graph is the compiled graph to invoke.
	Graph *graph.CompiledGraph
	// ThreadPrefix namespaces the thread IDs of this job's runs. Each
	// firing appends a fresh UUID. Empty disables checkpoint threading.
	ThreadPrefix string
	// Initial is the state each firing starts from.
	Initial state.State
	// Timeout bounds one firing. Zero means no limit.
	Timeout time.Duration
}

// EntryID identifies a scheduled job.
type EntryID = cron.EntryID

// Scheduler fires graph runs on cron expressions. Expressions use the
// optional-seconds parser, so both "*/5 * * * *" and "30 */5 * * * *"
// work.
type Scheduler struct {
	cron *cron.Cron

	mu       sync.Mutex
	started  bool
	inflight sync.WaitGroup

	runs     atomic.Uint64
	failures atomic.Uint64
}

// New creates a stopped scheduler.
func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithParser(cron.NewParser(
			cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
		))),
	}
}

// Add schedules a job. The returned ID removes it via Remove.
func (s *Scheduler) Add(spec string, job Job) (EntryID, error) {
	if job.Graph == nil {
		return 0, fmt.Errorf("job %q has no graph", job.Name)
	}
	if job.Name == "" {
		job.Name = job.Graph.Name()
	}

	id, err := s.cron.AddFunc(spec, func() { s.fire(job) })
	if err != nil {
		return 0, fmt.Errorf("bad cron spec %q for job %q: %w", spec, job.Name, err)
	}
	return id, nil
}

// Remove unschedules a job. Removing an unknown ID is a no-op.
func (s *Scheduler) Remove(id EntryID) {
	s.cron.Remove(id)
}

// Entries returns the scheduled entries.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// Runs returns how many firings have completed, successful or not.
func (s *Scheduler) Runs() uint64 {
	return s.runs.Load()
}

// Failures returns how many firings ended in error.
func (s *Scheduler) Failures() uint64 {
	return s.failures.Load()
}

// Start begins firing jobs. Starting twice is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
	log.Printf("[Scheduler] started with %d entries", len(s.cron.Entries()))
}

// Stop stops firing and waits for in-flight runs to finish or ctx to
// expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	cronCtx := s.cron.Stop()
	select {
	case <-cronCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fire runs one job invocation.
func (s *Scheduler) fire(job Job) {
	s.inflight.Add(1)
	defer s.inflight.Done()
	defer s.runs.Add(1)

	ctx := context.Background()
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	var opts []graph.RunOption
	threadID := ""
	if job.ThreadPrefix != "" {
		threadID = job.ThreadPrefix + "-" + uuid.New().String()
		opts = append(opts, graph.WithThreadID(threadID))
	}

	started := time.Now()
	_, err := job.Graph.Invoke(ctx, job.Initial, opts...)
	if err != nil {
		s.failures.Add(1)
		log.Printf("[Scheduler] job %s failed after %v: %v", job.Name, time.Since(started), err)
		return
	}
	debugf("[Scheduler] job %s completed in %v (thread %s)", job.Name, time.Since(started), threadID)
}

func debugf(format string, args ...any) {
	if os.Getenv("AGENTGRAPH_DEBUG") == "true" {
		log.Printf(format, args...)
	}
}
