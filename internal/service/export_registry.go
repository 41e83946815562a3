package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/titulapp/thesis-api/internal/domain/model"
)

// ExportRegistry is the process-wide store of export job records. Jobs are
// created when an export starts, mutated only by that job's runner goroutine,
// read by any number of poll and stream handlers, and removed by the periodic
// sweep. Every access is guarded by the registry lock; readers receive deep
// copies so a snapshot can never tear.
type ExportRegistry struct {
	mu    sync.Mutex
	jobs  map[string]*model.ExportJob
	clock func() time.Time
}

// NewExportRegistry constructs an empty registry.
func NewExportRegistry() *ExportRegistry {
	return &ExportRegistry{
		jobs:  make(map[string]*model.ExportJob),
		clock: time.Now,
	}
}

// Create inserts a fresh pending record under the given id. Ids are
// uuid-generated by the caller, so a collision indicates a bug.
func (r *ExportRegistry) Create(id string) (*model.ExportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[id]; exists {
		return nil, fmt.Errorf("export job %s already registered", id)
	}
	job := model.NewExportJob(id, r.clock())
	r.jobs[id] = job
	return job, nil
}

// Contains reports whether the job is still registered. Runners call this to
// detect their own eviction.
func (r *ExportRegistry) Contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.jobs[id]
	return ok
}

// Len returns the number of registered jobs.
func (r *ExportRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Update applies fn to the job under the registry lock. It returns false when
// the job has been swept, which tells the runner to abort instead of mutating
// an orphaned record.
func (r *ExportRegistry) Update(id string, fn func(*model.ExportJob)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return false
	}
	fn(job)
	return true
}

// Transition moves the job to the next status if the state machine allows it.
// Returns false when the job is gone or the move would go backward.
func (r *ExportRegistry) Transition(id string, next model.ExportStatus) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || !job.Status.CanTransitionTo(next) {
		return false
	}
	job.Status = next
	return true
}

// Complete atomically stores the finished archive, forces current to total
// and marks the job completed. The buffer is set exactly once.
func (r *ExportRegistry) Complete(id string, buf []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || !job.Status.CanTransitionTo(model.ExportStatusCompleted) || job.ArchiveBuffer != nil {
		return false
	}
	job.ArchiveBuffer = buf
	job.Current = job.Total
	job.Status = model.ExportStatusCompleted
	return true
}

// Fail moves the job to the terminal error state with the given message.
// A job that already reached a terminal state is left untouched.
func (r *ExportRegistry) Fail(id, message string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || job.Status.Terminal() {
		return false
	}
	job.Status = model.ExportStatusError
	job.ErrorMessage = message
	job.CurrentRecordName = ""
	return true
}

// Snapshot returns a deep copy of the job's observable fields. The second
// return value is false when the job is unknown or already swept.
func (r *ExportRegistry) Snapshot(id, downloadURL string) (model.ExportSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return model.ExportSnapshot{}, false
	}
	return job.Snapshot(downloadURL), true
}

// Result returns the finished archive buffer. The buffer is shared, never
// copied and never cleared: repeated reads of a completed job are idempotent.
// The boolean reports registry membership; callers distinguish not-ready and
// missing-buffer states from the returned status.
func (r *ExportRegistry) Result(id string) (buf []byte, status model.ExportStatus, progress int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, found := r.jobs[id]
	if !found {
		return nil, "", 0, false
	}
	return job.ArchiveBuffer, job.Status, job.Progress(), true
}

// Sweep removes every record created before the cutoff, regardless of status.
// Runners of evicted jobs notice on their next Update and abort.
func (r *ExportRegistry) Sweep(retention time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.clock().Add(-retention)
	removed := 0
	for id, job := range r.jobs {
		if job.CreatedAt.Before(cutoff) {
			delete(r.jobs, id)
			removed++
		}
	}
	return removed
}

// Age backdates a job's creation time. Exposed for tests that exercise the
// sweep without waiting out the retention window.
func (r *ExportRegistry) Age(id string, d time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return false
	}
	job.CreatedAt = job.CreatedAt.Add(-d)
	return true
}
