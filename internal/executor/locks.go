package executor

import "sync"

// jobLocks enforces the single-writer discipline: at most one event executes
// against a given job at a time, across the whole process.
type jobLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newJobLocks() *jobLocks {
	return &jobLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire blocks until the job's lock is free and returns the release func.
// Locks are never removed from the map; the set of jobs a process touches is
// small and bounded by the record store.
func (j *jobLocks) acquire(jobID string) func() {
	j.mu.Lock()
	l, ok := j.locks[jobID]
	if !ok {
		l = &sync.Mutex{}
		j.locks[jobID] = l
	}
	j.mu.Unlock()

	l.Lock()
	return l.Unlock
}
