package service

import (
	"sync"
	"time"
)

// Scheduler owns cancellable repeating tasks keyed by id, so that
// engine disposal is deterministic and tests can drive recomputation
// through manual ticks instead of wall-clock waits.
type Scheduler struct {
	mu    sync.Mutex
	tasks map[string]*repeatingTask
}

type repeatingTask struct {
	ticker *time.Ticker
	done   chan struct{}
}

// NewScheduler creates an empty scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{tasks: make(map[string]*repeatingTask)}
}

// Schedule runs fn every interval under the given id, replacing any
// existing task with the same id.
func (s *Scheduler) Schedule(id string, interval time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tasks[id]; ok {
		t.stop()
	}
	t := &repeatingTask{
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
	s.tasks[id] = t

	go func() {
		for {
			select {
			case <-t.ticker.C:
				fn()
			case <-t.done:
				return
			}
		}
	}()
}

// Cancel stops and removes the task with the given id, if any
func (s *Scheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[id]; ok {
		t.stop()
		delete(s.tasks, id)
	}
}

// StopAll cancels every task. Safe to call more than once.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.tasks {
		t.stop()
		delete(s.tasks, id)
	}
}

// Len reports the number of live tasks
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (t *repeatingTask) stop() {
	t.ticker.Stop()
	close(t.done)
}
