package service

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedulerRunsTask(t *testing.T) {
	s := NewScheduler()
	defer s.StopAll()

	var count int64
	s.Schedule("tick", 10*time.Millisecond, func() { atomic.AddInt64(&count, 1) })

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&count) >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestSchedulerCancelStopsTask(t *testing.T) {
	s := NewScheduler()
	defer s.StopAll()

	var count int64
	s.Schedule("tick", 10*time.Millisecond, func() { atomic.AddInt64(&count, 1) })
	assert.Equal(t, 1, s.Len())

	s.Cancel("tick")
	assert.Equal(t, 0, s.Len())

	frozen := atomic.LoadInt64(&count)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, frozen, atomic.LoadInt64(&count))
}

func TestSchedulerReplaceSameID(t *testing.T) {
	s := NewScheduler()
	defer s.StopAll()

	var first, second int64
	s.Schedule("tick", 10*time.Millisecond, func() { atomic.AddInt64(&first, 1) })
	s.Schedule("tick", 10*time.Millisecond, func() { atomic.AddInt64(&second, 1) })
	assert.Equal(t, 1, s.Len())

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&second) >= 2
	}, time.Second, 5*time.Millisecond)

	// the replaced task must have stopped immediately
	assert.LessOrEqual(t, atomic.LoadInt64(&first), int64(1))
}

func TestSchedulerStopAllIdempotent(t *testing.T) {
	s := NewScheduler()
	s.Schedule("a", time.Minute, func() {})
	s.Schedule("b", time.Minute, func() {})
	assert.Equal(t, 2, s.Len())

	s.StopAll()
	s.StopAll()
	assert.Equal(t, 0, s.Len())
}
