// scheduler.go - cycle-ordered event queue
//
// License: GPLv3 or later

/*
Package scheduler implements the cycle-accurate event queue: a
monotonic cycle counter plus an ordered queue of handlers due at or
before that counter, ties broken by insertion order.

Grounded directly on original_source/hemisphere/src/system/scheduler.rs:
a VecDeque kept sorted by insertion (partition_point binary search),
front-popped when due. The one notable departure is how a handler is
identified: the original stores bare `fn(&mut System)` pointers and
cancels by pointer equality, which Go closures can't reliably support
(a closure over `*System` has no stable identity to compare). Events
here are plain `func()` closures — System constructs them by closing
over itself — and Schedule returns an EventID token for Cancel,
avoiding the need for pointer-identity comparison.
*/
package scheduler

import "sort"

// EventID identifies a scheduled event for Cancel.
type EventID uint64

type event struct {
	id      EventID
	cycle   uint64
	handler func()
}

// Scheduler holds the monotonic cycle counter and the pending event
// queue, kept sorted by (cycle, insertion order).
type Scheduler struct {
	elapsed uint64
	nextID  EventID
	events  []event
}

// New returns a Scheduler with no pending events and elapsed=0.
func New() *Scheduler {
	return &Scheduler{events: make([]event, 0, 16)}
}

// Schedule queues handler to run after cycles more cycles elapse
// (handler runs once Elapsed() >= Elapsed()+cycles at the time of
// this call). Ties at the same cycle run in the order they were
// scheduled.
func (s *Scheduler) Schedule(cycles uint64, handler func()) EventID {
	cycle := s.elapsed + cycles
	s.nextID++
	id := s.nextID

	index := sort.Search(len(s.events), func(i int) bool { return s.events[i].cycle > cycle })
	s.events = append(s.events, event{})
	copy(s.events[index+1:], s.events[index:])
	s.events[index] = event{id: id, cycle: cycle, handler: handler}
	return id
}

// ScheduleNow queues handler to run on the next Pop, with no delay.
func (s *Scheduler) ScheduleNow(handler func()) EventID {
	return s.Schedule(0, handler)
}

// Cancel removes a previously scheduled event. It is a no-op if the
// event already fired or was already cancelled.
func (s *Scheduler) Cancel(id EventID) {
	for i, e := range s.events {
		if e.id == id {
			s.events = append(s.events[:i], s.events[i+1:]...)
			return
		}
	}
}

// Len reports how many events are pending.
func (s *Scheduler) Len() int { return len(s.events) }

// IsEmpty reports whether no events are pending.
func (s *Scheduler) IsEmpty() bool { return len(s.events) == 0 }

// Advance moves the cycle counter forward by count cycles.
func (s *Scheduler) Advance(count uint64) {
	s.elapsed += count
}

// UntilNext returns how many cycles remain until the earliest pending
// event, or ok=false if nothing is scheduled.
func (s *Scheduler) UntilNext() (cycles uint64, ok bool) {
	if len(s.events) == 0 {
		return 0, false
	}
	next := s.events[0].cycle
	if next <= s.elapsed {
		return 0, true
	}
	return next - s.elapsed, true
}

// Pop removes and returns the earliest event's handler if it is due
// (its cycle is at or before Elapsed()), or ok=false otherwise.
func (s *Scheduler) Pop() (handler func(), ok bool) {
	if len(s.events) == 0 || s.events[0].cycle > s.elapsed {
		return nil, false
	}
	e := s.events[0]
	s.events = s.events[1:]
	return e.handler, true
}

// Elapsed reports how many CPU cycles have elapsed.
func (s *Scheduler) Elapsed() uint64 { return s.elapsed }

// ElapsedTimeBase reports how many time-base ticks have elapsed. The
// Gekko's time base increments once every 12 CPU cycles.
func (s *Scheduler) ElapsedTimeBase() uint64 { return s.elapsed / 12 }
