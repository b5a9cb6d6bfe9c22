package sim

import (
	"sync"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/satori/go.uuid"
)

// Structs

// Stepper is anything the scheduler can advance with explicit time, which
// in practice is a Simulator of any variant instantiation.
type Stepper interface {
	Step(now time.Duration)
}

// Scheduler repeatedly advances a Stepper at a fixed cadence. The cadence is
// a simulation parameter, not a correctness requirement: the engine behaves
// identically for any fixed interval, only timing granularity changes.
type Scheduler struct {
	Interval time.Duration
	Logger   log.Logger
}

// Handle identifies one running simulation loop and owns its teardown.
// Starting a new loop while another is live is the caller's decision to
// make; see Supervisor for the swap-one-active policy.
type Handle struct {
	ID string

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Supervisor enforces the at-most-one-live-simulation policy: swapping in a
// new loop first stops the previous one.
type Supervisor struct {
	lock   sync.Mutex
	active *Handle
}

// Functions

// Run starts the tick loop in its own goroutine and returns its handle.
// Each tick feeds the time elapsed since the loop started into Step, so the
// stepper itself never consults a wall clock.
func (s Scheduler) Run(target Stepper) *Handle {

	logger := s.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}

	h := &Handle{
		ID:   uuid.NewV4().String(),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	level.Info(logger).Log(
		"msg", "simulation loop starting",
		"handle", h.ID,
		"interval", s.Interval,
	)

	go func() {

		defer close(h.done)

		start := time.Now()

		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()

		for {

			select {

			case <-h.stop:
				level.Info(logger).Log(
					"msg", "simulation loop stopped",
					"handle", h.ID,
				)
				return

			case <-ticker.C:
				target.Step(time.Since(start))
			}
		}
	}()

	return h
}

// Stop tears the loop down and waits until its goroutine has returned. It
// is safe to call more than once.
func (h *Handle) Stop() {

	h.once.Do(func() {
		close(h.stop)
	})

	<-h.done
}

// Swap stops the currently active loop, if any, then installs the loop the
// supplied start function produces and returns its handle.
func (s *Supervisor) Swap(start func() *Handle) *Handle {

	s.lock.Lock()
	defer s.lock.Unlock()

	if s.active != nil {
		s.active.Stop()
	}

	s.active = start()

	return s.active
}

// Stop tears down the active loop, if any.
func (s *Supervisor) Stop() {

	s.lock.Lock()
	defer s.lock.Unlock()

	if s.active != nil {
		s.active.Stop()
		s.active = nil
	}
}
