package sim

import (
	"sync"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/pkg/errors"
)

// Variables

// ErrUnknownReplica is reported when an operation or a configuration change
// addresses a replica id the simulator does not know. The engine never
// creates replicas implicitly.
var ErrUnknownReplica = errors.New("unknown replica id")

// ErrDuplicateReplica is reported when a replica id is registered twice.
var ErrDuplicateReplica = errors.New("duplicate replica id")

// Structs

// ReplicaSnapshot is the read-only per-replica view handed to the render
// callback once per tick after the queue flush.
type ReplicaSnapshot[S any] struct {
	ID        string
	State     S
	Connected bool
	Delay     time.Duration
}

// RenderFunc receives the per-tick snapshots.
type RenderFunc[S any] func(now time.Duration, replicas []ReplicaSnapshot[S])

// Service is the control surface a presentation adapter drives. It is
// deliberately narrow: adapters construct operations and submit them, they
// never mutate replica state directly.
type Service[S any, O any] interface {

	// SubmitOperation appends an operation to the addressed
	// replica's backlog.
	SubmitOperation(replicaID string, op O) error

	// SetConnectivity toggles whether the addressed replica
	// drains its buffer and emits from its backlog.
	SetConnectivity(replicaID string, connected bool) error

	// SetDelay reconfigures the addressed replica's outbound delay.
	SetDelay(replicaID string, delay time.Duration) error

	// Snapshot returns the current read-only view of all replicas
	// in roster order.
	Snapshot() []ReplicaSnapshot[S]
}

// Metrics carries the engine's instrumentation. Every
// counter defaults to the discard backend.
type Metrics struct {
	Ticks        metrics.Counter
	OpsEmitted   metrics.Counter
	OpsDelivered metrics.Counter
	OpsDeferred  metrics.Counter
}

// Simulator owns the replica set and the delivery queue and orchestrates one
// tick. The lock serializes Step against the control surface so that all
// mutation is confined to tick and call boundaries.
type Simulator[S any, O any] struct {
	lock     sync.Mutex
	clock    time.Duration
	order    []string
	replicas map[string]*Replica[S, O]
	queue    DeliveryQueue[O]
	apply    ApplyFunc[S, O]
	logger   log.Logger
	metrics  Metrics
	render   RenderFunc[S]
}

// Option configures a simulator at construction time.
type Option[S any, O any] func(s *Simulator[S, O])

// Functions

// WithLogger attaches a logger to the simulator.
func WithLogger[S any, O any](logger log.Logger) Option[S, O] {
	return func(s *Simulator[S, O]) {
		s.logger = logger
	}
}

// WithMetrics attaches engine counters to the simulator.
func WithMetrics[S any, O any](m Metrics) Option[S, O] {
	return func(s *Simulator[S, O]) {

		if m.Ticks != nil {
			s.metrics.Ticks = m.Ticks
		}
		if m.OpsEmitted != nil {
			s.metrics.OpsEmitted = m.OpsEmitted
		}
		if m.OpsDelivered != nil {
			s.metrics.OpsDelivered = m.OpsDelivered
		}
		if m.OpsDeferred != nil {
			s.metrics.OpsDeferred = m.OpsDeferred
		}
	}
}

// WithRender attaches the per-tick snapshot callback.
func WithRender[S any, O any](render RenderFunc[S]) Option[S, O] {
	return func(s *Simulator[S, O]) {
		s.render = render
	}
}

// NewSimulator returns a simulator driving the supplied apply function with
// an empty replica roster.
func NewSimulator[S any, O any](apply ApplyFunc[S, O], options ...Option[S, O]) *Simulator[S, O] {

	s := &Simulator[S, O]{
		replicas: make(map[string]*Replica[S, O]),
		apply:    apply,
		logger:   log.NewNopLogger(),
		metrics: Metrics{
			Ticks:        discard.NewCounter(),
			OpsEmitted:   discard.NewCounter(),
			OpsDelivered: discard.NewCounter(),
			OpsDeferred:  discard.NewCounter(),
		},
	}

	for _, opt := range options {
		opt(s)
	}

	return s
}

// AddReplica registers a replica with its initial state, outbound delay and
// connectivity. Roster order is registration order and determines the
// deterministic polling order inside a tick.
func (s *Simulator[S, O]) AddReplica(id string, initial S, delay time.Duration, connected bool) error {

	s.lock.Lock()
	defer s.lock.Unlock()

	if _, exists := s.replicas[id]; exists {
		return errors.Wrapf(ErrDuplicateReplica, "replica '%s'", id)
	}

	s.replicas[id] = NewReplica[S, O](id, initial, delay, connected, s.apply)
	s.order = append(s.order, id)

	return nil
}

// Step advances the simulation to the supplied time: poll each replica in
// roster order, enqueue emissions with their origin's delay, flush all due
// messages in queue order to every other replica, then render.
func (s *Simulator[S, O]) Step(now time.Duration) {

	s.lock.Lock()

	deferredBefore := s.deferredCountLocked()

	for _, id := range s.order {

		r := s.replicas[id]

		op, emitted := r.Poll(now)
		if !emitted {
			continue
		}

		s.queue.Push(InFlight[O]{
			Origin: id,
			Op:     op,
			DueAt:  now + r.Delay,
		})

		s.metrics.OpsEmitted.Add(1)
	}

	for _, msg := range s.queue.TakeDue(now) {

		for _, id := range s.order {

			if id == msg.Origin {
				continue
			}

			s.replicas[id].Enqueue(msg.Op)
			s.metrics.OpsDelivered.Add(1)
		}
	}

	s.clock = now
	s.metrics.Ticks.Add(1)

	if deferredNow := s.deferredCountLocked(); deferredNow > deferredBefore {

		s.metrics.OpsDeferred.Add(float64(deferredNow - deferredBefore))

		level.Debug(s.logger).Log(
			"msg", "operations await missing dependencies",
			"deferred", deferredNow,
		)
	}

	render := s.render
	snapshots := s.snapshotLocked()

	s.lock.Unlock()

	if render != nil {
		render(now, snapshots)
	}
}

// Clock returns the simulation time of the last step.
func (s *Simulator[S, O]) Clock() time.Duration {

	s.lock.Lock()
	defer s.lock.Unlock()

	return s.clock
}

// InFlightCount returns the number of messages still travelling.
func (s *Simulator[S, O]) InFlightCount() int {

	s.lock.Lock()
	defer s.lock.Unlock()

	return s.queue.Len()
}

// SubmitOperation implements Service.
func (s *Simulator[S, O]) SubmitOperation(replicaID string, op O) error {

	s.lock.Lock()
	defer s.lock.Unlock()

	r, found := s.replicas[replicaID]
	if !found {
		return errors.Wrapf(ErrUnknownReplica, "replica '%s'", replicaID)
	}

	r.Submit(op)

	return nil
}

// SetConnectivity implements Service.
func (s *Simulator[S, O]) SetConnectivity(replicaID string, connected bool) error {

	s.lock.Lock()
	defer s.lock.Unlock()

	r, found := s.replicas[replicaID]
	if !found {
		return errors.Wrapf(ErrUnknownReplica, "replica '%s'", replicaID)
	}

	r.Connected = connected

	return nil
}

// SetDelay implements Service.
func (s *Simulator[S, O]) SetDelay(replicaID string, delay time.Duration) error {

	s.lock.Lock()
	defer s.lock.Unlock()

	r, found := s.replicas[replicaID]
	if !found {
		return errors.Wrapf(ErrUnknownReplica, "replica '%s'", replicaID)
	}

	r.Delay = delay

	return nil
}

// Snapshot implements Service.
func (s *Simulator[S, O]) Snapshot() []ReplicaSnapshot[S] {

	s.lock.Lock()
	defer s.lock.Unlock()

	return s.snapshotLocked()
}

func (s *Simulator[S, O]) snapshotLocked() []ReplicaSnapshot[S] {

	snapshots := make([]ReplicaSnapshot[S], 0, len(s.order))

	for _, id := range s.order {

		r := s.replicas[id]

		snapshots = append(snapshots, ReplicaSnapshot[S]{
			ID:        id,
			State:     r.State,
			Connected: r.Connected,
			Delay:     r.Delay,
		})
	}

	return snapshots
}

func (s *Simulator[S, O]) deferredCountLocked() int {

	count := 0
	for _, r := range s.replicas {
		count += len(r.Deferred)
	}

	return count
}
