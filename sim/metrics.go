package sim

import (
	"time"

	"github.com/go-kit/kit/metrics"
)

type metricsService[S any, O any] struct {
	service       Service[S, O]
	opsSubmitted  metrics.Counter
	configChanges metrics.Counter
}

// NewMetricsService wraps a provided existing service with counters for
// submitted operations and configuration changes.
func NewMetricsService[S any, O any](s Service[S, O], opsSubmitted metrics.Counter, configChanges metrics.Counter) Service[S, O] {
	return &metricsService[S, O]{
		service:       s,
		opsSubmitted:  opsSubmitted,
		configChanges: configChanges,
	}
}

func (s *metricsService[S, O]) SubmitOperation(replicaID string, op O) error {

	err := s.service.SubmitOperation(replicaID, op)

	if err == nil {
		s.opsSubmitted.Add(1)
	}

	return err
}

func (s *metricsService[S, O]) SetConnectivity(replicaID string, connected bool) error {

	err := s.service.SetConnectivity(replicaID, connected)

	if err == nil {
		s.configChanges.Add(1)
	}

	return err
}

func (s *metricsService[S, O]) SetDelay(replicaID string, delay time.Duration) error {

	err := s.service.SetDelay(replicaID, delay)

	if err == nil {
		s.configChanges.Add(1)
	}

	return err
}

func (s *metricsService[S, O]) Snapshot() []ReplicaSnapshot[S] {
	return s.service.Snapshot()
}
