package sim

import (
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

type loggingService[S any, O any] struct {
	logger  log.Logger
	service Service[S, O]
}

// NewLoggingService wraps a provided existing
// service with the provided logger.
func NewLoggingService[S any, O any](s Service[S, O], logger log.Logger) Service[S, O] {
	return &loggingService[S, O]{logger, s}
}

// SubmitOperation wraps this service's SubmitOperation
// method with added logging capabilities.
func (s *loggingService[S, O]) SubmitOperation(replicaID string, op O) error {

	err := s.service.SubmitOperation(replicaID, op)

	logger := log.With(s.logger,
		"method", "SubmitOperation",
		"replica", replicaID,
	)

	if err != nil {
		level.Warn(logger).Log(
			"msg", "failed to submit operation",
			"err", err,
		)
		return err
	}

	level.Debug(logger).Log("msg", "operation submitted")

	return nil
}

// SetConnectivity wraps this service's SetConnectivity
// method with added logging capabilities.
func (s *loggingService[S, O]) SetConnectivity(replicaID string, connected bool) error {

	err := s.service.SetConnectivity(replicaID, connected)

	logger := log.With(s.logger,
		"method", "SetConnectivity",
		"replica", replicaID,
		"connected", connected,
	)

	if err != nil {
		level.Warn(logger).Log(
			"msg", "failed to set connectivity",
			"err", err,
		)
		return err
	}

	level.Info(logger).Log("msg", "connectivity changed")

	return nil
}

// SetDelay wraps this service's SetDelay method
// with added logging capabilities.
func (s *loggingService[S, O]) SetDelay(replicaID string, delay time.Duration) error {

	err := s.service.SetDelay(replicaID, delay)

	logger := log.With(s.logger,
		"method", "SetDelay",
		"replica", replicaID,
		"delay", delay,
	)

	if err != nil {
		level.Warn(logger).Log(
			"msg", "failed to set delay",
			"err", err,
		)
		return err
	}

	level.Info(logger).Log("msg", "delay changed")

	return nil
}

// Snapshot passes through to the wrapped service.
func (s *loggingService[S, O]) Snapshot() []ReplicaSnapshot[S] {
	return s.service.Snapshot()
}
