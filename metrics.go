package main

import (
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alpaylan/crdt-demo/sim"
)

type DemoMetrics struct {
	Engine        sim.Metrics
	OpsSubmitted  metrics.Counter
	ConfigChanges metrics.Counter
}

func NewDemoMetrics(prometheusAddr string) *DemoMetrics {

	m := &DemoMetrics{}

	if prometheusAddr == "" {

		m.Engine = sim.Metrics{
			Ticks:        discard.NewCounter(),
			OpsEmitted:   discard.NewCounter(),
			OpsDelivered: discard.NewCounter(),
			OpsDeferred:  discard.NewCounter(),
		}
		m.OpsSubmitted = discard.NewCounter()
		m.ConfigChanges = discard.NewCounter()

		return m
	}

	m.Engine = sim.Metrics{
		Ticks: prometheus.NewCounterFrom(prom.CounterOpts{
			Namespace: "crdtdemo",
			Subsystem: "engine",
			Name:      "ticks_total",
			Help:      "Number of simulation ticks",
		}, nil),
		OpsEmitted: prometheus.NewCounterFrom(prom.CounterOpts{
			Namespace: "crdtdemo",
			Subsystem: "engine",
			Name:      "ops_emitted_total",
			Help:      "Number of operations handed to the simulated network",
		}, nil),
		OpsDelivered: prometheus.NewCounterFrom(prom.CounterOpts{
			Namespace: "crdtdemo",
			Subsystem: "engine",
			Name:      "ops_delivered_total",
			Help:      "Number of per-replica operation deliveries",
		}, nil),
		OpsDeferred: prometheus.NewCounterFrom(prom.CounterOpts{
			Namespace: "crdtdemo",
			Subsystem: "engine",
			Name:      "ops_deferred_total",
			Help:      "Number of operations parked for missing dependencies",
		}, nil),
	}

	m.OpsSubmitted = prometheus.NewCounterFrom(prom.CounterOpts{
		Namespace: "crdtdemo",
		Subsystem: "control",
		Name:      "ops_submitted_total",
		Help:      "Number of operations submitted through the control surface",
	}, nil)

	m.ConfigChanges = prometheus.NewCounterFrom(prom.CounterOpts{
		Namespace: "crdtdemo",
		Subsystem: "control",
		Name:      "config_changes_total",
		Help:      "Number of connectivity and delay changes",
	}, nil)

	return m
}

func runPromHTTP(logger log.Logger, addr string) {

	if addr == "" {
		level.Debug(logger).Log("msg", "prometheus addr is empty, not exposing prometheus metrics")
		return
	}

	http.Handle("/metrics", promhttp.HandlerFor(prom.DefaultGatherer, promhttp.HandlerOpts{}))

	level.Info(logger).Log("msg", "prometheus handler listening", "addr", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		level.Warn(logger).Log("msg", "failed to serve prometheus metrics", "err", err)
	}
}
