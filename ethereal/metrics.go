// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ethereal

import (
	"github.com/luxfi/ethereal/gomel"
	"github.com/prometheus/client_golang/prometheus"
)

// metricsSet holds the optional Prometheus instruments a Controller
// updates. Grounded on poll/default.go's prometheus.NewRegistry() pattern:
// a nil registry disables metrics entirely rather than falling back to the
// default global registry.
type metricsSet struct {
	unitsCreated  prometheus.Counter
	unitsInserted prometheus.Counter
	preblocks     prometheus.Counter
	maxLevel      prometheus.Gauge
	forkingCount  prometheus.Gauge
}

func newMetricsSet(reg *prometheus.Registry) *metricsSet {
	if reg == nil {
		return nil
	}
	m := &metricsSet{
		unitsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ethereal_units_created_total",
			Help: "Units created locally by this process.",
		}),
		unitsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ethereal_units_inserted_total",
			Help: "Units (local and foreign) accepted into the DAG.",
		}),
		preblocks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ethereal_preblocks_total",
			Help: "Pre-blocks emitted by the orderer.",
		}),
		maxLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ethereal_dag_max_level",
			Help: "Highest unit level currently stored in the DAG.",
		}),
		forkingCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ethereal_forking_creators",
			Help: "Number of creators observed to have forked.",
		}),
	}
	reg.MustRegister(m.unitsCreated, m.unitsInserted, m.preblocks, m.maxLevel, m.forkingCount)
	return m
}

func (m *metricsSet) observeCreated() {
	if m == nil {
		return
	}
	m.unitsCreated.Inc()
}

func (m *metricsSet) observeInserted(u gomel.Unit, dagMaxLevel int) {
	if m == nil {
		return
	}
	m.unitsInserted.Inc()
	m.maxLevel.Set(float64(dagMaxLevel))
}

func (m *metricsSet) observeForking(count int) {
	if m == nil {
		return
	}
	m.forkingCount.Set(float64(count))
}

func (m *metricsSet) observePreBlock() {
	if m == nil {
		return
	}
	m.preblocks.Inc()
}
