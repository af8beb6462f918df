// Copyright (c) 2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package monitor samples the load of the executors and the traffic
// between the tasks running on a node, and periodically stores their
// averages over a sliding window.
package monitor

import (
	"context"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"
	"go.uber.org/multierr"

	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/common/background"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/common/cirbuf"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/config"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/metrics"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/storage"
)

const _flushWorkName = "telemetry_flush"

type executorKey struct {
	jobID string
	begin int
	end   int
}

type trafficKey struct {
	jobID       string
	source      int
	destination int
}

// Monitor accumulates samples per window slot. At every slot boundary the
// counts of the slot are pushed to a history of the last slots and the
// average over that history is written to the store.
type Monitor struct {
	sync.Mutex

	cfg     config.MonitorConfig
	node    string
	store   storage.TelemetryWriter
	metrics *metrics.MonitorMetrics
	manager background.Manager

	// Counts of the current slot, swapped at every flush.
	loads   map[executorKey]int64
	traffic map[trafficKey]int64

	// Only touched by flush.
	flushLock      sync.Mutex
	loadHistory    map[executorKey]*cirbuf.CircularBuffer
	trafficHistory map[trafficKey]*cirbuf.CircularBuffer
}

// New creates a stopped monitor. The node name defaults to the hostname.
func New(
	cfg config.MonitorConfig,
	store storage.TelemetryWriter,
	scope tally.Scope) (*Monitor, error) {
	if cfg.WindowSlotCount <= 0 || cfg.WindowSlotLength <= 0 {
		return nil, errors.Errorf("invalid telemetry window %d x %v",
			cfg.WindowSlotCount, cfg.WindowSlotLength)
	}

	node := cfg.Node
	if node == "" {
		var err error
		if node, err = os.Hostname(); err != nil {
			return nil, errors.Wrap(err, "failed to get hostname")
		}
	}

	m := &Monitor{
		cfg:            cfg,
		node:           node,
		store:          store,
		metrics:        metrics.NewMonitorMetrics(scope),
		loads:          make(map[executorKey]int64),
		traffic:        make(map[trafficKey]int64),
		loadHistory:    make(map[executorKey]*cirbuf.CircularBuffer),
		trafficHistory: make(map[trafficKey]*cirbuf.CircularBuffer),
	}

	manager, err := background.NewManager(background.Work{
		Name:   _flushWorkName,
		Period: cfg.WindowSlotLength,
		Func: func(ctx context.Context) {
			// Failures are logged and counted by Flush.
			_ = m.Flush(ctx)
		},
	})
	if err != nil {
		return nil, err
	}
	m.manager = manager
	return m, nil
}

// Node returns the name the monitor stores its samples under.
func (m *Monitor) Node() string {
	return m.node
}

// Start registers the node and starts flushing samples.
func (m *Monitor) Start(ctx context.Context) error {
	info := &storage.NodeInfo{
		Name:     m.node,
		Capacity: m.cfg.Capacity(),
		Cores:    m.cfg.Cores,
	}
	if err := m.store.UpsertNode(ctx, info); err != nil {
		return errors.Wrapf(err, "failed to register node %s", m.node)
	}
	log.WithFields(log.Fields{
		"node":     info.Name,
		"capacity": info.Capacity,
		"cores":    info.Cores,
		"window":   m.cfg.WindowLength().String(),
	}).Info("Node registered")

	m.manager.Start()
	m.metrics.Running.Update(1)
	return nil
}

// Stop stops flushing. Samples of the current slot are dropped.
func (m *Monitor) Stop() {
	m.manager.Stop()
	m.metrics.Running.Update(0)
}

// RecordLoad adds the cycles spent by an executor since its last sample.
func (m *Monitor) RecordLoad(jobID string, begin, end int, cycles int64) {
	m.Lock()
	m.loads[executorKey{jobID: jobID, begin: begin, end: end}] += cycles
	m.Unlock()
	m.metrics.LoadSamples.Inc(1)
}

// RecordTuple counts a tuple sent from one task to another.
func (m *Monitor) RecordTuple(jobID string, source, destination int) {
	m.RecordTuples(jobID, source, destination, 1)
}

// RecordTuples counts n tuples sent from one task to another.
func (m *Monitor) RecordTuples(jobID string, source, destination int, n int64) {
	m.Lock()
	m.traffic[trafficKey{jobID: jobID, source: source, destination: destination}] += n
	m.Unlock()
	m.metrics.TrafficSamples.Inc(1)
}

// swap hands over the counts of the slot that just ended.
func (m *Monitor) swap() (map[executorKey]int64, map[trafficKey]int64) {
	m.Lock()
	defer m.Unlock()

	loads, traffic := m.loads, m.traffic
	m.loads = make(map[executorKey]int64, len(loads))
	m.traffic = make(map[trafficKey]int64, len(traffic))
	return loads, traffic
}

// Flush closes the current slot and stores the window averages. Keys with
// no sample in the whole window are forgotten.
func (m *Monitor) Flush(ctx context.Context) error {
	m.flushLock.Lock()
	defer m.flushLock.Unlock()

	start := time.Now()
	m.metrics.Flushes.Inc(1)
	loads, traffic := m.swap()

	for k := range loads {
		if _, ok := m.loadHistory[k]; !ok {
			m.loadHistory[k] = cirbuf.NewCircularBuffer(m.cfg.WindowSlotCount)
		}
	}
	for k := range traffic {
		if _, ok := m.trafficHistory[k]; !ok {
			m.trafficHistory[k] = cirbuf.NewCircularBuffer(m.cfg.WindowSlotCount)
		}
	}

	jobs := make(map[string]bool)
	var rows []*storage.ExecutorLoad
	for k, h := range m.loadHistory {
		h.Add(loads[k])
		if h.Sum() == 0 {
			delete(m.loadHistory, k)
			continue
		}
		jobs[k.jobID] = true
		rows = append(rows, &storage.ExecutorLoad{
			JobID: k.jobID,
			Begin: k.begin,
			End:   k.end,
			Load:  m.average(h),
			Node:  m.node,
		})
	}
	var edges []*storage.TaskTraffic
	for k, h := range m.trafficHistory {
		h.Add(traffic[k])
		if h.Sum() == 0 {
			delete(m.trafficHistory, k)
			continue
		}
		jobs[k.jobID] = true
		edges = append(edges, &storage.TaskTraffic{
			JobID:       k.jobID,
			Source:      k.source,
			Destination: k.destination,
			Traffic:     m.average(h),
		})
	}
	sortRows(rows, edges)

	err := m.write(ctx, jobs, rows, edges)
	m.metrics.FlushDuration.Record(time.Since(start))
	if err != nil {
		m.metrics.FlushFail.Inc(1)
		log.WithError(err).WithField("node", m.node).Error("Failed to store telemetry")
		return err
	}
	log.WithFields(log.Fields{
		"node":    m.node,
		"loads":   len(rows),
		"traffic": len(edges),
	}).Debug("Telemetry stored")
	return nil
}

// average is the per second rate of the samples retained by h.
func (m *Monitor) average(h *cirbuf.CircularBuffer) int64 {
	window := float64(h.Size()) * m.cfg.WindowSlotLength.Seconds()
	return int64(float64(h.Sum()) / window)
}

func (m *Monitor) write(
	ctx context.Context,
	jobs map[string]bool,
	rows []*storage.ExecutorLoad,
	edges []*storage.TaskTraffic) error {
	ids := make([]string, 0, len(jobs))
	for id := range jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var errs error
	failed := make(map[string]bool)
	for _, id := range ids {
		if err := m.store.EnsureJob(ctx, id); err != nil {
			failed[id] = true
			errs = multierr.Append(errs, err)
		}
	}
	for _, r := range rows {
		if failed[r.JobID] {
			continue
		}
		errs = multierr.Append(errs, m.store.StoreLoad(ctx, r))
	}
	for _, e := range edges {
		if failed[e.JobID] {
			continue
		}
		errs = multierr.Append(errs, m.store.StoreTraffic(ctx, e))
	}
	return errs
}

func sortRows(rows []*storage.ExecutorLoad, edges []*storage.TaskTraffic) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].JobID != rows[j].JobID {
			return rows[i].JobID < rows[j].JobID
		}
		return rows[i].Begin < rows[j].Begin
	})
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.JobID != b.JobID {
			return a.JobID < b.JobID
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Destination < b.Destination
	})
}
