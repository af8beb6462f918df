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

// Package traffic keeps the traffic bookkeeping of a placement run at the
// executor, slot and node level.
package traffic

import (
	"sort"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/models"
)

var (
	_ models.UnitListener = (*Ledger)(nil)
	_ models.SlotListener = (*Ledger)(nil)
)

type slotRanking = ranking[models.SlotPairKey, *models.SlotPair]
type nodeRanking = ranking[models.NodePairKey, *models.NodePair]

// Ledger tracks the traffic between slots and between nodes as executors
// and slots are moved around. Static executor edges are loaded once per job;
// slot and node pairs are adjusted incrementally on every mutation and kept
// sorted by descending traffic.
//
// A Ledger is built for a single run and is not safe for concurrent use.
type Ledger struct {
	jobs  map[string]*models.Job
	nodes map[string]*models.Node

	// static executor edges, per job and per endpoint
	edges map[string]map[models.ExecutorKey][]*models.ExecutorPair
	pairs map[string][]*models.ExecutorPair

	slotPairs  map[string]*slotRanking
	jobTraffic map[string]int64

	// compiled per slot view of the slot pairs of a job
	compiled  map[string]bool
	slotIndex map[models.SlotKey][]*models.SlotPair

	nodePairs *nodeRanking
	interNode int64

	slotToNode  map[models.SlotKey]*models.Node
	nodeToSlots map[string]map[models.SlotKey]*models.Slot
	jobToNodes  map[string]map[string]int
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		jobs:        make(map[string]*models.Job),
		nodes:       make(map[string]*models.Node),
		edges:       make(map[string]map[models.ExecutorKey][]*models.ExecutorPair),
		pairs:       make(map[string][]*models.ExecutorPair),
		slotPairs:   make(map[string]*slotRanking),
		jobTraffic:  make(map[string]int64),
		compiled:    make(map[string]bool),
		slotIndex:   make(map[models.SlotKey][]*models.SlotPair),
		nodePairs:   newRanking((*models.NodePair).Key, nodeTraffic),
		slotToNode:  make(map[models.SlotKey]*models.Node),
		nodeToSlots: make(map[string]map[models.SlotKey]*models.Slot),
		jobToNodes:  make(map[string]map[string]int),
	}
}

func slotTraffic(p *models.SlotPair) *int64 { return &p.Traffic }
func nodeTraffic(p *models.NodePair) *int64 { return &p.Traffic }

// AddJob registers a job with its static executor edges and starts
// listening to its slots. Every edge must join two distinct executors of
// the job.
func (l *Ledger) AddJob(job *models.Job, pairs []*models.ExecutorPair) error {
	if _, ok := l.jobs[job.ID]; ok {
		return errors.Errorf("job %s already registered", job.ID)
	}

	edges := make(map[models.ExecutorKey][]*models.ExecutorPair)
	sorted := make([]*models.ExecutorPair, 0, len(pairs))
	for _, p := range pairs {
		if job.Executor(p.Source.Key) != p.Source ||
			job.Executor(p.Destination.Key) != p.Destination {
			return errors.Errorf("job %s: edge %s joins unknown executors", job.ID, p)
		}
		if p.Source.Key == p.Destination.Key {
			return errors.Errorf("job %s: edge %s is a self loop", job.ID, p)
		}
		if p.Traffic < 0 {
			return errors.Errorf("job %s: edge %s has negative traffic", job.ID, p)
		}
		edges[p.Source.Key] = append(edges[p.Source.Key], p)
		edges[p.Destination.Key] = append(edges[p.Destination.Key], p)
		sorted = append(sorted, p)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Traffic > sorted[j].Traffic
	})

	l.jobs[job.ID] = job
	l.edges[job.ID] = edges
	l.pairs[job.ID] = sorted
	l.slotPairs[job.ID] = newRanking((*models.SlotPair).Key, slotTraffic)
	l.jobToNodes[job.ID] = make(map[string]int)
	job.SetListener(l)
	return nil
}

// AddNode starts listening to the node.
func (l *Ledger) AddNode(node *models.Node) {
	l.nodes[node.Name] = node
	l.nodeToSlots[node.Name] = make(map[models.SlotKey]*models.Slot)
	node.SetListener(l)
}

// ExecutorPairs returns the static edges of the job by descending traffic.
func (l *Ledger) ExecutorPairs(jobID string) []*models.ExecutorPair {
	return l.pairs[jobID]
}

// UnitAssigned adds the traffic between the executor and its partners
// placed in other slots.
func (l *Ledger) UnitAssigned(slot *models.Slot, e *models.Executor) {
	l.unitMoved(slot, e, 1)
}

// UnitRemoved is the exact inverse of UnitAssigned.
func (l *Ledger) UnitRemoved(slot *models.Slot, e *models.Executor) {
	l.unitMoved(slot, e, -1)
}

func (l *Ledger) unitMoved(slot *models.Slot, e *models.Executor, sign int64) {
	job := slot.Job()
	for _, p := range l.edges[job.ID][e.Key] {
		other := job.SlotOf(p.Other(e))
		if other == nil || other == slot {
			continue
		}
		l.adjustSlotPair(slot, other, sign*p.Traffic)
	}
}

func (l *Ledger) adjustSlotPair(a, b *models.Slot, delta int64) {
	jobID := a.Key.JobID
	r, ok := l.slotPairs[jobID]
	if !ok {
		r = newRanking((*models.SlotPair).Key, slotTraffic)
		l.slotPairs[jobID] = r
	}

	key := models.NewSlotPairKey(a, b)
	p, ok := r.get(key)
	if !ok {
		first, second := a, b
		if second.Key.Index < first.Key.Index {
			first, second = second, first
		}
		p = &models.SlotPair{First: first, Second: second}
		r.insert(p)
		if l.compiled[jobID] {
			l.slotIndex[a.Key] = append(l.slotIndex[a.Key], p)
			l.slotIndex[b.Key] = append(l.slotIndex[b.Key], p)
		}
	}
	r.adjust(key, delta)
	l.jobTraffic[jobID] += delta

	if log.IsLevelEnabled(log.DebugLevel) {
		log.WithFields(log.Fields{
			"pair":  p.String(),
			"delta": delta,
		}).Debug("slot pair traffic adjusted")
	}

	// Keep node pairs exact if the slots are already placed.
	na, nb := l.slotToNode[a.Key], l.slotToNode[b.Key]
	if na != nil && nb != nil && na != nb {
		l.adjustNodePair(na, nb, delta)
	}
}

// CompileSlotIndex builds the per slot view of the slot pairs of the job.
// It must be called once the executors of the job are placed and before
// its slots are placed on nodes.
func (l *Ledger) CompileSlotIndex(jobID string) {
	job, ok := l.jobs[jobID]
	if !ok {
		return
	}
	for _, s := range job.Slots() {
		delete(l.slotIndex, s.Key)
	}
	if r, ok := l.slotPairs[jobID]; ok {
		for _, p := range r.order {
			l.slotIndex[p.First.Key] = append(l.slotIndex[p.First.Key], p)
			l.slotIndex[p.Second.Key] = append(l.slotIndex[p.Second.Key], p)
		}
	}
	l.compiled[jobID] = true
}

// slotPairsOf returns the slot pairs with the slot as an endpoint.
func (l *Ledger) slotPairsOf(slot *models.Slot) []*models.SlotPair {
	if l.compiled[slot.Key.JobID] {
		return l.slotIndex[slot.Key]
	}
	var result []*models.SlotPair
	if r, ok := l.slotPairs[slot.Key.JobID]; ok {
		for _, p := range r.order {
			if p.Other(slot) != nil {
				result = append(result, p)
			}
		}
	}
	return result
}

// SlotAssigned adds the traffic between the slot and its partners placed
// on other nodes.
func (l *Ledger) SlotAssigned(node *models.Node, slot *models.Slot) {
	l.slotToNode[slot.Key] = node
	if _, ok := l.nodeToSlots[node.Name]; !ok {
		l.nodeToSlots[node.Name] = make(map[models.SlotKey]*models.Slot)
	}
	l.nodeToSlots[node.Name][slot.Key] = slot
	if _, ok := l.jobToNodes[slot.Key.JobID]; !ok {
		l.jobToNodes[slot.Key.JobID] = make(map[string]int)
	}
	l.jobToNodes[slot.Key.JobID][node.Name]++

	l.slotMoved(node, slot, 1)
}

// SlotRemoved is the exact inverse of SlotAssigned.
func (l *Ledger) SlotRemoved(node *models.Node, slot *models.Slot) {
	l.slotMoved(node, slot, -1)

	delete(l.slotToNode, slot.Key)
	delete(l.nodeToSlots[node.Name], slot.Key)
	nodes := l.jobToNodes[slot.Key.JobID]
	if nodes[node.Name]--; nodes[node.Name] <= 0 {
		delete(nodes, node.Name)
	}
}

func (l *Ledger) slotMoved(node *models.Node, slot *models.Slot, sign int64) {
	for _, p := range l.slotPairsOf(slot) {
		other := l.slotToNode[p.Other(slot).Key]
		if other == nil || other == node {
			continue
		}
		l.adjustNodePair(node, other, sign*p.Traffic)
	}
}

func (l *Ledger) adjustNodePair(a, b *models.Node, delta int64) {
	key := models.NewNodePairKey(a, b)
	if _, ok := l.nodePairs.get(key); !ok {
		first, second := a, b
		if second.Name < first.Name {
			first, second = second, first
		}
		l.nodePairs.insert(&models.NodePair{First: first, Second: second})
	}
	l.nodePairs.adjust(key, delta)
	l.interNode += delta
}

// JobTraffic is the traffic between distinct slots of the job.
func (l *Ledger) JobTraffic(jobID string) int64 {
	return l.jobTraffic[jobID]
}

// InterNodeTraffic is the traffic between distinct nodes.
func (l *Ledger) InterNodeTraffic() int64 {
	return l.interNode
}

// SlotPairs returns the slot pairs of the job by descending traffic.
func (l *Ledger) SlotPairs(jobID string) []*models.SlotPair {
	r, ok := l.slotPairs[jobID]
	if !ok {
		return nil
	}
	return r.list()
}

// MergedSlotPairs returns the slot pairs of the given jobs by descending
// traffic. Pairs with equal traffic keep the job order, then the order
// within their job.
func (l *Ledger) MergedSlotPairs(jobIDs []string) []*models.SlotPair {
	var merged []*models.SlotPair
	for _, id := range jobIDs {
		merged = append(merged, l.SlotPairs(id)...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Traffic > merged[j].Traffic
	})
	return merged
}

// NodePairs returns the node pairs by descending traffic.
func (l *Ledger) NodePairs() []*models.NodePair {
	return l.nodePairs.list()
}

// NodeOf returns the node the slot is placed on, or nil.
func (l *Ledger) NodeOf(slot *models.Slot) *models.Node {
	return l.slotToNode[slot.Key]
}

// NodesOf returns the distinct nodes hosting either slot, by name.
func (l *Ledger) NodesOf(a, b *models.Slot) []*models.Node {
	var result []*models.Node
	na, nb := l.slotToNode[a.Key], l.slotToNode[b.Key]
	if na != nil {
		result = append(result, na)
	}
	if nb != nil && nb != na {
		result = append(result, nb)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// JobNodes returns the nodes hosting at least one slot of the job, by name.
func (l *Ledger) JobNodes(jobID string) []*models.Node {
	names := make([]string, 0, len(l.jobToNodes[jobID]))
	for name := range l.jobToNodes[jobID] {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]*models.Node, 0, len(names))
	for _, name := range names {
		result = append(result, l.nodes[name])
	}
	return result
}

// JobNodeCount returns the number of nodes used by the job.
func (l *Ledger) JobNodeCount(jobID string) int {
	return len(l.jobToNodes[jobID])
}

// NodeSlots returns the slots placed on the node, by key.
func (l *Ledger) NodeSlots(name string) []*models.Slot {
	result := make([]*models.Slot, 0, len(l.nodeToSlots[name]))
	for _, s := range l.nodeToSlots[name] {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key.Less(result[j].Key)
	})
	return result
}
