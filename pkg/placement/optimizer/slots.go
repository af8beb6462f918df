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

package optimizer

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/models"
)

// placeSlots places the slots of every job onto the nodes, heaviest slot
// pairs first, then the slots no pair refers to.
func (e *Engine) placeSlots() error {
	l := &nodeLevel{nodes: e.run.nodes, ledger: e.run.Ledger}

	ids := make([]string, len(e.run.jobs))
	for i, job := range e.run.jobs {
		ids[i] = job.ID
	}
	for _, p := range e.run.Ledger.MergedSlotPairs(ids) {
		// A slot emptied while packing executors is not placed.
		if p.First.Empty() || p.Second.Empty() {
			continue
		}
		if err := placePair[*models.Slot, *models.Node](l, p.First, p.Second); err != nil {
			return errors.Wrapf(err, "slot pair %s", p)
		}
		log.WithFields(log.Fields{
			"pair":   p.String(),
			"first":  e.run.Ledger.NodeOf(p.First).Name,
			"second": e.run.Ledger.NodeOf(p.Second).Name,
		}).Debug("slot pair placed")
	}

	for _, job := range e.run.jobs {
		for _, s := range job.Slots() {
			if s.Empty() || e.run.Ledger.NodeOf(s) != nil {
				continue
			}
			if err := placeAlone[*models.Slot, *models.Node](l, s); err != nil {
				return errors.Wrapf(err, "job %s", job.ID)
			}
		}
	}
	return nil
}

// spread moves slots of the job off nodes holding several of them onto
// nodes the job does not use yet, until the job spans NodesToUse nodes.
// Every step commits the move leaving the least inter-node traffic. The
// pass stops early when no move is possible or after the iteration cap.
func (e *Engine) spread(job *models.Job) error {
	l := &nodeLevel{nodes: e.run.nodes, ledger: e.run.Ledger}

	limit := e.opts.FairnessIterationCap
	if limit <= 0 {
		limit = len(e.run.nodes) + 1
	}

	for i := 0; i < limit; i++ {
		if e.run.Ledger.JobNodeCount(job.ID) >= job.NodesToUse() {
			return nil
		}
		moved, err := e.spreadOnce(l, job)
		if err != nil {
			return err
		}
		if !moved {
			log.WithFields(log.Fields{
				"job":          job.ID,
				"nodes_used":   e.run.Ledger.JobNodeCount(job.ID),
				"nodes_to_use": job.NodesToUse(),
			}).Warn("job cannot be spread over more nodes")
			return nil
		}
	}

	if e.run.Ledger.JobNodeCount(job.ID) < job.NodesToUse() {
		log.WithFields(log.Fields{
			"job":   job.ID,
			"limit": limit,
		}).Warn("fairness iteration cap reached")
	}
	return nil
}

func (e *Engine) spreadOnce(l *nodeLevel, job *models.Job) (bool, error) {
	used := make(map[string]bool)
	for _, n := range e.run.Ledger.JobNodes(job.ID) {
		used[n.Name] = true
	}

	var best *models.Slot
	var from, to *models.Node
	var bestScore int64
	for _, n := range e.run.Ledger.JobNodes(job.ID) {
		if n.JobSlotCount(job.ID) <= 1 {
			continue
		}
		for _, s := range e.run.Ledger.NodeSlots(n.Name) {
			if s.Key.JobID != job.ID {
				continue
			}
			target := leastLoadedUnused(l, used, s)
			if target == nil {
				continue
			}
			score, err := relocate[*models.Slot, *models.Node](l, s, n, target)
			if err != nil {
				return false, err
			}
			if best == nil || score < bestScore {
				best, from, to, bestScore = s, n, target, score
			}
		}
	}
	if best == nil {
		return false, nil
	}

	if err := from.Remove(best); err != nil {
		return false, err
	}
	if err := to.Assign(best); err != nil {
		return false, err
	}
	log.WithFields(log.Fields{
		"job":                job.ID,
		"slot":               best.Key.String(),
		"from":               from.Name,
		"to":                 to.Name,
		"inter_node_traffic": bestScore,
	}).Debug("slot moved to spread job")
	return true, nil
}

// leastLoadedUnused returns the least loaded node outside used able to
// take the slot, or nil.
func leastLoadedUnused(l *nodeLevel, used map[string]bool, s *models.Slot) *models.Node {
	var best *models.Node
	for _, n := range l.nodes {
		if used[n.Name] || !n.Fits(s) {
			continue
		}
		if best == nil || n.Load() < best.Load() {
			best = n
		}
	}
	return best
}
