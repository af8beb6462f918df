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

// placeExecutors packs the executors of the job into its slots, heaviest
// edges first, then fills the slots left empty.
func (e *Engine) placeExecutors(job *models.Job) error {
	l := &slotLevel{job: job, ledger: e.run.Ledger}

	for _, p := range e.run.Ledger.ExecutorPairs(job.ID) {
		if err := placePair[*models.Executor, *models.Slot](l, p.Source, p.Destination); err != nil {
			return errors.Wrapf(err, "executor pair %s", p)
		}
		log.WithFields(log.Fields{
			"job":         job.ID,
			"pair":        p.String(),
			"source":      job.SlotOf(p.Source).Key.String(),
			"destination": job.SlotOf(p.Destination).Key.String(),
		}).Debug("executor pair placed")
	}

	// Executors without edges.
	for _, ex := range job.Executors() {
		if job.SlotOf(ex) != nil {
			continue
		}
		if err := placeAlone[*models.Executor, *models.Slot](l, ex); err != nil {
			return err
		}
	}

	if err := e.fillEmptySlots(l); err != nil {
		return err
	}

	e.run.Ledger.CompileSlotIndex(job.ID)
	log.WithFields(log.Fields{
		"job":          job.ID,
		"slot_traffic": e.run.Ledger.JobTraffic(job.ID),
	}).Info("executors of job placed")
	return nil
}

// fillEmptySlots moves into every empty slot the executor, taken from a
// slot holding more than one, whose move leaves the least traffic between
// the slots of the job.
func (e *Engine) fillEmptySlots(l *slotLevel) error {
	for _, empty := range l.job.Slots() {
		if !empty.Empty() {
			continue
		}

		var best *models.Executor
		var from *models.Slot
		var bestScore int64
		for _, s := range l.job.Slots() {
			if s.Len() <= 1 {
				continue
			}
			for _, ex := range s.Executors() {
				if !empty.Fits(ex) {
					continue
				}
				score, err := relocate[*models.Executor, *models.Slot](l, ex, s, empty)
				if err != nil {
					return err
				}
				if best == nil || score < bestScore {
					best, from, bestScore = ex, s, score
				}
			}
		}

		if best == nil {
			log.WithFields(log.Fields{
				"job":  l.job.ID,
				"slot": empty.Key.String(),
			}).Warn("no executor can be moved to empty slot")
			continue
		}
		if err := from.Remove(best); err != nil {
			return err
		}
		if err := empty.Assign(best); err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"job":          l.job.ID,
			"executor":     best.Key.String(),
			"from":         from.Key.String(),
			"to":           empty.Key.String(),
			"slot_traffic": bestScore,
		}).Debug("executor moved to empty slot")
	}
	return nil
}
