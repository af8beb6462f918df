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
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/models"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/traffic"
)

// level abstracts one placement level: items (executors or slots) packed
// into bins (slots or nodes). Bins are returned in a fixed order which
// decides ties.
type level[I, B comparable] interface {
	bins() []B
	binOf(item I) (B, bool)
	fits(bin B, items ...I) bool
	load(bin B) int64
	itemLoad(item I) int64
	assign(bin B, item I) error
	remove(bin B, item I) error
	// traffic is the score minimized at this level.
	traffic() int64
}

// slotLevel packs the executors of one job into its slots.
type slotLevel struct {
	job    *models.Job
	ledger *traffic.Ledger
}

func (l *slotLevel) bins() []*models.Slot { return l.job.Slots() }

func (l *slotLevel) binOf(e *models.Executor) (*models.Slot, bool) {
	s := l.job.SlotOf(e)
	return s, s != nil
}

func (l *slotLevel) fits(s *models.Slot, executors ...*models.Executor) bool {
	return s.Fits(executors...)
}

func (l *slotLevel) load(s *models.Slot) int64 { return s.Load() }
func (l *slotLevel) itemLoad(e *models.Executor) int64 { return e.Load }
func (l *slotLevel) assign(s *models.Slot, e *models.Executor) error { return s.Assign(e) }
func (l *slotLevel) remove(s *models.Slot, e *models.Executor) error { return s.Remove(e) }
func (l *slotLevel) traffic() int64 { return l.ledger.JobTraffic(l.job.ID) }

// nodeLevel places the slots of every job onto the nodes.
type nodeLevel struct {
	nodes  []*models.Node
	ledger *traffic.Ledger
}

func (l *nodeLevel) bins() []*models.Node { return l.nodes }

func (l *nodeLevel) binOf(s *models.Slot) (*models.Node, bool) {
	n := l.ledger.NodeOf(s)
	return n, n != nil
}

func (l *nodeLevel) fits(n *models.Node, slots ...*models.Slot) bool {
	return n.Fits(slots...)
}

func (l *nodeLevel) load(n *models.Node) int64 { return n.Load() }
func (l *nodeLevel) itemLoad(s *models.Slot) int64 { return s.Load() }
func (l *nodeLevel) assign(n *models.Node, s *models.Slot) error { return n.Assign(s) }
func (l *nodeLevel) remove(n *models.Node, s *models.Slot) error { return n.Remove(s) }
func (l *nodeLevel) traffic() int64 { return l.ledger.InterNodeTraffic() }
