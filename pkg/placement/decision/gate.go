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

package decision

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// NodeLoad is the load of a node.
type NodeLoad struct {
	Name string
	Load int64
}

// GateInput is what the reschedule decision is made on.
type GateInput struct {
	// CurrentInterNodeTraffic is the inter-node traffic of the live
	// placement.
	CurrentInterNodeTraffic int64
	// BestInterNodeTraffic is the inter-node traffic of the candidate.
	BestInterNodeTraffic int64
	// TrafficImprovement is the percentage of traffic the candidate must
	// save.
	TrafficImprovement int
	// Overloaded are the nodes whose live load exceeds their capacity.
	Overloaded []NodeLoad
	// Projected is the load of every node used by the candidate.
	Projected map[string]int64
}

// Verdict is the outcome of the reschedule decision.
type Verdict struct {
	Apply bool
	// Threshold is the inter-node traffic the candidate had to reach.
	Threshold int64
	// Traffic is set when the candidate saves enough traffic.
	Traffic bool
	// Relief is set when the candidate lowers the load of an overloaded
	// node.
	Relief bool
}

// Evaluate decides whether the candidate placement should be applied.
func Evaluate(in GateInput) Verdict {
	v := Verdict{
		Threshold: in.CurrentInterNodeTraffic * int64(100-in.TrafficImprovement) / 100,
	}
	v.Traffic = v.Threshold >= in.BestInterNodeTraffic

	for _, n := range in.Overloaded {
		projected, ok := in.Projected[n.Name]
		if !ok {
			log.WithFields(log.Fields{
				"node": n.Name,
				"load": n.Load,
			}).Warn("Overloaded node does not appear in the new placement")
			continue
		}
		if n.Load > projected {
			v.Relief = true
		}
	}

	v.Apply = v.Traffic || v.Relief
	return v
}

// timeoutElapsed returns true if a new placement may be applied.
func timeoutElapsed(lastApplied, now time.Time, timeout time.Duration) bool {
	return lastApplied.IsZero() || now.Sub(lastApplied) >= timeout
}
