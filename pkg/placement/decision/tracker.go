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
	"context"
	"sort"
	"time"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/cluster"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/storage"
)

// Tracker records the live assignment in the audit sink whenever it
// changes.
type Tracker struct {
	audit storage.AuditStore
	last  string
	now   func() time.Time
}

// NewTracker creates a tracker writing to the audit sink.
func NewTracker(audit storage.AuditStore) *Tracker {
	return &Tracker{
		audit: audit,
		now:   time.Now,
	}
}

// Check compares the assignment with the last one seen and stores it if
// it differs. It returns true if the assignment changed.
func (t *Tracker) Check(ctx context.Context, snapshot *cluster.Snapshot) (bool, error) {
	rendered := snapshot.Render()
	if rendered == t.last {
		return false, nil
	}
	t.last = rendered
	if rendered == "" {
		return true, nil
	}

	record := &storage.AssignmentRecord{
		ID:         uuid.New(),
		Time:       t.now(),
		Jobs:       assignedJobs(snapshot),
		Assignment: rendered,
	}
	log.WithFields(log.Fields{
		"id":         record.ID,
		"jobs":       record.Jobs,
		"assignment": rendered,
	}).Info("Assignment changed")
	if err := t.audit.StoreAssignment(ctx, record); err != nil {
		return true, errors.Wrap(err, "failed to store assignment")
	}
	return true, nil
}

func assignedJobs(snapshot *cluster.Snapshot) []string {
	seen := make(map[string]bool)
	var jobs []string
	for _, e := range snapshot.Executors {
		if e.Assigned() && !seen[e.JobID] {
			seen[e.JobID] = true
			jobs = append(jobs, e.JobID)
		}
	}
	sort.Strings(jobs)
	return jobs
}
