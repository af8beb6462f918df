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

package cassandra

import (
	"context"

	"github.com/gocql/gocql"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"

	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/storage"
)

const (
	createAssignmentTableStmt = `CREATE TABLE IF NOT EXISTS assignment (
		id text PRIMARY KEY,
		time timestamp,
		topologies list<text>,
		assignment text
	)`
	insertAssignmentStmt = `INSERT INTO assignment (id, time, topologies, assignment) VALUES (?, ?, ?, ?)`
)

var _ storage.AuditStore = (*AuditStore)(nil)

// AuditStore writes applied assignments to Cassandra.
type AuditStore struct {
	session *gocql.Session
	metrics *storage.Metrics
}

// NewAuditStore connects to the cluster and returns the audit sink.
func NewAuditStore(cfg *Config, scope tally.Scope) (*AuditStore, error) {
	session, err := newCluster(cfg).CreateSession()
	if err != nil {
		log.WithError(err).Error("Fail to create C* session")
		return nil, errors.Wrap(err, "failed to create cassandra session")
	}
	log.WithFields(log.Fields{
		"key_space":      cfg.Keyspace,
		"cassandra_port": cfg.Port,
	}).Info("C* Session Created.")

	if cfg.CreateTable {
		if err := session.Query(createAssignmentTableStmt).Exec(); err != nil {
			session.Close()
			return nil, errors.Wrap(err, "failed to create assignment table")
		}
	}
	return &AuditStore{
		session: session,
		metrics: storage.NewMetrics(scope.SubScope("cassandra")),
	}, nil
}

// StoreAssignment appends an applied assignment to the audit table.
func (s *AuditStore) StoreAssignment(ctx context.Context, r *storage.AssignmentRecord) error {
	err := s.session.Query(insertAssignmentStmt, r.ID, r.Time, r.Jobs, r.Assignment).
		WithContext(ctx).
		Exec()
	if err != nil {
		s.metrics.AuditWriteFail.Inc(1)
		return errors.Wrapf(err, "failed to store assignment %s", r.ID)
	}
	s.metrics.AuditWrite.Inc(1)
	return nil
}

// Close closes the session.
func (s *AuditStore) Close() {
	s.session.Close()
}
