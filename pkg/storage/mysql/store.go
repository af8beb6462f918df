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

package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"

	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/common/backoff"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/cluster"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/storage"
)

const (
	// Telemetry statements.
	insertJobStmt  = `INSERT IGNORE INTO topology (storm_id) VALUES (?)`
	upsertLoadStmt = "INSERT INTO `load` (topology_id, begin_task, end_task, `load`, node) " +
		"SELECT id, ?, ?, ?, ? FROM topology WHERE storm_id = ? " +
		"ON DUPLICATE KEY UPDATE `load` = VALUES(`load`), node = VALUES(node)"
	upsertTrafficStmt = "INSERT INTO traffic (topology_id, source_task, destination_task, traffic) " +
		"SELECT id, ?, ?, ? FROM topology WHERE storm_id = ? " +
		"ON DUPLICATE KEY UPDATE traffic = VALUES(traffic)"
	upsertNodeStmt = "INSERT INTO node (name, capacity, cores) VALUES (?, ?, ?) " +
		"ON DUPLICATE KEY UPDATE capacity = VALUES(capacity), cores = VALUES(cores)"
	insertAssignmentStmt = `INSERT INTO assignment (id, time, topologies, assignment) VALUES (?, ?, ?, ?)`

	getNodesStmt     = `SELECT name, capacity, cores FROM node ORDER BY name`
	getJobIDsStmt    = `SELECT storm_id FROM topology ORDER BY storm_id`
	getTotalLoadStmt = "SELECT COALESCE(SUM(l.`load`), 0) FROM `load` l " +
		"JOIN topology t ON l.topology_id = t.id WHERE t.storm_id = ?"
	selectLoads = "SELECT t.storm_id AS job_id, l.begin_task, l.end_task, l.`load`, l.node " +
		"FROM `load` l JOIN topology t ON l.topology_id = t.id"
	getLoadsStmt    = selectLoads + " WHERE t.storm_id = ? ORDER BY l.begin_task"
	getAllLoadsStmt = selectLoads + " ORDER BY t.storm_id, l.begin_task"
	selectTraffic   = "SELECT t.storm_id AS job_id, r.source_task, r.destination_task, r.traffic " +
		"FROM traffic r JOIN topology t ON r.topology_id = t.id"
	getTrafficStmt    = selectTraffic + " WHERE t.storm_id = ? ORDER BY r.source_task, r.destination_task"
	getAllTrafficStmt = selectTraffic + " ORDER BY t.storm_id, r.source_task, r.destination_task"

	deleteLoadsStmt   = "DELETE FROM `load` WHERE topology_id IN (SELECT id FROM topology WHERE storm_id IN (?))"
	deleteTrafficStmt = "DELETE FROM traffic WHERE topology_id IN (SELECT id FROM topology WHERE storm_id IN (?))"
	deleteJobsStmt    = "DELETE FROM topology WHERE storm_id IN (?)"

	// Live cluster statements.
	getClusterJobsStmt      = `SELECT id, name, workers, conf FROM cluster_job ORDER BY id`
	getClusterExecutorsStmt = `SELECT job_id, begin_task, end_task, component, host, port ` +
		`FROM cluster_executor ORDER BY job_id, begin_task`
	getClusterSlotsStmt = `SELECT host, port FROM cluster_slot ORDER BY host, port`
	freeEndpointStmt    = `UPDATE cluster_executor SET host = '', port = 0 WHERE host = ? AND port = ?`
	assignExecutorStmt  = `UPDATE cluster_executor SET host = ?, port = ? ` +
		`WHERE job_id = ? AND begin_task = ? AND end_task = ?`
)

var (
	_ storage.Store  = (*Store)(nil)
	_ cluster.Client = (*Store)(nil)
)

type clusterJobRecord struct {
	ID      string `db:"id"`
	Name    string `db:"name"`
	Workers int    `db:"workers"`
	Conf    string `db:"conf"`
}

type clusterExecutorRecord struct {
	JobID     string `db:"job_id"`
	Begin     int    `db:"begin_task"`
	End       int    `db:"end_task"`
	Component string `db:"component"`
	Host      string `db:"host"`
	Port      int    `db:"port"`
}

type clusterSlotRecord struct {
	Host string `db:"host"`
	Port int    `db:"port"`
}

// Store is the MySQL backed telemetry store, audit sink and live cluster
// view.
type Store struct {
	db          *sqlx.DB
	metrics     *storage.Metrics
	retryPolicy backoff.RetryPolicy
}

// NewStore creates a Store on an open database.
func NewStore(db *sqlx.DB, cfg Config, scope tally.Scope) *Store {
	retries, interval := cfg.retries()
	return &Store{
		db:          db,
		metrics:     storage.NewMetrics(scope.SubScope("mysql")),
		retryPolicy: backoff.NewRetryPolicy(retries, interval),
	}
}

func isRetryable(err error) bool {
	return err != sql.ErrNoRows &&
		err != context.Canceled &&
		err != context.DeadlineExceeded
}

// read runs a query, retrying on transient errors.
func (s *Store) read(ctx context.Context, what string, f backoff.Retriable) error {
	start := time.Now()
	err := backoff.Retry(ctx, f, s.retryPolicy, isRetryable)
	s.metrics.ReadDuration.Record(time.Since(start))
	if err != nil {
		s.metrics.ReadFail.Inc(1)
		return errors.Wrapf(err, "failed to read %s", what)
	}
	s.metrics.Read.Inc(1)
	return nil
}

func (s *Store) write(ctx context.Context, what string, query string, args ...interface{}) error {
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.metrics.WriteFail.Inc(1)
		return errors.Wrapf(err, "failed to write %s", what)
	}
	s.metrics.Write.Inc(1)
	return nil
}

// EnsureJob registers the job if it is not known yet.
func (s *Store) EnsureJob(ctx context.Context, jobID string) error {
	return s.write(ctx, "job "+jobID, insertJobStmt, jobID)
}

// StoreLoad inserts or replaces the load of an executor. The job must have
// been registered with EnsureJob.
func (s *Store) StoreLoad(ctx context.Context, l *storage.ExecutorLoad) error {
	return s.write(ctx, "load of "+l.JobID, upsertLoadStmt,
		l.Begin, l.End, l.Load, l.Node, l.JobID)
}

// StoreTraffic inserts or replaces the traffic between two tasks. The job
// must have been registered with EnsureJob.
func (s *Store) StoreTraffic(ctx context.Context, t *storage.TaskTraffic) error {
	return s.write(ctx, "traffic of "+t.JobID, upsertTrafficStmt,
		t.Source, t.Destination, t.Traffic, t.JobID)
}

// UpsertNode registers a node or refreshes its capacity.
func (s *Store) UpsertNode(ctx context.Context, n *storage.NodeInfo) error {
	return s.write(ctx, "node "+n.Name, upsertNodeStmt, n.Name, n.Capacity, n.Cores)
}

// Nodes returns all the registered nodes ordered by name.
func (s *Store) Nodes(ctx context.Context) ([]*storage.NodeInfo, error) {
	var nodes []*storage.NodeInfo
	err := s.read(ctx, "nodes", func() error {
		nodes = nil
		return s.db.SelectContext(ctx, &nodes, getNodesStmt)
	})
	return nodes, err
}

// JobIDs returns the jobs with stored telemetry.
func (s *Store) JobIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.read(ctx, "jobs", func() error {
		ids = nil
		return s.db.SelectContext(ctx, &ids, getJobIDsStmt)
	})
	return ids, err
}

// TotalLoad returns the summed load of the executors of a job.
func (s *Store) TotalLoad(ctx context.Context, jobID string) (int64, error) {
	var total int64
	err := s.read(ctx, "total load of "+jobID, func() error {
		return s.db.GetContext(ctx, &total, getTotalLoadStmt, jobID)
	})
	return total, err
}

// ExecutorLoads returns the executors of a job ordered by first task.
func (s *Store) ExecutorLoads(ctx context.Context, jobID string) ([]*storage.ExecutorLoad, error) {
	var loads []*storage.ExecutorLoad
	err := s.read(ctx, "loads of "+jobID, func() error {
		loads = nil
		return s.db.SelectContext(ctx, &loads, getLoadsStmt, jobID)
	})
	return loads, err
}

// Traffic returns the task to task traffic of a job.
func (s *Store) Traffic(ctx context.Context, jobID string) ([]*storage.TaskTraffic, error) {
	var traffic []*storage.TaskTraffic
	err := s.read(ctx, "traffic of "+jobID, func() error {
		traffic = nil
		return s.db.SelectContext(ctx, &traffic, getTrafficStmt, jobID)
	})
	return traffic, err
}

// AllLoads returns the executor loads of every job.
func (s *Store) AllLoads(ctx context.Context) ([]*storage.ExecutorLoad, error) {
	var loads []*storage.ExecutorLoad
	err := s.read(ctx, "loads", func() error {
		loads = nil
		return s.db.SelectContext(ctx, &loads, getAllLoadsStmt)
	})
	return loads, err
}

// AllTraffic returns the task traffic of every job.
func (s *Store) AllTraffic(ctx context.Context) ([]*storage.TaskTraffic, error) {
	var traffic []*storage.TaskTraffic
	err := s.read(ctx, "traffic", func() error {
		traffic = nil
		return s.db.SelectContext(ctx, &traffic, getAllTrafficStmt)
	})
	return traffic, err
}

// ResetJobs deletes the load, traffic and registration of the jobs in a
// single transaction.
func (s *Store) ResetJobs(ctx context.Context, jobIDs []string) error {
	if len(jobIDs) == 0 {
		return nil
	}
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, stmt := range []string{deleteLoadsStmt, deleteTrafficStmt, deleteJobsStmt} {
			query, args, err := sqlx.In(stmt, jobIDs)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.metrics.ResetFail.Inc(1)
		return errors.Wrapf(err, "failed to reset jobs %v", jobIDs)
	}
	s.metrics.Reset.Inc(1)
	log.WithField("jobs", jobIDs).Debug("Job telemetry reset")
	return nil
}

// StoreAssignment appends an applied assignment to the audit table.
func (s *Store) StoreAssignment(ctx context.Context, r *storage.AssignmentRecord) error {
	_, err := s.db.ExecContext(ctx, insertAssignmentStmt,
		r.ID, r.Time.UnixNano()/int64(time.Millisecond),
		strings.Join(r.Jobs, ", "), r.Assignment)
	if err != nil {
		s.metrics.AuditWriteFail.Inc(1)
		return errors.Wrapf(err, "failed to store assignment %s", r.ID)
	}
	s.metrics.AuditWrite.Inc(1)
	return nil
}

// Jobs returns the jobs of the live cluster.
func (s *Store) Jobs(ctx context.Context) ([]*cluster.Job, error) {
	var records []*clusterJobRecord
	err := s.read(ctx, "cluster jobs", func() error {
		records = nil
		return s.db.SelectContext(ctx, &records, getClusterJobsStmt)
	})
	if err != nil {
		s.metrics.ClusterReadFail.Inc(1)
		return nil, err
	}

	jobs := make([]*cluster.Job, 0, len(records))
	for _, r := range records {
		j := &cluster.Job{ID: r.ID, Name: r.Name, Workers: r.Workers}
		if r.Conf != "" {
			if err := json.Unmarshal([]byte(r.Conf), &j.Conf); err != nil {
				s.metrics.ClusterReadFail.Inc(1)
				return nil, errors.Wrapf(err, "invalid conf of job %s", r.ID)
			}
		}
		jobs = append(jobs, j)
	}
	s.metrics.ClusterRead.Inc(1)
	return jobs, nil
}

// Snapshot returns the live assignment and the worker ports of every host.
// Executors released by Free and not yet reassigned come back with an empty
// endpoint.
func (s *Store) Snapshot(ctx context.Context) (*cluster.Snapshot, error) {
	var executors []*clusterExecutorRecord
	var slots []*clusterSlotRecord
	err := s.read(ctx, "cluster snapshot", func() error {
		executors, slots = nil, nil
		if err := s.db.SelectContext(ctx, &executors, getClusterExecutorsStmt); err != nil {
			return err
		}
		return s.db.SelectContext(ctx, &slots, getClusterSlotsStmt)
	})
	if err != nil {
		s.metrics.ClusterReadFail.Inc(1)
		return nil, err
	}

	snapshot := &cluster.Snapshot{
		Executors: make([]*cluster.Executor, 0, len(executors)),
		Ports:     make(map[string][]int),
	}
	for _, e := range executors {
		snapshot.Executors = append(snapshot.Executors, &cluster.Executor{
			JobID:     e.JobID,
			Begin:     e.Begin,
			End:       e.End,
			Component: e.Component,
			Endpoint:  cluster.Endpoint{Host: e.Host, Port: e.Port},
		})
	}
	for _, sl := range slots {
		snapshot.Ports[sl.Host] = append(snapshot.Ports[sl.Host], sl.Port)
	}
	s.metrics.ClusterRead.Inc(1)
	return snapshot, nil
}

// Free releases an endpoint by unassigning the executors running on it.
func (s *Store) Free(ctx context.Context, endpoint cluster.Endpoint) error {
	_, err := s.db.ExecContext(ctx, freeEndpointStmt, endpoint.Host, endpoint.Port)
	if err != nil {
		s.metrics.ClusterWriteFail.Inc(1)
		return errors.Wrapf(err, "failed to free %s", endpoint)
	}
	s.metrics.ClusterWrite.Inc(1)
	return nil
}

// Assign moves the executors of a job to an endpoint.
func (s *Store) Assign(
	ctx context.Context,
	jobID string,
	endpoint cluster.Endpoint,
	executors []*cluster.Executor) error {
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, e := range executors {
			if _, err := tx.ExecContext(ctx, assignExecutorStmt,
				endpoint.Host, endpoint.Port, jobID, e.Begin, e.End); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.metrics.ClusterWriteFail.Inc(1)
		return errors.Wrapf(err, "failed to assign %s to %s", jobID, endpoint)
	}
	s.metrics.ClusterWrite.Inc(1)
	return nil
}

func (s *Store) inTx(ctx context.Context, f func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := f(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			log.WithError(rerr).Warn("Rollback failed")
		}
		return err
	}
	return tx.Commit()
}
