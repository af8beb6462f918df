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

package config

import (
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/storage/cassandra"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/storage/mysql"
)

const (
	// MySQLBackend writes the audit records to the MySQL store.
	MySQLBackend = "mysql"
	// CassandraBackend writes the audit records to Cassandra.
	CassandraBackend = "cassandra"
)

// Config contains the config of each supported backend. MySQL always holds
// the telemetry; the audit records go to AuditBackend.
type Config struct {
	MySQL        mysql.Config     `yaml:"mysql"`
	Cassandra    cassandra.Config `yaml:"cassandra"`
	AuditBackend string           `yaml:"audit_backend"`
}

// UseCassandra returns true if the audit records go to Cassandra.
func (c *Config) UseCassandra() bool {
	return c.AuditBackend == CassandraBackend
}
