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
	"time"

	"github.com/gocql/gocql"
	log "github.com/sirupsen/logrus"
)

const (
	defaultConnectionsPerHost = 3
	defaultTimeout            = 20000 * time.Millisecond
	defaultProtoVersion       = 3
	defaultConsistency        = "LOCAL_QUORUM"
	defaultSocketKeepAlive    = 30 * time.Second
	defaultPort               = 9042
	defaultRetryCount         = 3
)

// Config is the config of the Cassandra audit sink.
type Config struct {
	ContactPoints      []string      `yaml:"hosts"`
	Port               int           `yaml:"port"`
	Keyspace           string        `yaml:"keyspace"`
	Username           string        `yaml:"username"`
	Password           string        `yaml:"password"`
	Consistency        string        `yaml:"consistency"`
	Timeout            time.Duration `yaml:"timeout"`
	ConnectionsPerHost int           `yaml:"connections_per_host"`
	ProtoVersion       int           `yaml:"proto_version"`
	SocketKeepalive    time.Duration `yaml:"socket_keepalive"`
	DataCenter         string        `yaml:"data_center"`
	RetryCount         int           `yaml:"retry_count"`
	// CreateTable creates the assignment table on start if missing.
	CreateTable bool `yaml:"create_table"`
}

func newCluster(config *Config) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(config.ContactPoints...)
	cluster.Keyspace = config.Keyspace

	consistency := config.Consistency
	if consistency == "" {
		consistency = defaultConsistency
	}
	cluster.Consistency = gocql.ParseConsistency(consistency)

	cluster.Timeout = config.Timeout
	if cluster.Timeout == 0 {
		cluster.Timeout = defaultTimeout
	}

	cluster.NumConns = config.ConnectionsPerHost
	if cluster.NumConns == 0 {
		cluster.NumConns = defaultConnectionsPerHost
	}

	cluster.ProtoVersion = config.ProtoVersion
	if cluster.ProtoVersion == 0 {
		cluster.ProtoVersion = defaultProtoVersion
	} else if cluster.ProtoVersion != 3 {
		log.Warn("protocol version 2/4 is not compatible between " +
			"2.2.x and 3.y. use 3 instead.")
	}

	cluster.SocketKeepalive = config.SocketKeepalive
	if cluster.SocketKeepalive == 0 {
		cluster.SocketKeepalive = defaultSocketKeepAlive
	}

	cluster.Port = config.Port
	if cluster.Port == 0 {
		cluster.Port = defaultPort
	}

	if dc := config.DataCenter; dc != "" {
		cluster.HostFilter = gocql.DataCentreHostFilter(dc)
		cluster.PoolConfig.HostSelectionPolicy =
			gocql.TokenAwareHostPolicy(gocql.DCAwareRoundRobinPolicy(dc))
	} else {
		cluster.PoolConfig.HostSelectionPolicy =
			gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())
	}

	retries := config.RetryCount
	if retries == 0 {
		retries = defaultRetryCount
	}
	cluster.RetryPolicy = &gocql.SimpleRetryPolicy{NumRetries: retries}

	if len(config.Username) != 0 {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: config.Username,
			Password: config.Password,
		}
	}
	return cluster
}
