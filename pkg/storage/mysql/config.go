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
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // Pull in MySQL driver for sqlx
	"github.com/jmoiron/sqlx"
	_ "github.com/mattes/migrate/driver/mysql" // Pull in MySQL driver for migrate
	"github.com/mattes/migrate/migrate"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	_defaultMaxRetries    = 3
	_defaultRetryInterval = 100 * time.Millisecond
)

// Config is the config of the MySQL store.
type Config struct {
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Database   string `yaml:"database"`
	Migrations string `yaml:"migrations"`

	// AutoMigrate brings the schema up to date on start.
	AutoMigrate bool `yaml:"auto_migrate"`

	// MaxRetries and RetryInterval drive the retries of reads.
	MaxRetries    int           `yaml:"max_retries"`
	RetryInterval time.Duration `yaml:"retry_interval"`
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"%s:%s@(%s:%d)/%s?parseTime=true",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// MigrateString is the connection string used by migrate.
func (c *Config) MigrateString() string {
	return fmt.Sprintf("mysql://%s", c.String())
}

func (c *Config) retries() (int, time.Duration) {
	retries, interval := c.MaxRetries, c.RetryInterval
	if retries <= 0 {
		retries = _defaultMaxRetries
	}
	if interval <= 0 {
		interval = _defaultRetryInterval
	}
	return retries, interval
}

// Connect opens the database.
func (c *Config) Connect() (*sqlx.DB, error) {
	log.WithFields(log.Fields{
		"host":     c.Host,
		"port":     c.Port,
		"database": c.Database,
	}).Info("Connecting to MySQL")
	db, err := sqlx.Connect("mysql", c.String())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s:%d/%s",
			c.Host, c.Port, c.Database)
	}
	return db, nil
}

// IsReadOnly returns true if the database is a read-only replica.
func IsReadOnly(db *sqlx.DB) bool {
	var readOnly bool
	if err := db.Get(&readOnly, "SELECT @@global.read_only"); err != nil {
		return true
	}
	return readOnly
}

// Migrate brings the schema up to date unless the database is read-only.
func (c *Config) Migrate(db *sqlx.DB) []error {
	if IsReadOnly(db) {
		log.WithField("database", c.Database).
			Info("Skipping migration since the database is read-only")
		return nil
	}
	errs, ok := migrate.UpSync(c.MigrateString(), c.Migrations)
	if !ok {
		return errs
	}
	return nil
}

// Rollback reverts every migration.
func (c *Config) Rollback() []error {
	errs, ok := migrate.DownSync(c.MigrateString(), c.Migrations)
	if !ok {
		return errs
	}
	return nil
}

// SchemaVersion returns the version of the last applied migration.
func (c *Config) SchemaVersion() (uint64, error) {
	return migrate.Version(c.MigrateString(), c.Migrations)
}
