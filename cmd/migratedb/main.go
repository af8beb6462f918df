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

package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/common/config"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/common/logging"
	storage_config "github.com/leonardoaniello/storm-adaptive-schedulers/pkg/storage/config"
)

// Config is the part of the scheduler config the tool reads.
type Config struct {
	Storage storage_config.Config `yaml:"storage"`
}

var (
	version string
	app     = kingpin.New("migratedb", "Tool to manage the DB schema of the scheduler")

	debug = app.Flag(
		"debug", "enable debug mode (print full json responses)").
		Short('d').
		Default("false").
		Envar("ENABLE_DEBUG_LOGGING").
		Bool()

	configFiles = app.Flag(
		"config",
		"YAML config files (can be provided multiple times to merge configs)").
		Short('c').
		Required().
		ExistingFiles()

	mysqlHost = app.Flag(
		"mysql-host", "MySQL host (storage.mysql.host override)").
		Envar("MYSQL_HOST").
		String()

	mysqlPort = app.Flag(
		"mysql-port", "MySQL port (storage.mysql.port override)").
		Default("0").
		Envar("MYSQL_PORT").
		Int()

	// Top level migrate DB commands
	upCmd      = app.Command("up", "Apply all DB migrations.")
	downCmd    = app.Command("down", "Revert all DB migrations, dropping the telemetry.")
	versionCmd = app.Command("version", "Get the current schema version.")
)

func main() {
	app.Version(version)
	app.HelpFlag.Short('h')
	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	log.SetFormatter(
		&logging.LogFieldFormatter{
			Formatter: &log.JSONFormatter{},
			Fields: log.Fields{
				"app": app.Name,
			},
		},
	)

	// Use stdout here, since the output of migratedb command might get
	// parsed, and we don't want it to be mangled with output of stderr.
	log.SetOutput(os.Stdout)

	initialLevel := log.InfoLevel
	if *debug {
		initialLevel = log.DebugLevel
	}
	log.SetLevel(initialLevel)
	log.WithField("files", *configFiles).Debug("Loading migratedb config")

	var cfg Config
	if err := config.Parse(&cfg, *configFiles...); err != nil {
		log.WithError(err).Fatal("Cannot parse yaml config")
	}

	mysql := &cfg.Storage.MySQL
	if *mysqlHost != "" {
		mysql.Host = *mysqlHost
	}
	if *mysqlPort != 0 {
		mysql.Port = *mysqlPort
	}
	log.WithFields(log.Fields{
		"host":       mysql.Host,
		"port":       mysql.Port,
		"database":   mysql.Database,
		"migrations": mysql.Migrations,
	}).Debug("Loaded migratedb config")

	switch cmd {
	case upCmd.FullCommand():
		db, err := mysql.Connect()
		if err != nil {
			log.WithError(err).Fatal("Could not connect to database")
		}
		defer db.Close()
		if errs := mysql.Migrate(db); errs != nil {
			log.WithField("errors", errs).Fatal("Could not migrate database")
		}
	case downCmd.FullCommand():
		if errs := mysql.Rollback(); errs != nil {
			log.WithField("errors", errs).Fatal("Could not roll back database")
		}
	case versionCmd.FullCommand():
		version, err := mysql.SchemaVersion()
		if err != nil {
			log.WithError(err).Fatal("Could not get schema version")
		}
		log.WithField("version", version).Info("Database schema version")
	}
}
