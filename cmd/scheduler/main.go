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
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	_ "go.uber.org/automaxprocs"
	"gopkg.in/alecthomas/kingpin.v2"

	common_config "github.com/leonardoaniello/storm-adaptive-schedulers/pkg/common/config"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/common/logging"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/common/metrics"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/monitor"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/config"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/decision"
	placement_metrics "github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/metrics"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/storage"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/storage/cassandra"
	storage_config "github.com/leonardoaniello/storm-adaptive-schedulers/pkg/storage/config"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/storage/mysql"
)

const (
	_appLogField        = "app"
	_rootMetricScope    = "storm_scheduler"
	_tallyFlushInterval = time.Second
)

var (
	version string
	app     = kingpin.New("storm-scheduler", "Traffic and load aware scheduler")

	debug = app.Flag(
		"debug", "enable debug mode (print full json responses)").
		Short('d').
		Default("false").
		Envar("ENABLE_DEBUG_LOGGING").
		Bool()

	enableSentry = app.Flag(
		"enable-sentry", "enable logging hook up to sentry").
		Default("false").
		Envar("ENABLE_SENTRY_LOGGING").
		Bool()

	cfgFiles = app.Flag(
		"config",
		"YAML config files (can be provided multiple times to merge configs)").
		Short('c').
		Required().
		ExistingFiles()

	httpPort = app.Flag(
		"http-port",
		"Scheduler HTTP port (scheduler.http_port override) "+
			"(set $HTTP_PORT to override)").
		Envar("HTTP_PORT").
		Int()

	mysqlHost = app.Flag(
		"mysql-host", "MySQL host (storage.mysql.host override)").
		Envar("MYSQL_HOST").
		String()

	mysqlPort = app.Flag(
		"mysql-port", "MySQL port (storage.mysql.port override)").
		Default("0").
		Envar("MYSQL_PORT").
		Int()

	autoMigrate = app.Flag(
		"auto-migrate", "Apply the MySQL migrations at start").
		Default("false").
		Envar("AUTO_MIGRATE").
		Bool()

	auditBackend = app.Flag(
		"audit-backend", "Where assignment changes are recorded").
		Default("").
		Envar("AUDIT_BACKEND").
		Enum("", storage_config.MySQLBackend, storage_config.CassandraBackend)

	cassandraHosts = app.Flag(
		"cassandra-hosts", "Cassandra hosts").
		Envar("CASSANDRA_HOSTS").
		Strings()

	enableMonitor = app.Flag(
		"enable-monitor", "Sample the telemetry of this node").
		Default("false").
		Envar("ENABLE_MONITOR").
		Bool()

	node = app.Flag(
		"node", "Name of this node (monitor.node override)").
		Envar("NODE_NAME").
		String()
)

func main() {
	app.Version(version)
	app.HelpFlag.Short('h')
	kingpin.MustParse(app.Parse(os.Args[1:]))

	log.SetFormatter(
		&logging.LogFieldFormatter{
			Formatter: &log.JSONFormatter{},
			Fields: log.Fields{
				_appLogField: app.Name,
			},
		},
	)

	initialLevel := log.InfoLevel
	if *debug {
		initialLevel = log.DebugLevel
	}
	log.SetLevel(initialLevel)

	log.WithField("files", *cfgFiles).Info("Loading scheduler config")
	var cfg config.Config
	if err := common_config.Parse(&cfg, *cfgFiles...); err != nil {
		log.WithError(err).Fatal("Cannot parse yaml config")
	}

	if *enableSentry {
		cfg.Sentry.Enabled = true
	}
	if err := logging.ConfigureSentry(&cfg.Sentry); err != nil {
		log.WithError(err).Error("Failed to configure sentry")
	}

	// now, override any CLI flags in the loaded config.Config
	if *httpPort != 0 {
		cfg.Scheduler.HTTPPort = *httpPort
	}
	if *mysqlHost != "" {
		cfg.Storage.MySQL.Host = *mysqlHost
	}
	if *mysqlPort != 0 {
		cfg.Storage.MySQL.Port = *mysqlPort
	}
	if *autoMigrate {
		cfg.Storage.MySQL.AutoMigrate = true
	}
	if *auditBackend != "" {
		cfg.Storage.AuditBackend = *auditBackend
	}
	if len(*cassandraHosts) > 0 {
		cfg.Storage.Cassandra.ContactPoints = *cassandraHosts
	}
	if *enableMonitor {
		cfg.Monitor.Enabled = true
	}
	if *node != "" {
		cfg.Monitor.Node = *node
	}
	cfg.Normalize()

	log.WithFields(log.Fields{
		"config":             cfg.Scheduler,
		"reschedule_timeout": cfg.Scheduler.RescheduleTimeout().String(),
	}).Info("Completed loading scheduler config")

	rootScope, scopeCloser, mux, err := metrics.InitMetricScope(
		&cfg.Metrics,
		_rootMetricScope,
		_tallyFlushInterval,
	)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize metrics")
	}
	defer scopeCloser.Close()

	mux.HandleFunc(logging.LevelOverwrite, logging.LevelOverwriteHandler(initialLevel))

	db, err := cfg.Storage.MySQL.Connect()
	if err != nil {
		log.WithError(err).Fatal("Could not connect to MySQL")
	}
	defer db.Close()
	if cfg.Storage.MySQL.AutoMigrate {
		if errs := cfg.Storage.MySQL.Migrate(db); len(errs) > 0 {
			log.WithField("errors", errs).Fatal("Could not migrate database")
		}
	}
	store := mysql.NewStore(db, cfg.Storage.MySQL, rootScope.SubScope("storage"))

	var audit storage.AuditStore = store
	if cfg.Storage.UseCassandra() {
		cassandraAudit, err := cassandra.NewAuditStore(
			&cfg.Storage.Cassandra,
			rootScope.SubScope("audit"))
		if err != nil {
			log.WithError(err).Fatal("Could not create cassandra audit store")
		}
		defer cassandraAudit.Close()
		audit = cassandraAudit
	}

	schedulerMetrics := placement_metrics.New(rootScope.SubScope("scheduler"))
	scheduler, err := decision.NewScheduler(cfg.Scheduler, store, audit, store, schedulerMetrics)
	if err != nil {
		log.WithError(err).Fatal("Could not create scheduler")
	}
	engine := placement.NewEngine(cfg.Scheduler, scheduler, schedulerMetrics)

	var telemetry *monitor.Monitor
	if cfg.Monitor.Enabled {
		telemetry, err = monitor.New(cfg.Monitor, store, rootScope.SubScope("monitor"))
		if err != nil {
			log.WithError(err).Fatal("Could not create monitor")
		}
		mux.HandleFunc(monitor.LoadPath, monitor.LoadHandler(telemetry))
		mux.HandleFunc(monitor.TrafficPath, monitor.TrafficHandler(telemetry))
		if err := telemetry.Start(context.Background()); err != nil {
			log.WithError(err).Fatal("Could not start monitor")
		}
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Scheduler.HTTPPort),
		Handler: mux,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	engine.Start()
	log.WithFields(log.Fields{
		"http_port": cfg.Scheduler.HTTPPort,
		"monitor":   cfg.Monitor.Enabled,
	}).Info("Started scheduler")

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	sig := <-signals
	log.WithField("signal", sig.String()).Info("Stopping scheduler")

	engine.Stop()
	if telemetry != nil {
		telemetry.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("HTTP server did not shut down cleanly")
	}
}
