//
// Copyright 2016 Gregory Trubetskoy. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package daemon

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/telesink/telesink/misc"
	"github.com/telesink/telesink/receiver"
	"github.com/telesink/telesink/serde"
	"github.com/telesink/telesink/watcher"
)

type Config struct { // Needs to be exported for TOML to work
	PidPath              string   `toml:"pid-file"`
	LogPath              string   `toml:"log-file"`
	LogCycle             duration `toml:"log-cycle-interval"`
	DbConnectString      string   `toml:"db-connect-string"`
	Table                string   `toml:"table"`
	MetricsFile          string   `toml:"metrics-file"`
	PollInterval         duration `toml:"poll-interval"`
	IdleInterval         duration `toml:"idle-interval"`
	RetryInterval        duration `toml:"retry-interval"`
	MaxRowAge            duration `toml:"max-row-age"`
	WrittenSetSize       int      `toml:"written-set-size"`
	DiskDevices          []string `toml:"disk-devices"`
	NetInterface         string   `toml:"net-interface"`
	ServerID             string   `toml:"server-id"`
	LocationID           string   `toml:"location-id"`
	HttpListenSpec       string   `toml:"http-listen-spec"`
	RuntimeStatsInterval duration `toml:"runtime-stats-interval"`
}

const (
	dftLogCycle        = 24 * time.Hour
	dftDbConnectString = "host=localhost port=5432 dbname=postgres user=postgres sslmode=disable"
	dftMetricsFile     = "/tmp/telegraf_metrics.json"
)

type duration struct{ time.Duration }

func (d *duration) UnmarshalText(text []byte) (err error) {
	d.Duration, err = misc.BetterParseDuration(string(text))
	return err
}

var readConfig = func(cfgPath string) (*Config, error) {
	cfg := &Config{}
	if cfgPath == "" {
		log.Printf("No config file given, using defaults.")
		return cfg, nil
	}
	if _, err := toml.DecodeFile(cfgPath, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var getenv = func(key string) string {
	return os.Getenv(key)
}

func absPath(what, path, wd string) (string, error) {
	if !filepath.IsAbs(path) {
		if wd == "" {
			return "", fmt.Errorf("%s must be absolute path if working directory cannot be determined", what)
		}
		path = filepath.Join(wd, path)
	}
	dir, _ := filepath.Split(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.New(fmt.Sprintf("Unable to create directory: '%s' (%v).", dir, err))
	}
	return path, nil
}

func (c *Config) processConfigPidFile(wd string) (err error) {
	if c.PidPath == "" {
		log.Printf("pid-file setting empty, not writing a pid file.")
		return nil
	}
	c.PidPath, err = absPath("pid-file", c.PidPath, wd)
	return err
}

func (c *Config) processConfigLogFile(wd string) (err error) {
	if v := getenv("TELESINK_LOG"); v != "" {
		c.LogPath = v
	}
	if c.LogPath == "" {
		log.Printf("log-file setting empty, logging to stderr.")
		return nil
	}
	if c.LogPath, err = absPath("log-file", c.LogPath, wd); err != nil {
		return err
	}
	log.Printf("Logs will be written to '%s'.", c.LogPath)
	return nil
}

func (c *Config) processConfigLogCycleInterval() error {
	if c.LogPath == "" {
		return nil
	}
	if c.LogCycle.Duration < 0 {
		return fmt.Errorf("log-cycle-interval must not be negative (%v)", c.LogCycle.Duration)
	}
	if c.LogCycle.Duration == 0 {
		c.LogCycle.Duration = dftLogCycle
	}
	log.Printf("Will cycle logs every %v (log-cycle-interval).", c.LogCycle.Duration)

	logDir, _ := filepath.Split(c.LogPath)
	log.Printf("All further status messages will be written to log file(s) in '%s'.", logDir)
	if err := logFileCycler(c.LogPath, c.LogCycle.Duration); err != nil {
		return err
	}
	log.Print("Server starting.")
	return nil
}

func (c *Config) processDbConnectString() (err error) {
	if v := getenv("TELESINK_DB_CONNECT"); v != "" {
		c.DbConnectString = v
	}
	if c.DbConnectString == "" {
		log.Printf("db-connect-string empty, defaulting to %q.", dftDbConnectString)
		c.DbConnectString = dftDbConnectString
	}
	if pass := getenv("TELE_POSTGRES_PASS"); pass != "" {
		if c.DbConnectString, err = serde.ConnectString(c.DbConnectString, pass); err != nil {
			return fmt.Errorf("db-connect-string: %v", err)
		}
	}
	return nil
}

func (c *Config) processTable() error {
	if c.Table == "" {
		c.Table = serde.DefaultTable
	}
	log.Printf("Rows will be inserted into %q (table).", c.Table)
	return nil
}

func (c *Config) processMetricsFile() error {
	if v := getenv("TELESINK_METRICS_FILE"); v != "" {
		c.MetricsFile = v
	}
	if c.MetricsFile == "" {
		c.MetricsFile = dftMetricsFile
	}
	log.Printf("Reading samples from %s (metrics-file).", c.MetricsFile)
	return nil
}

func (c *Config) processIntervals() error {
	for _, iv := range []struct {
		name string
		d    *duration
		dft  time.Duration
	}{
		{"poll-interval", &c.PollInterval, watcher.DftPollInterval},
		{"idle-interval", &c.IdleInterval, watcher.DftIdleInterval},
		{"retry-interval", &c.RetryInterval, watcher.DftRetryInterval},
	} {
		if iv.d.Duration < 0 {
			return fmt.Errorf("%s must not be negative (%v)", iv.name, iv.d.Duration)
		}
		if iv.d.Duration == 0 {
			iv.d.Duration = iv.dft
		}
	}
	log.Printf("Polling every %v, idle %v, retrying failed inserts every %v.",
		c.PollInterval.Duration, c.IdleInterval.Duration, c.RetryInterval.Duration)
	return nil
}

func (c *Config) processMaxRowAge() error {
	switch {
	case c.MaxRowAge.Duration == 0:
		c.MaxRowAge.Duration = receiver.DftMaxRowAge
	case c.MaxRowAge.Duration < 0:
		log.Printf("max-row-age is negative, unstored rows are kept indefinitely.")
		return nil
	}
	log.Printf("Rows not stored within %v are discarded (max-row-age).", c.MaxRowAge.Duration)
	return nil
}

func (c *Config) processWrittenSetSize() error {
	if c.WrittenSetSize < 0 {
		return fmt.Errorf("written-set-size must not be negative (%d)", c.WrittenSetSize)
	}
	if c.WrittenSetSize == 0 {
		c.WrittenSetSize = receiver.DftSettledSetSize
	}
	return nil
}

func (c *Config) processDevices() error {
	if c.DiskDevices == nil {
		c.DiskDevices = receiver.DftDiskDevices
	}
	if c.NetInterface == "" {
		c.NetInterface = receiver.DftNetInterface
	}
	log.Printf("Disk devices: %s (disk-devices), network interface: %s (net-interface).",
		strings.Join(c.DiskDevices, ","), c.NetInterface)
	return nil
}

func (c *Config) processIdentity() (err error) {
	if v := getenv("TELESINK_SERVER_ID"); v != "" {
		c.ServerID = v
	}
	if v := getenv("TELESINK_LOCATION_ID"); v != "" {
		c.LocationID = v
	}
	if c.ServerID, err = normalizeUUID("server-id", c.ServerID); err != nil {
		return err
	}
	if c.LocationID, err = normalizeUUID("location-id", c.LocationID); err != nil {
		return err
	}
	if c.ServerID == "" || c.LocationID == "" {
		log.Printf("server-id or location-id not set, rows must carry server_id and location_id tags.")
	}
	return nil
}

func normalizeUUID(what, s string) (string, error) {
	if s == "" {
		return "", nil
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%s %q: %v", what, s, err)
	}
	return u.String(), nil
}

func (c *Config) processHttpListenSpec() error {
	if c.HttpListenSpec == "" {
		log.Printf("http-listen-spec empty, status server disabled.")
	}
	return nil
}

func (c *Config) processRuntimeStatsInterval() error {
	if c.RuntimeStatsInterval.Duration > 0 {
		log.Printf("Runtime stats will be logged every %v (runtime-stats-interval).", c.RuntimeStatsInterval.Duration)
	}
	return nil
}

type configer interface {
	processConfigPidFile(string) error
	processConfigLogFile(string) error
	processConfigLogCycleInterval() error
	processDbConnectString() error
	processTable() error
	processMetricsFile() error
	processIntervals() error
	processMaxRowAge() error
	processWrittenSetSize() error
	processDevices() error
	processIdentity() error
	processHttpListenSpec() error
	processRuntimeStatsInterval() error
}

var processConfig = func(c configer, wd string) error {

	if err := c.processConfigPidFile(wd); err != nil {
		return err
	}
	if err := c.processConfigLogFile(wd); err != nil {
		return err
	}
	if err := c.processConfigLogCycleInterval(); err != nil {
		return err
	}
	if err := c.processDbConnectString(); err != nil {
		return err
	}
	if err := c.processTable(); err != nil {
		return err
	}
	if err := c.processMetricsFile(); err != nil {
		return err
	}
	if err := c.processIntervals(); err != nil {
		return err
	}
	if err := c.processMaxRowAge(); err != nil {
		return err
	}
	if err := c.processWrittenSetSize(); err != nil {
		return err
	}
	if err := c.processDevices(); err != nil {
		return err
	}
	if err := c.processIdentity(); err != nil {
		return err
	}
	if err := c.processHttpListenSpec(); err != nil {
		return err
	}
	if err := c.processRuntimeStatsInterval(); err != nil {
		return err
	}
	return nil
}
