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

// Package daemon wires the config, the database, the receiver and
// the snapshot watcher together and runs them until signalled.
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/telesink/telesink/receiver"
	"github.com/telesink/telesink/serde"
	"github.com/telesink/telesink/watcher"
)

var getCwd = func() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Printf("Unable to determine working directory: %v", err)
		return ""
	}
	return wd
}

var savePid = func(pidPath string) error {
	f, err := os.Create(pidPath)
	if err != nil {
		return fmt.Errorf("Unable to create pid file '%s': (%v)", pidPath, err)
	}
	defer f.Close()
	fmt.Fprintf(f, "%d\n", os.Getpid())
	log.Printf("Pid saved in %s.", pidPath)
	return nil
}

var initDb = func(connectString, table string) (serde.DbSerDe, error) {
	return serde.InitDb(connectString, table)
}

var createReceiver = func(cfg *Config, db serde.RowInserter) (*receiver.Receiver, error) {
	return receiver.New(db, receiver.Config{
		DiskDevices:    cfg.DiskDevices,
		NetInterface:   cfg.NetInterface,
		ServerID:       cfg.ServerID,
		LocationID:     cfg.LocationID,
		MaxRowAge:      cfg.MaxRowAge.Duration,
		SettledSetSize: cfg.WrittenSetSize,
	})
}

var startWatcher = func(ctx context.Context, wg *sync.WaitGroup, cfg *Config, h watcher.Handler) {
	w := &watcher.Watcher{
		Path:          cfg.MetricsFile,
		PollInterval:  cfg.PollInterval.Duration,
		IdleInterval:  cfg.IdleInterval.Duration,
		RetryInterval: cfg.RetryInterval.Duration,
		Handler:       h,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Run(ctx)
	}()
}

// waitForSignal blocks until SIGINT or SIGTERM. SIGHUP starts a new
// log file.
var waitForSignal = func() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(ch)
	for s := range ch {
		log.Printf("Got signal: %v", s)
		if s == syscall.SIGHUP {
			requestLogCycle()
			continue
		}
		return
	}
}

// Init reads and validates the config, then runs until a signal
// arrives. The returned config is non-nil whenever Finish needs to
// be called, even if err is not nil.
func Init(cfgPath string) (*Config, error) { // not to be confused with init()

	log.Printf("Telesink starting.")

	cfg, err := readConfig(cfgPath)
	if err != nil {
		log.Printf("Error reading config file %s: %v", cfgPath, err)
		return nil, err
	}

	if err := processConfig(configer(cfg), getCwd()); err != nil { // This validates the config
		log.Printf("Error in config file %s: %v", cfgPath, err)
		return nil, err
	}

	if cfg.PidPath != "" {
		if err := savePid(cfg.PidPath); err != nil {
			log.Printf("%v", err)
			return nil, err
		}
	}

	db, err := initDb(cfg.DbConnectString, cfg.Table)
	if err != nil {
		log.Printf("Error connecting to the DB: %v", err)
		return cfg, err
	}
	defer db.Close()
	log.Printf("Initialized DB connection.")

	rcvr, err := createReceiver(cfg, db)
	if err != nil {
		log.Printf("Unable to create receiver: %v", err)
		return cfg, err
	}

	srv, err := startHttp(cfg.HttpListenSpec)
	if err != nil {
		log.Printf("%v", err)
		return cfg, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	startWatcher(ctx, &wg, cfg, rcvr)
	reportRuntime(ctx, &wg, cfg.RuntimeStatsInterval.Duration)

	waitForSignal()

	log.Printf("Shutting down...")
	stopHttp(srv)
	cancel()
	wg.Wait()
	if n := rcvr.Buffered(); n > 0 {
		log.Printf("%d unstored rows left in the buffer.", n)
	}
	return cfg, nil
}

var finishOnce sync.Once

func Finish(cfg *Config) {
	log.Println("main: All goroutines finished, exiting.")
	finishOnce.Do(func() { close(quit) })

	// Close log
	closeLog()

	if cfg.PidPath != "" {
		os.Remove(cfg.PidPath)
	}
}
