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
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

func init() {
	log.SetPrefix(fmt.Sprintf("[%d] ", os.Getpid()))
}

var (
	logMu      sync.Mutex
	logFile    *os.File
	cycleLogCh = make(chan struct{}, 1)
	quit       = make(chan struct{})
)

var timeNow = func() time.Time {
	return time.Now()
}

var osRename = func(a, b string) error {
	return os.Rename(a, b)
}

var renameLogFile = func(logPath string) {
	logDir, logName := filepath.Split(logPath)
	filename := timeNow().Format(logName + "-20060102_150405")
	fullpath := filepath.Join(logDir, filename)
	log.Printf("Starting new log file, current log archived as: '%s'", fullpath)
	if err := osRename(logPath, fullpath); err != nil {
		log.Printf("Unable to archive log file: %v", err)
	}
}

// cycleLogFile archives the current log file, if any, and directs
// the log to a fresh one at logPath.
var cycleLogFile = func(logPath string) error {
	logMu.Lock()
	defer logMu.Unlock()

	if logFile != nil {
		renameLogFile(logPath)
	}

	file, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND|os.O_SYNC, 0666) // open with O_SYNC
	if err != nil {
		return fmt.Errorf("Unable to open log file '%s': %v", logPath, err)
	}

	log.SetOutput(file)
	if logFile != nil {
		logFile.Close()
	}
	logFile = file
	return nil
}

var logFileCycler = func(logPath string, logCycle time.Duration) error {

	if err := cycleLogFile(logPath); err != nil { // Initial cycle
		return err
	}

	go func() {
		t := time.NewTicker(logCycle)
		defer t.Stop()
		for {
			select {
			case <-quit:
				return
			case <-t.C:
			case <-cycleLogCh:
			}
			if err := cycleLogFile(logPath); err != nil {
				log.Printf("%v, still logging to the old file.", err)
			}
		}
	}()
	return nil
}

// requestLogCycle asks the cycler for a new log file now. It does
// nothing if no log file is in use.
func requestLogCycle() {
	logMu.Lock()
	active := logFile != nil
	logMu.Unlock()
	if !active {
		return
	}
	select {
	case cycleLogCh <- struct{}{}:
	default: // one is already pending
	}
}

func closeLog() {
	logMu.Lock()
	defer logMu.Unlock()
	log.SetOutput(os.Stderr)
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}
