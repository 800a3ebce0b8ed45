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
	"os"
	"path/filepath"
	"testing"
	"time"
)

func Test_cycleLogFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "telesink.log")

	save_timeNow := timeNow
	timeNow = func() time.Time { return time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC) }
	defer func() { timeNow = save_timeNow }()
	defer closeLog()

	if err := cycleLogFile(logPath); err != nil {
		t.Fatalf("cycleLogFile: %v", err)
	}
	if err := cycleLogFile(logPath); err != nil {
		t.Fatalf("cycleLogFile: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "telesink.log-20200102_030405")); err != nil {
		t.Errorf("archived log missing: %v", err)
	}
	if _, err := os.Stat(logPath); err != nil {
		t.Errorf("new log missing: %v", err)
	}

	if err := cycleLogFile(filepath.Join(dir, "nope", "x.log")); err == nil {
		t.Errorf("opening a log in a missing directory should fail")
	}
}
