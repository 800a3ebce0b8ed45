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

package row

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestColumnNames(t *testing.T) {
	names := ColumnNames()
	if len(names) != 15 {
		t.Fatalf("expected 15 columns, got %d", len(names))
	}
	want := "server_id,location_id,timestamp,cpu_usage,memory_usage,disk_usage_percent," +
		"disk_read_ops_per_sec,disk_write_ops_per_sec,disk_read_throughput,disk_write_throughput," +
		"network_in_bytes,network_out_bytes,latency_in_ms,uptime_in_mins,error_count"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("ColumnNames() = %s", got)
	}
	if s := Column(42).String(); s != "Column(42)" {
		t.Errorf("out of range column: %s", s)
	}
}

func TestRow_UnsetIsNotZero(t *testing.T) {
	r := New(1000)
	if _, ok := r.Get(ErrorCount); ok {
		t.Errorf("new row must have no values")
	}
	r.Set(ErrorCount, 0)
	if v, ok := r.Get(ErrorCount); !ok || v != 0 {
		t.Errorf("explicit 0 must be set: %v %v", v, ok)
	}
}

func TestRow_SetMax(t *testing.T) {
	r := New(1000)
	r.SetMax(DiskReadOpsPerSec, 5)
	r.SetMax(DiskReadOpsPerSec, 3)
	if v, _ := r.Get(DiskReadOpsPerSec); v != 5 {
		t.Errorf("max merge kept %v, want 5", v)
	}
	r.SetMax(DiskReadOpsPerSec, 7)
	if v, _ := r.Get(DiskReadOpsPerSec); v != 7 {
		t.Errorf("max merge kept %v, want 7", v)
	}
	r.SetMax(DiskWriteOpsPerSec, 0)
	if v, ok := r.Get(DiskWriteOpsPerSec); !ok || v != 0 {
		t.Errorf("max merge with 0 on unset column must set 0: %v %v", v, ok)
	}
}

func TestRow_SetDefault(t *testing.T) {
	r := New(1000)
	r.SetDefault(NetworkInBytes, 0)
	r.Set(NetworkInBytes, 12)
	r.SetDefault(NetworkInBytes, 0)
	if v, _ := r.Get(NetworkInBytes); v != 12 {
		t.Errorf("SetDefault overwrote a value: %v", v)
	}
}

func TestRow_Identity(t *testing.T) {
	r := New(1000)
	r.SetIdentity("", "")
	r.SetIdentity("srv", "")
	r.SetIdentity("other", "loc")
	if r.ServerID != "srv" || r.LocationID != "loc" {
		t.Errorf("identity: %q %q", r.ServerID, r.LocationID)
	}
}

func TestRow_Complete(t *testing.T) {
	r := New(1000)
	r.Set(CpuUsage, 42)

	_, err := r.Complete()
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
	for _, name := range []string{"server_id", "location_id", "memory_usage"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not mention %s", err, name)
		}
	}
	if strings.Contains(err.Error(), "cpu_usage") {
		t.Errorf("error %q mentions a present column", err)
	}

	r.SetIdentity("srv", "loc")
	r.Set(MemoryUsage, 55)
	r.Set(LatencyInMs, 1.5)
	c, err := r.Complete()
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if c.Get(CpuUsage) != 42 || c.Get(MemoryUsage) != 55 || c.Get(LatencyInMs) != 1.5 {
		t.Errorf("values not carried over: %v", c)
	}
	if c.Get(ErrorCount) != 0 || c.Get(UptimeInMins) != 0 {
		t.Errorf("unset columns must be 0: %v", c)
	}
	// the partial row keeps its unset markers
	if _, ok := r.Get(ErrorCount); ok {
		t.Errorf("Complete must not modify the partial row")
	}
}

func TestComplete_Time(t *testing.T) {
	c := &Complete{Timestamp: 1700000000.5}
	want := time.Unix(1700000000, 500000000).UTC()
	if got := c.Time(); !got.Equal(want) {
		t.Errorf("Time() = %v, want %v", got, want)
	}
}
