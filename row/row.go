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

// Package row is the in-memory shape of a server_metrics record: a
// partial row that is filled in by samples as they arrive, and the
// complete row that is handed to storage.
package row

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Column identifies a measurement column. The order is the column
// order of the destination table after server_id, location_id and
// timestamp.
type Column int

const (
	CpuUsage Column = iota
	MemoryUsage
	DiskUsagePercent
	DiskReadOpsPerSec
	DiskWriteOpsPerSec
	DiskReadThroughput
	DiskWriteThroughput
	NetworkInBytes
	NetworkOutBytes
	LatencyInMs
	UptimeInMins
	ErrorCount
	NumColumns int = iota
)

var columnNames = [NumColumns]string{
	"cpu_usage",
	"memory_usage",
	"disk_usage_percent",
	"disk_read_ops_per_sec",
	"disk_write_ops_per_sec",
	"disk_read_throughput",
	"disk_write_throughput",
	"network_in_bytes",
	"network_out_bytes",
	"latency_in_ms",
	"uptime_in_mins",
	"error_count",
}

func (c Column) String() string {
	if c < 0 || int(c) >= NumColumns {
		return fmt.Sprintf("Column(%d)", int(c))
	}
	return columnNames[c]
}

// ColumnNames returns all destination column names in table order.
func ColumnNames() []string {
	names := make([]string, 0, NumColumns+3)
	names = append(names, "server_id", "location_id", "timestamp")
	return append(names, columnNames[:]...)
}

// Measurement columns that must have been reported by the agent for
// a row to be stored. server_id, location_id and timestamp are always
// required as well.
var mandatory = []Column{CpuUsage, MemoryUsage}

var ErrIncomplete = errors.New("incomplete row")

// Row is a partially assembled record. The zero value of a measurement
// is "not reported", which is distinct from a reported 0.
type Row struct {
	ServerID   string
	LocationID string
	Timestamp  float64 // seconds

	values [NumColumns]float64
	set    [NumColumns]bool
}

func New(ts float64) *Row {
	return &Row{Timestamp: ts}
}

// Set stores v in c.
func (r *Row) Set(c Column, v float64) {
	r.values[c] = v
	r.set[c] = true
}

// SetMax stores the larger of v and the current value of c. An unset
// column counts as 0.
func (r *Row) SetMax(c Column, v float64) {
	if r.set[c] && r.values[c] >= v {
		return
	}
	r.Set(c, math.Max(v, 0))
}

// SetDefault stores v in c only if c is not set yet.
func (r *Row) SetDefault(c Column, v float64) {
	if !r.set[c] {
		r.Set(c, v)
	}
}

// Get returns the value of c and whether it has been set.
func (r *Row) Get(c Column) (float64, bool) {
	return r.values[c], r.set[c]
}

// SetIdentity fills in server and location ids that are still empty.
func (r *Row) SetIdentity(serverID, locationID string) {
	if r.ServerID == "" {
		r.ServerID = serverID
	}
	if r.LocationID == "" {
		r.LocationID = locationID
	}
}

// Missing lists the names of required columns that are not set.
func (r *Row) Missing() []string {
	var missing []string
	if r.ServerID == "" {
		missing = append(missing, "server_id")
	}
	if r.LocationID == "" {
		missing = append(missing, "location_id")
	}
	for _, c := range mandatory {
		if !r.set[c] {
			missing = append(missing, c.String())
		}
	}
	return missing
}

// Complete checks that all required columns are present and returns a
// complete row with every other unset measurement as 0. r is not
// modified.
func (r *Row) Complete() (*Complete, error) {
	if missing := r.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	return &Complete{
		ServerID:   r.ServerID,
		LocationID: r.LocationID,
		Timestamp:  r.Timestamp,
		Values:     r.values, // unset entries are already 0
	}, nil
}

func (r *Row) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "server_id=%q location_id=%q timestamp=%v", r.ServerID, r.LocationID, r.Timestamp)
	for i := 0; i < NumColumns; i++ {
		if r.set[i] {
			fmt.Fprintf(&b, " %s=%v", Column(i), r.values[i])
		} else {
			fmt.Fprintf(&b, " %s=<unset>", Column(i))
		}
	}
	return b.String()
}

// Complete is a row ready to be stored.
type Complete struct {
	ServerID   string
	LocationID string
	Timestamp  float64
	Values     [NumColumns]float64
}

// Time converts the row timestamp to a time.Time.
func (c *Complete) Time() time.Time {
	sec, frac := math.Modf(c.Timestamp)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

func (c *Complete) Get(col Column) float64 { return c.Values[col] }

func (c *Complete) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "server_id=%q location_id=%q timestamp=%v", c.ServerID, c.LocationID, c.Timestamp)
	for i, v := range c.Values {
		fmt.Fprintf(&b, " %s=%v", Column(i), v)
	}
	return b.String()
}
