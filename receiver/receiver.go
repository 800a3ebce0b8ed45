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

// Package receiver turns a stream of metric samples into complete
// server_metrics rows. Samples are merged into a buffer of partial
// rows keyed by timestamp, counter families are converted to rates,
// and rows that can no longer change are handed to the database.
//
// A Receiver is owned by a single goroutine (the snapshot watcher)
// and does no locking.
package receiver

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/telesink/telesink/counter"
	"github.com/telesink/telesink/misc"
	"github.com/telesink/telesink/row"
	"github.com/telesink/telesink/sample"
	"github.com/telesink/telesink/serde"
)

// Config selects which samples contribute to a row.
type Config struct {
	// diskio device names whose counters are turned into disk rates
	DiskDevices []string
	// net interface whose counters are turned into network rates
	NetInterface string
	// Used when the samples for a timestamp carry no server_id /
	// location_id tags.
	ServerID, LocationID string
	// Rows whose insert has failed are discarded once they are this
	// much older than the latest timestamp. 0 or negative disables.
	MaxRowAge time.Duration
	// Capacity of the written and rejected timestamp sets.
	SettledSetSize int
}

var (
	DftDiskDevices    = []string{"sda", "sda1"}
	DftNetInterface   = "ens3"
	DftMaxRowAge      = time.Hour
	DftSettledSetSize = 1 << 20
)

type Receiver struct {
	cfg      Config
	db       serde.RowInserter
	parser   sample.Parser
	counters *counter.Tracker
	devices  map[string]bool

	buf       map[float64]*row.Row
	failed    map[float64]bool // insert attempted and failed
	latest    float64
	hasLatest bool
	written   *tsSet
	rejected  *tsSet

	lastScan ScanStats
	parseLog *misc.ThrottledLogger
	dropLog  *misc.ThrottledLogger
}

// ScanStats describes one pass over a snapshot.
type ScanStats struct {
	Lines, ParseErrors int
}

func New(db serde.RowInserter, cfg Config) (*Receiver, error) {
	if db == nil {
		return nil, errors.New("receiver: nil RowInserter")
	}
	if cfg.DiskDevices == nil {
		cfg.DiskDevices = DftDiskDevices
	}
	if cfg.NetInterface == "" {
		cfg.NetInterface = DftNetInterface
	}
	if cfg.SettledSetSize <= 0 {
		cfg.SettledSetSize = DftSettledSetSize
	}
	written, err := newTsSet(cfg.SettledSetSize)
	if err != nil {
		return nil, fmt.Errorf("written set: %w", err)
	}
	rejected, err := newTsSet(cfg.SettledSetSize)
	if err != nil {
		return nil, fmt.Errorf("rejected set: %w", err)
	}
	r := &Receiver{
		cfg:      cfg,
		db:       db,
		counters: counter.NewTracker(),
		devices:  make(map[string]bool, len(cfg.DiskDevices)),
		buf:      make(map[float64]*row.Row),
		failed:   make(map[float64]bool),
		written:  written,
		rejected: rejected,
		parseLog: misc.NewThrottledLogger(time.Second, 10),
		dropLog:  misc.NewThrottledLogger(time.Second, 10),
	}
	for _, d := range cfg.DiskDevices {
		r.devices[d] = true
	}
	return r, nil
}

// Scan feeds every non-blank line of a snapshot through Ingest.
func (r *Receiver) Scan(data []byte) {
	var st ScanStats
	for len(data) > 0 {
		var line []byte
		if n := bytes.IndexByte(data, '\n'); n >= 0 {
			line, data = data[:n], data[n+1:]
		} else {
			line, data = data, nil
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		st.Lines++
		if err := r.Ingest(string(line)); err != nil {
			st.ParseErrors++
		}
	}
	linesTotal.Add(st.Lines)
	scansTotal.Inc()
	bufferedRows.Set(float64(len(r.buf)))
	r.lastScan = st
}

// LastScan returns the stats of the most recent Scan.
func (r *Receiver) LastScan() ScanStats { return r.lastScan }

// Ingest parses one line and merges it into the row buffer. A line
// that cannot be parsed is logged and its error returned, it has no
// other effect.
func (r *Receiver) Ingest(line string) error {
	s, err := r.parser.Parse(line)
	if err != nil {
		if errors.Is(err, sample.ErrBlankLine) {
			return nil
		}
		parseErrorsTotal.Inc()
		r.parseLog.Printf("Parse error: %v, line: %q", err, truncate(line, 256))
		return err
	}
	if !r.hasLatest || s.Timestamp > r.latest {
		r.latest, r.hasLatest = s.Timestamp, true
	}
	r.assemble(s)
	return nil
}

// Latest returns the largest timestamp seen so far.
func (r *Receiver) Latest() (float64, bool) { return r.latest, r.hasLatest }

// Buffered returns the number of partial rows in the buffer.
func (r *Receiver) Buffered() int { return len(r.buf) }

// Row returns the buffered row for ts, if any.
func (r *Receiver) Row(ts float64) *row.Row { return r.buf[ts] }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
