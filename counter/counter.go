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

// Package counter turns cumulative counter readings (disk and network
// I/O totals) into per-second rates.
//
// A rate is only defined once two readings for the same identity are
// known and time moved forward between them. A counter going
// backwards (agent restart, wraparound) yields 0 rather than a
// negative rate, and the new reading becomes the baseline for the
// next one.
package counter

// DiskReading is a set of cumulative disk counters as reported by
// the agent. A nil pointer means the agent did not report the field.
type DiskReading struct {
	Reads, Writes         *float64
	ReadBytes, WriteBytes *float64
	Timestamp             float64
}

func (r DiskReading) complete() bool {
	return r.Reads != nil && r.Writes != nil && r.ReadBytes != nil && r.WriteBytes != nil
}

// DiskState is the last complete reading seen for a device.
type DiskState struct {
	Reads, Writes         float64
	ReadBytes, WriteBytes float64
	Timestamp             float64
}

// DiskRates are per-second disk rates. Defined is false when there
// was nothing to difference against, in which case all rates are 0.
type DiskRates struct {
	ReadOps, WriteOps               float64
	ReadThroughput, WriteThroughput float64
	Defined                         bool
}

// NetReading is a pair of cumulative interface byte counters.
type NetReading struct {
	BytesIn, BytesOut *float64
	Timestamp         float64
}

func (r NetReading) complete() bool {
	return r.BytesIn != nil && r.BytesOut != nil
}

// NetState is the last complete reading seen for an interface.
type NetState struct {
	BytesIn, BytesOut float64
	Timestamp         float64
}

// NetRates are per-second interface byte rates.
type NetRates struct {
	In, Out float64
	Defined bool
}

// Tracker keeps the previous reading per device and per interface.
// It is not safe for concurrent use.
type Tracker struct {
	disks map[string]DiskState
	nets  map[string]NetState

	// Clamped counts rates that came out negative and were
	// replaced with 0.
	Clamped int
}

func NewTracker() *Tracker {
	return &Tracker{
		disks: make(map[string]DiskState),
		nets:  make(map[string]NetState),
	}
}

// DiskState returns the stored state for a device.
func (t *Tracker) DiskState(device string) (DiskState, bool) {
	s, ok := t.disks[device]
	return s, ok
}

// NetState returns the stored state for an interface.
func (t *Tracker) NetState(iface string) (NetState, bool) {
	s, ok := t.nets[iface]
	return s, ok
}

// Disk computes rates for device from r and remembers r. Incomplete
// readings produce zero rates and leave the stored state alone.
func (t *Tracker) Disk(device string, r DiskReading) DiskRates {
	if !r.complete() {
		return DiskRates{}
	}
	cur := DiskState{
		Reads:      *r.Reads,
		Writes:     *r.Writes,
		ReadBytes:  *r.ReadBytes,
		WriteBytes: *r.WriteBytes,
		Timestamp:  r.Timestamp,
	}
	prev, ok := t.disks[device]
	t.disks[device] = cur
	if !ok {
		return DiskRates{}
	}
	dt := cur.Timestamp - prev.Timestamp
	if dt <= 0 {
		return DiskRates{}
	}
	return DiskRates{
		ReadOps:         t.rate(cur.Reads-prev.Reads, dt),
		WriteOps:        t.rate(cur.Writes-prev.Writes, dt),
		ReadThroughput:  t.rate(cur.ReadBytes-prev.ReadBytes, dt),
		WriteThroughput: t.rate(cur.WriteBytes-prev.WriteBytes, dt),
		Defined:         true,
	}
}

// Net computes rates for iface from r and remembers r.
func (t *Tracker) Net(iface string, r NetReading) NetRates {
	if !r.complete() {
		return NetRates{}
	}
	cur := NetState{BytesIn: *r.BytesIn, BytesOut: *r.BytesOut, Timestamp: r.Timestamp}
	prev, ok := t.nets[iface]
	t.nets[iface] = cur
	if !ok {
		return NetRates{}
	}
	dt := cur.Timestamp - prev.Timestamp
	if dt <= 0 {
		return NetRates{}
	}
	return NetRates{
		In:      t.rate(cur.BytesIn-prev.BytesIn, dt),
		Out:     t.rate(cur.BytesOut-prev.BytesOut, dt),
		Defined: true,
	}
}

func (t *Tracker) rate(delta, dt float64) float64 {
	r := delta / dt
	if r < 0 {
		t.Clamped++
		return 0
	}
	return r
}
