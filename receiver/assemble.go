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

package receiver

import (
	"github.com/telesink/telesink/counter"
	"github.com/telesink/telesink/row"
	"github.com/telesink/telesink/sample"
)

// Field names as configured on the agent come first, stock Telegraf
// names after.
var (
	memUsedFields    = []string{"used_percent_mem", "used_percent"}
	diskUsedFields   = []string{"disk_usage_percent", "used_percent"}
	readBytesFields  = []string{"disk_read_throughput", "read_bytes"}
	writeBytesFields = []string{"disk_write_throughput", "write_bytes"}
	netInFields      = []string{"network_in_bytes", "bytes_recv"}
	netOutFields     = []string{"network_out_bytes", "bytes_sent"}
	latencyFields    = []string{"latency_in_ms", "average_response_ms"}
)

// rowFor returns the buffered row for the sample timestamp, creating
// it if needed. It returns nil if the timestamp has already been
// written or rejected.
func (r *Receiver) rowFor(s *sample.Sample) *row.Row {
	if rw := r.buf[s.Timestamp]; rw != nil {
		rw.SetIdentity(s.Tag("server_id"), s.Tag("location_id"))
		return rw
	}
	if r.written.has(s.Timestamp) || r.rejected.has(s.Timestamp) {
		return nil
	}
	rw := row.New(s.Timestamp)
	rw.SetIdentity(s.Tag("server_id"), s.Tag("location_id"))
	r.buf[s.Timestamp] = rw
	return rw
}

// assemble routes a sample to the columns of its row. Samples of
// families or devices we do not store are ignored. Counter samples
// always update the counter state, even when their row is settled,
// so that the next delta has the right baseline.
func (r *Receiver) assemble(s *sample.Sample) {
	switch s.Name {
	case "cpu":
		if s.Tag("cpu") != "cpu-total" {
			return
		}
		if rw := r.rowFor(s); rw != nil {
			rw.Set(row.CpuUsage, cpuUsage(s))
		}

	case "mem":
		if rw := r.rowFor(s); rw != nil {
			copyField(rw, row.MemoryUsage, s, memUsedFields...)
		}

	case "disk":
		if s.Tag("path") != "/" {
			return
		}
		if rw := r.rowFor(s); rw != nil {
			copyField(rw, row.DiskUsagePercent, s, diskUsedFields...)
		}

	case "diskio":
		dev := s.Tag("name")
		if !r.devices[dev] {
			return
		}
		rates := r.counters.Disk(dev, counter.DiskReading{
			Reads:      opt(s.Field("reads")),
			Writes:     opt(s.Field("writes")),
			ReadBytes:  opt(s.Field(readBytesFields...)),
			WriteBytes: opt(s.Field(writeBytesFields...)),
			Timestamp:  s.Timestamp,
		})
		r.syncClamped()
		if rw := r.rowFor(s); rw != nil {
			// More than one device may map to the same disk, keep the
			// busiest.
			rw.SetMax(row.DiskReadOpsPerSec, rates.ReadOps)
			rw.SetMax(row.DiskWriteOpsPerSec, rates.WriteOps)
			rw.SetMax(row.DiskReadThroughput, rates.ReadThroughput)
			rw.SetMax(row.DiskWriteThroughput, rates.WriteThroughput)
		}

	case "net":
		iface := s.Tag("interface")
		if iface != r.cfg.NetInterface {
			return
		}
		rates := r.counters.Net(iface, counter.NetReading{
			BytesIn:   opt(s.Field(netInFields...)),
			BytesOut:  opt(s.Field(netOutFields...)),
			Timestamp: s.Timestamp,
		})
		r.syncClamped()
		rw := r.rowFor(s)
		if rw == nil {
			return
		}
		if rates.Defined {
			rw.Set(row.NetworkInBytes, rates.In)
			rw.Set(row.NetworkOutBytes, rates.Out)
		} else {
			// A repeated observation of the same reading must not
			// wipe out a rate computed earlier.
			rw.SetDefault(row.NetworkInBytes, 0)
			rw.SetDefault(row.NetworkOutBytes, 0)
		}
		if v, ok := errorCount(s); ok {
			rw.Set(row.ErrorCount, v)
		}

	case "ping":
		if rw := r.rowFor(s); rw != nil {
			copyField(rw, row.LatencyInMs, s, latencyFields...)
		}

	case "system":
		if rw := r.rowFor(s); rw != nil {
			if up, ok := s.Field("uptime"); ok {
				rw.Set(row.UptimeInMins, up/60)
			}
		}
	}
}

// cpuUsage prefers the agent's own active percentage, then derives it
// from idle.
func cpuUsage(s *sample.Sample) float64 {
	if v, ok := s.Field("usage_active"); ok {
		return v
	}
	if v, ok := s.Field("usage_idle"); ok {
		return 100 - v
	}
	return 0
}

func errorCount(s *sample.Sample) (float64, bool) {
	if v, ok := s.Field("error_count"); ok {
		return v, true
	}
	in, okIn := s.Field("err_in")
	out, okOut := s.Field("err_out")
	if okIn && okOut {
		return in + out, true
	}
	return 0, false
}

func copyField(rw *row.Row, c row.Column, s *sample.Sample, names ...string) {
	if v, ok := s.Field(names...); ok {
		rw.Set(c, v)
	}
}

func opt(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

func (r *Receiver) syncClamped() {
	if n := r.counters.Clamped; n > 0 {
		rateClampedTotal.Add(n)
		r.counters.Clamped = 0
	}
}
