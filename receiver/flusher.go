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
	"context"
	"log"
	"sort"
	"time"
)

// FlushStats is the outcome of one flush cycle.
type FlushStats struct {
	Written    int // inserted
	Failed     int // insert failed, kept for the next cycle
	Incomplete int // missing required columns, dropped
	Expired    int // older than MaxRowAge, dropped
	Settled    int // already written or rejected, dropped
	Pending    int // rows left in the buffer, including the latest
}

// Flush goes over the buffered rows oldest first and stores every row
// that is complete and older than the latest timestamp seen. The row
// for the latest timestamp is left alone since more samples for it
// may still be on the way.
//
// Rows missing required columns are dropped for good. Rows that fail
// to insert stay buffered and are tried again on the next Flush. Flush
// reports whether any such rows are waiting.
func (r *Receiver) Flush(ctx context.Context) bool {
	return r.flush(ctx).Failed > 0
}

func (r *Receiver) flush(ctx context.Context) FlushStats {
	var st FlushStats

	timestamps := make([]float64, 0, len(r.buf))
	for ts := range r.buf {
		timestamps = append(timestamps, ts)
	}
	sort.Float64s(timestamps)

	maxAge := r.cfg.MaxRowAge.Seconds()
	for _, ts := range timestamps {
		if ts == r.latest {
			continue
		}
		rw := r.buf[ts]

		if r.written.has(ts) || r.rejected.has(ts) {
			delete(r.buf, ts)
			delete(r.failed, ts)
			st.Settled++
			continue
		}

		if maxAge > 0 && r.failed[ts] && r.latest-ts > maxAge {
			log.Printf("Discarding row for %v: older than %v (max-row-age) and still not stored.", ts, r.cfg.MaxRowAge)
			r.reject(ts)
			rowsExpiredTotal.Inc()
			st.Expired++
			continue
		}

		rw.SetIdentity(r.cfg.ServerID, r.cfg.LocationID)
		c, err := rw.Complete()
		if err != nil {
			r.dropLog.Printf("Skipping row for %v: %v. Row: %v", ts, err, rw)
			r.reject(ts)
			rowsIncompleteTotal.Inc()
			st.Incomplete++
			continue
		}

		start := time.Now()
		if err := r.db.InsertRow(ctx, c); err != nil {
			log.Printf("Insert error: %v. Row: %v", err, c)
			insertErrorsTotal.Inc()
			r.failed[ts] = true
			st.Failed++
			continue
		}
		insertDuration.UpdateDuration(start)
		r.written.add(ts)
		delete(r.buf, ts)
		delete(r.failed, ts)
		rowsWrittenTotal.Inc()
		st.Written++
	}

	st.Pending = len(r.buf)
	bufferedRows.Set(float64(st.Pending))
	if st.Written > 0 || st.Failed > 0 {
		log.Printf("Flush: %d rows written, %d failed, %d incomplete, %d expired, %d pending.",
			st.Written, st.Failed, st.Incomplete, st.Expired, st.Pending)
	}
	return st
}

func (r *Receiver) reject(ts float64) {
	r.rejected.add(ts)
	delete(r.buf, ts)
	delete(r.failed, ts)
}
