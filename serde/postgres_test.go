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

package serde

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/telesink/telesink/row"
)

// A database/sql driver that records what it is asked to do.
type fakeDriver struct {
	sync.Mutex
	prepared    []string
	execs       [][]driver.Value
	failPrepare error
	failExec    error
}

var fdrv = &fakeDriver{}

func init() {
	sql.Register("fakepg", fdrv)
}

func (d *fakeDriver) reset() {
	d.Lock()
	defer d.Unlock()
	d.prepared, d.execs, d.failPrepare, d.failExec = nil, nil, nil, nil
}

func (d *fakeDriver) Open(string) (driver.Conn, error) { return &fakeConn{d}, nil }

type fakeConn struct{ d *fakeDriver }

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) {
	c.d.Lock()
	defer c.d.Unlock()
	if c.d.failPrepare != nil {
		return nil, c.d.failPrepare
	}
	c.d.prepared = append(c.d.prepared, query)
	return &fakeStmt{c.d}, nil
}

func (c *fakeConn) Close() error              { return nil }
func (c *fakeConn) Begin() (driver.Tx, error) { return nil, errors.New("not supported") }

type fakeStmt struct{ d *fakeDriver }

func (s *fakeStmt) Close() error  { return nil }
func (s *fakeStmt) NumInput() int { return -1 }

func (s *fakeStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.d.Lock()
	defer s.d.Unlock()
	if s.d.failExec != nil {
		return nil, s.d.failExec
	}
	s.d.execs = append(s.d.execs, args)
	return driver.RowsAffected(1), nil
}

func (s *fakeStmt) Query([]driver.Value) (driver.Rows, error) {
	return nil, errors.New("not supported")
}

func newFakeSerDe(t *testing.T) *pgSerDe {
	fdrv.reset()
	db, err := sql.Open("fakepg", "")
	if err != nil {
		t.Fatal(err)
	}
	return newPgSerDe(db, "")
}

func testRow() *row.Complete {
	c := &row.Complete{ServerID: "srv", LocationID: "loc", Timestamp: 1000}
	c.Values[row.CpuUsage] = 42
	c.Values[row.MemoryUsage] = 55
	c.Values[row.ErrorCount] = 3
	return c
}

func Test_insertSql(t *testing.T) {
	got := insertSql("server_metrics")
	want := `INSERT INTO "server_metrics" ("server_id", "location_id", "timestamp", "cpu_usage", "memory_usage", ` +
		`"disk_usage_percent", "disk_read_ops_per_sec", "disk_write_ops_per_sec", "disk_read_throughput", ` +
		`"disk_write_throughput", "network_in_bytes", "network_out_bytes", "latency_in_ms", "uptime_in_mins", ` +
		`"error_count") VALUES ($1, $2, to_timestamp($3), $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	if got != want {
		t.Errorf("insertSql():\n got: %s\nwant: %s", got, want)
	}
	if q := insertSql("metrics.server_metrics"); !strings.HasPrefix(q, `INSERT INTO "metrics"."server_metrics" (`) {
		t.Errorf("schema qualified table not quoted per part: %s", q)
	}
}

func Test_rowArgs(t *testing.T) {
	args := rowArgs(testRow())
	want := []interface{}{"srv", "loc", 1000.0, 42.0, 55.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 3.0}
	if diff := cmp.Diff(want, args); diff != "" {
		t.Errorf("rowArgs (-want +got):\n%s", diff)
	}
}

func Test_pgSerDe_InsertRow(t *testing.T) {
	p := newFakeSerDe(t)
	defer p.Close()
	ctx := context.Background()

	if err := p.InsertRow(ctx, testRow()); err != nil {
		t.Fatalf("InsertRow: %v", err)
	}
	if err := p.InsertRow(ctx, testRow()); err != nil {
		t.Fatalf("InsertRow: %v", err)
	}

	fdrv.Lock()
	defer fdrv.Unlock()
	if len(fdrv.execs) != 2 {
		t.Fatalf("expected 2 inserts, got %d", len(fdrv.execs))
	}
	if fdrv.execs[0][0] != "srv" || fdrv.execs[0][2] != 1000.0 || fdrv.execs[0][14] != 3.0 {
		t.Errorf("unexpected insert args: %v", fdrv.execs[0])
	}
	for _, q := range fdrv.prepared {
		if q != insertSql(DefaultTable) {
			t.Errorf("unexpected statement prepared: %s", q)
		}
	}
}

func Test_pgSerDe_InsertRowSurvivesOutage(t *testing.T) {
	p := newFakeSerDe(t)
	defer p.Close()
	ctx := context.Background()

	down := errors.New("connection refused")
	fdrv.Lock()
	fdrv.failPrepare = down
	fdrv.Unlock()

	err := p.InsertRow(ctx, testRow())
	if !errors.Is(err, down) {
		t.Fatalf("expected wrapped outage error, got %v", err)
	}

	fdrv.Lock()
	fdrv.failPrepare = nil
	fdrv.failExec = errors.New(`duplicate key value violates unique constraint`)
	fdrv.Unlock()
	if err := p.InsertRow(ctx, testRow()); err == nil || !strings.Contains(err.Error(), "duplicate key") {
		t.Fatalf("expected exec error, got %v", err)
	}

	fdrv.Lock()
	fdrv.failExec = nil
	fdrv.Unlock()
	if err := p.InsertRow(ctx, testRow()); err != nil {
		t.Fatalf("InsertRow after recovery: %v", err)
	}
}

func Test_ConnectString(t *testing.T) {
	for _, c := range []struct {
		in, pw, want string
	}{
		{"host=localhost user=postgres", "", "host=localhost user=postgres"},
		{"host=localhost user=postgres", "s3cr'et", `host=localhost user=postgres password='s3cr\'et'`},
		{"host=localhost password=x", "other", "host=localhost password=x"},
		{"postgres://postgres@localhost:5432/postgres", "pw", "dbname='postgres' host='localhost' port='5432' user='postgres' password='pw'"},
		{"postgres://postgres:x@localhost/postgres", "pw", "dbname='postgres' host='localhost' password='x' user='postgres'"},
	} {
		got, err := ConnectString(c.in, c.pw)
		if err != nil {
			t.Errorf("ConnectString(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ConnectString(%q, %q) = %q, want %q", c.in, c.pw, got, c.want)
		}
	}
}
