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
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func Test_statusHandler(t *testing.T) {
	h := statusHandler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/ping", nil))
	if w.Code != http.StatusOK || w.Body.String() != "OK\n" {
		t.Errorf("/ping: %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	body := w.Body.String()
	for _, name := range []string{"telesink_lines_total", "telesink_rows_written_total", "telesink_buffered_rows", "go_goroutines"} {
		if !strings.Contains(body, name) {
			t.Errorf("/metrics does not contain %s", name)
		}
	}
}

func Test_startHttp(t *testing.T) {
	if srv, err := startHttp(""); srv != nil || err != nil {
		t.Errorf("empty listen spec should not start anything: %v %v", srv, err)
	}
	srv, err := startHttp("127.0.0.1:0")
	if err != nil || srv == nil {
		t.Fatalf("startHttp: %v", err)
	}
	stopHttp(srv)
	stopHttp(nil)

	if _, err := startHttp("256.0.0.1:bogus"); err == nil {
		t.Errorf("bad listen spec should be an error")
	}
}

func Test_processListenSpec(t *testing.T) {
	os.Setenv("TELESINK_BIND", "10.0.0.1")
	defer os.Unsetenv("TELESINK_BIND")
	if got := processListenSpec("0.0.0.0:8088"); got != "10.0.0.1:8088" {
		t.Errorf("processListenSpec = %q", got)
	}
}
