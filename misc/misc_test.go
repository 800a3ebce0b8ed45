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

package misc

import (
	"strings"
	"testing"
	"time"
)

func Test_BetterParseDuration(t *testing.T) {
	for _, c := range []struct {
		in   string
		want time.Duration
	}{
		{"200ms", 200 * time.Millisecond},
		{"5min", 5 * time.Minute},
		{"2hour", 2 * time.Hour},
		{"1d", 24 * time.Hour},
		{"2w", 14 * 24 * time.Hour},
		{"1mon", 30 * 24 * time.Hour},
		{"1y", 365 * 24 * time.Hour},
		{" 1h ", time.Hour},
	} {
		got, err := BetterParseDuration(c.in)
		if err != nil {
			t.Errorf("BetterParseDuration(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("BetterParseDuration(%q) = %v, want %v", c.in, got, c.want)
		}
	}

	for _, bad := range []string{"", "abc", "xd", "1q"} {
		if _, err := BetterParseDuration(bad); err == nil {
			t.Errorf("BetterParseDuration(%q): expected error", bad)
		}
	}
}

func Test_ThrottledLogger(t *testing.T) {
	var out []string
	l := NewThrottledLogger(time.Hour, 2)
	l.output = func(s string) { out = append(out, s) }

	for i := 0; i < 5; i++ {
		l.Printf("bad line %d", i)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 messages through, got %d: %v", len(out), out)
	}
	if l.Suppressed() != 3 {
		t.Errorf("expected 3 suppressed, got %d", l.Suppressed())
	}

	// swap in a limiter with room to spare, the next message reports the backlog
	l.limiter = NewThrottledLogger(time.Nanosecond, 1).limiter
	l.Printf("again")
	if last := out[len(out)-1]; !strings.Contains(last, "3 similar messages suppressed") {
		t.Errorf("suppressed count not reported: %q", last)
	}
	if l.Suppressed() != 0 {
		t.Errorf("suppressed count not reset")
	}
}
