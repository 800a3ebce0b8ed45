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

// Package misc is misc stuff.
package misc

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Units time.ParseDuration does not know about, in hours.
var longUnits = []struct {
	suffix string
	hours  float64
}{
	{"d", 24},
	{"w", 24 * 7},
	{"mon", 24 * 30},
	{"y", 24 * 365},
}

// BetterParseDuration is time.ParseDuration that also understands
// "min", "hour", "d", "w", "mon" and "y".
func BetterParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasSuffix(s, "min"):
		s = s[:len(s)-2] // min -> m
	case strings.HasSuffix(s, "hour"):
		s = s[:len(s)-3] // hour -> h
	}

	d, err := time.ParseDuration(s)
	if err == nil {
		return d, nil
	}
	for _, u := range longUnits {
		if !strings.HasSuffix(s, u.suffix) {
			continue
		}
		n, perr := strconv.ParseFloat(s[:len(s)-len(u.suffix)], 64)
		if perr != nil {
			break
		}
		return time.Duration(n * u.hours * float64(time.Hour)), nil
	}
	return 0, fmt.Errorf("invalid duration %q: %v", s, err)
}
