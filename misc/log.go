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
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"
)

// ThrottledLogger writes to the standard logger at most burst
// messages per interval. Messages over the limit are counted and the
// count is reported with the next message that gets through.
type ThrottledLogger struct {
	limiter    *rate.Limiter
	suppressed int
	output     func(string)
}

func NewThrottledLogger(interval time.Duration, burst int) *ThrottledLogger {
	return &ThrottledLogger{
		limiter: rate.NewLimiter(rate.Every(interval), burst),
		output:  func(s string) { log.Output(3, s) },
	}
}

// Printf logs a message unless the limit has been reached.
func (l *ThrottledLogger) Printf(format string, args ...interface{}) {
	if !l.limiter.Allow() {
		l.suppressed++
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.suppressed > 0 {
		msg = fmt.Sprintf("%s (%d similar messages suppressed)", msg, l.suppressed)
		l.suppressed = 0
	}
	l.output(msg)
}

// Suppressed returns the number of messages dropped since the last
// one that was logged.
func (l *ThrottledLogger) Suppressed() int { return l.suppressed }
