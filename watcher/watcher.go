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

// Package watcher polls a snapshot file and hands its contents to a
// Handler whenever the file size changes.
package watcher

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/telesink/telesink/misc"
	"golang.org/x/time/rate"
)

// Handler consumes snapshots. Scan is given the whole file every
// time, Flush is called right after and reports whether some rows
// could not be stored and should be flushed again later.
type Handler interface {
	Scan(data []byte)
	Flush(ctx context.Context) bool
}

var (
	DftPollInterval  = 200 * time.Millisecond
	DftIdleInterval  = 200 * time.Millisecond
	DftRetryInterval = 5 * time.Second
)

var osStat = func(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

var readFile = func(path string) ([]byte, error) {
	return os.ReadFile(path)
}

type Watcher struct {
	Path          string
	PollInterval  time.Duration
	IdleInterval  time.Duration
	RetryInterval time.Duration
	Handler       Handler

	lastSize   int64
	pending    bool
	retry      *rate.Limiter
	missingLog *misc.ThrottledLogger
}

func (w *Watcher) init() {
	if w.PollInterval <= 0 {
		w.PollInterval = DftPollInterval
	}
	if w.IdleInterval <= 0 {
		w.IdleInterval = DftIdleInterval
	}
	if w.RetryInterval <= 0 {
		w.RetryInterval = DftRetryInterval
	}
	w.lastSize = -1
	w.retry = rate.NewLimiter(rate.Every(w.RetryInterval), 1)
	w.missingLog = misc.NewThrottledLogger(time.Minute, 1)
}

// Run polls until ctx is cancelled. A scan and flush that has begun
// is always allowed to finish.
func (w *Watcher) Run(ctx context.Context) {
	w.init()
	work := context.WithoutCancel(ctx)

	log.Printf("Watching %s every %v (poll-interval).", w.Path, w.PollInterval)
	for {
		wait := w.poll(work)
		select {
		case <-ctx.Done():
			log.Printf("Watcher for %s stopped.", w.Path)
			return
		case <-time.After(wait):
		}
	}
}

// poll looks at the file once and returns how long to wait before
// the next look.
func (w *Watcher) poll(ctx context.Context) time.Duration {
	fi, err := osStat(w.Path)
	if err != nil {
		w.missingLog.Printf("Cannot stat %s (will keep trying): %v", w.Path, err)
		w.retryFlush(ctx)
		return w.IdleInterval
	}

	size := fi.Size()
	if size == 0 {
		// Truncated, the agent is about to write a new snapshot.
		w.lastSize = 0
		w.retryFlush(ctx)
		return w.IdleInterval
	}
	if size == w.lastSize {
		w.retryFlush(ctx)
		return w.PollInterval
	}

	data, err := readFile(w.Path)
	if err != nil {
		log.Printf("Error reading %s: %v", w.Path, err)
		return w.PollInterval
	}
	w.lastSize = size

	w.Handler.Scan(data)
	w.pending = w.Handler.Flush(ctx)
	w.retry.Allow() // restart the retry clock
	return w.PollInterval
}

func (w *Watcher) retryFlush(ctx context.Context) {
	if !w.pending || !w.retry.Allow() {
		return
	}
	log.Printf("Retrying flush of rows that could not be stored.")
	w.pending = w.Handler.Flush(ctx)
}
