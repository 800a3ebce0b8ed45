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
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

func statusHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) { fmt.Fprintf(w, "OK\n") })
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		metrics.WritePrometheus(w, true)
	})
	return mux
}

func processListenSpec(listenSpec string) string {
	if b := os.Getenv("TELESINK_BIND"); b != "" {
		return strings.Replace(listenSpec, "0.0.0.0", b, 1)
	}
	return listenSpec
}

var startHttp = func(listenSpec string) (*http.Server, error) {
	if listenSpec == "" {
		return nil, nil
	}

	addr := processListenSpec(listenSpec)
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("Error starting HTTP protocol: %v", err)
	}

	server := &http.Server{
		Handler:        statusHandler(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 16}

	log.Printf("HTTP protocol Listening on %s", l.Addr())
	go func() {
		if err := server.Serve(l); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()
	return server, nil
}

func stopHttp(server *http.Server) {
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown: %v", err)
	}
}
