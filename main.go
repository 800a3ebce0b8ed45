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

// Telesink reads the JSON snapshot file written by a Telegraf agent
// and stores one row of server metrics per timestamp in PostgreSQL.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/telesink/telesink/daemon"
)

const Version = "0.3.0"

var (
	buildTime, gitRevision string
)

func parseFlags() (textCfgPath string, bg bool, version bool) {

	// Parse the flags, if any
	flag.StringVar(&textCfgPath, "c", "", "path to config file (defaults are used if empty)")
	flag.BoolVar(&bg, "bg", false, "Immediately background itself")
	flag.BoolVar(&version, "version", false, "Print version and exit")
	flag.Parse()

	return
}

func printVersion() {
	fmt.Printf("Telesink version: %v\n", Version)
	if buildTime != "" {
		fmt.Printf("Build time: %v\n", buildTime)
	}
	if gitRevision != "" {
		fmt.Printf("Git revision: %v\n", gitRevision)
	}
}

func main() {

	textCfgPath, bg, version := parseFlags()

	if version {
		printVersion()
		return
	}

	if bg {
		if textCfgPath != "" && !filepath.IsAbs(textCfgPath) {
			log.Fatalf("ERROR: Background only possible when config path is absolute (cfg path: %q).", textCfgPath)
		}
		if !filepath.IsAbs(os.Args[0]) {
			log.Fatalf("ERROR: Background only possible when %q started with absolute path.", os.Args[0])
		}
		log.Printf("Backgrounding...")
		if err := std2DevNull(); err != nil {
			log.Fatalf("Error: %v", err)
		}
		if err := os.Chdir("/"); err != nil {
			log.Printf("Unable to chdir to /: %v", err)
		}
		background(textCfgPath)
		return
	}

	cfg, err := daemon.Init(textCfgPath)
	if cfg != nil {
		daemon.Finish(cfg)
	}
	if err != nil {
		os.Exit(1)
	}
}

func background(cp string) {
	mypath, _ := filepath.Abs(os.Args[0])
	var args []string
	if cp != "" {
		args = append(args, "-c", cp)
	}
	cmd := exec.Command(mypath, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func std2DevNull() error {
	f, e := os.OpenFile("/dev/null", os.O_RDWR, 0)
	if e == nil {
		fd := int(f.Fd())
		syscall.Dup2(fd, int(os.Stdin.Fd()))
		syscall.Dup2(fd, int(os.Stdout.Fd()))
		syscall.Dup2(fd, int(os.Stderr.Fd()))
		return nil
	} else {
		return e
	}
}
