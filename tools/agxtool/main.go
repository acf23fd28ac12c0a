// Copyright 2026 The gVisor Authors.
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

// Binary agxtool inspects the AGX selector tables and decodes replies
// captured from the AGX service.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
	"gvisor.dev/agxproxy/pkg/agxproxy"
)

var (
	configPath = flag.String("config", "", "path to a TOML config file.")
	osVersion  = flag.String("os-version", "", "macOS product version to assume instead of probing the host.")
	debug      = flag.Bool("debug", false, "enable debug logging.")
	logFormat  = flag.String("log-format", "", "log format: text or json.")
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(new(Revision), "")
	subcommands.Register(new(Selectors), "")
	subcommands.Register(new(Selector), "")
	subcommands.Register(new(Label), "")
	subcommands.Register(new(Filter), "")
	subcommands.Register(new(Decode), "")
	flag.Parse()

	conf, err := loadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("%v", err)
	}
	if *osVersion != "" {
		conf.OSVersion = *osVersion
	}
	if *debug {
		conf.LogLevel = "debug"
	}
	if *logFormat != "" {
		conf.LogFormat = *logFormat
	}
	if err := conf.validate(); err != nil {
		logrus.Fatalf("%v", err)
	}
	conf.setupLogging()

	tr := agxproxy.NewTranslator(agxproxy.NewResolver(conf.versionSource()))
	os.Exit(int(subcommands.Execute(context.Background(), tr)))
}
