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

package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
	"gvisor.dev/agxproxy/pkg/agxproxy/agxconf"
)

// config is the configuration of agxtool.
type config struct {
	// OSVersion is the macOS product version to assume, e.g. "26.0.1".
	// When empty, the version of the running host is used.
	OSVersion string `toml:"os_version"`

	// LogLevel is one of logrus' level names.
	LogLevel string `toml:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `toml:"log_format"`
}

// loadConfig loads the agxtool config from path. An empty path yields the
// default config.
func loadConfig(path string) (*config, error) {
	var c config
	if path != "" {
		if _, err := toml.DecodeFile(path, &c); err != nil {
			return nil, fmt.Errorf("loading config %q: %w", path, err)
		}
	}
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", path, err)
	}
	return &c, nil
}

func (c *config) setDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
}

func (c *config) validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q, must be 'text' or 'json'", c.LogFormat)
	}
	if c.OSVersion != "" {
		if _, err := agxconf.ClassifyVersion(c.OSVersion); err != nil {
			return fmt.Errorf("os_version: %w", err)
		}
	}
	return nil
}

// versionSource returns the source of the macOS version described by c.
func (c *config) versionSource() agxconf.VersionSource {
	if c.OSVersion != "" {
		return agxconf.StaticVersionSource(c.OSVersion)
	}
	return agxconf.HostVersionSource()
}

// setupLogging configures the standard logrus logger from c.
func (c *config) setupLogging() {
	// Validated by loadConfig.
	level, _ := logrus.ParseLevel(c.LogLevel)
	logrus.SetLevel(level)
	switch c.LogFormat {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}
