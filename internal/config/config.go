// Copyright 2024 The chute Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the workflow configuration from .chute.yaml at
// the repository top level and merges the environment toggles this tool
// consults but does not own.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/chutedev/chute/internal/errors"
	toposort "github.com/philopon/go-toposort"
	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file at the repo top level.
const FileName = ".chute.yaml"

// NoNotifyEnv suppresses optional issue-tracker notifications.
const NoNotifyEnv = "CHUTE_NO_NOTIFY"

// Environment is one promotion target. After lists the environments
// whose mainlines feed into this one, which fixes the promotion order.
type Environment struct {
	Name  string   `yaml:"name"`
	After []string `yaml:"after,omitempty"`
}

// Tracker selects and configures the remote issue tracker.
type Tracker struct {
	// Kind is one of eventum, jira, github, rt or empty for none.
	Kind    string `yaml:"kind,omitempty"`
	URL     string `yaml:"url,omitempty"`
	Project string `yaml:"project,omitempty"`
	Token   string `yaml:"token,omitempty"`
}

// Config is the loaded workflow configuration.
type Config struct {
	// Project names the project changesets belong to.
	Project string `yaml:"project,omitempty"`

	// Environments lists the promotion targets. Order in the file is
	// not significant; Chain() resolves the order from After edges.
	Environments []Environment `yaml:"environments,omitempty"`

	// Backstop is a tag marking a shared ancestor used to bound
	// traversal cost. Optional; purely an optimization.
	Backstop string `yaml:"backstop,omitempty"`

	Tracker Tracker `yaml:"tracker,omitempty"`

	// NotifySuppressed is set from CHUTE_NO_NOTIFY, not the file.
	NotifySuppressed bool `yaml:"-"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Environments: []Environment{
			{Name: "dev"},
			{Name: "qa", After: []string{"dev"}},
			{Name: "stage", After: []string{"qa"}},
			{Name: "prod", After: []string{"stage"}},
		},
		NotifySuppressed: os.Getenv(NoNotifyEnv) != "",
	}
}

// Load reads the configuration file from the given top-level directory.
// A missing file yields the default configuration.
func Load(topDir string) (*Config, error) {
	const op errors.Op = "config.Load"
	data, err := os.ReadFile(filepath.Join(topDir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, errors.E(op, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.E(op, errors.InvalidParam,
			fmt.Errorf("malformed %s: %w", FileName, err))
	}
	if len(cfg.Environments) == 0 {
		cfg.Environments = Default().Environments
	}
	cfg.NotifySuppressed = os.Getenv(NoNotifyEnv) != ""
	return cfg, nil
}

// Chain returns the environment names ordered so that every environment
// appears after the ones it promotes from.
func (c *Config) Chain() ([]string, error) {
	const op errors.Op = "config.Chain"
	graph := toposort.NewGraph(len(c.Environments))
	for _, env := range c.Environments {
		graph.AddNode(env.Name)
	}
	for _, env := range c.Environments {
		for _, after := range env.After {
			if !graph.AddEdge(after, env.Name) {
				return nil, errors.E(op, errors.InvalidParam,
					fmt.Errorf("environment %q promotes from unknown environment %q", env.Name, after))
			}
		}
	}
	order, ok := graph.Toposort()
	if !ok {
		return nil, errors.E(op, errors.InvalidParam,
			fmt.Errorf("environment dependencies contain a cycle"))
	}
	return order, nil
}

// HasEnvironment returns true if name is a configured environment.
func (c *Config) HasEnvironment(name string) bool {
	for _, env := range c.Environments {
		if env.Name == name {
			return true
		}
	}
	return false
}

// RequireProject returns the project name or a ConfigMissing error when
// the loaded configuration does not carry one.
func (c *Config) RequireProject() (string, error) {
	const op errors.Op = "config.RequireProject"
	if c.Project == "" {
		return "", errors.E(op, errors.ConfigMissing,
			fmt.Errorf("no project configured; add %q to %s", "project", FileName))
	}
	return c.Project, nil
}
