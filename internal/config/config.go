// Copyright 1999-2020 Alibaba Group Holding Ltd.
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

// Package config loads the router's enumerated options from a YAML file
// with environment-variable overrides.
package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/polarismesh/go-mesh-guard/internal/logging"
)

const (
	FailoverNone = "none"
	FailoverAll  = "all"
)

// Config holds the four enumerated options.
type Config struct {
	FailoverType     string            `mapstructure:"failover-type"`
	RouterEnabled    bool              `mapstructure:"router.enabled"`
	GlobalVariables  map[string]string `mapstructure:"global-variables"`
	EnvKey           string            `mapstructure:"env-key"`
}

// Load reads guard.yaml (if present) from the given paths, merges
// GUARD_*-prefixed environment overrides on top, and validates the
// result. Validation failures fail closed to the documented defaults
// rather than propagating zero values into the router, and are logged
// once.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetDefault("failover-type", FailoverNone)
	v.SetDefault("router.enabled", true)
	v.SetDefault("global-variables", map[string]string{})
	v.SetDefault("env-key", "")

	v.SetConfigName("guard")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if len(paths) == 0 {
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("GUARD")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "reading config file")
		}
		logging.Info("[config] no config file found, using defaults and environment overrides")
	} else {
		logging.Info("[config] loaded config file", "file", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	// Unmarshal does not follow the dotted "router.enabled" tag into
	// viper's nested settings, so read that option by its key path.
	cfg.RouterEnabled = v.GetBool("router.enabled")

	cfg.sanitize()
	return &cfg, nil
}

// sanitize fails closed on an invalid FailoverType rather than letting an
// unrecognized value propagate as a silent zero value.
func (c *Config) sanitize() {
	switch c.FailoverType {
	case FailoverNone, FailoverAll:
	default:
		logging.Warn("[config] invalid failover-type, defaulting to none", "value", c.FailoverType)
		c.FailoverType = FailoverNone
	}
	if c.GlobalVariables == nil {
		c.GlobalVariables = map[string]string{}
	}
}
