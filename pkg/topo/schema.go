// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package topo loads per-deployment datapath descriptions: which pipeline to
// run, its ports and constants, and any statically provisioned table entries.
package topo

import (
	"os"
	"path/filepath"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/logging"
	"github.com/spf13/viper"
)

var log = logging.GetLogger("topo")

// Deployment is a description of one datapath deployment
type Deployment struct {
	Pipeline   Pipeline         `mapstructure:"pipeline" yaml:"pipeline"`
	Ports      []Port           `mapstructure:"ports" yaml:"ports"`
	Routes     []Route          `mapstructure:"routes" yaml:"routes"`
	Forwarding []ForwardingHost `mapstructure:"forwarding" yaml:"forwarding"`
}

// Pipeline selects the program and its per-deployment constants
type Pipeline struct {
	Kind           string        `mapstructure:"kind" yaml:"kind"`
	AgingTimeout   time.Duration `mapstructure:"aging_timeout" yaml:"aging_timeout"`
	DigestCapacity int           `mapstructure:"digest_capacity" yaml:"digest_capacity"`
	QueueDepth     int           `mapstructure:"queue_depth" yaml:"queue_depth"`
	Workers        int           `mapstructure:"workers" yaml:"workers"`
}

// Port is a description of a datapath port; numbers start at 1
type Port struct {
	Number uint32 `mapstructure:"number" yaml:"number"`
	Speed  string `mapstructure:"speed" yaml:"speed"`
}

// Route is one statically provisioned router path, in the shape of the lab
// routing files: destination prefix, next hop, its MAC and the egress rewrite
type Route struct {
	Prefix     string `mapstructure:"prefix" yaml:"prefix"`
	NextHop    string `mapstructure:"next_hop" yaml:"next_hop"`
	NextHopMAC string `mapstructure:"next_hop_mac" yaml:"next_hop_mac"`
	EgressMAC  string `mapstructure:"egress_mac" yaml:"egress_mac"`
	EgressPort uint32 `mapstructure:"egress_port" yaml:"egress_port"`
}

// ForwardingHost is one statically provisioned switch host binding
type ForwardingHost struct {
	MAC  string `mapstructure:"mac" yaml:"mac"`
	Port uint32 `mapstructure:"port" yaml:"port"`
}

// Reads configuration from the specified path (- for stdin) via viper; ready to Unmarshal
func readConfig(path string) (*viper.Viper, error) {
	cfg := viper.New()
	cfg.SetConfigType("yaml")
	if path == "-" {
		if err := cfg.ReadConfig(os.Stdin); err != nil {
			return cfg, err
		}
	} else {
		cfg.SetConfigName(filepath.Base(path))
		cfg.AddConfigPath(filepath.Dir(path))
		if err := cfg.ReadInConfig(); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}
