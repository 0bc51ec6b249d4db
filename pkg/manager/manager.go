// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package manager contains the single point of entry for the pipeline simulator
package manager

import (
	"github.com/onosproject/onos-lib-go/pkg/logging"
	"github.com/onosproject/onos-lib-go/pkg/northbound"
	"github.com/onosproject/pipeline-sim/pkg/datapath"
	"github.com/onosproject/pipeline-sim/pkg/northbound/provisioner"
	"github.com/onosproject/pipeline-sim/pkg/topo"
)

var log = logging.GetLogger("manager")

// Config is a manager configuration
type Config struct {
	CAPath         string
	KeyPath        string
	CertPath       string
	GRPCPort       int
	NoTLS          bool
	DeploymentPath string
}

// Manager single point of entry for the pipeline simulator
type Manager struct {
	Config   Config
	Datapath *datapath.Datapath
}

// NewManager initializes the application manager
func NewManager(cfg Config) *Manager {
	log.Infow("Creating manager")
	mgr := Manager{
		Config: cfg,
	}
	return &mgr
}

// Run runs manager
func (m *Manager) Run() {
	log.Infow("Starting Manager")

	if err := m.Start(); err != nil {
		log.Fatalw("Unable to run Manager", "error", err)
	}
}

// Start loads the deployment, starts the datapath workers and the NB gRPC API
func (m *Manager) Start() error {
	deployment := &topo.Deployment{}
	if err := topo.LoadDeploymentFile(m.Config.DeploymentPath, deployment); err != nil {
		return err
	}

	d, err := topo.NewDatapath(deployment)
	if err != nil {
		return err
	}
	m.Datapath = d

	// Egress frames have nowhere to go in a stand-alone simulation; account
	// for them and discard.
	m.Datapath.Start(func(egress datapath.Egress) {
		log.Debugf("Egress on port %d (group %d): %d bytes", egress.Port, egress.MulticastGroup, len(egress.Payload))
	})

	return m.startNorthboundServer()
}

// startNorthboundServer starts the northbound gRPC server
func (m *Manager) startNorthboundServer() error {
	cfg := northbound.NewInsecureServerConfig(int16(m.Config.GRPCPort))
	if !m.Config.NoTLS {
		northbound.NewServerCfg(m.Config.CAPath, m.Config.KeyPath, m.Config.CertPath, int16(m.Config.GRPCPort),
			true, northbound.SecurityConfig{})
	}
	s := northbound.NewServer(cfg)
	s.AddService(logging.Service{})
	s.AddService(provisioner.NewService(m.Datapath))

	doneCh := make(chan error)
	go func() {
		err := s.Serve(func(started string) {
			log.Info("Started NBI on ", started)
			close(doneCh)
		})
		if err != nil {
			doneCh <- err
		}
	}()
	return <-doneCh
}

// Close kills the manager
func (m *Manager) Close() {
	log.Infow("Closing Manager")
	if m.Datapath != nil {
		m.Datapath.Stop()
	}
}
