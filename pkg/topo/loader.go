// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package topo

import (
	"net"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/pipeline-sim/pkg/datapath"
	"github.com/onosproject/pipeline-sim/pkg/datapath/entries"
)

// LoadDeploymentFile loads the specified deployment YAML file
func LoadDeploymentFile(path string, deployment *Deployment) error {
	log.Infof("Loading deployment from %s", path)
	cfg, err := readConfig(path)
	if err != nil {
		return err
	}
	if err = cfg.Unmarshal(deployment); err != nil {
		return err
	}
	return validate(deployment)
}

// NewDatapath creates a datapath from the deployment description and installs
// its statically provisioned table entries through the same path the
// control-plane provisioning interface uses.
func NewDatapath(deployment *Deployment) (*datapath.Datapath, error) {
	d, err := datapath.New(datapath.Config{
		Kind:           datapath.Kind(deployment.Pipeline.Kind),
		AgingTimeout:   deployment.Pipeline.AgingTimeout,
		DigestCapacity: deployment.Pipeline.DigestCapacity,
		QueueDepth:     deployment.Pipeline.QueueDepth,
		Workers:        deployment.Pipeline.Workers,
	})
	if err != nil {
		return nil, err
	}
	if err = applyStaticEntries(d, deployment); err != nil {
		return nil, err
	}
	return d, nil
}

func applyStaticEntries(d *datapath.Datapath, deployment *Deployment) error {
	tables := d.Tables()

	for _, route := range deployment.Routes {
		_, prefix, err := net.ParseCIDR(route.Prefix)
		if err != nil {
			return errors.NewInvalid("invalid route prefix %s", route.Prefix)
		}
		prefixLen, _ := prefix.Mask.Size()
		nextHop := net.ParseIP(route.NextHop).To4()
		nextHopMAC, err := net.ParseMAC(route.NextHopMAC)
		if err != nil {
			return errors.NewInvalid("invalid next hop MAC %s", route.NextHopMAC)
		}
		egressMAC, err := net.ParseMAC(route.EgressMAC)
		if err != nil {
			return errors.NewInvalid("invalid egress MAC %s", route.EgressMAC)
		}

		log.Infof("Adding route %s via %s (%s) out port %d", route.Prefix, route.NextHop, route.NextHopMAC, route.EgressPort)
		if err = tables.Install(datapath.RouteTableID,
			entries.LPMKey(prefix.IP.To4(), int32(prefixLen)), entries.ForwardToNextHop(nextHop), 0); err != nil {
			return err
		}
		if err = tables.Install(datapath.NeighborTableID,
			entries.ExactKey(nextHop), entries.ChangeDstMAC(nextHopMAC), 0); err != nil {
			return err
		}
		if err = tables.Install(datapath.ForwardTableID,
			entries.ExactKey(nextHopMAC), entries.ForwardToPort(route.EgressPort, egressMAC), 0); err != nil {
			return err
		}
	}

	for _, host := range deployment.Forwarding {
		mac, err := net.ParseMAC(host.MAC)
		if err != nil {
			return errors.NewInvalid("invalid host MAC %s", host.MAC)
		}
		log.Infof("Adding host %s on port %d", host.MAC, host.Port)
		if err = tables.Install(datapath.ForwardTableID, entries.ExactKey(mac), entries.Output(host.Port), 0); err != nil {
			return err
		}
		if err = tables.Install(datapath.LearningTableID, entries.ExactKey(mac), entries.NoOp(), 0); err != nil {
			return err
		}
	}
	return nil
}

func validate(deployment *Deployment) error {
	kind := datapath.Kind(deployment.Pipeline.Kind)
	if kind != datapath.Router && kind != datapath.Switch {
		return errors.NewInvalid("unknown pipeline kind %q", deployment.Pipeline.Kind)
	}
	for _, port := range deployment.Ports {
		if port.Number < 1 {
			return errors.NewInvalid("port numbers start at 1")
		}
	}
	if kind == datapath.Router && len(deployment.Forwarding) > 0 {
		return errors.NewInvalid("forwarding hosts apply to the switch pipeline only")
	}
	if kind == datapath.Switch && len(deployment.Routes) > 0 {
		return errors.NewInvalid("routes apply to the router pipeline only")
	}
	return nil
}
