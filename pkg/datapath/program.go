// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package datapath

import (
	"net"
	"time"

	"github.com/onosproject/pipeline-sim/pkg/datapath/digest"
	"github.com/onosproject/pipeline-sim/pkg/datapath/entries"
	"github.com/onosproject/pipeline-sim/pkg/packet"
)

// A stage is one step of a pipeline program: either a table lookup whose
// resulting action is applied to the packet, or a fixed-function step. A
// stage's miss behavior is whatever the table's default action says; drop
// points are explicit in the action set.
type stage struct {
	name  string
	table uint32
	probe func(*packet.Packet, *Metadata) []byte
	fn    func(*packet.Packet, *Metadata)
}

// Runs the pipeline program over the packet, stopping at the first stage that
// marks the packet dropped
func (d *Datapath) run(p *packet.Packet, md *Metadata) {
	for _, st := range d.program {
		if st.fn != nil {
			st.fn(p, md)
		} else {
			action, _ := d.tables.Table(st.table).Lookup(st.probe(p, md), time.Now())
			d.apply(st, action, p, md)
		}
		if md.Dropped() {
			return
		}
	}
}

// Applies a resolved action to the packet and its scratch metadata; this is
// the single dispatch point for the closed action set.
func (d *Datapath) apply(st stage, action entries.Action, p *packet.Packet, md *Metadata) {
	switch action.Type {
	case entries.ActionDrop:
		md.Drop(st.name + " miss")
	case entries.ActionNoOp:
	case entries.ActionForwardToNextHop:
		md.NextHop = action.NextHop
	case entries.ActionChangeDstMAC:
		p.Ethernet.DstMAC = action.MAC
	case entries.ActionForwardToPort:
		p.Ethernet.SrcMAC = action.MAC
		md.EgressPort = action.Port
	case entries.ActionOutput:
		md.EgressPort = action.Port
	case entries.ActionLearn:
		d.learn(p, md)
	case entries.ActionFlood:
		md.MulticastGroup = floodGroup(md.IngressPort)
	}
}

// Learning-table miss: refresh or create the binding and notify the control
// plane. Notification happens on every miss, so duplicates for the same
// address are possible while a control-plane install is in flight; consumers
// must apply them idempotently.
func (d *Datapath) learn(p *packet.Packet, md *Metadata) {
	mac := make(net.HardwareAddr, len(p.Ethernet.SrcMAC))
	copy(mac, p.Ethernet.SrcMAC)

	if d.learning.Observe(mac, md.IngressPort, time.Now()) {
		d.stats.update(func(s *Stats) { s.Learned++ })
	}
	d.digests.Publish(digest.Notification{MAC: mac, Port: md.IngressPort})
}

// The flood fallback selects a multicast group derived from the ingress port.
// The mapping of the group to physical ports, and whether it excludes the
// ingress port, is defined by the deployment, not here.
func floodGroup(ingressPort uint32) uint32 {
	return ingressPort
}
