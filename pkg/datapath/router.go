// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package datapath

import (
	"github.com/onosproject/pipeline-sim/pkg/packet"
)

// The static router program: verify the IPv4 checksum, resolve the route and
// the next-hop neighbor, decrement TTL, resolve the L2 forwarding entry and
// recompute the checksum. Route, neighbor and forwarding misses drop.
func (d *Datapath) routerProgram() []stage {
	return []stage{
		{name: "verify_checksum", fn: d.verifyChecksum},
		{name: RouteTableName, table: RouteTableID,
			probe: func(p *packet.Packet, md *Metadata) []byte { return p.IPv4.DstIP.To4() }},
		{name: NeighborTableName, table: NeighborTableID,
			probe: func(p *packet.Packet, md *Metadata) []byte { return md.NextHop.To4() }},
		{name: "ttl_decrement", fn: decrementTTL},
		{name: ForwardTableName, table: ForwardTableID,
			probe: func(p *packet.Packet, md *Metadata) []byte { return p.Ethernet.DstMAC }},
		{name: "update_checksum", fn: updateChecksum},
	}
}

// Non-IPv4 packets have no business in the router program. A checksum failure
// is recorded and counted but does not gate forwarding.
func (d *Datapath) verifyChecksum(p *packet.Packet, md *Metadata) {
	if p.IPv4 == nil {
		md.Drop("not IPv4")
		return
	}
	md.ChecksumOK = p.IPv4.VerifyChecksum()
	if !md.ChecksumOK {
		d.stats.update(func(s *Stats) { s.ChecksumFailures++ })
		log.Debugf("Invalid checksum on packet from port %d", md.IngressPort)
	}
}

// TTL goes down by exactly one, unconditionally; there is no underflow guard
// and no drop at the zero boundary.
func decrementTTL(p *packet.Packet, md *Metadata) {
	p.IPv4.TTL--
}

// The header was mutated, so its stored checksum is no longer trustworthy
func updateChecksum(p *packet.Packet, md *Metadata) {
	p.IPv4.RecomputeChecksum()
}
