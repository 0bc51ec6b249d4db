// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package datapath

import (
	"github.com/onosproject/pipeline-sim/pkg/packet"
)

// The self-learning switch program: a source-address lookup whose miss runs
// the learn action, then a destination-address lookup whose miss floods.
// Learning is the only table side effect in either program.
func (d *Datapath) switchProgram() []stage {
	return []stage{
		{name: LearningTableName, table: LearningTableID,
			probe: func(p *packet.Packet, md *Metadata) []byte { return p.Ethernet.SrcMAC }},
		{name: ForwardTableName, table: ForwardTableID,
			probe: func(p *packet.Packet, md *Metadata) []byte { return p.Ethernet.DstMAC }},
	}
}
