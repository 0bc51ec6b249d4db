// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package datapath

import "net"

// Metadata is the per-packet scratch state threaded through the pipeline
// stages. It lives only for the duration of one packet's traversal and is
// discarded when the packet exits the pipeline.
type Metadata struct {
	IngressPort    uint32
	EgressPort     uint32
	MulticastGroup uint32
	NextHop        net.IP
	ChecksumOK     bool

	dropped    bool
	dropReason string
}

// Drop marks the packet for disposal at the end of the current stage
func (md *Metadata) Drop(reason string) {
	md.dropped = true
	md.dropReason = reason
}

// Dropped returns whether the packet has been marked for disposal
func (md *Metadata) Dropped() bool {
	return md.dropped
}

// DropReason returns the reason recorded by Drop
func (md *Metadata) DropReason() string {
	return md.dropReason
}
