// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package packet provides the fixed header stack processed by the forwarding pipelines,
// together with its byte codec and the IPv4 header checksum engine.
package packet

import (
	"net"

	"github.com/google/gopacket/layers"
)

// EthernetLength is the length of the Ethernet header in bytes
const EthernetLength = 14

// IPv4Length is the length of the IPv4 header in bytes; options are not supported
const IPv4Length = 20

// Ethernet represents the Ethernet header
type Ethernet struct {
	DstMAC    net.HardwareAddr
	SrcMAC    net.HardwareAddr
	EtherType layers.EthernetType
}

// IPv4 represents the IPv4 header
type IPv4 struct {
	Version        uint8
	IHL            uint8
	TOS            uint8
	TotalLength    uint16
	Identification uint16
	Flags          uint16
	TTL            uint8
	Protocol       uint8
	Checksum       uint16
	SrcIP          net.IP
	DstIP          net.IP
}

// Packet is an ordered header stack with the remaining payload bytes.
// After a successful decode the Ethernet header is always present; the IPv4
// header is present if and only if the EtherType is IPv4.
type Packet struct {
	Ethernet Ethernet
	IPv4     *IPv4
	Payload  []byte
}
