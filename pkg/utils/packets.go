// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package utils contains address parsing helpers and raw packet builders
package utils

import (
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// IP returns the given IPv4 address as 4 bytes
func IP(addr string) net.IP {
	return net.ParseIP(addr).To4()
}

// MAC returns the given MAC address as bytes
func MAC(addr string) net.HardwareAddr {
	b, _ := net.ParseMAC(addr)
	return b
}

// EthernetFrame returns frame bytes with the given addresses, type and payload
func EthernetFrame(srcMAC, dstMAC net.HardwareAddr, etherType layers.EthernetType, payload []byte) ([]byte, error) {
	eth := &layers.Ethernet{
		SrcMAC:       srcMAC,
		DstMAC:       dstMAC,
		EthernetType: etherType,
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	err := gopacket.SerializeLayers(buf, opts, eth, gopacket.Payload(payload))
	return buf.Bytes(), err
}

// IPv4Packet returns packet bytes carrying an IPv4 header with the given
// addresses and TTL and a valid header checksum
func IPv4Packet(srcMAC, dstMAC net.HardwareAddr, srcIP, dstIP net.IP, ttl uint8, payload []byte) ([]byte, error) {
	eth := &layers.Ethernet{
		SrcMAC:       srcMAC,
		DstMAC:       dstMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      ttl,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    srcIP,
		DstIP:    dstIP,
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	err := gopacket.SerializeLayers(buf, opts, eth, ip, gopacket.Payload(payload))
	return buf.Bytes(), err
}
