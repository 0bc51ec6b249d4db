// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package packet

import (
	"encoding/binary"
	"net"

	"github.com/google/gopacket/layers"
	"github.com/onosproject/onos-lib-go/pkg/errors"
)

// Decode parses the given buffer into a header stack. The Ethernet header is
// decoded unconditionally; the IPv4 header is decoded only when the EtherType
// says so. A buffer shorter than the currently expected header yields a
// malformed header error.
func Decode(b []byte) (*Packet, error) {
	if len(b) < EthernetLength {
		return nil, errors.NewInvalid("malformed header: %d bytes is too short for Ethernet", len(b))
	}

	p := &Packet{
		Ethernet: Ethernet{
			DstMAC:    dupBytes(b[0:6]),
			SrcMAC:    dupBytes(b[6:12]),
			EtherType: layers.EthernetType(binary.BigEndian.Uint16(b[12:14])),
		},
	}
	rest := b[EthernetLength:]

	if p.Ethernet.EtherType == layers.EthernetTypeIPv4 {
		if len(rest) < IPv4Length {
			return nil, errors.NewInvalid("malformed header: %d bytes is too short for IPv4", len(rest))
		}
		p.IPv4 = &IPv4{
			Version:        rest[0] >> 4,
			IHL:            rest[0] & 0x0f,
			TOS:            rest[1],
			TotalLength:    binary.BigEndian.Uint16(rest[2:4]),
			Identification: binary.BigEndian.Uint16(rest[4:6]),
			Flags:          binary.BigEndian.Uint16(rest[6:8]),
			TTL:            rest[8],
			Protocol:       rest[9],
			Checksum:       binary.BigEndian.Uint16(rest[10:12]),
			SrcIP:          net.IP(dupBytes(rest[12:16])),
			DstIP:          net.IP(dupBytes(rest[16:20])),
		}
		rest = rest[IPv4Length:]
	}

	p.Payload = dupBytes(rest)
	return p, nil
}

// Encode serializes the header stack back into bytes, in the same fixed order
// as Decode expects, with no padding. Decode(Encode(p)) reproduces p exactly.
func Encode(p *Packet) []byte {
	size := EthernetLength + len(p.Payload)
	if p.IPv4 != nil {
		size += IPv4Length
	}
	b := make([]byte, 0, size)

	b = append(b, p.Ethernet.DstMAC...)
	b = append(b, p.Ethernet.SrcMAC...)
	b = appendUint16(b, uint16(p.Ethernet.EtherType))

	if p.IPv4 != nil {
		b = p.IPv4.marshal(b)
	}

	return append(b, p.Payload...)
}

// Appends the 20 header bytes in wire order
func (h *IPv4) marshal(b []byte) []byte {
	b = append(b, h.Version<<4|h.IHL&0x0f, h.TOS)
	b = appendUint16(b, h.TotalLength)
	b = appendUint16(b, h.Identification)
	b = appendUint16(b, h.Flags)
	b = append(b, h.TTL, h.Protocol)
	b = appendUint16(b, h.Checksum)
	b = append(b, h.SrcIP.To4()...)
	return append(b, h.DstIP.To4()...)
}

func appendUint16(b []byte, v uint16) []byte {
	return append(b, byte(v>>8), byte(v))
}

func dupBytes(b []byte) []byte {
	d := make([]byte, len(b))
	copy(d, b)
	return d
}
