// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package packet

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
)

// Payload is kept above the 46-byte minimum so that serialization does not
// add frame padding and payload assertions stay exact.
func testPayload() []byte {
	b := make([]byte, 46)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func testIPv4Packet(t *testing.T) []byte {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0x42, 0x0a, 0x00, 0x02, 0x05},
		DstMAC:       net.HardwareAddr{0x02, 0x42, 0x0a, 0x00, 0x01, 0x01},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP{10, 0, 1, 5},
		DstIP:    net.IP{10, 0, 2, 5},
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	err := gopacket.SerializeLayers(buf, opts, eth, ip, gopacket.Payload(testPayload()))
	assert.NoError(t, err)
	return buf.Bytes()
}

func TestDecodeIPv4(t *testing.T) {
	p, err := Decode(testIPv4Packet(t))
	assert.NoError(t, err)

	assert.Equal(t, net.HardwareAddr{0x02, 0x42, 0x0a, 0x00, 0x01, 0x01}, p.Ethernet.DstMAC)
	assert.Equal(t, net.HardwareAddr{0x02, 0x42, 0x0a, 0x00, 0x02, 0x05}, p.Ethernet.SrcMAC)
	assert.Equal(t, layers.EthernetTypeIPv4, p.Ethernet.EtherType)

	assert.NotNil(t, p.IPv4)
	assert.Equal(t, uint8(4), p.IPv4.Version)
	assert.Equal(t, uint8(5), p.IPv4.IHL)
	assert.Equal(t, uint8(64), p.IPv4.TTL)
	assert.Equal(t, uint8(layers.IPProtocolUDP), p.IPv4.Protocol)
	assert.Equal(t, net.IP{10, 0, 2, 5}, p.IPv4.DstIP)
	assert.True(t, p.IPv4.VerifyChecksum())
	assert.Equal(t, testPayload(), p.Payload)
}

func TestDecodeEthernetOnly(t *testing.T) {
	b := append([]byte{
		0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff,
		0x11, 0x22, 0x33, 0x44, 0x55, 0x66,
		0x08, 0x06, // ARP; no further header expected
	}, 1, 2, 3)
	p, err := Decode(b)
	assert.NoError(t, err)
	assert.Nil(t, p.IPv4)
	assert.Equal(t, layers.EthernetTypeARP, p.Ethernet.EtherType)
	assert.Equal(t, []byte{1, 2, 3}, p.Payload)
}

func TestRoundTrip(t *testing.T) {
	for _, raw := range [][]byte{
		testIPv4Packet(t),
		{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x08, 0x06, 9, 8, 7},
	} {
		p, err := Decode(raw)
		assert.NoError(t, err)
		assert.Equal(t, raw, Encode(p))

		// And once more through the codec
		q, err := Decode(Encode(p))
		assert.NoError(t, err)
		assert.Equal(t, p, q)
	}
}

func TestDecodeMalformed(t *testing.T) {
	// Too short for Ethernet
	_, err := Decode([]byte{1, 2, 3})
	assert.Error(t, err)

	// Claims IPv4 but truncated
	short := testIPv4Packet(t)[:EthernetLength+10]
	_, err = Decode(short)
	assert.Error(t, err)
}
