// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package packet

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testIPv4Header() *IPv4 {
	return &IPv4{
		Version:        4,
		IHL:            5,
		TOS:            0,
		TotalLength:    84,
		Identification: 0x1c46,
		Flags:          0x4000,
		TTL:            64,
		Protocol:       17,
		SrcIP:          net.IP{192, 168, 1, 1},
		DstIP:          net.IP{10, 0, 2, 5},
	}
}

func TestChecksumIdempotence(t *testing.T) {
	h := testIPv4Header()
	h.RecomputeChecksum()
	assert.True(t, h.VerifyChecksum())

	// Recomputing again changes nothing
	sum := h.Checksum
	h.RecomputeChecksum()
	assert.Equal(t, sum, h.Checksum)
}

func TestChecksumDetectsMutation(t *testing.T) {
	h := testIPv4Header()
	h.RecomputeChecksum()

	h.TTL--
	assert.False(t, h.VerifyChecksum())
	h.RecomputeChecksum()
	assert.True(t, h.VerifyChecksum())
}

func TestChecksumKnownVector(t *testing.T) {
	// Worked example from RFC 1071 discussions: header with checksum zeroed
	h := &IPv4{
		Version:        4,
		IHL:            5,
		TOS:            0,
		TotalLength:    0x0073,
		Identification: 0,
		Flags:          0x4000,
		TTL:            64,
		Protocol:       17,
		SrcIP:          net.IP{192, 168, 0, 1},
		DstIP:          net.IP{192, 168, 0, 199},
	}
	h.RecomputeChecksum()
	assert.Equal(t, uint16(0xb861), h.Checksum)
	assert.True(t, h.VerifyChecksum())
}
