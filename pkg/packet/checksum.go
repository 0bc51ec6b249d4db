// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package packet

import "encoding/binary"

// VerifyChecksum computes the ones'-complement header sum, with the checksum
// field treated as zero, and compares it against the stored checksum field.
func (h *IPv4) VerifyChecksum() bool {
	return h.computeChecksum() == h.Checksum
}

// RecomputeChecksum recomputes the header checksum and stores it back into the
// checksum field; all other fields are left untouched.
func (h *IPv4) RecomputeChecksum() {
	h.Checksum = h.computeChecksum()
}

// Standard RFC 1071 16-bit ones'-complement sum over the header bytes with the
// checksum field zeroed out.
func (h *IPv4) computeChecksum() uint16 {
	hc := *h
	hc.Checksum = 0
	b := hc.marshal(make([]byte, 0, IPv4Length))

	var sum uint32
	for i := 0; i+1 < IPv4Length; i += 2 {
		sum += uint32(binary.BigEndian.Uint16(b[i : i+2]))
	}
	for sum > 0xffff {
		sum = sum&0xffff + sum>>16
	}
	return ^uint16(sum)
}
