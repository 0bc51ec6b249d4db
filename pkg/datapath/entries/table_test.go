// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package entries

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExactTableBasics(t *testing.T) {
	table := NewTable(1, "dmac_forward", ExactMatch, Drop())
	assert.Equal(t, uint32(1), table.ID())
	assert.Equal(t, "dmac_forward", table.Name())
	assert.Equal(t, 0, table.Size())

	now := time.Now()
	mac := net.HardwareAddr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}

	// Miss resolves to the default action
	action, hit := table.Lookup(mac, now)
	assert.False(t, hit)
	assert.Equal(t, ActionDrop, action.Type)

	table.Install(ExactKey(mac), Output(3), 0)
	assert.Equal(t, 1, table.Size())

	action, hit = table.Lookup(mac, now)
	assert.True(t, hit)
	assert.Equal(t, ActionOutput, action.Type)
	assert.Equal(t, uint32(3), action.Port)

	// Install on the same key replaces, last write wins
	table.Install(ExactKey(mac), Output(7), 0)
	assert.Equal(t, 1, table.Size())
	action, _ = table.Lookup(mac, now)
	assert.Equal(t, uint32(7), action.Port)

	table.Remove(ExactKey(mac))
	assert.Equal(t, 0, table.Size())

	// Removing again is a no-op
	table.Remove(ExactKey(mac))
	assert.Equal(t, 0, table.Size())
}

func TestLongestPrefixMatch(t *testing.T) {
	table := NewTable(2, "ipv4_route", LongestPrefixMatch, Drop())
	now := time.Now()

	table.Install(LPMKey([]byte{10, 0, 0, 0}, 8), ForwardToNextHop(net.IP{192, 168, 1, 1}), 0)
	table.Install(LPMKey([]byte{10, 0, 2, 0}, 24), ForwardToNextHop(net.IP{192, 168, 1, 2}), 0)

	// The /24 wins over the /8 for a covered address
	action, hit := table.Lookup([]byte{10, 0, 2, 5}, now)
	assert.True(t, hit)
	assert.Equal(t, net.IP{192, 168, 1, 2}, action.NextHop)

	// Only the /8 covers this one
	action, hit = table.Lookup([]byte{10, 1, 1, 1}, now)
	assert.True(t, hit)
	assert.Equal(t, net.IP{192, 168, 1, 1}, action.NextHop)

	// Outside both prefixes
	action, hit = table.Lookup([]byte{11, 0, 0, 0}, now)
	assert.False(t, hit)
	assert.Equal(t, ActionDrop, action.Type)
}

func TestNonOctetPrefix(t *testing.T) {
	table := NewTable(2, "ipv4_route", LongestPrefixMatch, Drop())
	now := time.Now()

	table.Install(LPMKey([]byte{10, 0, 2, 128}, 25), ForwardToNextHop(net.IP{192, 168, 1, 3}), 0)

	_, hit := table.Lookup([]byte{10, 0, 2, 200}, now)
	assert.True(t, hit)
	_, hit = table.Lookup([]byte{10, 0, 2, 5}, now)
	assert.False(t, hit)
}

func TestEntryExpiry(t *testing.T) {
	table := NewTable(3, "smac", ExactMatch, Learn())
	mac := net.HardwareAddr{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}

	table.Install(ExactKey(mac), NoOp(), 50*time.Millisecond)

	_, hit := table.Lookup(mac, time.Now())
	assert.True(t, hit)

	// Past the expiry the entry no longer matches, even before a sweep
	later := time.Now().Add(time.Second)
	action, hit := table.Lookup(mac, later)
	assert.False(t, hit)
	assert.Equal(t, ActionLearn, action.Type)

	assert.Equal(t, 1, table.Size())
	table.Sweep(later)
	assert.Equal(t, 0, table.Size())
}

func TestTablesRegistry(t *testing.T) {
	route := NewTable(1, "ipv4_route", LongestPrefixMatch, Drop())
	dmac := NewTable(2, "dmac_forward", ExactMatch, Drop())
	tables := NewTables(route, dmac)

	assert.Equal(t, route, tables.Table(1))
	assert.Nil(t, tables.Table(42))
	assert.Len(t, tables.Tables(), 2)

	err := tables.Install(2, ExactKey([]byte{1, 2, 3, 4, 5, 6}), Output(1), 0)
	assert.NoError(t, err)
	assert.Equal(t, 1, dmac.Size())

	err = tables.Install(42, ExactKey([]byte{1}), Drop(), 0)
	assert.Error(t, err)

	err = tables.Remove(2, ExactKey([]byte{1, 2, 3, 4, 5, 6}))
	assert.NoError(t, err)
	assert.Equal(t, 0, dmac.Size())
}

func TestConcurrentLookupInstall(t *testing.T) {
	table := NewTable(1, "dmac_forward", ExactMatch, Drop())
	mac := net.HardwareAddr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			table.Install(ExactKey(mac), Output(uint32(i)), 0)
		}
		close(done)
	}()
	for i := 0; i < 1000; i++ {
		table.Lookup(mac, time.Now())
	}
	<-done

	action, hit := table.Lookup(mac, time.Now())
	assert.True(t, hit)
	assert.Equal(t, uint32(999), action.Port)
}
