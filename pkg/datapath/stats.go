// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package datapath

import "sync"

// Stats is a snapshot of the datapath packet counters
type Stats struct {
	Received         uint64
	Forwarded        uint64
	Flooded          uint64
	Dropped          uint64
	Malformed        uint64
	ChecksumFailures uint64
	Learned          uint64
	QueueDrops       uint64
}

// Tracks the counters behind a lock; snapshots are taken by value
type statsCollector struct {
	lock  sync.Mutex
	stats Stats
}

func (c *statsCollector) update(fn func(*Stats)) {
	c.lock.Lock()
	defer c.lock.Unlock()
	fn(&c.stats)
}

func (c *statsCollector) snapshot() Stats {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.stats
}
