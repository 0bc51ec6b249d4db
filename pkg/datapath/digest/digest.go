// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package digest provides the asynchronous notification channel between the
// forwarding hot path and the control plane. Delivery is best effort: when the
// channel is saturated the oldest undelivered notification is dropped so that
// the packet path never blocks on control-plane backpressure.
package digest

import (
	"net"
	"sync"

	"github.com/onosproject/onos-lib-go/pkg/logging"
)

var log = logging.GetLogger("datapath", "digest")

// Notification reports a learned source-address binding to the control plane.
// It is a fact, not an instruction; the datapath never waits for it to be
// acknowledged or applied.
type Notification struct {
	MAC  net.HardwareAddr
	Port uint32
}

// Channel is a bounded notification queue with drop-oldest overflow. It
// supports concurrent publishers and one or more consumers.
type Channel struct {
	lock    sync.Mutex
	events  chan Notification
	dropped uint64
	closed  bool
}

// NewChannel creates a channel with the given capacity
func NewChannel(capacity int) *Channel {
	return &Channel{events: make(chan Notification, capacity)}
}

// Publish enqueues the given notification without ever blocking. If the
// channel is full, the oldest undelivered notification is discarded to make
// room; the return value reports whether anything was discarded.
func (c *Channel) Publish(n Notification) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return false
	}

	droppedOldest := false
	for {
		select {
		case c.events <- n:
			return droppedOldest
		default:
		}
		select {
		case old := <-c.events:
			c.dropped++
			droppedOldest = true
			log.Warnf("Notification channel saturated, dropped {%s, %d}", old.MAC, old.Port)
		default:
			// A consumer raced us and made room; retry the send
		}
	}
}

// Events returns the channel consumers drain notifications from
func (c *Channel) Events() <-chan Notification {
	return c.events
}

// Dropped returns the number of notifications discarded due to saturation
func (c *Channel) Dropped() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.dropped
}

// Close closes the channel; subsequent publishes are discarded silently
func (c *Channel) Close() {
	c.lock.Lock()
	defer c.lock.Unlock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
}
