// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package datapath

import (
	"testing"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/onosproject/pipeline-sim/pkg/datapath/digest"
	"github.com/onosproject/pipeline-sim/pkg/datapath/entries"
	"github.com/onosproject/pipeline-sim/pkg/utils"
	"github.com/stretchr/testify/assert"
)

func newSwitch(t *testing.T) *Datapath {
	d, err := New(Config{Kind: Switch, AgingTimeout: time.Minute, DigestCapacity: 8})
	assert.NoError(t, err)
	return d
}

func frameFromTo(t *testing.T, src, dst string) []byte {
	raw, err := utils.EthernetFrame(utils.MAC(src), utils.MAC(dst), layers.EthernetTypeARP, []byte{1})
	assert.NoError(t, err)
	return raw
}

func TestSwitchRequiresAgingTimeout(t *testing.T) {
	_, err := New(Config{Kind: Switch})
	assert.Error(t, err)
}

func TestSwitchFirstSeenFloodsAndNotifies(t *testing.T) {
	d := newSwitch(t)

	egress, err := d.ProcessPacket(2, frameFromTo(t, "00:00:00:00:00:0a", "00:00:00:00:00:0b"))
	assert.NoError(t, err)
	assert.NotNil(t, egress)

	// Unknown destination floods to the group derived from the ingress port
	assert.Equal(t, uint32(2), egress.MulticastGroup)
	assert.Equal(t, uint64(1), d.Stats().Flooded)

	// Exactly one notification for the newly observed source
	notification := <-d.Digests().Events()
	assert.Equal(t, digest.Notification{MAC: utils.MAC("00:00:00:00:00:0a"), Port: 2}, notification)
	assert.Equal(t, 1, d.Learning().Size())
}

func TestSwitchLearnedForwarding(t *testing.T) {
	d := newSwitch(t)
	x := "00:00:00:00:00:0a"

	// First packet from X; the control plane reacts to the notification by
	// installing the learning and forwarding entries for X
	_, err := d.ProcessPacket(2, frameFromTo(t, x, "00:00:00:00:00:0b"))
	assert.NoError(t, err)
	<-d.Digests().Events()

	assert.NoError(t, d.Tables().Install(LearningTableID, entries.ExactKey(utils.MAC(x)), entries.NoOp(), 0))
	assert.NoError(t, d.Tables().Install(ForwardTableID, entries.ExactKey(utils.MAC(x)), entries.Output(2), 0))

	// Traffic toward X is now forwarded, not flooded
	egress, err := d.ProcessPacket(3, frameFromTo(t, "00:00:00:00:00:0b", x))
	assert.NoError(t, err)
	assert.Equal(t, uint32(2), egress.Port)
	assert.Equal(t, uint32(0), egress.MulticastGroup)

	// Traffic from X no longer produces notifications
	_, err = d.ProcessPacket(2, frameFromTo(t, x, "00:00:00:00:00:0b"))
	assert.NoError(t, err)
	select {
	case n := <-d.Digests().Events():
		// The destination of the previous packet was learned, that one is fine
		assert.Equal(t, utils.MAC("00:00:00:00:00:0b"), n.MAC)
	default:
	}
	select {
	case n := <-d.Digests().Events():
		t.Fatalf("unexpected notification %v", n)
	default:
	}
}

func TestSwitchDuplicateNotificationsBeforeInstall(t *testing.T) {
	d := newSwitch(t)
	x := "00:00:00:00:00:0a"

	// Until the control plane installs the learning entry, every packet from
	// X misses and re-notifies; consumers must tolerate duplicates
	for i := 0; i < 3; i++ {
		_, err := d.ProcessPacket(2, frameFromTo(t, x, "00:00:00:00:00:0b"))
		assert.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		n := <-d.Digests().Events()
		assert.Equal(t, utils.MAC(x), n.MAC)
	}

	// The store only counted one first observation
	assert.Equal(t, uint64(1), d.Stats().Learned)
	assert.Equal(t, 1, d.Learning().Size())
}

func TestSwitchLearningEntryExpiryRenotifies(t *testing.T) {
	d := newSwitch(t)
	x := "00:00:00:00:00:0a"

	// Install the learning entry with a TTL that lapses immediately
	assert.NoError(t, d.Tables().Install(LearningTableID, entries.ExactKey(utils.MAC(x)), entries.NoOp(), time.Nanosecond))
	time.Sleep(time.Millisecond)

	_, err := d.ProcessPacket(2, frameFromTo(t, x, "00:00:00:00:00:0b"))
	assert.NoError(t, err)

	n := <-d.Digests().Events()
	assert.Equal(t, utils.MAC(x), n.MAC)
}

func TestSwitchWorkerPool(t *testing.T) {
	d := newSwitch(t)

	out := make(chan Egress, 4)
	d.Start(func(e Egress) { out <- e })
	defer d.Stop()

	d.Inject(2, frameFromTo(t, "00:00:00:00:00:0a", "00:00:00:00:00:0b"))

	select {
	case egress := <-out:
		assert.Equal(t, uint32(2), egress.MulticastGroup)
	case <-time.After(2 * time.Second):
		t.Fatal("no egress packet within deadline")
	}
}
