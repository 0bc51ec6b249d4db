// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package datapath contains the packet-forwarding core: the match-action
// pipeline orchestrator running either the static router program or the
// self-learning switch program over a shared set of tables.
package datapath

import (
	"context"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-lib-go/pkg/logging"
	"github.com/onosproject/pipeline-sim/pkg/datapath/digest"
	"github.com/onosproject/pipeline-sim/pkg/datapath/entries"
	"github.com/onosproject/pipeline-sim/pkg/datapath/learning"
	"github.com/onosproject/pipeline-sim/pkg/packet"
)

var log = logging.GetLogger("datapath")

// Kind selects which fixed pipeline program the datapath runs
type Kind string

const (
	// Router is the static L3 pipeline: LPM route lookup, next-hop
	// resolution, TTL maintenance and L2 forwarding
	Router Kind = "router"
	// Switch is the self-learning L2 pipeline: source learning with
	// controller notification and destination forwarding with flood-on-miss
	Switch Kind = "switch"
)

// Application table IDs and names, mirroring the ingress control of the P4
// programs this datapath stands in for
const (
	RouteTableID    uint32 = 1
	NeighborTableID uint32 = 2
	ForwardTableID  uint32 = 3
	LearningTableID uint32 = 4

	RouteTableName    = "ipv4_route"
	NeighborTableName = "arp_table"
	ForwardTableName  = "dmac_forward"
	LearningTableName = "smac_learn"
)

const sweepInterval = time.Second

// Config holds the per-deployment datapath constants
type Config struct {
	Kind           Kind
	AgingTimeout   time.Duration
	DigestCapacity int
	QueueDepth     int
	Workers        int
}

// Egress is the forwarding decision for one packet: the serialized packet and
// either a single egress port or a multicast group. Expanding the group to
// physical ports, including any ingress exclusion, is the transmitter's
// responsibility.
type Egress struct {
	Port           uint32
	MulticastGroup uint32
	Payload        []byte
}

// TransmitFunc consumes egress decisions produced by the worker pool
type TransmitFunc func(Egress)

// Datapath is a single forwarding device: tables, pipeline program, learning
// state and the digest channel toward the control plane.
type Datapath struct {
	cfg      Config
	tables   *entries.Tables
	learning *learning.Store
	digests  *digest.Channel
	program  []stage
	stats    statsCollector

	ingress  chan ingressPacket
	transmit TransmitFunc
	cancel   context.CancelFunc
}

type ingressPacket struct {
	port    uint32
	payload []byte
}

// New creates a datapath running the program selected by the configuration
func New(cfg Config) (*Datapath, error) {
	if cfg.DigestCapacity <= 0 {
		cfg.DigestCapacity = 128
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	d := &Datapath{
		cfg:     cfg,
		digests: digest.NewChannel(cfg.DigestCapacity),
		ingress: make(chan ingressPacket, cfg.QueueDepth),
	}

	switch cfg.Kind {
	case Router:
		d.tables = entries.NewTables(
			entries.NewTable(RouteTableID, RouteTableName, entries.LongestPrefixMatch, entries.Drop()),
			entries.NewTable(NeighborTableID, NeighborTableName, entries.ExactMatch, entries.Drop()),
			entries.NewTable(ForwardTableID, ForwardTableName, entries.ExactMatch, entries.Drop()),
		)
		d.program = d.routerProgram()
	case Switch:
		if cfg.AgingTimeout <= 0 {
			return nil, errors.NewInvalid("switch datapath requires an aging timeout")
		}
		d.learning = learning.NewStore(cfg.AgingTimeout)
		d.tables = entries.NewTables(
			entries.NewTable(LearningTableID, LearningTableName, entries.ExactMatch, entries.Learn()),
			entries.NewTable(ForwardTableID, ForwardTableName, entries.ExactMatch, entries.Flood()),
		)
		d.program = d.switchProgram()
	default:
		return nil, errors.NewInvalid("unknown pipeline kind %q", cfg.Kind)
	}
	return d, nil
}

// Kind returns the pipeline kind the datapath runs
func (d *Datapath) Kind() Kind {
	return d.cfg.Kind
}

// Tables returns the datapath match-action tables, for control-plane provisioning
func (d *Datapath) Tables() *entries.Tables {
	return d.tables
}

// Learning returns the learned-binding store; nil for the router pipeline
func (d *Datapath) Learning() *learning.Store {
	return d.learning
}

// Digests returns the notification channel toward the control plane
func (d *Datapath) Digests() *digest.Channel {
	return d.digests
}

// Stats returns a snapshot of the packet counters
func (d *Datapath) Stats() Stats {
	return d.stats.snapshot()
}

// Start spawns the worker pool and the background aging sweeper. Egress
// decisions are handed to the given transmit function.
func (d *Datapath) Start(transmit TransmitFunc) {
	log.Infof("Starting %s datapath with %d workers", d.cfg.Kind, d.cfg.Workers)
	d.transmit = transmit

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	for i := 0; i < d.cfg.Workers; i++ {
		go d.worker(ctx)
	}
	go d.sweeper(ctx)
}

// Stop cancels the background tasks and closes the digest channel
func (d *Datapath) Stop() {
	log.Infof("Stopping %s datapath", d.cfg.Kind)
	if d.cancel != nil {
		d.cancel()
	}
	d.digests.Close()
}

// Inject hands a raw packet received on the given port to the worker pool.
// If the ingress queue is full the packet is dropped and counted.
func (d *Datapath) Inject(port uint32, payload []byte) {
	select {
	case d.ingress <- ingressPacket{port: port, payload: payload}:
	default:
		d.stats.update(func(s *Stats) { s.QueueDrops++ })
		log.Warnf("Ingress queue full, dropping packet from port %d", port)
	}
}

// ProcessPacket runs one raw packet through the pipeline synchronously and
// returns the egress decision, or nil if the packet was dropped. The only
// error condition is a malformed header; every other outcome is a defined
// branch of the pipeline.
func (d *Datapath) ProcessPacket(port uint32, raw []byte) (*Egress, error) {
	d.stats.update(func(s *Stats) { s.Received++ })

	p, err := packet.Decode(raw)
	if err != nil {
		d.stats.update(func(s *Stats) { s.Malformed++; s.Dropped++ })
		return nil, err
	}

	md := &Metadata{IngressPort: port}
	d.run(p, md)

	if md.Dropped() {
		d.stats.update(func(s *Stats) { s.Dropped++ })
		log.Debugf("Dropped packet from port %d: %s", port, md.DropReason())
		return nil, nil
	}

	egress := &Egress{Port: md.EgressPort, MulticastGroup: md.MulticastGroup, Payload: packet.Encode(p)}
	if egress.MulticastGroup != 0 {
		d.stats.update(func(s *Stats) { s.Flooded++ })
	} else {
		d.stats.update(func(s *Stats) { s.Forwarded++ })
	}
	return egress, nil
}

// One worker processes at most one packet at a time; ordering across workers
// is not guaranteed.
func (d *Datapath) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case in := <-d.ingress:
			egress, err := d.ProcessPacket(in.port, in.payload)
			if err != nil {
				log.Debugf("Unable to process packet from port %d: %v", in.port, err)
				continue
			}
			if egress != nil && d.transmit != nil {
				d.transmit(*egress)
			}
		}
	}
}

// Low-priority background aging of table entries and learned bindings
func (d *Datapath) sweeper(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			d.tables.Sweep(now)
			if d.learning != nil {
				d.learning.Expire(now)
			}
		}
	}
}
