// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package entries

import (
	"fmt"
	"net"
)

// ActionType enumerates the closed set of actions the pipelines can apply
type ActionType uint8

const (
	// ActionDrop discards the packet
	ActionDrop ActionType = iota
	// ActionNoOp leaves the packet untouched
	ActionNoOp
	// ActionForwardToNextHop records the next-hop IP address in the packet metadata
	ActionForwardToNextHop
	// ActionChangeDstMAC overwrites the destination Ethernet address
	ActionChangeDstMAC
	// ActionForwardToPort sets the egress port and overwrites the source Ethernet address
	ActionForwardToPort
	// ActionOutput sets the egress port
	ActionOutput
	// ActionLearn records the source address binding and notifies the control plane
	ActionLearn
	// ActionFlood selects a multicast group derived from the ingress port
	ActionFlood
)

// Action is a tagged action variant with its typed parameters; only the
// parameters relevant to the action type are set.
type Action struct {
	Type    ActionType
	Port    uint32
	MAC     net.HardwareAddr
	NextHop net.IP
}

// Drop returns the drop action
func Drop() Action {
	return Action{Type: ActionDrop}
}

// NoOp returns the no-op action
func NoOp() Action {
	return Action{Type: ActionNoOp}
}

// ForwardToNextHop returns an action recording the given next-hop address
func ForwardToNextHop(nextHop net.IP) Action {
	return Action{Type: ActionForwardToNextHop, NextHop: nextHop}
}

// ChangeDstMAC returns an action rewriting the destination Ethernet address
func ChangeDstMAC(mac net.HardwareAddr) Action {
	return Action{Type: ActionChangeDstMAC, MAC: mac}
}

// ForwardToPort returns an action emitting the packet on the given port with
// the given egress source address
func ForwardToPort(port uint32, egressMAC net.HardwareAddr) Action {
	return Action{Type: ActionForwardToPort, Port: port, MAC: egressMAC}
}

// Output returns an action emitting the packet on the given port
func Output(port uint32) Action {
	return Action{Type: ActionOutput, Port: port}
}

// Learn returns the source-address learning action
func Learn() Action {
	return Action{Type: ActionLearn}
}

// Flood returns the flood-to-multicast-group action
func Flood() Action {
	return Action{Type: ActionFlood}
}

func (a Action) String() string {
	switch a.Type {
	case ActionDrop:
		return "drop"
	case ActionNoOp:
		return "noop"
	case ActionForwardToNextHop:
		return fmt.Sprintf("forward_to_next_hop(%s)", a.NextHop)
	case ActionChangeDstMAC:
		return fmt.Sprintf("change_dst_mac(%s)", a.MAC)
	case ActionForwardToPort:
		return fmt.Sprintf("forward_to_port(%d, %s)", a.Port, a.MAC)
	case ActionOutput:
		return fmt.Sprintf("output(%d)", a.Port)
	case ActionLearn:
		return "learn"
	case ActionFlood:
		return "flood"
	}
	return "unknown"
}
