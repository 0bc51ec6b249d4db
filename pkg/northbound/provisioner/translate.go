// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package provisioner

import (
	"encoding/binary"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/pipeline-sim/pkg/datapath/entries"
	p4api "github.com/p4lang/p4runtime/go/p4/v1"
)

// Action IDs of the provisioning interface
const (
	DropActionID uint32 = iota + 1
	NoOpActionID
	ForwardToNextHopActionID
	ChangeDstMACActionID
	ForwardToPortActionID
	OutputActionID
)

// LearningDigestID identifies the learned source binding digest
const LearningDigestID = uint32(1)

// PortMetadataID is the packet-out metadata field carrying the ingress port
const PortMetadataID = uint32(1)

func (s *Server) installEntry(entry *p4api.TableEntry) error {
	table := s.datapath.Tables().Table(entry.TableId)
	if table == nil {
		return errors.NewNotFound("table %d not found", entry.TableId)
	}
	key, err := keyFromEntry(entry)
	if err != nil {
		return err
	}
	action, err := actionFromEntry(entry)
	if err != nil {
		return err
	}
	table.Install(key, action, time.Duration(entry.IdleTimeoutNs))
	log.Debugf("Installed %s entry: %s", table.Name(), action)
	return nil
}

func (s *Server) removeEntry(entry *p4api.TableEntry) error {
	table := s.datapath.Tables().Table(entry.TableId)
	if table == nil {
		return errors.NewNotFound("table %d not found", entry.TableId)
	}
	key, err := keyFromEntry(entry)
	if err != nil {
		return err
	}
	table.Remove(key)
	return nil
}

// Returns the tables addressed by the given ID; 0 addresses all of them
func (s *Server) tablesFor(tableID uint32) []*entries.Table {
	if tableID == 0 {
		return s.datapath.Tables().Tables()
	}
	if table := s.datapath.Tables().Table(tableID); table != nil {
		return []*entries.Table{table}
	}
	return nil
}

func keyFromEntry(entry *p4api.TableEntry) (entries.Key, error) {
	if len(entry.Match) != 1 {
		return entries.Key{}, errors.NewInvalid("entry must carry exactly one match field")
	}
	match := entry.Match[0]
	if exact := match.GetExact(); exact != nil {
		return entries.ExactKey(exact.Value), nil
	}
	if lpm := match.GetLpm(); lpm != nil {
		return entries.LPMKey(lpm.Value, lpm.PrefixLen), nil
	}
	return entries.Key{}, errors.NewInvalid("only exact and lpm match fields are supported")
}

func actionFromEntry(entry *p4api.TableEntry) (entries.Action, error) {
	action := entry.GetAction().GetAction()
	if action == nil {
		return entries.Action{}, errors.NewInvalid("entry must carry a direct action")
	}
	switch action.ActionId {
	case DropActionID:
		return entries.Drop(), nil
	case NoOpActionID:
		return entries.NoOp(), nil
	case ForwardToNextHopActionID:
		nextHop, err := paramValue(action, 1, 4)
		if err != nil {
			return entries.Action{}, err
		}
		return entries.ForwardToNextHop(nextHop), nil
	case ChangeDstMACActionID:
		mac, err := paramValue(action, 1, 6)
		if err != nil {
			return entries.Action{}, err
		}
		return entries.ChangeDstMAC(mac), nil
	case ForwardToPortActionID:
		port, err := paramValue(action, 1, 4)
		if err != nil {
			return entries.Action{}, err
		}
		mac, err := paramValue(action, 2, 6)
		if err != nil {
			return entries.Action{}, err
		}
		return entries.ForwardToPort(binary.BigEndian.Uint32(port), mac), nil
	case OutputActionID:
		port, err := paramValue(action, 1, 4)
		if err != nil {
			return entries.Action{}, err
		}
		return entries.Output(binary.BigEndian.Uint32(port)), nil
	}
	return entries.Action{}, errors.NewInvalid("unknown action %d", action.ActionId)
}

// Returns the value of the action parameter with the given ID, left-padded
// with zeros to the given width
func paramValue(action *p4api.Action, paramID uint32, width int) ([]byte, error) {
	for _, param := range action.Params {
		if param.ParamId != paramID {
			continue
		}
		if len(param.Value) > width {
			return nil, errors.NewInvalid("action %d parameter %d is too wide", action.ActionId, paramID)
		}
		value := make([]byte, width)
		copy(value[width-len(param.Value):], param.Value)
		return value, nil
	}
	return nil, errors.NewInvalid("action %d is missing parameter %d", action.ActionId, paramID)
}

func toWireEntry(table *entries.Table, entry *entries.Entry) *p4api.TableEntry {
	match := &p4api.FieldMatch{FieldId: 1}
	if table.Kind() == entries.LongestPrefixMatch {
		match.FieldMatchType = &p4api.FieldMatch_Lpm{
			Lpm: &p4api.FieldMatch_LPM{Value: entry.Key.Value, PrefixLen: entry.Key.PrefixLen},
		}
	} else {
		match.FieldMatchType = &p4api.FieldMatch_Exact_{
			Exact: &p4api.FieldMatch_Exact{Value: entry.Key.Value},
		}
	}
	return &p4api.TableEntry{
		TableId: table.ID(),
		Match:   []*p4api.FieldMatch{match},
		Action:  toWireAction(entry.Action),
	}
}

func toWireAction(action entries.Action) *p4api.TableAction {
	wire := &p4api.Action{}
	switch action.Type {
	case entries.ActionDrop:
		wire.ActionId = DropActionID
	case entries.ActionNoOp:
		wire.ActionId = NoOpActionID
	case entries.ActionForwardToNextHop:
		wire.ActionId = ForwardToNextHopActionID
		wire.Params = []*p4api.Action_Param{{ParamId: 1, Value: action.NextHop.To4()}}
	case entries.ActionChangeDstMAC:
		wire.ActionId = ChangeDstMACActionID
		wire.Params = []*p4api.Action_Param{{ParamId: 1, Value: action.MAC}}
	case entries.ActionForwardToPort:
		wire.ActionId = ForwardToPortActionID
		wire.Params = []*p4api.Action_Param{
			{ParamId: 1, Value: portBytes(action.Port)},
			{ParamId: 2, Value: action.MAC},
		}
	case entries.ActionOutput:
		wire.ActionId = OutputActionID
		wire.Params = []*p4api.Action_Param{{ParamId: 1, Value: portBytes(action.Port)}}
	}
	return &p4api.TableAction{Type: &p4api.TableAction_Action{Action: wire}}
}

// Produces a learned source binding digest carried on the stream channel as a
// struct of two bitstrings, the MAC address and the ingress port
func (s *Server) digestResponse(mac []byte, port uint32) *p4api.StreamMessageResponse {
	binding := &p4api.P4Data{
		Data: &p4api.P4Data_Struct{
			Struct: &p4api.P4StructLike{
				Members: []*p4api.P4Data{
					{Data: &p4api.P4Data_Bitstring{Bitstring: mac}},
					{Data: &p4api.P4Data_Bitstring{Bitstring: portBytes(port)}},
				},
			},
		},
	}
	return &p4api.StreamMessageResponse{
		Update: &p4api.StreamMessageResponse_Digest{
			Digest: &p4api.DigestList{
				DigestId:  LearningDigestID,
				ListId:    s.nextListID(),
				Data:      []*p4api.P4Data{binding},
				Timestamp: time.Now().UnixNano(),
			},
		},
	}
}

// Extracts the ingress port from the packet-out metadata
func packetOutPort(packetOut *p4api.PacketOut) (uint32, error) {
	for _, metadata := range packetOut.Metadata {
		if metadata.MetadataId != PortMetadataID {
			continue
		}
		if len(metadata.Value) > 4 {
			return 0, errors.NewInvalid("port metadata is too wide")
		}
		value := make([]byte, 4)
		copy(value[4-len(metadata.Value):], metadata.Value)
		return binary.BigEndian.Uint32(value), nil
	}
	return 0, errors.NewInvalid("packet-out carries no port metadata")
}

func portBytes(port uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, port)
	return b
}
