// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package provisioner implements the P4Runtime-flavored northbound of the
// datapath: table provisioning via Write/Read, pipeline configuration, and
// the stream channel carrying mastership arbitration, learned-binding digests
// and packet-out injection.
package provisioner

import (
	"context"
	"io"
	"sync"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-lib-go/pkg/logging"
	"github.com/onosproject/onos-lib-go/pkg/northbound"
	"github.com/onosproject/pipeline-sim/pkg/datapath"
	p4api "github.com/p4lang/p4runtime/go/p4/v1"
	"google.golang.org/genproto/googleapis/rpc/code"
	"google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/prototext"
)

var log = logging.GetLogger("northbound", "provisioner")

// Service implements the P4Runtime service for the datapath
type Service struct {
	northbound.Service
	Datapath *datapath.Datapath
}

// NewService allocates a Service backed by the given datapath
func NewService(d *datapath.Datapath) Service {
	return Service{Datapath: d}
}

// Register registers the P4Runtime service with the given gRPC server
func (s Service) Register(r *grpc.Server) {
	p4api.RegisterP4RuntimeServer(r, NewServer(s.Datapath))
	log.Debug("P4Runtime provisioning service registered")
}

// Server implements the P4Runtime API over the datapath tables
type Server struct {
	p4api.UnimplementedP4RuntimeServer
	datapath *datapath.Datapath

	lock      sync.RWMutex
	fpc       *p4api.ForwardingPipelineConfig
	elections map[string]*p4api.Uint128
	listID    uint64
}

// NewServer creates a new P4Runtime API server over the given datapath
func NewServer(d *datapath.Datapath) *Server {
	return &Server{
		datapath:  d,
		elections: make(map[string]*p4api.Uint128),
	}
}

// Capabilities responds with the P4Runtime API version
func (s *Server) Capabilities(ctx context.Context, request *p4api.CapabilitiesRequest) (*p4api.CapabilitiesResponse, error) {
	return &p4api.CapabilitiesResponse{P4RuntimeApiVersion: "1.1.0"}, nil
}

// Write applies the given batch of table updates to the datapath tables.
// Insert and modify both land as last-write-wins installs; delete removes.
func (s *Server) Write(ctx context.Context, request *p4api.WriteRequest) (*p4api.WriteResponse, error) {
	for _, update := range request.Updates {
		entry := update.Entity.GetTableEntry()
		if entry == nil {
			return nil, errors.Status(errors.NewInvalid("only table entries can be written")).Err()
		}

		var err error
		switch update.Type {
		case p4api.Update_INSERT, p4api.Update_MODIFY:
			err = s.installEntry(entry)
		case p4api.Update_DELETE:
			err = s.removeEntry(entry)
		default:
			err = errors.NewInvalid("unknown update type %v", update.Type)
		}
		if err != nil {
			log.Warnf("Unable to apply update: %v", err)
			return nil, errors.Status(err).Err()
		}
	}
	return &p4api.WriteResponse{}, nil
}

// Read streams back the entries of the requested tables; table ID 0 reads all
func (s *Server) Read(request *p4api.ReadRequest, server p4api.P4Runtime_ReadServer) error {
	entities := make([]*p4api.Entity, 0, 64)
	for _, requested := range request.Entities {
		entry := requested.GetTableEntry()
		if entry == nil {
			continue
		}
		for _, table := range s.tablesFor(entry.TableId) {
			for _, e := range table.Entries() {
				entities = append(entities, &p4api.Entity{
					Entity: &p4api.Entity_TableEntry{TableEntry: toWireEntry(table, e)},
				})
			}
		}
	}

	err := server.Send(&p4api.ReadResponse{Entities: entities})
	if err != nil && err != io.EOF {
		return err
	}
	return nil
}

// SetForwardingPipelineConfig records the forwarding pipeline configuration
func (s *Server) SetForwardingPipelineConfig(ctx context.Context, request *p4api.SetForwardingPipelineConfigRequest) (*p4api.SetForwardingPipelineConfigResponse, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.fpc = request.Config
	if s.fpc != nil && s.fpc.P4Info != nil {
		log.Infof("Pipeline config set: %s", prototext.Format(s.fpc.P4Info.PkgInfo))
	}
	return &p4api.SetForwardingPipelineConfigResponse{}, nil
}

// GetForwardingPipelineConfig returns the previously recorded configuration
func (s *Server) GetForwardingPipelineConfig(ctx context.Context, request *p4api.GetForwardingPipelineConfigRequest) (*p4api.GetForwardingPipelineConfigResponse, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return &p4api.GetForwardingPipelineConfigResponse{Config: s.fpc}, nil
}

type channelState struct {
	arbitration     *p4api.MasterArbitrationUpdate
	streamResponses chan *p4api.StreamMessageResponse
}

// StreamChannel handles incoming stream requests and emits outgoing responses:
// the arbitration handshake, learned-binding digests and packet-out injection
func (s *Server) StreamChannel(server p4api.P4Runtime_StreamChannelServer) error {
	state := &channelState{
		streamResponses: make(chan *p4api.StreamMessageResponse, 128),
	}

	// Single sender goroutine; everything outgoing funnels through the channel
	go func() {
		for {
			select {
			case <-server.Context().Done():
				return
			case msg := <-state.streamResponses:
				if err := server.Send(msg); err != nil {
					return
				}
			}
		}
	}()

	// Pump learned-binding notifications to the controller as digests. The
	// datapath published them without waiting; this drain is best effort too.
	go func() {
		for {
			select {
			case <-server.Context().Done():
				return
			case n, ok := <-s.datapath.Digests().Events():
				if !ok {
					return
				}
				select {
				case state.streamResponses <- s.digestResponse(n.MAC, n.Port):
				case <-server.Context().Done():
					return
				}
			}
		}
	}()

	for {
		msg, err := server.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		s.processRequest(state, msg)
	}
	return nil
}

func (s *Server) processRequest(state *channelState, msg *p4api.StreamMessageRequest) {
	if arbitration := msg.GetArbitration(); arbitration != nil && state.arbitration == nil {
		state.arbitration = arbitration

		electionStatus := &status.Status{Code: int32(code.Code_OK)}
		maxElectionID := s.recordRoleElection(arbitration.Role, arbitration.ElectionId)
		if maxElectionID == nil {
			electionStatus.Code = int32(code.Code_INVALID_ARGUMENT)
		} else if maxElectionID.High != arbitration.ElectionId.High || maxElectionID.Low != arbitration.ElectionId.Low {
			electionStatus.Code = int32(code.Code_ALREADY_EXISTS)
		}
		state.streamResponses <- &p4api.StreamMessageResponse{
			Update: &p4api.StreamMessageResponse_Arbitration{
				Arbitration: &p4api.MasterArbitrationUpdate{
					DeviceId:   arbitration.DeviceId,
					Role:       arbitration.Role,
					ElectionId: maxElectionID,
					Status:     electionStatus,
				},
			},
		}
		return
	}

	// Packet-outs are injected into the pipeline at the port named by the
	// first metadata field
	if packetOut := msg.GetPacket(); packetOut != nil {
		port, err := packetOutPort(packetOut)
		if err != nil {
			log.Warnf("Discarding packet-out: %v", err)
			return
		}
		s.datapath.Inject(port, packetOut.Payload)
	}

	// Digest acks are accepted and ignored; delivery is best effort
}

// Records the given election ID for the role and returns the winning election
// ID, or nil if this role and election ID has already been claimed
func (s *Server) recordRoleElection(role *p4api.Role, electionID *p4api.Uint128) *p4api.Uint128 {
	s.lock.Lock()
	defer s.lock.Unlock()

	roleName := ""
	if role != nil {
		roleName = role.Name
	}

	maxID, ok := s.elections[roleName]
	if !ok || maxID.High < electionID.High || (maxID.High == electionID.High && maxID.Low < electionID.Low) {
		s.elections[roleName] = electionID
		return electionID
	} else if maxID.High == electionID.High && maxID.Low == electionID.Low {
		return nil
	}
	return maxID
}

func (s *Server) nextListID() uint64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.listID++
	return s.listID
}
