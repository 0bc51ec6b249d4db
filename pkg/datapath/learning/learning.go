// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package learning maintains the set of learned source-address bindings for
// the switch pipeline: which address was last seen on which ingress port.
package learning

import (
	"net"
	"sync"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/logging"
)

var log = logging.GetLogger("datapath", "learning")

// Binding is an observed association between a source address and the ingress
// port it was seen on, subject to aging.
type Binding struct {
	MAC      net.HardwareAddr
	Port     uint32
	LastSeen time.Time
}

// Store tracks learned bindings. The store only observes and reports; the
// learning table itself is provisioned by the control plane from these
// observations.
type Store struct {
	timeout time.Duration

	lock     sync.RWMutex
	bindings map[string]*Binding
}

// NewStore creates a binding store with the given aging timeout. The timeout
// is a per-deployment constant and has no default.
func NewStore(timeout time.Duration) *Store {
	return &Store{
		timeout:  timeout,
		bindings: make(map[string]*Binding),
	}
}

// Observe refreshes or creates the binding for the given address and port and
// returns whether this was a first observation. A binding that has outlived
// the aging timeout without a refresh counts as first-seen again, even if it
// has not been swept yet.
func (s *Store) Observe(mac net.HardwareAddr, port uint32, now time.Time) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	key := mac.String()
	binding, ok := s.bindings[key]
	if !ok || now.Sub(binding.LastSeen) > s.timeout {
		s.bindings[key] = &Binding{MAC: mac, Port: port, LastSeen: now}
		return true
	}

	binding.LastSeen = now
	if binding.Port != port {
		log.Infof("Binding %s moved from port %d to %d", key, binding.Port, port)
		binding.Port = port
	}
	return false
}

// Expire removes bindings whose last refresh predates now minus the aging
// timeout, returning the number of bindings removed.
func (s *Store) Expire(now time.Time) int {
	s.lock.Lock()
	defer s.lock.Unlock()

	removed := 0
	deadline := now.Add(-s.timeout)
	for key, binding := range s.bindings {
		if binding.LastSeen.Before(deadline) {
			delete(s.bindings, key)
			removed++
		}
	}
	if removed > 0 {
		log.Debugf("Expired %d stale bindings", removed)
	}
	return removed
}

// Bindings returns a snapshot of the current bindings
func (s *Store) Bindings() []*Binding {
	s.lock.RLock()
	defer s.lock.RUnlock()
	list := make([]*Binding, 0, len(s.bindings))
	for _, binding := range s.bindings {
		b := *binding
		list = append(list, &b)
	}
	return list
}

// Size returns the number of tracked bindings
func (s *Store) Size() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.bindings)
}
