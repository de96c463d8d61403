// Package memsocket is an in-memory reference Socket implementation,
// adequate for deterministic tests of the agent's event loop, including
// empty-fleet startup and concurrent-arrival race scenarios.
package memsocket

import (
	"context"
	"time"

	"github.com/rancher/netagentd/internal/message"
	"github.com/rancher/netagentd/internal/socket"
)

// Socket is a slice-backed, single-process transport. InjectInbound() lets a
// test inject messages as if they arrived from the upstream; Outbound()
// lets a test observe what the agent sent.
type Socket struct {
	role       socket.Role
	liveness   time.Duration
	lastTraffic time.Time

	inbound  []message.Envelope
	outbound []message.Envelope

	requestOutstanding bool
	subscriptions      map[string]bool
	closed             bool
}

// New returns a Socket for role with the given liveness window (used by
// TimedOut).
func New(role socket.Role, liveness time.Duration) *Socket {
	return &Socket{
		role:          role,
		liveness:      liveness,
		lastTraffic:   time.Now(),
		subscriptions: make(map[string]bool),
	}
}

func (s *Socket) Role() socket.Role { return s.role }

// InjectInbound queues env as if it had arrived from the upstream.
func (s *Socket) InjectInbound(env message.Envelope) {
	s.inbound = append(s.inbound, env)
	s.lastTraffic = time.Now()
}

// Outbound drains and returns every message sent so far, for assertions.
func (s *Socket) Outbound() []message.Envelope {
	out := s.outbound
	s.outbound = nil
	return out
}

func (s *Socket) Send(env message.Envelope) error {
	if s.isREQ() {
		s.requestOutstanding = true
	}
	s.outbound = append(s.outbound, env)
	s.lastTraffic = time.Now()
	return nil
}

func (s *Socket) Receive() (message.Envelope, bool, error) {
	if len(s.inbound) == 0 {
		return message.Envelope{}, false, nil
	}
	env := s.inbound[0]
	s.inbound = s.inbound[1:]
	if s.isREQ() {
		s.requestOutstanding = false
	}
	s.lastTraffic = time.Now()
	return env, true, nil
}

func (s *Socket) RequestOutstanding() bool { return s.requestOutstanding }

func (s *Socket) TimedOut() bool {
	if s.liveness <= 0 {
		return false
	}
	return time.Since(s.lastTraffic) > s.liveness
}

// ForceTimeout makes the next TimedOut check report true regardless of the
// configured liveness window, for deterministic tests of timeout handling.
func (s *Socket) ForceTimeout() {
	s.lastTraffic = time.Now().Add(-24 * time.Hour)
	if s.liveness <= 0 {
		s.liveness = time.Second
	}
}

func (s *Socket) Close() error {
	s.closed = true
	s.requestOutstanding = false
	return nil
}

func (s *Socket) Communicate(_ context.Context, _ string) error {
	s.closed = false
	s.lastTraffic = time.Now()
	return nil
}

func (s *Socket) Subscribe(topic string) error {
	s.subscriptions[topic] = true
	return nil
}

func (s *Socket) Unsubscribe(topic string) error {
	delete(s.subscriptions, topic)
	return nil
}

// Subscribed reports whether topic is currently subscribed, for test
// assertions that subscriptions track registry membership.
func (s *Socket) Subscribed(topic string) bool {
	return s.subscriptions[topic]
}

func (s *Socket) isREQ() bool {
	return s.role == socket.RoleEPReq || s.role == socket.RoleACLReq
}

// NewSet builds a full Set of memsocket sockets with the given liveness
// window applied to all four roles.
func NewSet(liveness time.Duration) (socket.Set, *Socket, *Socket, *Socket, *Socket) {
	epReq := New(socket.RoleEPReq, liveness)
	epRep := New(socket.RoleEPRep, liveness)
	aclReq := New(socket.RoleACLReq, liveness)
	aclSub := New(socket.RoleACLSub, liveness)
	return socket.Set{EPReq: epReq, EPRep: epRep, ACLReq: aclReq, ACLSub: aclSub}, epReq, epRep, aclReq, aclSub
}
