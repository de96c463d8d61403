// Package socket defines the transport abstraction the agent core speaks
// against: four logical sockets over two upstreams. The physical message
// bus and wire format are out of scope; this package only fixes the
// interface and ships an in-memory reference implementation.
package socket

import (
	"context"

	"github.com/rancher/netagentd/internal/message"
)

// Role names one of the four logical sockets.
type Role int

const (
	RoleEPReq Role = iota
	RoleEPRep
	RoleACLReq
	RoleACLSub
)

func (r Role) String() string {
	switch r {
	case RoleEPReq:
		return "EP_REQ"
	case RoleEPRep:
		return "EP_REP"
	case RoleACLReq:
		return "ACL_REQ"
	case RoleACLSub:
		return "ACL_SUB"
	default:
		return "UNKNOWN"
	}
}

// Socket is the per-role transport abstraction. REQ and REP roles are
// strict request/reply (at most one outstanding request);
// SUB is broadcast-filtered by an opaque topic equal to an endpoint id.
type Socket interface {
	Role() Role

	// Send transmits msg. For REQ roles it marks RequestOutstanding true.
	Send(env message.Envelope) error

	// Receive does a non-blocking read of at most one message. It
	// returns ok=false if nothing is available. For REQ roles, a
	// successful receive clears RequestOutstanding.
	Receive() (env message.Envelope, ok bool, err error)

	// RequestOutstanding is meaningful only for REQ roles.
	RequestOutstanding() bool

	// TimedOut reports whether no traffic has been observed within this
	// role's liveness window.
	TimedOut() bool

	// Close tears down the underlying connection.
	Close() error

	// Communicate (re-)establishes the underlying connection.
	Communicate(ctx context.Context, hostname string) error

	// Subscribe and Unsubscribe apply to the SUB role only.
	Subscribe(topic string) error
	Unsubscribe(topic string) error
}

// Set bundles the four role sockets the agent polls each iteration.
type Set struct {
	EPReq  Socket
	EPRep  Socket
	ACLReq Socket
	ACLSub Socket
}

// All returns the four sockets in a fixed order, convenient for polling.
func (s Set) All() []Socket {
	return []Socket{s.EPReq, s.EPRep, s.ACLReq, s.ACLSub}
}
