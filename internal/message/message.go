// Package message defines the wire-level vocabulary exchanged between the
// agent and its two upstreams (the endpoint plugin and the ACL manager).
//
// Each upstream message kind gets one concrete Go type rather than a
// loosely-typed string-keyed bag; Decode returns a typed value and an
// error for anything malformed, so validation lives at the boundary
// rather than scattered through the dispatcher.
package message

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// Kind tags the type of an upstream or outbound message.
type Kind string

const (
	KindHeartbeat          Kind = "HEARTBEAT"
	KindResync             Kind = "RESYNC"
	KindResyncReply        Kind = "RESYNC_REPLY"
	KindEndpointCreated    Kind = "ENDPOINTCREATED"
	KindEndpointUpdated    Kind = "ENDPOINTUPDATED"
	KindEndpointDestroyed  Kind = "ENDPOINTDESTROYED"
	KindGetACLState        Kind = "GETACLSTATE"
	KindGetACLStateReply   Kind = "GETACLSTATE_REPLY"
	KindACLUpdate          Kind = "ACLUPDATE"
	KindGenericReply       Kind = "REPLY"
)

// ReturnCode is the status carried by reply messages.
type ReturnCode string

const (
	RCSuccess ReturnCode = "SUCCESS"
	RCError   ReturnCode = "ERROR"
)

// AddrWire is the on-wire representation of one L3 address.
type AddrWire struct {
	Family string `json:"family"`
	Value  string `json:"value"`
}

// Envelope is the outer frame every message is wrapped in: a type tag plus
// a raw payload the caller decodes according to that tag.
type Envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Heartbeat carries no fields in either direction.
type Heartbeat struct{}

// Resync is the outbound request that starts a total endpoint resync.
type Resync struct {
	ResyncID string `json:"resync_id"`
	Issued   int64  `json:"issued"`
	Hostname string `json:"hostname"`
}

// ResyncReply answers a Resync request.
type ResyncReply struct {
	RC            ReturnCode `json:"rc"`
	Message       string     `json:"message,omitempty"`
	EndpointCount int        `json:"endpoint_count"`
}

// EndpointCreated announces a new or re-declared endpoint.
type EndpointCreated struct {
	EndpointID string     `json:"endpoint_id"`
	ResyncID   *string    `json:"resync_id,omitempty"`
	Issued     int64      `json:"issued"`
	MAC        string     `json:"mac"`
	State      string     `json:"state"`
	Addrs      []AddrWire `json:"addrs"`
}

// EndpointUpdated carries the same fields as EndpointCreated minus ResyncID.
type EndpointUpdated struct {
	EndpointID string     `json:"endpoint_id"`
	Issued     int64      `json:"issued"`
	MAC        string     `json:"mac"`
	State      string     `json:"state"`
	Addrs      []AddrWire `json:"addrs"`
}

// EndpointDestroyed announces removal of an endpoint.
type EndpointDestroyed struct {
	EndpointID string `json:"endpoint_id"`
	Issued     int64  `json:"issued"`
}

// GetACLState requests the current ACL state for one endpoint.
type GetACLState struct {
	EndpointID string `json:"endpoint_id"`
	Issued     int64  `json:"issued"`
}

// GetACLStateReply answers a GetACLState request.
type GetACLStateReply struct {
	RC      ReturnCode `json:"rc"`
	Message string     `json:"message,omitempty"`
}

// ACLUpdate is published for one endpoint's ACL set.
type ACLUpdate struct {
	EndpointID string   `json:"endpoint_id"`
	ACLs       []string `json:"acls"`
}

// Reply is the generic {rc, message} acknowledgement used by EP_REP for
// ENDPOINTCREATED and ENDPOINTUPDATED.
type Reply struct {
	RC      ReturnCode `json:"rc"`
	Message string     `json:"message,omitempty"`
}

// Encode wraps a typed payload in an Envelope ready for transmission.
func Encode(kind Kind, v interface{}) (Envelope, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, errors.Wrapf(err, "encode %s payload", kind)
	}
	return Envelope{Type: kind, Payload: raw}, nil
}

// Decode unmarshals the envelope's payload into a freshly-typed value
// matching its Kind. Unknown kinds and malformed payloads are errors; the
// dispatcher is expected to log and drop rather than propagate them.
func Decode(env Envelope) (interface{}, error) {
	switch env.Type {
	case KindHeartbeat:
		return Heartbeat{}, nil
	case KindResync:
		var v Resync
		return v, unmarshal(env, &v)
	case KindResyncReply:
		var v ResyncReply
		return v, unmarshal(env, &v)
	case KindEndpointCreated:
		var v EndpointCreated
		return v, unmarshal(env, &v)
	case KindEndpointUpdated:
		var v EndpointUpdated
		return v, unmarshal(env, &v)
	case KindEndpointDestroyed:
		var v EndpointDestroyed
		return v, unmarshal(env, &v)
	case KindGetACLState:
		var v GetACLState
		return v, unmarshal(env, &v)
	case KindGetACLStateReply:
		var v GetACLStateReply
		return v, unmarshal(env, &v)
	case KindACLUpdate:
		var v ACLUpdate
		return v, unmarshal(env, &v)
	case KindGenericReply:
		var v Reply
		return v, unmarshal(env, &v)
	default:
		return nil, fmt.Errorf("unknown message kind %q", env.Type)
	}
}

func unmarshal(env Envelope, v interface{}) error {
	if len(env.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return errors.Wrapf(err, "decode %s payload", env.Type)
	}
	return nil
}
