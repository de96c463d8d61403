//go:build linux && cgo

// Package zmqsocket backs the socket.Socket interface with real ZeroMQ
// REQ/REP/PUB/SUB sockets. It is gated behind a build tag so that any
// package depending on it never pulls in cgo on platforms that lack it.
package zmqsocket

import (
	"context"
	"encoding/json"
	"syscall"
	"time"

	zmq "github.com/pebbe/zmq4"

	"github.com/rancher/netagentd/internal/message"
	"github.com/rancher/netagentd/internal/socket"
)

// Socket wraps a single zmq4 socket for one Role.
type Socket struct {
	role     socket.Role
	endpoint string
	liveness time.Duration

	sock        *zmq.Socket
	lastTraffic time.Time

	requestOutstanding bool
}

// New opens a zmq4 socket of the type appropriate for role, connected (or
// bound, for REP) to endpoint.
func New(role socket.Role, endpoint string, liveness time.Duration) (*Socket, error) {
	zmqType := zmqTypeFor(role)
	ctx, err := zmq.NewContext()
	if err != nil {
		return nil, err
	}
	sock, err := ctx.NewSocket(zmqType)
	if err != nil {
		return nil, err
	}

	s := &Socket{role: role, endpoint: endpoint, liveness: liveness, sock: sock, lastTraffic: time.Now()}
	if role == socket.RoleEPRep {
		err = sock.Bind(endpoint)
	} else {
		err = sock.Connect(endpoint)
	}
	if err != nil {
		return nil, err
	}
	if err := sock.SetRcvtimeo(0); err != nil {
		return nil, err
	}
	return s, nil
}

func zmqTypeFor(role socket.Role) zmq.Type {
	switch role {
	case socket.RoleEPReq, socket.RoleACLReq:
		return zmq.REQ
	case socket.RoleEPRep:
		return zmq.REP
	case socket.RoleACLSub:
		return zmq.SUB
	default:
		return zmq.REQ
	}
}

func (s *Socket) Role() socket.Role { return s.role }

func (s *Socket) Send(env message.Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if _, err := s.sock.SendBytes(raw, zmq.DONTWAIT); err != nil {
		return err
	}
	if s.isREQ() {
		s.requestOutstanding = true
	}
	s.lastTraffic = time.Now()
	return nil
}

func (s *Socket) Receive() (message.Envelope, bool, error) {
	raw, err := s.sock.RecvBytes(zmq.DONTWAIT)
	if err != nil {
		if errno, ok := err.(zmq.Errno); ok && errno == zmq.Errno(syscall.EAGAIN) {
			return message.Envelope{}, false, nil
		}
		return message.Envelope{}, false, err
	}
	var env message.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return message.Envelope{}, false, err
	}
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

func (s *Socket) Close() error {
	s.requestOutstanding = false
	return s.sock.Close()
}

func (s *Socket) Communicate(_ context.Context, _ string) error {
	s.lastTraffic = time.Now()
	if s.role == socket.RoleEPRep {
		return s.sock.Bind(s.endpoint)
	}
	return s.sock.Connect(s.endpoint)
}

func (s *Socket) Subscribe(topic string) error {
	if s.role != socket.RoleACLSub {
		return nil
	}
	return s.sock.SetSubscribe(topic)
}

func (s *Socket) Unsubscribe(topic string) error {
	if s.role != socket.RoleACLSub {
		return nil
	}
	return s.sock.SetUnsubscribe(topic)
}

func (s *Socket) isREQ() bool {
	return s.role == socket.RoleEPReq || s.role == socket.RoleACLReq
}
