//go:build linux && cgo

package agent

import (
	"context"

	"github.com/rancher/netagentd/internal/socket"
	"github.com/rancher/netagentd/internal/socket/zmqsocket"
)

func dialSockets(ctx context.Context, epAddr, aclAddr, hostname string) (socket.Set, error) {
	epReq, err := zmqsocket.New(socket.RoleEPReq, epAddr, livenessWindow)
	if err != nil {
		return socket.Set{}, err
	}
	epRep, err := zmqsocket.New(socket.RoleEPRep, epAddr, livenessWindow)
	if err != nil {
		return socket.Set{}, err
	}
	aclReq, err := zmqsocket.New(socket.RoleACLReq, aclAddr, livenessWindow)
	if err != nil {
		return socket.Set{}, err
	}
	aclSub, err := zmqsocket.New(socket.RoleACLSub, aclAddr, livenessWindow)
	if err != nil {
		return socket.Set{}, err
	}

	set := socket.Set{EPReq: epReq, EPRep: epRep, ACLReq: aclReq, ACLSub: aclSub}
	for _, s := range set.All() {
		if err := s.Communicate(ctx, hostname); err != nil {
			return socket.Set{}, err
		}
	}
	return set, nil
}
