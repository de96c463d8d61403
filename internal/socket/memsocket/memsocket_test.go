package memsocket

import (
	"testing"
	"time"

	"github.com/rancher/netagentd/internal/message"
	"github.com/rancher/netagentd/internal/socket"
)

func TestReqRequestOutstanding(t *testing.T) {
	s := New(socket.RoleEPReq, 0)
	if s.RequestOutstanding() {
		t.Fatal("fresh REQ socket reports outstanding request")
	}

	env, _ := message.Encode(message.KindResync, message.Resync{ResyncID: "R1"})
	if err := s.Send(env); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !s.RequestOutstanding() {
		t.Fatal("RequestOutstanding false after Send on REQ socket")
	}

	reply, _ := message.Encode(message.KindResyncReply, message.ResyncReply{RC: message.RCSuccess})
	s.InjectInbound(reply)
	if _, ok, err := s.Receive(); err != nil || !ok {
		t.Fatalf("Receive() = ok=%v err=%v", ok, err)
	}
	if s.RequestOutstanding() {
		t.Fatal("RequestOutstanding true after Receive cleared the reply")
	}
}

func TestTimedOut(t *testing.T) {
	s := New(socket.RoleEPRep, 10*time.Millisecond)
	if s.TimedOut() {
		t.Fatal("freshly created socket should not be timed out")
	}
	time.Sleep(20 * time.Millisecond)
	if !s.TimedOut() {
		t.Fatal("socket should be timed out after liveness window elapses")
	}
	if err := s.Communicate(nil, "host"); err != nil {
		t.Fatalf("Communicate: %v", err)
	}
	if s.TimedOut() {
		t.Fatal("socket should not be timed out immediately after Communicate")
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	s := New(socket.RoleACLSub, 0)
	if s.Subscribed("e1") {
		t.Fatal("fresh socket reports a subscription")
	}
	s.Subscribe("e1")
	if !s.Subscribed("e1") {
		t.Fatal("Subscribed false after Subscribe")
	}
	s.Unsubscribe("e1")
	if s.Subscribed("e1") {
		t.Fatal("Subscribed true after Unsubscribe")
	}
}
