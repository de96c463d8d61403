package resync

import (
	"testing"
	"time"
)

func TestBeginTransitionsToAwaitingReply(t *testing.T) {
	c := New()
	if c.InFlight() {
		t.Fatal("fresh controller should not be in flight")
	}
	id := c.Begin()
	if id == "" {
		t.Fatal("Begin returned empty resync_id")
	}
	if c.State() != AwaitingReply {
		t.Fatalf("State() = %v, want AwaitingReply", c.State())
	}
	if !c.InFlight() {
		t.Fatal("InFlight() false after Begin")
	}
}

func TestReplyEmptyFleetCompletesImmediately(t *testing.T) {
	c := New()
	c.Begin()
	completed, successful := c.OnReply(true, 0)
	if !completed || !successful {
		t.Fatalf("OnReply(true, 0) = %v, %v; want true, true", completed, successful)
	}
	if c.InFlight() {
		t.Fatal("resync still in flight after empty-fleet completion")
	}
}

func TestReplyFailureCompletesUnsuccessfully(t *testing.T) {
	c := New()
	c.Begin()
	completed, successful := c.OnReply(false, 0)
	if !completed || successful {
		t.Fatalf("OnReply(false, 0) = %v, %v; want true, false", completed, successful)
	}
}

func TestCreateBeforeReplyRace(t *testing.T) {
	c := New()
	c.Begin()

	completed, _ := c.OnEndpointCreated()
	if completed {
		t.Fatal("single create before reply should not complete yet")
	}

	completed, successful := c.OnReply(true, 1)
	if !completed || !successful {
		t.Fatalf("OnReply(true,1) after 1 create = %v, %v; want true, true", completed, successful)
	}
}

func TestReplyBeforeCreateRace(t *testing.T) {
	c := New()
	c.Begin()

	completed, _ := c.OnReply(true, 1)
	if completed {
		t.Fatal("reply promising 1 endpoint should not complete before it arrives")
	}
	if c.State() != Collecting {
		t.Fatalf("State() = %v, want Collecting", c.State())
	}

	completed, successful := c.OnEndpointCreated()
	if !completed || !successful {
		t.Fatalf("OnEndpointCreated after reply = %v, %v; want true, true", completed, successful)
	}
}

func TestOvershootStillCompletes(t *testing.T) {
	c := New()
	c.Begin()
	// simulate the protocol violation: two creates arrive for one expected,
	// both ahead of the reply.
	c.OnEndpointCreated()
	c.OnEndpointCreated()
	completed, successful := c.OnReply(true, 1)
	if !completed || !successful {
		t.Fatalf("reply after overshoot = %v, %v; want true, true (endpoint_count <= recd)", completed, successful)
	}
}

func TestDueRespectsInFlightAndInterval(t *testing.T) {
	c := New()
	now := time.Now()
	if !c.Due(time.Second, now) {
		t.Fatal("fresh controller with zero resyncTime should be due")
	}
	c.Begin()
	if c.Due(time.Second, now) {
		t.Fatal("in-flight resync should never be due")
	}
}
