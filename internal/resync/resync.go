// Package resync implements the total-endpoint resynchronization state
// machine: Idle, Awaiting-Reply, Collecting.
package resync

import (
	"time"

	"github.com/google/uuid"
)

// State names one of the three resync phases.
type State int

const (
	// Idle means no resync is in flight.
	Idle State = iota
	// AwaitingReply means a RESYNC request has been sent but no reply
	// has arrived yet.
	AwaitingReply
	// Collecting means the RESYNC reply arrived promising more
	// ENDPOINTCREATED messages than have been received so far.
	Collecting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingReply:
		return "awaiting-reply"
	case Collecting:
		return "collecting"
	default:
		return "unknown"
	}
}

// Controller tracks the singleton resync context. An empty resyncID
// means no resync is in flight.
type Controller struct {
	state      State
	resyncID   string
	recd       int
	expected   *int // nil means "unknown" (not "zero")
	resyncTime time.Time
}

// New returns a Controller in the Idle state with a zero-value
// resyncTime, read as "always due" until the first completion.
func New() *Controller {
	return &Controller{state: Idle}
}

// InFlight reports whether a resync is currently outstanding.
func (c *Controller) InFlight() bool {
	return c.state != Idle
}

// State returns the current phase.
func (c *Controller) State() State {
	return c.state
}

// ResyncID returns the active token, or "" if none is in flight.
func (c *Controller) ResyncID() string {
	return c.resyncID
}

// Received returns the count of ENDPOINTCREATED messages received under
// the active resync_id.
func (c *Controller) Received() int {
	return c.recd
}

// LastResyncTime returns the timestamp of the last completion.
func (c *Controller) LastResyncTime() time.Time {
	return c.resyncTime
}

// Due reports whether a periodic resync is owed, given the configured
// interval and the current time. It never fires while a resync is already
// in flight.
func (c *Controller) Due(interval time.Duration, now time.Time) bool {
	if c.InFlight() {
		return false
	}
	return now.Sub(c.resyncTime) > interval
}

// Begin starts a new resync: Idle -> Awaiting-Reply. Returns the freshly
// allocated resync_id for the caller to stamp onto the outbound RESYNC
// request.
func (c *Controller) Begin() string {
	c.state = AwaitingReply
	c.resyncID = uuid.NewString()
	c.recd = 0
	c.expected = nil
	return c.resyncID
}

// OnReply processes a RESYNC reply. success reports whether rc==SUCCESS;
// endpointCount is the upstream's promised total. It returns the
// completion outcome and whether completion fired, so the caller can run
// the shared completion steps.
//
// endpointCount==0 and endpointCount<=recd are both treated as "done now";
// anything larger moves to Collecting.
func (c *Controller) OnReply(success bool, endpointCount int) (completed bool, successful bool) {
	if !success {
		c.reset()
		return true, false
	}
	if endpointCount == 0 || endpointCount <= c.recd {
		c.reset()
		return true, true
	}
	c.state = Collecting
	c.expected = &endpointCount
	return false, false
}

// OnEndpointCreated records one ENDPOINTCREATED received under the active
// resync_id (callers must check resyncID matches before calling — a stale
// token must not advance the counter). It reports whether this arrival
// completes the resync.
//
// The comparison is recd >= expected rather than strict equality. Since
// expected is only set when it exceeds recd and recd grows by one per
// call, both checks fire on the same arrival here; an upstream that sends
// more endpoints than promised before its reply is caught by OnReply's
// endpointCount <= recd check instead.
func (c *Controller) OnEndpointCreated() (completed bool, successful bool) {
	c.recd++
	if c.expected != nil && c.recd >= *c.expected {
		c.reset()
		return true, true
	}
	return false, false
}

func (c *Controller) reset() {
	c.state = Idle
	c.resyncID = ""
	c.recd = 0
	c.expected = nil
	c.resyncTime = time.Now()
}
