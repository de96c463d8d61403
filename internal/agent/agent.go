// Package agent implements the event loop and dispatcher: the
// orchestrator that wires the transport sockets, endpoint registry,
// request queues, resync controller and packet-filter shim together
// into a single cooperative loop.
package agent

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rancher/netagentd/internal/message"
	"github.com/rancher/netagentd/internal/queue"
	"github.com/rancher/netagentd/internal/registry"
	"github.com/rancher/netagentd/internal/resync"
	"github.com/rancher/netagentd/internal/rules"
	"github.com/rancher/netagentd/internal/socket"
)

// Config holds the agent's tunable parameters.
type Config struct {
	Hostname       string
	ResyncInterval time.Duration
	PollTimeout    time.Duration
}

// DefaultPollTimeout matches the 2000ms poll deadline specified for the
// event loop.
const DefaultPollTimeout = 2000 * time.Millisecond

// Agent is the single process-wide actor: it owns its sockets, registry
// and queues, and runs as one event loop with no internal locking.
type Agent struct {
	sockets socket.Set
	reg     *registry.Registry
	epQueue *queue.Queue
	aclQueue *queue.Queue
	resync  *resync.Controller
	shim    rules.Shim
	cfg     Config

	endpointResyncNeeded bool
	aclResyncNeeded      bool
}

// New constructs an Agent over the given sockets and packet-filter shim.
func New(sockets socket.Set, shim rules.Shim, cfg Config) *Agent {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	return &Agent{
		sockets: sockets,
		reg:     registry.New(),
		epQueue: queue.New(0),
		aclQueue: queue.New(0),
		resync:  resync.New(),
		shim:    shim,
		cfg:     cfg,
	}
}

// Registry exposes the endpoint registry, mainly for tests and metrics.
func (a *Agent) Registry() *registry.Registry { return a.reg }

// Start installs the host-global baseline rules and kicks off the initial
// total resync; no ACL resync is issued here since the endpoint resync
// that follows triggers a GETACLSTATE per endpoint on its own.
func (a *Agent) Start() error {
	if err := a.shim.SetGlobalRules(); err != nil {
		return err
	}
	a.resyncEndpoints()
	return nil
}

// Run drives the event loop until ctx is cancelled. Every tick performs
// one Step; the loop itself never exits on error.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.Start(); err != nil {
		return err
	}
	ticker := time.NewTicker(a.cfg.PollTimeout)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.Step()
		}
	}
}

// Step runs one iteration of the loop body.
func (a *Agent) Step() {
	a.receiveAndDispatch(a.sockets.EPReq)
	a.receiveAndDispatch(a.sockets.EPRep)
	a.receiveAndDispatch(a.sockets.ACLReq)
	a.receiveAndDispatch(a.sockets.ACLSub)

	a.checkTimeouts()

	a.drainQueue(a.sockets.EPReq, a.epQueue, "EP_REQ")
	a.drainQueue(a.sockets.ACLReq, a.aclQueue, "ACL_REQ")

	if a.resync.Due(a.cfg.ResyncInterval, time.Now()) {
		a.endpointResyncNeeded = true
	}

	switch {
	case a.endpointResyncNeeded:
		a.endpointResyncNeeded = false
		a.aclResyncNeeded = false
		a.resyncEndpoints()
	case a.aclResyncNeeded:
		a.aclResyncNeeded = false
		a.resyncACLs()
	}

	endpointsRegistered.Set(float64(a.reg.Len()))
}

func (a *Agent) receiveAndDispatch(sock socket.Socket) {
	env, ok, err := sock.Receive()
	if err != nil {
		logrus.WithError(err).WithField("socket", sock.Role()).Error("socket receive failed")
		return
	}
	if !ok {
		return
	}
	msg, err := message.Decode(env)
	if err != nil {
		logrus.WithError(err).WithField("socket", sock.Role()).Warn("dropping malformed message")
		return
	}
	a.dispatch(sock, msg)
}

func (a *Agent) dispatch(sock socket.Socket, msg interface{}) {
	switch v := msg.(type) {
	case message.Heartbeat:
		a.handleHeartbeat()
	case message.ResyncReply:
		a.handleResyncReply(v)
	case message.EndpointCreated:
		a.handleEndpointCreated(v)
	case message.EndpointUpdated:
		a.handleEndpointUpdated(v)
	case message.EndpointDestroyed:
		a.handleEndpointDestroyed(v)
	case message.GetACLStateReply:
		a.handleGetACLStateReply(v)
	case message.ACLUpdate:
		a.handleACLUpdate(v)
	default:
		logrus.WithField("socket", sock.Role()).Warnf("unexpected message type %T", msg)
	}
}

func (a *Agent) handleHeartbeat() {
	env, err := message.Encode(message.KindHeartbeat, message.Heartbeat{})
	if err != nil {
		logrus.WithError(err).Error("encode heartbeat reply")
		return
	}
	if err := a.sockets.EPRep.Send(env); err != nil {
		logrus.WithError(err).Error("send heartbeat reply")
	}
}

func (a *Agent) handleEndpointCreated(msg message.EndpointCreated) {
	ep, unknown := a.upsertEndpoint(msg.EndpointID, msg.MAC, msg.State, msg.Addrs, msg.ResyncID)
	a.replyOnEPRep(message.RCSuccess, "")

	if unknown {
		a.requestACLState(ep)
	}

	if msg.ResyncID != nil && *msg.ResyncID == a.resync.ResyncID() {
		completed, successful := a.resync.OnEndpointCreated()
		if completed {
			a.completeResync(successful)
		}
	}
	ep.PendingResync = false
}

func (a *Agent) handleEndpointUpdated(msg message.EndpointUpdated) {
	a.upsertEndpoint(msg.EndpointID, msg.MAC, msg.State, msg.Addrs, nil)
	a.replyOnEPRep(message.RCSuccess, "")
}

// upsertEndpoint creates the endpoint if unknown, subscribing before any
// outbound request can reference it, then applies the mac/address/state
// update via the packet-filter shim. A non-nil resyncID on an endpoint
// that already existed is logged as a warning but otherwise tolerated.
func (a *Agent) upsertEndpoint(id, mac, state string, addrs []message.AddrWire, resyncID *string) (*registry.Endpoint, bool) {
	ep := a.reg.Get(id)
	unknown := ep == nil
	if unknown {
		ep = registry.NewEndpoint(id)
		a.reg.Insert(ep)
		if err := a.sockets.ACLSub.Subscribe(id); err != nil {
			logrus.WithError(err).WithField("endpoint", id).Error("subscribe failed")
		}
	} else if resyncID != nil {
		logrus.WithField("endpoint", id).Warn("resync_id present on update for already-known endpoint")
	}

	ep.MAC = mac
	ep.State = state
	ep.Addresses = ep.Addresses[:0]
	for _, addr := range addrs {
		ep.Addresses = append(ep.Addresses, registry.ParseAddress(addr.Value))
	}

	if err := a.shim.ProgramEndpoint(ep); err != nil {
		logrus.WithError(err).WithField("endpoint", id).Error("program endpoint failed")
	}
	return ep, unknown
}

func (a *Agent) handleEndpointDestroyed(msg message.EndpointDestroyed) {
	ep := a.reg.Get(msg.EndpointID)
	if ep == nil {
		logrus.WithField("endpoint", msg.EndpointID).Error("destroy for unknown endpoint")
		return
	}
	a.reg.Remove(msg.EndpointID)
	if err := a.sockets.ACLSub.Unsubscribe(msg.EndpointID); err != nil {
		logrus.WithError(err).WithField("endpoint", msg.EndpointID).Error("unsubscribe failed")
	}
	if err := a.shim.RemoveEndpoint(ep); err != nil {
		logrus.WithError(err).WithField("endpoint", msg.EndpointID).Error("remove endpoint rules failed")
	}
}

func (a *Agent) handleResyncReply(msg message.ResyncReply) {
	success := msg.RC == message.RCSuccess
	if !success {
		logrus.WithField("message", msg.Message).Warn("upstream rejected resync")
	}
	completed, successful := a.resync.OnReply(success, msg.EndpointCount)
	if completed {
		a.completeResync(successful)
	}
}

func (a *Agent) handleGetACLStateReply(msg message.GetACLStateReply) {
	if msg.RC != message.RCSuccess {
		logrus.WithField("message", msg.Message).Error("upstream rejected GETACLSTATE")
	}
}

func (a *Agent) handleACLUpdate(msg message.ACLUpdate) {
	ep := a.reg.Get(msg.EndpointID)
	if ep == nil {
		// Race between unsubscribe and an in-flight publish: drop silently.
		return
	}
	ep.ACLs = msg.ACLs
	ep.NeedACLs = false
	if err := a.shim.UpdateACLs(ep); err != nil {
		logrus.WithError(err).WithField("endpoint", ep.ID).Error("apply acls failed")
	}
}

func (a *Agent) completeResync(successful bool) {
	outcome := "failure"
	if successful {
		outcome = "success"
		for _, id := range a.reg.PendingResyncIDs() {
			ep := a.reg.Get(id)
			a.reg.Remove(id)
			if err := a.sockets.ACLSub.Unsubscribe(id); err != nil {
				logrus.WithError(err).WithField("endpoint", id).Error("unsubscribe failed during prune")
			}
			if err := a.shim.RemoveEndpoint(ep); err != nil {
				logrus.WithError(err).WithField("endpoint", id).Error("remove endpoint rules failed during prune")
			}
		}
		if err := rules.Reconcile(a.shim, a.reg.Suffixes()); err != nil {
			logrus.WithError(err).Error("rule reconciliation failed")
		}
	}
	resyncsCompleted.WithLabelValues(outcome).Inc()
}

func (a *Agent) resyncEndpoints() {
	id := a.resync.Begin()
	a.reg.MarkAllPendingResync()
	a.epQueue.Clear()
	a.aclQueue.Clear()

	env, err := message.Encode(message.KindResync, message.Resync{
		ResyncID: id,
		Issued:   time.Now().UnixMilli(),
		Hostname: a.cfg.Hostname,
	})
	if err != nil {
		logrus.WithError(err).Error("encode resync request")
		return
	}
	a.sendRequest(a.sockets.EPReq, a.epQueue, env)
}

func (a *Agent) resyncACLs() {
	a.aclQueue.Clear()
	for _, ep := range a.reg.All() {
		a.requestACLState(ep)
	}
}

func (a *Agent) requestACLState(ep *registry.Endpoint) {
	ep.NeedACLs = true
	env, err := message.Encode(message.KindGetACLState, message.GetACLState{
		EndpointID: ep.ID,
		Issued:     time.Now().UnixMilli(),
	})
	if err != nil {
		logrus.WithError(err).WithField("endpoint", ep.ID).Error("encode getaclstate request")
		return
	}
	a.sendRequest(a.sockets.ACLReq, a.aclQueue, env)
}

func (a *Agent) sendRequest(sock socket.Socket, q *queue.Queue, env message.Envelope) {
	if !sock.RequestOutstanding() {
		if err := sock.Send(env); err != nil {
			logrus.WithError(err).WithField("socket", sock.Role()).Error("send failed")
		}
		return
	}
	q.Push(env)
}

func (a *Agent) drainQueue(sock socket.Socket, q *queue.Queue, label string) {
	requestQueueDepth.WithLabelValues(label).Set(float64(q.Len()))
	if sock.RequestOutstanding() {
		return
	}
	item, ok := q.Pop()
	if !ok {
		return
	}
	env, ok := item.(message.Envelope)
	if !ok {
		return
	}
	if err := sock.Send(env); err != nil {
		logrus.WithError(err).WithField("socket", sock.Role()).Error("drain send failed")
	}
}

func (a *Agent) replyOnEPRep(rc message.ReturnCode, msg string) {
	env, err := message.Encode(message.KindGenericReply, message.Reply{RC: rc, Message: msg})
	if err != nil {
		logrus.WithError(err).Error("encode reply")
		return
	}
	if err := a.sockets.EPRep.Send(env); err != nil {
		logrus.WithError(err).Error("send reply")
	}
}

func (a *Agent) checkTimeouts() {
	a.checkTimeout(a.sockets.EPReq, "EP_REQ", &a.endpointResyncNeeded, a.epQueue)
	a.checkTimeout(a.sockets.EPRep, "EP_REP", &a.endpointResyncNeeded, a.epQueue)
	a.checkTimeout(a.sockets.ACLReq, "ACL_REQ", &a.aclResyncNeeded, a.aclQueue)
	a.checkTimeout(a.sockets.ACLSub, "ACL_SUB", &a.aclResyncNeeded, a.aclQueue)
}

func (a *Agent) checkTimeout(sock socket.Socket, label string, resyncNeeded *bool, q *queue.Queue) {
	if !sock.TimedOut() {
		return
	}
	logrus.WithField("socket", label).Warn("socket timed out, reconnecting")
	socketReconnects.WithLabelValues(label).Inc()
	if err := sock.Close(); err != nil {
		logrus.WithError(err).WithField("socket", label).Error("close failed")
	}
	if err := sock.Communicate(context.Background(), a.cfg.Hostname); err != nil {
		logrus.WithError(err).WithField("socket", label).Error("reconnect failed")
	}
	*resyncNeeded = true
	q.Clear()
}
