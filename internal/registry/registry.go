// Package registry holds the in-memory authority for which endpoints this
// host currently claims to manage: the Endpoint Registry of the agent core.
package registry

import (
	"crypto/sha256"
	"encoding/base32"
	"net"
	"strings"
)

// AddrFamily tags an L3 address as IPv4 or IPv6.
type AddrFamily int

const (
	AddrFamilyUnknown AddrFamily = iota
	AddrFamilyIPv4
	AddrFamilyIPv6
)

func (f AddrFamily) String() string {
	switch f {
	case AddrFamilyIPv4:
		return "inet"
	case AddrFamilyIPv6:
		return "inet6"
	default:
		return "unknown"
	}
}

// Address is one L3 address with its parsed family.
type Address struct {
	Family AddrFamily
	Value  string
}

// ParseAddress derives the family tag from the textual address, the way a
// real packet-filter shim needs to know which iptables family to target.
func ParseAddress(value string) Address {
	ip := net.ParseIP(value)
	switch {
	case ip == nil:
		return Address{Family: AddrFamilyUnknown, Value: value}
	case ip.To4() != nil:
		return Address{Family: AddrFamilyIPv4, Value: value}
	default:
		return Address{Family: AddrFamilyIPv6, Value: value}
	}
}

// Endpoint is a single virtual NIC this host manages.
type Endpoint struct {
	ID            string
	Suffix        string
	MAC           string
	Addresses     []Address
	State         string
	PendingResync bool
	NeedACLs      bool
	ACLs          []string
}

// DeriveSuffix computes the short, iptables-chain-safe handle for an
// endpoint id: a truncated, base32-encoded sha256 digest, the same hashing
// idiom used to stamp rule-identifying comments onto installed chains.
func DeriveSuffix(id string) string {
	sum := sha256.Sum256([]byte(id))
	encoded := base32.StdEncoding.EncodeToString(sum[:])
	encoded = strings.TrimRight(encoded, "=")
	if len(encoded) > 16 {
		encoded = encoded[:16]
	}
	return encoded
}

// NewEndpoint constructs an Endpoint with its suffix derived from id.
func NewEndpoint(id string) *Endpoint {
	return &Endpoint{ID: id, Suffix: DeriveSuffix(id)}
}

// Registry is the map id -> Endpoint. It is not safe for concurrent use;
// the agent's single-threaded event loop is its only caller.
type Registry struct {
	endpoints map[string]*Endpoint
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{endpoints: make(map[string]*Endpoint)}
}

// Get returns the endpoint for id, or nil if unknown.
func (r *Registry) Get(id string) *Endpoint {
	return r.endpoints[id]
}

// Insert adds a newly-learned endpoint. Callers are responsible for
// pairing this with a SUB-subscribe.
func (r *Registry) Insert(ep *Endpoint) {
	r.endpoints[ep.ID] = ep
}

// Remove drops id from the registry if present, reporting whether it was.
// Callers are responsible for pairing this with a SUB-unsubscribe.
func (r *Registry) Remove(id string) bool {
	if _, ok := r.endpoints[id]; !ok {
		return false
	}
	delete(r.endpoints, id)
	return true
}

// Len reports the number of known endpoints.
func (r *Registry) Len() int {
	return len(r.endpoints)
}

// All returns every endpoint in unspecified order.
func (r *Registry) All() []*Endpoint {
	out := make([]*Endpoint, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		out = append(out, ep)
	}
	return out
}

// MarkAllPendingResync sets PendingResync=true on every known endpoint,
// the first step of starting a fresh resync.
func (r *Registry) MarkAllPendingResync() {
	for _, ep := range r.endpoints {
		ep.PendingResync = true
	}
}

// PendingResyncIDs returns the ids of every endpoint still marked
// PendingResync — the set resync completion must prune.
func (r *Registry) PendingResyncIDs() []string {
	var ids []string
	for id, ep := range r.endpoints {
		if ep.PendingResync {
			ids = append(ids, id)
		}
	}
	return ids
}

// Suffixes returns the suffix set of every currently-registered endpoint —
// the set installed packet-filter rule chains must exactly match.
func (r *Registry) Suffixes() map[string]bool {
	out := make(map[string]bool, len(r.endpoints))
	for _, ep := range r.endpoints {
		out[ep.Suffix] = true
	}
	return out
}
