// Package rules implements the external packet-filter shim the agent
// calls out to: program_endpoint, remove, list_eps_with_rules,
// del_rules, set_global_rules, and per-endpoint ACL installation.
//
// One iptables chain exists per endpoint, named by its suffix, with a
// hash comment on each address-match rule. Stale chains are found by
// comparing the suffixes of installed chains against the registry's.
package rules

import (
	"crypto/sha256"
	"encoding/base32"
	"strings"

	"github.com/coreos/go-iptables/iptables"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/rancher/netagentd/internal/registry"
)

const (
	filterTable = "filter"
	chainPrefix = "NETAGENT-EP-"
	globalChain = "NETAGENT-GLOBAL"
	jumpFromFwd = "FORWARD"
)

// Shim is the interface the agent core programs the local firewall
// through. An implementation must be synchronous and bounded; the core
// never retries a failed call itself, relying on the next resync.
type Shim interface {
	SetGlobalRules() error
	ProgramEndpoint(ep *registry.Endpoint) error
	RemoveEndpoint(ep *registry.Endpoint) error
	UpdateACLs(ep *registry.Endpoint) error
	ListEndpointsWithRules() (map[string]bool, error)
	DeleteRules(suffix string) error
}

// IPTables is the Shim backed by github.com/coreos/go-iptables, with
// per-endpoint address membership tracked in ipset sets rather than one
// iptables rule per address.
type IPTables struct {
	ipt   *iptables.IPTables
	ipset *IPSet
}

// New returns an IPTables shim using the default (IPv4) iptables binary
// and the host's ipset binary.
func New() (*IPTables, error) {
	ipt, err := iptables.New()
	if err != nil {
		return nil, errors.Wrap(err, "init iptables")
	}
	ipset, err := NewIPSet()
	if err != nil {
		return nil, errors.Wrap(err, "init ipset")
	}
	return &IPTables{ipt: ipt, ipset: ipset}, nil
}

func chainName(suffix string) string {
	return chainPrefix + suffix
}

// SetGlobalRules idempotently installs the host-global baseline chain and
// its jump from FORWARD. Called once at startup.
func (s *IPTables) SetGlobalRules() error {
	if err := s.ipt.NewChain(filterTable, globalChain); err != nil && !isExists(err) {
		return errors.Wrap(err, "create global chain")
	}
	if err := s.ipt.AppendUnique(filterTable, jumpFromFwd, "-j", globalChain); err != nil {
		return errors.Wrap(err, "install global jump rule")
	}
	return nil
}

// ProgramEndpoint installs per-endpoint rules reflecting the endpoint's
// mac, addresses and admin state. Addresses are split by family into two
// ipset sets (one v4, one v6) so the chain carries at most two match
// rules regardless of how many addresses the endpoint owns.
func (s *IPTables) ProgramEndpoint(ep *registry.Endpoint) error {
	chain := chainName(ep.Suffix)
	if err := s.ipt.NewChain(filterTable, chain); err != nil && !isExists(err) {
		return errors.Wrapf(err, "create chain for endpoint %s", ep.ID)
	}
	if err := s.ipt.ClearChain(filterTable, chain); err != nil {
		return errors.Wrapf(err, "clear chain for endpoint %s", ep.ID)
	}

	var v4, v6 []string
	for _, addr := range ep.Addresses {
		if addr.Family == registry.AddrFamilyIPv6 {
			v6 = append(v6, addr.Value)
		} else {
			v4 = append(v4, addr.Value)
		}
	}

	if err := s.programFamily(chain, ep, familySuffix(ep.Suffix, false), false, v4); err != nil {
		return err
	}
	if err := s.programFamily(chain, ep, familySuffix(ep.Suffix, true), true, v6); err != nil {
		return err
	}
	return nil
}

func familySuffix(suffix string, isIPv6 bool) string {
	if isIPv6 {
		return suffix + "-6"
	}
	return suffix + "-4"
}

func (s *IPTables) programFamily(chain string, ep *registry.Endpoint, setSuffix string, isIPv6 bool, addrs []string) error {
	if len(addrs) == 0 {
		return s.ipset.Destroy(setSuffix)
	}
	if err := s.ipset.EnsureEndpointSet(setSuffix, isIPv6, addrs); err != nil {
		return errors.Wrapf(err, "program endpoint %s", ep.ID)
	}
	if ep.State != "enabled" {
		return nil
	}
	rule := append([]string{"-m", "mac", "--mac-source", ep.MAC},
		append(MatchSpec(setSuffix), "-m", "comment", "--comment", ruleComment(chain, setSuffix), "-j", "ACCEPT")...)
	if err := s.ipt.AppendUnique(filterTable, chain, rule...); err != nil {
		return errors.Wrapf(err, "program endpoint %s", ep.ID)
	}
	return nil
}

// UpdateACLs installs the endpoint's current allow/deny rule text as
// individual rules appended to its chain. Each ACL entry is expected to be
// a pre-formatted iptables rule-spec string supplied by the ACL manager.
func (s *IPTables) UpdateACLs(ep *registry.Endpoint) error {
	chain := chainName(ep.Suffix)
	for _, acl := range ep.ACLs {
		fields := strings.Fields(acl)
		if len(fields) == 0 {
			continue
		}
		if err := s.ipt.AppendUnique(filterTable, chain, fields...); err != nil {
			return errors.Wrapf(err, "apply acl for endpoint %s", ep.ID)
		}
	}
	return nil
}

// RemoveEndpoint removes an endpoint's chain entirely.
func (s *IPTables) RemoveEndpoint(ep *registry.Endpoint) error {
	return s.DeleteRules(ep.Suffix)
}

// DeleteRules removes the chain and backing ipset sets for suffix, if
// present.
func (s *IPTables) DeleteRules(suffix string) error {
	chain := chainName(suffix)
	if err := s.ipt.ClearChain(filterTable, chain); err != nil && !isExists(err) {
		return errors.Wrapf(err, "clear chain %s", chain)
	}
	if err := s.ipt.DeleteChain(filterTable, chain); err != nil && !isExists(err) {
		return errors.Wrapf(err, "delete chain %s", chain)
	}
	if err := s.ipset.Destroy(familySuffix(suffix, false)); err != nil {
		return errors.Wrapf(err, "destroy ipv4 ipset for %s", suffix)
	}
	if err := s.ipset.Destroy(familySuffix(suffix, true)); err != nil {
		return errors.Wrapf(err, "destroy ipv6 ipset for %s", suffix)
	}
	return nil
}

// ListEndpointsWithRules enumerates the suffixes of every chain this agent
// currently owns on the host, used to reconcile against the registry.
func (s *IPTables) ListEndpointsWithRules() (map[string]bool, error) {
	chains, err := s.ipt.ListChains(filterTable)
	if err != nil {
		return nil, errors.Wrap(err, "list chains")
	}
	out := make(map[string]bool)
	for _, c := range chains {
		if strings.HasPrefix(c, chainPrefix) {
			out[strings.TrimPrefix(c, chainPrefix)] = true
		}
	}
	return out, nil
}

func ruleComment(chain, addr string) string {
	sum := sha256.Sum256([]byte(chain + addr))
	return base32.StdEncoding.EncodeToString(sum[:])[:16]
}

// isExists tolerates iptables exiting with status 1, which it uses for
// "already exists" / "no such chain" on Create/Clear/Delete.
func isExists(err error) bool {
	e, ok := err.(*iptables.Error)
	return ok && e.ExitStatus() == 1
}

// Reconcile diffs installed rules against wantSuffixes and deletes rules
// for anything installed but no longer wanted.
func Reconcile(shim Shim, wantSuffixes map[string]bool) error {
	installed, err := shim.ListEndpointsWithRules()
	if err != nil {
		return errors.Wrap(err, "reconcile: list installed rules")
	}
	for suffix := range installed {
		if wantSuffixes[suffix] {
			continue
		}
		if err := shim.DeleteRules(suffix); err != nil {
			logrus.WithError(err).WithField("suffix", suffix).Error("failed to delete stale rules")
		}
	}
	return nil
}
