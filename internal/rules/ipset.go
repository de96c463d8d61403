package rules

import (
	"bytes"
	"fmt"
	"os/exec"

	"github.com/pkg/errors"
)

// IPSet wraps the ipset(8) binary, adapted from a pod/namespace-selector
// grouping tool into one keyed by endpoint suffix: each endpoint's resolved
// L3 addresses become one set per address family, so endpoint programming
// emits one match against each set instead of one rule per address.
type IPSet struct {
	path string
	Sets map[string]*Set
}

// Set is one named ipset set.
type Set struct {
	parent  *IPSet
	Name    string
	Entries []string
}

// NewIPSet locates the ipset binary and returns an empty wrapper.
func NewIPSet() (*IPSet, error) {
	path, err := exec.LookPath("ipset")
	if err != nil {
		return nil, errors.Wrap(err, "ipset binary not found")
	}
	return &IPSet{path: path, Sets: make(map[string]*Set)}, nil
}

func (s *IPSet) run(args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.Cmd{
		Path:   s.path,
		Args:   append([]string{s.path}, args...),
		Stdout: &stdout,
		Stderr: &stderr,
	}
	if err := cmd.Run(); err != nil {
		return "", errors.New(stderr.String())
	}
	return stdout.String(), nil
}

func setNameFor(endpointSuffix string) string {
	return "NETAGENT-" + endpointSuffix
}

// EnsureEndpointSet creates (if missing) the ipset set for an endpoint's
// address family and overwrites its membership with addrs.
func (s *IPSet) EnsureEndpointSet(endpointSuffix string, isIPv6 bool, addrs []string) error {
	name := setNameFor(endpointSuffix)
	set, ok := s.Sets[name]
	if !ok {
		set = &Set{parent: s, Name: name}
		s.Sets[name] = set
	}

	createArgs := []string{"create", "-exist", name, "hash:ip"}
	if isIPv6 {
		createArgs = append(createArgs, "family", "inet6")
	}
	if _, err := s.run(createArgs...); err != nil {
		return fmt.Errorf("create ipset %s: %w", name, err)
	}

	if _, err := s.run("flush", name); err != nil {
		return fmt.Errorf("flush ipset %s: %w", name, err)
	}
	set.Entries = nil
	for _, addr := range addrs {
		if _, err := s.run("add", "-exist", name, addr); err != nil {
			return fmt.Errorf("add %s to ipset %s: %w", addr, name, err)
		}
		set.Entries = append(set.Entries, addr)
	}
	return nil
}

// Destroy removes the ipset set for an endpoint, if present.
func (s *IPSet) Destroy(endpointSuffix string) error {
	name := setNameFor(endpointSuffix)
	if _, ok := s.Sets[name]; !ok {
		return nil
	}
	if _, err := s.run("destroy", name); err != nil {
		return fmt.Errorf("destroy ipset %s: %w", name, err)
	}
	delete(s.Sets, name)
	return nil
}

// Names lists every set name currently tracked, mainly for tests.
func (s *IPSet) Names() []string {
	out := make([]string, 0, len(s.Sets))
	for n := range s.Sets {
		out = append(out, n)
	}
	return out
}

// MatchSpec returns the iptables match fragment referencing this
// endpoint's ipset, for embedding into a rule-spec built elsewhere.
func MatchSpec(endpointSuffix string) []string {
	return []string{"-m", "set", "--match-set", setNameFor(endpointSuffix), "src"}
}
