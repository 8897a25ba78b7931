package server

import (
	"encoding/binary"
	"net"
	"strconv"
	"strings"
)

// Policy is the server-wide allow/deny snapshot consulted by the accept
// loop before a connection is handed to a session. It is immutable
// once built; reloading policy means constructing a new Policy and
// swapping the dispatcher's reference to it, never mutating the lists
// in place while sessions might be reading them.
type Policy struct {
	allow map[uint32]struct{}
	deny  map[uint32]struct{}
}

// NewPolicy builds a Policy from textual IPv4 address lists. Each entry
// is either a full dotted-quad address or a CIDR-less network prefix
// (one to three leading octets, e.g. "192.168.1" for the
// 192.168.1.0/24 network) — the same `--addr_allowed`/`--addr_denied`
// grammar the original server's `parse_addr` accepted. An empty allow
// list means "all permitted".
func NewPolicy(allowed, denied []string) *Policy {
	p := &Policy{allow: make(map[uint32]struct{}), deny: make(map[uint32]struct{})}
	for _, a := range allowed {
		if key, ok := ipv4Key(a); ok {
			p.allow[key] = struct{}{}
		}
	}
	for _, d := range denied {
		if key, ok := ipv4Key(d); ok {
			p.deny[key] = struct{}{}
		}
	}
	return p
}

// ipv4Key parses addr as either a full IPv4 address or a CIDR-less
// network prefix, returning its big-endian uint32 form. A prefix with
// fewer than four octets has its missing trailing octets treated as
// zero, the way "192.168.1" denotes the 192.168.1.0 network without
// CIDR notation.
func ipv4Key(addr string) (uint32, bool) {
	if ip := net.ParseIP(addr).To4(); ip != nil {
		return binary.BigEndian.Uint32(ip), true
	}

	parts := strings.Split(addr, ".")
	if len(parts) == 0 || len(parts) > 4 {
		return 0, false
	}
	var octets [4]byte
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 255 {
			return 0, false
		}
		octets[i] = byte(n)
	}
	return binary.BigEndian.Uint32(octets[:]), true
}

// networkPrefix masks key to its containing /24 network, mirroring
// get_network_prefix's 255.255.255.0 mask.
func networkPrefix(key uint32) uint32 {
	return key &^ 0xff
}

// Permit reports whether a connection from addr should be accepted: it
// must not be in the deny list and, when the allow list is non-empty,
// must match it either by exact address or by its containing /24
// network — is_allow_address's exact-or-network check. The deny list,
// like is_deny_address, only ever matches by exact address.
func (p *Policy) Permit(addr net.Addr) bool {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		host = addr.String()
	}
	key, ok := ipv4Key(host)
	if !ok {
		return false
	}

	if _, denied := p.deny[key]; denied {
		return false
	}
	if len(p.allow) == 0 {
		return true
	}
	if _, allowed := p.allow[key]; allowed {
		return true
	}
	_, allowed := p.allow[networkPrefix(key)]
	return allowed
}

// Size reports (allowCount, denyCount) for status reporting.
func (p *Policy) Size() (int, int) {
	return len(p.allow), len(p.deny)
}
