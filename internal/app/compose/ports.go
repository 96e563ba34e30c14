package compose

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// PortRange is an inclusive range of ports; a single port has Start == End.
type PortRange struct {
	Start int
	End   int
}

// Len returns the number of ports in the range.
func (r PortRange) Len() int {
	if r.Start == 0 {
		return 0
	}
	return r.End - r.Start + 1
}

func (r PortRange) String() string {
	if r.Start == r.End {
		return strconv.Itoa(r.Start)
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// PortMapping is a parsed port entry.
// Zero Published means the runtime picks the host port.
type PortMapping struct {
	HostIP    string
	Published PortRange
	Target    PortRange
	Protocol  string
}

var protocols = map[string]bool{"tcp": true, "udp": true, "sctp": true}

// Mapping parses the entry whichever syntax it is written in.
func (p Port) Mapping() (PortMapping, error) {
	if p.Short != "" {
		return ParsePort(p.Short)
	}
	if p.Target == 0 {
		return PortMapping{}, fmt.Errorf("port target is required")
	}
	spec := strconv.Itoa(p.Target)
	if p.Published != "" {
		spec = p.Published + ":" + spec
	} else if p.HostIP != "" {
		spec = ":" + spec
	}
	if p.HostIP != "" {
		ip := p.HostIP
		if strings.Contains(ip, ":") {
			ip = "[" + ip + "]"
		}
		spec = ip + ":" + spec
	}
	if p.Protocol != "" {
		spec += "/" + p.Protocol
	}
	return ParsePort(spec)
}

// ParsePort parses the short port syntax: [[ip:][host]:]container[/protocol].
// Both host and container may be ranges such as 9000-9001.
func ParsePort(s string) (PortMapping, error) {
	var m PortMapping
	spec := strings.TrimSpace(s)
	if spec == "" {
		return m, fmt.Errorf("empty port mapping")
	}
	m.Protocol = "tcp"
	if i := strings.LastIndex(spec, "/"); i >= 0 {
		m.Protocol = strings.ToLower(spec[i+1:])
		spec = spec[:i]
		if !protocols[m.Protocol] {
			return m, fmt.Errorf("invalid protocol %q in %q", m.Protocol, s)
		}
	}
	var parts []string
	if strings.HasPrefix(spec, "[") {
		end := strings.Index(spec, "]")
		if end < 0 || len(spec) < end+2 || spec[end+1] != ':' {
			return m, fmt.Errorf("invalid host ip in %q", s)
		}
		m.HostIP = spec[1:end]
		parts = strings.Split(spec[end+2:], ":")
		if len(parts) != 2 {
			return m, fmt.Errorf("invalid port mapping %q", s)
		}
		parts = append([]string{m.HostIP}, parts...)
	} else {
		parts = strings.Split(spec, ":")
	}
	var host, container string
	switch len(parts) {
	case 1:
		container = parts[0]
	case 2:
		host, container = parts[0], parts[1]
	case 3:
		m.HostIP, host, container = parts[0], parts[1], parts[2]
	default:
		return m, fmt.Errorf("invalid port mapping %q", s)
	}
	if m.HostIP != "" && net.ParseIP(m.HostIP) == nil {
		return m, fmt.Errorf("invalid host ip %q in %q", m.HostIP, s)
	}
	var err error
	m.Target, err = parsePortRange(container)
	if err != nil {
		return m, fmt.Errorf("invalid container port in %q: %v", s, err)
	}
	if host != "" {
		m.Published, err = parsePortRange(host)
		if err != nil {
			return m, fmt.Errorf("invalid host port in %q: %v", s, err)
		}
		if m.Target.Len() > 1 && m.Published.Len() != m.Target.Len() {
			return m, fmt.Errorf("host and container port ranges differ in size in %q", s)
		}
	}
	return m, nil
}

// HostPorts expands the published range.
func (m PortMapping) HostPorts() []int {
	res := make([]int, 0, m.Published.Len())
	for p := m.Published.Start; p > 0 && p <= m.Published.End; p++ {
		res = append(res, p)
	}
	return res
}

func parsePortRange(s string) (PortRange, error) {
	var r PortRange
	start, end, isRange := strings.Cut(s, "-")
	var err error
	r.Start, err = parsePortNumber(start)
	if err != nil {
		return r, err
	}
	r.End = r.Start
	if isRange {
		r.End, err = parsePortNumber(end)
		if err != nil {
			return r, err
		}
		if r.End < r.Start {
			return r, fmt.Errorf("range %s is reversed", s)
		}
	}
	return r, nil
}

func parsePortNumber(s string) (int, error) {
	p, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if p < 1 || p > 65535 {
		return 0, fmt.Errorf("%d is out of range 1-65535", p)
	}
	return p, nil
}
