package addrutil

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// NormalizeTarget validates a "host:port" routing target and returns it in canonical form.
//
// Bracketed and unbracketed IPv6 forms are both accepted; the result always brackets
// IPv6 hosts so it can be fed straight back into net.Dial.
func NormalizeTarget(target string) (string, error) {
	host, port, err := splitTarget(target)
	if err != nil {
		return "", err
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return "", fmt.Errorf("target %q: invalid port %q", target, port)
	}
	if strings.ContainsAny(host, " /\\") {
		return "", fmt.Errorf("target %q: invalid host", target)
	}
	return net.JoinHostPort(host, strconv.Itoa(n)), nil
}

func splitTarget(target string) (string, string, error) {
	t := strings.TrimSpace(target)
	if t == "" {
		return "", "", fmt.Errorf("target is required")
	}

	// Fast path: "host:port" (IPv4, hostname or bracketed IPv6).
	if h, p, err := net.SplitHostPort(t); err == nil {
		if h == "" {
			return "", "", fmt.Errorf("target %q: missing host", target)
		}
		return h, p, nil
	}

	// Unbracketed IPv6 "host:port": peel off the last ":port".
	if strings.Count(t, ":") > 1 && !strings.HasPrefix(t, "[") {
		if last := strings.LastIndexByte(t, ':'); last > 0 && last < len(t)-1 {
			host := t[:last]
			if net.ParseIP(host) != nil {
				return host, t[last+1:], nil
			}
		}
	}

	return "", "", fmt.Errorf("target %q: expected host:port", target)
}
