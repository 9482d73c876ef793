package router

import "fmt"

// Reason explains which tier produced a decision. The set is closed.
type Reason int

const (
	ReasonLowestLatencyRelay Reason = iota + 1
	ReasonRelayUnavailableFallbackExit
)

var reasonNames = map[Reason]string{
	ReasonLowestLatencyRelay:           "lowest-latency-relay",
	ReasonRelayUnavailableFallbackExit: "relay-unavailable-fallback-exit",
}

// ParseReason maps the wire form back to a Reason.
func ParseReason(value string) (Reason, error) {
	for r, name := range reasonNames {
		if name == value {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown routing reason %q", value)
}

func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

func (r Reason) MarshalText() ([]byte, error) {
	name, ok := reasonNames[r]
	if !ok {
		return nil, fmt.Errorf("invalid routing reason %d", int(r))
	}
	return []byte(name), nil
}

func (r *Reason) UnmarshalText(text []byte) error {
	parsed, err := ParseReason(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
