package router

import (
	"fmt"
	"strings"
)

// Kind is the preference class of a backend.
type Kind int

const (
	KindRelay Kind = iota + 1
	KindExit
)

// ParseKind accepts "relay" and "exit" plus the legacy "oxen" and "tor" names.
func ParseKind(value string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "relay", "oxen":
		return KindRelay, nil
	case "exit", "tor":
		return KindExit, nil
	default:
		return 0, fmt.Errorf("unknown backend kind %q", value)
	}
}

func (k Kind) String() string {
	switch k {
	case KindRelay:
		return "relay"
	case KindExit:
		return "exit"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) valid() bool {
	return k == KindRelay || k == KindExit
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.valid() {
		return nil, fmt.Errorf("invalid backend kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
