package stunutil

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pion/stun/v3"
)

const (
	NATTypeUnknown          = "unknown"
	NATTypeSymmetric        = "symmetric"
	NATTypeConeOrRestricted = "cone_or_restricted"
)

// ErrNoServers is returned when Discover is called without STUN servers.
var ErrNoServers = errors.New("no STUN servers provided")

// ServerResult is the outcome of one STUN binding request.
type ServerResult struct {
	Server     string
	MappedAddr string
	Err        error
}

// Mapping describes how this host appears to the outside world when it
// leaves without a relay or exit in between.
type Mapping struct {
	PublicAddr string
	NATType    string
	Results    []ServerResult
}

// bindFunc performs one binding request against uri and returns the mapped address.
type bindFunc func(ctx context.Context, uri *stun.URI) (string, error)

// Discover queries all servers concurrently and classifies the NAT from the
// mapped addresses. Results keep the order of servers. It fails only when no
// server answered.
func Discover(ctx context.Context, servers []string, timeout time.Duration) (Mapping, error) {
	return discover(ctx, servers, timeout, bindUDP)
}

func discover(ctx context.Context, servers []string, timeout time.Duration, bind bindFunc) (Mapping, error) {
	m := Mapping{NATType: NATTypeUnknown}
	if len(servers) == 0 {
		return m, ErrNoServers
	}

	m.Results = make([]ServerResult, len(servers))
	var wg sync.WaitGroup
	for i, server := range servers {
		i, server := i, server
		wg.Add(1)
		go func() {
			defer wg.Done()
			addr, err := query(ctx, server, timeout, bind)
			m.Results[i] = ServerResult{Server: server, MappedAddr: addr, Err: err}
		}()
	}
	wg.Wait()

	var addrs []string
	var errs []error
	for _, r := range m.Results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Server, r.Err))
			continue
		}
		addrs = append(addrs, r.MappedAddr)
	}
	if len(addrs) == 0 {
		return m, errors.Join(errs...)
	}

	m.PublicAddr = addrs[0]
	m.NATType = Classify(addrs)
	return m, nil
}

// Classify infers NAT type by comparing mapped addresses from multiple servers.
func Classify(addrs []string) string {
	if len(addrs) < 2 {
		return NATTypeUnknown
	}
	for _, addr := range addrs[1:] {
		if addr != addrs[0] {
			return NATTypeSymmetric
		}
	}
	return NATTypeConeOrRestricted
}

func query(ctx context.Context, server string, timeout time.Duration, bind bindFunc) (string, error) {
	uri, err := serverURI(server)
	if err != nil {
		return "", err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return bind(ctx, uri)
}

func serverURI(server string) (*stun.URI, error) {
	raw := strings.TrimSpace(server)
	if raw == "" {
		return nil, errors.New("empty STUN server")
	}
	if !strings.HasPrefix(raw, "stun:") {
		raw = "stun:" + raw
	}
	return stun.ParseURI(raw)
}

func bindUDP(ctx context.Context, uri *stun.URI) (string, error) {
	client, err := stun.DialURI(uri, &stun.DialConfig{})
	if err != nil {
		return "", err
	}
	defer client.Close()

	type outcome struct {
		addr string
		err  error
	}
	// Room for the callback and Do's own error.
	done := make(chan outcome, 2)

	go func() {
		err := client.Do(stun.MustBuild(stun.TransactionID, stun.BindingRequest), func(ev stun.Event) {
			if ev.Error != nil {
				done <- outcome{err: ev.Error}
				return
			}
			var mapped stun.XORMappedAddress
			if err := mapped.GetFrom(ev.Message); err != nil {
				done <- outcome{err: err}
				return
			}
			done <- outcome{addr: mapped.String()}
		})
		if err != nil {
			done <- outcome{err: err}
		}
	}()

	select {
	case out := <-done:
		return out.addr, out.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
