package health

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"golddust/internal/config"
	"golddust/internal/router"
)

// Redis reads live health published by a health checker:
//
//	SET  <prefix>:backends          -> backend ids
//	HASH <prefix>:backend:<id>      -> kind, enabled, latency_ms, failure_rate
type Redis struct {
	client redis.UniversalClient
	prefix string
}

func NewRedis(addr, prefix string) *Redis {
	return NewRedisWithClient(redis.NewClient(&redis.Options{Addr: addr}), prefix)
}

func NewRedisWithClient(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = config.DefaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) Name() string { return config.SourceRedis }

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) IndexKey() string {
	return r.prefix + ":backends"
}

func (r *Redis) BackendKey(id string) string {
	return r.prefix + ":backend:" + id
}

func (r *Redis) Snapshots(ctx context.Context) (router.SnapshotSet, error) {
	ids, err := r.client.SMembers(ctx, r.IndexKey()).Result()
	if err != nil {
		return router.SnapshotSet{}, fmt.Errorf("redis smembers %s: %w", r.IndexKey(), err)
	}
	sort.Strings(ids)

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, r.BackendKey(id))
		}
		return nil
	})
	if err != nil {
		return router.SnapshotSet{}, fmt.Errorf("redis hgetall: %w", err)
	}

	snaps := make([]router.Snapshot, 0, len(ids))
	for i, id := range ids {
		s, err := parseBackendHash(id, cmds[i].Val())
		if err != nil {
			return router.SnapshotSet{}, err
		}
		snaps = append(snaps, s)
	}
	return router.NewSnapshotSet(snaps...)
}

// Publish writes one snapshot in the layout Snapshots reads.
func (r *Redis) Publish(ctx context.Context, s router.Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.BackendKey(s.ID), encodeBackendHash(s))
		pipe.SAdd(ctx, r.IndexKey(), s.ID)
		return nil
	})
	return err
}

func encodeBackendHash(s router.Snapshot) map[string]any {
	return map[string]any{
		"kind":         s.Kind.String(),
		"enabled":      strconv.FormatBool(s.Enabled),
		"latency_ms":   strconv.FormatFloat(s.LatencyMs, 'f', -1, 64),
		"failure_rate": strconv.FormatFloat(s.FailureRate, 'f', -1, 64),
	}
}

func parseBackendHash(id string, fields map[string]string) (router.Snapshot, error) {
	if len(fields) == 0 {
		return router.Snapshot{}, fmt.Errorf("backend %q: no health hash", id)
	}
	get := func(name string) (string, error) {
		v, ok := fields[name]
		if !ok {
			return "", fmt.Errorf("backend %q: missing field %s", id, name)
		}
		return v, nil
	}

	kindText, err := get("kind")
	if err != nil {
		return router.Snapshot{}, err
	}
	kind, err := router.ParseKind(kindText)
	if err != nil {
		return router.Snapshot{}, fmt.Errorf("backend %q: %w", id, err)
	}

	enabledText, err := get("enabled")
	if err != nil {
		return router.Snapshot{}, err
	}
	enabled, err := strconv.ParseBool(enabledText)
	if err != nil {
		return router.Snapshot{}, fmt.Errorf("backend %q: enabled: %w", id, err)
	}

	latencyText, err := get("latency_ms")
	if err != nil {
		return router.Snapshot{}, err
	}
	latency, err := strconv.ParseFloat(latencyText, 64)
	if err != nil {
		return router.Snapshot{}, fmt.Errorf("backend %q: latency_ms: %w", id, err)
	}

	failureText, err := get("failure_rate")
	if err != nil {
		return router.Snapshot{}, err
	}
	failure, err := strconv.ParseFloat(failureText, 64)
	if err != nil {
		return router.Snapshot{}, fmt.Errorf("backend %q: failure_rate: %w", id, err)
	}

	return router.NewSnapshot(id, kind, enabled, latency, failure)
}
