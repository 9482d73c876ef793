package controller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golddust/internal/config"
	"golddust/internal/health"
	"golddust/internal/logging"
	"golddust/internal/router"
)

// gatedSource blocks inside Snapshots until release is closed and refuses
// to answer once closed, like a Redis client.
type gatedSource struct {
	entered chan struct{}
	release chan struct{}
	closed  atomic.Bool
	set     router.SnapshotSet
}

func newGatedSource(t *testing.T) *gatedSource {
	return &gatedSource{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		set: mustSet(t,
			router.Snapshot{ID: "relay-a", Kind: router.KindRelay, Enabled: true, LatencyMs: 30},
		),
	}
}

func (g *gatedSource) Name() string { return "gated" }

func (g *gatedSource) Snapshots(ctx context.Context) (router.SnapshotSet, error) {
	close(g.entered)
	select {
	case <-g.release:
	case <-ctx.Done():
		return router.SnapshotSet{}, ctx.Err()
	}
	if g.closed.Load() {
		return router.SnapshotSet{}, errors.New("client is closed")
	}
	return g.set, nil
}

func (g *gatedSource) Close() error {
	g.closed.Store(true)
	return nil
}

func TestSetSource_InFlightRequestKeepsOldSource(t *testing.T) {
	t.Parallel()

	old := newGatedSource(t)
	s := NewServer("", old, logging.Discard())

	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		req := httptest.NewRequest(http.MethodGet, "/decide?target=example.com:443", nil)
		s.Handler().ServeHTTP(rec, req)
	}()

	select {
	case <-old.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("request never reached the source")
	}

	s.SetSource(health.NewStatic(config.BackendConfig{Nodes: config.DefaultNodes()}))
	assert.False(t, old.closed.Load(), "old source closed while a request was using it")
	assert.Equal(t, config.SourceStatic, s.Source().Name())

	close(old.release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("request did not finish")
	}

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"backend_id":"relay-a"`)
	assert.True(t, old.closed.Load(), "old source not closed after the request finished")
}

func TestSetSource_IdleSourceClosedImmediately(t *testing.T) {
	t.Parallel()

	old := newGatedSource(t)
	s := NewServer("", old, logging.Discard())
	s.SetSource(health.NewStatic(config.BackendConfig{Nodes: config.DefaultNodes()}))
	assert.True(t, old.closed.Load())
}

func TestServerClose_ClosesActiveSourceOnce(t *testing.T) {
	t.Parallel()

	var closes atomic.Int32
	src := &countingSource{closes: &closes}
	s := NewServer("", src, logging.Discard())
	s.Close()
	s.Close()
	assert.Equal(t, int32(1), closes.Load())
}

type countingSource struct {
	closes *atomic.Int32
}

func (c *countingSource) Name() string { return "counting" }

func (c *countingSource) Snapshots(context.Context) (router.SnapshotSet, error) {
	return router.SnapshotSet{}, nil
}

func (c *countingSource) Close() error {
	c.closes.Add(1)
	return nil
}
