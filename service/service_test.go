package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/marketstreams/catalog"
	"github.com/c360/marketstreams/stream"
	"github.com/c360/marketstreams/tenant"
)

func newTestService(t *testing.T) *StreamService {
	t.Helper()

	sources, err := catalog.NewMemoryWith(
		&catalog.DataSource{ID: "binance", Name: "Binance", Type: catalog.SourcePrice, Enabled: true},
	)
	require.NoError(t, err)

	manager, err := stream.NewManager(sources, tenant.NewMemory(10))
	require.NoError(t, err)

	svc, err := New(manager, WithSweepInterval(time.Hour))
	require.NoError(t, err)
	return svc
}

func TestStatusString(t *testing.T) {
	cases := map[Status]string{
		StatusStopped:  "stopped",
		StatusStarting: "starting",
		StatusRunning:  "running",
		StatusStopping: "stopping",
		Status(42):     "unknown",
	}
	for status, want := range cases {
		assert.Equal(t, want, status.String())
	}
}

func TestNewRequiresManager(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestStopRacesContextCancel(t *testing.T) {
	for i := 0; i < 50; i++ {
		svc := newTestService(t)
		ctx, cancel := context.WithCancel(context.Background())
		require.NoError(t, svc.Start(ctx))

		go cancel()
		require.NoError(t, svc.Stop(time.Second))

		assert.Equal(t, StatusStopped, svc.Status())
	}
}

func TestStartStopLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.Equal(t, StatusStopped, svc.Status())
	assert.Equal(t, time.Duration(0), svc.Uptime())

	require.NoError(t, svc.Start(ctx))
	assert.Equal(t, StatusRunning, svc.Status())

	// Second start is a no-op.
	require.NoError(t, svc.Start(ctx))
	assert.Equal(t, StatusRunning, svc.Status())

	require.NoError(t, svc.Stop(time.Second))
	assert.Equal(t, StatusStopped, svc.Status())

	// Second stop is a no-op.
	require.NoError(t, svc.Stop(time.Second))
}

func TestContextCancellationStopsService(t *testing.T) {
	svc := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, svc.Start(ctx))
	cancel()

	require.Eventually(t, func() bool {
		return svc.Status() == StatusStopped
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLifecycleWrappersDelegate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	ds, err := svc.StartStream(ctx, "acme", "binance", []string{"BTC-USD"})
	require.NoError(t, err)
	assert.Equal(t, stream.StatusActive, ds.Status)

	require.NoError(t, svc.PauseStream("acme", ds.StreamID))
	require.NoError(t, svc.ResumeStream("acme", ds.StreamID))
	require.NoError(t, svc.StopStream("acme", ds.StreamID))

	got, err := svc.Manager().GetStream("acme", ds.StreamID)
	require.NoError(t, err)
	assert.Equal(t, stream.StatusStopped, got.Status)

	// Errors pass through untouched.
	assert.Error(t, svc.PauseStream("acme", ds.StreamID))
}

func TestSweepTracksUnhealthyStreams(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	healthy, err := svc.StartStream(ctx, "acme", "binance", []string{"BTC-USD"})
	require.NoError(t, err)
	sick, err := svc.StartStream(ctx, "acme", "binance", []string{"ETH-USD"})
	require.NoError(t, err)

	require.NoError(t, svc.Manager().RecordError("acme", sick.StreamID, "feed down", true))

	svc.Sweep()

	assert.Equal(t, 2, svc.Monitor().Count())

	h, ok := svc.Monitor().Get("stream:" + healthy.StreamID)
	require.True(t, ok)
	assert.True(t, h.Healthy)

	h, ok = svc.Monitor().Get("stream:" + sick.StreamID)
	require.True(t, ok)
	assert.False(t, h.Healthy)
}

func TestSweepDropsStoppedStreams(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	ds, err := svc.StartStream(ctx, "acme", "binance", []string{"BTC-USD"})
	require.NoError(t, err)

	svc.Sweep()
	assert.Equal(t, 1, svc.Monitor().Count())

	require.NoError(t, svc.StopStream("acme", ds.StreamID))
	svc.Sweep()
	assert.Equal(t, 0, svc.Monitor().Count())
}

func TestHealthAggregation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// Not running yet: degraded regardless of stream states.
	assert.True(t, svc.Health().IsDegraded())

	require.NoError(t, svc.Start(ctx))
	defer func() { _ = svc.Stop(time.Second) }()

	h := svc.Health()
	assert.True(t, h.IsHealthy())

	ds, err := svc.StartStream(ctx, "acme", "binance", []string{"BTC-USD"})
	require.NoError(t, err)
	require.NoError(t, svc.Manager().RecordError("acme", ds.StreamID, "dead", true))
	svc.Sweep()

	h = svc.Health()
	assert.True(t, h.IsUnhealthy())
	assert.NotEmpty(t, h.SubStatuses)
}

func TestEventSubject(t *testing.T) {
	svc := newTestService(t)

	assert.Equal(t, "marketstreams.streams.events.acme.s1", svc.subject("acme", "s1"))
	assert.Equal(t, "marketstreams.streams.events.acme._", svc.subject("acme", ""))

	WithEventPrefix("c360.prod")(svc)
	assert.Equal(t, "c360.prod.streams.events.acme.s1", svc.subject("acme", "s1"))
}

func TestSetTenantConfigDelegates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetTenantConfig(ctx, &tenant.Config{TenantID: "acme", MaxConcurrentStreams: 1}))

	_, err := svc.StartStream(ctx, "acme", "binance", []string{"BTC-USD"})
	require.NoError(t, err)
	_, err = svc.StartStream(ctx, "acme", "binance", []string{"BTC-USD"})
	assert.Error(t, err)
}
