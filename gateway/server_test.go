package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/marketstreams/catalog"
	"github.com/c360/marketstreams/service"
	"github.com/c360/marketstreams/stream"
	"github.com/c360/marketstreams/tenant"
)

func newTestServer(t *testing.T, defaultMax int) (*Server, *service.StreamService) {
	t.Helper()

	sources, err := catalog.NewMemoryWith(
		&catalog.DataSource{ID: "binance", Name: "Binance", Type: catalog.SourcePrice, Enabled: true},
	)
	require.NoError(t, err)

	manager, err := stream.NewManager(sources, tenant.NewMemory(defaultMax))
	require.NoError(t, err)

	svc, err := service.New(manager, service.WithSweepInterval(time.Hour))
	require.NoError(t, err)

	srv, err := NewServer(svc, Config{}, nil)
	require.NoError(t, err)
	return srv, svc
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func startStreamViaAPI(t *testing.T, handler http.Handler, tenantID string) string {
	t.Helper()

	rec := doJSON(t, handler, http.MethodPost, "/v1/tenants/"+tenantID+"/streams",
		startStreamRequest{SourceID: "binance", Symbols: []string{"BTC-USD"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var ds stream.DataStream
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ds))
	require.NotEmpty(t, ds.StreamID)
	return ds.StreamID
}

func TestStartStreamEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, 10)
	handler := srv.Routes()

	rec := doJSON(t, handler, http.MethodPost, "/v1/tenants/acme/streams",
		startStreamRequest{SourceID: "binance", Symbols: []string{"BTC-USD", "ETH-USD"}})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var ds stream.DataStream
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ds))
	assert.Equal(t, "acme", ds.TenantID)
	assert.Equal(t, "active", ds.StatusName)
}

func TestStartStreamBadBody(t *testing.T) {
	srv, _ := newTestServer(t, 10)

	req := httptest.NewRequest(http.MethodPost, "/v1/tenants/acme/streams",
		bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartStreamEmptyFieldsRejected(t *testing.T) {
	srv, _ := newTestServer(t, 10)
	handler := srv.Routes()

	rec := doJSON(t, handler, http.MethodPost, "/v1/tenants/acme/streams",
		startStreamRequest{SourceID: "", Symbols: []string{"BTC-USD"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid_request", body.Code)

	rec = doJSON(t, handler, http.MethodPost, "/v1/tenants/acme/streams",
		startStreamRequest{SourceID: "binance", Symbols: nil})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartStreamUnknownSource(t *testing.T) {
	srv, _ := newTestServer(t, 10)

	rec := doJSON(t, srv.Routes(), http.MethodPost, "/v1/tenants/acme/streams",
		startStreamRequest{SourceID: "nope", Symbols: []string{"BTC-USD"}})

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_found", body.Code)
}

func TestQuotaExceededMapsTo429(t *testing.T) {
	srv, _ := newTestServer(t, 1)
	handler := srv.Routes()

	startStreamViaAPI(t, handler, "acme")

	rec := doJSON(t, handler, http.MethodPost, "/v1/tenants/acme/streams",
		startStreamRequest{SourceID: "binance", Symbols: []string{"BTC-USD"}})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "quota_exceeded", body.Code)
	assert.Equal(t, 1, body.Current)
	assert.Equal(t, 1, body.Max)
}

func TestInvalidTransitionMapsTo409(t *testing.T) {
	srv, _ := newTestServer(t, 10)
	handler := srv.Routes()

	id := startStreamViaAPI(t, handler, "acme")

	rec := doJSON(t, handler, http.MethodPost,
		fmt.Sprintf("/v1/tenants/acme/streams/%s/stop", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodPost,
		fmt.Sprintf("/v1/tenants/acme/streams/%s/pause", id), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid_state", body.Code)
	assert.Equal(t, "stopped", body.State)
}

func TestLifecycleRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, 10)
	handler := srv.Routes()

	id := startStreamViaAPI(t, handler, "acme")

	rec := doJSON(t, handler, http.MethodPost,
		fmt.Sprintf("/v1/tenants/acme/streams/%s/pause", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodPost,
		fmt.Sprintf("/v1/tenants/acme/streams/%s/resume", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodGet,
		fmt.Sprintf("/v1/tenants/acme/streams/%s", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var ds stream.DataStream
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ds))
	assert.Equal(t, "active", ds.StatusName)
}

func TestGetStreamWrongTenant404(t *testing.T) {
	srv, _ := newTestServer(t, 10)
	handler := srv.Routes()

	id := startStreamViaAPI(t, handler, "acme")

	rec := doJSON(t, handler, http.MethodGet, "/v1/tenants/globex/streams/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListStreams(t *testing.T) {
	srv, _ := newTestServer(t, 10)
	handler := srv.Routes()

	startStreamViaAPI(t, handler, "acme")
	startStreamViaAPI(t, handler, "acme")

	rec := doJSON(t, handler, http.MethodGet, "/v1/tenants/acme/streams", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count   int                  `json:"count"`
		Streams []*stream.DataStream `json:"streams"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Len(t, body.Streams, 2)
}

func TestListStreamsStatusFilter(t *testing.T) {
	srv, _ := newTestServer(t, 10)
	handler := srv.Routes()

	startStreamViaAPI(t, handler, "acme")
	paused := startStreamViaAPI(t, handler, "acme")

	rec := doJSON(t, handler, http.MethodPost,
		"/v1/tenants/acme/streams/"+paused+"/pause", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/v1/tenants/acme/streams?status=paused", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count   int                  `json:"count"`
		Streams []*stream.DataStream `json:"streams"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, paused, body.Streams[0].StreamID)
	assert.Equal(t, "paused", body.Streams[0].StatusName)

	rec = doJSON(t, handler, http.MethodGet, "/v1/tenants/acme/streams?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStreamHealthAndMetricsEndpoints(t *testing.T) {
	srv, svc := newTestServer(t, 10)
	handler := srv.Routes()

	id := startStreamViaAPI(t, handler, "acme")
	require.NoError(t, svc.Manager().RecordMessage("acme", id, 100))

	rec := doJSON(t, handler, http.MethodGet,
		fmt.Sprintf("/v1/tenants/acme/streams/%s/health", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var h stream.Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.True(t, h.Healthy)
	assert.True(t, h.ConnectionHealthy)

	rec = doJSON(t, handler, http.MethodGet,
		fmt.Sprintf("/v1/tenants/acme/streams/%s/metrics", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var metrics stream.Metrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metrics))
	assert.Equal(t, int64(1), metrics.MessagesReceived)
	assert.Equal(t, 100.0, metrics.AverageLatencyMs)
}

func TestTenantConfigAndAdmission(t *testing.T) {
	srv, _ := newTestServer(t, 10)
	handler := srv.Routes()

	rec := doJSON(t, handler, http.MethodPut, "/v1/tenants/acme/config",
		tenantConfigRequest{MaxConcurrentStreams: 1})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/v1/tenants/acme/admission", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var admission struct {
		CanStart bool `json:"can_start"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &admission))
	assert.True(t, admission.CanStart)

	startStreamViaAPI(t, handler, "acme")

	rec = doJSON(t, handler, http.MethodGet, "/v1/tenants/acme/admission", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &admission))
	assert.False(t, admission.CanStart)
}

func TestTenantConfigRejectsZero(t *testing.T) {
	srv, _ := newTestServer(t, 10)

	rec := doJSON(t, srv.Routes(), http.MethodPut, "/v1/tenants/acme/config",
		tenantConfigRequest{MaxConcurrentStreams: 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, 10)

	rec := doJSON(t, srv.Routes(), http.MethodGet, "/healthz", nil)
	// Service not started: degraded, which still reports 200.
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	srv, _ := newTestServer(t, 10)

	req := httptest.NewRequest(http.MethodGet, "/v1/tenants/acme/streams", nil)
	req.Header.Set("X-Request-ID", "caller-supplied")
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	assert.Equal(t, "caller-supplied", rec.Header().Get("X-Request-ID"))
}
