package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netresearch/occi-now/core"
	"github.com/netresearch/occi-now/core/adapters/mock"
	"github.com/netresearch/occi-now/core/domain"
	"github.com/netresearch/occi-now/core/ports"
	"github.com/netresearch/occi-now/extensions/monitoring"
	"github.com/netresearch/occi-now/metrics"
	"github.com/netresearch/occi-now/registry"
	"github.com/netresearch/occi-now/test"
)

const upAction = "http://schemas.ogf.org/occi/infrastructure/network/action#up"

type testServer struct {
	*Server
	factory *mock.Factory
	metrics *metrics.MetricsCollector
	logger  *test.Logger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	factory := mock.NewFactory()
	logger := test.NewTestLogger()
	reg := registry.New()
	require.NoError(t, monitoring.Register(reg))
	mc := metrics.NewMetricsCollector()
	mc.InitDefaultMetrics()

	s := NewServer(Options{
		Addr:     "127.0.0.1:0",
		Networks: core.NewNetworkAdapter(factory, logger),
		Registry: reg,
		Metrics:  mc,
		Logger:   logger,
	})
	return &testServer{Server: s, factory: factory, metrics: mc, logger: logger}
}

func (s *testServer) do(t *testing.T, method, target string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	s.HTTPServer().Handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func withMixins(path string, identifiers ...string) string {
	return path + "?" + url.Values{"mixin": identifiers}.Encode()
}

func TestCreateAndGetNetwork(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/network/", apiNetworkRequest{
		Kind: domain.NetworkKind.Identifier(),
		Attributes: map[string]any{
			domain.AttrCoreTitle:      "net",
			domain.AttrNetworkVLAN:    100,
			domain.AttrNetworkAddress: "10.0.0.0/24",
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	created := decode[map[string]string](t, w)
	require.NotEmpty(t, created["id"])
	location := w.Header().Get("Location")
	assert.Equal(t, "/network/"+created["id"], location)

	require.Len(t, s.factory.Backend.CreateCalls, 1)
	assert.Equal(t, ports.RawNetwork{
		"title": "net",
		"vlan":  float64(100),
		"range": ports.RawRange{"address": "10.0.0.0/24"},
	}, s.factory.Backend.CreateCalls[0])

	w = s.do(t, http.MethodGet, location, nil)
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[apiNetwork](t, w)
	assert.Equal(t, domain.NetworkKind.Identifier(), got.Kind)
	assert.Equal(t, []string{domain.IPNetworkMixin.Identifier()}, got.Mixins)
	assert.Equal(t, created["id"], got.ID)
	assert.Equal(t, map[string]any{
		domain.AttrCoreID:         created["id"],
		domain.AttrCoreTitle:      "net",
		domain.AttrNetworkVLAN:    float64(100),
		domain.AttrNetworkAddress: "10.0.0.0/24",
	}, got.Attributes)
}

func TestCreateNetworkRejectsBadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body any
	}{
		{"malformed json", "{"},
		{"wrong kind", apiNetworkRequest{Kind: "http://schemas.ogf.org/occi/infrastructure#compute"}},
		{"title not a string", apiNetworkRequest{Attributes: map[string]any{domain.AttrCoreTitle: 5}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			w := s.do(t, http.MethodPost, "/network/", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, decode[apiError](t, w).Error)
			assert.Empty(t, s.factory.Backend.CreateCalls)
		})
	}
}

func TestListNetworks(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	s.factory.Backend.SetNetworks(
		ports.RawNetwork{"id": "n1", "title": "one"},
		ports.RawNetwork{"id": "n2"},
	)

	w := s.do(t, http.MethodGet, "/network/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"/network/n1", "/network/n2"}, decode[[]string](t, w))

	w = s.do(t, http.MethodGet, withMixins("/network/", domain.IPNetworkMixin.Identifier()), nil)
	assert.Equal(t, []string{"/network/n1", "/network/n2"}, decode[[]string](t, w))

	w = s.do(t, http.MethodGet, withMixins("/network/", "http://example.com/occi/custom#lab"), nil)
	assert.Equal(t, []string{}, decode[[]string](t, w))

	w = s.do(t, http.MethodGet, "/network/?detailed=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	networks := decode[[]apiNetwork](t, w)
	require.Len(t, networks, 2)
	assert.Equal(t, "one", networks[0].Attributes[domain.AttrCoreTitle])
	assert.Equal(t, "/network/n2", networks[1].Location)
}

func TestGetMissingNetwork(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/network/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "network not found: missing", decode[apiError](t, w).Error)
}

func TestUpdateNetwork(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	s.factory.Backend.SetNetworks(ports.RawNetwork{"id": "n1", "title": "old", "vlan": 7})

	w := s.do(t, http.MethodPut, "/network/n1", apiNetworkRequest{
		Attributes: map[string]any{
			domain.AttrCoreID:    "ignored",
			domain.AttrCoreTitle: "new",
		},
	})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	require.Len(t, s.factory.Backend.ReplaceCalls, 1)
	call := s.factory.Backend.ReplaceCalls[0]
	assert.Equal(t, "n1", call.ID)
	assert.Equal(t, ports.RawNetwork{"id": "n1", "title": "new"}, call.Network)

	w = s.do(t, http.MethodGet, "/network/n1", nil)
	got := decode[apiNetwork](t, w)
	assert.Equal(t, "new", got.Attributes[domain.AttrCoreTitle])
	assert.NotContains(t, got.Attributes, domain.AttrNetworkVLAN)

	w = s.do(t, http.MethodPut, "/network/missing", apiNetworkRequest{
		Attributes: map[string]any{domain.AttrCoreTitle: "new"},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPartialUpdateNetwork(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	s.factory.Backend.SetNetworks(ports.RawNetwork{"id": "n1", "title": "old", "vlan": 7})

	w := s.do(t, http.MethodPost, "/network/n1", apiNetworkRequest{
		Attributes: map[string]any{domain.AttrNetworkGateway: "10.0.0.1"},
		Mixins:     []string{"http://example.com/occi/custom#lab"},
		Links:      []apiLink{{Target: "/compute/c1"}},
	})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	require.Len(t, s.factory.Backend.UpdateCalls, 1)
	assert.Equal(t, ports.RawNetwork{"range": ports.RawRange{"gateway": "10.0.0.1"}}, s.factory.Backend.UpdateCalls[0].Network)

	w = s.do(t, http.MethodGet, "/network/n1", nil)
	got := decode[apiNetwork](t, w)
	assert.Equal(t, "old", got.Attributes[domain.AttrCoreTitle])
	assert.Equal(t, "10.0.0.1", got.Attributes[domain.AttrNetworkGateway])
}

func TestPartialUpdateWithoutBody(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	s.factory.Backend.SetNetworks(ports.RawNetwork{"id": "n1"})

	w := s.do(t, http.MethodPost, "/network/n1", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Len(t, s.factory.Backend.UpdateCalls, 1)
	assert.Equal(t, ports.RawNetwork{}, s.factory.Backend.UpdateCalls[0].Network)
}

func TestDeleteNetworks(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	s.factory.Backend.SetNetworks(
		ports.RawNetwork{"id": "n1"},
		ports.RawNetwork{"id": "n2"},
		ports.RawNetwork{"id": "n3"},
	)

	w := s.do(t, http.MethodDelete, "/network/n2", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 2, s.factory.Backend.Len())

	w = s.do(t, http.MethodDelete, "/network/", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, s.factory.Backend.Len())
	assert.Equal(t, []string{"n2", "n1", "n3"}, s.factory.Backend.DeleteCalls)
	assert.True(t, s.logger.HasMessage("Mass network delete of 2 networks"))
}

func TestDeleteNetworksWithNonMatchingFilter(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	s.factory.Backend.SetNetworks(ports.RawNetwork{"id": "n1"})

	w := s.do(t, http.MethodDelete, withMixins("/network/", "http://example.com/occi/custom#lab"), nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1, s.factory.Backend.Len())
	assert.Empty(t, s.factory.Backend.DeleteCalls)
}

func TestNetworkActions(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	target := "/network/n1?" + url.Values{"action": {upAction}}.Encode()
	w := s.do(t, http.MethodPost, target, map[string]any{"attributes": map[string]any{"force": true}})
	assert.Equal(t, http.StatusNotImplemented, w.Code)
	assert.Contains(t, decode[apiError](t, w).Error, upAction)

	w = s.do(t, http.MethodPost, "/network/n1?action=no-term", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	all := "/network/?" + url.Values{"action": {upAction}}.Encode()
	w = s.do(t, http.MethodPost, all, nil)
	assert.Equal(t, http.StatusNoContent, w.Code, "no networks, nothing to trigger")

	s.factory.Backend.SetNetworks(ports.RawNetwork{"id": "n1"})
	w = s.do(t, http.MethodPost, all, nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	assert.Empty(t, s.factory.Backend.UpdateCalls)
	assert.Empty(t, s.factory.Backend.CreateCalls)
}

func TestQueryInterface(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/-/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	qi := decode[apiQueryInterface](t, w)

	require.Len(t, qi.Kinds, 1)
	assert.Equal(t, "network", qi.Kinds[0].Term)
	assert.Equal(t, "/network/", qi.Kinds[0].Location)

	terms := make([]string, 0, len(qi.Mixins))
	for _, m := range qi.Mixins {
		terms = append(terms, m.Term)
	}
	assert.Equal(t, []string{"ipnetwork", "net_tx"}, terms)
	assert.Equal(t, monitoring.NetTxLocation, qi.Mixins[1].Location)
	assert.Equal(t, []string{monitoring.Metric.Identifier()}, qi.Mixins[1].Related)
	assert.Empty(t, qi.Actions)
}

func TestRegisteredLocation(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, monitoring.NetTxLocation, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[apiCategory](t, w)
	assert.Equal(t, "net_tx", got.Term)
	assert.Equal(t, "compute.net_tx", got.Title)

	w = s.do(t, http.MethodGet, monitoring.NetTxLocation+"/", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/metric/compute/cpu", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDelegatedIdentityReachesBackend(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	s.do(t, http.MethodGet, "/network/", nil, DelegatedIdentityHeader, "alice")
	s.do(t, http.MethodGet, "/network/", nil)

	require.Len(t, s.factory.Users, 2)
	assert.Equal(t, "alice", s.factory.Users[0].Identity)
	assert.Empty(t, s.factory.Users[1].Identity)
}

func TestBackendFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{&domain.BackendError{StatusCode: 503, Message: "down"}, http.StatusBadGateway},
		{fmt.Errorf("list: %w", domain.ErrTimeout), http.StatusGatewayTimeout},
		{domain.ErrConnectionFailed, http.StatusBadGateway},
		{fmt.Errorf("owner: %w", domain.ErrForbidden), http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			s := newTestServer(t)
			s.factory.Backend.OnList = func(context.Context) ([]ports.RawNetwork, error) {
				return nil, tt.err
			}

			w := s.do(t, http.MethodGet, "/network/", nil)
			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, tt.err.Error(), decode[apiError](t, w).Error)
		})
	}
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusNotFound, statusFor(&domain.NetworkNotFoundError{ID: "x"}))
	assert.Equal(t, http.StatusNotImplemented, statusFor(&domain.ActionNotImplementedError{}))
	assert.Equal(t, http.StatusBadRequest, statusFor(&domain.ValidationError{Message: "bad"}))
	assert.Equal(t, http.StatusUnauthorized, statusFor(domain.ErrUnauthorized))
	assert.Equal(t, http.StatusConflict, statusFor(fmt.Errorf("dup: %w", domain.ErrConflict)))
	assert.Equal(t, http.StatusInternalServerError, statusFor(&domain.BackendError{StatusCode: 418}))
}

func TestServerMetricsAndHeaders(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/network/", nil)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))

	assert.Equal(t, float64(1), s.metrics.Value(metrics.HTTPRequestsTotal, metrics.Labels{"method": "GET", "code": "200"}))

	w = s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `occinow_http_requests_total{code="200",method="GET"} 1`)
}

func TestServerStartAndShutdown(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	require.NoError(t, s.Start())
	require.NoError(t, s.Shutdown(context.Background()))
}

func TestServerStartReportsBindErrors(t *testing.T) {
	t.Parallel()

	s := NewServer(Options{Addr: "256.0.0.1:99999", Networks: core.NewNetworkAdapter(mock.NewFactory(), nil), Registry: registry.New()})
	assert.Error(t, s.Start())
}
