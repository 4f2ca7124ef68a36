// Package web serves the network adapter over HTTP with JSON renderings of
// OCCI networks and categories.
package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/netresearch/occi-now/core"
	"github.com/netresearch/occi-now/core/domain"
	"github.com/netresearch/occi-now/metrics"
	"github.com/netresearch/occi-now/registry"
)

const networkCollection = "/network/"

// NetworkService is the set of adapter operations the server exposes.
type NetworkService interface {
	ListIDs(ctx context.Context, filter domain.MixinSet) ([]string, error)
	List(ctx context.Context, filter domain.MixinSet) ([]*domain.Network, error)
	Get(ctx context.Context, id string) (*domain.Network, error)
	Create(ctx context.Context, network *domain.Network) (string, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context, filter domain.MixinSet) error
	Update(ctx context.Context, network *domain.Network) error
	PartialUpdate(ctx context.Context, id string, attrs *domain.NetworkAttributes, mixins domain.MixinSet, links []domain.Link) error
	TriggerAction(ctx context.Context, id string, action domain.ActionInstance) error
	TriggerActionOnAll(ctx context.Context, action domain.ActionInstance, filter domain.MixinSet) error
	Extensions() *domain.Collection
}

// Options configure a Server. Networks and Registry are required.
type Options struct {
	Addr     string
	Networks NetworkService
	Registry *registry.Registry
	Metrics  *metrics.MetricsCollector
	Health   *HealthChecker
	Logger   core.Logger

	// RateLimit is the number of requests per minute allowed per client.
	// Zero disables rate limiting.
	RateLimit int
}

type Server struct {
	addr     string
	networks NetworkService
	registry *registry.Registry
	logger   core.Logger
	srv      *http.Server
	limiter  *RateLimiter

	stop     chan struct{}
	stopOnce sync.Once
}

// HTTPServer returns the underlying http.Server used by the web interface.
func (s *Server) HTTPServer() *http.Server { return s.srv }

func NewServer(opts Options) *Server {
	server := &Server{
		addr:     opts.Addr,
		networks: opts.Networks,
		registry: opts.Registry,
		logger:   opts.Logger,
		stop:     make(chan struct{}),
	}
	if server.logger == nil {
		server.logger = core.NopLogger()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /network/{$}", server.listNetworksHandler)
	mux.HandleFunc("POST /network/{$}", server.createNetworkHandler)
	mux.HandleFunc("DELETE /network/{$}", server.deleteNetworksHandler)
	mux.HandleFunc("GET /network/{id}", server.getNetworkHandler)
	mux.HandleFunc("PUT /network/{id}", server.updateNetworkHandler)
	mux.HandleFunc("POST /network/{id}", server.postNetworkHandler)
	mux.HandleFunc("DELETE /network/{id}", server.deleteNetworkHandler)
	mux.HandleFunc("GET /-/{$}", server.queryInterfaceHandler)
	mux.HandleFunc("GET /", server.locationHandler)
	if opts.Metrics != nil {
		mux.HandleFunc("GET /metrics", opts.Metrics.Handler())
	}
	if hc := opts.Health; hc != nil {
		mux.HandleFunc("GET /health", hc.HealthHandler())
		mux.HandleFunc("GET /healthz", hc.HealthHandler())
		mux.HandleFunc("GET /ready", hc.ReadinessHandler())
		mux.HandleFunc("GET /live", hc.LivenessHandler())
	}

	var handler http.Handler = mux
	handler = delegatedIdentity(handler)
	handler = securityHeaders(handler)
	if opts.RateLimit > 0 {
		server.limiter = NewRateLimiter(opts.RateLimit, max(opts.RateLimit/10, 1))
		handler = server.limiter.middleware(handler)
	}
	if opts.Metrics != nil {
		handler = metrics.HTTPMetrics(opts.Metrics)(handler)
	}

	server.srv = &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return server
}

// Start binds the listen address and serves in the background. Bind
// failures are returned; later serve errors are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.srv.Addr, err)
	}
	s.logger.Noticef("Serving networks on %s", ln.Addr())
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorf("HTTP server on %s stopped: %v", s.addr, err)
		}
	}()
	if s.limiter != nil {
		go s.cleanupLimiters()
	}
	return nil
}

func (s *Server) cleanupLimiters() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.limiter.CleanupOldLimiters()
		case <-s.stop:
			return
		}
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// mixinFilter reads the repeatable mixin query parameter. Without it the
// result is nil, which filters nothing.
func mixinFilter(r *http.Request) domain.MixinSet {
	values, ok := r.URL.Query()["mixin"]
	if !ok {
		return nil
	}
	return domain.ParseMixinSet(values...)
}

// actionInstance parses the action query parameter and the optional body.
// It reports false when the request carries no action.
func actionInstance(w http.ResponseWriter, r *http.Request) (domain.ActionInstance, bool, error) {
	identifier := r.URL.Query().Get("action")
	if identifier == "" {
		return domain.ActionInstance{}, false, nil
	}
	category, err := domain.ParseCategory(identifier)
	if err != nil {
		return domain.ActionInstance{}, true, err
	}
	var body apiActionRequest
	if err := decodeBody(w, r, &body); err != nil {
		return domain.ActionInstance{}, true, err
	}
	return domain.ActionInstance{Action: category, Attributes: body.Attributes}, true, nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented {
		s.logger.Errorf("%s %s failed: %v", r.Method, r.URL.Path, err)
	} else {
		s.logger.Debugf("%s %s rejected: %v", r.Method, r.URL.Path, err)
	}
	writeError(w, status, err.Error())
}

func (s *Server) listNetworksHandler(w http.ResponseWriter, r *http.Request) {
	filter := mixinFilter(r)

	if r.URL.Query().Get("detailed") == "true" {
		networks, err := s.networks.List(r.Context(), filter)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		out := make([]apiNetwork, 0, len(networks))
		for _, n := range networks {
			out = append(out, renderNetwork(n))
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	ids, err := s.networks.ListIDs(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	locations := make([]string, 0, len(ids))
	for _, id := range ids {
		locations = append(locations, networkLocation(id))
	}
	writeJSON(w, http.StatusOK, locations)
}

func (s *Server) createNetworkHandler(w http.ResponseWriter, r *http.Request) {
	action, ok, err := actionInstance(w, r)
	if ok {
		if err == nil {
			err = s.networks.TriggerActionOnAll(r.Context(), action, mixinFilter(r))
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var req apiNetworkRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	network, err := req.toNetwork()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	id, err := s.networks.Create(r.Context(), network)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Location", networkLocation(id))
	writeJSON(w, http.StatusCreated, map[string]string{"id": id, "location": networkLocation(id)})
}

func (s *Server) deleteNetworksHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.networks.DeleteAll(r.Context(), mixinFilter(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getNetworkHandler(w http.ResponseWriter, r *http.Request) {
	network, err := s.networks.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, renderNetwork(network))
}

func (s *Server) updateNetworkHandler(w http.ResponseWriter, r *http.Request) {
	var req apiNetworkRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	network, err := req.toNetwork()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	network.Attributes.ID = r.PathValue("id")

	if err := s.networks.Update(r.Context(), network); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// postNetworkHandler triggers an action when one is named, otherwise it
// merges the body into the network.
func (s *Server) postNetworkHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	action, ok, err := actionInstance(w, r)
	if ok {
		if err == nil {
			err = s.networks.TriggerAction(r.Context(), id, action)
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var req apiNetworkRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	var attrs *domain.NetworkAttributes
	if req.Attributes != nil {
		parsed, err := domain.ParseNetworkAttributes(req.Attributes)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		attrs = &parsed
	}
	var mixins domain.MixinSet
	if len(req.Mixins) > 0 {
		mixins = domain.ParseMixinSet(req.Mixins...)
	}

	if err := s.networks.PartialUpdate(r.Context(), id, attrs, mixins, req.links()); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteNetworkHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.networks.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// queryInterfaceHandler lists the kinds, mixins and actions this server
// knows about.
func (s *Server) queryInterfaceHandler(w http.ResponseWriter, _ *http.Request) {
	qi := apiQueryInterface{
		Kinds: []apiCategory{{
			Scheme:   domain.NetworkKind.Scheme,
			Term:     domain.NetworkKind.Term,
			Title:    domain.NetworkKind.Title,
			Location: networkCollection,
			Attributes: []string{
				domain.AttrCoreID, domain.AttrCoreTitle, domain.AttrCoreSummary,
				domain.AttrNetworkVLAN,
			},
		}},
		Mixins: []apiCategory{renderMixin(domain.Mixin{
			Category: domain.IPNetworkMixin,
			Attributes: []string{
				domain.AttrNetworkAddress, domain.AttrNetworkAllocation, domain.AttrNetworkGateway,
			},
		})},
		Actions: []apiCategory{},
	}
	for _, m := range s.registry.Mixins() {
		qi.Mixins = append(qi.Mixins, renderMixin(m))
	}

	ext := s.networks.Extensions()
	if !ext.IsEmpty() {
		for _, m := range ext.Mixins {
			qi.Mixins = append(qi.Mixins, renderMixin(m))
		}
		for _, a := range ext.Actions {
			qi.Actions = append(qi.Actions, renderAction(a))
		}
	}
	writeJSON(w, http.StatusOK, qi)
}

// locationHandler renders the category registered at the request path.
func (s *Server) locationHandler(w http.ResponseWriter, r *http.Request) {
	m, ok := s.registry.Location(r.URL.Path)
	if !ok {
		writeError(w, http.StatusNotFound, "nothing registered at "+r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, renderMixin(m))
}
