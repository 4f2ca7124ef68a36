package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/netresearch/occi-now/core/domain"
)

const maxBodyBytes = 1 << 20

type apiCategory struct {
	Scheme     string   `json:"scheme"`
	Term       string   `json:"term"`
	Title      string   `json:"title,omitempty"`
	Related    []string `json:"related,omitempty"`
	Attributes []string `json:"attributes,omitempty"`
	Actions    []string `json:"actions,omitempty"`
	Location   string   `json:"location,omitempty"`
}

type apiQueryInterface struct {
	Kinds   []apiCategory `json:"kinds"`
	Mixins  []apiCategory `json:"mixins"`
	Actions []apiCategory `json:"actions"`
}

type apiNetwork struct {
	Kind       string         `json:"kind"`
	Mixins     []string       `json:"mixins"`
	Attributes map[string]any `json:"attributes"`
	ID         string         `json:"id,omitempty"`
	Location   string         `json:"location,omitempty"`
}

type apiLink struct {
	ID     string `json:"id,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Target string `json:"target"`
}

// apiNetworkRequest is the body of create, update and partial update calls.
type apiNetworkRequest struct {
	Kind       string         `json:"kind"`
	Mixins     []string       `json:"mixins"`
	Attributes map[string]any `json:"attributes"`
	Links      []apiLink      `json:"links"`
}

type apiActionRequest struct {
	Attributes map[string]any `json:"attributes"`
}

type apiError struct {
	Error string `json:"error"`
}

func networkLocation(id string) string {
	return networkCollection + id
}

func renderNetwork(n *domain.Network) apiNetwork {
	return apiNetwork{
		Kind:       domain.NetworkKind.Identifier(),
		Mixins:     n.Mixins.Slice(),
		Attributes: n.Attributes.Map(),
		ID:         n.ID(),
		Location:   networkLocation(n.ID()),
	}
}

func renderMixin(m domain.Mixin) apiCategory {
	c := apiCategory{
		Scheme:     m.Scheme,
		Term:       m.Term,
		Title:      m.Title,
		Related:    m.Related,
		Attributes: m.Attributes,
		Location:   m.Location,
	}
	for _, a := range m.Actions {
		c.Actions = append(c.Actions, a.Identifier())
	}
	return c
}

func renderAction(a domain.Action) apiCategory {
	return apiCategory{
		Scheme:     a.Scheme,
		Term:       a.Term,
		Title:      a.Title,
		Attributes: a.Attributes,
	}
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return &domain.ValidationError{Field: "body", Message: err.Error()}
	}
	return nil
}

// toNetwork builds the canonical network from a request body.
func (req apiNetworkRequest) toNetwork() (*domain.Network, error) {
	if req.Kind != "" && req.Kind != domain.NetworkKind.Identifier() {
		return nil, &domain.ValidationError{
			Field:   "kind",
			Message: fmt.Sprintf("expected %s, got %s", domain.NetworkKind.Identifier(), req.Kind),
		}
	}
	attrs, err := domain.ParseNetworkAttributes(req.Attributes)
	if err != nil {
		return nil, err
	}
	n := domain.NewNetwork(attrs)
	for _, id := range req.Mixins {
		n.Mixins[id] = struct{}{}
	}
	return n, nil
}

func (req apiNetworkRequest) links() []domain.Link {
	if len(req.Links) == 0 {
		return nil
	}
	links := make([]domain.Link, 0, len(req.Links))
	for _, l := range req.Links {
		links = append(links, domain.Link{ID: l.ID, Kind: l.Kind, Target: l.Target})
	}
	return links
}

// statusFor maps a domain error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case domain.IsActionNotImplemented(err):
		return http.StatusNotImplemented
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case domain.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrConnectionFailed):
		return http.StatusBadGateway
	}
	if be, ok := errors.AsType[*domain.BackendError](err); ok && be.StatusCode >= 500 {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiError{Error: message})
}
