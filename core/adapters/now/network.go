package now

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/netresearch/occi-now/core/ports"
)

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 4 << 20

// NetworkBackend implements ports.NetworkBackend against the NOW REST API.
// Every request carries the delegated identity as the "user" query parameter.
type NetworkBackend struct {
	factory *Factory
	user    string
}

var _ ports.NetworkBackend = (*NetworkBackend)(nil)

// List fetches all networks visible to the user.
func (b *NetworkBackend) List(ctx context.Context) ([]ports.RawNetwork, error) {
	var records []map[string]any
	if err := b.do(ctx, http.MethodGet, b.url(), nil, &records); err != nil {
		return nil, convertError(err, "")
	}

	networks := make([]ports.RawNetwork, 0, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		networks = append(networks, convertToRawNetwork(r))
	}
	return networks, nil
}

// Get fetches one network. A "null" body is reported as a nil record.
func (b *NetworkBackend) Get(ctx context.Context, id string) (ports.RawNetwork, error) {
	var record map[string]any
	if err := b.do(ctx, http.MethodGet, b.url(id), nil, &record); err != nil {
		return nil, convertError(err, id)
	}
	if record == nil {
		return nil, nil
	}
	return convertToRawNetwork(record), nil
}

// Create submits a new network and returns the identifier NOW assigned.
func (b *NetworkBackend) Create(ctx context.Context, network ports.RawNetwork) (string, error) {
	var body []byte
	if err := b.do(ctx, http.MethodPost, b.url(), network, &body); err != nil {
		return "", convertError(err, "")
	}
	id, err := parseCreatedID(body)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Update PATCHes the supplied keys of network, which NOW merges into the
// stored record.
func (b *NetworkBackend) Update(ctx context.Context, id string, network ports.RawNetwork) error {
	return convertError(b.do(ctx, http.MethodPatch, b.url(id), network, nil), id)
}

// Replace PUTs network as the complete new record.
func (b *NetworkBackend) Replace(ctx context.Context, id string, network ports.RawNetwork) error {
	return convertError(b.do(ctx, http.MethodPut, b.url(id), network, nil), id)
}

// Delete removes a network.
func (b *NetworkBackend) Delete(ctx context.Context, id string) error {
	return convertError(b.do(ctx, http.MethodDelete, b.url(id), nil, nil), id)
}

// url builds /network or /network/{id} below the endpoint.
func (b *NetworkBackend) url(id ...string) *url.URL {
	elem := []string{"network"}
	for _, part := range id {
		elem = append(elem, url.PathEscape(part))
	}
	u := b.factory.base.JoinPath(elem...)
	if b.user != "" {
		q := u.Query()
		q.Set("user", b.user)
		u.RawQuery = q.Encode()
	}
	return u
}

// do sends one request. in is encoded as JSON when non-nil. out may be a
// *[]byte receiving the raw body, or any value the JSON body decodes into.
func (b *NetworkBackend) do(ctx context.Context, method string, u *url.URL, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.factory.userAgent != "" {
		req.Header.Set("User-Agent", b.factory.userAgent)
	}

	resp, err := b.factory.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &statusError{code: resp.StatusCode, message: responseMessage(resp.StatusCode, data)}
	}

	switch out := out.(type) {
	case nil:
		return nil
	case *[]byte:
		*out = data
		return nil
	default:
		if len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding %s %s response: %w", method, u.Path, err)
		}
		return nil
	}
}

// parseCreatedID accepts a bare identifier, a JSON string, or a JSON object
// with an "id" key.
func parseCreatedID(body []byte) (string, error) {
	text := strings.TrimSpace(string(body))
	switch {
	case strings.HasPrefix(text, "{"):
		var created struct {
			ID any `json:"id"`
		}
		if err := json.Unmarshal([]byte(text), &created); err != nil {
			return "", fmt.Errorf("decoding created network: %w", err)
		}
		if created.ID != nil {
			text = fmt.Sprint(created.ID)
		} else {
			text = ""
		}
	case strings.HasPrefix(text, `"`):
		var id string
		if err := json.Unmarshal([]byte(text), &id); err != nil {
			return "", fmt.Errorf("decoding created network: %w", err)
		}
		text = id
	}

	if text == "" {
		return "", fmt.Errorf("NOW returned no identifier for the created network")
	}
	return text, nil
}
