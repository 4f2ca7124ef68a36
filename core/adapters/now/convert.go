package now

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/netresearch/occi-now/core/domain"
	"github.com/netresearch/occi-now/core/ports"
)

// statusError is a non-2xx answer from NOW.
type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("NOW responded %d: %s", e.code, e.message)
}

// convertError converts transport and HTTP errors to domain errors. id names
// the network the request was about, if any.
func convertError(err error, id string) error {
	if err == nil {
		return nil
	}

	if se, ok := errors.AsType[*statusError](err); ok {
		switch se.code {
		case http.StatusNotFound:
			if id != "" {
				return &domain.NetworkNotFoundError{ID: id}
			}
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return &domain.ValidationError{Message: se.message}
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", domain.ErrUnauthorized, se.message)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %s", domain.ErrForbidden, se.message)
		case http.StatusConflict:
			return fmt.Errorf("%w: %s", domain.ErrConflict, se.message)
		}
		return &domain.BackendError{StatusCode: se.code, Message: se.message}
	}

	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}
	if netErr, ok := errors.AsType[net.Error](err); ok {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
		}
		return fmt.Errorf("%w: %w", domain.ErrConnectionFailed, err)
	}

	return err
}

// responseMessage extracts a human readable message from an error body.
func responseMessage(code int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && !strings.HasPrefix(text, "{") {
		return text
	}
	return http.StatusText(code)
}

// convertToRawNetwork converts a decoded JSON object to a raw network,
// dropping null values so that absent and null look the same.
func convertToRawNetwork(record map[string]any) ports.RawNetwork {
	raw := make(ports.RawNetwork, len(record))
	for key, value := range record {
		if value == nil {
			continue
		}
		if key == ports.RawKeyRange {
			nested, ok := value.(map[string]any)
			if !ok {
				raw[key] = value
				continue
			}
			rng := make(ports.RawRange, len(nested))
			for k, v := range nested {
				if v != nil {
					rng[k] = v
				}
			}
			raw[key] = rng
			continue
		}
		raw[key] = value
	}
	return raw
}
