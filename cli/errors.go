package cli

import "errors"

// Validation errors
var (
	ErrUnknownBackend    = errors.New("unknown backend type")
	ErrInvalidLogLevel   = errors.New("invalid log level")
	ErrHealthCheckFailed = errors.New("health check failed")
	ErrNetworkIDRequired = errors.New("network id is required")
	ErrEndpointEmpty     = errors.New("endpoint cannot be empty")
	ErrDataSourceEmpty   = errors.New("data source cannot be empty")
)
