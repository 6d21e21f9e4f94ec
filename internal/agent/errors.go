package agent

import (
	"errors"

	"connman-agent/internal/payload"
)

var (
	// ErrCanceled means the operator declined an input or browser request.
	ErrCanceled = errors.New("canceled by operator")
	// ErrRetry means the operator asked the daemon to retry after an error report.
	ErrRetry = errors.New("retry requested by operator")
	// ErrMalformedPayload means a RequestInput field was not map-shaped.
	ErrMalformedPayload = payload.ErrMalformed
)
