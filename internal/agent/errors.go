package agent

import (
	"errors"
	"fmt"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	openai "github.com/openai/openai-go"
)

// ErrNotConfigured is returned when an agent is missing its credentials
var ErrNotConfigured = errors.New("agent not configured")

// UpstreamError reports a non-success answer from an external agent
type UpstreamError struct {
	Service string
	Status  int
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: upstream status %d: %v", e.Service, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: upstream status %d", e.Service, e.Status)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// upstream converts SDK status errors into *UpstreamError and wraps the
// rest
func upstream(service string, err error) error {
	var aerr *anthropic.Error
	if errors.As(err, &aerr) {
		return &UpstreamError{Service: service, Status: aerr.StatusCode, Err: err}
	}
	var oerr *openai.Error
	if errors.As(err, &oerr) {
		return &UpstreamError{Service: service, Status: oerr.StatusCode, Err: err}
	}
	return fmt.Errorf("%s: %w", service, err)
}
