package statuspage

import "fmt"

// ConfigError reports a missing client credential.
type ConfigError struct {
	Missing string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s not set", e.Missing)
}

// APIError is returned for non-2xx Statuspage responses.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("statuspage request failed: %s (%s)", e.Status, e.Body)
	}
	return fmt.Sprintf("statuspage request failed: %s", e.Status)
}
