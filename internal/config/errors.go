package config

import "fmt"

// MissingCredentialError reports that the selected provider needs an API key
// that is not configured.
type MissingCredentialError struct {
	// Provider is the backend that required the key.
	Provider Provider
	// EnvVar is the environment variable the key is read from.
	EnvVar string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("config: %s not found: required by the %s provider", e.EnvVar, e.Provider)
}
