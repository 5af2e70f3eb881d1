package backend

import (
	"errors"
	"fmt"

	"savvy/internal/config"
	"savvy/internal/reference"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config, ref *reference.Data) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:            backendType,
		SQLiteDBPath:    appConfig.SQLiteDBPath,
		PostgRESTURL:    appConfig.PostgRESTURL,
		PostgRESTAPIKey: appConfig.PostgRESTAPIKey,
		RequestTimeout:  appConfig.RequestTimeout,
		DemoOwner:       appConfig.DemoOwner,
		Reference:       ref,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case PostgRESTBackend:
		if c.PostgRESTURL == "" {
			return errors.New("PostgREST URL is required for postgrest backend")
		}
		if c.PostgRESTAPIKey == "" {
			return errors.New("PostgREST API key is required for postgrest backend")
		}
	case MemoryBackend:
		if c.DemoOwner != "" && c.Reference == nil {
			return errors.New("reference data is required to seed the memory backend")
		}
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, PostgRESTBackend}
}
