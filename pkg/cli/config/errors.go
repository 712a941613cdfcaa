package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrConfigNotFound       = goerr.New("configuration file not found")
	ErrInvalidConfig        = goerr.New("invalid configuration")
	ErrDuplicateWorkspaceID = goerr.New("duplicate workspace ID")
	ErrInvalidWorkspaceID   = goerr.New("invalid workspace ID format")
	ErrMissingName          = goerr.New("name is required")
	ErrNoWorkspace          = goerr.New("no workspace configured")
)

// Context keys for error values
const (
	ConfigPathKey  = "config_path"
	WorkspaceIDKey = "workspace_id"
	BackendKey     = "backend"
	ProviderKey    = "provider"
)
