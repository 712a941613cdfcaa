package config

import (
	"errors"
	"io/fs"
	"os"
	"regexp"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/safetydocs/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

var workspaceIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,62}$`)

// WorkspaceConfig is one [[workspace]] table of a config file
type WorkspaceConfig struct {
	ID            string `toml:"id"`
	Name          string `toml:"name"`
	Organization  string `toml:"organization"`
	Language      string `toml:"language"`
	NotifyChannel string `toml:"notify_channel"`
}

// Validate checks if the WorkspaceConfig is valid
func (w *WorkspaceConfig) Validate() error {
	if !workspaceIDPattern.MatchString(w.ID) {
		return goerr.Wrap(ErrInvalidWorkspaceID, "workspace ID must be lowercase alphanumeric, '-' or '_'",
			goerr.V(WorkspaceIDKey, w.ID))
	}
	if w.Name == "" {
		return goerr.Wrap(ErrMissingName, "workspace name is required", goerr.V(WorkspaceIDKey, w.ID))
	}
	return nil
}

func (w *WorkspaceConfig) toEntry() *model.WorkspaceEntry {
	return &model.WorkspaceEntry{
		Workspace: model.Workspace{
			ID:   w.ID,
			Name: w.Name,
		},
		Organization:  w.Organization,
		Language:      w.Language,
		NotifyChannel: w.NotifyChannel,
	}
}

// AppConfig is the content of one TOML config file
type AppConfig struct {
	Workspaces []WorkspaceConfig `toml:"workspace"`
}

// Validate checks every workspace and rejects duplicate IDs
func (a *AppConfig) Validate() error {
	seen := make(map[string]bool)
	for _, ws := range a.Workspaces {
		if err := ws.Validate(); err != nil {
			return goerr.Wrap(err, "invalid workspace")
		}
		if seen[ws.ID] {
			return goerr.Wrap(ErrDuplicateWorkspaceID, "workspace declared twice", goerr.V(WorkspaceIDKey, ws.ID))
		}
		seen[ws.ID] = true
	}
	return nil
}

// LoadAppConfiguration loads one TOML config file
func LoadAppConfiguration(path string) (*AppConfig, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "config file does not exist", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	var config AppConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML config",
			goerr.V(ConfigPathKey, path), goerr.V("cause", err.Error()))
	}

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return &config, nil
}

// Workspaces holds CLI flags for the workspace config files
type Workspaces struct {
	paths []string
}

// Flags returns CLI flags for workspace configuration
func (w *Workspaces) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Workspace config file (TOML, can be specified multiple times)",
			Value:       []string{"./config.toml"},
			Sources:     cli.EnvVars("SAFETYDOCS_CONFIG"),
			Destination: &w.paths,
		},
	}
}

// Configure loads every config file into one registry. Workspace IDs must be
// unique across files.
func (w *Workspaces) Configure() (*model.WorkspaceRegistry, error) {
	return LoadWorkspaces(w.paths)
}

// LoadWorkspaces builds a registry from config files in the given order
func LoadWorkspaces(paths []string) (*model.WorkspaceRegistry, error) {
	registry := model.NewWorkspaceRegistry()
	seen := make(map[string]string)

	for _, path := range paths {
		cfg, err := LoadAppConfiguration(path)
		if err != nil {
			return nil, err
		}
		for _, ws := range cfg.Workspaces {
			if prev, ok := seen[ws.ID]; ok {
				return nil, goerr.Wrap(ErrDuplicateWorkspaceID, "workspace declared in two files",
					goerr.V(WorkspaceIDKey, ws.ID),
					goerr.V(ConfigPathKey, path),
					goerr.V("previous_path", prev),
				)
			}
			seen[ws.ID] = path
			registry.Register(ws.toEntry())
		}
	}

	if len(registry.List()) == 0 {
		return nil, goerr.Wrap(ErrNoWorkspace, "at least one [[workspace]] is required")
	}
	return registry, nil
}
