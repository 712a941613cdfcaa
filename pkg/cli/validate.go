package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/safetydocs/pkg/cli/config"
	"github.com/secmon-lab/safetydocs/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdValidate() *cli.Command {
	var workspaceCfg config.Workspaces

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate workspace configuration files",
		Flags:   workspaceCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			registry, err := workspaceCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "configuration validation failed")
			}

			for _, entry := range registry.List() {
				logger.Info("Workspace validated",
					"id", entry.Workspace.ID,
					"name", entry.Workspace.Name,
					"language", entry.GenerationLanguage(),
					"notify", entry.NotifyChannel != "",
				)
			}
			logger.Info("Configuration validation passed", "workspace_count", len(registry.List()))
			return nil
		},
	}
}
