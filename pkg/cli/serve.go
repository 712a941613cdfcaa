package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/safetydocs/pkg/cli/config"
	httpctrl "github.com/secmon-lab/safetydocs/pkg/controller/http"
	"github.com/secmon-lab/safetydocs/pkg/pipeline"
	"github.com/secmon-lab/safetydocs/pkg/usecase"
	"github.com/secmon-lab/safetydocs/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe(version string) *cli.Command {
	var addr string
	var baseURL string
	var maxBodyBytes int64
	var workspaceCfg config.Workspaces
	var repoCfg config.Repository
	var llmCfg config.LLM
	var storageCfg config.Storage
	var slackCfg config.Slack
	var sentryCfg config.Sentry
	var scraperCfg config.Scraper

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("SAFETYDOCS_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "base-url",
			Usage:       "Base URL for the application (e.g., https://your-domain.com)",
			Sources:     cli.EnvVars("SAFETYDOCS_BASE_URL"),
			Destination: &baseURL,
		},
		&cli.Int64Flag{
			Name:        "max-body-bytes",
			Usage:       "Maximum size of a generation request body",
			Value:       httpctrl.DefaultMaxBodyBytes,
			Sources:     cli.EnvVars("SAFETYDOCS_MAX_BODY_BYTES"),
			Destination: &maxBodyBytes,
		},
	}

	flags = append(flags, workspaceCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, llmCfg.Flags()...)
	flags = append(flags, storageCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)
	flags = append(flags, scraperCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			flush, err := sentryCfg.Configure(version)
			if err != nil {
				return err
			}
			defer flush()

			registry, err := workspaceCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load workspace configurations")
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logger.Error("failed to close repository", "error", err.Error())
				}
			}()

			invoker, err := llmCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure completion service")
			}
			logger.Info("Completion service configured", "llm", llmCfg)

			ucOpts := []usecase.Option{
				usecase.WithWorkspaceRegistry(registry),
				usecase.WithStageHook(stageBreadcrumb),
			}

			store, closeStore, err := storageCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer closeStore()
			if store != nil {
				ucOpts = append(ucOpts, usecase.WithReferenceStore(store))
			}

			notifier, err := slackCfg.Configure(baseURL)
			if err != nil {
				return err
			}
			if notifier != nil {
				ucOpts = append(ucOpts, usecase.WithNotifier(notifier))
				logger.Info("Slack notification enabled")
			}

			fetcher, err := scraperCfg.Configure()
			if err != nil {
				return err
			}
			if fetcher != nil {
				ucOpts = append(ucOpts, usecase.WithArticleFetcher(fetcher))
			}

			uc, err := usecase.New(repo, invoker, ucOpts...)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize use cases")
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc, httpctrl.WithMaxBodyBytes(maxBodyBytes)),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting HTTP server", "addr", addr, "workspaces", len(registry.List()))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logger.Info("Received shutdown signal", "signal", sig)

				// Streaming advice responses may take a while to drain
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logger.Info("Server shutdown completed")
				return nil
			}
		},
	}
}

// stageBreadcrumb records flow progress on the request's Sentry hub so that
// a reported failure shows the stages that ran before it
func stageBreadcrumb(ctx context.Context, flow string, stage pipeline.Stage) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		return
	}
	hub.AddBreadcrumb(&sentry.Breadcrumb{
		Category: "pipeline",
		Message:  flow + ": " + string(stage),
		Level:    sentry.LevelInfo,
	}, nil)
}
