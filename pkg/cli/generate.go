package cli

import (
	"context"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/safetydocs/pkg/cli/config"
	"github.com/secmon-lab/safetydocs/pkg/domain/interfaces"
	"github.com/secmon-lab/safetydocs/pkg/domain/types"
	"github.com/secmon-lab/safetydocs/pkg/pipeline"
	"github.com/secmon-lab/safetydocs/pkg/repository/memory"
	"github.com/secmon-lab/safetydocs/pkg/usecase"
	"github.com/secmon-lab/safetydocs/pkg/utils/logging"
	"github.com/secmon-lab/safetydocs/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

// readInput reads a request file, "-" meaning stdin
func readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read stdin")
		}
		return data, nil
	}

	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read input file", goerr.V("path", path))
	}
	return data, nil
}

func writeOutput(ctx context.Context, path, text string) error {
	if path == "" || path == "-" {
		safe.Write(ctx, os.Stdout, []byte(text))
		return nil
	}
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		return goerr.Wrap(err, "failed to write output file", goerr.V("path", path))
	}
	return nil
}

func parseDocumentType(s string) (types.DocumentType, error) {
	docType, err := types.ParseDocumentType(s)
	if err != nil {
		return "", goerr.Wrap(usecase.ErrUnsupportedDocumentType, "unknown document type",
			goerr.V(usecase.DocumentTypeKey, s))
	}
	return docType, nil
}

func cmdGenerate() *cli.Command {
	var docTypeName string
	var inputPath string
	var outputPath string
	var workspaceID string
	var save bool
	var dryRun bool
	var workspaceCfg config.Workspaces
	var repoCfg config.Repository
	var llmCfg config.LLM
	var storageCfg config.Storage
	var scraperCfg config.Scraper

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "type",
			Aliases:     []string{"t"},
			Usage:       "Document type (hira, she-plan, method-statement, safe-work-procedure, risk-assessment, article-scrape)",
			Required:    true,
			Destination: &docTypeName,
		},
		&cli.StringFlag{
			Name:        "input",
			Aliases:     []string{"i"},
			Usage:       "Request JSON file, '-' for stdin",
			Value:       "-",
			Destination: &inputPath,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Markdown output file, stdout when empty",
			Destination: &outputPath,
		},
		&cli.StringFlag{
			Name:        "workspace",
			Aliases:     []string{"w"},
			Usage:       "Workspace ID",
			Required:    true,
			Sources:     cli.EnvVars("SAFETYDOCS_WORKSPACE"),
			Destination: &workspaceID,
		},
		&cli.BoolFlag{
			Name:        "save",
			Usage:       "Store the document in the workspace library",
			Destination: &save,
		},
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "Print the prompt instead of calling the completion service",
			Destination: &dryRun,
		},
	}
	flags = append(flags, workspaceCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, llmCfg.Flags()...)
	flags = append(flags, storageCfg.Flags()...)
	flags = append(flags, scraperCfg.Flags()...)

	return &cli.Command{
		Name:    "generate",
		Aliases: []string{"g"},
		Usage:   "Generate one document from a request JSON file",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			docType, err := parseDocumentType(docTypeName)
			if err != nil {
				return err
			}

			raw, err := readInput(inputPath)
			if err != nil {
				return err
			}

			registry, err := workspaceCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load workspace configurations")
			}

			var repo interfaces.Repository = memory.New()
			if save {
				repo, err = repoCfg.Configure(ctx)
				if err != nil {
					return goerr.Wrap(err, "failed to initialize repository")
				}
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logger.Error("failed to close repository", "error", err.Error())
				}
			}()

			ucOpts := []usecase.Option{usecase.WithWorkspaceRegistry(registry)}

			store, closeStore, err := storageCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer closeStore()
			if store != nil {
				ucOpts = append(ucOpts, usecase.WithReferenceStore(store))
			}

			fetcher, err := scraperCfg.Configure()
			if err != nil {
				return err
			}
			if fetcher != nil {
				ucOpts = append(ucOpts, usecase.WithArticleFetcher(fetcher))
			}

			var invoker pipeline.Invoker
			if !dryRun {
				llm, err := llmCfg.Configure(ctx)
				if err != nil {
					return goerr.Wrap(err, "failed to configure completion service")
				}
				invoker = llm
			}

			uc, err := usecase.New(repo, invoker, ucOpts...)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize use cases")
			}

			if dryRun {
				prompt, err := uc.Generation.Render(ctx, workspaceID, docType, raw)
				if err != nil {
					return err
				}
				return writeOutput(ctx, outputPath, prompt)
			}

			got, err := uc.Generation.Generate(ctx, workspaceID, docType, raw, usecase.GenerateOptions{Save: save})
			if err != nil {
				return err
			}
			if got.Document != nil {
				logger.Info("Document saved", "document_id", got.Document.ID, "workspace_id", workspaceID)
			}

			return writeOutput(ctx, outputPath, got.Result.Document)
		},
	}
}
