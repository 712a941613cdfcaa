package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/safetydocs/pkg/pipeline"
	"github.com/secmon-lab/safetydocs/pkg/repository/memory"
	"github.com/secmon-lab/safetydocs/pkg/usecase"
	"github.com/secmon-lab/safetydocs/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdCheck() *cli.Command {
	var docTypeName string
	var inputPath string

	return &cli.Command{
		Name:  "check",
		Usage: "Validate a request JSON file against the input schema of a document type",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "type",
				Aliases:     []string{"t"},
				Usage:       "Document type",
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
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			docType, err := parseDocumentType(docTypeName)
			if err != nil {
				return err
			}

			raw, err := readInput(inputPath)
			if err != nil {
				return err
			}

			// Checking never reaches the completion service
			uc, err := usecase.New(memory.New(), nil)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize use cases")
			}

			if err := uc.Generation.Check(docType, raw); err != nil {
				detail := pipeline.DetailOf(err)
				logging.Default().Warn("Request is invalid",
					"document_type", docType,
					"schema", detail.Schema,
					"path", detail.Path,
					"constraint", detail.Constraint,
				)
				return err
			}

			logging.Default().Info("Request is valid", "document_type", docType, "input", inputPath)
			return nil
		},
	}
}
