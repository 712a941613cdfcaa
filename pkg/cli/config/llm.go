package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/claude"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/m-mizutani/gollem/llm/openai"
	"github.com/secmon-lab/safetydocs/pkg/pipeline"
	"github.com/urfave/cli/v3"
)

// LLM holds configuration for the completion service
type LLM struct {
	provider       string
	model          string
	geminiProject  string
	geminiLocation string
	claudeAPIKey   string
	openaiAPIKey   string
	timeout        time.Duration
	concurrency    int64
}

// Flags returns CLI flags for completion service configuration
func (x *LLM) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "llm-provider",
			Category:    "LLM",
			Usage:       "Completion service provider [gemini|claude|openai]",
			Value:       "gemini",
			Sources:     cli.EnvVars("SAFETYDOCS_LLM_PROVIDER"),
			Destination: &x.provider,
		},
		&cli.StringFlag{
			Name:        "llm-model",
			Category:    "LLM",
			Usage:       "Model name, provider default when empty",
			Sources:     cli.EnvVars("SAFETYDOCS_LLM_MODEL"),
			Destination: &x.model,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Category:    "LLM",
			Usage:       "Google Cloud project ID for Gemini API",
			Sources:     cli.EnvVars("SAFETYDOCS_GEMINI_PROJECT"),
			Destination: &x.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Category:    "LLM",
			Usage:       "Google Cloud location for Gemini API",
			Value:       "us-central1",
			Sources:     cli.EnvVars("SAFETYDOCS_GEMINI_LOCATION"),
			Destination: &x.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "claude-api-key",
			Category:    "LLM",
			Usage:       "Anthropic API key",
			Sources:     cli.EnvVars("SAFETYDOCS_CLAUDE_API_KEY"),
			Destination: &x.claudeAPIKey,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Category:    "LLM",
			Usage:       "OpenAI API key",
			Sources:     cli.EnvVars("SAFETYDOCS_OPENAI_API_KEY"),
			Destination: &x.openaiAPIKey,
		},
		&cli.DurationFlag{
			Name:        "llm-timeout",
			Category:    "LLM",
			Usage:       "Timeout of one completion call",
			Value:       2 * time.Minute,
			Sources:     cli.EnvVars("SAFETYDOCS_LLM_TIMEOUT"),
			Destination: &x.timeout,
		},
		&cli.Int64Flag{
			Name:        "llm-concurrency",
			Category:    "LLM",
			Usage:       "Maximum in-flight completion calls, 0 for unbounded",
			Value:       8,
			Sources:     cli.EnvVars("SAFETYDOCS_LLM_CONCURRENCY"),
			Destination: &x.concurrency,
		},
	}
}

func (x LLM) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("provider", x.provider),
		slog.String("model", x.model),
		slog.String("gemini_project", x.geminiProject),
		slog.String("gemini_location", x.geminiLocation),
		slog.Bool("claude_api_key", x.claudeAPIKey != ""),
		slog.Bool("openai_api_key", x.openaiAPIKey != ""),
		slog.Duration("timeout", x.timeout),
		slog.Int64("concurrency", x.concurrency),
	)
}

// NewClient creates the gollem client of the configured provider
func (x *LLM) NewClient(ctx context.Context) (gollem.LLMClient, error) {
	switch x.provider {
	case "gemini":
		if x.geminiProject == "" {
			return nil, goerr.Wrap(ErrInvalidConfig, "gemini-project is required for the gemini provider")
		}
		var opts []gemini.Option
		if x.model != "" {
			opts = append(opts, gemini.WithModel(x.model))
		}
		client, err := gemini.New(ctx, x.geminiProject, x.geminiLocation, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create Gemini client")
		}
		return client, nil

	case "claude":
		if x.claudeAPIKey == "" {
			return nil, goerr.Wrap(ErrInvalidConfig, "claude-api-key is required for the claude provider")
		}
		var opts []claude.Option
		if x.model != "" {
			opts = append(opts, claude.WithModel(x.model))
		}
		client, err := claude.New(ctx, x.claudeAPIKey, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create Claude client")
		}
		return client, nil

	case "openai":
		if x.openaiAPIKey == "" {
			return nil, goerr.Wrap(ErrInvalidConfig, "openai-api-key is required for the openai provider")
		}
		var opts []openai.Option
		if x.model != "" {
			opts = append(opts, openai.WithModel(x.model))
		}
		client, err := openai.New(ctx, x.openaiAPIKey, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create OpenAI client")
		}
		return client, nil

	default:
		return nil, goerr.Wrap(ErrInvalidConfig, "unknown LLM provider", goerr.V(ProviderKey, x.provider))
	}
}

// Configure creates the invoker every generation flow calls through
func (x *LLM) Configure(ctx context.Context) (*pipeline.LLMInvoker, error) {
	if x.concurrency < 0 {
		return nil, goerr.Wrap(ErrInvalidConfig, "llm-concurrency must not be negative")
	}

	client, err := x.NewClient(ctx)
	if err != nil {
		return nil, err
	}

	return pipeline.NewLLMInvoker(client,
		pipeline.WithTimeout(x.timeout),
		pipeline.WithMaxConcurrency(x.concurrency),
	), nil
}
