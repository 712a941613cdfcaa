package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/safetydocs/pkg/cli/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	gt.NoError(t, os.WriteFile(path, []byte(content), 0o600)).Required()
	return path
}

func TestLoadWorkspaces(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
		wantIDs []string
	}{
		{
			name: "two workspaces in declaration order",
			content: `
[[workspace]]
id = "acme"
name = "Acme"
organization = "Acme Construction"
language = "English"
notify_channel = "C012345"

[[workspace]]
id = "kobe-site_2"
name = "Kobe Site 2"
language = "Japanese"
`,
			wantIDs: []string{"acme", "kobe-site_2"},
		},
		{
			name: "uppercase ID",
			content: `
[[workspace]]
id = "ACME"
name = "Acme"
`,
			wantErr: config.ErrInvalidWorkspaceID,
		},
		{
			name: "missing name",
			content: `
[[workspace]]
id = "acme"
`,
			wantErr: config.ErrMissingName,
		},
		{
			name: "duplicate ID",
			content: `
[[workspace]]
id = "acme"
name = "A"

[[workspace]]
id = "acme"
name = "B"
`,
			wantErr: config.ErrDuplicateWorkspaceID,
		},
		{
			name:    "broken TOML",
			content: `[[workspace]`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name:    "no workspace",
			content: `# empty`,
			wantErr: config.ErrNoWorkspace,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			registry, err := config.LoadWorkspaces([]string{writeConfig(t, tc.content)})
			if tc.wantErr != nil {
				gt.Error(t, err).Is(tc.wantErr)
				return
			}
			gt.NoError(t, err).Required()

			entries := registry.List()
			gt.Array(t, entries).Length(len(tc.wantIDs)).Required()
			for i, id := range tc.wantIDs {
				gt.Value(t, entries[i].Workspace.ID).Equal(id)
			}
		})
	}
}

func TestLoadWorkspacesEntry(t *testing.T) {
	path := writeConfig(t, `
[[workspace]]
id = "acme"
name = "Acme"
organization = "Acme Construction"
notify_channel = "C012345"
`)
	registry, err := config.LoadWorkspaces([]string{path})
	gt.NoError(t, err).Required()

	entry, err := registry.Get("acme")
	gt.NoError(t, err).Required()
	gt.Value(t, entry.Workspace.Name).Equal("Acme")
	gt.Value(t, entry.Organization).Equal("Acme Construction")
	gt.Value(t, entry.NotifyChannel).Equal("C012345")
	gt.Value(t, entry.GenerationLanguage()).Equal("English")
}

func TestLoadWorkspacesAcrossFiles(t *testing.T) {
	a := writeConfig(t, "[[workspace]]\nid = \"a\"\nname = \"A\"\n")
	b := writeConfig(t, "[[workspace]]\nid = \"b\"\nname = \"B\"\n")

	registry, err := config.LoadWorkspaces([]string{a, b})
	gt.NoError(t, err).Required()
	gt.Array(t, registry.List()).Length(2)

	_, err = config.LoadWorkspaces([]string{a, a})
	gt.Error(t, err).Is(config.ErrDuplicateWorkspaceID)
}

func TestLoadWorkspacesMissingFile(t *testing.T) {
	_, err := config.LoadWorkspaces([]string{filepath.Join(t.TempDir(), "none.toml")})
	gt.Error(t, err).Is(config.ErrConfigNotFound)
}

func TestLoggerConfigure(t *testing.T) {
	t.Run("console to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.log")
		closer, err := config.NewLoggerForTest("debug", "console", path).Configure()
		gt.NoError(t, err).Required()
		closer()
	})

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.log")
		closer, err := config.NewLoggerForTest("warn", "json", path).Configure()
		gt.NoError(t, err).Required()
		closer()
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := config.NewLoggerForTest("verbose", "console", "-").Configure()
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := config.NewLoggerForTest("info", "xml", "-").Configure()
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}

func TestLLMConfigure(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown provider", func(t *testing.T) {
		_, err := config.NewLLMForTest("palm", "", 1).Configure(ctx)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("gemini without project", func(t *testing.T) {
		_, err := config.NewLLMForTest("gemini", "", 1).Configure(ctx)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("claude without key", func(t *testing.T) {
		_, err := config.NewLLMForTest("claude", "", 1).Configure(ctx)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("negative concurrency", func(t *testing.T) {
		_, err := config.NewLLMForTest("gemini", "project", -1).Configure(ctx)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("gemini", func(t *testing.T) {
		projectID := os.Getenv("TEST_GEMINI_PROJECT")
		if projectID == "" {
			t.Skip("TEST_GEMINI_PROJECT is not set")
		}
		invoker, err := config.NewLLMForTest("gemini", projectID, 2).Configure(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, invoker).NotNil()
	})
}

func TestRepositoryConfigure(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		repo, err := config.NewRepositoryForTest("memory", "").Configure(ctx)
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Close())
	})

	t.Run("firestore without project", func(t *testing.T) {
		_, err := config.NewRepositoryForTest("firestore", "").Configure(ctx)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := config.NewRepositoryForTest("mysql", "").Configure(ctx)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}

func TestStorageConfigure(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled", func(t *testing.T) {
		store, closer, err := config.NewStorageForTest("none", "").Configure(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, store).Nil()
		closer()
	})

	t.Run("memory", func(t *testing.T) {
		store, closer, err := config.NewStorageForTest("memory", "").Configure(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, store).NotNil()
		closer()
	})

	t.Run("gcs without bucket", func(t *testing.T) {
		_, _, err := config.NewStorageForTest("gcs", "").Configure(ctx)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, _, err := config.NewStorageForTest("s3", "").Configure(ctx)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}

func TestSlackConfigure(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		cfg := config.NewSlackForTest("", "")
		gt.Bool(t, cfg.IsConfigured()).False()
		notifier, err := cfg.Configure("https://docs.example.com")
		gt.NoError(t, err).Required()
		gt.Value(t, notifier).Nil()
	})

	t.Run("configured", func(t *testing.T) {
		cfg := config.NewSlackForTest("xoxb-test", "http://127.0.0.1:1/api/")
		gt.Bool(t, cfg.IsConfigured()).True()
		notifier, err := cfg.Configure("https://docs.example.com")
		gt.NoError(t, err).Required()
		gt.Value(t, notifier).NotNil()
	})
}

func TestScraperConfigure(t *testing.T) {
	sc, err := config.NewScraperForTest(false).Configure()
	gt.NoError(t, err).Required()
	gt.Value(t, sc).Nil()

	sc, err = config.NewScraperForTest(true).Configure()
	gt.NoError(t, err).Required()
	gt.Value(t, sc).NotNil()
}
