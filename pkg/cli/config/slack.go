package config

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/safetydocs/pkg/service/slack"
	"github.com/urfave/cli/v3"
)

// Slack holds configuration for saved-document notifications
type Slack struct {
	botToken string `masq:"secret"`
	apiURL   string
}

// Flags returns CLI flags for Slack configuration
func (s *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Category:    "Slack",
			Usage:       "Slack Bot User OAuth Token (xoxb-...) used to post notifications",
			Sources:     cli.EnvVars("SAFETYDOCS_SLACK_BOT_TOKEN"),
			Destination: &s.botToken,
		},
		&cli.StringFlag{
			Name:        "slack-api-url",
			Category:    "Slack",
			Usage:       "Slack API base URL",
			Sources:     cli.EnvVars("SAFETYDOCS_SLACK_API_URL"),
			Destination: &s.apiURL,
		},
	}
}

// IsConfigured returns true if notifications can be sent
func (s *Slack) IsConfigured() bool {
	return s.botToken != ""
}

// Configure returns the notifier, or nil when no bot token is set. baseURL
// is used to link the saved document from the message.
func (s *Slack) Configure(baseURL string) (*slack.Notifier, error) {
	if !s.IsConfigured() {
		return nil, nil
	}

	opts := []slack.Option{slack.WithBaseURL(baseURL)}
	if s.apiURL != "" {
		opts = append(opts, slack.WithAPIURL(s.apiURL))
	}

	notifier, err := slack.New(s.botToken, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create slack notifier")
	}
	return notifier, nil
}
