package slack

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/safetydocs/pkg/domain/interfaces"
	"github.com/secmon-lab/safetydocs/pkg/domain/model"
	"github.com/slack-go/slack"
)

// maxPreviewBytes keeps the preview well under Slack's 3000 character
// section text limit
const maxPreviewBytes = 2500

// Notifier posts a message to a Slack channel when a document is saved
type Notifier struct {
	api     *slack.Client
	baseURL string
}

var _ interfaces.Notifier = &Notifier{}

type Option func(*notifierConfig)

type notifierConfig struct {
	apiURL  string
	baseURL string
}

// WithAPIURL points the client at another Slack API endpoint
func WithAPIURL(url string) Option {
	return func(c *notifierConfig) {
		c.apiURL = url
	}
}

// WithBaseURL sets the public URL of this service. Messages then link to
// the saved document.
func WithBaseURL(url string) Option {
	return func(c *notifierConfig) {
		c.baseURL = url
	}
}

// New creates a notifier with the provided bot token
func New(token string, opts ...Option) (*Notifier, error) {
	if token == "" {
		return nil, goerr.New("Slack bot token is required")
	}

	var cfg notifierConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	var slackOpts []slack.Option
	if cfg.apiURL != "" {
		slackOpts = append(slackOpts, slack.OptionAPIURL(cfg.apiURL))
	}

	return &Notifier{
		api:     slack.New(token, slackOpts...),
		baseURL: cfg.baseURL,
	}, nil
}

func (n *Notifier) DocumentSaved(ctx context.Context, channel string, doc *model.GeneratedDocument) error {
	blocks := n.documentBlocks(doc)
	text := fmt.Sprintf("%s saved: %s", doc.DocumentType.Label(), doc.Title)

	if _, _, err := n.api.PostMessageContext(ctx, channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionBlocks(blocks...),
	); err != nil {
		return goerr.Wrap(err, "failed to post message",
			goerr.V("channel", channel),
			goerr.V("document_id", doc.ID),
		)
	}
	return nil
}

func (n *Notifier) documentBlocks(doc *model.GeneratedDocument) []slack.Block {
	header := slack.NewHeaderBlock(
		slack.NewTextBlockObject(slack.PlainTextType, doc.DocumentType.Label()+" saved", false, false),
	)

	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject(slack.MarkdownType, "*Title*\n"+doc.Title, false, false),
		slack.NewTextBlockObject(slack.MarkdownType, "*Organization*\n"+orDash(doc.OrganizationName), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, "*Document ID*\n`"+string(doc.ID)+"`", false, false),
		slack.NewTextBlockObject(slack.MarkdownType, "*Created*\n"+doc.CreatedAt.UTC().Format("2006-01-02 15:04 MST"), false, false),
	}
	summary := slack.NewSectionBlock(nil, fields, nil)

	preview := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, "```"+truncateToMaxBytes(doc.Markdown, maxPreviewBytes)+"```", false, false),
		nil, nil,
	)

	blocks := []slack.Block{header, summary, preview}

	if n.baseURL != "" {
		link := fmt.Sprintf("%s/api/ws/%s/documents/%s", n.baseURL, doc.WorkspaceID, doc.ID)
		blocks = append(blocks, slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType, "<"+link+"|Open document>", false, false),
		))
	}
	return blocks
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncateToMaxBytes cuts s at a rune boundary so that the result, including
// the ellipsis, fits in maxBytes
func truncateToMaxBytes(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	const ellipsis = "\n…"
	cut := maxBytes - len(ellipsis)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + ellipsis
}
