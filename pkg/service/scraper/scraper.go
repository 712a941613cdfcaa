package scraper

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/safetydocs/pkg/domain/interfaces"
	"github.com/secmon-lab/safetydocs/pkg/domain/model"
	"github.com/secmon-lab/safetydocs/pkg/utils/logging"
	"github.com/secmon-lab/safetydocs/pkg/utils/safe"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultCacheSize = 256
	DefaultMaxBytes  = 2 << 20
	DefaultTimeout   = 30 * time.Second
	userAgent        = "Mozilla/5.0 (compatible; safetydocs/1.0)"
)

// Scraper fetches articles over HTTP. Results are cached by URL and
// concurrent fetches of one URL share a single request. The default client
// refuses non-public addresses.
type Scraper struct {
	client   *http.Client
	cache    *lru.Cache[string, *model.Article]
	group    singleflight.Group
	maxBytes int64
	now      func() time.Time
}

var _ interfaces.ArticleFetcher = &Scraper{}

type Option func(*Scraper)

func WithHTTPClient(client *http.Client) Option {
	return func(s *Scraper) {
		s.client = client
	}
}

// WithTimeout bounds one page fetch of the default client
func WithTimeout(d time.Duration) Option {
	return func(s *Scraper) {
		s.client = NewPublicClient(d)
	}
}

// WithMaxBytes limits how much of a response body is read
func WithMaxBytes(n int64) Option {
	return func(s *Scraper) {
		s.maxBytes = n
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scraper) {
		s.now = now
	}
}

func New(cacheSize int, opts ...Option) (*Scraper, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *model.Article](cacheSize)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create article cache", goerr.V("size", cacheSize))
	}

	s := &Scraper{
		client:   NewPublicClient(DefaultTimeout),
		cache:    cache,
		maxBytes: DefaultMaxBytes,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Scraper) Fetch(ctx context.Context, rawURL string) (*model.Article, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, goerr.Wrap(interfaces.ErrArticleUnavailable, "invalid article URL", goerr.V("url", rawURL))
	}
	key := u.String()

	if article, ok := s.cache.Get(key); ok {
		logging.From(ctx).Debug("article cache hit", "url", key)
		copied := *article
		return &copied, nil
	}

	// The shared request outlives any single caller; each caller only waits
	// as long as its own context allows.
	ch := s.group.DoChan(key, func() (any, error) {
		article, err := s.fetch(context.WithoutCancel(ctx), key)
		if err != nil {
			return nil, err
		}
		s.cache.Add(key, article)
		return article, nil
	})

	select {
	case <-ctx.Done():
		return nil, goerr.Wrap(ctx.Err(), "article fetch abandoned", goerr.V("url", key))
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		copied := *res.Val.(*model.Article)
		return &copied, nil
	}
}

func (s *Scraper) fetch(ctx context.Context, target string) (*model.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request", goerr.V("url", target))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, goerr.Wrap(interfaces.ErrArticleUnavailable, "failed to fetch article",
			goerr.V("url", target), goerr.V("error", err.Error()))
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, goerr.Wrap(interfaces.ErrArticleUnavailable, "unexpected status",
			goerr.V("url", target), goerr.V("status", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read article", goerr.V("url", target))
	}

	var title, text string
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch mediaType {
	case "text/plain", "text/markdown":
		text = cleanText(string(body))
	case "text/html", "application/xhtml+xml", "":
		title, text, err = extractArticle(string(body))
		if err != nil {
			return nil, goerr.Wrap(interfaces.ErrArticleUnavailable, "failed to parse article",
				goerr.V("url", target), goerr.V("error", err.Error()))
		}
	default:
		return nil, goerr.Wrap(interfaces.ErrArticleUnavailable, "unsupported content type",
			goerr.V("url", target), goerr.V("content_type", mediaType))
	}

	if strings.TrimSpace(text) == "" {
		return nil, goerr.Wrap(interfaces.ErrArticleUnavailable, "article has no readable text", goerr.V("url", target))
	}

	logging.From(ctx).Info("article fetched", "url", target, "chars", len(text))

	return &model.Article{
		URL:       target,
		Title:     title,
		Text:      text,
		FetchedAt: s.now().UTC(),
	}, nil
}
