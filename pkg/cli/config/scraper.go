package config

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/safetydocs/pkg/service/scraper"
	"github.com/urfave/cli/v3"
)

// Scraper holds configuration for the article fetcher
type Scraper struct {
	enabled   bool
	cacheSize int
	maxBytes  int64
	timeout   time.Duration
}

// Flags returns CLI flags for article fetching
func (s *Scraper) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "scraper",
			Category:    "Scraper",
			Usage:       "Enable the article_scrape document type",
			Value:       true,
			Sources:     cli.EnvVars("SAFETYDOCS_SCRAPER"),
			Destination: &s.enabled,
		},
		&cli.IntFlag{
			Name:        "scraper-cache-size",
			Category:    "Scraper",
			Usage:       "Number of fetched articles kept in memory",
			Value:       128,
			Sources:     cli.EnvVars("SAFETYDOCS_SCRAPER_CACHE_SIZE"),
			Destination: &s.cacheSize,
		},
		&cli.Int64Flag{
			Name:        "scraper-max-bytes",
			Category:    "Scraper",
			Usage:       "Maximum size of a fetched page",
			Value:       2 << 20,
			Sources:     cli.EnvVars("SAFETYDOCS_SCRAPER_MAX_BYTES"),
			Destination: &s.maxBytes,
		},
		&cli.DurationFlag{
			Name:        "scraper-timeout",
			Category:    "Scraper",
			Usage:       "Timeout of one page fetch",
			Value:       15 * time.Second,
			Sources:     cli.EnvVars("SAFETYDOCS_SCRAPER_TIMEOUT"),
			Destination: &s.timeout,
		},
	}
}

// Configure returns the article fetcher, or nil when disabled
func (s *Scraper) Configure() (*scraper.Scraper, error) {
	if !s.enabled {
		return nil, nil
	}

	sc, err := scraper.New(s.cacheSize,
		scraper.WithTimeout(s.timeout),
		scraper.WithMaxBytes(s.maxBytes),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create scraper")
	}
	return sc, nil
}
