package interfaces

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/safetydocs/pkg/domain/model"
)

// ArticleFetcher downloads a web article and extracts its readable text
type ArticleFetcher interface {
	Fetch(ctx context.Context, url string) (*model.Article, error)
}

// ErrArticleUnavailable is returned when the page cannot be fetched or has
// no readable text
var ErrArticleUnavailable = goerr.New("article unavailable")
