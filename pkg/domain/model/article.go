package model

import "time"

// MaxArticleChars bounds the article text bound into a prompt
const MaxArticleChars = 20000

// Article is the readable content of a fetched web page
type Article struct {
	URL       string
	Title     string
	Text      string
	FetchedAt time.Time
}

// Excerpt returns the article text truncated to MaxArticleChars runes
func (a *Article) Excerpt() string {
	runes := []rune(a.Text)
	if len(runes) <= MaxArticleChars {
		return a.Text
	}
	return string(runes[:MaxArticleChars]) + "\n[...truncated...]"
}
