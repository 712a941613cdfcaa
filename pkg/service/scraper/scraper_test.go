package scraper_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/safetydocs/pkg/domain/interfaces"
	"github.com/secmon-lab/safetydocs/pkg/service/scraper"
)

const articlePage = `<!DOCTYPE html>
<html>
<head><title>Scaffold collapse injures three</title>
<script>var tracking = "do not include";</script>
<style>body { color: red }</style>
</head>
<body>
<nav><a href="/">Home</a> | <a href="/news">News</a></nav>
<article>
<h1>Scaffold collapse</h1>
<p>Three workers were injured when a   scaffold
collapsed on Tuesday.</p>
<h2>Findings</h2>
<ul><li>Base plates were missing</li><li>No daily inspection record</li></ul>
</article>
<footer>Copyright</footer>
</body>
</html>`

func newServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articlePage))
	})
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("Toolbox talk:\r\n\r\n\r\n\r\nwear   gloves"))
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><script>x()</script></body></html>"))
	})
	mux.HandleFunc("/image", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 0x50})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestScraperFetch(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, &hits)
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	s, err := scraper.New(8, scraper.WithHTTPClient(srv.Client()), scraper.WithClock(func() time.Time { return fixed }))
	gt.NoError(t, err).Required()

	article, err := s.Fetch(context.Background(), srv.URL+"/article")
	gt.NoError(t, err).Required()

	gt.Value(t, article.Title).Equal("Scaffold collapse injures three")
	gt.Value(t, article.FetchedAt).Equal(fixed)
	gt.String(t, article.Text).Contains("# Scaffold collapse")
	gt.String(t, article.Text).Contains("Three workers were injured when a scaffold collapsed on Tuesday.")
	gt.String(t, article.Text).Contains("## Findings")
	gt.String(t, article.Text).Contains("- Base plates were missing")
	gt.Bool(t, strings.Contains(article.Text, "tracking")).False()
	gt.Bool(t, strings.Contains(article.Text, "color: red")).False()
	gt.Bool(t, strings.Contains(article.Text, "Home")).False()
	gt.Bool(t, strings.Contains(article.Text, "Copyright")).False()
}

func TestScraperCachesByURL(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, &hits)

	s, err := scraper.New(8, scraper.WithHTTPClient(srv.Client()))
	gt.NoError(t, err).Required()

	first, err := s.Fetch(context.Background(), srv.URL+"/article")
	gt.NoError(t, err).Required()
	first.Text = "mutated by caller"

	second, err := s.Fetch(context.Background(), srv.URL+"/article")
	gt.NoError(t, err).Required()

	gt.Value(t, hits.Load()).Equal(int32(1))
	gt.String(t, second.Text).Contains("Scaffold collapse")
}

func TestScraperPlainText(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, &hits)

	s, err := scraper.New(8, scraper.WithHTTPClient(srv.Client()))
	gt.NoError(t, err).Required()

	article, err := s.Fetch(context.Background(), srv.URL+"/plain")
	gt.NoError(t, err).Required()
	gt.Value(t, article.Title).Equal("")
	gt.Value(t, article.Text).Equal("Toolbox talk:\n\nwear gloves")
}

func TestScraperUnavailable(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, &hits)

	s, err := scraper.New(8, scraper.WithHTTPClient(srv.Client()))
	gt.NoError(t, err).Required()

	for _, tc := range []struct {
		name string
		url  string
	}{
		{"not found", srv.URL + "/missing"},
		{"no readable text", srv.URL + "/empty"},
		{"binary content", srv.URL + "/image"},
		{"unsupported scheme", "ftp://example.com/file"},
		{"not a URL", "::not a url"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Fetch(context.Background(), tc.url)
			gt.Error(t, err).Is(interfaces.ErrArticleUnavailable)
		})
	}
}

func TestScraperRejectsNonPublicAddress(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, &hits)

	s, err := scraper.New(8)
	gt.NoError(t, err).Required()

	_, err = s.Fetch(context.Background(), srv.URL+"/article")
	gt.Error(t, err).Is(interfaces.ErrArticleUnavailable)
	gt.Value(t, hits.Load()).Equal(int32(0))
}

func TestIsPublicAddr(t *testing.T) {
	for _, tc := range []struct {
		addr   string
		public bool
	}{
		{"127.0.0.1", false},
		{"10.1.2.3", false},
		{"172.16.0.10", false},
		{"192.168.1.1", false},
		{"169.254.169.254", false},
		{"100.64.0.1", false},
		{"0.0.0.0", false},
		{"::1", false},
		{"fe80::1", false},
		{"fd00::1", false},
		{"::ffff:127.0.0.1", false},
		{"8.8.8.8", true},
		{"2001:4860:4860::8888", true},
	} {
		t.Run(tc.addr, func(t *testing.T) {
			gt.Value(t, scraper.IsPublicAddr(netip.MustParseAddr(tc.addr))).Equal(tc.public)
		})
	}
}

type slowServer struct {
	srv     *httptest.Server
	hits    atomic.Int32
	started chan struct{}
	release chan struct{}
}

func newSlowServer(t *testing.T) *slowServer {
	t.Helper()
	s := &slowServer{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	var once sync.Once
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		once.Do(func() { close(s.started) })
		<-s.release
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articlePage))
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func TestScraperCallerCancelDoesNotFailOthers(t *testing.T) {
	slow := newSlowServer(t)
	s, err := scraper.New(8, scraper.WithHTTPClient(slow.srv.Client()))
	gt.NoError(t, err).Required()

	target := slow.srv.URL + "/article"
	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := s.Fetch(ctx, target)
		firstErr <- err
	}()
	<-slow.started

	secondErr := make(chan error, 1)
	go func() {
		_, err := s.Fetch(context.Background(), target)
		secondErr <- err
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	gt.Error(t, <-firstErr).Is(context.Canceled)

	close(slow.release)
	gt.NoError(t, <-secondErr)

	before := slow.hits.Load()
	article, err := s.Fetch(context.Background(), target)
	gt.NoError(t, err).Required()
	gt.String(t, article.Text).Contains("Scaffold collapse")
	gt.Value(t, slow.hits.Load()).Equal(before)
}

func TestScraperCachesSharedFetch(t *testing.T) {
	slow := newSlowServer(t)
	s, err := scraper.New(8, scraper.WithHTTPClient(slow.srv.Client()))
	gt.NoError(t, err).Required()

	target := slow.srv.URL + "/article"
	errs := make([]error, 3)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Fetch(context.Background(), target)
		}(i)
	}
	<-slow.started
	time.Sleep(50 * time.Millisecond)
	close(slow.release)
	wg.Wait()

	for _, err := range errs {
		gt.NoError(t, err)
	}

	before := slow.hits.Load()
	_, err = s.Fetch(context.Background(), target)
	gt.NoError(t, err).Required()
	gt.Value(t, slow.hits.Load()).Equal(before)
}
