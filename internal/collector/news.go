package collector

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// Headline is a news item used to ground trend enrichment: the analyst
// prompt gets recent headlines so "why_trending" cites real events
// instead of model guesses.
type Headline struct {
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	Summary     string    `json:"summary"`
	PublishedAt time.Time `json:"published_at"`
}

// DefaultContextFeeds lists the news feeds used when none are configured.
var DefaultContextFeeds = []string{
	"https://news.google.com/rss?hl=en-US&gl=US&ceid=US:en",
	"https://news.google.com/rss?hl=en-IN&gl=IN&ceid=IN:en",
}

// NewsSource fetches recent headlines from configured RSS feeds.
type NewsSource struct {
	feeds  []string
	parser *gofeed.Parser

	mu      sync.RWMutex
	cached  []Headline
	fetched time.Time
	ttl     time.Duration
}

// NewNewsSource creates a news source. Passing no feeds uses the default
// Google News feeds for both regions.
func NewNewsSource(feeds []string) *NewsSource {
	if len(feeds) == 0 {
		feeds = DefaultContextFeeds
	}
	return &NewsSource{
		feeds:  feeds,
		parser: gofeed.NewParser(),
		ttl:    10 * time.Minute,
	}
}

// RecentHeadlines returns up to limit recent headlines across all feeds,
// newest first. Individual feed failures are skipped; the call fails only
// when every feed fails.
func (n *NewsSource) RecentHeadlines(ctx context.Context, limit int) ([]Headline, error) {
	n.mu.RLock()
	if time.Since(n.fetched) < n.ttl && n.cached != nil {
		cached := n.cached
		n.mu.RUnlock()
		return clip(cached, limit), nil
	}
	n.mu.RUnlock()

	var all []Headline
	var lastErr error
	for _, url := range n.feeds {
		items, err := n.fetchFeed(ctx, url)
		if err != nil {
			lastErr = err
			continue
		}
		all = append(all, items...)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("collector: all context feeds failed: %w", lastErr)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].PublishedAt.After(all[j].PublishedAt)
	})

	n.mu.Lock()
	n.cached = all
	n.fetched = time.Now()
	n.mu.Unlock()

	return clip(all, limit), nil
}

// HeadlineDigest renders headlines into the compact text block the
// analysis prompt expects, one per line.
func HeadlineDigest(headlines []Headline) string {
	var b strings.Builder
	for _, h := range headlines {
		fmt.Fprintf(&b, "- [%s] %s\n", h.Source, h.Title)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (n *NewsSource) fetchFeed(ctx context.Context, url string) ([]Headline, error) {
	feed, err := n.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", url, err)
	}

	source := feed.Title
	if source == "" {
		source = url
	}

	items := make([]Headline, 0, len(feed.Items))
	for _, item := range feed.Items {
		h := Headline{
			Title:   item.Title,
			Source:  source,
			URL:     item.Link,
			Summary: cleanHTML(item.Description),
		}
		if item.PublishedParsed != nil {
			h.PublishedAt = *item.PublishedParsed
		}
		items = append(items, h)
	}
	return items, nil
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

func clip(h []Headline, limit int) []Headline {
	if limit > 0 && len(h) > limit {
		return h[:limit]
	}
	return h
}
