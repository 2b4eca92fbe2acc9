package news

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"sync"

	"MacroPulse/internal/domain/models"
	domrepo "MacroPulse/internal/domain/repository"
	xhttp "MacroPulse/pkg/http"
	applogger "MacroPulse/pkg/logger"
)

type rssDoc struct {
	Channel struct {
		Items []struct {
			Title string `xml:"title"`
			Link  string `xml:"link"`
		} `xml:"item"`
	} `xml:"channel"`
}

// RSSSource reads headlines from a list of RSS 2.0 feeds. Feeds are fetched
// concurrently; items keep feed order and duplicates by link are dropped.
type RSSSource struct {
	client *xhttp.Client
	feeds  []string
	limit  int
	l      *applogger.Logger
}

func NewRSSSource(client *xhttp.Client, feeds []string, limit int, l *applogger.Logger) *RSSSource {
	if l == nil {
		l = applogger.Nop()
	}
	return &RSSSource{client: client, feeds: feeds, limit: limit, l: l}
}

func (s *RSSSource) Headlines(ctx context.Context) ([]models.Headline, error) {
	if len(s.feeds) == 0 {
		return []models.Headline{}, nil
	}
	perFeed := make([][]models.Headline, len(s.feeds))
	errs := make([]error, len(s.feeds))

	var wg sync.WaitGroup
	for i, url := range s.feeds {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			perFeed[i], errs[i] = s.fetchFeed(ctx, url)
		}(i, url)
	}
	wg.Wait()

	seen := map[string]struct{}{}
	out := make([]models.Headline, 0, s.limit)
	failed := 0
	for i, items := range perFeed {
		if errs[i] != nil {
			failed++
			s.l.Warn("rss feed failed", applogger.String("feed", s.feeds[i]), applogger.Error(errs[i]))
			continue
		}
		for _, h := range items {
			if _, dup := seen[h.Link]; dup {
				continue
			}
			seen[h.Link] = struct{}{}
			out = append(out, h)
		}
	}
	if failed == len(s.feeds) {
		return nil, fmt.Errorf("%w: all feeds failed: %v", domrepo.ErrSourceUnavailable, errors.Join(errs...))
	}
	if s.limit > 0 && len(out) > s.limit {
		out = out[:s.limit]
	}
	return out, nil
}

func (s *RSSSource) fetchFeed(ctx context.Context, url string) ([]models.Headline, error) {
	body, err := s.client.GetBytes(ctx, url, map[string]string{"Accept": "application/rss+xml, application/xml"})
	if err != nil {
		return nil, err
	}
	var doc rssDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse rss: %w", err)
	}
	out := make([]models.Headline, 0, len(doc.Channel.Items))
	for _, it := range doc.Channel.Items {
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}
		out = append(out, models.Headline{Title: title, Link: strings.TrimSpace(it.Link)})
	}
	return out, nil
}

var _ domrepo.HeadlineSource = (*RSSSource)(nil)
