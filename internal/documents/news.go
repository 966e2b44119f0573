package documents

import (
	"context"
	"time"

	"github.com/mmcdole/gofeed"
)

// Announcement is a single news item from the bond site feed.
type Announcement struct {
	Title     string
	Link      string
	Published time.Time
	Summary   string
}

// Announcements fetches the latest items from the bond site RSS feed,
// at most limit entries (0 means all).
func (s *Service) Announcements(ctx context.Context, limit int) ([]Announcement, error) {
	if cached, ok := s.cache.Get("feed"); ok {
		return clip(cached.([]Announcement), limit), nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	parser := gofeed.NewParser()
	feed, err := parser.ParseURLWithContext(s.FeedURL, ctx)
	if err != nil {
		return nil, err
	}
	items := make([]Announcement, 0, len(feed.Items))
	for _, item := range feed.Items {
		a := Announcement{
			Title:   item.Title,
			Link:    item.Link,
			Summary: item.Description,
		}
		if item.PublishedParsed != nil {
			a.Published = *item.PublishedParsed
		}
		items = append(items, a)
	}
	s.cache.SetWithTTL("feed", items, 10*time.Minute)
	return clip(items, limit), nil
}

func clip(items []Announcement, limit int) []Announcement {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
