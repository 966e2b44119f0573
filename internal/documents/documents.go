// Package documents retrieves bond letters of issue and related
// announcements. Letters are PDFs served by the bond information site;
// when an issue's letter is not at its well-known slug the package falls
// back to the finance ministry's document search.
package documents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mpapierski/obligacjeskarbowe/internal/infra"
)

// Default endpoints.
const (
	DefaultArchiveURL = "https://www.obligacjeskarbowe.pl"
	DefaultSearchURL  = "https://www.gov.pl/api/data/finanse/listy-emisyjne"
	DefaultFeedURL    = "https://www.obligacjeskarbowe.pl/feed/"
)

// issueCodeRe is the issue naming scheme: a letter prefix plus a 4-digit
// maturity sequence, e.g. ROD0535.
var issueCodeRe = regexp.MustCompile(`^([A-Z]{3})(\d{4})$`)

// Service fetches issuance documents. Lookups are cached and rate
// limited; the archive is a shared public site.
type Service struct {
	ArchiveURL string
	SearchURL  string
	FeedURL    string

	httpc   *http.Client
	cache   *infra.Cache
	limiter *infra.RateLimiter
	logger  *slog.Logger
}

// NewService creates a document service with the default endpoints.
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		ArchiveURL: DefaultArchiveURL,
		SearchURL:  DefaultSearchURL,
		FeedURL:    DefaultFeedURL,
		httpc:      &http.Client{Timeout: 30 * time.Second},
		cache:      infra.NewCache(30 * time.Minute),
		limiter:    infra.NewRateLimiter(2, time.Second),
		logger:     logger.With("component", "documents"),
	}
}

// LetterOfIssue downloads the letter-of-issue PDF for the given issue
// code. The primary source is the archive's well-known slug; a miss there
// falls back to the ministry search API.
func (s *Service) LetterOfIssue(ctx context.Context, code string) ([]byte, error) {
	if !issueCodeRe.MatchString(code) {
		return nil, fmt.Errorf("issue code %q does not match the prefix + 4-digit scheme", code)
	}
	if cached, ok := s.cache.Get("letter:" + code); ok {
		return cached.([]byte), nil
	}

	slug := strings.ToLower(code)
	pdf, err := s.fetch(ctx, fmt.Sprintf("%s/listy-emisyjne/list_emisyjny_%s.pdf", s.ArchiveURL, slug))
	if err != nil {
		s.logger.Debug("archive miss, falling back to ministry search", "code", code, "error", err)
		if pdf, err = s.searchMinistry(ctx, code); err != nil {
			return nil, err
		}
	}
	s.cache.Set("letter:"+code, pdf)
	return pdf, nil
}

// searchResult is one entry of the ministry search API response.
type searchResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// searchMinistry queries the finance ministry document search for the
// issue code and downloads the first matching document.
func (s *Service) searchMinistry(ctx context.Context, code string) ([]byte, error) {
	query := url.Values{"query": {code}}
	body, err := s.fetch(ctx, s.SearchURL+"?"+query.Encode())
	if err != nil {
		return nil, err
	}
	var results struct {
		Items []searchResult `json:"items"`
	}
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("ministry search response: %w", err)
	}
	for _, item := range results.Items {
		if strings.Contains(strings.ToUpper(item.Title), code) {
			return s.fetch(ctx, item.URL)
		}
	}
	return nil, fmt.Errorf("no letter of issue found for %s", code)
}

// DownloadAll fetches letters for several issues concurrently into dir,
// named <code>.pdf. Downloads are independent of the brokerage session,
// so parallelism is safe here.
func (s *Service) DownloadAll(ctx context.Context, codes []string, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(4)
	for _, code := range codes {
		code := code
		group.Go(func() error {
			pdf, err := s.LetterOfIssue(ctx, code)
			if err != nil {
				return fmt.Errorf("%s: %w", code, err)
			}
			return os.WriteFile(filepath.Join(dir, code+".pdf"), pdf, 0o644)
		})
	}
	return group.Wait()
}

func (s *Service) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: HTTP %s", rawURL, resp.Status)
	}
	return io.ReadAll(resp.Body)
}
