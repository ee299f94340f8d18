// Package scraper samples live Amazon search and category pages. It is the
// online implementation of datasource.CompetitionDataSource; the engine never
// depends on it directly.
package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/KingOfTheAce2/KDP-category-ranker/internal/datasource"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/market"
)

// ErrServiceClosed indicates the scraper service has been closed.
var ErrServiceClosed = errors.New("scraper service closed")

// bsrPerSERPPosition approximates a listing's sales rank from its search
// position when the result card does not carry one. Position 1 maps to BSR
// 100, position 2 to 200 and so on.
const bsrPerSERPPosition = 100

// Service encapsulates HTTP access, rate limiting and parsing for Amazon
// result pages.
type Service struct {
	client     *http.Client
	logger     *slog.Logger
	ticker     *time.Ticker
	closed     chan struct{}
	closeOnce  sync.Once
	userAgents []string
}

// NewService creates a scraper service with timeout handling, rate limiting
// and a pool of realistic user agents.
func NewService(logger *slog.Logger, timeout time.Duration, requestsPerMinute int) *Service {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 20
	}
	interval := time.Minute / time.Duration(requestsPerMinute)
	return &Service{
		client: &http.Client{Timeout: timeout},
		logger: logger,
		ticker: time.NewTicker(interval),
		closed: make(chan struct{}),
		userAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
			"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		},
	}
}

// Close stops the service ticker and unblocks any pending waiters.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		s.ticker.Stop()
		close(s.closed)
	})
}

// TopCompetitors searches the books department for a keyword and returns the
// first ranked listings, up to limit.
func (s *Service) TopCompetitors(ctx context.Context, keyword string, m market.Market, limit int) ([]datasource.BookListing, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, errors.New("keyword is required")
	}
	params := url.Values{}
	params.Set("k", keyword)
	params.Set("i", "stripbooks")
	return s.searchListings(ctx, m, params, limit)
}

// TopBooksInCategory samples the ranked listings of a browse node, up to
// limit.
func (s *Service) TopBooksInCategory(ctx context.Context, categoryID string, m market.Market, limit int) ([]datasource.BookListing, error) {
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return nil, errors.New("category id is required")
	}
	params := url.Values{}
	params.Set("i", "stripbooks")
	params.Set("rh", "n:"+url.QueryEscape(categoryID))
	params.Set("s", "popularity-rank")
	return s.searchListings(ctx, m, params, limit)
}

func (s *Service) searchListings(ctx context.Context, m market.Market, params url.Values, limit int) ([]datasource.BookListing, error) {
	if limit <= 0 {
		limit = 20
	}
	endpoint := fmt.Sprintf("https://%s/s?%s", m.Host(), params.Encode())

	doc, err := s.fetchDocument(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	listings := []datasource.BookListing{}
	doc.Find("div.s-main-slot div[data-component-type='s-search-result']").EachWithBreak(func(i int, selection *goquery.Selection) bool {
		title := strings.TrimSpace(selection.Find("h2 span").Text())
		if title == "" {
			return true
		}
		asin, _ := selection.Attr("data-asin")
		price := firstNonEmpty(
			strings.TrimSpace(selection.Find("span.a-price span.a-offscreen").First().Text()),
			strings.TrimSpace(selection.Find("span.a-price-whole").First().Text()),
		)
		rating := strings.TrimSpace(selection.Find("span.a-icon-alt").First().Text())
		reviews := strings.TrimSpace(selection.Find("span[aria-label$='ratings']").First().Text())
		if reviews == "" {
			reviews = strings.TrimSpace(selection.Find("span[aria-label$='rating']").First().Text())
		}
		author := strings.TrimSpace(selection.Find("div.a-row a.a-size-base").First().Text())
		kindleUnlimited := selection.Find("span[aria-label='Kindle Unlimited']").Length() > 0

		listings = append(listings, datasource.BookListing{
			ASIN:            strings.ToUpper(asin),
			Market:          m,
			Title:           title,
			Author:          author,
			Format:          formatFromCard(selection),
			Price:           parsePrice(price),
			RatingAverage:   parseRating(rating),
			RatingsCount:    parseCount(reviews),
			BestSellerRank:  (len(listings) + 1) * bsrPerSERPPosition,
			KindleUnlimited: kindleUnlimited,
		})
		return len(listings) < limit
	})

	s.logger.Debug("sampled listings", "endpoint", endpoint, "count", len(listings))
	return listings, nil
}

type keywordSuggestionResponse struct {
	Suggestions []struct {
		Value string `json:"value"`
	} `json:"suggestions"`
}

// KeywordSuggestions fetches Amazon completion API suggestions for a seed
// term in one marketplace.
func (s *Service) KeywordSuggestions(ctx context.Context, keyword string, m market.Market) ([]string, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, errors.New("keyword is required")
	}

	params := url.Values{}
	params.Set("page-type", "Search")
	params.Set("client-info", "amazon-search-ui")
	params.Set("limit", "15")
	params.Set("mid", m.MarketplaceID())
	params.Set("alias", "stripbooks")
	params.Set("suggestion-type", "KEYWORD")
	params.Set("prefix", keyword)

	endpoint := fmt.Sprintf("https://completion.amazon.com/api/2017/suggestions?%s", params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent())
	req.Header.Set("Accept", "application/json")

	if err := s.waitTurn(ctx); err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("keyword suggestion request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var payload keywordSuggestionResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	suggestions := make([]string, 0, len(payload.Suggestions))
	for _, suggestion := range payload.Suggestions {
		if value := strings.TrimSpace(suggestion.Value); value != "" {
			suggestions = append(suggestions, value)
		}
	}
	return suggestions, nil
}

func (s *Service) fetchDocument(ctx context.Context, endpoint string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent())
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	if err := s.waitTurn(ctx); err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d when scraping %s", resp.StatusCode, endpoint)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

func (s *Service) waitTurn(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.closed:
		return ErrServiceClosed
	case <-s.ticker.C:
		return nil
	}
}

func (s *Service) userAgent() string {
	return s.userAgents[int(time.Now().UnixNano())%len(s.userAgents)]
}

// parsing helpers ----------------------------------------------------------

// parsePrice extracts the numeric amount from a price label like "$12.99" or
// "12,99 €". Unparseable labels report zero.
func parsePrice(label string) float64 {
	var digits strings.Builder
	for _, r := range label {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '.' || r == ',':
			digits.WriteRune('.')
		}
	}
	cleaned := digits.String()
	// European labels use the comma as decimal separator; after normalizing
	// both separators to dots, only the last one is the decimal point.
	if idx := strings.LastIndex(cleaned, "."); idx >= 0 {
		cleaned = strings.ReplaceAll(cleaned[:idx], ".", "") + cleaned[idx:]
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return value
}

// parseRating extracts the leading number from a label like
// "4.5 out of 5 stars".
func parseRating(label string) float64 {
	fields := strings.Fields(strings.ReplaceAll(label, ",", "."))
	if len(fields) == 0 {
		return 0
	}
	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0
	}
	return value
}

// parseCount extracts an integer from a label like "1,234 ratings".
func parseCount(label string) int {
	var digits strings.Builder
	for _, r := range label {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0
	}
	value, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return value
}

// formatFromCard guesses the listing's format from the binding badge on the
// result card.
func formatFromCard(selection *goquery.Selection) market.BookFormat {
	badge := strings.ToLower(strings.TrimSpace(selection.Find("a.a-size-base.a-link-normal.s-underline-text").First().Text()))
	switch {
	case strings.Contains(badge, "kindle"):
		return market.Kindle
	case strings.Contains(badge, "hardcover"):
		return market.Hardcover
	case strings.Contains(badge, "audio"):
		return market.AudioBook
	default:
		return market.Paperback
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
