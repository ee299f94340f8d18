package scraper

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/KingOfTheAce2/KDP-category-ranker/internal/market"
)

func TestParsePrice(t *testing.T) {
	cases := []struct {
		label string
		want  float64
	}{
		{"$12.99", 12.99},
		{"£7.50", 7.5},
		{"12,99 €", 12.99},
		{"1.299,00 €", 1299.00},
		{"1,234.56", 1234.56},
		{"Price unavailable", 0},
		{"", 0},
	}
	for _, tc := range cases {
		if got := parsePrice(tc.label); got != tc.want {
			t.Fatalf("parsePrice(%q) = %v, want %v", tc.label, got, tc.want)
		}
	}
}

func TestParseRating(t *testing.T) {
	cases := []struct {
		label string
		want  float64
	}{
		{"4.5 out of 5 stars", 4.5},
		{"4,7 von 5 Sternen", 4.7},
		{"5.0 out of 5 stars", 5.0},
		{"no rating", 0},
		{"", 0},
	}
	for _, tc := range cases {
		if got := parseRating(tc.label); got != tc.want {
			t.Fatalf("parseRating(%q) = %v, want %v", tc.label, got, tc.want)
		}
	}
}

func TestParseCount(t *testing.T) {
	cases := []struct {
		label string
		want  int
	}{
		{"1,234 ratings", 1234},
		{"87 ratings", 87},
		{"12.345 Bewertungen", 12345},
		{"no ratings", 0},
	}
	for _, tc := range cases {
		if got := parseCount(tc.label); got != tc.want {
			t.Fatalf("parseCount(%q) = %d, want %d", tc.label, got, tc.want)
		}
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "  ", "$9.99", "$4.99"); got != "$9.99" {
		t.Fatalf("firstNonEmpty = %q", got)
	}
	if got := firstNonEmpty("", "   "); got != "" {
		t.Fatalf("firstNonEmpty on blanks = %q, want empty", got)
	}
}

func TestServiceClosedUnblocksWaiters(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	// One request per minute so the ticker cannot fire during the test.
	s := NewService(logger, time.Second, 1)
	s.Close()

	if _, err := s.TopCompetitors(context.Background(), "mystery", market.AmazonCom, 10); err != ErrServiceClosed {
		t.Fatalf("expected ErrServiceClosed, got %v", err)
	}
	// Close is idempotent.
	s.Close()
}

func TestTopBooksInCategoryRequiresID(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewService(logger, time.Second, 60)
	defer s.Close()

	if _, err := s.TopBooksInCategory(context.Background(), "  ", market.AmazonCom, 10); err == nil {
		t.Fatal("expected an error for a blank category id")
	}
	if _, err := s.TopCompetitors(context.Background(), "", market.AmazonCom, 10); err == nil {
		t.Fatal("expected an error for a blank keyword")
	}
}
