package scoring

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/KingOfTheAce2/KDP-category-ranker/internal/datasource"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/market"
)

type fakeCompetition struct {
	books []datasource.BookListing
	err   error
}

func (f *fakeCompetition) TopCompetitors(_ context.Context, _ string, _ market.Market, limit int) ([]datasource.BookListing, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > len(f.books) {
		limit = len(f.books)
	}
	return f.books[:limit], nil
}

func (f *fakeCompetition) TopBooksInCategory(ctx context.Context, _ string, m market.Market, limit int) ([]datasource.BookListing, error) {
	return f.TopCompetitors(ctx, "", m, limit)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newScorer(comp datasource.CompetitionDataSource) *Scorer {
	return NewScorer(testLogger(), comp, DefaultWeights(), nil)
}

func sample(n int, title string, ratings int, rating float64, bsr int) []datasource.BookListing {
	books := make([]datasource.BookListing, n)
	for i := range books {
		books[i] = datasource.BookListing{
			Title:          title,
			RatingsCount:   ratings,
			RatingAverage:  rating,
			BestSellerRank: bsr,
		}
	}
	return books
}

func TestScoreBreakdownEmptySample(t *testing.T) {
	s := newScorer(&fakeCompetition{})

	b := s.ScoreBreakdown(context.Background(), "keto cookbook", market.AmazonCom)
	if b.TotalScore != 0 {
		t.Fatalf("TotalScore = %d, want 0 for empty sample", b.TotalScore)
	}
	if b.Explanation == "" {
		t.Fatalf("empty sample must carry an explanation")
	}
	if b.SerpIntensityScore != 0 || b.KeywordUsageScore != 0 || b.BsrToughnessScore != 0 ||
		b.SaturationScore != 0 || b.SearchVolumeScore != 0 {
		t.Fatalf("sub-scores should all be zero: %+v", b)
	}
}

func TestScoreBreakdownUpstreamFailure(t *testing.T) {
	s := newScorer(&fakeCompetition{err: errors.New("timeout")})

	b := s.ScoreBreakdown(context.Background(), "keto cookbook", market.AmazonCom)
	if b.TotalScore != 0 || b.Explanation == "" {
		t.Fatalf("upstream failure should yield explained zero breakdown, got %+v", b)
	}
}

func TestScoreBreakdownCapsRespected(t *testing.T) {
	// Worst case sample: every title matches, huge rating counts, rank 1.
	books := sample(30, "Keto Cookbook: The Keto Cookbook", 50000, 5.0, 1)
	s := newScorer(&fakeCompetition{books: books})

	b := s.ScoreBreakdown(context.Background(), "keto cookbook", market.AmazonCom)

	if b.SerpIntensityScore > SerpIntensityCap {
		t.Fatalf("serp %d exceeds cap %d", b.SerpIntensityScore, SerpIntensityCap)
	}
	if b.KeywordUsageScore > KeywordUsageCap {
		t.Fatalf("usage %d exceeds cap %d", b.KeywordUsageScore, KeywordUsageCap)
	}
	if b.BsrToughnessScore > BsrToughnessCap {
		t.Fatalf("toughness %d exceeds cap %d", b.BsrToughnessScore, BsrToughnessCap)
	}
	if b.SaturationScore > SaturationCap {
		t.Fatalf("saturation %d exceeds cap %d", b.SaturationScore, SaturationCap)
	}
	if b.SearchVolumeScore > SearchVolumeCap {
		t.Fatalf("volume %d exceeds cap %d", b.SearchVolumeScore, SearchVolumeCap)
	}
	if b.TotalScore > 100 {
		t.Fatalf("total %d exceeds 100", b.TotalScore)
	}
	if b.TotalScore < 80 {
		t.Fatalf("saturated sample should score high, got %d", b.TotalScore)
	}
}

func TestKeywordUsageCountsSubtitles(t *testing.T) {
	books := []datasource.BookListing{
		{Title: "Something Else: a keto cookbook journey", BestSellerRank: 5000, RatingAverage: 4.0},
		{Title: "Unrelated Title", BestSellerRank: 5000, RatingAverage: 4.0},
	}
	s := newScorer(&fakeCompetition{books: books})

	b := s.ScoreBreakdown(context.Background(), "Keto Cookbook", market.AmazonCom)

	// One of two titles matches; fraction 0.5 * 2 caps at 1.0 -> full 20.
	if b.KeywordUsageScore != KeywordUsageCap {
		t.Fatalf("KeywordUsageScore = %d, want %d", b.KeywordUsageScore, KeywordUsageCap)
	}
}

func TestSaturationPartial(t *testing.T) {
	// 3 exact matches of 30 -> 3/15 = 0.2 -> 3 points.
	books := sample(27, "Unrelated", 10, 4.0, 900000)
	books = append(books, sample(3, "keto cookbook", 10, 4.0, 900000)...)
	s := newScorer(&fakeCompetition{books: books})

	b := s.ScoreBreakdown(context.Background(), "keto cookbook", market.AmazonCom)
	if b.SaturationScore != 3 {
		t.Fatalf("SaturationScore = %d, want 3", b.SaturationScore)
	}
}

func TestSearchVolumeProxy(t *testing.T) {
	books := sample(30, "Unrelated", 0, 0, 999999)
	s := newScorer(&fakeCompetition{books: books})

	b := s.ScoreBreakdown(context.Background(), "anything", market.AmazonCom)

	// 30 competitors of a 100 bar -> 0.3 -> 3 points of 10.
	if b.SearchVolumeScore != 3 {
		t.Fatalf("SearchVolumeScore = %d, want 3", b.SearchVolumeScore)
	}
}

func TestLevelFromScore(t *testing.T) {
	cases := []struct {
		score int
		want  Level
	}{
		{0, VeryLow}, {20, VeryLow}, {21, Low}, {40, Low},
		{41, Medium}, {60, Medium}, {61, High}, {80, High},
		{81, VeryHigh}, {100, VeryHigh},
	}
	for _, tc := range cases {
		if got := LevelFromScore(tc.score); got != tc.want {
			t.Fatalf("LevelFromScore(%d) = %v, want %v", tc.score, got, tc.want)
		}
	}
}

type countingCache struct {
	stored map[string]*Breakdown
	hits   int
}

func (c *countingCache) Get(_ context.Context, keyword string, m market.Market) (*Breakdown, bool) {
	b, ok := c.stored[keyword+"|"+m.Code()]
	if ok {
		c.hits++
	}
	return b, ok
}

func (c *countingCache) Set(_ context.Context, keyword string, m market.Market, b *Breakdown) {
	c.stored[keyword+"|"+m.Code()] = b
}

func TestScorerReadsThroughCache(t *testing.T) {
	cache := &countingCache{stored: map[string]*Breakdown{}}
	books := sample(10, "keto cookbook", 500, 4.2, 20000)
	s := NewScorer(testLogger(), &fakeCompetition{books: books}, DefaultWeights(), cache)

	first := s.ScoreBreakdown(context.Background(), "keto cookbook", market.AmazonCom)
	second := s.ScoreBreakdown(context.Background(), "keto cookbook", market.AmazonCom)

	if cache.hits != 1 {
		t.Fatalf("expected one cache hit, got %d", cache.hits)
	}
	if first.TotalScore != second.TotalScore {
		t.Fatalf("cached score differs: %d vs %d", first.TotalScore, second.TotalScore)
	}
}
