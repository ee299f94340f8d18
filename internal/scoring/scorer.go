// Package scoring turns a competitor sample into a 0-100 competitiveness
// score built from five independently bounded signals, so that no single
// noisy metric can dominate the total.
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/KingOfTheAce2/KDP-category-ranker/internal/datasource"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/market"
)

// Sub-score caps. Each signal is computed as a 0-1 fraction and reported
// scaled to its cap; the caps double as the default weights times 100.
const (
	SerpIntensityCap = 30
	KeywordUsageCap  = 20
	BsrToughnessCap  = 25
	SaturationCap    = 15
	SearchVolumeCap  = 10
)

// sampleLimit is how many top listings are fetched per keyword.
const sampleLimit = 30

// Weights are the externally tunable multipliers for the five signals. They
// are not forced to sum to one; callers inherit whatever the configuration
// supplies.
type Weights struct {
	SerpIntensity float64 `koanf:"serp_intensity"`
	KeywordUsage  float64 `koanf:"keyword_usage"`
	BsrToughness  float64 `koanf:"bsr_toughness"`
	Saturation    float64 `koanf:"saturation"`
	SearchVolume  float64 `koanf:"search_volume"`
}

// DefaultWeights returns the shipped weighting.
func DefaultWeights() Weights {
	return Weights{
		SerpIntensity: 0.30,
		KeywordUsage:  0.20,
		BsrToughness:  0.25,
		Saturation:    0.15,
		SearchVolume:  0.10,
	}
}

// Sum returns the total of all five weights.
func (w Weights) Sum() float64 {
	return w.SerpIntensity + w.KeywordUsage + w.BsrToughness + w.Saturation + w.SearchVolume
}

// Breakdown is the derived score for one keyword. It is recomputed on every
// query and never persisted as authoritative state.
type Breakdown struct {
	Keyword            string
	Market             market.Market
	TotalScore         int
	SerpIntensityScore int
	KeywordUsageScore  int
	BsrToughnessScore  int
	SaturationScore    int
	SearchVolumeScore  int
	Explanation        string
}

// BreakdownCache is an optional read-through cache for score breakdowns.
type BreakdownCache interface {
	Get(ctx context.Context, keyword string, m market.Market) (*Breakdown, bool)
	Set(ctx context.Context, keyword string, m market.Market, b *Breakdown)
}

// Scorer computes competitive scores from competitor samples.
type Scorer struct {
	logger      *slog.Logger
	competition datasource.CompetitionDataSource
	weights     Weights
	cache       BreakdownCache
}

// NewScorer builds a scorer. cache may be nil. Weight sets that do not sum
// to 1.0 are preserved as supplied but flagged in the log.
func NewScorer(logger *slog.Logger, competition datasource.CompetitionDataSource, weights Weights, cache BreakdownCache) *Scorer {
	if sum := weights.Sum(); math.Abs(sum-1.0) > 0.01 {
		logger.Warn("competitive score weights do not sum to 1.0", "sum", sum)
	}
	return &Scorer{logger: logger, competition: competition, weights: weights, cache: cache}
}

// CompetitiveScore returns just the total score for a keyword.
func (s *Scorer) CompetitiveScore(ctx context.Context, keyword string, m market.Market) int {
	return s.ScoreBreakdown(ctx, keyword, m).TotalScore
}

// ScoreBreakdown fetches up to 30 top listings for the keyword and scores
// them. An empty sample or an upstream failure yields an all-zero breakdown
// with an explanatory message; this is a defined state, not an error, so a
// bad keyword can never abort a batch.
func (s *Scorer) ScoreBreakdown(ctx context.Context, keyword string, m market.Market) *Breakdown {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, keyword, m); ok {
			return cached
		}
	}

	competitors, err := s.competition.TopCompetitors(ctx, keyword, m, sampleLimit)
	if err != nil {
		s.logger.Error("competition lookup failed", "keyword", keyword, "market", m.Code(), "error", err)
		return emptyBreakdown(keyword, m, fmt.Sprintf("Competition lookup failed: %v", err))
	}
	if len(competitors) == 0 {
		s.logger.Warn("no competitors found", "keyword", keyword, "market", m.Code())
		return emptyBreakdown(keyword, m, "No competitors found")
	}

	top10 := competitors
	if len(top10) > 10 {
		top10 = top10[:10]
	}

	serp := serpIntensity(top10)
	usage := keywordUsage(keyword, competitors)
	toughness := bsrToughness(top10)
	saturation := saturation(keyword, competitors)
	volume := searchVolume(len(competitors))

	total := serp*s.weights.SerpIntensity*100 +
		usage*s.weights.KeywordUsage*100 +
		toughness*s.weights.BsrToughness*100 +
		saturation*s.weights.Saturation*100 +
		volume*s.weights.SearchVolume*100

	b := &Breakdown{
		Keyword:            keyword,
		Market:             m,
		TotalScore:         clampScore(int(math.Round(total))),
		SerpIntensityScore: int(math.Round(serp * SerpIntensityCap)),
		KeywordUsageScore:  int(math.Round(usage * KeywordUsageCap)),
		BsrToughnessScore:  int(math.Round(toughness * BsrToughnessCap)),
		SaturationScore:    int(math.Round(saturation * SaturationCap)),
		SearchVolumeScore:  int(math.Round(volume * SearchVolumeCap)),
	}
	b.Explanation = fmt.Sprintf("%s competition based on %d competitors analyzed",
		LevelFromScore(b.TotalScore), len(competitors))

	if s.cache != nil {
		s.cache.Set(ctx, keyword, m, b)
	}
	return b
}

// serpIntensity combines the median rating count of the top 10 with an
// average-rating bonus, normalized to a 0-1 fraction over a 40-point scale.
func serpIntensity(top10 []datasource.BookListing) float64 {
	if len(top10) == 0 {
		return 0
	}

	counts := make([]float64, len(top10))
	var ratingSum float64
	for i, b := range top10 {
		counts[i] = float64(b.RatingsCount)
		ratingSum += b.RatingAverage
	}
	medianCount := median(counts)
	avgRating := ratingSum / float64(len(top10))

	countScore := math.Min(30.0, medianCount/1000.0*30.0)
	ratingScore := math.Max(0.0, (avgRating-3.0)*2.5)

	return (countScore + ratingScore) / 40.0
}

// keywordUsage is the fraction of competitors whose title or post-colon
// subtitle contains the keyword, scaled by two and capped at one.
func keywordUsage(keyword string, competitors []datasource.BookListing) float64 {
	if len(competitors) == 0 {
		return 0
	}
	needle := strings.ToLower(keyword)
	used := 0
	for _, b := range competitors {
		title := strings.ToLower(b.Title)
		if strings.Contains(title, needle) || strings.Contains(strings.ToLower(subtitle(b.Title)), needle) {
			used++
		}
	}
	return math.Min(1.0, float64(used)/float64(len(competitors))*2.0)
}

// bsrToughness inverts the median rank of the top 10 against the millionth
// rank: a lower median means entrenched sellers and a higher score.
func bsrToughness(top10 []datasource.BookListing) float64 {
	if len(top10) == 0 {
		return 0
	}
	ranks := make([]float64, len(top10))
	for i, b := range top10 {
		ranks[i] = float64(b.BestSellerRank)
	}
	toughness := math.Max(0.0, 1.0-median(ranks)/1000000.0)
	return math.Min(1.0, toughness)
}

// saturation counts exact keyword matches in titles against a 15-title bar.
func saturation(keyword string, competitors []datasource.BookListing) float64 {
	needle := strings.ToLower(keyword)
	matches := 0
	for _, b := range competitors {
		if strings.Contains(strings.ToLower(b.Title), needle) {
			matches++
		}
	}
	return math.Min(1.0, float64(matches)/15.0)
}

// searchVolume is a heuristic stand-in for real search-volume data: a fuller
// result page suggests more demand.
func searchVolume(competitorCount int) float64 {
	return math.Min(1.0, float64(competitorCount)/100.0)
}

func emptyBreakdown(keyword string, m market.Market, explanation string) *Breakdown {
	return &Breakdown{Keyword: keyword, Market: m, Explanation: explanation}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2.0
	}
	return sorted[mid]
}

// subtitle returns the part of a title after the first colon, or empty.
func subtitle(title string) string {
	if idx := strings.Index(title, ":"); idx > 0 && idx < len(title)-1 {
		return strings.TrimSpace(title[idx+1:])
	}
	return ""
}
