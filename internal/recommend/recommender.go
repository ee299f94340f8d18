// Package recommend ranks book categories against an author's goals. It is
// the top of the estimation engine: category metadata and live samples flow
// in through the data sources, the calculator and estimator derive metrics,
// and the recommender aggregates them into ranked, explained suggestions.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/KingOfTheAce2/KDP-category-ranker/internal/bestseller"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/concurrency"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/datasource"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/estimator"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/market"
)

const (
	// maxRecommendations bounds every ranked result list.
	maxRecommendations = 20
	// candidateLimit bounds how many relevance-matched categories are scored.
	candidateLimit = 50
	// minRelevance is the keyword-match threshold a breadcrumb must clear.
	minRelevance = 0.1
	// defaultMaxDifficulty applies when a request does not set a ceiling.
	defaultMaxDifficulty = 60
	// mediumDifficultyScore is reported when category data is missing.
	mediumDifficultyScore = 50
)

// Recommender scores and ranks categories for authors.
type Recommender struct {
	logger     *slog.Logger
	categories datasource.CategoryDataSource
	calc       *bestseller.Calculator
	est        *estimator.Estimator
	pool       *concurrency.Pool
}

// New builds a recommender on top of the calculator and category source.
func New(logger *slog.Logger, categories datasource.CategoryDataSource, calc *bestseller.Calculator,
	est *estimator.Estimator, pool *concurrency.Pool) *Recommender {
	return &Recommender{logger: logger, categories: categories, calc: calc, est: est, pool: pool}
}

// Recommendations runs the full pipeline: relevance-match categories against
// the request keywords, score each survivor concurrently, apply the
// request's exclusions, and return at most 20 results ranked by score.
// Individual categories that fail to score are logged and skipped; only a
// failure to list categories at all aborts the request.
func (r *Recommender) Recommendations(ctx context.Context, req Request) ([]Recommendation, error) {
	batchID := uuid.NewString()
	r.logger.Info("building category recommendations",
		"batch_id", batchID, "title", req.BookTitle, "market", req.TargetMarket.Code())

	candidates, err := r.findSimilar(ctx, req.Keywords, req.TargetMarket, candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("find candidate categories: %w", err)
	}

	scored := make([]*Recommendation, len(candidates))
	r.pool.Run(ctx, len(candidates), func(ctx context.Context, i int) {
		rec, err := r.buildRecommendation(ctx, candidates[i].category, candidates[i].relevance, req)
		if err != nil {
			r.logger.Warn("skipping category",
				"batch_id", batchID, "category_id", candidates[i].category.CategoryID, "error", err)
			return
		}
		scored[i] = rec
	})

	maxDifficulty := req.MaxDifficultyScore
	if maxDifficulty <= 0 {
		maxDifficulty = defaultMaxDifficulty
	}

	results := make([]Recommendation, 0, len(scored))
	for _, rec := range scored {
		if rec == nil {
			continue
		}
		if req.ExcludeGhostCategories && rec.Ghost {
			continue
		}
		if !req.IncludeHighCompetition && rec.DifficultyScore > maxDifficulty {
			continue
		}
		// Allow some stretch beyond the author's target before cutting.
		if req.MaxDailySalesTarget > 0 && rec.DailySalesForBestseller > req.MaxDailySalesTarget*2 {
			continue
		}
		results = append(results, *rec)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RecommendationScore > results[j].RecommendationScore
	})
	if len(results) > maxRecommendations {
		results = results[:maxRecommendations]
	}

	r.logger.Info("category recommendations ready", "batch_id", batchID, "count", len(results))
	return results, nil
}

type candidate struct {
	category  datasource.CategorySummary
	relevance float64
}

// findSimilar lists all categories for the market and keeps those whose
// breadcrumb matches at least one keyword above the relevance threshold,
// ordered by descending relevance.
func (r *Recommender) findSimilar(ctx context.Context, keywords []string, m market.Market, limit int) ([]candidate, error) {
	all, err := r.categories.Categories(ctx, m, "")
	if err != nil {
		return nil, err
	}

	candidates := make([]candidate, 0, len(all))
	for _, cat := range all {
		relevance := keywordRelevance(cat.Breadcrumb, keywords)
		if relevance > minRelevance {
			candidates = append(candidates, candidate{category: cat, relevance: relevance})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].relevance > candidates[j].relevance
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func (r *Recommender) buildRecommendation(ctx context.Context, cat datasource.CategorySummary, relevance float64, req Request) (*Recommendation, error) {
	difficulty := r.CategoryDifficulty(ctx, cat.CategoryID, req.TargetMarket)

	salesReqs, err := r.salesRequirements(ctx, cat.CategoryID, req.TargetMarket, req.Format)
	if err != nil {
		return nil, err
	}

	trend := Stable
	if history, err := r.categories.CategoryHistory(ctx, cat.CategoryID, req.TargetMarket, 12); err == nil {
		trend = AnalyzeSeasonalPattern(history)
	} else {
		r.logger.Warn("history unavailable, assuming stable seasonality",
			"category_id", cat.CategoryID, "error", err)
	}

	rank1Sales := salesReqs[1]
	score := recommendationScore(cat, difficulty, rank1Sales, req)

	rec := &Recommendation{
		CategoryID:              cat.CategoryID,
		Breadcrumb:              cat.Breadcrumb,
		Market:                  req.TargetMarket,
		DifficultyScore:         difficulty,
		Difficulty:              DifficultyFromScore(difficulty),
		DailySalesForBestseller: rank1Sales,
		DailySalesForTop10:      salesReqs[10],
		DailySalesForTop50:      salesReqs[50],
		AveragePrice:            cat.AvgPriceIndie,
		EstimatedMonthlyRevenue: r.est.EstimateMonthlyEarnings(rank1Sales, cat.AvgPriceIndie, estimator.DefaultRevenueFactor),
		SeasonalTrend:           trend,
		Trend:                   cat.Trend,
		GrowthPercentage:        cat.GrowthPercentage,
		RecommendationScore:     score,
		Ghost:                   cat.Ghost,
		Duplicate:               cat.Duplicate,
		HighlyCompetitive:       difficulty > 80,
		Emerging:                cat.Trend == datasource.RapidlyGrowing,
		Declining:               cat.Trend <= datasource.SignificantlyDeclining,
	}
	rec.RecommendationReason = fmt.Sprintf("%s difficulty, %d daily sales for #1, keyword relevance %.0f%%",
		rec.Difficulty, rank1Sales, relevance*100)
	return rec, nil
}

// CategoryDifficulty scores how hard a category is to win, 0-100. It is the
// unweighted average of the rank-1 sales requirement, big-publisher
// presence, the quality bar and market maturity. Missing category data
// reports the medium default of 50 instead of failing.
func (r *Recommender) CategoryDifficulty(ctx context.Context, categoryID string, m market.Market) int {
	cat, err := r.categories.Category(ctx, categoryID, m)
	if err != nil || cat == nil {
		r.logger.Warn("category data unavailable, assuming medium difficulty",
			"category_id", categoryID, "error", err)
		return mediumDifficultyScore
	}

	reqs, err := r.calc.CategoryBSRRequirements(ctx, categoryID, m)
	if err != nil {
		r.logger.Warn("requirements unavailable, assuming medium difficulty",
			"category_id", categoryID, "error", err)
		return mediumDifficultyScore
	}

	bestsellerBSR := reqs["bestseller"]
	if bestsellerBSR == 0 {
		bestsellerBSR = 1
	}
	rank1Sales := r.calc.DailySalesForBSR(bestsellerBSR, market.Kindle, m)

	factors := []int{
		capInt(rank1Sales*2, 100),
		capInt(int(cat.LargePublisherPercentage*100), 100),
		capInt(int(cat.AvgRating*20), 100),
		capInt(cat.AvgAgeDays/10, 100),
	}

	sum := 0
	for _, f := range factors {
		sum += f
	}
	return sum / len(factors)
}

// SalesRequirements reports the daily sales needed to hold positions 1, 10
// and 50 in a category, keyed by position. Kindle conversion is used as the
// reference format.
func (r *Recommender) SalesRequirements(ctx context.Context, categoryID string, m market.Market) (map[int]int, error) {
	return r.salesRequirements(ctx, categoryID, m, market.Kindle)
}

func (r *Recommender) salesRequirements(ctx context.Context, categoryID string, m market.Market, format market.BookFormat) (map[int]int, error) {
	reqs, err := r.calc.CategoryBSRRequirements(ctx, categoryID, m)
	if err != nil {
		return nil, err
	}

	result := make(map[int]int, len(reqs))
	for key, bsr := range reqs {
		var position int
		switch key {
		case "bestseller":
			position = 1
		case "top10":
			position = 10
		case "top50":
			position = 50
		default:
			continue
		}
		result[position] = r.calc.DailySalesForBSR(bsr, format, m)
	}
	return result, nil
}

// EasiestCategories returns up to 20 categories whose rank-1 requirement is
// within maxDailySales, ordered ascending by difficulty.
func (r *Recommender) EasiestCategories(ctx context.Context, m market.Market, format market.BookFormat, maxDailySales int) ([]Recommendation, error) {
	all, err := r.categories.Categories(ctx, m, "")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	scored := make([]*Recommendation, len(all))
	r.pool.Run(ctx, len(all), func(ctx context.Context, i int) {
		cat := all[i]
		salesReqs, err := r.salesRequirements(ctx, cat.CategoryID, m, format)
		if err != nil {
			r.logger.Warn("skipping category", "category_id", cat.CategoryID, "error", err)
			return
		}
		rank1, ok := salesReqs[1]
		if !ok || rank1 > maxDailySales {
			return
		}

		difficulty := r.CategoryDifficulty(ctx, cat.CategoryID, m)
		scored[i] = &Recommendation{
			CategoryID:              cat.CategoryID,
			Breadcrumb:              cat.Breadcrumb,
			Market:                  m,
			DifficultyScore:         difficulty,
			Difficulty:              DifficultyFromScore(difficulty),
			DailySalesForBestseller: rank1,
			DailySalesForTop10:      salesReqs[10],
			DailySalesForTop50:      salesReqs[50],
			AveragePrice:            cat.AvgPriceIndie,
			RecommendationScore:     100 - difficulty,
			Ghost:                   cat.Ghost,
			Duplicate:               cat.Duplicate,
		}
	})

	results := make([]Recommendation, 0, len(scored))
	for _, rec := range scored {
		if rec != nil {
			results = append(results, *rec)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DifficultyScore < results[j].DifficultyScore
	})
	if len(results) > maxRecommendations {
		results = results[:maxRecommendations]
	}
	return results, nil
}

// SeasonalTrends classifies the seasonal pattern of each category id.
func (r *Recommender) SeasonalTrends(ctx context.Context, categoryIDs []string, m market.Market) (map[string]SeasonalTrend, error) {
	result := make(map[string]SeasonalTrend, len(categoryIDs))
	for _, id := range categoryIDs {
		history, err := r.categories.CategoryHistory(ctx, id, m, 12)
		if err != nil {
			return nil, fmt.Errorf("history for category %s: %w", id, err)
		}
		result[id] = AnalyzeSeasonalPattern(history)
	}
	return result, nil
}

// RecommendationScore computes the weighted opportunity score for a single
// category. A category that cannot be loaded scores zero.
func (r *Recommender) RecommendationScore(ctx context.Context, categoryID string, m market.Market, req Request) int {
	cat, err := r.categories.Category(ctx, categoryID, m)
	if err != nil || cat == nil {
		return 0
	}
	difficulty := r.CategoryDifficulty(ctx, categoryID, m)
	salesReqs, err := r.salesRequirements(ctx, categoryID, m, req.Format)
	if err != nil {
		r.logger.Warn("scoring without sales requirements", "category_id", categoryID, "error", err)
	}
	return recommendationScore(*cat, difficulty, salesReqs[1], req)
}

// GhostCategories lists the ids of categories flagged as not shopper-visible.
func (r *Recommender) GhostCategories(ctx context.Context, m market.Market) ([]string, error) {
	ghosts, err := r.categories.GhostCategories(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("list ghost categories: %w", err)
	}
	ids := make([]string, 0, len(ghosts))
	for _, g := range ghosts {
		ids = append(ids, g.CategoryID)
	}
	return ids, nil
}

// recommendationScore is the weighted sum of five normalized factors:
// inverted difficulty (0.30), achievability (0.25), revenue potential
// (0.20), growth trend (0.15) and market size (0.10), clamped to [0, 100].
func recommendationScore(cat datasource.CategorySummary, difficulty, rank1Sales int, req Request) int {
	factors := []struct {
		weight float64
		score  float64
	}{
		{0.30, float64(100 - difficulty)},
		{0.25, achievabilityScore(rank1Sales, req.MaxDailySalesTarget)},
		{0.20, revenuePotentialScore(cat.AvgPriceIndie, rank1Sales)},
		{0.15, growthScore(cat.Trend)},
		{0.10, math.Min(100, float64(cat.SalesToRank10)/10.0)},
	}

	var weighted float64
	for _, f := range factors {
		weighted += f.weight * f.score
	}
	if weighted < 0 {
		return 0
	}
	if weighted > 100 {
		return 100
	}
	return int(weighted)
}

func achievabilityScore(requiredSales, userMaxSales int) float64 {
	if requiredSales <= 0 {
		return 100
	}
	return math.Min(100, float64(userMaxSales)/float64(requiredSales)*100)
}

func revenuePotentialScore(avgPrice float64, dailySales int) float64 {
	monthlyRevenue := avgPrice * float64(dailySales) * 30 * estimator.DefaultRevenueFactor
	return math.Min(100, monthlyRevenue/100)
}

func growthScore(trend datasource.TrendDirection) float64 {
	switch trend {
	case datasource.RapidlyGrowing:
		return 100
	case datasource.Growing:
		return 80
	case datasource.Flat:
		return 60
	case datasource.SignificantlyDeclining:
		return 40
	case datasource.RapidlyDeclining:
		return 20
	default:
		return 60
	}
}

// keywordRelevance is the fraction of keywords found in the breadcrumb.
func keywordRelevance(breadcrumb string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	haystack := strings.ToLower(breadcrumb)
	matches := 0
	for _, kw := range keywords {
		if strings.Contains(haystack, strings.ToLower(kw)) {
			matches++
		}
	}
	return float64(matches) / float64(len(keywords))
}

func capInt(v, limit int) int {
	if v > limit {
		return limit
	}
	return v
}
