// Package keyword turns competitive score breakdowns into author-facing
// keyword research: how contested a phrase is and what the books ranking for
// it earn.
package keyword

import (
	"context"
	"log/slog"
	"sort"

	"github.com/KingOfTheAce2/KDP-category-ranker/internal/concurrency"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/datasource"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/estimator"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/market"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/scoring"
)

// sampleLimit bounds the competitor sample per keyword.
const sampleLimit = 30

// Insight is the research result for one keyword.
type Insight struct {
	Keyword string
	Market  market.Market

	CompetitionScore int
	CompetitionLevel scoring.Level
	Breakdown        *scoring.Breakdown

	CompetitorCount       int
	AvgDailySales         int
	AvgMonthlyEarnings    float64
	EstimatedSearchVolume int
}

// Researcher combines the scorer and estimator into per-keyword insights.
type Researcher struct {
	logger      *slog.Logger
	scorer      *scoring.Scorer
	competition datasource.CompetitionDataSource
	est         *estimator.Estimator
	pool        *concurrency.Pool
}

func NewResearcher(logger *slog.Logger, scorer *scoring.Scorer, competition datasource.CompetitionDataSource,
	est *estimator.Estimator, pool *concurrency.Pool) *Researcher {
	return &Researcher{logger: logger, scorer: scorer, competition: competition, est: est, pool: pool}
}

// ResearchKeyword scores one keyword and derives earnings figures from its
// competitor sample. A keyword with no competitors yields a zero-score
// insight rather than an error.
func (r *Researcher) ResearchKeyword(ctx context.Context, keyword string, m market.Market) (*Insight, error) {
	breakdown := r.scorer.ScoreBreakdown(ctx, keyword, m)

	competitors, err := r.competition.TopCompetitors(ctx, keyword, m, sampleLimit)
	if err != nil {
		return nil, err
	}

	insight := &Insight{
		Keyword:          keyword,
		Market:           m,
		CompetitionScore: breakdown.TotalScore,
		CompetitionLevel: scoring.LevelFromScore(breakdown.TotalScore),
		Breakdown:        breakdown,
		CompetitorCount:  len(competitors),
		// Amazon exposes no search volume; the sample size is the proxy.
		EstimatedSearchVolume: len(competitors) * 100,
	}

	if len(competitors) == 0 {
		return insight, nil
	}

	var salesSum int
	var earningsSum float64
	for _, c := range competitors {
		daily := r.est.EstimateDailySales(c.BestSellerRank, c.Format)
		salesSum += daily
		earningsSum += r.est.EstimateMonthlyEarnings(daily, c.Price, estimator.DefaultRevenueFactor)
	}
	insight.AvgDailySales = salesSum / len(competitors)
	insight.AvgMonthlyEarnings = earningsSum / float64(len(competitors))
	return insight, nil
}

// ResearchKeywords scores a batch concurrently, ordered by ascending
// competition score. Keywords that fail are logged and dropped.
func (r *Researcher) ResearchKeywords(ctx context.Context, keywords []string, m market.Market) []Insight {
	results := make([]*Insight, len(keywords))
	r.pool.Run(ctx, len(keywords), func(ctx context.Context, i int) {
		insight, err := r.ResearchKeyword(ctx, keywords[i], m)
		if err != nil {
			r.logger.Warn("skipping keyword", "keyword", keywords[i], "error", err)
			return
		}
		results[i] = insight
	})

	insights := make([]Insight, 0, len(results))
	for _, insight := range results {
		if insight != nil {
			insights = append(insights, *insight)
		}
	}
	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].CompetitionScore < insights[j].CompetitionScore
	})
	return insights
}
