// Package bestseller answers "how many sales does a rank take" questions by
// combining the conversion tables, the power-law estimator and live category
// samples.
package bestseller

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/KingOfTheAce2/KDP-category-ranker/internal/conversion"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/datasource"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/estimator"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/market"
)

// DefaultTop50Ratio is the divisor used to back-fill the top-50 requirement
// from the top-10 figure when history does not record it separately. The
// ratio is an inherited heuristic, not a measured value, and can be
// overridden per calculator.
const DefaultTop50Ratio = 5

// UnreachableBSR mirrors the conversion table sentinel for callers that only
// import this package.
const UnreachableBSR = conversion.UnreachableBSR

// MonthlyRequirement is one month of historical bestseller requirements for
// a category.
type MonthlyRequirement struct {
	CategoryID              string
	Market                  market.Market
	Month                   int
	Year                    int
	DailySalesForBestseller int
	DailySalesForTop10      int
	DailySalesForTop50      int
	CapturedAt              time.Time
}

// Calculator wraps the conversion tables and estimator to answer sales and
// rank questions, and aggregates category history.
type Calculator struct {
	logger      *slog.Logger
	tables      *conversion.TableSet
	est         *estimator.Estimator
	competition datasource.CompetitionDataSource
	categories  datasource.CategoryDataSource
	top50Ratio  int
}

// New builds a calculator. The competition source supplies live category
// samples; the category source supplies snapshot history.
func New(logger *slog.Logger, tables *conversion.TableSet, est *estimator.Estimator,
	competition datasource.CompetitionDataSource, categories datasource.CategoryDataSource) *Calculator {
	return &Calculator{
		logger:      logger,
		tables:      tables,
		est:         est,
		competition: competition,
		categories:  categories,
		top50Ratio:  DefaultTop50Ratio,
	}
}

// SetTop50Ratio overrides the top-10 to top-50 back-fill divisor. Values
// below one are ignored.
func (c *Calculator) SetTop50Ratio(ratio int) {
	if ratio >= 1 {
		c.top50Ratio = ratio
	}
}

// DailySalesForBSR returns the daily sales needed to hold targetBSR in the
// given market and format. Non-positive ranks yield zero.
func (c *Calculator) DailySalesForBSR(targetBSR int, format market.BookFormat, m market.Market) int {
	if targetBSR <= 0 {
		return 0
	}
	return c.tables.Table(m, format).SalesForBSR(targetBSR)
}

// BSRForDailySales returns the rank achievable with the given daily sales.
// Non-positive sales yield the unreachable sentinel.
func (c *Calculator) BSRForDailySales(dailySales int, format market.BookFormat, m market.Market) int {
	if dailySales <= 0 {
		return UnreachableBSR
	}
	return c.tables.Table(m, format).BSRForDailySales(dailySales)
}

// CategoryBSRRequirements samples the top books of a category and reports
// the BSR currently held at positions 1, 10 and 50 under the keys
// "bestseller", "top10" and "top50". Positions beyond the sample size are
// omitted.
func (c *Calculator) CategoryBSRRequirements(ctx context.Context, categoryID string, m market.Market) (map[string]int, error) {
	books, err := c.competition.TopBooksInCategory(ctx, categoryID, m, 100)
	if err != nil {
		return nil, fmt.Errorf("sample category %s: %w", categoryID, err)
	}

	requirements := make(map[string]int)
	if len(books) > 0 {
		requirements["bestseller"] = books[0].BestSellerRank
	}
	if len(books) >= 10 {
		requirements["top10"] = books[9].BestSellerRank
	}
	if len(books) >= 50 {
		requirements["top50"] = books[49].BestSellerRank
	}
	return requirements, nil
}

// RevenueProjection computes the daily revenue at a market position. Top
// positions get a velocity multiplier reflecting the halo effect where
// bestsellers sustain higher sales than the raw conversion table implies.
func (c *Calculator) RevenueProjection(dailySales int, price float64, marketPosition int, revenueFactor float64) float64 {
	var positionMultiplier float64
	switch {
	case marketPosition == 1:
		positionMultiplier = 1.5
	case marketPosition <= 3:
		positionMultiplier = 1.3
	case marketPosition <= 10:
		positionMultiplier = 1.1
	default:
		positionMultiplier = 1.0
	}

	adjusted := float64(dailySales) * positionMultiplier
	revenue := adjusted * price * revenueFactor
	if revenue < 0 {
		return 0
	}
	return revenue
}

// HistoricalRequirements maps up to months of category snapshots to monthly
// requirement entries ordered ascending by (year, month). The top-50 figure
// is back-filled as top10 divided by the configured ratio, floored at one.
func (c *Calculator) HistoricalRequirements(ctx context.Context, categoryID string, m market.Market, months int) ([]MonthlyRequirement, error) {
	history, err := c.categories.CategoryHistory(ctx, categoryID, m, months)
	if err != nil {
		return nil, fmt.Errorf("history for category %s: %w", categoryID, err)
	}

	requirements := make([]MonthlyRequirement, 0, len(history))
	for _, snapshot := range history {
		top50 := snapshot.SalesToNo10 / c.top50Ratio
		if top50 < 1 {
			top50 = 1
		}
		requirements = append(requirements, MonthlyRequirement{
			CategoryID:              categoryID,
			Market:                  m,
			Month:                   snapshot.Month,
			Year:                    snapshot.Year,
			DailySalesForBestseller: snapshot.SalesToNo1,
			DailySalesForTop10:      snapshot.SalesToNo10,
			DailySalesForTop50:      top50,
			CapturedAt:              snapshot.CapturedAt,
		})
	}

	sort.Slice(requirements, func(i, j int) bool {
		if requirements[i].Year != requirements[j].Year {
			return requirements[i].Year < requirements[j].Year
		}
		return requirements[i].Month < requirements[j].Month
	})
	return requirements, nil
}
