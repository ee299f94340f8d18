package recommend

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/KingOfTheAce2/KDP-category-ranker/internal/bestseller"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/estimator"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/market"
)

var monthNames = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// fallbackMonthlyRequirement fills months with no recorded history.
const fallbackMonthlyRequirement = 10

// BestsellerPlanning builds the month-by-month bestseller plan for one
// category. A category that cannot be found is a hard failure propagated to
// the caller (wrapping datasource.ErrCategoryNotFound); the caller decides
// whether to retry or drop the request.
func (r *Recommender) BestsellerPlanning(ctx context.Context, categoryID string, m market.Market,
	bookPrice float64, plannedRelease time.Time, userMaxDailySales int) (*Planning, error) {
	r.logger.Info("building bestseller plan", "category_id", categoryID, "market", m.Code())

	cat, err := r.categories.Category(ctx, categoryID, m)
	if err != nil {
		return nil, fmt.Errorf("category %s: %w", categoryID, err)
	}

	currentReqs, err := r.calc.CategoryBSRRequirements(ctx, categoryID, m)
	if err != nil {
		return nil, fmt.Errorf("current requirements for %s: %w", categoryID, err)
	}

	historical, err := r.calc.HistoricalRequirements(ctx, categoryID, m, 12)
	if err != nil {
		return nil, fmt.Errorf("historical requirements for %s: %w", categoryID, err)
	}

	trend := Stable
	if history, err := r.categories.CategoryHistory(ctx, categoryID, m, 12); err == nil {
		trend = AnalyzeSeasonalPattern(history)
	}

	currentBestseller := r.calc.DailySalesForBSR(bsrOrDefault(currentReqs, "bestseller", 1), market.Kindle, m)
	currentTop10 := r.calc.DailySalesForBSR(bsrOrDefault(currentReqs, "top10", 10), market.Kindle, m)
	currentTop50 := r.calc.DailySalesForBSR(bsrOrDefault(currentReqs, "top50", 50), market.Kindle, m)

	monthly := monthlyRequirements(historical)
	easiest, hardest := extremeMonths(monthly)

	successProbability := 1.0
	if currentBestseller > 0 {
		successProbability = math.Min(1.0, float64(userMaxDailySales)/float64(currentBestseller))
	}

	dailyRevenue := r.calc.RevenueProjection(currentBestseller, bookPrice, 1, estimator.DefaultRevenueFactor)

	return &Planning{
		CategoryID:   categoryID,
		CategoryName: cat.Breadcrumb,
		Market:       m,

		CurrentDailySalesForBestseller: currentBestseller,
		CurrentDailySalesForTop10:      currentTop10,
		CurrentDailySalesForTop50:      currentTop50,

		AverageDailySalesForBestseller: averageOf(historical, func(h bestseller.MonthlyRequirement) int { return h.DailySalesForBestseller }),
		AverageDailySalesForTop10:      averageOf(historical, func(h bestseller.MonthlyRequirement) int { return h.DailySalesForTop10 }),
		AverageDailySalesForTop50:      averageOf(historical, func(h bestseller.MonthlyRequirement) int { return h.DailySalesForTop50 }),

		MonthlyBestsellerRequirements: monthly,
		EasiestMonth:                  easiest,
		HardestMonth:                  hardest,
		DaysUntilEasiestPeriod:        daysUntilMonth(easiest, plannedRelease),

		DailyRevenueAtBestseller:   dailyRevenue,
		MonthlyRevenueAtBestseller: dailyRevenue * 30,

		SeasonalTrend:       trend,
		SuccessProbability:  successProbability,
		RecommendedStrategy: recommendedStrategy(currentBestseller, userMaxDailySales),
		ActionItems:         actionItems(currentBestseller, userMaxDailySales, plannedRelease),
	}, nil
}

func bsrOrDefault(reqs map[string]int, key string, fallback int) int {
	if bsr, ok := reqs[key]; ok && bsr > 0 {
		return bsr
	}
	return fallback
}

// monthlyRequirements averages the rank-1 requirement per calendar month.
func monthlyRequirements(history []bestseller.MonthlyRequirement) map[string]int {
	result := make(map[string]int, 12)
	for month := 1; month <= 12; month++ {
		sum, count := 0, 0
		for _, h := range history {
			if h.Month == month {
				sum += h.DailySalesForBestseller
				count++
			}
		}
		if count > 0 {
			result[monthNames[month-1]] = sum / count
		} else {
			result[monthNames[month-1]] = fallbackMonthlyRequirement
		}
	}
	return result
}

// extremeMonths returns the easiest (lowest requirement) and hardest month
// names, breaking ties in calendar order.
func extremeMonths(monthly map[string]int) (easiest, hardest string) {
	easiestVal, hardestVal := math.MaxInt, -1
	for _, name := range monthNames {
		v := monthly[name]
		if v < easiestVal {
			easiestVal = v
			easiest = name
		}
		if v > hardestVal {
			hardestVal = v
			hardest = name
		}
	}
	return easiest, hardest
}

// daysUntilMonth counts the days from the planned date to the first of the
// named month, wrapping to next year when the month has already passed.
func daysUntilMonth(monthName string, from time.Time) int {
	monthIndex := 0
	for i, name := range monthNames {
		if name == monthName {
			monthIndex = i + 1
			break
		}
	}
	if monthIndex == 0 {
		return 0
	}

	target := time.Date(from.Year(), time.Month(monthIndex), 1, 0, 0, 0, 0, from.Location())
	if target.Before(from) {
		target = target.AddDate(1, 0, 0)
	}
	return int(target.Sub(from).Hours() / 24)
}

func averageOf(history []bestseller.MonthlyRequirement, pick func(bestseller.MonthlyRequirement) int) int {
	if len(history) == 0 {
		return 0
	}
	sum := 0
	for _, h := range history {
		sum += pick(h)
	}
	return sum / len(history)
}

func recommendedStrategy(requiredSales, userMaxSales int) string {
	switch {
	case userMaxSales >= requiredSales:
		return "You have excellent chances! Focus on quality content and basic marketing."
	case float64(userMaxSales) >= float64(requiredSales)*0.7:
		return "Good potential with strong marketing. Consider pre-launch campaign and influencer outreach."
	default:
		return "Challenging category. Consider easier categories or build audience first through multiple releases."
	}
}

func actionItems(requiredSales, userMaxSales int, plannedRelease time.Time) []string {
	items := []string{
		"Optimize book cover for maximum click-through rate",
		"Write compelling book description with emotional hooks",
		"Set competitive pricing based on category analysis",
	}

	if userMaxSales < requiredSales {
		items = append(items,
			"Build email list before launch",
			"Plan pre-launch review campaign",
			"Consider Facebook/Amazon ads budget",
			"Reach out to influencers in your niche",
		)
	}

	if plannedRelease.After(time.Now().AddDate(0, 1, 0)) {
		items = append(items, "Use extra time to build anticipation and gather reviews")
	}

	return items
}
