package recommend

import (
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/datasource"
)

// minSeasonalHistory is the number of monthly snapshots needed before a
// seasonal classification is attempted. Thinner histories report Stable.
const minSeasonalHistory = 12

// AnalyzeSeasonalPattern groups snapshot history by calendar month and maps
// the month with the highest average rank-1 requirement to a seasonal trend.
func AnalyzeSeasonalPattern(history []datasource.CategorySnapshot) SeasonalTrend {
	if len(history) < minSeasonalHistory {
		return Stable
	}

	sums := make(map[int]int)
	counts := make(map[int]int)
	for _, s := range history {
		sums[s.Month] += s.SalesToNo1
		counts[s.Month]++
	}

	peakMonth := 0
	peakAvg := -1.0
	for month := 1; month <= 12; month++ {
		if counts[month] == 0 {
			continue
		}
		avg := float64(sums[month]) / float64(counts[month])
		if avg > peakAvg {
			peakAvg = avg
			peakMonth = month
		}
	}

	switch {
	case peakMonth >= 3 && peakMonth <= 5:
		return SpringPeak
	case peakMonth >= 6 && peakMonth <= 8:
		return SummerPeak
	case peakMonth >= 9 && peakMonth <= 11:
		return FallPeak
	case peakMonth == 12:
		return HolidayDriven
	case peakMonth == 1:
		return NewYear
	case peakMonth == 2:
		return WinterPeak
	default:
		return Stable
	}
}
