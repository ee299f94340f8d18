package recommend

import (
	"time"

	"github.com/KingOfTheAce2/KDP-category-ranker/internal/datasource"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/market"
)

// Request captures the author's book and goals for a recommendation run.
type Request struct {
	BookTitle              string
	BookDescription        string
	Keywords               []string
	Format                 market.BookFormat
	Price                  float64
	TargetMarket           market.Market
	MaxDailySalesTarget    int
	PlannedReleaseDate     time.Time
	IncludeHighCompetition bool
	ExcludeGhostCategories bool
	MaxDifficultyScore     int
}

// DifficultyLevel bands a 0-100 difficulty score into five named tiers.
type DifficultyLevel int

const (
	VeryEasy DifficultyLevel = iota + 1
	Easy
	MediumDifficulty
	Hard
	VeryHard
)

// DifficultyFromScore maps a difficulty score to its 20-point band.
func DifficultyFromScore(score int) DifficultyLevel {
	switch {
	case score <= 20:
		return VeryEasy
	case score <= 40:
		return Easy
	case score <= 60:
		return MediumDifficulty
	case score <= 80:
		return Hard
	default:
		return VeryHard
	}
}

func (d DifficultyLevel) String() string {
	switch d {
	case VeryEasy:
		return "Very Easy"
	case Easy:
		return "Easy"
	case MediumDifficulty:
		return "Medium"
	case Hard:
		return "Hard"
	case VeryHard:
		return "Very Hard"
	default:
		return "Medium"
	}
}

// SeasonalTrend classifies when a category's bestseller requirement peaks.
type SeasonalTrend int

const (
	Stable SeasonalTrend = iota
	SpringPeak
	SummerPeak
	FallPeak
	WinterPeak
	HolidayDriven
	NewYear
)

func (s SeasonalTrend) String() string {
	switch s {
	case SpringPeak:
		return "Spring Peak"
	case SummerPeak:
		return "Summer Peak"
	case FallPeak:
		return "Fall Peak"
	case WinterPeak:
		return "Winter Peak"
	case HolidayDriven:
		return "Holiday Driven"
	case NewYear:
		return "New Year"
	default:
		return "Stable"
	}
}

// Recommendation is one ranked category suggestion. Recommendations are
// constructed fresh per request and never mutated afterwards; recomputing a
// score means building a new value.
type Recommendation struct {
	CategoryID string
	Breadcrumb string
	Market     market.Market

	DifficultyScore int
	Difficulty      DifficultyLevel

	DailySalesForBestseller int
	DailySalesForTop10      int
	DailySalesForTop50      int

	AveragePrice            float64
	EstimatedMonthlyRevenue float64

	SeasonalTrend    SeasonalTrend
	Trend            datasource.TrendDirection
	GrowthPercentage float64

	RecommendationScore  int
	RecommendationReason string

	Ghost             bool
	Duplicate         bool
	HighlyCompetitive bool
	Emerging          bool
	Declining         bool
}

// Planning is the month-by-month bestseller plan for one category.
type Planning struct {
	CategoryID   string
	CategoryName string
	Market       market.Market

	CurrentDailySalesForBestseller int
	CurrentDailySalesForTop10      int
	CurrentDailySalesForTop50      int

	AverageDailySalesForBestseller int
	AverageDailySalesForTop10      int
	AverageDailySalesForTop50      int

	MonthlyBestsellerRequirements map[string]int
	EasiestMonth                  string
	HardestMonth                  string
	DaysUntilEasiestPeriod        int

	DailyRevenueAtBestseller   float64
	MonthlyRevenueAtBestseller float64

	SeasonalTrend       SeasonalTrend
	SuccessProbability  float64
	RecommendedStrategy string
	ActionItems         []string
}
