// Package datasource defines the contracts the estimation engine uses to
// obtain category metadata and competitor samples. Implementations live in
// the store (sqlite) and scraper (live Amazon) packages; the engine itself
// never performs I/O directly.
package datasource

import (
	"context"
	"errors"
	"time"

	"github.com/KingOfTheAce2/KDP-category-ranker/internal/market"
)

// ErrCategoryNotFound is returned when a category id is unknown to the data
// source for the requested market.
var ErrCategoryNotFound = errors.New("datasource: category not found")

// BookListing is a single competitor entry from a ranked sample.
type BookListing struct {
	ASIN            string
	Market          market.Market
	Title           string
	Author          string
	Format          market.BookFormat
	Price           float64
	RatingAverage   float64
	RatingsCount    int
	BestSellerRank  int
	PublisherType   string
	KindleUnlimited bool
}

// CategorySummary is the current aggregate view of one category.
type CategorySummary struct {
	CategoryID               string
	Breadcrumb               string
	Market                   market.Market
	SalesToRank1             int
	SalesToRank10            int
	AvgPriceIndie            float64
	AvgPriceBig              float64
	AvgRating                float64
	AvgPageCount             int
	AvgAgeDays               int
	KUPercentage             float64
	LargePublisherPercentage float64
	Ghost                    bool
	Duplicate                bool
	DuplicateGroupID         string
	Trend                    TrendDirection
	GrowthPercentage         float64
}

// CategorySnapshot is a time-stamped aggregate captured by the periodic data
// refresh. Snapshots are immutable once written and form the read-only
// history used for trend and seasonality analysis.
type CategorySnapshot struct {
	CategoryID               string
	Market                   market.Market
	Month                    int
	Year                     int
	SalesToNo1               int
	SalesToNo10              int
	AvgPriceIndie            float64
	AvgPriceBig              float64
	AvgRating                float64
	AvgPageCount             int
	AvgAgeDays               int
	KUPercentage             float64
	LargePublisherPercentage float64
	CapturedAt               time.Time
}

// CategoryDataSource supplies category metadata and history.
type CategoryDataSource interface {
	// Category returns the summary for one category or ErrCategoryNotFound.
	Category(ctx context.Context, id string, m market.Market) (*CategorySummary, error)
	// CategoryHistory returns up to months snapshots ordered ascending by
	// (year, month).
	CategoryHistory(ctx context.Context, id string, m market.Market, months int) ([]CategorySnapshot, error)
	// Categories lists categories for a market, optionally filtered by a
	// search term matched against the breadcrumb.
	Categories(ctx context.Context, m market.Market, searchTerm string) ([]CategorySummary, error)
	// GhostCategories lists categories flagged as not browsable by shoppers.
	GhostCategories(ctx context.Context, m market.Market) ([]CategorySummary, error)
}

// CompetitionDataSource supplies ranked competitor samples.
type CompetitionDataSource interface {
	// TopCompetitors returns up to limit listings ranked by relevance for a
	// keyword.
	TopCompetitors(ctx context.Context, keyword string, m market.Market, limit int) ([]BookListing, error)
	// TopBooksInCategory returns up to limit listings ranked by category
	// position.
	TopBooksInCategory(ctx context.Context, categoryID string, m market.Market, limit int) ([]BookListing, error)
}

// TrendDirection classifies the sales-volume trajectory of a category.
type TrendDirection int

const (
	RapidlyDeclining TrendDirection = iota - 2
	SignificantlyDeclining
	Flat
	Growing
	RapidlyGrowing
)

// TrendFromGrowth maps a growth percentage to its direction band.
func TrendFromGrowth(pct float64) TrendDirection {
	switch {
	case pct < -20.0:
		return RapidlyDeclining
	case pct < -5.0:
		return SignificantlyDeclining
	case pct <= 5.0:
		return Flat
	case pct <= 15.0:
		return Growing
	default:
		return RapidlyGrowing
	}
}

func (t TrendDirection) String() string {
	switch t {
	case RapidlyDeclining:
		return "Rapidly Declining"
	case SignificantlyDeclining:
		return "Significantly Declining"
	case Flat:
		return "Flat"
	case Growing:
		return "Growing"
	case RapidlyGrowing:
		return "Rapidly Growing"
	default:
		return "Flat"
	}
}
