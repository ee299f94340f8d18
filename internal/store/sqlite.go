// Package store persists category aggregates and monthly snapshots in a
// local sqlite database. It backs the offline side of the engine: the scraper
// and refresh jobs write here, the recommender reads through the
// datasource.CategoryDataSource contract.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/KingOfTheAce2/KDP-category-ranker/internal/datasource"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/market"
)

// Store is a sqlite-backed CategoryDataSource.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates the database file (and its directory) if needed and applies
// the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s := &Store{db: db, logger: logger}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS categories (
    category_id TEXT NOT NULL,
    market TEXT NOT NULL,
    breadcrumb TEXT NOT NULL,
    sales_to_rank1 INTEGER NOT NULL DEFAULT 0,
    sales_to_rank10 INTEGER NOT NULL DEFAULT 0,
    avg_price_indie REAL NOT NULL DEFAULT 0,
    avg_price_big REAL NOT NULL DEFAULT 0,
    avg_rating REAL NOT NULL DEFAULT 0,
    avg_page_count INTEGER NOT NULL DEFAULT 0,
    avg_age_days INTEGER NOT NULL DEFAULT 0,
    ku_percentage REAL NOT NULL DEFAULT 0,
    large_publisher_percentage REAL NOT NULL DEFAULT 0,
    ghost INTEGER NOT NULL DEFAULT 0,
    duplicate INTEGER NOT NULL DEFAULT 0,
    duplicate_group_id TEXT NOT NULL DEFAULT '',
    growth_percentage REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (category_id, market)
);
CREATE TABLE IF NOT EXISTS category_snapshots (
    category_id TEXT NOT NULL,
    market TEXT NOT NULL,
    year INTEGER NOT NULL,
    month INTEGER NOT NULL,
    sales_to_no1 INTEGER NOT NULL DEFAULT 0,
    sales_to_no10 INTEGER NOT NULL DEFAULT 0,
    avg_price_indie REAL NOT NULL DEFAULT 0,
    avg_price_big REAL NOT NULL DEFAULT 0,
    avg_rating REAL NOT NULL DEFAULT 0,
    avg_page_count INTEGER NOT NULL DEFAULT 0,
    avg_age_days INTEGER NOT NULL DEFAULT 0,
    ku_percentage REAL NOT NULL DEFAULT 0,
    large_publisher_percentage REAL NOT NULL DEFAULT 0,
    captured_at TIMESTAMP NOT NULL,
    PRIMARY KEY (category_id, market, year, month)
);
CREATE INDEX IF NOT EXISTS idx_categories_breadcrumb ON categories(market, breadcrumb);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// SaveCategory inserts or replaces the current aggregate for a category.
func (s *Store) SaveCategory(ctx context.Context, cat datasource.CategorySummary) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO categories(
    category_id, market, breadcrumb,
    sales_to_rank1, sales_to_rank10,
    avg_price_indie, avg_price_big, avg_rating, avg_page_count, avg_age_days,
    ku_percentage, large_publisher_percentage,
    ghost, duplicate, duplicate_group_id, growth_percentage
) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(category_id, market) DO UPDATE SET
    breadcrumb = excluded.breadcrumb,
    sales_to_rank1 = excluded.sales_to_rank1,
    sales_to_rank10 = excluded.sales_to_rank10,
    avg_price_indie = excluded.avg_price_indie,
    avg_price_big = excluded.avg_price_big,
    avg_rating = excluded.avg_rating,
    avg_page_count = excluded.avg_page_count,
    avg_age_days = excluded.avg_age_days,
    ku_percentage = excluded.ku_percentage,
    large_publisher_percentage = excluded.large_publisher_percentage,
    ghost = excluded.ghost,
    duplicate = excluded.duplicate,
    duplicate_group_id = excluded.duplicate_group_id,
    growth_percentage = excluded.growth_percentage`,
		cat.CategoryID, cat.Market.Code(), cat.Breadcrumb,
		cat.SalesToRank1, cat.SalesToRank10,
		cat.AvgPriceIndie, cat.AvgPriceBig, cat.AvgRating, cat.AvgPageCount, cat.AvgAgeDays,
		cat.KUPercentage, cat.LargePublisherPercentage,
		cat.Ghost, cat.Duplicate, cat.DuplicateGroupID, cat.GrowthPercentage,
	)
	if err != nil {
		return fmt.Errorf("save category %s: %w", cat.CategoryID, err)
	}
	return nil
}

// SaveSnapshot inserts or replaces one monthly snapshot. Snapshots are keyed
// by (category, market, year, month) so a re-run of the refresh job for the
// same month overwrites rather than duplicates.
func (s *Store) SaveSnapshot(ctx context.Context, snap datasource.CategorySnapshot) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO category_snapshots(
    category_id, market, year, month,
    sales_to_no1, sales_to_no10,
    avg_price_indie, avg_price_big, avg_rating, avg_page_count, avg_age_days,
    ku_percentage, large_publisher_percentage, captured_at
) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(category_id, market, year, month) DO UPDATE SET
    sales_to_no1 = excluded.sales_to_no1,
    sales_to_no10 = excluded.sales_to_no10,
    avg_price_indie = excluded.avg_price_indie,
    avg_price_big = excluded.avg_price_big,
    avg_rating = excluded.avg_rating,
    avg_page_count = excluded.avg_page_count,
    avg_age_days = excluded.avg_age_days,
    ku_percentage = excluded.ku_percentage,
    large_publisher_percentage = excluded.large_publisher_percentage,
    captured_at = excluded.captured_at`,
		snap.CategoryID, snap.Market.Code(), snap.Year, snap.Month,
		snap.SalesToNo1, snap.SalesToNo10,
		snap.AvgPriceIndie, snap.AvgPriceBig, snap.AvgRating, snap.AvgPageCount, snap.AvgAgeDays,
		snap.KUPercentage, snap.LargePublisherPercentage, snap.CapturedAt,
	)
	if err != nil {
		return fmt.Errorf("save snapshot %s %d-%02d: %w", snap.CategoryID, snap.Year, snap.Month, err)
	}
	return nil
}

const categoryColumns = `category_id, market, breadcrumb,
    sales_to_rank1, sales_to_rank10,
    avg_price_indie, avg_price_big, avg_rating, avg_page_count, avg_age_days,
    ku_percentage, large_publisher_percentage,
    ghost, duplicate, duplicate_group_id, growth_percentage`

func (s *Store) Category(ctx context.Context, id string, m market.Market) (*datasource.CategorySummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE category_id = ? AND market = ?`,
		id, m.Code(),
	)
	cat, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, datasource.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("load category %s: %w", id, err)
	}
	return cat, nil
}

func (s *Store) Categories(ctx context.Context, m market.Market, searchTerm string) ([]datasource.CategorySummary, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE market = ?`
	args := []any{m.Code()}
	if searchTerm != "" {
		query += ` AND breadcrumb LIKE ?`
		args = append(args, "%"+searchTerm+"%")
	}
	query += ` ORDER BY breadcrumb`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var result []datasource.CategorySummary
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("list categories: %w", err)
		}
		result = append(result, *cat)
	}
	return result, rows.Err()
}

func (s *Store) GhostCategories(ctx context.Context, m market.Market) ([]datasource.CategorySummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE market = ? AND ghost = 1 ORDER BY breadcrumb`,
		m.Code(),
	)
	if err != nil {
		return nil, fmt.Errorf("list ghost categories: %w", err)
	}
	defer rows.Close()

	var result []datasource.CategorySummary
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("list ghost categories: %w", err)
		}
		result = append(result, *cat)
	}
	return result, rows.Err()
}

// CategoryHistory returns up to months of the most recent snapshots, ordered
// ascending by (year, month).
func (s *Store) CategoryHistory(ctx context.Context, id string, m market.Market, months int) ([]datasource.CategorySnapshot, error) {
	if months <= 0 {
		months = 12
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT category_id, market, year, month,
    sales_to_no1, sales_to_no10,
    avg_price_indie, avg_price_big, avg_rating, avg_page_count, avg_age_days,
    ku_percentage, large_publisher_percentage, captured_at
FROM category_snapshots
WHERE category_id = ? AND market = ?
ORDER BY year DESC, month DESC
LIMIT ?`,
		id, m.Code(), months,
	)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", id, err)
	}
	defer rows.Close()

	var history []datasource.CategorySnapshot
	for rows.Next() {
		var snap datasource.CategorySnapshot
		var code string
		if err := rows.Scan(
			&snap.CategoryID, &code, &snap.Year, &snap.Month,
			&snap.SalesToNo1, &snap.SalesToNo10,
			&snap.AvgPriceIndie, &snap.AvgPriceBig, &snap.AvgRating, &snap.AvgPageCount, &snap.AvgAgeDays,
			&snap.KUPercentage, &snap.LargePublisherPercentage, &snap.CapturedAt,
		); err != nil {
			return nil, fmt.Errorf("load history for %s: %w", id, err)
		}
		snap.Market = marketFromCode(code, s.logger)
		history = append(history, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query fetched newest-first to apply the limit; callers expect ascending.
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}
	return history, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (*datasource.CategorySummary, error) {
	var cat datasource.CategorySummary
	var code string
	if err := row.Scan(
		&cat.CategoryID, &code, &cat.Breadcrumb,
		&cat.SalesToRank1, &cat.SalesToRank10,
		&cat.AvgPriceIndie, &cat.AvgPriceBig, &cat.AvgRating, &cat.AvgPageCount, &cat.AvgAgeDays,
		&cat.KUPercentage, &cat.LargePublisherPercentage,
		&cat.Ghost, &cat.Duplicate, &cat.DuplicateGroupID, &cat.GrowthPercentage,
	); err != nil {
		return nil, err
	}
	cat.Market = marketFromCode(code, nil)
	cat.Trend = datasource.TrendFromGrowth(cat.GrowthPercentage)
	return &cat, nil
}

func marketFromCode(code string, logger *slog.Logger) market.Market {
	m, ok := market.FromCode(code)
	if !ok {
		if logger != nil {
			logger.Warn("unknown market code in store, defaulting to amazon.com", "code", code)
		}
		return market.AmazonCom
	}
	return m
}
