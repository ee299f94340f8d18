package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/KingOfTheAce2/KDP-category-ranker/internal/datasource"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/market"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := Open(filepath.Join(t.TempDir(), "kdprank.db"), logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCategoryRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cat := datasource.CategorySummary{
		CategoryID:               "cat-1",
		Breadcrumb:               "Books > Mystery, Thriller & Suspense",
		Market:                   market.AmazonCom,
		SalesToRank1:             120,
		SalesToRank10:            45,
		AvgPriceIndie:            4.99,
		AvgPriceBig:              12.99,
		AvgRating:                4.3,
		AvgPageCount:             310,
		AvgAgeDays:               540,
		KUPercentage:             0.55,
		LargePublisherPercentage: 0.3,
		GrowthPercentage:         8.0,
	}
	if err := s.SaveCategory(ctx, cat); err != nil {
		t.Fatalf("SaveCategory: %v", err)
	}

	got, err := s.Category(ctx, "cat-1", market.AmazonCom)
	if err != nil {
		t.Fatalf("Category: %v", err)
	}
	if got.Breadcrumb != cat.Breadcrumb || got.SalesToRank1 != 120 || got.AvgPriceIndie != 4.99 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Trend != datasource.Growing {
		t.Fatalf("Trend = %v, want Growing for 8%% growth", got.Trend)
	}
}

func TestCategoryNotFound(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.Category(context.Background(), "nope", market.AmazonCom); !errors.Is(err, datasource.ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
}

func TestCategoryScopedByMarket(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cat := datasource.CategorySummary{CategoryID: "cat-1", Breadcrumb: "Books > Poetry", Market: market.AmazonDe}
	if err := s.SaveCategory(ctx, cat); err != nil {
		t.Fatalf("SaveCategory: %v", err)
	}

	if _, err := s.Category(ctx, "cat-1", market.AmazonCom); !errors.Is(err, datasource.ErrCategoryNotFound) {
		t.Fatalf("category leaked across markets: %v", err)
	}
	got, err := s.Category(ctx, "cat-1", market.AmazonDe)
	if err != nil {
		t.Fatalf("Category(de): %v", err)
	}
	if got.Market != market.AmazonDe {
		t.Fatalf("Market = %v, want AmazonDe", got.Market)
	}
}

func TestSaveCategoryUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cat := datasource.CategorySummary{CategoryID: "cat-1", Breadcrumb: "Books > Old", Market: market.AmazonCom, SalesToRank1: 10}
	if err := s.SaveCategory(ctx, cat); err != nil {
		t.Fatalf("SaveCategory: %v", err)
	}
	cat.Breadcrumb = "Books > New"
	cat.SalesToRank1 = 25
	if err := s.SaveCategory(ctx, cat); err != nil {
		t.Fatalf("SaveCategory update: %v", err)
	}

	got, err := s.Category(ctx, "cat-1", market.AmazonCom)
	if err != nil {
		t.Fatalf("Category: %v", err)
	}
	if got.Breadcrumb != "Books > New" || got.SalesToRank1 != 25 {
		t.Fatalf("upsert did not overwrite: %+v", got)
	}

	all, err := s.Categories(ctx, market.AmazonCom, "")
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("upsert created a duplicate row: %d rows", len(all))
	}
}

func TestCategoriesSearch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, breadcrumb := range []string{"Books > Mystery", "Books > Mystery > Cozy", "Books > Romance"} {
		cat := datasource.CategorySummary{CategoryID: breadcrumb, Breadcrumb: breadcrumb, Market: market.AmazonCom}
		if err := s.SaveCategory(ctx, cat); err != nil {
			t.Fatalf("SaveCategory: %v", err)
		}
	}

	matched, err := s.Categories(ctx, market.AmazonCom, "Mystery")
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(matched) != 2 {
		t.Fatalf("search matched %d categories, want 2", len(matched))
	}
}

func TestGhostCategories(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, cat := range []datasource.CategorySummary{
		{CategoryID: "ghost-1", Breadcrumb: "Books > Ghost", Market: market.AmazonCom, Ghost: true},
		{CategoryID: "real-1", Breadcrumb: "Books > Real", Market: market.AmazonCom},
	} {
		if err := s.SaveCategory(ctx, cat); err != nil {
			t.Fatalf("SaveCategory: %v", err)
		}
	}

	ghosts, err := s.GhostCategories(ctx, market.AmazonCom)
	if err != nil {
		t.Fatalf("GhostCategories: %v", err)
	}
	if len(ghosts) != 1 || ghosts[0].CategoryID != "ghost-1" {
		t.Fatalf("GhostCategories = %+v, want only ghost-1", ghosts)
	}
}

func TestCategoryHistoryOrderAndLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// 18 months spanning a year boundary, written out of order.
	months := []struct{ year, month int }{
		{2025, 7}, {2025, 1}, {2025, 12}, {2024, 11}, {2025, 3}, {2024, 12},
		{2025, 2}, {2025, 4}, {2025, 5}, {2025, 6}, {2025, 8}, {2025, 9},
		{2025, 10}, {2025, 11}, {2024, 9}, {2024, 10}, {2026, 1}, {2026, 2},
	}
	for _, m := range months {
		snap := datasource.CategorySnapshot{
			CategoryID: "cat-1", Market: market.AmazonCom,
			Year: m.year, Month: m.month,
			SalesToNo1: m.year*100 + m.month,
			CapturedAt: time.Date(m.year, time.Month(m.month), 28, 0, 0, 0, 0, time.UTC),
		}
		if err := s.SaveSnapshot(ctx, snap); err != nil {
			t.Fatalf("SaveSnapshot: %v", err)
		}
	}

	history, err := s.CategoryHistory(ctx, "cat-1", market.AmazonCom, 12)
	if err != nil {
		t.Fatalf("CategoryHistory: %v", err)
	}
	if len(history) != 12 {
		t.Fatalf("got %d snapshots, want 12 most recent", len(history))
	}
	if history[0].Year != 2025 || history[0].Month != 3 {
		t.Fatalf("oldest kept snapshot = %d-%02d, want 2025-03", history[0].Year, history[0].Month)
	}
	last := history[len(history)-1]
	if last.Year != 2026 || last.Month != 2 {
		t.Fatalf("newest snapshot = %d-%02d, want 2026-02", last.Year, last.Month)
	}
	for i := 1; i < len(history); i++ {
		prev, cur := history[i-1], history[i]
		if cur.Year < prev.Year || (cur.Year == prev.Year && cur.Month <= prev.Month) {
			t.Fatalf("history not ascending at index %d: %d-%02d after %d-%02d",
				i, cur.Year, cur.Month, prev.Year, prev.Month)
		}
	}
}

func TestSaveSnapshotUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	snap := datasource.CategorySnapshot{
		CategoryID: "cat-1", Market: market.AmazonCom,
		Year: 2026, Month: 1, SalesToNo1: 10,
		CapturedAt: time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC),
	}
	if err := s.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	snap.SalesToNo1 = 40
	if err := s.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("SaveSnapshot rewrite: %v", err)
	}

	history, err := s.CategoryHistory(ctx, "cat-1", market.AmazonCom, 12)
	if err != nil {
		t.Fatalf("CategoryHistory: %v", err)
	}
	if len(history) != 1 || history[0].SalesToNo1 != 40 {
		t.Fatalf("snapshot rewrite did not overwrite: %+v", history)
	}
}
