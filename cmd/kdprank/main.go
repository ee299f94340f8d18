// Command kdprank is the CLI front end for the estimation engine: sales
// estimates, keyword competition scores, category recommendations and
// bestseller planning against live Amazon data.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/KingOfTheAce2/KDP-category-ranker/internal/bestseller"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/cache"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/concurrency"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/config"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/conversion"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/estimator"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/keyword"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/logging"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/market"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/recommend"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/scoring"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/scraper"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "estimate":
		err = runEstimate(os.Args[2:])
	case "keywords":
		err = runKeywords(ctx, os.Args[2:])
	case "recommend":
		err = runRecommend(ctx, os.Args[2:])
	case "easiest":
		err = runEasiest(ctx, os.Args[2:])
	case "plan":
		err = runPlan(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: kdprank <command> [flags]

commands:
  estimate   estimate daily sales and monthly earnings from a BSR
  keywords   score keyword competition and earnings potential
  recommend  recommend categories for a book
  easiest    list the easiest categories to rank in
  plan       build a bestseller plan for one category

run "kdprank <command> -h" for command flags`)
}

// engine bundles the wired components shared by the online commands.
type engine struct {
	cfg        *config.Config
	scraper    *scraper.Service
	store      *store.Store
	calc       *bestseller.Calculator
	est        *estimator.Estimator
	scorer     *scoring.Scorer
	researcher *keyword.Researcher
	rec        *recommend.Recommender
	breakdowns *cache.Breakdowns
}

func buildEngine(configPath string) (*engine, error) {
	logger := logging.Logger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	est := estimator.New(logger, map[market.BookFormat]estimator.Coefficients{
		market.Kindle:    {A: cfg.Estimation.Kindle.A, B: cfg.Estimation.Kindle.B},
		market.AudioBook: {A: cfg.Estimation.Kindle.A, B: cfg.Estimation.Kindle.B},
		market.Paperback: {A: cfg.Estimation.Paperback.A, B: cfg.Estimation.Paperback.B},
		market.Hardcover: {A: cfg.Estimation.Paperback.A, B: cfg.Estimation.Paperback.B},
	})
	tables := conversion.NewTableSet(est, cfg.Baseline())
	pool := concurrency.NewPool(cfg.Workers, logger)

	svc := scraper.NewService(logger, cfg.Scraper.Timeout, cfg.Scraper.RequestsPerMinute)

	st, err := store.Open(cfg.Store.Path, logger)
	if err != nil {
		svc.Close()
		return nil, err
	}

	var breakdowns *cache.Breakdowns
	var breakdownCache scoring.BreakdownCache
	if cfg.Cache.Enabled {
		breakdowns, err = cache.NewBreakdowns(cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB, cfg.Cache.TTL, logger)
		if err != nil {
			logger.Warn("breakdown cache unavailable, scoring without it", "error", err)
		} else {
			breakdownCache = breakdowns
		}
	}

	calc := bestseller.New(logger, tables, est, svc, st)
	scorer := scoring.NewScorer(logger, svc, cfg.Scoring, breakdownCache)

	return &engine{
		cfg:        cfg,
		scraper:    svc,
		store:      st,
		calc:       calc,
		est:        est,
		scorer:     scorer,
		researcher: keyword.NewResearcher(logger, scorer, svc, est, pool),
		rec:        recommend.New(logger, st, calc, est, pool),
		breakdowns: breakdowns,
	}, nil
}

func (e *engine) close() {
	e.scraper.Close()
	e.store.Close()
	if e.breakdowns != nil {
		e.breakdowns.Close()
	}
}

func runEstimate(args []string) error {
	fs := flag.NewFlagSet("estimate", flag.ExitOnError)
	bsr := fs.Int("bsr", 0, "best seller rank to estimate")
	formatName := fs.String("format", "kindle", "book format: kindle, paperback, hardcover, audiobook")
	price := fs.Float64("price", 0, "list price for the earnings estimate (0 to skip)")
	fs.Parse(args)

	if *bsr <= 0 {
		return fmt.Errorf("-bsr must be positive")
	}
	format, ok := market.FormatFromString(*formatName)
	if !ok {
		return fmt.Errorf("unknown format %q", *formatName)
	}

	logger := logging.Logger()
	est := estimator.New(logger, nil)
	daily := est.EstimateDailySales(*bsr, format)
	fmt.Printf("BSR %d (%s): ~%d sales/day\n", *bsr, format, daily)
	if *price > 0 {
		monthly := est.EstimateMonthlyEarnings(daily, *price, estimator.DefaultRevenueFactor)
		fmt.Printf("at %.2f list price: ~%.2f/month royalties\n", *price, monthly)
	}
	return nil
}

func runKeywords(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("keywords", flag.ExitOnError)
	marketCode := fs.String("market", "com", "amazon storefront code (com, co.uk, de, ...)")
	configPath := fs.String("config", "", "path to the YAML config file")
	fs.Parse(args)

	keywords := fs.Args()
	if len(keywords) == 0 {
		return fmt.Errorf("at least one keyword is required")
	}
	m, ok := market.FromCode(*marketCode)
	if !ok {
		return fmt.Errorf("unknown market %q", *marketCode)
	}

	e, err := buildEngine(*configPath)
	if err != nil {
		return err
	}
	defer e.close()

	insights := e.researcher.ResearchKeywords(ctx, keywords, m)
	for _, insight := range insights {
		fmt.Printf("%-30s score %3d (%s)  competitors %2d  ~%d sales/day  ~%.0f/month\n",
			insight.Keyword, insight.CompetitionScore, insight.CompetitionLevel,
			insight.CompetitorCount, insight.AvgDailySales, insight.AvgMonthlyEarnings)
	}
	return nil
}

func runRecommend(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	title := fs.String("title", "", "book title")
	keywordList := fs.String("keywords", "", "comma-separated keywords")
	marketCode := fs.String("market", "com", "amazon storefront code")
	formatName := fs.String("format", "kindle", "book format")
	price := fs.Float64("price", 4.99, "planned list price")
	target := fs.Int("target", 10, "realistic daily sales you can drive")
	maxDifficulty := fs.Int("max-difficulty", 0, "difficulty ceiling, 0 for the default")
	includeHigh := fs.Bool("include-high-competition", false, "keep categories above the difficulty ceiling")
	excludeGhosts := fs.Bool("exclude-ghosts", false, "drop categories shoppers cannot browse to")
	configPath := fs.String("config", "", "path to the YAML config file")
	fs.Parse(args)

	keywords := splitList(*keywordList)
	if len(keywords) == 0 {
		return fmt.Errorf("-keywords is required")
	}
	m, ok := market.FromCode(*marketCode)
	if !ok {
		return fmt.Errorf("unknown market %q", *marketCode)
	}
	format, ok := market.FormatFromString(*formatName)
	if !ok {
		return fmt.Errorf("unknown format %q", *formatName)
	}

	e, err := buildEngine(*configPath)
	if err != nil {
		return err
	}
	defer e.close()

	recs, err := e.rec.Recommendations(ctx, recommend.Request{
		BookTitle:              *title,
		Keywords:               keywords,
		Format:                 format,
		Price:                  *price,
		TargetMarket:           m,
		MaxDailySalesTarget:    *target,
		MaxDifficultyScore:     *maxDifficulty,
		IncludeHighCompetition: *includeHigh,
		ExcludeGhostCategories: *excludeGhosts,
	})
	if err != nil {
		return err
	}

	for i, rec := range recs {
		flags := recFlags(rec)
		fmt.Printf("%2d. [%3d] %s\n    difficulty %d (%s), #1 needs %d sales/day, ~%.0f/month%s\n",
			i+1, rec.RecommendationScore, rec.Breadcrumb,
			rec.DifficultyScore, rec.Difficulty, rec.DailySalesForBestseller,
			rec.EstimatedMonthlyRevenue, flags)
	}
	if len(recs) == 0 {
		fmt.Println("no categories matched; relax the filters or try broader keywords")
	}
	return nil
}

func runEasiest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("easiest", flag.ExitOnError)
	marketCode := fs.String("market", "com", "amazon storefront code")
	formatName := fs.String("format", "kindle", "book format")
	maxSales := fs.Int("max-sales", 10, "highest daily sales you can sustain")
	configPath := fs.String("config", "", "path to the YAML config file")
	fs.Parse(args)

	m, ok := market.FromCode(*marketCode)
	if !ok {
		return fmt.Errorf("unknown market %q", *marketCode)
	}
	format, ok := market.FormatFromString(*formatName)
	if !ok {
		return fmt.Errorf("unknown format %q", *formatName)
	}

	e, err := buildEngine(*configPath)
	if err != nil {
		return err
	}
	defer e.close()

	recs, err := e.rec.EasiestCategories(ctx, m, format, *maxSales)
	if err != nil {
		return err
	}
	for i, rec := range recs {
		fmt.Printf("%2d. %s  difficulty %d (%s), #1 needs %d sales/day\n",
			i+1, rec.Breadcrumb, rec.DifficultyScore, rec.Difficulty, rec.DailySalesForBestseller)
	}
	return nil
}

func runPlan(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	categoryID := fs.String("category", "", "category id to plan for")
	marketCode := fs.String("market", "com", "amazon storefront code")
	price := fs.Float64("price", 4.99, "planned list price")
	target := fs.Int("target", 10, "realistic daily sales you can drive")
	releaseStr := fs.String("release", "", "planned release date (YYYY-MM-DD, default today)")
	configPath := fs.String("config", "", "path to the YAML config file")
	fs.Parse(args)

	if *categoryID == "" {
		return fmt.Errorf("-category is required")
	}
	m, ok := market.FromCode(*marketCode)
	if !ok {
		return fmt.Errorf("unknown market %q", *marketCode)
	}
	release := time.Now()
	if *releaseStr != "" {
		parsed, err := time.Parse("2006-01-02", *releaseStr)
		if err != nil {
			return fmt.Errorf("parse -release: %w", err)
		}
		release = parsed
	}

	e, err := buildEngine(*configPath)
	if err != nil {
		return err
	}
	defer e.close()

	plan, err := e.rec.BestsellerPlanning(ctx, *categoryID, m, *price, release, *target)
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s)\n", plan.CategoryName, plan.Market.Code())
	fmt.Printf("  #1 today: %d sales/day   top 10: %d   top 50: %d\n",
		plan.CurrentDailySalesForBestseller, plan.CurrentDailySalesForTop10, plan.CurrentDailySalesForTop50)
	fmt.Printf("  seasonal pattern: %s   easiest month: %s (%d days away)   hardest: %s\n",
		plan.SeasonalTrend, plan.EasiestMonth, plan.DaysUntilEasiestPeriod, plan.HardestMonth)
	fmt.Printf("  at #1: ~%.0f/day, ~%.0f/month   success probability %.0f%%\n",
		plan.DailyRevenueAtBestseller, plan.MonthlyRevenueAtBestseller, plan.SuccessProbability*100)
	fmt.Printf("  strategy: %s\n", plan.RecommendedStrategy)
	for _, item := range plan.ActionItems {
		fmt.Printf("  - %s\n", item)
	}
	return nil
}

func recFlags(rec recommend.Recommendation) string {
	var flags []string
	if rec.Ghost {
		flags = append(flags, "ghost")
	}
	if rec.Duplicate {
		flags = append(flags, "duplicate")
	}
	if rec.HighlyCompetitive {
		flags = append(flags, "highly competitive")
	}
	if rec.Emerging {
		flags = append(flags, "emerging")
	}
	if rec.Declining {
		flags = append(flags, "declining")
	}
	if len(flags) == 0 {
		return ""
	}
	return "  [" + strings.Join(flags, ", ") + "]"
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
