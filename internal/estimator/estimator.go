package estimator

import (
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/KingOfTheAce2/KDP-category-ranker/internal/market"
)

// DefaultRevenueFactor is the share of the list price a KDP author keeps
// after Amazon's cut, used when no explicit factor is supplied.
const DefaultRevenueFactor = 0.6

// Coefficients holds one (A, B) pair of the power law sales = A * BSR^B.
type Coefficients struct {
	A float64
	B float64
}

var defaultKindle = Coefficients{A: 5500.0, B: -0.83}
var defaultPrint = Coefficients{A: 2600.0, B: -0.75}

// DefaultCoefficients returns the calibration shipped with the engine.
// Digital formats share the Kindle profile, physical formats the print one.
func DefaultCoefficients() map[market.BookFormat]Coefficients {
	return map[market.BookFormat]Coefficients{
		market.Kindle:    defaultKindle,
		market.AudioBook: defaultKindle,
		market.Paperback: defaultPrint,
		market.Hardcover: defaultPrint,
	}
}

// Estimator converts bestseller ranks into estimated unit sales using a
// per-format power law. The coefficient table may be recalibrated at runtime
// while estimation calls are in flight; updates replace the whole table so
// readers never observe a half-updated pair.
type Estimator struct {
	logger *slog.Logger
	coeffs atomic.Pointer[map[market.BookFormat]Coefficients]
}

// New builds an estimator seeded with the given coefficient table. A nil or
// empty table falls back to the shipped defaults.
func New(logger *slog.Logger, coeffs map[market.BookFormat]Coefficients) *Estimator {
	if len(coeffs) == 0 {
		coeffs = DefaultCoefficients()
	}
	snapshot := make(map[market.BookFormat]Coefficients, len(coeffs))
	for f, c := range coeffs {
		snapshot[f] = c
	}
	e := &Estimator{logger: logger}
	e.coeffs.Store(&snapshot)
	return e
}

// EstimateDailySales returns the estimated unit sales per day for a book at
// the given bestseller rank. Non-positive ranks are invalid input and yield
// zero rather than an error.
func (e *Estimator) EstimateDailySales(bsr int, format market.BookFormat) int {
	if bsr <= 0 {
		e.logger.Warn("invalid bestseller rank", "bsr", bsr, "format", format.String())
		return 0
	}

	c := e.Coefficients(format)
	sales := c.A * math.Pow(float64(bsr), c.B)
	if sales < 0 {
		sales = 0
	}
	return int(math.Round(sales))
}

// EstimateMonthlyEarnings projects monthly author earnings from a daily sales
// figure, a list price and the revenue share factor. The result is clamped to
// be non-negative.
func (e *Estimator) EstimateMonthlyEarnings(dailySales int, price, revenueFactor float64) float64 {
	earnings := float64(dailySales) * price * 30 * revenueFactor
	if earnings < 0 {
		return 0
	}
	return earnings
}

// UpdateCoefficients replaces the coefficient pair for one format. The whole
// table is copied and swapped atomically, so concurrent estimation calls see
// either the old pair or the new one, never a mix.
func (e *Estimator) UpdateCoefficients(format market.BookFormat, a, b float64) {
	for {
		current := e.coeffs.Load()
		next := make(map[market.BookFormat]Coefficients, len(*current)+1)
		for f, c := range *current {
			next[f] = c
		}
		next[format] = Coefficients{A: a, B: b}
		if e.coeffs.CompareAndSwap(current, &next) {
			break
		}
	}
	e.logger.Info("updated sales coefficients", "format", format.String(), "a", a, "b", b)
}

// Coefficients returns the current pair for the format, defaulting to the
// Kindle calibration when the format is unknown.
func (e *Estimator) Coefficients(format market.BookFormat) Coefficients {
	snapshot := *e.coeffs.Load()
	if c, ok := snapshot[format]; ok {
		return c
	}
	return defaultKindle
}
