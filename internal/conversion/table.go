// Package conversion maintains the per-market, per-format BSR conversion
// tables. The tables are a sparse set of research-based anchor points; exact
// BSR hits read the anchor directly while everything else defers to the
// continuous power law. The reverse direction (sales to BSR) interpolates
// between anchors because target sales values rarely hit an anchor exactly
// and the resulting rank is what users see.
package conversion

import (
	"math"
	"sort"

	"github.com/KingOfTheAce2/KDP-category-ranker/internal/estimator"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/market"
)

// UnreachableBSR is the sentinel rank returned when a sales figure cannot be
// mapped to any achievable position.
const UnreachableBSR = math.MaxInt32

// Entry is one immutable calibration point pairing a rank with the daily
// sales needed to hold it.
type Entry struct {
	BSR        int
	DailySales int
}

// Baseline carries the unscaled anchor sets and the per-market multipliers
// used to build the table set. Values are read once at construction; the
// built tables are immutable afterwards.
type Baseline struct {
	Kindle      []Entry
	Print       []Entry
	Multipliers map[market.Market]float64
}

// DefaultBaseline returns the research-based anchor points gathered from
// established KDP tooling. Kindle carries 14 points, print formats 12, both
// spanning rank 1 through 1,000,000. Requirements flatten to one sale per
// day from rank 10,000 onward.
func DefaultBaseline() Baseline {
	multipliers := make(map[market.Market]float64, len(market.All()))
	for _, m := range market.All() {
		multipliers[m] = m.SizeMultiplier()
	}
	return Baseline{
		Kindle: []Entry{
			{1, 1000},
			{5, 400},
			{10, 200},
			{20, 100},
			{50, 50},
			{100, 25},
			{500, 10},
			{1000, 5},
			{5000, 2},
			{10000, 1},
			{50000, 1},
			{100000, 1},
			{500000, 1},
			{1000000, 1},
		},
		Print: []Entry{
			{1, 500},
			{5, 200},
			{10, 100},
			{20, 50},
			{50, 25},
			{100, 15},
			{500, 8},
			{1000, 4},
			{5000, 2},
			{10000, 1},
			{50000, 1},
			{100000, 1},
		},
		Multipliers: multipliers,
	}
}

// Table maps BSR to daily sales for one (market, format) pair.
type Table struct {
	market  market.Market
	format  market.BookFormat
	entries []Entry
	est     *estimator.Estimator
}

// Market returns the marketplace the table was built for.
func (t *Table) Market() market.Market { return t.market }

// Format returns the book format the table was built for.
func (t *Table) Format() market.BookFormat { return t.format }

// Entries returns the scaled anchor points in ascending BSR order.
func (t *Table) Entries() []Entry { return t.entries }

// SalesForBSR returns the daily sales needed to hold the given rank. Exact
// anchors are read from the table; any other rank falls back to the power
// law, which is already smooth.
func (t *Table) SalesForBSR(bsr int) int {
	if bsr <= 0 {
		return 0
	}
	for _, e := range t.entries {
		if e.BSR == bsr {
			return e.DailySales
		}
	}
	return t.est.EstimateDailySales(bsr, t.format)
}

// BSRForDailySales returns the rank achievable with the given daily sales.
// Values between anchors are linearly interpolated; values outside table
// coverage snap to the nearest anchor. Non-positive sales map to the
// unreachable sentinel.
func (t *Table) BSRForDailySales(dailySales int) int {
	if dailySales <= 0 {
		return UnreachableBSR
	}
	if len(t.entries) == 0 {
		return UnreachableBSR
	}

	// Entries are ordered by ascending BSR, so daily sales run high to low.
	// An exact hit returns the best (lowest) rank holding that figure.
	for _, e := range t.entries {
		if e.DailySales == dailySales {
			return e.BSR
		}
	}

	var lower, upper *Entry
	for i := range t.entries {
		e := &t.entries[i]
		if e.DailySales <= dailySales && (lower == nil || e.DailySales > lower.DailySales) {
			lower = e
		}
		if e.DailySales >= dailySales && (upper == nil || e.DailySales < upper.DailySales) {
			upper = e
		}
	}

	switch {
	case lower != nil && upper != nil:
		return interpolateBSR(*lower, *upper, dailySales)
	case lower != nil:
		return lower.BSR
	case upper != nil:
		return upper.BSR
	default:
		return UnreachableBSR
	}
}

func interpolateBSR(lower, upper Entry, targetSales int) int {
	if lower.DailySales == upper.DailySales {
		return lower.BSR
	}
	ratio := float64(targetSales-lower.DailySales) / float64(upper.DailySales-lower.DailySales)
	bsr := float64(lower.BSR) + ratio*float64(upper.BSR-lower.BSR)
	if bsr < 1 {
		return 1
	}
	return int(math.Round(bsr))
}

type tableKey struct {
	market market.Market
	format market.BookFormat
}

// TableSet holds one built table per (market, format) pair. The set is
// initialized once and treated as immutable; reconfiguration means building
// a new set, never editing tables in place.
type TableSet struct {
	tables map[tableKey]*Table
}

// NewTableSet scales the baseline anchors by each market's size multiplier
// (flooring daily sales at 1) and builds a table for every market and format.
func NewTableSet(est *estimator.Estimator, baseline Baseline) *TableSet {
	set := &TableSet{tables: make(map[tableKey]*Table)}
	for _, m := range market.All() {
		mult, ok := baseline.Multipliers[m]
		if !ok {
			mult = m.SizeMultiplier()
		}
		for _, f := range market.Formats() {
			anchors := baseline.Print
			if f.Digital() {
				anchors = baseline.Kindle
			}
			entries := make([]Entry, len(anchors))
			for i, a := range anchors {
				scaled := int(float64(a.DailySales) * mult)
				if scaled < 1 {
					scaled = 1
				}
				entries[i] = Entry{BSR: a.BSR, DailySales: scaled}
			}
			sort.Slice(entries, func(i, j int) bool { return entries[i].BSR < entries[j].BSR })
			set.tables[tableKey{m, f}] = &Table{market: m, format: f, entries: entries, est: est}
		}
	}
	return set
}

// Table returns the table for the pair, falling back to the US Kindle table
// when the pair is unknown.
func (s *TableSet) Table(m market.Market, f market.BookFormat) *Table {
	if t, ok := s.tables[tableKey{m, f}]; ok {
		return t
	}
	return s.tables[tableKey{market.AmazonCom, market.Kindle}]
}
