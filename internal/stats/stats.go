// Package stats computes aggregate figures over a parsed ledger.
//
// All functions are pure and safe for concurrent use. Missing amounts are
// ignored by every aggregate.
package stats

import (
	"sort"

	"github.com/shopspring/decimal"

	"budgeter/internal/core"
)

// Trend directions returned by TrendArrow.
const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendFlat Trend = "flat"
)

type Trend string

// Arrow returns the symbol shown to users for the trend.
func (t Trend) Arrow() string {
	switch t {
	case TrendUp:
		return "↑"
	case TrendDown:
		return "↓"
	default:
		return "→"
	}
}

// FirstMissingDate returns the next date the user should be asked about:
// the first record without an amount, the day after the last record when
// every record is filled, or the day before today for an empty ledger.
func FirstMissingDate(l core.Ledger, today core.Date) core.Date {
	records := l.Records()
	if len(records) == 0 {
		return today.AddDays(-1)
	}
	for _, r := range records {
		if r.Amount.IsMissing() {
			return r.Date
		}
	}
	return records[len(records)-1].Date.AddDays(1)
}

// Sum adds the present amounts.
func Sum(records []core.Record) decimal.Decimal {
	return decimal.Sum(decimal.Zero, core.Amounts(records)...)
}

// Mean averages the present amounts. ok is false when there are none.
func Mean(records []core.Record) (decimal.Decimal, bool) {
	amounts := core.Amounts(records)
	if len(amounts) == 0 {
		return decimal.Zero, false
	}
	return mean(amounts), true
}

// Median returns the middle present amount, or the mean of the two middle
// amounts for an even count. ok is false when there are none.
func Median(records []core.Record) (decimal.Decimal, bool) {
	amounts := core.Amounts(records)
	if len(amounts) == 0 {
		return decimal.Zero, false
	}
	sort.Slice(amounts, func(i, j int) bool { return amounts[i].LessThan(amounts[j]) })
	mid := len(amounts) / 2
	if len(amounts)%2 == 1 {
		return amounts[mid], true
	}
	return amounts[mid-1].Add(amounts[mid]).Div(decimal.NewFromInt(2)), true
}

// TrailingWindow returns the last n records, or all of them when the
// ledger is shorter. n <= 0 yields an empty slice.
func TrailingWindow(records []core.Record, n int) []core.Record {
	if n <= 0 {
		return []core.Record{}
	}
	if n > len(records) {
		n = len(records)
	}
	out := make([]core.Record, n)
	copy(out, records[len(records)-n:])
	return out
}

// Point is one defined value of a rolling series.
type Point struct {
	Index int
	Date  core.Date
	Value decimal.Decimal
}

// RollingAverage returns, for each index i >= window-1, the mean of the
// window records ending at i. Positions without enough history produce no
// point. A window made only of missing amounts is skipped too.
func RollingAverage(records []core.Record, window int) []Point {
	if window <= 0 || len(records) < window {
		return nil
	}
	points := make([]Point, 0, len(records)-window+1)
	for i := window - 1; i < len(records); i++ {
		m, ok := Mean(records[i-window+1 : i+1])
		if !ok {
			continue
		}
		points = append(points, Point{Index: i, Date: records[i].Date, Value: m})
	}
	return points
}

// TrendArrow compares a recent figure against the one before it.
func TrendArrow(current, previous decimal.Decimal) Trend {
	switch current.Cmp(previous) {
	case 1:
		return TrendUp
	case -1:
		return TrendDown
	default:
		return TrendFlat
	}
}

// Comparison holds the averages of the latest window and the window
// immediately preceding it.
type Comparison struct {
	Current     decimal.Decimal
	Previous    decimal.Decimal
	HasPrevious bool
	Trend       Trend
}

// Compare averages the last n records against the n records before them.
// ok is false when the latest window has no amounts. Without a preceding
// window the trend is flat.
func Compare(records []core.Record, n int) (Comparison, bool) {
	current, ok := Mean(TrailingWindow(records, n))
	if !ok {
		return Comparison{}, false
	}
	c := Comparison{Current: current, Trend: TrendFlat}
	if n > 0 && len(records) > n {
		if prev, ok := Mean(TrailingWindow(records[:len(records)-n], n)); ok {
			c.Previous = prev
			c.HasPrevious = true
			c.Trend = TrendArrow(current, prev)
		}
	}
	return c, true
}

// Summary is the figure set shown by the statistics reply.
type Summary struct {
	Days       int
	Total      decimal.Decimal
	Mean       decimal.Decimal
	Median     decimal.Decimal
	Window     int
	Recent     Comparison
	Rolling    []Point
	First      core.Date
	Last       core.Date
	HasAmounts bool
}

// Summarize computes the statistics reply for a ledger using a trailing
// window of window days and a 7-record rolling average.
func Summarize(l core.Ledger, window int) Summary {
	records := l.Records()
	s := Summary{Days: len(records), Window: window, Total: Sum(records)}
	if len(records) == 0 {
		return s
	}
	s.First = records[0].Date
	s.Last = records[len(records)-1].Date
	s.Mean, s.HasAmounts = Mean(records)
	s.Median, _ = Median(records)
	s.Recent, _ = Compare(records, window)
	s.Rolling = RollingAverage(records, 7)
	return s
}

// LatestRolling returns the most recent rolling-average point.
func (s Summary) LatestRolling() (Point, bool) {
	if len(s.Rolling) == 0 {
		return Point{}, false
	}
	return s.Rolling[len(s.Rolling)-1], true
}

func mean(amounts []decimal.Decimal) decimal.Decimal {
	return decimal.Sum(decimal.Zero, amounts...).Div(decimal.NewFromInt(int64(len(amounts))))
}
