package stats

import (
	"testing"

	"github.com/shopspring/decimal"

	"budgeter/internal/core"
)

func d(day int) core.Date { return core.NewDate(2021, 1, day) }

func amount(s string) core.Amount {
	a, err := core.ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

func ledgerOf(records ...core.Record) core.Ledger {
	return core.NewLedger(core.DefaultHeader, records)
}

func daily(n int) []core.Record {
	out := make([]core.Record, n)
	for i := range out {
		out[i] = core.Record{Date: d(1).AddDays(i), Amount: core.NewAmount(decimal.NewFromInt(int64(i + 1)))}
	}
	return out
}

func TestFirstMissingDate(t *testing.T) {
	today := d(10)
	tests := []struct {
		name   string
		ledger core.Ledger
		want   core.Date
	}{
		{
			name:   "empty ledger asks about yesterday",
			ledger: ledgerOf(),
			want:   d(9),
		},
		{
			name: "first absent amount",
			ledger: ledgerOf(
				core.Record{Date: d(1), Amount: amount("20")},
				core.Record{Date: d(2), Amount: amount("15")},
				core.Record{Date: d(3)},
			),
			want: d(3),
		},
		{
			name: "all filled returns the day after the last",
			ledger: ledgerOf(
				core.Record{Date: d(1), Amount: amount("20")},
				core.Record{Date: d(2), Amount: amount("15")},
				core.Record{Date: d(3), Amount: amount("0")},
			),
			want: d(4),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FirstMissingDate(tt.ledger, today); !got.Equal(tt.want) {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAggregates(t *testing.T) {
	records := []core.Record{
		{Date: d(1), Amount: amount("10")},
		{Date: d(2), Amount: amount("30")},
		{Date: d(3)},
		{Date: d(4), Amount: amount("20")},
		{Date: d(5), Amount: amount("40")},
	}
	if got := Sum(records); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("sum = %s", got)
	}
	if got, ok := Mean(records); !ok || !got.Equal(decimal.NewFromInt(25)) {
		t.Errorf("mean = %s, %v", got, ok)
	}
	if got, ok := Median(records); !ok || !got.Equal(decimal.NewFromInt(25)) {
		t.Errorf("median = %s, %v", got, ok)
	}
	if got, ok := Median(records[:2]); !ok || !got.Equal(decimal.NewFromInt(20)) {
		t.Errorf("even median = %s", got)
	}
	if got, ok := Median(records[:1]); !ok || !got.Equal(decimal.NewFromInt(10)) {
		t.Errorf("single median = %s", got)
	}
	if _, ok := Mean(nil); ok {
		t.Errorf("mean of nothing should not be ok")
	}
	if _, ok := Median([]core.Record{{Date: d(1)}}); ok {
		t.Errorf("median of only missing should not be ok")
	}
	if !Sum(nil).IsZero() {
		t.Errorf("sum of nothing should be zero")
	}
}

func TestTrailingWindow(t *testing.T) {
	records := daily(5)
	tests := []struct {
		n       int
		wantLen int
		first   int
	}{
		{n: 3, wantLen: 3, first: 3},
		{n: 5, wantLen: 5, first: 1},
		{n: 9, wantLen: 5, first: 1},
		{n: 0, wantLen: 0},
	}
	for _, tt := range tests {
		got := TrailingWindow(records, tt.n)
		if len(got) != tt.wantLen {
			t.Fatalf("n=%d: len = %d, want %d", tt.n, len(got), tt.wantLen)
		}
		if tt.wantLen > 0 && !got[0].Date.Equal(d(tt.first)) {
			t.Fatalf("n=%d: first = %s", tt.n, got[0].Date)
		}
	}
}

func TestRollingAverage(t *testing.T) {
	records := daily(10)
	points := RollingAverage(records, 7)
	if len(points) != 4 {
		t.Fatalf("points = %d, want 4", len(points))
	}
	for k, p := range points {
		wantIndex := 6 + k
		if p.Index != wantIndex {
			t.Fatalf("point %d index = %d", k, p.Index)
		}
		want, _ := Mean(records[wantIndex-6 : wantIndex+1])
		if !p.Value.Equal(want) {
			t.Fatalf("point %d = %s, want %s", k, p.Value, want)
		}
		if !p.Date.Equal(records[wantIndex].Date) {
			t.Fatalf("point %d date = %s", k, p.Date)
		}
	}
	if got := points[0].Value; !got.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("first rolling value = %s, want 4", got)
	}

	if got := RollingAverage(records[:6], 7); len(got) != 0 {
		t.Fatalf("short ledger should yield no points, got %d", len(got))
	}
	if got := RollingAverage(records, 0); got != nil {
		t.Fatalf("zero window should yield nil")
	}
}

func TestTrendArrow(t *testing.T) {
	tests := []struct {
		current, previous int64
		want              Trend
		arrow             string
	}{
		{current: 5, previous: 3, want: TrendUp, arrow: "↑"},
		{current: 3, previous: 5, want: TrendDown, arrow: "↓"},
		{current: 4, previous: 4, want: TrendFlat, arrow: "→"},
	}
	for _, tt := range tests {
		got := TrendArrow(decimal.NewFromInt(tt.current), decimal.NewFromInt(tt.previous))
		if got != tt.want || got.Arrow() != tt.arrow {
			t.Errorf("TrendArrow(%d, %d) = %s %s", tt.current, tt.previous, got, got.Arrow())
		}
	}
}

func TestCompare(t *testing.T) {
	records := daily(6) // 1..6
	c, ok := Compare(records, 3)
	if !ok {
		t.Fatal("expected comparison")
	}
	if !c.Current.Equal(decimal.NewFromInt(5)) || !c.Previous.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("current=%s previous=%s", c.Current, c.Previous)
	}
	if !c.HasPrevious || c.Trend != TrendUp {
		t.Fatalf("trend = %s has=%v", c.Trend, c.HasPrevious)
	}

	c, ok = Compare(records, 6)
	if !ok || c.HasPrevious || c.Trend != TrendFlat {
		t.Fatalf("no previous window: %+v", c)
	}

	if _, ok := Compare(nil, 3); ok {
		t.Fatal("empty records should not compare")
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(ledgerOf(daily(10)...), 3)
	if s.Days != 10 || !s.Total.Equal(decimal.NewFromInt(55)) {
		t.Fatalf("days=%d total=%s", s.Days, s.Total)
	}
	if !s.Mean.Equal(decimal.NewFromFloat(5.5)) || !s.Median.Equal(decimal.NewFromFloat(5.5)) {
		t.Fatalf("mean=%s median=%s", s.Mean, s.Median)
	}
	if !s.First.Equal(d(1)) || !s.Last.Equal(d(10)) {
		t.Fatalf("range %s..%s", s.First, s.Last)
	}
	p, ok := s.LatestRolling()
	if !ok || !p.Value.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("latest rolling = %s, %v", p.Value, ok)
	}
	if s.Recent.Trend != TrendUp {
		t.Fatalf("recent trend = %s", s.Recent.Trend)
	}

	empty := Summarize(ledgerOf(), 30)
	if empty.Days != 0 || empty.HasAmounts {
		t.Fatalf("empty summary = %+v", empty)
	}
	if _, ok := empty.LatestRolling(); ok {
		t.Fatal("empty summary has no rolling point")
	}
}
