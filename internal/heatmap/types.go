package heatmap

import "fmt"

// Period is the forward-return horizon a heatmap is computed over.
// The zero value means the default current (month-over-month) view,
// for which the backend expects no forward_period query parameter.
type Period string

const (
	PeriodCurrent Period = ""
	Period1M      Period = "1M"
	Period3M      Period = "3M"
	Period6M      Period = "6M"
	Period1Y      Period = "1Y"
	Period2Y      Period = "2Y"
	Period3Y      Period = "3Y"
	Period4Y      Period = "4Y"
)

// Periods returns the seven forward horizons the backend accepts,
// excluding the default current view.
func Periods() []Period {
	return []Period{Period1M, Period3M, Period6M, Period1Y, Period2Y, Period3Y, Period4Y}
}

// IsCurrent reports whether p is the default month-over-month view.
func (p Period) IsCurrent() bool { return p == PeriodCurrent }

// String returns the wire form of the period; the current view prints
// as "current" for display purposes.
func (p Period) String() string {
	if p.IsCurrent() {
		return "current"
	}
	return string(p)
}

// ParsePeriod validates a user-supplied period string. The empty string
// and "current" both map to the default view.
func ParsePeriod(s string) (Period, error) {
	if s == "" || s == "current" {
		return PeriodCurrent, nil
	}
	for _, p := range Periods() {
		if s == string(p) {
			return p, nil
		}
	}
	return PeriodCurrent, fmt.Errorf("invalid forward period %q (want one of 1M, 3M, 6M, 1Y, 2Y, 3Y, 4Y)", s)
}

// Grid is a year -> month -> value matrix. Month keys are "1".."12".
// Cells the backend could not compute (insufficient history) are null
// and preserved as nil pointers.
type Grid map[string]map[string]*float64

// RankGrid is a year -> month -> rank-position matrix (1 = best
// performer among all indices for that month).
type RankGrid map[string]map[string]*int

// Payload is the heatmap response for one (index, period) pair. The
// controller does not interpret these fields; they flow through to the
// rendering layer as-is. Field names match the backend JSON contract.
type Payload struct {
	Index                 string   `json:"index"`
	Heatmap               Grid     `json:"heatmap"`
	MonthlyPrice          Grid     `json:"monthly_price"`
	MonthlyProfits        Grid     `json:"monthly_profits"`
	AvgMonthlyProfits3Y   *float64 `json:"avg_monthly_profits_3y"`
	RankPercentile4Y      *float64 `json:"rank_percentile_4y"`
	InverseRankPercentile *float64 `json:"inverse_rank_percentile"`
	MonthlyRankPercentile RankGrid `json:"monthly_rank_percentile"`
}

// indicesResponse is the body of GET /indices.
type indicesResponse struct {
	Indices []string `json:"indices"`
}

// errorBody is the optional error envelope the backend attaches to
// non-2xx responses.
type errorBody struct {
	Detail string `json:"detail"`
}
