package yahoo

import "fmt"

// ChartRange is the lookback passed as the chart "range" query parameter
type ChartRange string

const (
	Range1Day    ChartRange = "1d"
	Range5Days   ChartRange = "5d"
	Range1Month  ChartRange = "1mo"
	Range3Months ChartRange = "3mo"
	Range6Months ChartRange = "6mo"
	Range1Year   ChartRange = "1y"
)

// validChartRanges maps each range to its approximate trading-day count
var validChartRanges = map[ChartRange]int{
	Range1Day:    1,
	Range5Days:   5,
	Range1Month:  21,
	Range3Months: 63,
	Range6Months: 126,
	Range1Year:   252,
}

// IsValid checks if the ChartRange is a supported lookback
func (r ChartRange) IsValid() bool {
	_, ok := validChartRanges[r]
	return ok
}

// Sessions returns the approximate number of daily bars the range yields
func (r ChartRange) Sessions() int {
	return validChartRanges[r]
}

// ParseChartRange parses a string into a valid ChartRange
func ParseChartRange(s string) (ChartRange, error) {
	r := ChartRange(s)
	if !r.IsValid() {
		return "", fmt.Errorf("invalid ChartRange: %s", s)
	}
	return r, nil
}
