package dataset

import (
	"sort"
	"strings"

	"github.com/csvchat/csvchat/internal/domain"
)

// AggFunc names a supported aggregation.
type AggFunc string

const (
	AggSum   AggFunc = "sum"
	AggMean  AggFunc = "mean"
	AggCount AggFunc = "count"
	AggMin   AggFunc = "min"
	AggMax   AggFunc = "max"
)

// ParseAggFunc validates an aggregation name.
func ParseAggFunc(name string) (AggFunc, error) {
	switch AggFunc(strings.ToLower(name)) {
	case AggSum, AggMean, AggCount, AggMin, AggMax:
		return AggFunc(strings.ToLower(name)), nil
	}
	return "", domain.NewError(domain.CodeInvalidToolArguments,
		"unknown aggregation %q; use one of sum, mean, count, min, max", name)
}

// Aggregate reduces one column to a scalar. count works on any column; the
// numeric aggregations require a numeric column.
func (d *Dataset) Aggregate(column string, fn AggFunc) (float64, error) {
	idx, err := d.ColumnIndex(column)
	if err != nil {
		return 0, err
	}
	if fn == AggCount {
		n := 0
		for row := range d.rows {
			if strings.TrimSpace(d.rows[row][idx]) != "" {
				n++
			}
		}
		return float64(n), nil
	}
	if d.cols[idx].Type != TypeNumeric {
		return 0, domain.NewError(domain.CodeTypeMismatch,
			"aggregation %q requires a numeric column but %q is %s", fn, column, d.cols[idx].Type)
	}
	return reduce(d.columnFloats(idx), fn), nil
}

// Group is one bucket of a GroupBy result.
type Group struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// GroupBy buckets rows by the key column, reduces the value column within
// each bucket, and returns groups sorted by value descending, the order
// charts want them in.
func (d *Dataset) GroupBy(keyColumn, valueColumn string, fn AggFunc) ([]Group, error) {
	keyIdx, err := d.ColumnIndex(keyColumn)
	if err != nil {
		return nil, err
	}
	valIdx, err := d.ColumnIndex(valueColumn)
	if err != nil {
		return nil, err
	}
	if fn != AggCount && d.cols[valIdx].Type != TypeNumeric {
		return nil, domain.NewError(domain.CodeTypeMismatch,
			"aggregation %q requires a numeric column but %q is %s", fn, valueColumn, d.cols[valIdx].Type)
	}

	buckets := make(map[string][]float64)
	order := []string{}
	for row := range d.rows {
		key := d.rows[row][keyIdx]
		if _, seen := buckets[key]; !seen {
			order = append(order, key)
		}
		if fn == AggCount {
			if strings.TrimSpace(d.rows[row][valIdx]) != "" {
				buckets[key] = append(buckets[key], 1)
			}
			continue
		}
		if f, ok := d.Float(row, valIdx); ok {
			buckets[key] = append(buckets[key], f)
		}
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		val := reduce(buckets[key], fn)
		if fn == AggCount {
			val = float64(len(buckets[key]))
		}
		groups = append(groups, Group{Key: key, Value: val})
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value > groups[j].Value })
	return groups, nil
}

// Filter returns a derived Dataset containing the rows the predicate keeps.
// The underlying row slices are shared, never copied or mutated.
func (d *Dataset) Filter(keep func(row int) bool) *Dataset {
	rows := [][]string{}
	for i := range d.rows {
		if keep(i) {
			rows = append(rows, d.rows[i])
		}
	}
	return New(d.cols, rows)
}

// SortBy returns a derived Dataset with rows ordered by one column. Numeric
// and temporal columns sort by value, everything else lexically.
func (d *Dataset) SortBy(column string, descending bool) (*Dataset, error) {
	idx, err := d.ColumnIndex(column)
	if err != nil {
		return nil, err
	}
	rows := make([][]string, len(d.rows))
	copy(rows, d.rows)

	less := func(a, b string) bool { return a < b }
	switch d.cols[idx].Type {
	case TypeNumeric:
		less = func(a, b string) bool {
			fa, _ := parseNumber(a)
			fb, _ := parseNumber(b)
			return fa < fb
		}
	case TypeTemporal:
		less = func(a, b string) bool {
			ta, oka := ParseTime(a)
			tb, okb := ParseTime(b)
			if oka && okb {
				return ta.Before(tb)
			}
			return a < b
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if descending {
			return less(rows[j][idx], rows[i][idx])
		}
		return less(rows[i][idx], rows[j][idx])
	})
	return New(d.cols, rows), nil
}

// Head returns a derived Dataset with at most n rows.
func (d *Dataset) Head(n int) *Dataset {
	if n < 0 || n > len(d.rows) {
		n = len(d.rows)
	}
	return New(d.cols, d.rows[:n])
}

// ColumnSummary is one column's slice of the summary operation.
type ColumnSummary struct {
	Name     string     `json:"name"`
	Type     ColumnType `json:"type"`
	Count    int        `json:"count"`
	Distinct int        `json:"distinct"`
	Sum      *float64   `json:"sum,omitempty"`
	Mean     *float64   `json:"mean,omitempty"`
	Min      *float64   `json:"min,omitempty"`
	Max      *float64   `json:"max,omitempty"`
}

// Summary computes per-column statistics: non-empty and distinct counts for
// every column, plus sum/mean/min/max for numeric columns.
func (d *Dataset) Summary() []ColumnSummary {
	out := make([]ColumnSummary, 0, len(d.cols))
	for i, c := range d.cols {
		cs := ColumnSummary{Name: c.Name, Type: c.Type}
		distinct := make(map[string]struct{})
		for row := range d.rows {
			v := strings.TrimSpace(d.rows[row][i])
			if v == "" {
				continue
			}
			cs.Count++
			distinct[v] = struct{}{}
		}
		cs.Distinct = len(distinct)
		if c.Type == TypeNumeric && cs.Count > 0 {
			vals := d.columnFloats(i)
			sum := reduce(vals, AggSum)
			mean := reduce(vals, AggMean)
			min := reduce(vals, AggMin)
			max := reduce(vals, AggMax)
			cs.Sum, cs.Mean, cs.Min, cs.Max = &sum, &mean, &min, &max
		}
		out = append(out, cs)
	}
	return out
}

func (d *Dataset) columnFloats(idx int) []float64 {
	vals := make([]float64, 0, len(d.rows))
	for row := range d.rows {
		if f, ok := d.Float(row, idx); ok {
			vals = append(vals, f)
		}
	}
	return vals
}

func reduce(vals []float64, fn AggFunc) float64 {
	if len(vals) == 0 {
		return 0
	}
	switch fn {
	case AggCount:
		return float64(len(vals))
	case AggSum, AggMean:
		sum := 0.0
		for _, v := range vals {
			sum += v
		}
		if fn == AggMean {
			return sum / float64(len(vals))
		}
		return sum
	case AggMin:
		min := vals[0]
		for _, v := range vals[1:] {
			if v < min {
				min = v
			}
		}
		return min
	case AggMax:
		max := vals[0]
		for _, v := range vals[1:] {
			if v > max {
				max = v
			}
		}
		return max
	}
	return 0
}
