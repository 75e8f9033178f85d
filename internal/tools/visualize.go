package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/csvchat/csvchat/internal/dataset"
	"github.com/csvchat/csvchat/internal/domain"
)

type visualizeArgs struct {
	ChartType string `json:"chart_type"`
	XColumn   string `json:"x_column"`
	YColumn   string `json:"y_column"`
	GroupBy   string `json:"group_by"`
	Title     string `json:"title"`
}

// execVisualization builds a structured chart description. All four chart
// types need a numeric y axis; x values are coerced to strings and y values
// to numbers so the client can render without re-parsing.
func execVisualization(ctx context.Context, target Target, raw json.RawMessage) (*Result, error) {
	var args visualizeArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, domain.WrapError(domain.CodeInvalidToolArguments, err, "could not decode create_visualization arguments")
	}
	if args.YColumn == "" {
		return nil, domain.NewError(domain.CodeInvalidToolArguments,
			"%s charts require y_column", args.ChartType)
	}
	ds := target.Dataset

	chart := &domain.Chart{
		ChartType: strings.ToLower(args.ChartType),
		Title:     args.Title,
	}
	if chart.Title == "" {
		chart.Title = fmt.Sprintf("%s chart of %s", chart.ChartType, args.YColumn)
	}

	switch {
	case args.GroupBy != "":
		// Group then sum before charting.
		if err := grouped(ds, chart, args.GroupBy, args.YColumn); err != nil {
			return nil, err
		}
	default:
		xCol, err := ds.Column(args.XColumn)
		if err != nil {
			return nil, err
		}
		if xCol.Type == dataset.TypeTemporal {
			// Dates on the x axis collapse duplicate points by summing.
			if err := grouped(ds, chart, args.XColumn, args.YColumn); err != nil {
				return nil, err
			}
			break
		}
		if err := direct(ds, chart, args.XColumn, args.YColumn); err != nil {
			return nil, err
		}
	}

	return &Result{
		Content: fmt.Sprintf("Created %s chart %q with %d data points.", chart.ChartType, chart.Title, len(chart.X)),
		Chart:   chart,
	}, nil
}

func grouped(ds *dataset.Dataset, chart *domain.Chart, keyColumn, yColumn string) error {
	groups, err := ds.GroupBy(keyColumn, yColumn, dataset.AggSum)
	if err != nil {
		return err
	}
	chart.X = make([]string, 0, len(groups))
	chart.Y = make([]float64, 0, len(groups))
	for _, g := range groups {
		chart.X = append(chart.X, g.Key)
		chart.Y = append(chart.Y, g.Value)
	}
	chart.XLabel = keyColumn
	chart.YLabel = fmt.Sprintf("sum of %s", yColumn)
	return nil
}

func direct(ds *dataset.Dataset, chart *domain.Chart, xColumn, yColumn string) error {
	xIdx, err := ds.ColumnIndex(xColumn)
	if err != nil {
		return err
	}
	yIdx, err := ds.ColumnIndex(yColumn)
	if err != nil {
		return err
	}
	yCol := ds.Columns()[yIdx]
	if yCol.Type != dataset.TypeNumeric {
		return domain.NewError(domain.CodeTypeMismatch,
			"chart y axis requires a numeric column but %q is %s", yColumn, yCol.Type)
	}

	chart.X = make([]string, 0, ds.NumRows())
	chart.Y = make([]float64, 0, ds.NumRows())
	for row := 0; row < ds.NumRows(); row++ {
		y, ok := ds.Float(row, yIdx)
		if !ok {
			continue
		}
		chart.X = append(chart.X, ds.Cell(row, xIdx))
		chart.Y = append(chart.Y, y)
	}
	chart.XLabel = xColumn
	chart.YLabel = yColumn
	return nil
}
