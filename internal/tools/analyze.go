package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/csvchat/csvchat/internal/dataset"
	"github.com/csvchat/csvchat/internal/domain"
	"github.com/csvchat/csvchat/internal/expr"
)

// rowPreviewLimit bounds how many rows of a tabular result are rendered back
// into the conversation.
const rowPreviewLimit = 50

type analyzeArgs struct {
	Operation  string `json:"operation"`
	Column     string `json:"column"`
	GroupBy    string `json:"group_by"`
	AggFunc    string `json:"agg_func"`
	Expression string `json:"expression"`
	Order      string `json:"order"`
	Limit      int    `json:"limit"`
}

func execAnalyze(ctx context.Context, target Target, raw json.RawMessage) (*Result, error) {
	var args analyzeArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, domain.WrapError(domain.CodeInvalidToolArguments, err, "could not decode analyze_data arguments")
	}
	ds := target.Dataset

	switch args.Operation {
	case "summary":
		return summarize(ds)

	case "aggregate":
		if args.Column == "" || args.AggFunc == "" {
			return nil, domain.NewError(domain.CodeInvalidToolArguments,
				"aggregate requires column and agg_func")
		}
		fn, err := dataset.ParseAggFunc(args.AggFunc)
		if err != nil {
			return nil, err
		}
		v, err := ds.Aggregate(args.Column, fn)
		if err != nil {
			return nil, err
		}
		return &Result{Content: fmt.Sprintf("%s of %s: %s", fn, args.Column, dataset.FormatNumber(v))}, nil

	case "groupby":
		if args.GroupBy == "" || args.Column == "" || args.AggFunc == "" {
			return nil, domain.NewError(domain.CodeInvalidToolArguments,
				"groupby requires group_by, column and agg_func")
		}
		fn, err := dataset.ParseAggFunc(args.AggFunc)
		if err != nil {
			return nil, err
		}
		groups, err := ds.GroupBy(args.GroupBy, args.Column, fn)
		if err != nil {
			return nil, err
		}
		return groupResult(groups, args.GroupBy, args.Column, fn)

	case "filter":
		if args.Expression == "" {
			return nil, domain.NewError(domain.CodeInvalidToolArguments, "filter requires expression")
		}
		q, err := expr.Parse(args.Expression)
		if err != nil {
			return nil, err
		}
		if q.Agg != nil {
			return nil, domain.NewError(domain.CodeInvalidExpression,
				"filter expects a boolean predicate, not an aggregate")
		}
		res, err := q.Eval(ds)
		if err != nil {
			return nil, err
		}
		return tabularResult(res.Rows, args.Limit)

	case "sort":
		if args.Column == "" {
			return nil, domain.NewError(domain.CodeInvalidToolArguments, "sort requires column")
		}
		sorted, err := ds.SortBy(args.Column, args.Order == "desc")
		if err != nil {
			return nil, err
		}
		return tabularResult(sorted, args.Limit)
	}

	// Unreachable when dispatch validated the enum, kept for direct callers.
	return nil, domain.NewError(domain.CodeInvalidToolArguments, "unknown operation %q", args.Operation)
}

func summarize(ds *dataset.Dataset) (*Result, error) {
	content, err := json.Marshal(map[string]interface{}{
		"rows":    ds.NumRows(),
		"columns": ds.Summary(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal summary: %w", err)
	}
	return &Result{Content: string(content)}, nil
}

func groupResult(groups []dataset.Group, key, value string, fn dataset.AggFunc) (*Result, error) {
	rows := make([]map[string]interface{}, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, map[string]interface{}{
			key: g.Key,
			fmt.Sprintf("%s_%s", fn, value): g.Value,
		})
	}
	content, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal groups: %w", err)
	}
	return &Result{Content: string(content), Rows: rows}, nil
}

func tabularResult(ds *dataset.Dataset, limit int) (*Result, error) {
	if limit <= 0 || limit > rowPreviewLimit {
		limit = rowPreviewLimit
	}
	rows := ds.Records(limit)
	content, err := json.Marshal(map[string]interface{}{
		"matched": ds.NumRows(),
		"rows":    rows,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rows: %w", err)
	}
	return &Result{Content: string(content), Rows: rows}, nil
}
