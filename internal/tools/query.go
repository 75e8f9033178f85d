package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/csvchat/csvchat/internal/dataset"
	"github.com/csvchat/csvchat/internal/domain"
	"github.com/csvchat/csvchat/internal/expr"
)

type queryArgs struct {
	Expression string `json:"expression"`
}

// execQuery evaluates a restricted expression. The expression is parsed in
// full before any row is read, so a malformed query never partially executes.
func execQuery(ctx context.Context, target Target, raw json.RawMessage) (*Result, error) {
	var args queryArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, domain.WrapError(domain.CodeInvalidToolArguments, err, "could not decode execute_query arguments")
	}

	q, err := expr.Parse(args.Expression)
	if err != nil {
		return nil, err
	}
	res, err := q.Eval(target.Dataset)
	if err != nil {
		return nil, err
	}

	if res.Scalar != nil {
		return &Result{
			Content: fmt.Sprintf("%s = %s", args.Expression, dataset.FormatNumber(*res.Scalar)),
		}, nil
	}
	return tabularResult(res.Rows, rowPreviewLimit)
}
