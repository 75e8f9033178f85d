package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

const sampleRows = 3

// execDataInfo reports the dataset's shape, columns with inferred types, and
// the first few rows, mirroring what an analyst would glance at before
// answering anything.
func execDataInfo(ctx context.Context, target Target, args json.RawMessage) (*Result, error) {
	ds := target.Dataset
	dtypes := make(map[string]string, ds.NumCols())
	for _, c := range ds.Columns() {
		dtypes[c.Name] = string(c.Type)
	}

	info := map[string]interface{}{
		"filename":    target.Filename,
		"shape":       fmt.Sprintf("%d rows × %d columns", ds.NumRows(), ds.NumCols()),
		"columns":     ds.ColumnNames(),
		"dtypes":      dtypes,
		"sample_data": ds.Records(sampleRows),
	}
	content, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dataset info: %w", err)
	}
	return &Result{Content: string(content)}, nil
}
