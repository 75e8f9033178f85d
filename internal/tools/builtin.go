package tools

// builtins declares the fixed tool catalog: schemas first, behavior in the
// sibling files. The schemas double as the planner-facing declarations, so
// enum lists here are the single source of truth for allowed values.
func builtins() []Definition {
	return []Definition{
		{
			Name:        "get_data_info",
			Description: "Get basic information about the dataset: shape, columns, inferred types, and a few sample rows.",
			Parameters: map[string]interface{}{
				"type":                 "object",
				"properties":           map[string]interface{}{},
				"additionalProperties": false,
			},
			Exec: execDataInfo,
		},
		{
			Name:        "analyze_data",
			Description: "Run a data operation: summary statistics, groupby, filter, sort, or a single-column aggregate. Column names are case-sensitive.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"operation": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"summary", "groupby", "filter", "sort", "aggregate"},
						"description": "The operation to perform.",
					},
					"column": map[string]interface{}{
						"type":        "string",
						"description": "Target column for aggregate, sort, and the value column for groupby.",
					},
					"group_by": map[string]interface{}{
						"type":        "string",
						"description": "Key column for the groupby operation.",
					},
					"agg_func": map[string]interface{}{
						"type": "string",
						"enum": []string{"sum", "mean", "count", "min", "max"},
					},
					"expression": map[string]interface{}{
						"type":        "string",
						"description": "Filter predicate, e.g. sales > 100 and month == 'Jan'.",
					},
					"order": map[string]interface{}{
						"type": "string",
						"enum": []string{"asc", "desc"},
					},
					"limit": map[string]interface{}{
						"type":    "integer",
						"minimum": 1,
					},
				},
				"required":             []string{"operation"},
				"additionalProperties": false,
			},
			Exec: execAnalyze,
		},
		{
			Name:        "create_visualization",
			Description: "Prepare a structured chart for client-side rendering. With group_by, the y column is summed per group first.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"chart_type": map[string]interface{}{
						"type": "string",
						"enum": []string{"bar", "line", "scatter", "pie"},
					},
					"x_column": map[string]interface{}{
						"type": "string",
					},
					"y_column": map[string]interface{}{
						"type": "string",
					},
					"group_by": map[string]interface{}{
						"type":        "string",
						"description": "Column to group by before plotting.",
					},
					"title": map[string]interface{}{
						"type": "string",
					},
				},
				"required":             []string{"chart_type", "x_column"},
				"additionalProperties": false,
			},
			Exec: execVisualization,
		},
		{
			Name:        "execute_query",
			Description: "Evaluate a restricted query expression against the rows. Supports column references, comparisons, and/or/not, and sum/mean/count/min/max aggregates, e.g. max(sales) or sales > 100 and month == 'Jan'.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"expression": map[string]interface{}{
						"type": "string",
					},
				},
				"required":             []string{"expression"},
				"additionalProperties": false,
			},
			Exec: execQuery,
		},
	}
}
