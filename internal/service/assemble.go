package service

import (
	"encoding/json"
	"log"

	"github.com/csvchat/csvchat/internal/domain"
)

// success builds the result for a run that ended with a final answer. When
// several visualizations were produced during the run, the last one wins.
func success(req domain.QueryRequest, answer string, chart *domain.Chart, rows []map[string]interface{}) *domain.QueryResult {
	result := &domain.QueryResult{
		Success: true,
		Result:  answer,
		Data:    rows,
		Query:   req.Query,
	}
	if chart != nil {
		encoded, err := json.Marshal(chart)
		if err != nil {
			log.Printf("ERROR: failed to encode chart: %v", err)
		} else {
			result.Visualization = string(encoded)
		}
	}
	return result
}

// failure builds the result for a run that could not reach an answer.
func failure(req domain.QueryRequest, err error) *domain.QueryResult {
	return &domain.QueryResult{
		Success: false,
		Error:   domain.MessageOf(err),
		Query:   req.Query,
	}
}
