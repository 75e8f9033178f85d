package planner

import (
	"log"
	"os"
	"time"
)

const (
	// EnvMode is the environment variable name for mode selection.
	EnvMode = "CSVCHAT_MODE"
	// ModeMock indicates the offline mock planner should be used.
	ModeMock = "MOCK"
)

// NewPlanner creates a planner based on the CSVCHAT_MODE environment
// variable. CSVCHAT_MODE=MOCK selects the offline mock; otherwise a real
// chat-completions client is returned.
func NewPlanner(baseURL, apiKey, model string, timeout time.Duration) Planner {
	if os.Getenv(EnvMode) == ModeMock {
		log.Println("CSVCHAT_MODE=MOCK detected, using mock planner")
		return NewMockPlanner()
	}
	return NewClient(baseURL, apiKey, model, timeout)
}
