package runner

import (
	"time"
)

// TestSuite defines a complete integration test scenario
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name    string     `json:"name"`
	Channel string     `json:"channel,omitempty"` // Base channel id; each run gets a unique suffix
	Lang    string     `json:"lang,omitempty"`    // Default locale for every step
	Steps   []TestStep `json:"steps,omitempty"`   // Used for regular tests
	Cases   []string   `json:"cases,omitempty"`   // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep defines a single test interaction and its expected outcomes.
// Exactly one of Roll, Command or History should be set.
type TestStep struct {
	Name         string       `json:"name,omitempty"`
	Roll         string       `json:"roll,omitempty"`    // POST /v1/roll
	Command      string       `json:"command,omitempty"` // POST /v1/commands, reply read from SSE
	History      bool         `json:"history,omitempty"` // GET /v1/rolls/{channel}
	Lang         string       `json:"lang,omitempty"`
	Expectations Expectations `json:"expect"`
}

// Kind names the endpoint a step exercises.
func (s TestStep) Kind() string {
	switch {
	case s.Roll != "":
		return "roll"
	case s.Command != "":
		return "command"
	case s.History:
		return "history"
	default:
		return ""
	}
}

// Expectations defines what to check after a test step executes
type Expectations struct {
	Status *int     `json:"status,omitempty"` // HTTP status of /v1/roll
	Result *string  `json:"result,omitempty"` // exact rendered result
	Min    *float64 `json:"min,omitempty"`    // numeric bounds on the result
	Max    *float64 `json:"max,omitempty"`
	Code   *string  `json:"code,omitempty"` // error code from the API or the reply

	// Response Analysis
	ResponseContains    []string `json:"response_contains,omitempty"`
	ResponseNotContains []string `json:"response_not_contains,omitempty"`
	ResponseRegex       string   `json:"response_regex,omitempty"`

	HistoryCount *int `json:"history_count,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName     string
	StepName     string
	Success      bool
	Error        error
	Duration     time.Duration
	ResponseText string
	RequestID    string
}

// TestJob represents a test suite to be executed by a worker
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	Channel  string // channel id used for this run
}
