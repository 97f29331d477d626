package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/dicebot/pkg/command"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running dicebot API and worker
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
	User              string // user name sent with rolls and commands
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 60 * time.Second},
		Timeout:           30 * time.Second,
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
		User:              "integration",
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	for i, step := range suite.Steps {
		if step.Kind() == "" {
			return TestSuite{}, fmt.Errorf("%s: step %d (%s) sets none of roll, command or history", filename, i, step.Name)
		}
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite executes a complete test suite on a fresh channel
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	base := suite.Channel
	if base == "" {
		base = "it"
	}
	channelID := base + "-" + uuid.NewString()[:8]
	result.Channel = channelID

	var stream *EventStream
	if suiteHasCommands(suite) {
		s, err := OpenEventStream(ctx, r.Client, r.BaseURL, channelID)
		if err != nil {
			result.Error = fmt.Errorf("failed to subscribe to channel events: %w", err)
			result.Duration = time.Since(start)
			return result, result.Error
		}
		defer s.Close()
		stream = s
	}

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.runStep(ctx, channelID, suite.Lang, stream, step)
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

func suiteHasCommands(suite TestSuite) bool {
	for _, step := range suite.Steps {
		if step.Kind() == "command" {
			return true
		}
	}
	return false
}

// runStep executes a single test step and checks expectations
func (r *Runner) runStep(ctx context.Context, channelID, suiteLang string, stream *EventStream, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}

	lang := step.Lang
	if lang == "" {
		lang = suiteLang
	}

	stepCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	var (
		status int
		text   string
		code   string
		err    error
	)

	switch step.Kind() {
	case "roll":
		status, text, code, err = PostRoll(stepCtx, r.Client, r.BaseURL, lang, command.RollRequest{
			Expression: step.Roll,
			ChannelID:  channelID,
			User:       r.User,
		})
	case "command":
		var requestID string
		requestID, err = PostCommandAsync(stepCtx, r.Client, r.BaseURL, lang, command.CommandRequest{
			ChannelID: channelID,
			User:      r.User,
			Content:   step.Command,
		})
		if err == nil {
			result.RequestID = requestID
			var ev StreamEvent
			ev, err = stream.WaitForReply(stepCtx, requestID)
			text, code = ev.Content(), ev.Code()
		}
	case "history":
		var records []command.RollRecord
		records, err = GetHistory(stepCtx, r.Client, r.BaseURL, channelID)
		if err == nil && step.Expectations.HistoryCount != nil && len(records) != *step.Expectations.HistoryCount {
			err = fmt.Errorf("expected %d history records, got %d", *step.Expectations.HistoryCount, len(records))
		}
		if err == nil && len(records) > 0 {
			text = records[0].Expression + " = " + records[0].Result
		}
	}

	result.ResponseText = text
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	if err := checkExpectations(step.Expectations, status, text, code); err != nil {
		result.Error = fmt.Errorf("expectation failed: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

// checkExpectations validates the step's expectations against what the API returned
func checkExpectations(exp Expectations, status int, text, code string) error {
	if exp.Status != nil && status != *exp.Status {
		return fmt.Errorf("expected status %d, got %d", *exp.Status, status)
	}

	if exp.Code != nil && code != *exp.Code {
		return fmt.Errorf("expected code %q, got %q (response: %s)", *exp.Code, code, text)
	}

	if exp.Result != nil && text != *exp.Result {
		return fmt.Errorf("expected result %q, got %q", *exp.Result, text)
	}

	if exp.Min != nil || exp.Max != nil {
		v, err := strconv.ParseFloat(lastField(text), 64)
		if err != nil {
			return fmt.Errorf("result %q is not numeric", text)
		}
		if exp.Min != nil && v < *exp.Min {
			return fmt.Errorf("expected result >= %v, got %v", *exp.Min, v)
		}
		if exp.Max != nil && v > *exp.Max {
			return fmt.Errorf("expected result <= %v, got %v", *exp.Max, v)
		}
	}

	lowerText := strings.ToLower(text)
	for _, expectedText := range exp.ResponseContains {
		if !strings.Contains(lowerText, strings.ToLower(expectedText)) {
			return fmt.Errorf("expected response to contain '%s', got: %s", expectedText, text)
		}
	}
	for _, unexpectedText := range exp.ResponseNotContains {
		if strings.Contains(lowerText, strings.ToLower(unexpectedText)) {
			return fmt.Errorf("expected response to NOT contain '%s', but it did", unexpectedText)
		}
	}

	if exp.ResponseRegex != "" {
		matched, err := regexp.MatchString(exp.ResponseRegex, text)
		if err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
		if !matched {
			return fmt.Errorf("response %q didn't match regex pattern: %s", text, exp.ResponseRegex)
		}
	}

	return nil
}

// lastField returns the final space-separated field, so that bounds also
// apply to formatted replies such as "Mira rolls dex (1d20+3): 17".
func lastField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
