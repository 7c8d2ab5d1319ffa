package scenario

import (
	"time"

	"cpathways/cprules/pkg/model"
	"cpathways/cprules/pkg/rules"
)

// Result is the outcome of one case.
type Result struct {
	Name     string        `json:"name" yaml:"name"`
	Action   string        `json:"action" yaml:"action"`
	Passed   bool          `json:"passed" yaml:"passed"`
	Expected rules.Verdict `json:"expected" yaml:"expected"`
	Actual   rules.Verdict `json:"actual" yaml:"actual"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Report summarizes a suite run.
type Report struct {
	Results  []Result      `json:"results" yaml:"results"`
	Passed   int           `json:"passed" yaml:"passed"`
	Failed   int           `json:"failed" yaml:"failed"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// OK reports whether every case passed.
func (r *Report) OK() bool {
	return r.Failed == 0
}

// Failures returns the failed results in suite order.
func (r *Report) Failures() []Result {
	var failed []Result
	for _, res := range r.Results {
		if !res.Passed {
			failed = append(failed, res)
		}
	}
	return failed
}

// Recorder receives the totals of each run.
type Recorder interface {
	RecordScenarioRun(passed, failed int)
}

// Run evaluates every case of suite against chain. A case fails when the
// chain's verdict differs from the expectation or a decision function faults.
func Run(chain *rules.Chain, suite *Suite) *Report {
	start := time.Now()
	report := &Report{Results: make([]Result, 0, len(suite.Tests))}

	for _, c := range suite.Tests {
		res := runCase(chain, c)
		if res.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
		report.Results = append(report.Results, res)
	}

	report.Duration = time.Since(start)
	return report
}

// RunAndRecord runs suite and reports the totals to rec.
func RunAndRecord(chain *rules.Chain, suite *Suite, rec Recorder) *Report {
	report := Run(chain, suite)
	if rec != nil {
		rec.RecordScenarioRun(report.Passed, report.Failed)
	}
	return report
}

func runCase(chain *rules.Chain, c Case) Result {
	start := time.Now()
	res := Result{Name: c.Name, Action: c.Action}

	expected, err := c.Expect.ParsedVerdict()
	if err != nil {
		res.Error = err.Error()
		res.Duration = time.Since(start)
		return res
	}
	res.Expected = expected

	action, err := rules.ParseAction(c.Action)
	if err != nil {
		res.Error = err.Error()
		res.Duration = time.Since(start)
		return res
	}

	ctx := c.Context
	if ctx == nil {
		ctx = &model.Context{}
	}

	actual, err := chain.EvaluateSafe(action, ctx)
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Actual = actual
	res.Passed = actual == expected
	return res
}
