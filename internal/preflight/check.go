// Package preflight runs readiness checks before the routing engine
// starts serving traffic: config validity, index dimension agreement,
// and index readiness.
package preflight

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/foldermind/router/internal/capability"
	"github.com/foldermind/router/internal/config"
)

// CheckStatus represents the result of a preflight check.
type CheckStatus int

const (
	// StatusPass indicates the check passed successfully.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a non-critical warning.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the string representation of a CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical returns true if this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Checker performs preflight validation checks against a config and a
// vector index before the router starts serving traffic.
type Checker struct {
	verbose bool
	output  io.Writer
}

// Option configures a Checker.
type Option func(*Checker)

// WithVerbose enables verbose output.
func WithVerbose(verbose bool) Option {
	return func(c *Checker) { c.verbose = verbose }
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) { c.output = w }
}

// New creates a new Checker with the given options.
func New(opts ...Option) *Checker {
	c := &Checker{output: os.Stdout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs every preflight check and returns the results.
func (c *Checker) RunAll(_ context.Context, cfg *config.Config, index capability.VectorIndex, embedderDims int) []CheckResult {
	var results []CheckResult

	results = append(results, c.CheckConfigValid(cfg))
	results = append(results, c.CheckIndexReady(index))
	results = append(results, c.CheckDimensionAgreement(index, embedderDims))

	return results
}

// CheckConfigValid runs the config's own validation and surfaces any
// threshold-ordering or enum violation as a critical failure.
func (c *Checker) CheckConfigValid(cfg *config.Config) CheckResult {
	if err := cfg.Validate(); err != nil {
		return CheckResult{
			Name: "config", Status: StatusFail,
			Message: "configuration is invalid", Details: err.Error(), Required: true,
		}
	}
	return CheckResult{Name: "config", Status: StatusPass, Message: "configuration valid", Required: true}
}

// CheckIndexReady confirms the vector index reports itself ready.
func (c *Checker) CheckIndexReady(index capability.VectorIndex) CheckResult {
	if index == nil {
		return CheckResult{Name: "index_ready", Status: StatusFail, Message: "no vector index configured", Required: true}
	}
	if !index.IsReady() {
		return CheckResult{Name: "index_ready", Status: StatusFail, Message: "vector index is not ready", Required: true}
	}
	return CheckResult{Name: "index_ready", Status: StatusPass, Message: "vector index ready", Required: true}
}

// CheckDimensionAgreement confirms the index's dimensionality matches
// the embedder's. A mismatch here means every Upsert would fail at
// runtime, so it's a critical, required check.
func (c *Checker) CheckDimensionAgreement(index capability.VectorIndex, embedderDims int) CheckResult {
	if index == nil {
		return CheckResult{Name: "dimension_agreement", Status: StatusWarn, Message: "no index to check", Required: false}
	}
	if index.Dimensions() != embedderDims {
		return CheckResult{
			Name: "dimension_agreement", Status: StatusFail,
			Message:  fmt.Sprintf("index dimensions (%d) do not match embedder dimensions (%d)", index.Dimensions(), embedderDims),
			Required: true,
		}
	}
	return CheckResult{Name: "dimension_agreement", Status: StatusPass, Message: "index and embedder dimensions agree", Required: true}
}

// HasCriticalFailures returns true if any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus returns a summary status string for the results.
func (c *Checker) SummaryStatus(results []CheckResult) string {
	hasWarnings := false
	hasCriticalFailure := false

	for _, r := range results {
		if r.IsCritical() {
			hasCriticalFailure = true
		}
		if r.Status == StatusWarn || (r.Status == StatusFail && !r.Required) {
			hasWarnings = true
		}
	}

	if hasCriticalFailure {
		return "failed"
	}
	if hasWarnings {
		return "ready_with_warnings"
	}
	return "ready"
}

// PrintResults prints check results to the configured output.
func (c *Checker) PrintResults(results []CheckResult) {
	_, _ = fmt.Fprintln(c.output, "Router System Check")
	_, _ = fmt.Fprintln(c.output, "====================")
	_, _ = fmt.Fprintln(c.output)

	for _, r := range results {
		icon := c.statusIcon(r.Status)
		_, _ = fmt.Fprintf(c.output, "[%s] %s: %s\n", icon, r.Name, r.Message)
		if c.verbose && r.Details != "" {
			_, _ = fmt.Fprintf(c.output, "      %s\n", r.Details)
		}
	}

	_, _ = fmt.Fprintln(c.output)
	status := c.SummaryStatus(results)
	_, _ = fmt.Fprintf(c.output, "Status: %s\n", strings.ToUpper(status))

	var warnings, errors []string
	for _, r := range results {
		if r.IsCritical() {
			errors = append(errors, r.Name+": "+r.Message)
		} else if r.Status == StatusWarn {
			warnings = append(warnings, r.Name+": "+r.Message)
		}
	}

	if len(errors) > 0 {
		_, _ = fmt.Fprintln(c.output)
		_, _ = fmt.Fprintf(c.output, "%d error(s):\n", len(errors))
		for _, e := range errors {
			_, _ = fmt.Fprintf(c.output, "  - %s\n", e)
		}
	}
	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(c.output)
		_, _ = fmt.Fprintf(c.output, "%d warning(s):\n", len(warnings))
		for _, w := range warnings {
			_, _ = fmt.Fprintf(c.output, "  - %s\n", w)
		}
	}
}

func (c *Checker) statusIcon(s CheckStatus) string {
	switch s {
	case StatusPass:
		return "OK"
	case StatusWarn:
		return "!!"
	default:
		return "XX"
	}
}
