package threshold

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/torosent/kvcrank/internal/metrics"
)

// Threshold represents a performance assertion that can pass or fail.
type Threshold struct {
	Metric    string  // "latency", "ops" or "workers"
	Aggregate string  // e.g., "p99", "p999", "avg", "max", "rate", "failed"
	Operator  string  // e.g., "<", "<=", ">", ">=", "=="
	Value     float64 // The threshold value to compare against
	Raw       string  // Original threshold string for display
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

// Input is what thresholds are evaluated against: the run summary plus the
// worker outcome counts.
type Input struct {
	Summary          metrics.Summary
	FailedWorkers    int
	SucceededWorkers int
}

// Evaluator evaluates thresholds against collected metrics.
type Evaluator struct {
	thresholds []Threshold
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{
		thresholds: thresholds,
	}
}

// Evaluate checks all thresholds against the provided stats.
func (e *Evaluator) Evaluate(in Input) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}

	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		result := e.evaluateOne(t, in)
		results = append(results, result)
	}
	return results
}

func (e *Evaluator) evaluateOne(t Threshold, in Input) Result {
	actual, err := extractMetricValue(t, in)
	if err != nil {
		return Result{
			Threshold: t,
			Actual:    0,
			Pass:      false,
			Message:   fmt.Sprintf("error: %v", err),
		}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	message := fmt.Sprintf("%s: %.2f %s %.2f", t.Raw, actual, t.Operator, t.Value)
	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   message,
	}
}

// Parse parses a threshold string into a Threshold struct.
// Supported formats:
// - "latency:p99 < 2000"        (latency percentile in µs; p50, p90, p99, p999)
// - "latency:avg < 300"         (mean latency in µs; also min, max)
// - "ops:rate > 50000"          (operations per second)
// - "ops:count >= 100000"       (credited operations)
// - "workers:failed == 0"       (workers that returned an error)
// - "workers:succeeded >= 50"   (workers whose stats were merged)
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	matches := thresholdPattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected format: metric:aggregate operator value, e.g., 'latency:p99 < 2000')", s)
	}

	metric := matches[1]
	aggregate := matches[2]
	operator := matches[3]
	valueStr := matches[4]

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", valueStr, err)
	}

	aggregates, ok := validAggregates[metric]
	if !ok {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: latency, ops, workers)", metric)
	}
	if !contains(aggregates, aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate %q for %s (supported: %s)", aggregate, metric, strings.Join(aggregates, ", "))
	}

	// Validate operator
	if !isValidOperator(operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errors []string

	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errors = append(errors, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errors, "; "))
	}

	return result, nil
}

// Pattern: metric:aggregate operator value
var thresholdPattern = regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

var validAggregates = map[string][]string{
	"latency": {"p50", "p90", "p99", "p999", "avg", "min", "max"},
	"ops":     {"count", "rate"},
	"workers": {"failed", "succeeded"},
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func isValidOperator(operator string) bool {
	valid := []string{"<", "<=", ">", ">=", "=="}
	for _, v := range valid {
		if operator == v {
			return true
		}
	}
	return false
}

func extractMetricValue(t Threshold, in Input) (float64, error) {
	switch t.Metric {
	case "latency":
		return extractLatencyMetric(t.Aggregate, in.Summary)
	case "ops":
		return extractOpsMetric(t.Aggregate, in.Summary)
	case "workers":
		return extractWorkerMetric(t.Aggregate, in)
	default:
		return 0, fmt.Errorf("unknown metric: %s", t.Metric)
	}
}

func extractLatencyMetric(aggregate string, s metrics.Summary) (float64, error) {
	lat := s.Latency
	if lat == nil {
		return 0, fmt.Errorf("no latency samples recorded")
	}
	switch aggregate {
	case "p50":
		return float64(lat.P50Us), nil
	case "p90":
		return float64(lat.P90Us), nil
	case "p99":
		return float64(lat.P99Us), nil
	case "p999":
		return float64(lat.P999Us), nil
	case "avg":
		return lat.MeanUs, nil
	case "min":
		return float64(lat.MinUs), nil
	case "max":
		return float64(lat.MaxUs), nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for latency", aggregate)
	}
}

func extractOpsMetric(aggregate string, s metrics.Summary) (float64, error) {
	switch aggregate {
	case "count":
		return float64(s.Operations), nil
	case "rate":
		if s.Throughput == nil {
			return 0, fmt.Errorf("throughput unavailable for a zero-length run")
		}
		return *s.Throughput, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for ops (use 'count' or 'rate')", aggregate)
	}
}

func extractWorkerMetric(aggregate string, in Input) (float64, error) {
	switch aggregate {
	case "failed":
		return float64(in.FailedWorkers), nil
	case "succeeded":
		return float64(in.SucceededWorkers), nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for workers (use 'failed' or 'succeeded')", aggregate)
	}
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}

func compareValues(actual float64, operator string, expected float64) bool {
	// Handle floating point comparison with small epsilon
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
