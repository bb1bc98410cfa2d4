package output

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"github.com/torosent/kvcrank/internal/metrics"
	"github.com/torosent/kvcrank/internal/threshold"
)

// Report is everything a run produces, in the shape it is rendered.
type Report struct {
	RunID       string          `json:"run_id" yaml:"run_id"`
	StartedAt   time.Time       `json:"started_at" yaml:"started_at"`
	Scenario    string          `json:"scenario" yaml:"scenario"`
	Target      string          `json:"target" yaml:"target"`
	Clients     int             `json:"clients" yaml:"clients"`
	Requests    int             `json:"requests_per_client" yaml:"requests_per_client"`
	Aborted     bool            `json:"aborted" yaml:"aborted"`
	AbortReason string          `json:"abort_reason,omitempty" yaml:"abort_reason,omitempty"`
	Summary     metrics.Summary `json:"summary" yaml:"summary"`
	Workers     WorkerCounts    `json:"workers" yaml:"workers"`
	Failures    []WorkerError   `json:"failures,omitempty" yaml:"failures,omitempty"`
	Thresholds  []ThresholdLine `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
}

// WorkerCounts tallies worker outcomes.
type WorkerCounts struct {
	Spawned   int `json:"spawned" yaml:"spawned"`
	Succeeded int `json:"succeeded" yaml:"succeeded"`
	Failed    int `json:"failed" yaml:"failed"`
}

// WorkerError is one failed worker and the error it returned.
type WorkerError struct {
	Worker int    `json:"worker" yaml:"worker"`
	Error  string `json:"error" yaml:"error"`
}

// ThresholdLine is one evaluated threshold as rendered in the report.
type ThresholdLine struct {
	Threshold string  `json:"threshold" yaml:"threshold"`
	Actual    float64 `json:"actual" yaml:"actual"`
	Pass      bool    `json:"pass" yaml:"pass"`
	Message   string  `json:"message" yaml:"message"`
}

// NewRunID returns a lexically sortable identifier for a run started at t.
func NewRunID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}

// ThresholdLines converts evaluation results for the report.
func ThresholdLines(results []threshold.Result) []ThresholdLine {
	if len(results) == 0 {
		return nil
	}
	lines := make([]ThresholdLine, 0, len(results))
	for _, r := range results {
		lines = append(lines, ThresholdLine{
			Threshold: r.Threshold.Raw,
			Actual:    r.Actual,
			Pass:      r.Pass,
			Message:   r.Message,
		})
	}
	return lines
}

// ThresholdsPassed reports whether every threshold in the report passed.
func (r Report) ThresholdsPassed() bool {
	for _, t := range r.Thresholds {
		if !t.Pass {
			return false
		}
	}
	return true
}

// Write renders the report in the named format: text, json or yaml.
func Write(w io.Writer, format string, r Report) error {
	switch strings.ToLower(format) {
	case "", "text":
		PrintReport(w, r)
		return nil
	case "json":
		return PrintJSONReport(w, r)
	case "yaml":
		return PrintYAMLReport(w, r)
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}

var (
	passLabel = color.New(color.FgGreen, color.Bold)
	failLabel = color.New(color.FgRed, color.Bold)
)

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, r Report) {
	fmt.Fprintln(w, "\n--- Load Test Results ---")
	fmt.Fprintf(w, "Run ID:            %s\n", r.RunID)
	fmt.Fprintf(w, "Scenario:          %s\n", r.Scenario)
	fmt.Fprintf(w, "Target:            %s\n", r.Target)
	fmt.Fprintf(w, "Clients:           %d x %d requests\n", r.Clients, r.Requests)

	if r.Aborted {
		fmt.Fprintf(w, "\n%s preflight check failed, no workers were started\n", failLabel.Sprint("ABORTED"))
		if r.AbortReason != "" {
			fmt.Fprintf(w, "Reason:            %s\n", r.AbortReason)
		}
	}

	s := r.Summary
	fmt.Fprintf(w, "Workers:           %d succeeded, %d failed\n", r.Workers.Succeeded, r.Workers.Failed)
	fmt.Fprintf(w, "Total Operations:  %d\n", s.Operations)
	fmt.Fprintf(w, "Duration:          %s\n", s.Duration)
	if s.Throughput != nil {
		fmt.Fprintf(w, "Throughput:        %.2f ops/sec\n", *s.Throughput)
	} else {
		fmt.Fprintln(w, "Throughput:        n/a")
	}

	if lat := s.Latency; lat != nil {
		fmt.Fprintf(w, "\nLatency (µs, %d samples):\n", lat.Samples)
		fmt.Fprintf(w, "  Min:             %d\n", lat.MinUs)
		fmt.Fprintf(w, "  Mean:            %.1f\n", lat.MeanUs)
		fmt.Fprintf(w, "  P50:             %d\n", lat.P50Us)
		fmt.Fprintf(w, "  P90:             %d\n", lat.P90Us)
		fmt.Fprintf(w, "  P99:             %d\n", lat.P99Us)
		fmt.Fprintf(w, "  P99.9:           %d\n", lat.P999Us)
		fmt.Fprintf(w, "  Max:             %d\n", lat.MaxUs)
	}

	if len(r.Failures) > 0 {
		fmt.Fprintln(w, "\nWorker Failures:")
		for _, f := range r.Failures {
			fmt.Fprintf(w, "  - worker %d: %s\n", f.Worker, f.Error)
		}
	}

	if len(r.Thresholds) > 0 {
		fmt.Fprintln(w, "\nThresholds:")
		for _, t := range r.Thresholds {
			label := passLabel.Sprint("PASS")
			if !t.Pass {
				label = failLabel.Sprint("FAIL")
			}
			fmt.Fprintf(w, "  %s %s\n", label, t.Message)
		}
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// PrintYAMLReport outputs a YAML-formatted report.
func PrintYAMLReport(w io.Writer, r Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}
