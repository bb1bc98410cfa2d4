package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/torosent/kvcrank/internal/scenario"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "kvcrank",
		Short:         "Load generator for Redis-protocol key-value servers",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	def := Default()

	// Connection flags
	flags.String("host", def.Host, "Server host")
	flags.IntP("port", "p", def.Port, "Server port")
	flags.String("username", "", "ACL username")
	flags.String("password", "", "Server password (defaults to $KVCRANK_PASSWORD, then the reference default)")
	flags.Int("db", 0, "Database index to SELECT")
	flags.Duration("dial-timeout", def.DialTimeout, "Connect timeout")
	flags.Duration("timeout", 0, "Per-command read/write timeout (0 uses the client default)")

	// Load control flags
	flags.IntP("clients", "c", def.Clients, "Number of concurrent clients")
	flags.IntP("requests", "n", def.Requests, "Requests per client")
	flags.StringP("scenario", "s", string(def.Scenario), "Scenario to run: "+scenarioNames())
	flags.IntP("rate", "r", 0, "Iterations per second per client (0 means unlimited)")

	// Scenario tuning flags
	flags.Int("pipeline-batch", def.PipelineBatch, "Commands per pipeline round trip")
	flags.Int("backpressure-batch", def.BackpressureBatch, "Commands per backpressure round trip")
	flags.String("pubsub-channel", def.PubSub.Channel, "Channel used by the pubsub scenario")
	flags.Duration("pubsub-warmup", def.PubSub.Warmup, "Publisher delay before the first message (negative disables)")
	flags.Duration("pubsub-idle-timeout", def.PubSub.IdleTimeout, "Subscriber gives up after this much silence")

	// Preflight flags
	flags.Duration("preflight-expiry-wait", def.PreflightExpiryWait, "How long the preflight check waits for its probe key to expire")
	flags.Bool("skip-preflight", false, "Do not run the preflight feature check")

	// Output flags
	flags.StringP("output", "o", string(def.Output), "Report format: text, json or yaml")
	flags.BoolP("quiet", "q", false, "Suppress progress output")
	flags.String("log-level", def.LogLevel, "Log level: debug, info, warn, error")
	flags.Bool("log-json", false, "Emit logs as JSON")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Threshold flags
	flags.StringSlice("threshold", nil, "Performance thresholds (repeatable, e.g., 'latency:p99 < 2000')")

	// Tracing flags
	flags.String("tracing-endpoint", "", "OTLP endpoint for trace export (empty disables tracing)")
	flags.String("tracing-protocol", def.Tracing.Protocol, "OTLP protocol: grpc or http")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Float64("tracing-sample-rate", def.Tracing.SampleRate, "Fraction of runs to sample (0.0-1.0)")
}

func scenarioNames() string {
	names := make([]string, 0, len(scenario.Kinds()))
	for _, k := range scenario.Kinds() {
		names = append(names, k.String())
	}
	return strings.Join(names, ", ")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	strs := map[string]*string{
		"host":             &cfg.Host,
		"username":         &cfg.Username,
		"password":         &cfg.Password,
		"pubsub-channel":   &cfg.PubSub.Channel,
		"log-level":        &cfg.LogLevel,
		"tracing-endpoint": &cfg.Tracing.Endpoint,
		"tracing-protocol": &cfg.Tracing.Protocol,
	}
	for name, dst := range strs {
		if !fs.Changed(name) {
			continue
		}
		val, err := fs.GetString(name)
		if err != nil {
			return err
		}
		*dst = strings.TrimSpace(val)
	}

	ints := map[string]*int{
		"port":               &cfg.Port,
		"db":                 &cfg.DB,
		"clients":            &cfg.Clients,
		"requests":           &cfg.Requests,
		"rate":               &cfg.Rate,
		"pipeline-batch":     &cfg.PipelineBatch,
		"backpressure-batch": &cfg.BackpressureBatch,
	}
	for name, dst := range ints {
		if !fs.Changed(name) {
			continue
		}
		val, err := fs.GetInt(name)
		if err != nil {
			return err
		}
		*dst = val
	}

	durations := map[string]*time.Duration{
		"dial-timeout":          &cfg.DialTimeout,
		"timeout":               &cfg.Timeout,
		"pubsub-warmup":         &cfg.PubSub.Warmup,
		"pubsub-idle-timeout":   &cfg.PubSub.IdleTimeout,
		"preflight-expiry-wait": &cfg.PreflightExpiryWait,
	}
	for name, dst := range durations {
		if !fs.Changed(name) {
			continue
		}
		val, err := fs.GetDuration(name)
		if err != nil {
			return err
		}
		*dst = val
	}

	bools := map[string]*bool{
		"skip-preflight":   &cfg.SkipPreflight,
		"quiet":            &cfg.Quiet,
		"log-json":         &cfg.LogJSON,
		"tracing-insecure": &cfg.Tracing.Insecure,
	}
	for name, dst := range bools {
		if !fs.Changed(name) {
			continue
		}
		val, err := fs.GetBool(name)
		if err != nil {
			return err
		}
		*dst = val
	}

	if fs.Changed("scenario") {
		val, err := fs.GetString("scenario")
		if err != nil {
			return err
		}
		kind, err := scenario.ParseKind(val)
		if err != nil {
			return err
		}
		cfg.Scenario = kind
	}
	if fs.Changed("output") {
		val, err := fs.GetString("output")
		if err != nil {
			return err
		}
		cfg.Output = OutputFormat(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("threshold") {
		val, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}
	if fs.Changed("tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	return nil
}
