// Package config provides configuration loading and parsing for kvcrank.
package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/torosent/kvcrank/internal/kvclient"
	"github.com/torosent/kvcrank/internal/scenario"
)

const (
	DefaultHost     = "127.0.0.1"
	DefaultPort     = 63790
	DefaultClients  = 50
	DefaultRequests = 1000
	// DefaultPassword matches the reference server's out-of-the-box setting.
	DefaultPassword = "teasertopsecret"
)

type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
	OutputYAML OutputFormat = "yaml"
)

type Config struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Timeout     time.Duration `mapstructure:"timeout"` // per-command read/write timeout, 0 = client default

	Clients  int           `mapstructure:"clients"`
	Requests int           `mapstructure:"requests"`
	Scenario scenario.Kind `mapstructure:"scenario"`
	Rate     int           `mapstructure:"rate"` // iterations per second per worker

	PipelineBatch     int          `mapstructure:"pipeline_batch"`
	BackpressureBatch int          `mapstructure:"backpressure_batch"`
	PubSub            PubSubConfig `mapstructure:"pubsub"`

	PreflightExpiryWait time.Duration `mapstructure:"preflight_expiry_wait"`
	SkipPreflight       bool          `mapstructure:"skip_preflight"`

	Output     OutputFormat  `mapstructure:"output"`
	Quiet      bool          `mapstructure:"quiet"`
	LogLevel   string        `mapstructure:"log_level"`
	LogJSON    bool          `mapstructure:"log_json"`
	Thresholds []string      `mapstructure:"thresholds"`
	Tracing    TracingConfig `mapstructure:"tracing"`
	ConfigFile string        `mapstructure:"-"`
}

type PubSubConfig struct {
	Channel     string        `mapstructure:"channel"`
	Warmup      time.Duration `mapstructure:"warmup"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // grpc or http
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	ServiceName string  `mapstructure:"service_name"`
}

// Enabled reports whether spans should be exported.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

// Default returns the configuration used when nothing is specified.
func Default() *Config {
	settings := scenario.DefaultSettings()
	return &Config{
		Host:                DefaultHost,
		Port:                DefaultPort,
		Password:            DefaultPassword,
		DialTimeout:         5 * time.Second,
		Clients:             DefaultClients,
		Requests:            DefaultRequests,
		Scenario:            scenario.KindBasic,
		PipelineBatch:       settings.PipelineBatch,
		BackpressureBatch:   settings.BackpressureBatch,
		PreflightExpiryWait: 1500 * time.Millisecond,
		PubSub: PubSubConfig{
			Channel:     settings.PubSubChannel,
			Warmup:      settings.PubSubWarmup,
			IdleTimeout: settings.PubSubIdleTimeout,
		},
		Output:   OutputText,
		LogLevel: "info",
		Tracing:  TracingConfig{Protocol: "grpc", SampleRate: 1.0},
	}
}

// Addr is the host:port the client dials.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// RedisURL renders the connection locator, e.g. redis://:secret@127.0.0.1:63790/0.
func (c Config) RedisURL() string {
	u := url.URL{Scheme: "redis", Host: c.Addr(), Path: "/" + strconv.Itoa(c.DB)}
	if c.Username != "" || c.Password != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}
	return u.String()
}

// Redacted is RedisURL with the password masked.
func (c Config) Redacted() string {
	u := url.URL{Scheme: "redis", Host: c.Addr(), Path: "/" + strconv.Itoa(c.DB)}
	if c.Username != "" || c.Password != "" {
		u.User = url.UserPassword(c.Username, "xxxxx")
	}
	return u.String()
}

// ClientConfig maps the connection settings onto the client adapter. The
// target is resolved from RedisURL so both always agree.
func (c Config) ClientConfig() (kvclient.Config, error) {
	cc, err := kvclient.ParseURL(c.RedisURL())
	if err != nil {
		return kvclient.Config{}, fmt.Errorf("connection url: %w", err)
	}
	cc.DialTimeout = c.DialTimeout
	cc.ReadTimeout = c.Timeout
	cc.WriteTimeout = c.Timeout
	cc.Tracing = c.Tracing.Enabled()
	return cc, nil
}

// ScenarioSettings maps the tuning knobs onto the scenario package.
func (c Config) ScenarioSettings() scenario.Settings {
	return scenario.Settings{
		PipelineBatch:     c.PipelineBatch,
		BackpressureBatch: c.BackpressureBatch,
		PubSubChannel:     c.PubSub.Channel,
		PubSubWarmup:      c.PubSub.Warmup,
		PubSubIdleTimeout: c.PubSub.IdleTimeout,
		RatePerWorker:     c.Rate,
	}
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.Host) == "" {
		issues = append(issues, "host is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		issues = append(issues, fmt.Sprintf("port must be between 1 and 65535, got %d", c.Port))
	}
	if c.DB < 0 {
		issues = append(issues, "db must be >= 0")
	}
	if c.DialTimeout < 0 {
		issues = append(issues, "dial-timeout must be >= 0")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.Clients < 1 {
		issues = append(issues, "clients must be >= 1")
	}
	if c.Requests < 0 {
		issues = append(issues, "requests must be >= 0")
	}
	if !c.Scenario.Valid() {
		issues = append(issues, fmt.Sprintf("scenario %q is not supported", c.Scenario))
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if c.PipelineBatch < 1 {
		issues = append(issues, "pipeline-batch must be >= 1")
	}
	if c.BackpressureBatch < 1 {
		issues = append(issues, "backpressure-batch must be >= 1")
	}
	if c.PubSub.IdleTimeout <= 0 {
		issues = append(issues, "pubsub idle timeout must be > 0")
	}
	if c.PreflightExpiryWait < 0 {
		issues = append(issues, "preflight-expiry-wait must be >= 0")
	}

	switch c.Output {
	case OutputText, OutputJSON, OutputYAML:
	default:
		issues = append(issues, fmt.Sprintf("output must be 'text', 'json' or 'yaml', got %q", c.Output))
	}

	issues = append(issues, validateTracing(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

// Warnings lists settings that are valid but worth flagging to the operator.
func (c Config) Warnings() []string {
	var warnings []string
	if c.Clients > 1000 {
		warnings = append(warnings, fmt.Sprintf("high client count configured (%d connections); make sure the server's maxclients allows it", c.Clients))
	}
	if c.Scenario == scenario.KindPubSub && c.Clients < 2 {
		warnings = append(warnings, "pubsub with a single client has no subscribers")
	}
	if c.SkipPreflight {
		warnings = append(warnings, "preflight check skipped; results are not validated against a working server")
	}
	if c.Tracing.Enabled() && c.Tracing.Insecure {
		warnings = append(warnings, "tracing exporter TLS is disabled")
	}
	return warnings
}

func validateTracing(t TracingConfig) []string {
	var issues []string
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	if !t.Enabled() {
		return issues
	}
	switch strings.ToLower(t.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", t.Protocol))
	}
	return issues
}
