package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/torosent/kvcrank/internal/scenario"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// passwordEnv lists the environment variables consulted for the password, in
// order of preference.
var passwordEnv = []string{"KVCRANK_PASSWORD", "CARADE_PASSWORD"}

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a
// Config. Precedence, highest first: flags, config file, environment,
// defaults.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}
	if extra := flagSet.Args(); len(extra) > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(extra, " "))
	}

	cfg := Default()
	configPath := flagSet.Lookup("config").Value.String()
	cfg.ConfigFile = configPath

	if pw, ok := envPassword(); ok {
		cfg.Password = pw
	}

	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	if err := applyConfigSettings(cfg, cfgViper.AllSettings()); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.Host = strings.TrimSpace(cfg.Host)
	return cfg, nil
}

func envPassword() (string, bool) {
	env := viper.New()
	_ = env.BindEnv(append([]string{"password"}, passwordEnv...)...)
	if v := env.GetString("password"); v != "" {
		return v, true
	}
	return "", false
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]any) error {
	if len(settings) == 0 {
		return nil
	}

	for _, f := range []struct {
		keys []string
		dst  *string
	}{
		{[]string{"host"}, &cfg.Host},
		{[]string{"username", "user"}, &cfg.Username},
		{[]string{"password"}, &cfg.Password},
		{[]string{"loglevel", "log_level", "log-level"}, &cfg.LogLevel},
	} {
		if raw, ok := lookupSetting(settings, f.keys...); ok {
			val, err := asString(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", f.keys[0], err)
			}
			*f.dst = strings.TrimSpace(val)
		}
	}

	for _, f := range []struct {
		keys []string
		dst  *int
	}{
		{[]string{"port"}, &cfg.Port},
		{[]string{"db"}, &cfg.DB},
		{[]string{"clients"}, &cfg.Clients},
		{[]string{"requests"}, &cfg.Requests},
		{[]string{"rate"}, &cfg.Rate},
		{[]string{"pipelinebatch", "pipeline_batch", "pipeline-batch"}, &cfg.PipelineBatch},
		{[]string{"backpressurebatch", "backpressure_batch", "backpressure-batch"}, &cfg.BackpressureBatch},
	} {
		if raw, ok := lookupSetting(settings, f.keys...); ok {
			val, err := asInt(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", f.keys[0], err)
			}
			*f.dst = val
		}
	}

	for _, f := range []struct {
		keys []string
		dst  *bool
	}{
		{[]string{"skippreflight", "skip_preflight", "skip-preflight"}, &cfg.SkipPreflight},
		{[]string{"quiet"}, &cfg.Quiet},
		{[]string{"logjson", "log_json", "log-json"}, &cfg.LogJSON},
	} {
		if raw, ok := lookupSetting(settings, f.keys...); ok {
			val, err := asBool(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", f.keys[0], err)
			}
			*f.dst = val
		}
	}

	if raw, ok := lookupSetting(settings, "dialtimeout", "dial_timeout", "dial-timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("dialTimeout: %w", err)
		}
		cfg.DialTimeout = dur
	}

	if raw, ok := lookupSetting(settings, "timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = dur
	}

	if raw, ok := lookupSetting(settings, "preflightexpirywait", "preflight_expiry_wait", "preflight-expiry-wait"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("preflightExpiryWait: %w", err)
		}
		cfg.PreflightExpiryWait = dur
	}

	if raw, ok := lookupSetting(settings, "scenario"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("scenario: %w", err)
		}
		kind, err := scenario.ParseKind(val)
		if err != nil {
			return fmt.Errorf("scenario: %w", err)
		}
		cfg.Scenario = kind
	}

	if raw, ok := lookupSetting(settings, "output"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("output: %w", err)
		}
		cfg.Output = OutputFormat(strings.ToLower(strings.TrimSpace(val)))
	}

	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		val, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = val
	}

	if raw, ok := lookupSetting(settings, "pubsub", "pub_sub"); ok {
		ps, err := parsePubSub(raw, cfg.PubSub)
		if err != nil {
			return fmt.Errorf("pubsub: %w", err)
		}
		cfg.PubSub = ps
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		tc, err := parseTracing(raw, cfg.Tracing)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		cfg.Tracing = tc
	}

	return nil
}

func parsePubSub(value any, base PubSubConfig) (PubSubConfig, error) {
	settings, err := toStringKeyMap(value)
	if err != nil {
		return base, err
	}
	if raw, ok := lookupSetting(settings, "channel"); ok {
		val, err := asString(raw)
		if err != nil {
			return base, fmt.Errorf("channel: %w", err)
		}
		base.Channel = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "warmup"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return base, fmt.Errorf("warmup: %w", err)
		}
		base.Warmup = dur
	}
	if raw, ok := lookupSetting(settings, "idletimeout", "idle_timeout", "idle-timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return base, fmt.Errorf("idleTimeout: %w", err)
		}
		base.IdleTimeout = dur
	}
	return base, nil
}

func parseTracing(value any, base TracingConfig) (TracingConfig, error) {
	settings, err := toStringKeyMap(value)
	if err != nil {
		return base, err
	}
	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return base, fmt.Errorf("endpoint: %w", err)
		}
		base.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return base, fmt.Errorf("protocol: %w", err)
		}
		base.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return base, fmt.Errorf("insecure: %w", err)
		}
		base.Insecure = val
	}
	if raw, ok := lookupSetting(settings, "samplerate", "sample_rate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return base, fmt.Errorf("sampleRate: %w", err)
		}
		base.SampleRate = val
	}
	if raw, ok := lookupSetting(settings, "servicename", "service_name", "service-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return base, fmt.Errorf("serviceName: %w", err)
		}
		base.ServiceName = strings.TrimSpace(val)
	}
	return base, nil
}
