// Package config loads newsverify settings from YAML, then applies the
// deployment environment variables on top.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/petasbytes/newsverify/internal/provider"
	"github.com/petasbytes/newsverify/internal/store"
	"github.com/petasbytes/newsverify/internal/telemetry"
)

// DefaultPath is read when no explicit path is given and the file exists.
const DefaultPath = "newsverify.yaml"

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Model     ModelConfig     `yaml:"model"`
	Agent     AgentConfig     `yaml:"agent"`
	Worker    WorkerConfig    `yaml:"worker"`
	Store     StoreConfig     `yaml:"store"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Person    PersonConfig    `yaml:"person"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	FrontendURL     string        `yaml:"frontend_url"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type ModelConfig struct {
	// Provider is one of ollama, anthropic, openai.
	Provider  string `yaml:"provider"`
	BaseURL   string `yaml:"base_url"`
	Name      string `yaml:"name"`
	APIKey    string `yaml:"api_key"`
	MaxTokens int64  `yaml:"max_tokens"`
}

type AgentConfig struct {
	MaxIterations    int           `yaml:"max_iterations"`
	MaxInputChars    int           `yaml:"max_input_chars"`
	CallTimeout      time.Duration `yaml:"call_timeout"`
	MinDistinctTools int           `yaml:"min_distinct_tools"`
}

type WorkerConfig struct {
	Concurrency int           `yaml:"concurrency"`
	QueueSize   int           `yaml:"queue_size"`
	RunTimeout  time.Duration `yaml:"run_timeout"`
}

type StoreConfig struct {
	// Driver is one of memory, sqlite, postgres.
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type FetchConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	MaxRedirects int           `yaml:"max_redirects"`
	AllowPrivate bool          `yaml:"allow_private"`
}

type PersonConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	Delay      time.Duration `yaml:"delay"`
	MaxSources int           `yaml:"max_sources"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TelemetryConfig struct {
	ObserveJSON  bool   `yaml:"observe_json"`
	ArtifactsDir string `yaml:"artifacts_dir"`
	// TraceExporter is one of none, stdout, otlp.
	TraceExporter string `yaml:"trace_exporter"`
	OTLPEndpoint  string `yaml:"otlp_endpoint"`
	OTLPInsecure  bool   `yaml:"otlp_insecure"`
}

// TracingConfig maps the section onto telemetry.SetupTracing.
func (c TelemetryConfig) TracingConfig(service string) telemetry.TracingConfig {
	return telemetry.TracingConfig{
		Exporter: c.TraceExporter,
		Endpoint: c.OTLPEndpoint,
		Insecure: c.OTLPInsecure,
		Service:  service,
	}
}

func Default() Config {
	return Config{
		Server: ServerConfig{Port: 3001, FrontendURL: "http://localhost:5173", ShutdownTimeout: 15 * time.Second},
		// empty base_url and name take the provider's defaults
		Model:     ModelConfig{Provider: provider.Ollama, MaxTokens: 1024},
		Agent:     AgentConfig{MaxIterations: 10, MaxInputChars: 3000, CallTimeout: 60 * time.Second},
		Worker:    WorkerConfig{Concurrency: 2, QueueSize: 32, RunTimeout: 5 * time.Minute},
		Store:     StoreConfig{Driver: store.DriverSQLite, DSN: "newsverify.db"},
		Fetch:     FetchConfig{Timeout: 10 * time.Second, MaxRedirects: 5},
		Person:    PersonConfig{Timeout: 5 * time.Second, Delay: time.Second, MaxSources: 3},
		Log:       LogConfig{Level: "info", Format: "text"},
		Telemetry: TelemetryConfig{ArtifactsDir: ".newsverify", TraceExporter: telemetry.ExporterNone},
	}
}

// Load reads path over the defaults, applies the environment and validates.
// An empty path reads DefaultPath when present.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.decode(data); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return Config{}, fmt.Errorf("failed to read the config file: %w", err)
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overlays the deployment variables. Provider-specific variables
// only apply to the selected provider.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(k string) (string, bool) {
		v, ok := lookup(k)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("MODEL_PROVIDER"); ok {
		if p := strings.ToLower(v); p != c.Model.Provider {
			c.Model.Provider = p
			// defaults belong to the previous provider
			c.Model.BaseURL, c.Model.Name = "", ""
		}
	}
	switch c.Model.Provider {
	case provider.Ollama:
		if v, ok := get("OLLAMA_BASE_URL"); ok {
			c.Model.BaseURL = v
		}
		if v, ok := get("OLLAMA_TEXT_MODEL"); ok {
			c.Model.Name = v
		}
	case provider.Anthropic:
		if v, ok := get("ANTHROPIC_API_KEY"); ok {
			c.Model.APIKey = v
		}
	case provider.OpenAI:
		if v, ok := get("OPENAI_API_KEY"); ok {
			c.Model.APIKey = v
		}
	}

	if v, ok := get("DATABASE_URL"); ok {
		c.Store.DSN = v
		if strings.HasPrefix(v, "postgres://") || strings.HasPrefix(v, "postgresql://") {
			c.Store.Driver = store.DriverPostgres
		}
	}
	if v, ok := get("STORE_DRIVER"); ok {
		c.Store.Driver = strings.ToLower(v)
	}
	if v, ok := get("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v, ok := get("FRONTEND_URL"); ok {
		c.Server.FrontendURL = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}
	if v, ok := get("OTEL_TRACES_EXPORTER"); ok {
		c.Telemetry.TraceExporter = strings.ToLower(v)
	}
	return nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	switch c.Model.Provider {
	case provider.Ollama, provider.Anthropic, provider.OpenAI:
	default:
		errs = append(errs, fmt.Errorf("model.provider: %w: %q", provider.ErrUnknownProvider, c.Model.Provider))
	}
	switch c.Store.Driver {
	case store.DriverMemory, store.DriverSQLite, store.DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver))
	}
	check(c.Store.Driver != store.DriverPostgres || c.Store.DSN != "", "store.dsn: required for postgres")
	check(c.Server.Port > 0 && c.Server.Port < 65536, "server.port: out of range: %d", c.Server.Port)
	check(c.Agent.MaxIterations > 0, "agent.max_iterations: must be positive")
	check(c.Agent.MaxInputChars > 0, "agent.max_input_chars: must be positive")
	check(c.Agent.CallTimeout > 0, "agent.call_timeout: must be positive")
	check(c.Agent.MinDistinctTools >= 0, "agent.min_distinct_tools: must not be negative")
	check(c.Worker.Concurrency > 0, "worker.concurrency: must be positive")
	check(c.Worker.QueueSize > 0, "worker.queue_size: must be positive")
	check(c.Worker.RunTimeout > 0, "worker.run_timeout: must be positive")
	check(c.Fetch.Timeout > 0, "fetch.timeout: must be positive")
	check(c.Fetch.MaxRedirects >= 0, "fetch.max_redirects: must not be negative")
	check(c.Person.MaxSources > 0, "person.max_sources: must be positive")
	check(c.Model.MaxTokens > 0, "model.max_tokens: must be positive")
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Telemetry.TraceExporter {
	case "", telemetry.ExporterNone, telemetry.ExporterStdout, telemetry.ExporterOTLP:
	default:
		errs = append(errs, fmt.Errorf("telemetry.trace_exporter: %w: %q", telemetry.ErrUnknownExporter, c.Telemetry.TraceExporter))
	}
	check(c.Log.Format == "text" || c.Log.Format == "json", "log.format: must be text or json, got %q", c.Log.Format)
	return errors.Join(errs...)
}

// NewLogger builds the root logger described by c.
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}

// ProviderConfig maps the model section onto provider.Config.
func (c ModelConfig) ProviderConfig() provider.Config {
	return provider.Config{
		Provider:  c.Provider,
		BaseURL:   c.BaseURL,
		Model:     c.Name,
		APIKey:    c.APIKey,
		MaxTokens: c.MaxTokens,
	}
}
