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

	"github.com/wagiedev/mcp-toolhost/internal/registry"
)

// Environment variables overriding file settings.
const (
	EnvMode            = "TOOLHOST_MODE"
	EnvDynamic         = "TOOLHOST_DYNAMIC"
	EnvDefaultToolsets = "TOOLHOST_DEFAULT_TOOLSETS"
	EnvNamespace       = "TOOLHOST_NAMESPACE"
	EnvTransport       = "TOOLHOST_TRANSPORT"
	EnvAddr            = "TOOLHOST_ADDR"
	EnvLogLevel        = "TOOLHOST_LOG_LEVEL"
	EnvLogFormat       = "TOOLHOST_LOG_FORMAT"
)

// DefaultAddr is the HTTP listen address used when none is configured.
const DefaultAddr = "127.0.0.1:8765"

// File is the on-disk configuration of the toolhost command.
type File struct {
	Name         string        `yaml:"name"`
	Instructions string        `yaml:"instructions"`
	Mode         string        `yaml:"mode"`
	Namespace    string        `yaml:"namespace"`
	Dynamic      DynamicFile   `yaml:"dynamic"`
	Transport    string        `yaml:"transport"`
	HTTP         HTTPFile      `yaml:"http"`
	Log          LogFile       `yaml:"log"`
	Telemetry    TelemetryFile `yaml:"telemetry"`
}

// DynamicFile configures dynamic discovery.
type DynamicFile struct {
	Enabled                bool     `yaml:"enabled"`
	DefaultEnabledToolsets []string `yaml:"default_enabled_toolsets"`
	Name                   string   `yaml:"name"`
}

// HTTPFile configures the HTTP transports.
type HTTPFile struct {
	Addr              string        `yaml:"addr"`
	Stateless         bool          `yaml:"stateless"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// LogFile configures logging.
type LogFile struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TelemetryFile configures OpenTelemetry.
type TelemetryFile struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// DefaultFile returns the configuration used when no file is given.
func DefaultFile() *File {
	return &File{
		Name:      "toolhost",
		Mode:      string(registry.ModeReadWrite),
		Transport: string(TransportStdio),
		HTTP: HTTPFile{
			Addr:              DefaultAddr,
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Log: LogFile{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFile reads path over the defaults. An empty path returns the defaults.
func LoadFile(path string) (*File, error) {
	if path == "" {
		return DefaultFile(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return f, nil
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	f := DefaultFile()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return f, nil
}

// ApplyEnv overrides settings from the environment. lookup is usually
// os.LookupEnv.
func (f *File) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvMode); ok {
		f.Mode = v
	}

	if v, ok := lookup(EnvDynamic); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDynamic, err)
		}

		f.Dynamic.Enabled = enabled
	}

	if v, ok := lookup(EnvDefaultToolsets); ok {
		f.Dynamic.DefaultEnabledToolsets = splitList(v)
	}

	if v, ok := lookup(EnvNamespace); ok {
		f.Namespace = v
	}

	if v, ok := lookup(EnvTransport); ok {
		f.Transport = v
	}

	if v, ok := lookup(EnvAddr); ok {
		f.HTTP.Addr = v
	}

	if v, ok := lookup(EnvLogLevel); ok {
		f.Log.Level = v
	}

	if v, ok := lookup(EnvLogFormat); ok {
		f.Log.Format = v
	}

	return nil
}

func splitList(s string) []string {
	var out []string

	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}

// Validate checks enumerated settings.
func (f *File) Validate() error {
	if _, err := ParseMode(f.Mode); err != nil {
		return err
	}

	if _, err := ParseTransport(f.Transport); err != nil {
		return err
	}

	if _, err := f.LogLevel(); err != nil {
		return err
	}

	switch strings.ToLower(f.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", f.Log.Format)
	}

	return nil
}

// ModeValue returns the parsed toolset mode.
func (f *File) ModeValue() registry.Mode {
	mode, err := ParseMode(f.Mode)
	if err != nil {
		return registry.ModeReadWrite
	}

	return mode
}

// TransportValue returns the parsed transport.
func (f *File) TransportValue() TransportType {
	t, err := ParseTransport(f.Transport)
	if err != nil {
		return TransportStdio
	}

	return t
}

// DynamicConfig returns the registry dynamic discovery configuration.
func (f *File) DynamicConfig() registry.DynamicConfig {
	return registry.DynamicConfig{
		Enabled:                f.Dynamic.Enabled,
		DefaultEnabledToolsets: f.Dynamic.DefaultEnabledToolsets,
		Name:                   f.Dynamic.Name,
	}
}

// LogLevel parses the configured log level.
func (f *File) LogLevel() (slog.Level, error) {
	var level slog.Level

	if f.Log.Level == "" {
		return slog.LevelInfo, nil
	}

	if err := level.UnmarshalText([]byte(f.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level: %w", err)
	}

	return level, nil
}

// NewLogger builds a logger writing to w as configured.
func (f *File) NewLogger(w io.Writer) *slog.Logger {
	level, _ := f.LogLevel()
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(f.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}
