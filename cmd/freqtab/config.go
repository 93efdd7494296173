package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	toml "github.com/pelletier/go-toml/v2"
	yaml "gopkg.in/yaml.v3"

	"github.com/wdm0006/freqtab/pkg/export"
	"github.com/wdm0006/freqtab/pkg/frame"
	"github.com/wdm0006/freqtab/pkg/transform/normalize"
)

// Config is the file form of a run. Pointer fields distinguish "unset" from
// an explicit zero so that each layer only overrides what it names.
type Config struct {
	Input    InputConfig  `json:"input" toml:"input" yaml:"input"`
	Output   OutputConfig `json:"output" toml:"output" yaml:"output"`
	Table    TableConfig  `json:"table" toml:"table" yaml:"table"`
	Steps    []StepConfig `json:"steps" toml:"steps" yaml:"steps" validate:"dive"`
	LogLevel string       `json:"log_level" toml:"log_level" yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

type InputConfig struct {
	Path      string `json:"path" toml:"path" yaml:"path" validate:"required"`
	Type      string `json:"type" toml:"type" yaml:"type" validate:"omitempty,oneof=csv jsonl parquet"`
	HasHeader *bool  `json:"has_header" toml:"has_header" yaml:"has_header"`
	Delimiter string `json:"delimiter" toml:"delimiter" yaml:"delimiter"`
}

type OutputConfig struct {
	Path string `json:"path" toml:"path" yaml:"path"`
}

type TableConfig struct {
	MaxEntries           *int    `json:"max_entries" toml:"max_entries" yaml:"max_entries" validate:"omitempty,min=1"`
	FormatWidth          *bool   `json:"format_width" toml:"format_width" yaml:"format_width"`
	SerialNumber         *bool   `json:"sl_no" toml:"sl_no" yaml:"sl_no"`
	Frequency            *bool   `json:"frequency" toml:"frequency" yaml:"frequency"`
	Percentage           *bool   `json:"percentage" toml:"percentage" yaml:"percentage"`
	CumulativePercentage *bool   `json:"cumulative_percentage" toml:"cumulative_percentage" yaml:"cumulative_percentage"`
	StringLength         *bool   `json:"string_length" toml:"string_length" yaml:"string_length"`
	NullText             *string `json:"null_text" toml:"null_text" yaml:"null_text"`
	DropNulls            *bool   `json:"drop_nulls" toml:"drop_nulls" yaml:"drop_nulls"`
}

// StepConfig is one normalization step applied before tabulating.
type StepConfig struct {
	Op      string            `json:"op" toml:"op" yaml:"op" validate:"required,oneof=trim lower regex_replace map_values fill_null in_set"`
	Column  string            `json:"column" toml:"column" yaml:"column" validate:"required_if=Op in_set"`
	Pattern string            `json:"pattern" toml:"pattern" yaml:"pattern" validate:"required_if=Op regex_replace"`
	Replace string            `json:"replace" toml:"replace" yaml:"replace"`
	Map     map[string]string `json:"map" toml:"map" yaml:"map" validate:"required_if=Op map_values"`
	Value   any               `json:"value" toml:"value" yaml:"value" validate:"required_if=Op fill_null"`
	Values  []string          `json:"values" toml:"values" yaml:"values" validate:"required_if=Op in_set"`
	Strict  bool              `json:"strict" toml:"strict" yaml:"strict"`
}

// envOverrides are read from FREQTAB_* variables.
type envOverrides struct {
	Input                *string `envconfig:"INPUT"`
	Type                 *string `envconfig:"TYPE"`
	Output               *string `envconfig:"OUTPUT"`
	Header               *bool   `envconfig:"HEADER"`
	Delimiter            *string `envconfig:"DELIMITER"`
	MaxEntries           *int    `envconfig:"MAX_ENTRIES"`
	FormatWidth          *bool   `envconfig:"FORMAT_WIDTH"`
	SerialNumber         *bool   `envconfig:"SL_NO"`
	Frequency            *bool   `envconfig:"FREQUENCY"`
	Percentage           *bool   `envconfig:"PERCENTAGE"`
	CumulativePercentage *bool   `envconfig:"CUMULATIVE_PERCENTAGE"`
	StringLength         *bool   `envconfig:"STRING_LENGTH"`
	NullText             *string `envconfig:"NULL_TEXT"`
	DropNulls            *bool   `envconfig:"DROP_NULLS"`
	LogLevel             *string `envconfig:"LOG_LEVEL"`
}

const envPrefix = "FREQTAB"

// loadConfigFile decodes a config file, choosing the format by extension.
func loadConfigFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	default:
		return nil, fmt.Errorf("config %s: unsupported extension %q (want .json, .toml, .yaml or .yml)", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// applyEnv overlays FREQTAB_* variables onto cfg.
func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return fmt.Errorf("failed to load config from env: %w", err)
	}
	setString(&cfg.Input.Path, env.Input)
	setString(&cfg.Input.Type, env.Type)
	setString(&cfg.Output.Path, env.Output)
	setString(&cfg.Input.Delimiter, env.Delimiter)
	setString(&cfg.LogLevel, env.LogLevel)
	setPtr(&cfg.Input.HasHeader, env.Header)
	t := &cfg.Table
	setPtr(&t.MaxEntries, env.MaxEntries)
	setPtr(&t.FormatWidth, env.FormatWidth)
	setPtr(&t.SerialNumber, env.SerialNumber)
	setPtr(&t.Frequency, env.Frequency)
	setPtr(&t.Percentage, env.Percentage)
	setPtr(&t.CumulativePercentage, env.CumulativePercentage)
	setPtr(&t.StringLength, env.StringLength)
	setPtr(&t.NullText, env.NullText)
	setPtr(&t.DropNulls, env.DropNulls)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setPtr[T any](dst **T, v *T) {
	if v != nil {
		*dst = v
	}
}

func (c *Config) validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if _, err := parseDelimiter(c.Input.Delimiter); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// exportOptions resolves the table settings over the library defaults.
func (c *Config) exportOptions() export.Options {
	opts := export.DefaultOptions()
	opts.Filename = c.Output.Path
	t := c.Table
	if t.MaxEntries != nil {
		opts.MaxEntries = *t.MaxEntries
	}
	if t.FormatWidth != nil {
		opts.FormatWidth = *t.FormatWidth
	}
	if t.SerialNumber != nil {
		opts.SerialNumber = *t.SerialNumber
	}
	if t.Frequency != nil {
		opts.Frequency = *t.Frequency
	}
	if t.Percentage != nil {
		opts.Percentage = *t.Percentage
	}
	if t.CumulativePercentage != nil {
		opts.CumulativePercentage = *t.CumulativePercentage
	}
	if t.StringLength != nil {
		opts.StringLength = *t.StringLength
	}
	if t.NullText != nil {
		opts.NullText = *t.NullText
	}
	if t.DropNulls != nil {
		opts.DropNulls = *t.DropNulls
	}
	return opts
}

// inputType returns the configured input type, or guesses it from the file
// extension (a trailing .gz is ignored).
func (c *Config) inputType() string {
	if c.Input.Type != "" {
		return c.Input.Type
	}
	p := strings.TrimSuffix(strings.ToLower(c.Input.Path), ".gz")
	switch filepath.Ext(p) {
	case ".jsonl", ".ndjson":
		return "jsonl"
	case ".parquet":
		return "parquet"
	default:
		return "csv"
	}
}

func (c *Config) hasHeader() bool {
	return c.Input.HasHeader == nil || *c.Input.HasHeader
}

// parseDelimiter accepts a single character, or "tab"/`\t`. Empty means sniff.
func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case "tab", `\t`:
		return '\t', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	return r[0], nil
}

func (c *Config) slogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// pipeline builds the normalization steps in order.
func (c *Config) pipeline() *frame.Pipeline {
	p := frame.NewPipeline()
	for _, s := range c.Steps {
		switch s.Op {
		case "trim":
			p.Add(&normalize.Trim{Column: s.Column})
		case "lower":
			p.Add(&normalize.Lower{Column: s.Column})
		case "regex_replace":
			p.Add(&normalize.RegexReplace{Column: s.Column, Pattern: s.Pattern, Replace: s.Replace})
		case "map_values":
			p.Add(&normalize.MapValues{Column: s.Column, Map: s.Map})
		case "fill_null":
			p.Add(&normalize.FillNull{Column: s.Column, Value: fillValue(s.Value)})
		case "in_set":
			p.Add(normalize.NewInSet(s.Column, s.Values, s.Strict))
		}
	}
	return p
}

// fillValue narrows decoded numbers to the types FillNull coerces.
func fillValue(v any) any {
	switch t := v.(type) {
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint64:
		return int64(t)
	case float32:
		return float64(t)
	}
	return v
}
