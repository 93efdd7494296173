// Command freqtab writes a frequency table for every column of a dataset into
// an xlsx workbook, one sheet per column.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/wdm0006/freqtab/pkg/export"
	"github.com/wdm0006/freqtab/pkg/frame"
	"github.com/wdm0006/freqtab/pkg/io/csvio"
	"github.com/wdm0006/freqtab/pkg/io/jsonlio"
	"github.com/wdm0006/freqtab/pkg/io/parquetio"
)

var version = "0.1.0-dev"

const sampleRows = 100

// cliFlags holds the raw flag values; only flags the user actually set are
// applied on top of the config file and environment.
type cliFlags struct {
	configPath           string
	output               string
	inputType            string
	header               bool
	delimiter            string
	maxEntries           int
	formatWidth          bool
	serialNumber         bool
	frequency            bool
	percentage           bool
	cumulativePercentage bool
	stringLength         bool
	nullText             string
	dropNulls            bool
	quiet                bool
	logLevel             string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd, _ := newRootCmdWithFlags()
	return cmd
}

func newRootCmdWithFlags() (*cobra.Command, *cliFlags) {
	fl := &cliFlags{}
	defaults := export.DefaultOptions()
	cmd := &cobra.Command{
		Use:   "freqtab [flags] <input>",
		Short: "Write per-column frequency tables to an Excel workbook",
		Long: `freqtab reads a CSV, JSON Lines or Parquet file and writes one sheet per
column listing every distinct value with its frequency, percentage,
cumulative percentage and string length.`,
		Args:         cobra.MaximumNArgs(1),
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, fl, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&fl.configPath, "config", "", "Path to config file (.json, .toml, .yaml)")
	f.StringVarP(&fl.output, "output", "o", "", "Output workbook (default: frequency_table_<timestamp>.xlsx)")
	f.StringVar(&fl.inputType, "type", "", "Input type: csv, jsonl or parquet (default: by extension)")
	f.BoolVar(&fl.header, "header", true, "CSV input has a header row")
	f.StringVar(&fl.delimiter, "delimiter", "", "CSV delimiter (default: sniffed; \"tab\" for tabs)")
	f.IntVar(&fl.maxEntries, "max-entries", defaults.MaxEntries, "Maximum rows per frequency table")
	f.BoolVar(&fl.formatWidth, "format-width", defaults.FormatWidth, "Size columns to their content")
	f.BoolVar(&fl.serialNumber, "sl-no", defaults.SerialNumber, "Include the sl_no column")
	f.BoolVar(&fl.frequency, "frequency", defaults.Frequency, "Include the frequency column (always written)")
	f.BoolVar(&fl.percentage, "percentage", defaults.Percentage, "Include the percentage column")
	f.BoolVar(&fl.cumulativePercentage, "cumulative-percentage", defaults.CumulativePercentage, "Include the cumulative_percentage column (requires --percentage)")
	f.BoolVar(&fl.stringLength, "string-length", defaults.StringLength, "Include the string_length column")
	f.StringVar(&fl.nullText, "null-text", defaults.NullText, "Rendering of null values for string length")
	f.BoolVar(&fl.dropNulls, "drop-nulls", defaults.DropNulls, "Exclude nulls from the tables")
	f.BoolVarP(&fl.quiet, "quiet", "q", false, "Suppress progress output and the summary table")
	f.StringVar(&fl.logLevel, "log-level", "", "Log level: debug, info, warn, error (default: warn)")
	return cmd, fl
}

// resolveConfig layers config file, environment and explicitly set flags.
func resolveConfig(fs *pflag.FlagSet, fl *cliFlags, args []string) (*Config, error) {
	cfg := &Config{}
	if fl.configPath != "" {
		loaded, err := loadConfigFile(fl.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if len(args) == 1 {
		cfg.Input.Path = args[0]
	}
	fs.Visit(func(f *pflag.Flag) {
		t := &cfg.Table
		switch f.Name {
		case "output":
			cfg.Output.Path = fl.output
		case "type":
			cfg.Input.Type = fl.inputType
		case "header":
			cfg.Input.HasHeader = &fl.header
		case "delimiter":
			cfg.Input.Delimiter = fl.delimiter
		case "max-entries":
			t.MaxEntries = &fl.maxEntries
		case "format-width":
			t.FormatWidth = &fl.formatWidth
		case "sl-no":
			t.SerialNumber = &fl.serialNumber
		case "frequency":
			t.Frequency = &fl.frequency
		case "percentage":
			t.Percentage = &fl.percentage
		case "cumulative-percentage":
			t.CumulativePercentage = &fl.cumulativePercentage
		case "string-length":
			t.StringLength = &fl.stringLength
		case "null-text":
			t.NullText = &fl.nullText
		case "drop-nulls":
			t.DropNulls = &fl.dropNulls
		case "log-level":
			cfg.LogLevel = fl.logLevel
		}
	})
	if cfg.LogLevel == "" {
		cfg.LogLevel = "warn"
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(cmd *cobra.Command, fl *cliFlags, args []string) error {
	cfg, err := resolveConfig(cmd.Flags(), fl, args)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.slogLevel()}))
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	f, err := load(cfg, logger)
	if err != nil {
		return fmt.Errorf("load %s: %w", cfg.Input.Path, err)
	}
	logger.Info("loaded input",
		slog.String("path", cfg.Input.Path),
		slog.String("type", cfg.inputType()),
		slog.Int("rows", f.Rows()),
		slog.Int("columns", f.Cols()))

	if p := cfg.pipeline(); p.Len() > 0 {
		if f, err = p.Run(ctx, f); err != nil {
			return fmt.Errorf("normalize: %w", err)
		}
	}

	var progress io.Writer = cmd.OutOrStdout()
	if fl.quiet {
		progress = io.Discard
	}
	rep, err := export.New(cfg.exportOptions(), export.WithProgress(progress), export.WithLogger(logger)).Export(ctx, f)
	if err != nil {
		return err
	}
	if !fl.quiet {
		printSummary(cmd.OutOrStdout(), rep)
	}
	return nil
}

func load(cfg *Config, logger *slog.Logger) (*frame.Frame, error) {
	switch cfg.inputType() {
	case "jsonl":
		return jsonlio.Load(cfg.Input.Path, jsonlio.ReaderOptions{SampleRows: sampleRows})
	case "parquet":
		return parquetio.Load(cfg.Input.Path)
	default:
		delim, err := parseDelimiter(cfg.Input.Delimiter)
		if err != nil {
			return nil, err
		}
		f, stats, err := csvio.Load(cfg.Input.Path, csvio.ReaderOptions{
			HasHeader:  cfg.hasHeader(),
			Delimiter:  delim,
			SampleRows: sampleRows,
		})
		if err != nil {
			return nil, err
		}
		if w := stats.String(); w != "" {
			logger.Warn("csv records repaired", slog.String("path", cfg.Input.Path), slog.String("counts", w))
		}
		return f, nil
	}
}

func printSummary(w io.Writer, rep *export.Report) {
	_, _ = fmt.Fprintln(w)
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Column", "Sheet", "Values", "Nulls", "Distinct", "Rows", "Truncated"})
	for _, s := range rep.Sheets {
		table.Append([]string{
			s.Column,
			s.Sheet,
			strconv.Itoa(s.Total),
			strconv.Itoa(s.Nulls),
			strconv.Itoa(s.Distinct),
			strconv.Itoa(s.Rows),
			strconv.FormatBool(s.Truncated),
		})
	}
	table.Render()
}
