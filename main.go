package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ossyrian/pakparse/internal/batch"
	"github.com/ossyrian/pakparse/internal/config"
	"github.com/ossyrian/pakparse/internal/inspect"
	"github.com/ossyrian/pakparse/internal/logging"
	"github.com/ossyrian/pakparse/internal/pak"
)

var (
	cfgFile string
	cfg     *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pakparse",
	Short: "Extract files from Rebels .pak archives",
	RunE:  extractPaks,
}

// traceCmd reads the text buffer of a running game
var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Print the string currently held in the game's text buffer",
	RunE:  trace,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")
	rootCmd.PersistentFlags().String("codepage", pak.DefaultCodePage, "single-byte code page of archive and game strings")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().String("log-output-dir", "", "directory to write log files (if set, logs are written to both stdout and file)")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored console logs")

	// i/o
	rootCmd.Flags().StringP("input", "i", "", "path to a .pak file or a directory to search for .pak files (required)")
	rootCmd.Flags().StringP("output", "o", ".", "directory to extract into")
	rootCmd.MarkFlagRequired("input")

	// other opts
	rootCmd.Flags().IntP("jobs", "j", 1, "number of archives to extract at the same time")
	rootCmd.Flags().Bool("dry-run", false, "parse and decompress without writing output (validation)")

	traceCmd.Flags().String("process", inspect.DefaultProcess, "executable name of the game process")
	traceCmd.Flags().Uint64("struct-addr", inspect.DefaultStructAddr, "address of the structure holding the buffer pointer")
	traceCmd.Flags().Uint64("buffer-offset", inspect.DefaultBufferOffset, "offset of the buffer pointer in that structure")
	traceCmd.Flags().StringSlice("sentinels", inspect.DefaultSentinels, "byte values that end the string")
	traceCmd.Flags().Int("max-length", inspect.DefaultMaxLength, "longest string to scan for")
	rootCmd.AddCommand(traceCmd)

	viper.BindPFlag("codepage", rootCmd.PersistentFlags().Lookup("codepage"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_output_dir", rootCmd.PersistentFlags().Lookup("log-output-dir"))
	viper.BindPFlag("no_color", rootCmd.PersistentFlags().Lookup("no-color"))
	viper.BindPFlag("input", rootCmd.Flags().Lookup("input"))
	viper.BindPFlag("output", rootCmd.Flags().Lookup("output"))
	viper.BindPFlag("jobs", rootCmd.Flags().Lookup("jobs"))
	viper.BindPFlag("dry_run", rootCmd.Flags().Lookup("dry-run"))
	viper.BindPFlag("trace.process", traceCmd.Flags().Lookup("process"))
	viper.BindPFlag("trace.struct_addr", traceCmd.Flags().Lookup("struct-addr"))
	viper.BindPFlag("trace.buffer_offset", traceCmd.Flags().Lookup("buffer-offset"))
	viper.BindPFlag("trace.sentinels", traceCmd.Flags().Lookup("sentinels"))
	viper.BindPFlag("trace.max_length", traceCmd.Flags().Lookup("max-length"))
}

// initConfig reads in config file and environment variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pakparse"))
		}
		viper.AddConfigPath("/etc/pakparse")
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}

	viper.SetEnvPrefix("PAKPARSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig unmarshals the config and sets up logging.
// The returned func flushes the log file, if any.
func loadConfig() (func() error, error) {
	cfg = &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	closeLog, err := logging.Setup(logging.Options{
		Level:     cfg.LogLevel,
		OutputDir: cfg.LogOutputDir,
		NoColor:   cfg.NoColor,
	})
	if err != nil {
		return nil, fmt.Errorf("could not set up logging: %w", err)
	}
	return closeLog, nil
}

// extractPaks runs the main pakparse command, extracting every
// archive found at the input path
func extractPaks(cmd *cobra.Command, args []string) error {
	closeLog, err := loadConfig()
	if err != nil {
		return err
	}
	defer closeLog()

	cp, err := pak.LookupCodePage(cfg.CodePage)
	if err != nil {
		return err
	}

	input, err := filepath.Abs(cfg.Input)
	if err != nil {
		return fmt.Errorf("invalid input path: %w", err)
	}

	fs := afero.NewOsFs()

	paths, err := batch.Discover(fs, input)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		slog.Warn("no .pak files found", "input", input)
		return nil
	}

	slog.Info("extracting archives",
		"input", input,
		"archives", len(paths),
		"output", cfg.OutputDir,
		"codepage", cp.Name(),
		"dry_run", cfg.DryRun,
	)

	runner := batch.NewRunner(fs, batch.Options{
		OutputDir: cfg.OutputDir,
		CodePage:  cp,
		Jobs:      cfg.Jobs,
		DryRun:    cfg.DryRun,
	}, slog.Default())

	// per-archive failures are logged by the runner and do not fail the command
	runner.Run(paths)

	return nil
}

// trace attaches to the game and prints its current text buffer
func trace(cmd *cobra.Command, args []string) error {
	closeLog, err := loadConfig()
	if err != nil {
		return err
	}
	defer closeLog()

	cp, err := pak.LookupCodePage(cfg.CodePage)
	if err != nil {
		return err
	}

	sentinels, err := inspect.ParseSentinels(cfg.Trace.Sentinels)
	if err != nil {
		return err
	}

	proc, err := inspect.Attach(cfg.Trace.Process)
	if err != nil {
		return fmt.Errorf("failed to attach to %s: %w", cfg.Trace.Process, err)
	}

	slog.Debug("attached", "process", proc.Name, "pid", proc.Pid)

	text, err := inspect.Trace(proc, inspect.Target{
		StructAddr:   cfg.Trace.StructAddr,
		BufferOffset: cfg.Trace.BufferOffset,
		Sentinels:    sentinels,
		MaxLength:    cfg.Trace.MaxLength,
	}, cp)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
