// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

// Package main provides the command-line interface and the main entry point for uniquebench.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ThePhilAz/unique-benchmarking/assistants"
	"github.com/ThePhilAz/unique-benchmarking/cmd/uniquebench/tui"
	"github.com/ThePhilAz/unique-benchmarking/config"
	"github.com/ThePhilAz/unique-benchmarking/formatters"
	"github.com/ThePhilAz/unique-benchmarking/golden"
	"github.com/ThePhilAz/unique-benchmarking/metrics"
	"github.com/ThePhilAz/unique-benchmarking/providers"
	"github.com/ThePhilAz/unique-benchmarking/providers/execution"
	"github.com/ThePhilAz/unique-benchmarking/runners"
	"github.com/ThePhilAz/unique-benchmarking/storage"
	"github.com/ThePhilAz/unique-benchmarking/version"
)

const (
	exitCodeBadCommand         = 2
	exitCodeFinishedWithErrors = 3
	defaultConfigFile          = "config.yaml"
	msgInteractiveExited       = "Interactive session exited by user."
)

var (
	csvFormatter        = formatters.NewCSVFormatter()
	logFormatter        = formatters.NewLogFormatter()
	summaryLogFormatter = formatters.NewSummaryLogFormatter()
)

var stderr = zerolog.New(zerolog.NewConsoleWriter(
	func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
		w.TimeFormat = time.DateTime
		w.NoColor = true
	},
)).Level(zerolog.TraceLevel).With().Timestamp().Logger()

// errFinishedWithErrors signals that the experiment ran but its reports could not all be written.
var errFinishedWithErrors = errors.New("finished with errors")

// runOptions holds the flags of the run command.
type runOptions struct {
	configFilePath     string
	experimentFilePath string
	outputFileDir      string
	outputFileBasename string
	logFilePath        string
	formatCSV          bool
	golden             bool
	verbose            bool
	debug              bool
	interactive        bool

	// flags reports whether a flag was set on the command line.
	flags interface{ Changed(name string) bool }
}

func main() {
	root := newRootCommand()
	if err := root.ExecuteContext(context.Background()); err != nil {
		if errors.Is(err, errFinishedWithErrors) {
			os.Exit(exitCodeFinishedWithErrors)
		}
		stderr.Error().Err(err).Send()
		os.Exit(exitCodeBadCommand)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "uniquebench",
		Short:         "Benchmark chat assistants by asking every question to every assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCommand(), newVersionCommand())
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func newRunCommand() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "start the experiment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.flags = cmd.Flags()
			ok, err := run(cmd.Context(), opts, cmd.OutOrStdout())
			if err != nil {
				return err
			} else if !ok {
				return errFinishedWithErrors
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.configFilePath, "config", defaultConfigFile, "configuration file path")
	flags.StringVar(&opts.experimentFilePath, "experiment", "", "experiment definition file path")
	flags.StringVar(&opts.outputFileDir, "output-dir", "", "results output directory")
	flags.StringVar(&opts.outputFileBasename, "output-basename", "", "base filename for results; replace if exists; blank = stdout")
	flags.StringVar(&opts.logFilePath, "log", "", "log file path; append if exists; blank = stdout")
	flags.BoolVar(&opts.formatCSV, "csv", true, "generate CSV output")
	flags.BoolVar(&opts.golden, "golden", false, "generate golden answers with the configured default model if the experiment names none")
	flags.BoolVar(&opts.verbose, "verbose", false, "enable detailed logging")
	flags.BoolVar(&opts.debug, "debug", false, "enable low-level debug logging")
	flags.BoolVar(&opts.interactive, "interactive", false, "enable interactive interface for experiment selection, and real-time progress monitoring")
	return cmd
}

func run(ctx context.Context, opts *runOptions, out io.Writer) (ok bool, err error) {
	configPath := filepath.Clean(opts.configFilePath)
	workingDir, configDir, err := getWorkingDirectories(configPath)
	if err != nil {
		return
	}
	fmt.Fprintf(out, "Current working directory: %s\n", workingDir)
	fmt.Fprintf(out, "Configuration directory: %s\n", configDir)

	// Load configuration.
	fmt.Fprintf(out, "Loading configuration from file: %s\n", configPath)
	cfg, err := config.LoadConfigFromFile(ctx, configPath)
	if err != nil {
		return
	}

	// Load experiment.
	experimentFile := config.CleanIfNotBlank(opts.valueIfSet("experiment", opts.experimentFilePath, config.MakeAbs(configDir, cfg.Config.ExperimentSource)))
	fmt.Fprintf(out, "Loading experiment from file: %s\n", experimentFile)
	experiment, err := config.LoadExperimentFromFile(ctx, experimentFile)
	if err != nil {
		return
	}
	experimentCfg := experiment.Experiment
	if opts.golden && !experimentCfg.GoldenEnabled() && cfg.Config.Golden != nil {
		experimentCfg.GoldenModel = cfg.Config.Golden.DefaultModel
	}

	// Interactive selection if enabled.
	if opts.interactive {
		if userAction, err := tui.DisplayAssistantPicker(&experimentCfg); err != nil { // blocking call
			return ok, err
		} else if userAction == tui.Exit { //nolint:gocritic
			fmt.Fprintln(out, msgInteractiveExited)
			return true, nil
		} else if userAction == tui.Quit {
			fmt.Fprintln(out, "No changes applied: assistant selection was cancelled.")
		}

		if userAction, err := tui.DisplayQuestionPicker(&experimentCfg); err != nil { // blocking call
			return ok, err
		} else if userAction == tui.Exit { //nolint:gocritic
			fmt.Fprintln(out, msgInteractiveExited)
			return true, nil
		} else if userAction == tui.Quit {
			fmt.Fprintln(out, "No changes applied: question selection was cancelled.")
		}
	}

	if experimentCfg.TotalTasks() < 1 {
		fmt.Fprintln(out, "Nothing to run: no questions or no assistants selected.")
		return true, nil
	}

	// Time to be used to resolve name patterns.
	timeRef := time.Now()

	// Create output files.
	outputWriters := make(map[formatters.Formatter]io.Writer)
	for _, formatter := range opts.enabledFormatters() {
		outputWriters[formatter] = out // default
		if fileName := opts.valueIfSet("output-basename", opts.outputFileBasename, cfg.Config.OutputBaseName); config.IsNotBlank(fileName) {
			fileName = fmt.Sprintf("%s.%s", fileName, formatter.FileExt())
			outputDir := opts.valueIfSet("output-dir", opts.outputFileDir, config.MakeAbs(configDir, cfg.Config.OutputDir))
			if fp, outputPath, err := createOutputFile(config.MakeAbs(outputDir, fileName), timeRef, false); err != nil {
				return ok, err
			} else if fp != nil {
				defer fp.Close()
				fmt.Fprintf(out, "Results in %s format will be saved to: %s\n", strings.ToUpper(formatter.FileExt()), outputPath)
				outputWriters[formatter] = fp
			}
		}
	}

	// Configure logger.
	var consoleBuffer io.Writer = out
	if opts.interactive {
		consoleBuffer = &tui.ConsoleBuffer{}
	}
	logWriters := []io.Writer{zerolog.NewConsoleWriter(
		func(w *zerolog.ConsoleWriter) {
			w.Out = consoleBuffer
			w.TimeFormat = time.DateTime
			w.NoColor = false
		},
	)}
	logFile := out
	if fp, logPath, err := createOutputFile(opts.valueIfSet("log", opts.logFilePath, config.MakeAbs(configDir, cfg.Config.LogFile)), timeRef, true); err != nil {
		return ok, err
	} else if fp != nil {
		fmt.Fprintf(out, "Log messages will be saved to: %s\n", logPath)
		defer fp.Close()
		logFile = fp
		logWriters = append(logWriters, zerolog.NewConsoleWriter(
			func(w *zerolog.ConsoleWriter) {
				w.Out = logFile
				w.TimeFormat = time.DateTime
				w.NoColor = true
			},
		)) // format the file output as plain-text without color codes
	}
	zlogger := zerolog.New(zerolog.MultiLevelWriter(logWriters...)).Level(opts.logLevel()).With().Timestamp().Logger()
	logger := runners.NewZerologLogger(zlogger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runnerOpts := []runners.RunnerOption{
		runners.WithRateLimit(cfg.Config.AssistantAPI.MaxRequestsPerMinute),
	}

	// Configure persistence.
	store, goldenStore, err := openStores(ctx, cfg.Config, experimentCfg, configDir, out)
	if err != nil {
		return
	}
	if len(store) > 0 {
		runnerOpts = append(runnerOpts, runners.WithResultStore(store))
	}

	// Configure metrics.
	if address := cfg.Config.Metrics.ListenAddress; config.IsNotBlank(address) {
		m := metrics.New()
		addr, err := m.Serve(ctx, address, logger.WithContext("metrics: "))
		if err != nil {
			return ok, err
		}
		fmt.Fprintf(out, "Metrics are served at: http://%s/metrics\n", addr)
		runnerOpts = append(runnerOpts, runners.WithMetrics(m))
	}

	// Configure golden answers.
	if cfg.Config.Golden != nil {
		provider, err := providers.NewProvider(ctx, *cfg.Config.Golden)
		if err != nil {
			return ok, err
		}
		defer provider.Close(ctx)
		generator := golden.NewExecutorGenerator(execution.NewExecutor(provider, *cfg.Config.Golden), logger.WithContext(provider.Name()+": "))
		runnerOpts = append(runnerOpts, runners.WithGoldenCache(golden.NewCache(generator, goldenStore, logger)))
	}

	// Run the experiment.
	client := assistants.NewClient(cfg.Config.AssistantAPI, logger.WithContext("assistant-api: "))
	exec := runners.NewDefaultRunner(client, zlogger, runnerOpts...)
	defer exec.Close(ctx)

	var summary runners.Summary
	if opts.interactive {
		userAction, asyncRun, err := tui.NewTaskMonitor(exec, consoleBuffer.(*tui.ConsoleBuffer)).Run(ctx, experimentCfg) // blocking call
		if err != nil {
			return ok, err
		} else if userAction == tui.Exit {
			fmt.Fprintln(out, msgInteractiveExited)
			return true, nil
		} else if userAction == tui.Quit {
			fmt.Fprintln(out, "Interactive UI closed: the experiment will continue running in the background.")
		}
		// If the experiment is still in progress, the call will block until it is finished.
		summary = asyncRun.Wait()
	} else {
		if summary, err = exec.Run(ctx, experimentCfg); err != nil { // blocking call
			return
		}
	}
	results := exec.GetResults()

	// Print and save the results.
	ok = !logResults(summary, results, logFile)
	ok = ok && !saveResults(summary, results, outputWriters)

	return
}

// openStores opens the configured result stores. The SQLite store, when configured,
// also backs the golden answer cache.
func openStores(ctx context.Context, cfg config.AppConfig, experimentCfg config.ExperimentConfig, configDir string, out io.Writer) (store storage.MultiStore, goldenStore golden.Store, err error) {
	resultsDir := cfg.Storage.ResultsDir
	if config.IsNotBlank(experimentCfg.OutputDir) {
		resultsDir = experimentCfg.OutputDir
	}
	if config.IsNotBlank(resultsDir) {
		resultsDir = config.MakeAbs(configDir, resultsDir)
		fmt.Fprintf(out, "Experiment results will be saved under: %s\n", resultsDir)
		store = append(store, storage.NewFileStore(resultsDir))
	}
	if config.IsNotBlank(cfg.Storage.Database) {
		databasePath := config.MakeAbs(configDir, cfg.Storage.Database)
		if err = os.MkdirAll(filepath.Dir(databasePath), os.ModePerm); err != nil {
			return
		}
		sqliteStore, err := storage.NewSQLiteStore(ctx, databasePath)
		if err != nil {
			return nil, nil, err
		}
		fmt.Fprintf(out, "Experiment results will be recorded in database: %s\n", databasePath)
		store = append(store, sqliteStore)
		goldenStore = sqliteStore
	}
	return
}

func (o *runOptions) enabledFormatters() (enabled []formatters.Formatter) {
	if o.formatCSV {
		enabled = append(enabled, csvFormatter)
	}
	return enabled
}

func (o *runOptions) logLevel() zerolog.Level {
	if o.debug {
		return zerolog.TraceLevel
	} else if o.verbose {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

// valueIfSet returns value if the named flag was given on the command line, defaultValue otherwise.
func (o *runOptions) valueIfSet(name string, value string, defaultValue string) string {
	if o.flags != nil && o.flags.Changed(name) {
		return value
	}
	return defaultValue
}

func getWorkingDirectories(configFilePath string) (workingDir string, configDir string, err error) {
	workingDir, err = os.Getwd()
	if err != nil {
		return
	}

	// If the path is not absolute it will be joined with the current working directory.
	absConfigPath, err := filepath.Abs(configFilePath)
	if err != nil {
		return
	}
	configDir = filepath.Dir(absConfigPath)

	return
}

func printVersion(out io.Writer) {
	fmt.Fprintf(out, "%s %s\n", version.Name, version.GetVersion())
}

func createOutputFile(outputFilePath string, timeRef time.Time, append bool) (outputFile *os.File, outputPath string, err error) {
	if outputPath = config.CleanIfNotBlank(config.ResolveFileNamePattern(outputFilePath, timeRef)); config.IsNotBlank(outputPath) {
		if err = os.MkdirAll(filepath.Dir(outputPath), os.ModePerm); err != nil {
			return
		}
		if append {
			outputFile, err = os.OpenFile(outputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		} else {
			outputFile, err = os.Create(outputPath)
		}
	}
	return
}

func logResults(summary runners.Summary, results runners.Results, out io.Writer) (finishedWithErrors bool) {
	fmt.Fprintln(out)
	if err := summaryLogFormatter.Write(summary, results, out); err != nil {
		stderr.Warn().Err(err).Msg("failed to log summary")
		finishedWithErrors = true
	}
	fmt.Fprintln(out)
	if err := logFormatter.Write(summary, results, out); err != nil {
		stderr.Warn().Err(err).Msg("failed to log results")
		finishedWithErrors = true
	}
	fmt.Fprintln(out)
	return
}

func saveResults(summary runners.Summary, results runners.Results, outputWriters map[formatters.Formatter]io.Writer) (finishedWithErrors bool) {
	for formatter, out := range outputWriters {
		if err := formatter.Write(summary, results, out); err != nil {
			stderr.Warn().Err(err).Msg(fmt.Sprintf("failed to write %s output", strings.ToUpper(formatter.FileExt())))
			finishedWithErrors = true
		}
	}
	return
}
