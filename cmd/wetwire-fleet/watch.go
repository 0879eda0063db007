package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/lex00/wetwire-fleet-go/internal/config"
	"github.com/lex00/wetwire-fleet-go/internal/validation"
)

// newWatchCmd creates the "watch" subcommand for rebuilding on config changes.
func newWatchCmd(opts *globalOptions) *cobra.Command {
	var wopts watchOptions

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild on configuration changes",
		Long: `Watch monitors the configuration file and rebuilds the template when it
changes.

The watch command:
- Watches --config, or the working directory for wetwire-fleet.{yaml,json,toml}
- Runs the fleet checks on each change
- Writes the template if the checks pass (unless --check-only)
- Debounces rapid changes to avoid excessive rebuilds

Examples:
    wetwire-fleet watch -o template.json
    wetwire-fleet watch -c fleet.yaml --check-only
    wetwire-fleet watch --debounce 1s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.OutOrStdout(), opts, wopts)
		},
	}

	cmd.Flags().BoolVar(&wopts.checkOnly, "check-only", false, "Only run the fleet checks, skip writing the template")
	cmd.Flags().DurationVar(&wopts.debounce, "debounce", 500*time.Millisecond, "Debounce duration for rapid changes")
	cmd.Flags().StringVarP(&wopts.outputFormat, "format", "f", "json", "Output format for build: json or yaml")
	cmd.Flags().StringVarP(&wopts.outputFile, "output", "o", "", "Output file for build (default: stdout)")

	return cmd
}

type watchOptions struct {
	checkOnly    bool
	debounce     time.Duration
	outputFormat string
	outputFile   string
}

// runWatch monitors the configuration and rebuilds on changes.
func runWatch(w io.Writer, opts *globalOptions, wopts watchOptions) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	// Watch the directory so editors that replace the file are still seen.
	dir, err := watchDir(opts.configPath)
	if err != nil {
		return err
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	fmt.Fprintf(w, "Watching: %s\n", dir)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	fmt.Fprintln(w, "Running initial check/build...")
	rebuild(w, opts, wopts)

	var debounceTimer *time.Timer
	rebuildChan := make(chan struct{}, 1)

	fmt.Fprintln(w, "\nWatching for changes... (Ctrl+C to stop)")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isConfigEvent(event, opts.configPath) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(wopts.debounce, func() {
				select {
				case rebuildChan <- struct{}{}:
				default:
				}
			})

		case <-rebuildChan:
			fmt.Fprintf(w, "\n[%s] Change detected, rebuilding...\n", time.Now().Format("15:04:05"))
			rebuild(w, opts, wopts)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)

		case <-sigChan:
			fmt.Fprintln(w, "\nStopping watch...")
			return nil
		}
	}
}

// watchDir is the directory holding the config file.
func watchDir(configPath string) (string, error) {
	if configPath == "" {
		return filepath.Abs(".")
	}
	return filepath.Abs(filepath.Dir(configPath))
}

// isConfigEvent reports whether an event touched the watched config file.
func isConfigEvent(event fsnotify.Event, configPath string) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	if configPath != "" {
		return base == filepath.Base(configPath)
	}
	for _, ext := range []string{".yaml", ".yml", ".json", ".toml"} {
		if base == config.DefaultName+ext {
			return true
		}
	}
	return false
}

// rebuild runs the fleet checks and writes the template when they pass.
func rebuild(w io.Writer, opts *globalOptions, wopts watchOptions) {
	cfg, tmpl, err := opts.buildTemplate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Build error: %v\n", err)
		return
	}

	check := validation.CheckFleet(tmpl, cfg)
	for _, warn := range check.Warnings {
		fmt.Fprintf(w, "WARNING: %s\n", warn)
	}
	if !check.Passed() {
		fmt.Fprintf(os.Stderr, "Check failed:\n  %s\n", strings.Join(check.Errors, "\n  "))
		return
	}
	fmt.Fprintln(w, "Check passed")

	if wopts.checkOnly {
		return
	}
	if err := writeTemplate(w, tmpl, wopts.outputFormat, wopts.outputFile); err != nil {
		fmt.Fprintf(os.Stderr, "Write error: %v\n", err)
		return
	}
	if wopts.outputFile != "" {
		fmt.Fprintf(w, "Wrote %s\n", wopts.outputFile)
	}
}
