package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mkuzdowicz/secure-edge-rest/internal/audit"
	"github.com/mkuzdowicz/secure-edge-rest/internal/config"
	"github.com/mkuzdowicz/secure-edge-rest/internal/stack"
)

// newWatchCmd creates the "watch" subcommand for rebuilding on config changes.
func newWatchCmd() *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the template when the config file changes",
		Long: `Watch monitors the configuration file and rebuilds the template on change.

Each rebuild reloads the configuration, synthesizes the template and runs the
audit rules. The template is only written when the audit passes. Rapid
changes are debounced.

Examples:
    secure-edge watch -o template.json
    secure-edge watch --config edge.yaml --debounce 1s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().DurationVar(&opts.debounce, "debounce", 500*time.Millisecond, "Debounce duration for rapid changes")
	cmd.Flags().StringVarP(&opts.outputFormat, "format", "f", "json", "Output format: json or yaml")
	cmd.Flags().StringVarP(&opts.outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

type watchOptions struct {
	debounce     time.Duration
	outputFormat string
	outputFile   string
}

// watchedFile returns the absolute path of the config file to watch.
func watchedFile() (string, error) {
	path := configPath
	if path == "" {
		path = config.DefaultFile
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("nothing to watch: %w", err)
	}
	return abs, nil
}

// isConfigEvent reports whether event changes the watched file. Editors often
// replace files by rename, so creates and renames count as well as writes.
func isConfigEvent(event fsnotify.Event, file string) bool {
	if filepath.Clean(event.Name) != file {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// runWatch rebuilds on every debounced change until interrupted.
func runWatch(w io.Writer, opts watchOptions) error {
	file, err := watchedFile()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	// The directory is watched so the file survives being replaced.
	if err := watcher.Add(filepath.Dir(file)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", file, err)
	}
	logrus.WithField("file", file).Info("watching")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	rebuild(w, opts)

	var debounceTimer *time.Timer
	rebuildChan := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isConfigEvent(event, file) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(opts.debounce, func() {
				select {
				case rebuildChan <- struct{}{}:
				default:
				}
			})

		case <-rebuildChan:
			logrus.Info("change detected, rebuilding")
			rebuild(w, opts)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logrus.WithError(err).Warn("watch error")

		case <-sigChan:
			logrus.Info("stopping watch")
			return nil
		}
	}
}

// rebuild logs failures instead of returning them so the loop keeps running.
func rebuild(w io.Writer, opts watchOptions) {
	if err := buildAndAudit(w, opts); err != nil {
		logrus.WithError(err).Error("rebuild failed")
		return
	}
	logrus.Info("rebuild complete")
}

func buildAndAudit(w io.Writer, opts watchOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tmpl, err := stack.Synthesize(cfg)
	if err != nil {
		return err
	}

	result, err := audit.Template(tmpl, audit.Options{AppName: cfg.AppName})
	if err != nil {
		return err
	}
	for _, issue := range result.Issues {
		logrus.WithField("rule", issue.Rule).Warn(issue.Message)
	}
	if !result.Success {
		return fmt.Errorf("audit failed with %d issues", len(result.Issues))
	}

	return writeTemplate(w, tmpl, opts.outputFormat, opts.outputFile)
}
