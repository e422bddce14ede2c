package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/papapumpkin/releaseme/internal/config"
	"github.com/papapumpkin/releaseme/internal/logging"
	"github.com/papapumpkin/releaseme/internal/orchestrator"
	"github.com/papapumpkin/releaseme/internal/preview"
	"github.com/papapumpkin/releaseme/internal/shell"
	"github.com/papapumpkin/releaseme/internal/ui"
	"github.com/papapumpkin/releaseme/internal/version"
)

const usageExamples = `Examples:
  release-me patch     1.2.3 -> 1.2.4
  release-me minor     1.2.3 -> 1.3.0
  release-me major     1.2.3 -> 2.0.0
  release-me commit    publish 1.2.3-commit-<hash> without committing or tagging
  release-me v1.5.0    release an explicit version`

func init() {
	rootCmd.Flags().BoolP("force", "f", false, "skip the latest-main check and release even with an empty changelog")
	rootCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	rootCmd.Flags().String("git-tag-prefix", "", "override the git tag prefix (default v, or <name>@ in a monorepo)")
	rootCmd.Flags().String("changelog-dir", "", "write the changelog into this directory, relative to the repository root")
	_ = viper.BindPFlag("git_tag_prefix", rootCmd.Flags().Lookup("git-tag-prefix"))
	_ = viper.BindPFlag("changelog_dir", rootCmd.Flags().Lookup("changelog-dir"))
}

// releaseArgs requires exactly one valid release target.
func releaseArgs(_ *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected one release target, got %d\n\n%s", len(args), usageExamples)
	}
	if _, err := version.ParseTarget(args[0]); err != nil {
		return fmt.Errorf("%w\n\n%s", err, usageExamples)
	}
	return nil
}

func runRelease(cmd *cobra.Command, args []string) error {
	target, err := version.ParseTarget(args[0])
	if err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	dir, err := workingDir()
	if err != nil {
		return err
	}

	printer := ui.New()
	ctx, cancel := setupSignalContext(printer)
	defer cancel()

	force, _ := cmd.Flags().GetBool("force")
	yes, _ := cmd.Flags().GetBool("yes")

	o := &orchestrator.Orchestrator{
		Fs:                afero.NewOsFs(),
		Runner:            &shell.Exec{Logger: logger, Out: os.Stderr},
		Dir:               dir,
		Config:            cfg,
		Reporter:          printer,
		Confirmer:         &preview.Prompter{In: os.Stdin, Out: os.Stderr},
		Out:               os.Stderr,
		Logger:            logger,
		RecordEvents:      true,
		PersistCheckpoint: true,
	}
	res, err := o.Run(ctx, orchestrator.Options{Target: target, Force: force, Yes: yes})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			printer.Aborted("interrupted")
		}
		return err
	}
	logger.Debug("release finished",
		zap.String("package", res.Package),
		zap.String("version", res.Pair.New),
		zap.Bool("aborted", res.Aborted))
	return nil
}

// workingDir returns the current directory with symlinks resolved, matching
// the paths git reports.
func workingDir() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(wd)
	if err != nil {
		return wd, nil
	}
	return resolved, nil
}

// setupSignalContext returns a context that is canceled on SIGINT or SIGTERM.
func setupSignalContext(printer *ui.Printer) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			printer.Info("\ninterrupted, rolling back...")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}
