package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/papapumpkin/releaseme/internal/config"
	"github.com/papapumpkin/releaseme/internal/git"
	"github.com/papapumpkin/releaseme/internal/logging"
	"github.com/papapumpkin/releaseme/internal/rollback"
	"github.com/papapumpkin/releaseme/internal/shell"
	"github.com/papapumpkin/releaseme/internal/telemetry"
	"github.com/papapumpkin/releaseme/internal/ui"
)

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Roll back a release run that exited without cleaning up",
	Long: `Reads the rollback checkpoint a killed release run left in the git
directory, resets the repository to the commit the run started from, deletes
the tag it created, and removes the files it added.`,
	Args: cobra.NoArgs,
	RunE: runRecover,
}

func init() {
	rootCmd.AddCommand(recoverCmd)
}

func runRecover(cmd *cobra.Command, _ []string) error {
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
	ctx := cmd.Context()

	repo := &git.Repo{Dir: dir, Runner: &shell.Exec{Logger: logger, Out: os.Stderr}}
	gitDir, err := repo.GitDir(ctx)
	if err != nil {
		return err
	}

	afs := afero.NewOsFs()
	path := rollback.Path(gitDir)
	cp, ok, err := rollback.Load(afs, path)
	if err != nil {
		return err
	}
	if !ok {
		printer.Info("nothing to recover")
		return nil
	}

	ctrl := rollback.NewController(repo, afs, path)
	ctrl.Restore(cp)
	printer.RollbackStarted(cp.BaseCommit)
	rbErr := ctrl.Rollback(ctx)

	events, err := telemetry.NewEmitter(afs, telemetry.Path(gitDir))
	if err != nil {
		printer.Warn(fmt.Sprintf("event log unavailable: %v", err))
	}
	defer events.Close()
	data := map[string]any{"base": cp.BaseCommit, "recovered": true}
	if cp.Tag != "" {
		data["tag"] = cp.Tag
	}
	if rbErr != nil {
		data["error"] = rbErr.Error()
	}
	_ = events.Emit(telemetry.Event{Kind: telemetry.KindRollback, Version: cp.ReleaseVersion, Data: data})

	if rbErr != nil {
		printer.RollbackFailed(rbErr, cp.BaseCommit, cp.Tag)
		return rbErr
	}
	printer.RollbackDone(cp.BaseCommit)
	return nil
}
