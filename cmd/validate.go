package cmd

import (
	"errors"
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/releaseme/internal/config"
	"github.com/papapumpkin/releaseme/internal/ui"
)

var errValidation = errors.New("validation failed")

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and that required tools are available",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			ui.New().Checks([]ui.Check{{Name: "config", Note: err.Error()}})
			return errValidation
		}
		checks := []ui.Check{{Name: "config", OK: true, Note: "valid"}}
		for _, tool := range []string{"git", cfg.PackageManager, cfg.RegistryClient} {
			checks = append(checks, toolCheck(tool))
		}
		if !ui.New().Checks(dedupe(checks)) {
			return errValidation
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func toolCheck(name string) ui.Check {
	path, err := exec.LookPath(name)
	if err != nil {
		return ui.Check{Name: name, Note: fmt.Sprintf("not found on PATH: %v", err)}
	}
	return ui.Check{Name: name, OK: true, Note: path}
}

// dedupe drops repeated check names, keeping the first.
func dedupe(checks []ui.Check) []ui.Check {
	seen := make(map[string]bool, len(checks))
	out := checks[:0]
	for _, c := range checks {
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		out = append(out, c)
	}
	return out
}
