// root.go defines the root command and CLI execution entry point.
//
// Design: service construction is lazy, in PersistentPreRunE, so that
// bootstrap commands (config, login) do not need a store to already exist.
// Grounded on the teacher's cmd/root.go lazy-init pattern.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dmsd",
	Short: "Lifecycle engine for regulated SOP documents",
	Long: `dmsd manages the controlled lifecycle of Standard Operating Procedures:
drafting, review, approval, publication, and archival, with e-signature
verification and an immutable audit trail at every transition.`,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if output != "" && output != "json" {
			return fmt.Errorf("invalid output format: %s (valid: json)", output)
		}
		if noServiceCommands[topLevelCmdName(cmd)] {
			return nil
		}
		_, err := serviceForCmd()
		return err
	},
}

// topLevelCmdName returns the name of the direct child of root that is
// executing, e.g. "dmsd version submit" returns "version".
func topLevelCmdName(cmd *cobra.Command) string {
	for cmd.HasParent() && cmd.Parent().HasParent() {
		cmd = cmd.Parent()
	}
	return cmd.Name()
}

// noServiceCommands lists top-level commands that must run without opening
// the store, e.g. because they only print configuration.
var noServiceCommands = map[string]bool{
	"config": true,
	"help":   true,
}

// Execute runs the root command and closes the service on exit.
func Execute() {
	err := rootCmd.Execute()
	if svc != nil {
		if closeErr := svc.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "warning: closing service: %v\n", closeErr)
		}
	}
	if err != nil {
		os.Exit(1)
	}
}

// RootCmd returns the root command, for tests.
func RootCmd() *cobra.Command {
	return rootCmd
}
