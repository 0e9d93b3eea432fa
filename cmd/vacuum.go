// vacuum.go implements "dmsd vacuum", permanent removal of expired edit
// locks and old soft-deleted attachments. Grounded on the teacher's
// extension/core/vacuum.go: a confirmation prompt guards the irreversible
// path, --force skips it, and --older-than accepts the same "7d"/"4w"/"3m"
// shorthand via internal/duration.
package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pharmadocs/dmsd/internal/duration"
	"github.com/pharmadocs/dmsd/internal/progress"
)

var (
	vacuumOlderThan string
	vacuumForce     bool
)

var vacuumCmd = &cobra.Command{
	Use:   "vacuum",
	Short: "Permanently sweep expired edit locks and old soft-deleted attachments",
	Long: `Permanently sweep expired edit locks and old soft-deleted attachments.

Purging attachments is irreversible; use --force to skip confirmation.

Duration formats: 7d (days), 4w (weeks), 3m (months)`,
	Args: cobra.NoArgs,
	RunE: runVacuum,
}

func runVacuum(cmd *cobra.Command, _ []string) error {
	var olderThan *time.Duration
	if vacuumOlderThan != "" {
		d, err := duration.Parse(vacuumOlderThan)
		if err != nil {
			return PrintJSONError(fmt.Errorf("parse --older-than %q: %w", vacuumOlderThan, err))
		}
		olderThan = &d

		if !vacuumForce {
			fmt.Fprint(Out(), "Permanently purge soft-deleted attachments older than this? This cannot be undone. [y/N] ")
			reader := bufio.NewReader(os.Stdin)
			response, err := reader.ReadString('\n')
			if err != nil {
				return PrintJSONError(fmt.Errorf("reading confirmation: %w", err))
			}
			response = strings.TrimSpace(strings.ToLower(response))
			if response != "y" && response != "yes" {
				fmt.Fprintln(Out(), "Cancelled")
				return nil
			}
		}
	}

	s, err := serviceForCmd()
	if err != nil {
		return err
	}

	spin := progress.NewSpinner("Vacuuming")
	spin.Start()
	report, err := s.Vacuum(cmd.Context(), olderThan)
	spin.Stop()
	if err != nil {
		return PrintJSONError(fmt.Errorf("vacuum: %w", err))
	}

	if JSON() {
		return PrintJSON(report)
	}
	fmt.Fprintf(Out(), "expired locks cleared: %d\n", report.LocksExpired)
	if olderThan != nil {
		fmt.Fprintf(Out(), "attachments purged: %d\n", report.AttachmentsPurged)
	}
	return nil
}

func init() {
	vacuumCmd.Flags().StringVar(&vacuumOlderThan, "older-than", "", "Also purge soft-deleted attachments older than duration (e.g., 7d, 4w, 3m)")
	vacuumCmd.Flags().BoolVar(&vacuumForce, "force", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(vacuumCmd)
}
